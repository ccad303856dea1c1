// Package scene turns meshes into rasterizer input: it places models in a
// world, projects them through a camera and fills the framebuffer.
package scene

import (
	"math"

	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
)

// Camera is a perspective camera looking down its local -Z axis.
type Camera struct {
	// Position in world space
	Position math3d.Vec3

	// Orientation (Euler angles in radians)
	Pitch float64 // Rotation around X axis (look up/down)
	Yaw   float64 // Rotation around Y axis (look left/right)
	Roll  float64 // Rotation around Z axis (tilt)

	FOV  float64 // Vertical field of view in radians
	Near float64 // Points closer than Near are not projected
	Far  float64

	view      math3d.Mat4
	viewDirty bool
}

// NewCamera returns a camera at pos with a 60 degree field of view.
func NewCamera(pos math3d.Vec3) *Camera {
	return &Camera{
		Position:  pos,
		FOV:       math.Pi / 3,
		Near:      0.1,
		Far:       1000,
		viewDirty: true,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
	c.viewDirty = true
}

// SetRotation sets the camera rotation (pitch, yaw, roll in radians).
func (c *Camera) SetRotation(pitch, yaw, roll float64) {
	c.Pitch = pitch
	c.Yaw = yaw
	c.Roll = roll
	c.viewDirty = true
}

// SetClipPlanes sets the near and far planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
}

// Forward returns the viewing direction.
func (c *Camera) Forward() math3d.Vec3 {
	return math3d.V3(
		-math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// Right returns the right direction vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(math.Cos(c.Yaw), 0, -math.Sin(c.Yaw))
}

// Up returns the up direction vector.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		rot := math3d.RotateZ(-c.Roll).Mul(
			math3d.RotateX(-c.Pitch)).Mul(
			math3d.RotateY(-c.Yaw))
		c.view = rot.Mul(math3d.Translate(c.Position.Negate()))
		c.viewDirty = false
	}
	return c.view
}

// ProjectionMatrix returns the perspective matrix for a width x height
// target.
func (c *Camera) ProjectionMatrix(width, height int) math3d.Mat4 {
	return math3d.Perspective(c.FOV, float64(width)/float64(height), c.Near, c.Far)
}

// Frustum returns the view frustum for a width x height target.
func (c *Camera) Frustum(width, height int) Frustum {
	return NewFrustumFromMatrix(c.ProjectionMatrix(width, height).Mul(c.ViewMatrix()))
}

// MoveForward moves the camera forward (or backward if negative).
func (c *Camera) MoveForward(distance float64) {
	c.Position = c.Position.Add(c.Forward().Scale(distance))
	c.viewDirty = true
}

// Rotate rotates the camera by the given angles (in radians).
func (c *Camera) Rotate(deltaPitch, deltaYaw, deltaRoll float64) {
	c.Pitch += deltaPitch
	c.Yaw += deltaYaw
	c.Roll += deltaRoll

	const maxPitch = math.Pi/2 - 0.01
	c.Pitch = min(max(c.Pitch, -maxPitch), maxPitch)

	c.viewDirty = true
}

// LookAt makes the camera look at a target point.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()

	c.Pitch = math.Asin(dir.Y)
	c.Yaw = math.Atan2(-dir.X, -dir.Z)
	c.Roll = 0

	c.viewDirty = true
}

// Project maps a world point onto a width x height framebuffer. The
// returned vertex carries Z = 1/depth, the inverse depth the rasterizer
// interpolates and tests. ok is false when the point is not beyond the near
// plane.
func (c *Camera) Project(world math3d.Vec3, width, height int) (v render.Vertex, ok bool) {
	p := c.ViewMatrix().MulVec3(world)
	depth := -p.Z
	if depth <= c.Near {
		return render.Vertex{}, false
	}
	scale := float64(height) / 2 / math.Tan(c.FOV/2)
	inv := 1 / depth
	v.X = p.X*scale*inv + float64(width)/2
	v.Y = int(math.Floor(-p.Y*scale*inv + float64(height)/2))
	v.Z = inv
	return v, true
}
