package shade

import "github.com/taigrr/scanline/pkg/math3d"

// VertexInput is the per-vertex data a plan may read during the vertex tier.
type VertexInput struct {
	X      float64
	Y      int
	Z      float64
	Normal math3d.Vec3
	U, V   float64
}

// Inputs is everything a triangle fill can read besides the values the rules
// themselves define. The caller fills it once per triangle.
type Inputs struct {
	Light          math3d.Vec3 // unit, from the surface toward the light
	LightIntensity float64
	LightAmbient   float64

	Diffuse float64
	Ambient float64
	Color   uint32 // 0xRRGGBB

	FaceNormal math3d.Vec3

	Texels    []uint32
	TexWidth  int
	TexHeight int

	Vertices [3]VertexInput
}

// Frame is the evaluation state of one plan: a value slot per defined name
// plus the inputs of the triangle being filled.
//
// Per-vertex names own a single slot. While the vertex tier runs it holds the
// current vertex's value; while the pixel tier runs it holds the value
// interpolated to the current pixel.
type Frame struct {
	Vals []float64
	In   *Inputs
	vert int
}
