package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
)

// ErrNoMesh is returned when adding a model without geometry.
var ErrNoMesh = errors.New("scene: model has no mesh")

// Stats counts what the last Render did.
type Stats struct {
	Models       int // models inside the view frustum
	CulledModels int // models outside the view frustum
	Triangles    int // triangles handed to the rasterizer
	BackFaces    int
	NearRejected int // triangles with a vertex at or before the near plane
}

// World owns a framebuffer and the models drawn into it.
type World struct {
	Light      *render.Light
	Background uint32

	// DisableBackfaceCulling draws triangles facing away from the camera.
	DisableBackfaceCulling bool

	fb     *render.Framebuffer
	raster *render.Rasterizer
	bands  *render.Bands
	models []*Model
	jobs   []render.Job
	stats  Stats
}

// NewWorld creates a world rendering into a width x height framebuffer.
// With workers > 1 the framebuffer is split into that many row bands filled
// concurrently.
func NewWorld(width, height, workers int) *World {
	fb := render.NewFramebuffer(width, height)
	w := &World{
		Light:      render.NewLight(math3d.V3(0.5, 1, 1), 1, 0.2),
		Background: render.ColorBlack,
		fb:         fb,
	}
	if workers > 1 {
		w.bands = render.NewBands(fb, workers)
	} else {
		w.raster = render.NewRasterizer(fb)
	}
	return w
}

// Framebuffer returns the render target.
func (w *World) Framebuffer() *render.Framebuffer { return w.fb }

// Models returns the models in drawing order.
func (w *World) Models() []*Model { return w.models }

// Stats returns the statistics of the last Render.
func (w *World) Stats() Stats { return w.stats }

// Add registers m and assigns its owner ID.
func (w *World) Add(m *Model) (render.OwnerID, error) {
	if m.Mesh == nil {
		return render.NoOwner, ErrNoMesh
	}
	if m.Material == nil {
		return render.NoOwner, fmt.Errorf("model %q: no material", m.Name)
	}
	if err := m.Material.Validate(); err != nil {
		return render.NoOwner, fmt.Errorf("model %q: %w", m.Name, err)
	}
	w.models = append(w.models, m)
	m.id = render.OwnerID(len(w.models))
	Logger().Info("model added", "name", m.Name, "id", m.id,
		"triangles", m.Mesh.TriangleCount(), "mode", m.Material.Mode)
	return m.id, nil
}

// ModelAt returns the model that drew pixel (x, y) in the last frame, or
// nil.
func (w *World) ModelAt(x, y int) *Model {
	id := w.fb.OwnerAt(x, y)
	if id == render.NoOwner || int(id) > len(w.models) {
		return nil
	}
	return w.models[id-1]
}

// Resize changes the framebuffer size.
func (w *World) Resize(width, height int) {
	if width == w.fb.Width && height == w.fb.Height {
		return
	}
	w.fb.Resize(width, height)
	if w.bands != nil {
		w.bands.Layout()
	}
	Logger().Info("framebuffer resized", "width", width, "height", height)
}

// Render clears the framebuffer and draws every model as seen from cam.
func (w *World) Render(ctx context.Context, cam *Camera) error {
	w.fb.Clear(w.Background)
	w.jobs = w.jobs[:0]
	w.stats = Stats{}
	if w.fb.Width <= 0 || w.fb.Height <= 0 {
		return nil
	}

	frustum := cam.Frustum(w.fb.Width, w.fb.Height)
	for _, m := range w.models {
		if !frustum.IntersectAABB(m.Bounds()) {
			w.stats.CulledModels++
			continue
		}
		w.stats.Models++
		w.project(m, cam)
	}
	w.stats.Triangles = len(w.jobs)

	Logger().Debug("frame",
		slog.Int("models", w.stats.Models),
		slog.Int("culled_models", w.stats.CulledModels),
		slog.Int("triangles", w.stats.Triangles),
		slog.Int("back_faces", w.stats.BackFaces),
		slog.Int("near_rejected", w.stats.NearRejected))

	if w.bands != nil {
		if err := w.bands.Draw(ctx, w.Light, w.jobs); err != nil {
			Logger().Warn("frame interrupted", "err", err)
			return fmt.Errorf("render: %w", err)
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	w.raster.DrawAll(w.Light, w.jobs)
	return nil
}

// project appends the visible triangles of m to the job list.
func (w *World) project(m *Model, cam *Camera) {
	mesh := m.Mesh
	width, height := w.fb.Width, w.fb.Height
	hasNormals := mesh.HasNormals()
	for _, f := range mesh.Faces {
		var (
			pos [3]math3d.Vec3
			tri render.Triangle
		)
		for k, vi := range f.V {
			pos[k] = m.Transform.MulVec3(mesh.Vertices[vi].Position)
		}
		normal := pos[1].Sub(pos[0]).Cross(pos[2].Sub(pos[0])).Normalize()
		if !w.DisableBackfaceCulling && normal.Dot(pos[0].Sub(cam.Position)) >= 0 {
			w.stats.BackFaces++
			continue
		}

		visible := true
		for k, vi := range f.V {
			v, ok := cam.Project(pos[k], width, height)
			if !ok {
				visible = false
				break
			}
			mv := &mesh.Vertices[vi]
			v.Normal = m.Transform.MulVec3Dir(mv.Normal).Normalize()
			tri.V[k] = v
			tri.UV[k] = render.UVCoord{U: mv.UV.X, V: mv.UV.Y}
		}
		if !visible {
			w.stats.NearRejected++
			continue
		}
		if !hasNormals {
			for k := range tri.V {
				tri.V[k].Normal = normal
			}
		}
		tri.Normal = normal
		tri.SortByY()
		w.jobs = append(w.jobs, render.Job{Tri: tri, Mat: m.Material, Owner: m.id})
	}
}
