package render

import (
	"fmt"

	"github.com/taigrr/scanline/pkg/shade"
)

// Rasterizer fills triangles into a framebuffer using one specialized
// variant per mode. A Rasterizer is not safe for concurrent use; see Bands.
type Rasterizer struct {
	fb       *Framebuffer
	variants [shade.NumModes]*variant

	clipped     bool
	top, bottom int
}

// NewRasterizer creates a rasterizer for shade.DefaultTable.
func NewRasterizer(fb *Framebuffer) *Rasterizer {
	return newRasterizer(fb, defaultPlans())
}

// NewRasterizerWithTable creates a rasterizer for a custom rule table. It
// fails if the table does not compile for every mode.
func NewRasterizerWithTable(fb *Framebuffer, table shade.Table) (*Rasterizer, error) {
	plans, err := specializeAll(table)
	if err != nil {
		return nil, err
	}
	return newRasterizer(fb, plans), nil
}

type plans [shade.NumModes]*shade.Plan

func defaultPlans() plans {
	var ps plans
	for _, m := range shade.Modes() {
		ps[m.Index()] = shade.MustSpecialize(shade.DefaultTable, m)
	}
	return ps
}

func specializeAll(table shade.Table) (plans, error) {
	var ps plans
	for _, m := range shade.Modes() {
		p, err := shade.Specialize(table, m)
		if err != nil {
			return plans{}, fmt.Errorf("specialize %s: %w", m, err)
		}
		ps[m.Index()] = p
	}
	return ps, nil
}

func newRasterizer(fb *Framebuffer, ps plans) *Rasterizer {
	r := &Rasterizer{fb: fb}
	for i, p := range ps {
		r.variants[i] = newVariant(p)
	}
	return r
}

// Framebuffer returns the target framebuffer.
func (r *Rasterizer) Framebuffer() *Framebuffer { return r.fb }

// Plan returns the compiled plan used for mode.
func (r *Rasterizer) Plan(mode shade.Mode) *shade.Plan {
	return r.variants[mode.Index()].plan
}

// ClipRows restricts all writes to rows [top, bottom).
func (r *Rasterizer) ClipRows(top, bottom int) {
	r.clipped = true
	r.top, r.bottom = top, bottom
}

// Rows returns the writable row range, within the framebuffer.
func (r *Rasterizer) Rows() (top, bottom int) {
	top, bottom = 0, r.fb.Height
	if r.clipped {
		top, bottom = max(r.top, 0), min(r.bottom, r.fb.Height)
	}
	return top, bottom
}

// DrawTriangle fills tri. Pixels whose depth passes the framebuffer's depth
// test get the shaded color, the depth and owner; all others are left
// untouched. The triangle's vertices must be sorted by Y and mat must be
// valid.
func (r *Rasterizer) DrawTriangle(tri *Triangle, mat *Material, light *Light, owner OwnerID) {
	top, bottom := r.Rows()
	if top >= bottom || r.fb.Width <= 0 {
		return
	}
	r.variants[mat.Mode.Index()].draw(r.fb, tri, mat, light, owner, top, bottom)
}

// Job is one triangle of a batch.
type Job struct {
	Tri   Triangle
	Mat   *Material
	Owner OwnerID
}

// DrawAll fills every job in order.
func (r *Rasterizer) DrawAll(light *Light, jobs []Job) {
	for i := range jobs {
		j := &jobs[i]
		r.DrawTriangle(&j.Tri, j.Mat, light, j.Owner)
	}
}
