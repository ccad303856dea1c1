package render

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// cancelCheck is how many triangles a band fills between context checks.
const cancelCheck = 256

// Bands splits a framebuffer into horizontal bands and fills each band on
// its own goroutine. Every band owns a Rasterizer clipped to its rows, so no
// pixel has more than one writer.
type Bands struct {
	fb    *Framebuffer
	bands []*Rasterizer
}

// NewBands creates n bands over fb; n <= 0 uses GOMAXPROCS.
func NewBands(fb *Framebuffer, n int) *Bands {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	ps := defaultPlans()
	b := &Bands{fb: fb, bands: make([]*Rasterizer, n)}
	for i := range b.bands {
		b.bands[i] = newRasterizer(fb, ps)
	}
	b.Layout()
	return b
}

// Len returns the number of bands.
func (b *Bands) Len() int { return len(b.bands) }

// Layout recomputes band rows from the framebuffer height. Call it after
// resizing the framebuffer.
func (b *Bands) Layout() {
	n := len(b.bands)
	h := b.fb.Height
	for i, r := range b.bands {
		r.ClipRows(i*h/n, (i+1)*h/n)
	}
}

// Draw fills every job into every band concurrently. It returns the
// context's error if cancelled before all bands finish.
func (b *Bands) Draw(ctx context.Context, light *Light, jobs []Job) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range b.bands {
		top, bottom := r.Rows()
		if top >= bottom {
			continue
		}
		g.Go(func() error {
			for i := range jobs {
				if i%cancelCheck == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				j := &jobs[i]
				if j.Tri.V[2].Y <= top || j.Tri.V[0].Y >= bottom {
					continue
				}
				r.DrawTriangle(&j.Tri, j.Mat, light, j.Owner)
			}
			return nil
		})
	}
	return g.Wait()
}
