package render

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/shade"
)

var toViewer = math3d.V3(0, 0, 1)

// newTestMaterial returns a material with no ambient term, so a surface
// facing the light shows its exact base color.
func newTestMaterial(t testing.TB, mode shade.Mode, color uint32) *Material {
	t.Helper()
	var tex *Texture
	if mode.IsTextured() {
		tex = NewCheckerTexture(8, 8, 2, 0x336699, 0xCC9933)
	}
	mat, err := NewMaterial(mode, tex)
	if err != nil {
		t.Fatal(err)
	}
	mat.Color = color
	mat.Ambient = 0
	return mat
}

func newTestLight() *Light {
	return NewLight(toViewer, 1, 0)
}

// tri builds a triangle facing the light with every vertex normal facing it
// too, sorted by Y.
func tri(ax float64, ay int, az, bx float64, by int, bz, cx float64, cy int, cz float64) *Triangle {
	t := &Triangle{
		V: [3]Vertex{
			{X: ax, Y: ay, Z: az, Normal: toViewer},
			{X: bx, Y: by, Z: bz, Normal: toViewer},
			{X: cx, Y: cy, Z: cz, Normal: toViewer},
		},
		UV:     [3]UVCoord{{0, 0}, {1, 0}, {0, 1}},
		Normal: toViewer,
	}
	t.SortByY()
	return t
}

func snapshot(fb *Framebuffer) ([]uint32, []float64, []OwnerID) {
	return slices.Clone(fb.Color), slices.Clone(fb.Depth), slices.Clone(fb.Owner)
}

func TestDrawTriangleSmallFlat(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	fb.Clear(ColorBlack)
	r := NewRasterizer(fb)
	mat := newTestMaterial(t, shade.ModeFlat, 0xFF0000)

	r.DrawTriangle(tri(0, 0, 1, 2, 0, 1, 0, 2, 1), mat, newTestLight(), 7)

	covered := map[[2]int]bool{{0, 0}: true, {1, 0}: true, {0, 1}: true}
	for y := range fb.Height {
		for x := range fb.Width {
			c, z, o := fb.GetPixel(x, y), fb.DepthAt(x, y), fb.OwnerAt(x, y)
			if covered[[2]int{x, y}] {
				if c != 0xFFFF0000 || z != 1 || o != 7 {
					t.Errorf("(%d,%d) = %#08x z=%v owner=%d, want 0xffff0000 z=1 owner=7", x, y, c, z, o)
				}
				continue
			}
			if c != Opaque || z != 0 || o != NoOwner {
				t.Errorf("(%d,%d) should be untouched, got %#08x z=%v owner=%d", x, y, c, z, o)
			}
		}
	}
}

// coverage returns the pixels owned by owner.
func coverage(fb *Framebuffer, owner OwnerID) map[[2]int]bool {
	got := make(map[[2]int]bool)
	for y := range fb.Height {
		for x := range fb.Width {
			if fb.OwnerAt(x, y) == owner {
				got[[2]int{x, y}] = true
			}
		}
	}
	return got
}

func TestDrawTriangleFlatTop(t *testing.T) {
	tests := []struct {
		name string
		tr   *Triangle
		want [][2]int
	}{
		{
			// c lies right of b: left edge x = 5y, right edge x = 2 + 4y.
			name: "c right of b",
			tr:   tri(0, 0, 1, 2, 0, 1, 10, 2, 1),
			want: [][2]int{{0, 0}, {1, 0}, {5, 1}},
		},
		{
			name: "b left of a",
			tr:   tri(2, 0, 1, 0, 0, 1, 10, 2, 1),
			want: [][2]int{{0, 0}, {1, 0}, {5, 1}},
		},
		{
			// left edge x = 8 - 4y, right edge x = 10 - 5y.
			name: "c left of a",
			tr:   tri(8, 0, 1, 10, 0, 1, 0, 2, 1),
			want: [][2]int{{8, 0}, {9, 0}, {4, 1}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := NewFramebuffer(16, 4)
			fb.Clear(ColorBlack)
			r := NewRasterizer(fb)
			r.DrawTriangle(tc.tr, newTestMaterial(t, shade.ModeFlat, 0xFFFFFF), newTestLight(), 1)

			got := coverage(fb, 1)
			if len(got) != len(tc.want) {
				t.Errorf("covered %d pixels, want %d: %v", len(got), len(tc.want), got)
			}
			for _, p := range tc.want {
				if !got[p] {
					t.Errorf("pixel %v not covered", p)
				}
			}
		})
	}
}

func TestSharedEdgeCoveredOnce(t *testing.T) {
	const n = 10
	// A quad split along its diagonal into two triangles.
	upper := tri(0, 0, 1, n, 0, 1, 0, n, 1)
	lower := tri(n, 0, 1, n, n, 1, 0, n, 1)
	mat := newTestMaterial(t, shade.ModeFlat, 0xFFFFFF)

	draw := func(tr *Triangle) map[[2]int]bool {
		fb := NewFramebuffer(n, n)
		fb.Clear(ColorBlack)
		NewRasterizer(fb).DrawTriangle(tr, mat, newTestLight(), 1)
		return coverage(fb, 1)
	}
	a, b := draw(upper), draw(lower)
	for p := range a {
		if b[p] {
			t.Errorf("pixel %v covered by both triangles", p)
		}
	}
	if len(a)+len(b) != n*n {
		t.Errorf("triangles cover %d+%d pixels, want %d in total", len(a), len(b), n*n)
	}
}

func TestDrawTriangleOutOfBounds(t *testing.T) {
	for _, mode := range shade.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			fb := NewFramebuffer(32, 24)
			fb.Clear(ColorBlack)
			r := NewRasterizer(fb)
			mat := newTestMaterial(t, mode, 0x00FF00)
			light := newTestLight()

			r.DrawTriangle(tri(-50, -20, 0.5, 100, 10, 0.5, -30, 200, 0.5), mat, light, 1)
			painted := 0
			for _, o := range fb.Owner {
				if o == 1 {
					painted++
				}
			}
			if painted == 0 {
				t.Error("a triangle covering the screen painted nothing")
			}

			before, _, _ := snapshot(fb)
			r.DrawTriangle(tri(-50, -40, 0.9, -10, -30, 0.9, -20, -5, 0.9), mat, light, 2)
			r.DrawTriangle(tri(40, 30, 0.9, 90, 35, 0.9, 60, 80, 0.9), mat, light, 2)
			if !slices.Equal(before, fb.Color) {
				t.Error("an off-screen triangle changed the framebuffer")
			}
		})
	}
}

func TestDrawTriangleIdempotent(t *testing.T) {
	for _, mode := range shade.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			fb := NewFramebuffer(40, 30)
			fb.Clear(ColorSky)
			r := NewRasterizer(fb)
			mat := newTestMaterial(t, mode, 0x808080)
			tr := tri(3.5, 2, 0.5, 35, 10, 0.25, 10, 28, 0.75)

			r.DrawTriangle(tr, mat, newTestLight(), 3)
			c1, d1, o1 := snapshot(fb)
			r.DrawTriangle(tr, mat, newTestLight(), 3)
			c2, d2, o2 := snapshot(fb)
			if !slices.Equal(c1, c2) || !slices.Equal(d1, d2) || !slices.Equal(o1, o2) {
				t.Error("drawing the same triangle twice changed the framebuffer")
			}
		})
	}
}

func TestPainterIndependence(t *testing.T) {
	for _, mode := range shade.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			near := tri(2, 1, 0.5, 30, 6, 0.5, 8, 25, 0.5)
			far := tri(0, 4, 0.25, 28, 2, 0.25, 20, 29, 0.25)
			matA := newTestMaterial(t, mode, 0xFF0000)
			matB := newTestMaterial(t, mode, 0x0000FF)

			draw := func(first, second *Triangle, m1, m2 *Material, o1, o2 OwnerID) *Framebuffer {
				fb := NewFramebuffer(32, 32)
				fb.Clear(ColorBlack)
				r := NewRasterizer(fb)
				r.DrawTriangle(first, m1, newTestLight(), o1)
				r.DrawTriangle(second, m2, newTestLight(), o2)
				return fb
			}
			ab := draw(near, far, matA, matB, 1, 2)
			ba := draw(far, near, matB, matA, 2, 1)
			if !slices.Equal(ab.Color, ba.Color) || !slices.Equal(ab.Owner, ba.Owner) {
				t.Error("result depends on draw order")
			}
			if !slices.Contains(ab.Owner, 1) || !slices.Contains(ab.Owner, 2) {
				t.Error("both triangles should be visible somewhere")
			}
		})
	}
}

func TestDepthOrder(t *testing.T) {
	tests := []struct {
		name           string
		order          DepthOrder
		first, second  float64
		third          float64
		wantAfterThird OwnerID
	}{
		{"inverse greater wins", InverseDepth, 0.2, 0.5, 0.1, 2},
		{"linear smaller wins", LinearDepth, 5, 2, 7, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := NewFramebufferOrdered(8, 8, tc.order)
			fb.Clear(ColorBlack)
			r := NewRasterizer(fb)
			mat := newTestMaterial(t, shade.ModeFlat, 0xFFFFFF)
			full := func(z float64) *Triangle { return tri(-1, 0, z, 20, 0, z, -1, 20, z) }

			r.DrawTriangle(full(tc.first), mat, newTestLight(), 1)
			if got := fb.OwnerAt(3, 3); got != 1 {
				t.Fatalf("owner after first = %d, want 1", got)
			}
			r.DrawTriangle(full(tc.second), mat, newTestLight(), 2)
			if got := fb.OwnerAt(3, 3); got != 2 {
				t.Fatalf("owner after nearer = %d, want 2", got)
			}
			r.DrawTriangle(full(tc.third), mat, newTestLight(), 3)
			if got := fb.OwnerAt(3, 3); got != tc.wantAfterThird {
				t.Errorf("owner after farther = %d, want %d", got, tc.wantAfterThird)
			}
			if got := fb.DepthAt(3, 3); got != tc.second {
				t.Errorf("depth = %v, want %v", got, tc.second)
			}
		})
	}
}

func TestDegenerateTriangle(t *testing.T) {
	for _, mode := range shade.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			fb := NewFramebuffer(16, 16)
			fb.Clear(ColorBlack)
			r := NewRasterizer(fb)
			mat := newTestMaterial(t, mode, 0xFFFFFF)

			before, _, _ := snapshot(fb)
			r.DrawTriangle(tri(2, 5, 1, 9, 5, 1, 14, 5, 1), mat, newTestLight(), 1)
			if !slices.Equal(before, fb.Color) {
				t.Error("a zero-height triangle should draw nothing")
			}
			// Collinear across rows: no panic, at most a thin line.
			r.DrawTriangle(tri(1, 1, 1, 5, 5, 1, 9, 9, 1), mat, newTestLight(), 1)
			r.DrawTriangle(tri(4, 4, 1, 4, 4, 1, 4, 4, 1), mat, newTestLight(), 1)
		})
	}
}

func TestLeftClipOffset(t *testing.T) {
	fb := NewFramebuffer(16, 16)
	fb.Clear(ColorBlack)
	r := NewRasterizer(fb)
	mat := newTestMaterial(t, shade.ModeFlat, 0xFFFFFF)

	// Row 0 spans x in [-10, 10] with z going 0.2 -> 1.0.
	r.DrawTriangle(tri(-10, 0, 0.2, 10, 0, 1.0, -10, 10, 0.2), mat, newTestLight(), 1)
	if got, want := fb.DepthAt(0, 0), 0.6; math.Abs(got-want) > 1e-9 {
		t.Errorf("depth at column 0 = %v, want %v", got, want)
	}
	if got, want := fb.DepthAt(5, 0), 0.8; math.Abs(got-want) > 1e-9 {
		t.Errorf("depth at column 5 = %v, want %v", got, want)
	}
}

func TestSmoothShading(t *testing.T) {
	fb := NewFramebuffer(32, 32)
	fb.Clear(ColorBlack)
	r := NewRasterizer(fb)
	mat := newTestMaterial(t, shade.ModeSmooth, 0xFF0000)

	edgeOn := math3d.V3(1, 0, 0)
	tr := &Triangle{
		V: [3]Vertex{
			{X: 0, Y: 0, Z: 1, Normal: toViewer},
			{X: 30, Y: 0, Z: 1, Normal: edgeOn},
			{X: 0, Y: 30, Z: 1, Normal: edgeOn},
		},
		Normal: toViewer,
	}
	r.DrawTriangle(tr, mat, newTestLight(), 1)

	if got := fb.GetPixel(0, 0); got != 0xFFFF0000 {
		t.Errorf("lit corner = %#08x, want 0xffff0000", got)
	}
	if got := fb.GetPixel(10, 0) >> 16 & 0xFF; got >= 0xFF || got == 0 {
		t.Errorf("red at (10,0) = %#02x, want strictly between 0 and 0xff", got)
	}
	if a, b := fb.GetPixel(5, 5)>>16&0xFF, fb.GetPixel(12, 12)>>16&0xFF; b >= a {
		t.Errorf("red should fall away from the lit corner: (5,5)=%#02x (12,12)=%#02x", a, b)
	}
}

func TestPerspectiveCorrectTexture(t *testing.T) {
	const w = 64
	tex := NewTexture(256, 1)
	for i := range tex.Pixels {
		tex.Pixels[i] = uint32(i)
	}
	mat, err := NewMaterial(shade.ModeFlatTextured, tex)
	if err != nil {
		t.Fatal(err)
	}
	mat.Ambient = 0

	fb := NewFramebuffer(w, w)
	fb.Clear(ColorBlack)
	r := NewRasterizer(fb)

	// Left edge at z=1 (u=0), right vertex of row 0 recedes to z=0.25 (u=1).
	tr := &Triangle{
		V: [3]Vertex{
			{X: 0, Y: 0, Z: 1, Normal: toViewer},
			{X: w, Y: 0, Z: 0.25, Normal: toViewer},
			{X: 0, Y: w, Z: 1, Normal: toViewer},
		},
		UV:     [3]UVCoord{{0, 0}, {1, 0}, {0, 0}},
		Normal: toViewer,
	}
	r.DrawTriangle(tr, mat, newTestLight(), 1)

	for x := range w {
		s := float64(x) / w
		u := s * 0.25 / (1 - 0.75*s)
		want := int(math.Trunc(u * 255))
		got := int(fb.GetPixel(x, 0) & 0xFF)
		if got < want-1 || got > want+1 {
			t.Errorf("column %d: texel %d, want %d", x, got, want)
		}
	}

	half := fb.Width / 2
	mid := int(fb.GetPixel(half, 0) & 0xFF)
	if affine := int(float64(half) / float64(fb.Width) * 255); mid >= affine-10 {
		t.Errorf("mid-span texel %d should lag the affine texel %d", mid, affine)
	}
}

func TestClipRows(t *testing.T) {
	fb := NewFramebuffer(10, 10)
	fb.Clear(ColorBlack)
	r := NewRasterizer(fb)
	r.ClipRows(3, 6)
	mat := newTestMaterial(t, shade.ModeSmooth, 0xFFFFFF)

	r.DrawTriangle(tri(-5, -5, 1, 30, -5, 1, -5, 30, 1), mat, newTestLight(), 1)
	for y := range fb.Height {
		want := NoOwner
		if y >= 3 && y < 6 {
			want = 1
		}
		if got := fb.OwnerAt(0, y); got != want {
			t.Errorf("row %d owner = %d, want %d", y, got, want)
		}
	}
}

func randomJobs(t testing.TB, n, w, h int) []Job {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	var mats []*Material
	for i, mode := range shade.Modes() {
		mats = append(mats, newTestMaterial(t, mode, RGB(uint8(40*i+60), 128, uint8(200-30*i))))
	}
	point := func() (float64, int) {
		return rng.Float64()*float64(w+20) - 10, rng.IntN(h+20) - 10
	}
	jobs := make([]Job, n)
	for i := range jobs {
		ax, ay := point()
		bx, by := point()
		cx, cy := point()
		tr := tri(ax, ay, 0.1+rng.Float64(), bx, by, 0.1+rng.Float64(), cx, cy, 0.1+rng.Float64())
		tr.UV = [3]UVCoord{{rng.Float64(), rng.Float64()}, {rng.Float64(), rng.Float64()}, {rng.Float64(), rng.Float64()}}
		jobs[i] = Job{Tri: *tr, Mat: mats[i%len(mats)], Owner: OwnerID(i + 1)}
	}
	return jobs
}

func TestBandsMatchSingleRasterizer(t *testing.T) {
	const w, h = 48, 37
	jobs := randomJobs(t, 200, w, h)
	light := newTestLight()

	single := NewFramebuffer(w, h)
	single.Clear(ColorSky)
	NewRasterizer(single).DrawAll(light, jobs)

	for _, n := range []int{1, 3, 8, 64} {
		fb := NewFramebuffer(w, h)
		fb.Clear(ColorSky)
		if err := NewBands(fb, n).Draw(context.Background(), light, jobs); err != nil {
			t.Fatalf("%d bands: %v", n, err)
		}
		if !slices.Equal(single.Color, fb.Color) || !slices.Equal(single.Depth, fb.Depth) || !slices.Equal(single.Owner, fb.Owner) {
			t.Errorf("%d bands differ from a single rasterizer", n)
		}
	}
}

func TestBandsCancelled(t *testing.T) {
	fb := NewFramebuffer(16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewBands(fb, 2).Draw(ctx, newTestLight(), randomJobs(t, 10, 16, 16))
	if err == nil {
		t.Error("Draw with a cancelled context should fail")
	}
}

func TestNewRasterizerWithTable(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	if _, err := NewRasterizerWithTable(fb, shade.DefaultTable); err != nil {
		t.Fatalf("default table: %v", err)
	}
	if _, err := NewRasterizerWithTable(fb, shade.DefaultTable[:3]); err == nil {
		t.Error("a table without positions should be rejected")
	}
}

func BenchmarkDrawTriangle(b *testing.B) {
	for _, mode := range shade.Modes() {
		b.Run(mode.String(), func(b *testing.B) {
			fb := NewFramebuffer(320, 200)
			r := NewRasterizer(fb)
			mat := newTestMaterial(b, mode, 0xAAAAAA)
			light := newTestLight()
			tr := tri(10, 5, 0.5, 300, 60, 0.25, 60, 195, 0.75)
			for b.Loop() {
				fb.Clear(ColorBlack)
				r.DrawTriangle(tr, mat, light, 1)
			}
		})
	}
}

func BenchmarkBands(b *testing.B) {
	const w, h = 320, 200
	jobs := randomJobs(b, 2000, w, h)
	light := newTestLight()
	fb := NewFramebuffer(w, h)
	bands := NewBands(fb, 0)
	for b.Loop() {
		fb.Clear(ColorBlack)
		if err := bands.Draw(context.Background(), light, jobs); err != nil {
			b.Fatal(err)
		}
	}
}
