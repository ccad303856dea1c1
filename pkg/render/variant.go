package render

import "github.com/taigrr/scanline/pkg/shade"

// variant fills triangles of one mode. It owns the frame its plan runs in
// and every scratch buffer the span walk needs, so a fill allocates nothing.
type variant struct {
	plan  *shade.Plan
	in    shade.Inputs
	frame *shade.Frame

	// attrs are the slots walked along edges and spans: x first, then the
	// plan's varying values.
	attrs []int
	zi    int // index of z within attrs

	verts [3][]float64
	ys    [3]int

	dab, dac, dbc []float64
	left, right   []float64
	cur, step     []float64
}

func newVariant(p *shade.Plan) *variant {
	v := &variant{plan: p}
	v.frame = p.NewFrame(&v.in)
	v.attrs = append([]int{p.X}, p.Varying...)
	for i, s := range v.attrs {
		if s == p.Z {
			v.zi = i
		}
	}

	n := len(v.attrs)
	buf := make([]float64, 10*n)
	next := func() []float64 {
		s := buf[:n:n]
		buf = buf[n:]
		return s
	}
	for i := range v.verts {
		v.verts[i] = next()
	}
	v.dab, v.dac, v.dbc = next(), next(), next()
	v.left, v.right = next(), next()
	v.cur, v.step = next(), next()
	return v
}

func (v *variant) bind(tri *Triangle, mat *Material, light *Light) {
	in := &v.in
	in.Light = light.Dir
	in.LightIntensity = light.Intensity
	in.LightAmbient = light.Ambient
	in.Diffuse = mat.Diffuse
	in.Ambient = mat.Ambient
	in.Color = mat.Color
	in.FaceNormal = tri.Normal
	if t := mat.Texture; t != nil {
		in.Texels, in.TexWidth, in.TexHeight = t.Pixels, t.Width, t.Height
	} else {
		in.Texels, in.TexWidth, in.TexHeight = nil, 0, 0
	}
	for i := range in.Vertices {
		vt := &tri.V[i]
		in.Vertices[i] = shade.VertexInput{
			X:      vt.X,
			Y:      vt.Y,
			Z:      vt.Z,
			Normal: vt.Normal,
			U:      tri.UV[i].U,
			V:      tri.UV[i].V,
		}
	}
}

// slope sets d to the per-row change from `from` to `to`. Edges with no
// height use the plain difference; no row ever steps along them.
func slope(d, from, to []float64, fromY, toY int) {
	if fromY == toY {
		for k := range d {
			d[k] = to[k] - from[k]
		}
		return
	}
	dy := float64(toY - fromY)
	for k := range d {
		d[k] = (to[k] - from[k]) / dy
	}
}

// draw fills tri into fb, touching only rows in [top, bottom).
func (v *variant) draw(fb *Framebuffer, tri *Triangle, mat *Material, light *Light, owner OwnerID, top, bottom int) {
	p := v.plan
	f := v.frame
	v.bind(tri, mat, light)

	p.RunTriangle(f)
	for i := range 3 {
		p.RunVertex(f, i)
		for k, s := range v.attrs {
			v.verts[i][k] = f.Vals[s]
		}
		v.ys[i] = int(f.Vals[p.Y])
	}

	a, b, c := v.verts[0], v.verts[1], v.verts[2]
	ay, by, cy := v.ys[0], v.ys[1], v.ys[2]
	slope(v.dab, a, b, ay, by)
	slope(v.dac, a, c, ay, cy)
	slope(v.dbc, b, c, by, cy)

	// b lies right of the long edge ac.
	toRight := b[0] > a[0]+float64(by-ay)*v.dac[0]

	if toRight {
		v.walk(fb, owner, max(ay, top), min(by, bottom), a, v.dac, ay, a, v.dab, ay)
		v.walk(fb, owner, max(by, top), min(cy, bottom), a, v.dac, ay, b, v.dbc, by)
	} else {
		v.walk(fb, owner, max(ay, top), min(by, bottom), a, v.dab, ay, a, v.dac, ay)
		v.walk(fb, owner, max(by, top), min(cy, bottom), b, v.dbc, by, a, v.dac, ay)
	}
}

// walk steps the left and right edges over rows [y0, y1). Each row's edge
// values are taken from the edge origin rather than accumulated, so a band
// starting mid-triangle sees exactly the values a full walk would.
func (v *variant) walk(fb *Framebuffer, owner OwnerID, y0, y1 int,
	lo, ld []float64, loy int, ro, rd []float64, roy int,
) {
	for y := y0; y < y1; y++ {
		lt, rt := float64(y-loy), float64(y-roy)
		for k := range v.left {
			v.left[k] = lo[k] + lt*ld[k]
			v.right[k] = ro[k] + rt*rd[k]
		}
		v.span(fb, owner, y)
	}
}

// span fills the columns [sx, ex) of row y between the current edges,
// clipped to the framebuffer. Triangles sharing an edge never both cover
// a pixel on it.
func (v *variant) span(fb *Framebuffer, owner OwnerID, y int) {
	sx, ex := v.left[0], v.right[0]
	if ex <= 0 {
		return
	}
	x0 := int(max(sx, 0))
	x1 := int(min(ex, float64(fb.Width)))
	if x0 >= x1 {
		return
	}

	width := ex - sx
	for k := 1; k < len(v.cur); k++ {
		d := 0.0
		if width != 0 {
			d = (v.right[k] - v.left[k]) / width
		}
		v.step[k] = d
		v.cur[k] = v.left[k]
		if sx < 0 {
			v.cur[k] -= sx * d
		}
	}

	p := v.plan
	f := v.frame
	shaded := len(p.Pixel) > 0
	if shaded {
		f.Vals[p.Y] = float64(y)
	}

	order := fb.order
	row := y * fb.Width
	for x := x0; x < x1; x++ {
		i := row + x
		z := v.cur[v.zi]
		if order.Nearer(z, fb.Depth[i]) {
			if shaded {
				for k := 1; k < len(v.attrs); k++ {
					f.Vals[v.attrs[k]] = v.cur[k]
				}
				f.Vals[p.X] = float64(x)
				p.RunPixel(f)
			}
			fb.Color[i] = uint32(f.Vals[p.Color])&0xFFFFFF | Opaque
			fb.Depth[i] = z
			fb.Owner[i] = owner
		}
		for k := 1; k < len(v.cur); k++ {
			v.cur[k] += v.step[k]
		}
	}
}
