package render

import "github.com/taigrr/scanline/pkg/math3d"

// Vertex is a projected vertex: X is the screen column (sub-pixel), Y the
// screen row and Z the depth value stored in the framebuffer, which for
// textured modes must also be the perspective divisor (1/depth).
type Vertex struct {
	X      float64
	Y      int
	Z      float64
	Normal math3d.Vec3 // unit, same space as the light direction
}

// UVCoord is a texture coordinate in [0, 1]; (0, 0) is the top-left texel.
type UVCoord struct {
	U, V float64
}

// Triangle is a screen-space triangle. DrawTriangle requires
// V[0].Y <= V[1].Y <= V[2].Y; UV[i] belongs to V[i].
type Triangle struct {
	V      [3]Vertex
	UV     [3]UVCoord
	Normal math3d.Vec3 // face normal, used for flat lighting
}

// SortByY orders the vertices, with their UVs, by ascending Y.
func (t *Triangle) SortByY() {
	if t.V[0].Y > t.V[1].Y {
		t.swap(0, 1)
	}
	if t.V[1].Y > t.V[2].Y {
		t.swap(1, 2)
	}
	if t.V[0].Y > t.V[1].Y {
		t.swap(0, 1)
	}
}

func (t *Triangle) swap(i, j int) {
	t.V[i], t.V[j] = t.V[j], t.V[i]
	t.UV[i], t.UV[j] = t.UV[j], t.UV[i]
}

// Sorted reports whether the vertices are in ascending Y order.
func (t *Triangle) Sorted() bool {
	return t.V[0].Y <= t.V[1].Y && t.V[1].Y <= t.V[2].Y
}
