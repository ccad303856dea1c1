// Package render rasterizes shaded, optionally textured triangles into a
// framebuffer of packed colors, depths and owner IDs.
package render

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/HugoSmits86/nativewebp"
)

// OwnerID identifies the object that produced a pixel.
type OwnerID uint32

// NoOwner marks a pixel no triangle has written.
const NoOwner OwnerID = 0

// DepthOrder is the depth convention of a framebuffer.
type DepthOrder uint8

const (
	// InverseDepth stores 1/depth: greater is nearer, cleared to 0.
	InverseDepth DepthOrder = iota
	// LinearDepth stores depth: smaller is nearer, cleared to +Inf.
	LinearDepth
)

// Empty is the depth value of a cleared pixel.
func (o DepthOrder) Empty() float64 {
	if o == LinearDepth {
		return math.Inf(1)
	}
	return 0
}

// Nearer reports whether z passes the depth test against stored.
func (o DepthOrder) Nearer(z, stored float64) bool {
	if o == LinearDepth {
		return z < stored
	}
	return z > stored
}

func (o DepthOrder) String() string {
	if o == LinearDepth {
		return "linear"
	}
	return "inverse"
}

// Framebuffer holds the three per-pixel arrays a triangle fill writes. They
// are always the same length and are written together.
type Framebuffer struct {
	Width  int
	Height int
	Color  []uint32  // 0xAARRGGBB, row-major
	Depth  []float64 // per Order
	Owner  []OwnerID

	order DepthOrder
}

// NewFramebuffer creates an InverseDepth framebuffer.
func NewFramebuffer(width, height int) *Framebuffer {
	return NewFramebufferOrdered(width, height, InverseDepth)
}

// NewFramebufferOrdered creates a framebuffer with the given depth
// convention. The convention cannot change afterward.
func NewFramebufferOrdered(width, height int, order DepthOrder) *Framebuffer {
	fb := &Framebuffer{order: order}
	fb.Resize(width, height)
	return fb
}

// Order returns the depth convention.
func (fb *Framebuffer) Order() DepthOrder { return fb.order }

// Resize reallocates all three arrays. Contents are cleared to black.
func (fb *Framebuffer) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	n := width * height
	fb.Width, fb.Height = width, height
	if cap(fb.Color) >= n {
		fb.Color = fb.Color[:n]
		fb.Depth = fb.Depth[:n]
		fb.Owner = fb.Owner[:n]
	} else {
		fb.Color = make([]uint32, n)
		fb.Depth = make([]float64, n)
		fb.Owner = make([]OwnerID, n)
	}
	fb.Clear(ColorBlack)
}

// Clear resets depth to empty, owner to NoOwner and color to background.
func (fb *Framebuffer) Clear(background uint32) {
	fill(fb.Color, background|Opaque)
	fill(fb.Depth, fb.order.Empty())
	clear(fb.Owner)
}

// fill sets every element of s to v by repeated doubling copies.
func fill[T any](s []T, v T) {
	if len(s) == 0 {
		return
	}
	s[0] = v
	for i := 1; i < len(s); i *= 2 {
		copy(s[i:], s[:i])
	}
}

// Index returns the array index of (x, y); the caller checks bounds.
func (fb *Framebuffer) Index(x, y int) int { return y*fb.Width + x }

func (fb *Framebuffer) in(x, y int) bool {
	return x >= 0 && x < fb.Width && y >= 0 && y < fb.Height
}

// GetPixel returns the color at (x, y), or 0 if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) uint32 {
	if !fb.in(x, y) {
		return 0
	}
	return fb.Color[fb.Index(x, y)]
}

// DepthAt returns the stored depth at (x, y), or the empty depth if out of
// bounds.
func (fb *Framebuffer) DepthAt(x, y int) float64 {
	if !fb.in(x, y) {
		return fb.order.Empty()
	}
	return fb.Depth[fb.Index(x, y)]
}

// OwnerAt returns the owner of (x, y), or NoOwner if out of bounds.
func (fb *Framebuffer) OwnerAt(x, y int) OwnerID {
	if !fb.in(x, y) {
		return NoOwner
	}
	return fb.Owner[fb.Index(x, y)]
}

// ToImage converts the framebuffer to a standard Go image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for i, c := range fb.Color {
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = uint8(c>>16), uint8(c>>8), uint8(c), uint8(c>>24)
	}
	return img
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, fb.ToImage())
}

// SaveWebP saves the framebuffer as a lossless WebP file.
func (fb *Framebuffer) SaveWebP(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := nativewebp.Encode(f, fb.ToImage(), nil); err != nil {
		return fmt.Errorf("encode webp: %w", err)
	}
	return nil
}
