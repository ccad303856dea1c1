package render

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte("\xff\xd8")
	bmpMagic  = []byte("BM")
)

// Texture is a row-major grid of packed 0xRRGGBB texels. Texel (0, 0) is the
// top-left corner of the image; UV (0, 0) addresses it.
type Texture struct {
	Width  int
	Height int
	Pixels []uint32
}

// NewTexture creates a black texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Pixels: make([]uint32, width*height),
	}
}

// LoadTexture loads a texture from a PNG, JPEG, TGA, BMP or WebP file.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()
	return DecodeTexture(f)
}

// DecodeImage decodes a PNG, JPEG, BMP or WebP image by its signature and
// anything else as TGA, which has none. The tga package registers itself
// with an empty magic string that matches every input, so image.Decode
// cannot be used once it is linked in.
func DecodeImage(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(12)
	switch {
	case bytes.HasPrefix(head, pngMagic):
		return png.Decode(br)
	case bytes.HasPrefix(head, jpegMagic):
		return jpeg.Decode(br)
	case bytes.HasPrefix(head, bmpMagic):
		return bmp.Decode(br)
	case len(head) == 12 && string(head[:4]) == "RIFF" && string(head[8:]) == "WEBP":
		return webp.Decode(br)
	}
	return tga.Decode(br)
}

// DecodeTexture decodes a texture from a PNG, JPEG, TGA, BMP or WebP stream.
func DecodeTexture(r io.Reader) (*Texture, error) {
	img, err := DecodeImage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	tex := TextureFromImage(img)
	if len(tex.Pixels) == 0 {
		return nil, fmt.Errorf("texture has no pixels")
	}
	return tex, nil
}

// TextureFromImage creates a texture from an image.Image.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			tex.Pixels[y*width+x] = FromColor(img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return tex
}

// TextureFromImageScaled resamples img to width x height before converting
// it. Large textures are scaled down this way so that a texel lookup stays
// inside a small working set.
func TextureFromImageScaled(img image.Image, width, height int) *Texture {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return TextureFromImage(img)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return TextureFromImage(dst)
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 uint32) *Texture {
	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			cx := x / checkSize
			cy := y / checkSize
			if (cx+cy)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex
}

// SetPixel sets a texel. Out-of-range coordinates are ignored.
func (t *Texture) SetPixel(x, y int, c uint32) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c & 0xFFFFFF
}

// GetPixel returns the texel at (x, y), or black if out of range.
func (t *Texture) GetPixel(x, y int) uint32 {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return 0
	}
	return t.Pixels[y*t.Width+x]
}

// Valid reports whether the texture has pixels matching its dimensions.
func (t *Texture) Valid() bool {
	return t.Width > 0 && t.Height > 0 && len(t.Pixels) == t.Width*t.Height
}
