package render

import "image/color"

// Colors are packed 0xRRGGBB in the low 24 bits of a uint32. The
// framebuffer stores them with the Opaque alpha byte set.

// Opaque is the alpha byte OR'd into every color written to a framebuffer.
const Opaque uint32 = 0xFF000000

// Colors for convenience.
const (
	ColorBlack uint32 = 0x000000
	ColorWhite uint32 = 0xFFFFFF
	ColorRed   uint32 = 0xFF0000
	ColorGreen uint32 = 0x00FF00
	ColorBlue  uint32 = 0x0000FF
	ColorGray  uint32 = 0xAAAAAA
	ColorSky   uint32 = 0x87CEEB
)

// RGB packs three channels.
func RGB(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// ToRGBA unpacks a color. The alpha byte is taken from c.
func ToRGBA(c uint32) color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: uint8(c >> 24)}
}

// FromColor packs any color.Color, dropping alpha.
func FromColor(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	// RGBA returns 16-bit values, scale to 8-bit
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
