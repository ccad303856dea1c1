package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// CellSetter is the part of uv.Screen that Draw writes to.
type CellSetter interface {
	SetCell(x, y int, c *uv.Cell)
}

// Draw converts the framebuffer to terminal cells and draws them on the
// screen. Each cell shows two framebuffer rows with an upper half block:
// foreground is the top pixel and background the bottom one. Framebuffer
// row 0 maps to the first row of area.
func (fb *Framebuffer) Draw(scr CellSetter, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col-area.Min.X < fb.Width; col++ {
			x := col - area.Min.X
			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.GetPixel(x, topY)),
					Bg: cellColor(fb.GetPixel(x, botY)),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// cellColor converts a framebuffer color; rows past the bottom have no
// alpha and leave the terminal default.
func cellColor(c uint32) color.Color {
	if c&Opaque == 0 {
		return nil
	}
	return ToRGBA(c)
}
