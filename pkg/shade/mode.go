// Package shade holds the rule table that describes every value a triangle
// fill derives, and specializes that table into one execution plan per
// rendering mode.
//
// A mode is the combination of two independent axes: where lighting is
// evaluated (Flat or Smooth) and where the base RGB comes from (Untextured
// or Textured). Each rule in a Table applies to some subset of the four
// modes and is evaluated at one of three granularities: once per triangle,
// once per vertex, or once per pixel.
package shade

import (
	"fmt"
	"strings"
)

// Shading selects whether lighting is computed once per triangle from the
// face normal (Flat) or per vertex and interpolated (Smooth).
type Shading uint8

const (
	Flat Shading = iota
	Smooth
)

func (s Shading) String() string {
	switch s {
	case Flat:
		return "flat"
	case Smooth:
		return "smooth"
	}
	return fmt.Sprintf("Shading(%d)", uint8(s))
}

// Texturing selects whether the material color or a texture sample supplies
// the base RGB of a pixel.
type Texturing uint8

const (
	Untextured Texturing = iota
	Textured
)

func (t Texturing) String() string {
	switch t {
	case Untextured:
		return "untextured"
	case Textured:
		return "textured"
	}
	return fmt.Sprintf("Texturing(%d)", uint8(t))
}

// Mode is one of the four rendering modes.
type Mode struct {
	Shading   Shading
	Texturing Texturing
}

// The four rendering modes.
var (
	ModeFlat           = Mode{Flat, Untextured}
	ModeSmooth         = Mode{Smooth, Untextured}
	ModeFlatTextured   = Mode{Flat, Textured}
	ModeSmoothTextured = Mode{Smooth, Textured}
)

// NumModes is the number of distinct valid modes.
const NumModes = 4

// Modes returns the four modes in Index order.
func Modes() [NumModes]Mode {
	return [NumModes]Mode{ModeFlat, ModeSmooth, ModeFlatTextured, ModeSmoothTextured}
}

// Valid reports whether both axes hold a recognized value.
func (m Mode) Valid() bool {
	return m.Shading <= Smooth && m.Texturing <= Textured
}

// Index returns a dense index in [0, NumModes) for a valid mode.
func (m Mode) Index() int {
	return int(m.Shading) | int(m.Texturing)<<1
}

// IsSmooth reports whether lighting is interpolated from the vertices.
func (m Mode) IsSmooth() bool { return m.Shading == Smooth }

// IsTextured reports whether pixels sample a texture.
func (m Mode) IsTextured() bool { return m.Texturing == Textured }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d,%d)", uint8(m.Shading), uint8(m.Texturing))
	}
	if m.Texturing == Untextured {
		return m.Shading.String()
	}
	return m.Shading.String() + "-textured"
}

// ParseMode parses the names produced by Mode.String. "textured" is accepted
// as a short form of "flat-textured".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat":
		return ModeFlat, nil
	case "smooth":
		return ModeSmooth, nil
	case "flat-textured", "textured":
		return ModeFlatTextured, nil
	case "smooth-textured":
		return ModeSmoothTextured, nil
	}
	return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}
