package render

import (
	"errors"
	"fmt"

	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/shade"
)

// ErrTextureMismatch is returned when a material's texture does not agree
// with its mode.
var ErrTextureMismatch = errors.New("render: texture does not match material mode")

// Material defaults.
const (
	DefaultDiffuse = 1.0
	DefaultAmbient = 0.2
	DefaultColor   = ColorGray
)

// Material describes how a surface reflects the light.
type Material struct {
	Mode    shade.Mode
	Diffuse float64
	Ambient float64
	Color   uint32 // 0xRRGGBB, used by untextured modes
	Texture *Texture
}

// NewMaterial returns a material with default reflectance and color. tex
// must be non-nil exactly when mode is textured.
func NewMaterial(mode shade.Mode, tex *Texture) (*Material, error) {
	m := &Material{
		Mode:    mode,
		Diffuse: DefaultDiffuse,
		Ambient: DefaultAmbient,
		Color:   DefaultColor,
		Texture: tex,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the mode and its texture.
func (m *Material) Validate() error {
	if !m.Mode.Valid() {
		return fmt.Errorf("%w: %s", shade.ErrInvalidMode, m.Mode)
	}
	switch {
	case m.Mode.IsTextured() && m.Texture == nil:
		return fmt.Errorf("%w: %s material has no texture", ErrTextureMismatch, m.Mode)
	case m.Mode.IsTextured() && !m.Texture.Valid():
		return fmt.Errorf("%w: texture is %dx%d with %d pixels",
			ErrTextureMismatch, m.Texture.Width, m.Texture.Height, len(m.Texture.Pixels))
	case !m.Mode.IsTextured() && m.Texture != nil:
		return fmt.Errorf("%w: %s material has a texture", ErrTextureMismatch, m.Mode)
	}
	return nil
}

// WithMode returns a copy of m switched to mode. Switching to a textured
// mode uses tex when m has no texture; switching away drops it.
func (m *Material) WithMode(mode shade.Mode, tex *Texture) (*Material, error) {
	out := *m
	out.Mode = mode
	switch {
	case !mode.IsTextured():
		out.Texture = nil
	case out.Texture == nil:
		out.Texture = tex
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Light is a single directional light.
type Light struct {
	Dir       math3d.Vec3 // unit, from the surface toward the light
	Intensity float64
	Ambient   float64
}

// NewLight returns a light shining from dir, which is normalized.
func NewLight(dir math3d.Vec3, intensity, ambient float64) *Light {
	return &Light{Dir: dir.Normalize(), Intensity: intensity, Ambient: ambient}
}

// DefaultLight shines straight down the Y axis at full intensity with no
// ambient term.
func DefaultLight() *Light {
	return &Light{Dir: math3d.V3(0, 1, 0), Intensity: 1}
}
