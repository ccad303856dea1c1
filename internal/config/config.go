// Package config reads the scene file used by the scanline viewer.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
	"github.com/taigrr/scanline/pkg/shade"
)

// Defaults applied by Resolve.
const (
	DefaultWidth      = 160
	DefaultHeight     = 96
	DefaultBackground = "30,30,40"
	DefaultMode       = "smooth-textured"
	DefaultDistance   = 2.5
	DefaultFOV        = 60.0
	DefaultIntensity  = 1.0
	DefaultAmbient    = 0.2
)

// ErrColor is returned for a color that is neither "#rrggbb" nor "r,g,b".
var ErrColor = errors.New("config: invalid color")

// Config is the scene file. Zero values are replaced by defaults in
// Resolve.
type Config struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Background string `toml:"background"`
	Workers    int    `toml:"workers"`

	Light    Light    `toml:"light"`
	Material Material `toml:"material"`
	Camera   Camera   `toml:"camera"`

	dir string
}

// Light configures the directional light.
type Light struct {
	Direction [3]float64 `toml:"direction"`
	Intensity float64    `toml:"intensity"`
	Ambient   *float64   `toml:"ambient"`
}

// Material configures the surface of the loaded model.
type Material struct {
	Mode    string   `toml:"mode"`
	Color   string   `toml:"color"` // empty keeps the model's own color
	Diffuse float64  `toml:"diffuse"`
	Ambient *float64 `toml:"ambient"`
	Texture string   `toml:"texture"` // relative to the scene file
}

// Camera places the camera on the +Z axis looking at the origin.
type Camera struct {
	Distance float64 `toml:"distance"`
	FOV      float64 `toml:"fov"` // vertical, degrees
}

// Flags holds CLI flag values that override the scene file.
type Flags struct {
	Width, Height int
	Background    string
	Workers       int
	Mode          string
	Texture       string
}

// Load reads a TOML scene file. Unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes a TOML scene.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w\n%s", err, strict.String())
		}
		return Config{}, err
	}
	return cfg, nil
}

// Resolve applies flag overrides, then fills in defaults and resolves the
// texture path. Non-zero flags take priority.
func (c *Config) Resolve(flags Flags) {
	if flags.Width > 0 && flags.Height > 0 {
		c.Width, c.Height = flags.Width, flags.Height
	}
	if flags.Background != "" {
		c.Background = flags.Background
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Mode != "" {
		c.Material.Mode = flags.Mode
	}
	if flags.Texture != "" {
		c.Material.Texture = flags.Texture
	} else if c.Material.Texture != "" && c.dir != "" && !filepath.IsAbs(c.Material.Texture) {
		c.Material.Texture = filepath.Join(c.dir, c.Material.Texture)
	}

	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = DefaultWidth, DefaultHeight
	}
	if c.Background == "" {
		c.Background = DefaultBackground
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Material.Mode == "" {
		c.Material.Mode = DefaultMode
	}
	if c.Material.Diffuse <= 0 {
		c.Material.Diffuse = render.DefaultDiffuse
	}
	if c.Material.Ambient == nil {
		c.Material.Ambient = ptr(render.DefaultAmbient)
	}
	if c.Light.Direction == [3]float64{} {
		c.Light.Direction = [3]float64{0.5, 1, 1}
	}
	if c.Light.Intensity <= 0 {
		c.Light.Intensity = DefaultIntensity
	}
	if c.Light.Ambient == nil {
		c.Light.Ambient = ptr(DefaultAmbient)
	}
	if c.Camera.Distance <= 0 {
		c.Camera.Distance = DefaultDistance
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		c.Camera.FOV = DefaultFOV
	}
}

// Validate checks the values Resolve cannot default.
func (c *Config) Validate() error {
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := ParseColor(c.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if c.Material.Color != "" {
		if _, err := ParseColor(c.Material.Color); err != nil {
			return fmt.Errorf("material color: %w", err)
		}
	}
	return nil
}

// Mode returns the parsed material mode.
func (c *Config) Mode() (shade.Mode, error) {
	return shade.ParseMode(c.Material.Mode)
}

// BackgroundColor returns the background as 0xRRGGBB.
func (c *Config) BackgroundColor() uint32 {
	bg, _ := ParseColor(c.Background)
	return bg
}

// NewLight builds the configured light.
func (c *Config) NewLight() *render.Light {
	d := c.Light.Direction
	var ambient float64
	if c.Light.Ambient != nil {
		ambient = *c.Light.Ambient
	}
	return render.NewLight(math3d.V3(d[0], d[1], d[2]), c.Light.Intensity, ambient)
}

// Apply sets the configured reflectance and color on mat.
func (c *Config) Apply(mat *render.Material) {
	mat.Diffuse = c.Material.Diffuse
	if c.Material.Ambient != nil {
		mat.Ambient = *c.Material.Ambient
	}
	if col, err := ParseColor(c.Material.Color); err == nil {
		mat.Color = col
	}
}

// ParseColor parses "#rrggbb", "rrggbb" or "r,g,b" into 0xRRGGBB.
func ParseColor(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return 0, fmt.Errorf("%w: %q", ErrColor, s)
		}
		var rgb [3]uint8
		for i, p := range parts {
			v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrColor, s)
			}
			rgb[i] = uint8(v)
		}
		return render.RGB(rgb[0], rgb[1], rgb[2]), nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("%w: %q", ErrColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrColor, s)
	}
	return uint32(v), nil
}

func ptr[T any](v T) *T { return &v }
