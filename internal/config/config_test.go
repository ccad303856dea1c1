package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/taigrr/scanline/pkg/render"
	"github.com/taigrr/scanline/pkg/shade"
)

const sceneTOML = `
width = 200
height = 120
background = "#102030"
workers = 3

[light]
direction = [0, 0, 1]
intensity = 0.8
ambient = 0.0

[material]
mode = "flat"
color = "#ff8000"
diffuse = 0.9
texture = "tex/wood.png"

[camera]
distance = 4
fov = 45
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	if err := os.WriteFile(path, []byte(sceneTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Resolve(Flags{})
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Width != 200 || cfg.Height != 120 || cfg.Workers != 3 {
		t.Errorf("size/workers = %dx%d/%d", cfg.Width, cfg.Height, cfg.Workers)
	}
	if got := cfg.BackgroundColor(); got != 0x102030 {
		t.Errorf("BackgroundColor = %#x, want 0x102030", got)
	}
	if mode, _ := cfg.Mode(); mode != shade.ModeFlat {
		t.Errorf("Mode = %v, want flat", mode)
	}
	if want := filepath.Join(dir, "tex", "wood.png"); cfg.Material.Texture != want {
		t.Errorf("texture = %q, want %q", cfg.Material.Texture, want)
	}
	if cfg.Camera.Distance != 4 || cfg.Camera.FOV != 45 {
		t.Errorf("camera = %+v", cfg.Camera)
	}

	light := cfg.NewLight()
	if light.Intensity != 0.8 || light.Ambient != 0 || light.Dir.Z != 1 {
		t.Errorf("light = %+v; explicit zero ambient must be kept", light)
	}

	mat, err := render.NewMaterial(shade.ModeFlat, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Apply(mat)
	if mat.Color != 0xff8000 || mat.Diffuse != 0.9 || mat.Ambient != render.DefaultAmbient {
		t.Errorf("material = %+v", mat)
	}
}

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	cfg.Resolve(Flags{})
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if mode, _ := cfg.Mode(); mode != shade.ModeSmoothTextured {
		t.Errorf("Mode = %v", mode)
	}
	if got := cfg.BackgroundColor(); got != render.RGB(30, 30, 40) {
		t.Errorf("BackgroundColor = %#x", got)
	}
	if *cfg.Light.Ambient != DefaultAmbient || cfg.Camera.FOV != DefaultFOV {
		t.Errorf("light/camera defaults = %+v %+v", cfg.Light, cfg.Camera)
	}

	mat, _ := render.NewMaterial(shade.ModeSmooth, nil)
	cfg.Apply(mat)
	if mat.Color != render.DefaultColor {
		t.Errorf("Apply without color changed it to %#x", mat.Color)
	}
}

func TestResolveFlagsOverride(t *testing.T) {
	cfg, err := Parse([]byte(sceneTOML))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Resolve(Flags{
		Width: 64, Height: 32,
		Background: "1,2,3",
		Workers:    1,
		Mode:       "smooth-textured",
		Texture:    "other.png",
	})

	if cfg.Width != 64 || cfg.Height != 32 || cfg.Workers != 1 {
		t.Errorf("size/workers = %dx%d/%d", cfg.Width, cfg.Height, cfg.Workers)
	}
	if got := cfg.BackgroundColor(); got != 0x010203 {
		t.Errorf("BackgroundColor = %#x", got)
	}
	if cfg.Material.Texture != "other.png" {
		t.Errorf("texture = %q", cfg.Material.Texture)
	}
	if mode, _ := cfg.Mode(); mode != shade.ModeSmoothTextured {
		t.Errorf("Mode = %v", mode)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown key", "colour = \"#fff\"\n"},
		{"unknown table key", "[camera]\nzoom = 2\n"},
		{"wrong type", "width = \"wide\"\n"},
		{"syntax", "width = \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.toml)); err == nil {
				t.Error("Parse succeeded")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load missing file: %v, want ErrNotExist", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"mode", func(c *Config) { c.Material.Mode = "phong" }, shade.ErrInvalidMode},
		{"background", func(c *Config) { c.Background = "#12" }, ErrColor},
		{"material color", func(c *Config) { c.Material.Color = "red" }, ErrColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.Resolve(Flags{})
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"#ff8000", 0xff8000, false},
		{"FF8000", 0xff8000, false},
		{"255, 128, 0", 0xff8000, false},
		{"0,0,0", 0, false},
		{"256,0,0", 0, true},
		{"1,2", 0, true},
		{"#ff80", 0, true},
		{"#gg0000", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %#x, want %#x", tt.in, got, tt.want)
			}
		})
	}
}
