// scanline - software rasterizer and terminal model viewer
// Renders OBJ, glTF and GLB models with one of four shading modes, either
// into an image file or interactively in the terminal.
//
// Controls:
//
//	Mouse drag  - Rotate model (yaw/pitch)
//	Scroll      - Zoom in/out
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Q/E         - Roll left/right
//	Space       - Apply random impulse
//	R           - Reset rotation
//	M           - Cycle shading mode
//	T           - Toggle texture on/off
//	+/-         - Adjust zoom
//	Esc         - Quit
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/taigrr/scanline/internal/config"
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/models"
	"github.com/taigrr/scanline/pkg/render"
	"github.com/taigrr/scanline/pkg/scene"
	"github.com/taigrr/scanline/pkg/shade"
)

const controls = `Controls:
  Mouse drag  - Rotate model
  Scroll      - Zoom in/out
  W/S/A/D     - Pitch and yaw
  Q/E         - Roll left/right
  Space       - Random spin
  R           - Reset view
  M           - Cycle shading mode
  T           - Toggle texture
  Esc         - Quit`

// options holds the command line flags.
type options struct {
	configPath string
	texture    string
	mode       string
	fps        int
	background string
	size       string
	workers    int
	snapshot   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "scanline [flags] <model.obj|model.gltf|model.glb>",
		Short: "Software rasterizer and terminal model viewer",
		Long: "Render OBJ, glTF and GLB models with flat or smooth shading, " +
			"optionally textured, to an image file or interactively in the terminal.\n\n" + controls,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				scene.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			return run(opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to a TOML scene file")
	f.StringVar(&opts.texture, "texture", "", "Path to texture image (PNG/JPG/TGA/BMP/WebP)")
	f.StringVar(&opts.mode, "mode", "", "Shading mode: flat, smooth, flat-textured, smooth-textured")
	f.IntVar(&opts.fps, "fps", 60, "Target FPS")
	f.StringVar(&opts.background, "bg", "", "Background color (R,G,B or #rrggbb)")
	f.StringVar(&opts.size, "size", "", "Snapshot size WxH (interactive mode uses the terminal size)")
	f.IntVar(&opts.workers, "workers", 0, "Render bands (0 = one per CPU)")
	f.StringVar(&opts.snapshot, "snapshot", "", "Render one frame to this .png or .webp file and exit")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log scene statistics to stderr")
	return cmd
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by snapshot and interactive rendering.
type app struct {
	cfg     config.Config
	world   *scene.World
	model   *scene.Model
	camera  *scene.Camera
	texture *render.Texture // used when switching to a textured mode
}

func run(opts options, modelPath string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, modelPath)
	if err != nil {
		return err
	}

	if opts.snapshot != "" {
		return a.snapshot(opts.snapshot)
	}
	return a.interactive(opts.fps)
}

func loadConfig(opts options) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, err
		}
	}

	flags := config.Flags{
		Background: opts.background,
		Workers:    opts.workers,
		Mode:       opts.mode,
		Texture:    opts.texture,
	}
	if opts.size != "" {
		if _, err := fmt.Sscanf(strings.ToLower(opts.size), "%dx%d", &flags.Width, &flags.Height); err != nil {
			return config.Config{}, fmt.Errorf("invalid size %q: %w", opts.size, err)
		}
	}
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newApp(cfg config.Config, modelPath string) (*app, error) {
	mesh, err := models.Load(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	mesh.FitUnit()
	if !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	fmt.Printf("Loaded: %s (%d vertices, %d triangles)\n",
		filepath.Base(modelPath), mesh.VertexCount(), mesh.TriangleCount())

	texture, err := loadTexture(cfg, mesh)
	if err != nil {
		return nil, err
	}

	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	mat, err := scene.MeshMaterial(mesh, mode, texture)
	if err != nil {
		return nil, err
	}
	if mode.IsTextured() {
		mat.Texture = texture
	}
	cfg.Apply(mat)

	world := scene.NewWorld(cfg.Width, cfg.Height, cfg.Workers)
	world.Background = cfg.BackgroundColor()
	world.Light = cfg.NewLight()

	model := scene.NewModel(filepath.Base(modelPath), mesh, mat)
	if _, err := world.Add(model); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, world: world, model: model, texture: texture}
	a.resetCamera()
	return a, nil
}

// loadTexture returns the configured texture, the model's own texture or a
// checkerboard, in that order of preference.
func loadTexture(cfg config.Config, mesh *models.Mesh) (*render.Texture, error) {
	if cfg.Material.Texture != "" {
		tex, err := render.LoadTexture(cfg.Material.Texture)
		if err != nil {
			return nil, fmt.Errorf("load texture: %w", err)
		}
		return tex, nil
	}
	if img := mesh.Texture(); img != nil {
		fmt.Printf("Using embedded texture: %dx%d\n", img.Bounds().Dx(), img.Bounds().Dy())
		return render.TextureFromImage(img), nil
	}
	return render.NewCheckerTexture(64, 64, 8, render.RGB(200, 200, 200), render.RGB(100, 100, 100)), nil
}

func (a *app) resetCamera() {
	a.camera = scene.NewCamera(math3d.V3(0, 0, a.cfg.Camera.Distance))
	a.camera.FOV = a.cfg.Camera.FOV * math.Pi / 180
	a.camera.SetClipPlanes(0.1, 100)
	a.camera.LookAt(math3d.Zero3())
}

// setMode switches the model's material, keeping reflectance and color.
func (a *app) setMode(mode shade.Mode) error {
	mat, err := a.model.Material.WithMode(mode, a.texture)
	if err != nil {
		return err
	}
	a.model.Material = mat
	return nil
}

func (a *app) snapshot(path string) error {
	if err := a.world.Render(context.Background(), a.camera); err != nil {
		return err
	}
	fb := a.world.Framebuffer()
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		err = fb.SavePNG(path)
	case ".webp":
		err = fb.SaveWebP(path)
	default:
		return fmt.Errorf("unsupported snapshot format: %s (use .png or .webp)", ext)
	}
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	fmt.Printf("Wrote %s (%dx%d, %s)\n", path, fb.Width, fb.Height, a.model.Material.Mode)
	return nil
}
