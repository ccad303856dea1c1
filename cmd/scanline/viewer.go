package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/scene"
	"github.com/taigrr/scanline/pkg/shade"
)

// RotationAxis tracks position and velocity for one rotation axis with spring decay
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // spring velocity while Velocity decays toward 0
}

// NewRotationAxis creates an axis whose velocity decays critically damped.
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0.
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState holds the model rotation.
type RotationState struct {
	Pitch, Yaw, Roll RotationAxis
	fps              int
}

func NewRotationState(fps int) *RotationState {
	r := &RotationState{fps: fps}
	r.Reset()
	return r
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
	r.Roll = NewRotationAxis(r.fps)
}

// Transform returns the model rotation matrix.
func (r *RotationState) Transform() math3d.Mat4 {
	return math3d.RotateX(r.Pitch.Position).
		Mul(math3d.RotateY(r.Yaw.Position)).
		Mul(math3d.RotateZ(r.Roll.Position))
}

// nextMode returns the mode after m in shade.Modes order.
func nextMode(m shade.Mode) shade.Mode {
	modes := shade.Modes()
	return modes[(m.Index()+1)%len(modes)]
}

// toggleTexture flips the texturing axis of m.
func toggleTexture(m shade.Mode) shade.Mode {
	if m.IsTextured() {
		m.Texturing = shade.Untextured
	} else {
		m.Texturing = shade.Textured
	}
	return m
}

func (a *app) interactive(fps int) error {
	if fps <= 0 {
		fps = 60
	}
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	fmt.Fprint(os.Stdout, "\x1b[?1003h") // any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // SGR extended mouse mode

	// Each cell shows two framebuffer rows.
	a.world.Resize(width, height*2)

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	events := make(chan uv.Event, 64)
	go func() {
		for ev := range term.Events() {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	rotation := NewRotationState(fps)
	torque := struct{ pitch, yaw, roll float64 }{}
	const torqueStrength = 3.0

	var mouseDown bool
	var lastMouseX, lastMouseY int
	distance := a.cfg.Camera.Distance
	zoom := func(delta float64) {
		distance = min(max(distance+delta, 1), 20)
		a.camera.SetPosition(math3d.V3(0, 0, distance))
	}

	handle := func(ev uv.Event) (quit bool) {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			a.world.Resize(width, height*2)

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape", "ctrl+c"):
				return true
			case ev.MatchString("q"):
				torque.roll = -torqueStrength
			case ev.MatchString("e"):
				torque.roll = torqueStrength
			case ev.MatchString("w", "up"):
				torque.pitch = -torqueStrength
			case ev.MatchString("s", "down"):
				torque.pitch = torqueStrength
			case ev.MatchString("a", "left"):
				torque.yaw = -torqueStrength
			case ev.MatchString("d", "right"):
				torque.yaw = torqueStrength
			case ev.MatchString("r"):
				rotation.Reset()
				distance = a.cfg.Camera.Distance
				a.resetCamera()
			case ev.MatchString("space"):
				rotation.ApplyImpulse(
					(rand.Float64()-0.5)*1.5,
					(rand.Float64()-0.5)*1.5,
					(rand.Float64()-0.5)*1.5,
				)
			case ev.MatchString("+", "="):
				zoom(-0.25)
			case ev.MatchString("-", "_"):
				zoom(0.25)
			case ev.MatchString("m"):
				a.switchMode(nextMode(a.model.Material.Mode))
			case ev.MatchString("t"):
				a.switchMode(toggleTexture(a.model.Material.Mode))
			}

		case uv.KeyReleaseEvent:
			switch {
			case ev.MatchString("w", "up", "s", "down"):
				torque.pitch = 0
			case ev.MatchString("a", "left", "d", "right"):
				torque.yaw = 0
			case ev.MatchString("q", "e"):
				torque.roll = 0
			}

		case uv.MouseClickEvent:
			mouseDown = true
			lastMouseX, lastMouseY = ev.X, ev.Y

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if mouseDown {
				dx := ev.X - lastMouseX
				dy := ev.Y - lastMouseY
				rotation.ApplyImpulse(float64(dy)*0.03, float64(dx)*0.03, 0)
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				zoom(-0.5)
			case uv.MouseWheelDown:
				zoom(0.5)
			}
		}
		return false
	}

	frame := time.NewTicker(time.Second / time.Duration(fps))
	defer frame.Stop()
	lastFrame := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if handle(ev) {
				return nil
			}
			continue
		case now := <-frame.C:
			dt := math.Min(now.Sub(lastFrame).Seconds(), 0.1)
			lastFrame = now

			// Key release events are unreliable, so held torque decays.
			rotation.ApplyImpulse(torque.pitch*dt, torque.yaw*dt, torque.roll*dt)
			torque.pitch *= 0.9
			torque.yaw *= 0.9
			torque.roll *= 0.9
			rotation.Update()
		}

		a.model.Transform = rotation.Transform()
		if err := a.world.Render(ctx, a.camera); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		a.world.Framebuffer().Draw(term, uv.Rect(0, 0, width, height))
		if err := term.Display(); err != nil {
			return fmt.Errorf("display: %w", err)
		}
	}
}

// switchMode changes the shading mode from a key press. A failed switch
// keeps the current mode and is logged.
func (a *app) switchMode(mode shade.Mode) {
	if err := a.setMode(mode); err != nil {
		scene.Logger().Warn("mode switch failed", "mode", mode, "err", err)
	}
}
