// Package game hosts the scene in an ebiten window: it owns the subsystem
// lifetime, the capture button and the text overlay.
package game

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/iburimskiy/reality-check/internal/anim"
	"github.com/iburimskiy/reality-check/internal/capture"
	"github.com/iburimskiy/reality-check/internal/chime"
	"github.com/iburimskiy/reality-check/internal/config"
	"github.com/iburimskiy/reality-check/internal/render"
	"github.com/iburimskiy/reality-check/internal/scene"
	"github.com/iburimskiy/reality-check/internal/surface"
)

type Options struct {
	Config config.Config
	Sink   capture.Sink
	Logger *slog.Logger

	// Allocator defaults to ebiten images; PixelRatio to the monitor scale.
	Allocator  surface.Allocator
	PixelRatio float64
}

var newCapturer = capture.New

type Game struct {
	cfg config.Config
	log *slog.Logger

	surface  *surface.Manager
	scene    *scene.Scene
	sched    *anim.Scheduler
	renderer *render.Renderer
	capturer *capture.Capturer
	chime    *chime.Chime
	button   *Button

	outW, outH int
	busy       bool
	saved      string
	lastErr    error

	cleanup []func()
	closed  bool
}

// New mounts the subsystem. On failure everything acquired so far is
// released in reverse order.
func New(opts Options) (_ *Game, err error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if opts.Sink == nil {
		return nil, errors.New("game: nil capture sink")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	g := &Game{
		cfg: cfg,
		log: log,
		button: &Button{
			ID:    config.ButtonID,
			Label: config.ButtonLabel,
			X:     config.ButtonX,
			Y:     config.ButtonY,
			W:     config.ButtonWidth,
			H:     config.ButtonHeight,
		},
		outW: cfg.Width,
		outH: cfg.Height,
	}
	defer func() {
		if err != nil {
			g.release()
		}
	}()

	tm, err := surface.ParseToneMapping(cfg.Surface.ToneMapping)
	if err != nil {
		return nil, err
	}
	clearColor, err := scene.ParseHex(cfg.Surface.ClearColor)
	if err != nil {
		return nil, err
	}
	alloc := opts.Allocator
	if alloc == nil {
		alloc = render.Allocator()
	}
	ratio := opts.PixelRatio
	if ratio <= 0 {
		ratio = deviceScale()
	}
	space := surface.LinearSRGB
	if cfg.Surface.SRGB {
		space = surface.SRGB
	}
	g.surface, err = surface.New(alloc, surface.Options{
		Width:       cfg.Width,
		Height:      cfg.Height,
		PixelRatio:  ratio,
		ClearColor:  clearColor,
		ToneMapping: tm,
		Exposure:    cfg.Surface.Exposure,
		ColorSpace:  space,
	})
	if err != nil {
		return nil, err
	}
	g.onClose(g.surface.Dispose)

	counts := scene.Counts{
		Streams:  config.StreamCount,
		Circuits: config.CircuitCount,
		Segments: config.CurveSegment,
		Stars:    config.StarCount,
	}
	g.scene, err = scene.Assemble(scene.NewRand(cfg.Seed), g.surface.Config().Aspect(), counts)
	if err != nil {
		return nil, err
	}
	g.onClose(g.scene.Dispose)
	g.surface.Bind(g.scene.Camera)

	g.renderer = render.New(log)
	g.onClose(g.renderer.Dispose)

	g.sched = anim.New(g.scene, anim.Options{Logger: log})
	g.onClose(g.sched.Stop)

	g.capturer, err = newCapturer(g.surface, g.scene, g.renderer, g.renderer, opts.Sink, capture.Options{Logger: log})
	if err != nil {
		return nil, err
	}

	if cfg.Chime.Enabled {
		ch, cerr := chime.New(chime.Options{
			SampleRate: cfg.Chime.SampleRate,
			Frequency:  cfg.Chime.Frequency,
			Duration:   time.Duration(cfg.Chime.DurationMS) * time.Millisecond,
			Volume:     cfg.Chime.Volume,
		}, log)
		if cerr != nil {
			log.Warn("chime disabled", "err", cerr)
		} else {
			g.chime = ch
			g.onClose(ch.Close)
		}
	}

	if err := g.sched.Start(); err != nil {
		return nil, err
	}
	w, h := g.surface.PhysicalSize()
	log.Info("mounted", "width", cfg.Width, "height", cfg.Height,
		"pixel_ratio", g.surface.Config().PixelRatio, "physical", fmt.Sprintf("%dx%d", w, h))
	return g, nil
}

func (g *Game) onClose(fn func()) { g.cleanup = append(g.cleanup, fn) }

func (g *Game) release() {
	for i := len(g.cleanup) - 1; i >= 0; i-- {
		g.cleanup[i]()
	}
	g.cleanup = nil
}

// Close tears the subsystem down. It is safe to call more than once.
func (g *Game) Close() {
	if g.closed {
		return
	}
	g.closed = true
	g.release()
	g.log.Info("teardown complete")
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}

	ratio := g.surface.Config().PixelRatio
	cx, cy := ebiten.CursorPosition()
	clicked := g.button.Update(
		float64(cx)/ratio, float64(cy)/ratio,
		inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft),
	)
	if clicked {
		g.requestCapture()
	}

	if err := g.sched.Update(); err != nil {
		if errors.Is(err, anim.ErrStopped) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

// requestCapture queues one capture for the next frame boundary. Clicks
// while a capture is pending are ignored.
func (g *Game) requestCapture() {
	if g.busy {
		return
	}
	if err := g.sched.Post(g.runCapture); err != nil {
		g.lastErr = err
		return
	}
	g.busy = true
	g.log.Debug("capture requested", "button", g.button.ID)
}

func (g *Game) runCapture() {
	defer func() { g.busy = false }()
	res, err := g.capturer.Capture(context.Background())
	switch {
	case errors.Is(err, capture.ErrCanceled):
		g.lastErr = nil
	case err != nil:
		g.lastErr = err
	default:
		g.lastErr = nil
		g.saved = res.Path
		g.chime.Play()
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	if err := g.sched.Render(g.renderer, g.surface); err != nil {
		if g.lastErr == nil || g.lastErr.Error() != err.Error() {
			g.log.Error("render failed", "err", err)
		}
		g.lastErr = err
		screen.Fill(g.surface.Config().ClearColor)
	} else {
		render.Present(screen, g.surface.Canvas())
	}
	g.drawOverlay(screen)
}

func (g *Game) drawOverlay(screen *ebiten.Image) {
	scale := g.surface.Config().PixelRatio
	face := basicfont.Face7x13

	title := &ebiten.DrawImageOptions{}
	title.GeoM.Scale(2, 2)
	title.GeoM.Translate(20, 36)
	title.GeoM.Scale(scale, scale)
	title.ColorScale.ScaleWithColor(color.RGBA{R: 0, G: 234, B: 255, A: 255})
	text.DrawWithOptions(screen, config.WindowTitle, face, title)

	sub := &ebiten.DrawImageOptions{}
	sub.GeoM.Translate(20, 60)
	sub.GeoM.Scale(scale, scale)
	sub.ColorScale.ScaleWithColor(color.RGBA{R: 127, G: 233, B: 255, A: 200})
	text.DrawWithOptions(screen, config.Subtitle, face, sub)

	g.button.Draw(screen, scale, g.chime.Level(), g.busy)

	elapsed := time.Duration(g.sched.Clock().Elapsed() * float64(time.Second))
	line := statusLine(elapsed, g.busy, g.saved, g.lastErr)
	ebitenutil.DebugPrintAt(screen, line, int(20*scale), int((config.ButtonY+config.ButtonHeight+12)*scale))

	if g.cfg.ShowStats {
		st := g.renderer.Stats()
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("TPS %.0f  FPS %.0f  draws %d  batches %d  tris %d  culled %d",
			ebiten.ActualTPS(), ebiten.ActualFPS(), st.Draws, st.Batches, st.Triangles, st.Culled),
			int(20*scale), int((config.ButtonY+config.ButtonHeight+30)*scale))
	}
}

// Layout follows the window size and monitor scale and returns the
// physical canvas size so the scene is drawn one to one.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if err := g.surface.SetPixelRatio(deviceScale()); err != nil {
		g.log.Warn("pixel ratio change failed", "err", err)
	}
	if err := g.surface.Refresh(); err != nil {
		g.lastErr = err
	}
	if outsideWidth != g.outW || outsideHeight != g.outH {
		g.outW, g.outH = outsideWidth, outsideHeight
		if err := g.surface.Resize(surface.ResizeEvent{Width: outsideWidth, Height: outsideHeight}); err != nil {
			g.log.Error("resize failed", "err", err)
			g.lastErr = err
		} else {
			cfg := g.surface.Config()
			g.log.Debug("resized", "width", cfg.Width, "height", cfg.Height, "pixel_ratio", cfg.PixelRatio)
		}
	}
	return g.surface.PhysicalSize()
}

func deviceScale() float64 {
	if m := ebiten.Monitor(); m != nil {
		return m.DeviceScaleFactor()
	}
	return 1
}
