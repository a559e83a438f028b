// Package surface owns the rendering canvas: its logical size, pixel ratio,
// output color configuration and the scoped reconfiguration used for
// high-resolution captures.
package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
)

var (
	// ErrNoContext is returned when no canvas can be allocated at all.
	ErrNoContext = errors.New("surface: no rendering context")
	// ErrCaptureActive is returned by BeginCapture while a capture holds the surface.
	ErrCaptureActive = errors.New("surface: capture already in progress")
	// ErrNoCapture is returned by EndCapture without a matching BeginCapture.
	ErrNoCapture = errors.New("surface: no capture in progress")
	// ErrDisposed is returned by every operation after Dispose.
	ErrDisposed = errors.New("surface: disposed")
)

const MaxPixelRatio = 2.0

type ToneMapping int

const (
	NoToneMapping ToneMapping = iota
	LinearToneMapping
	ACESFilmicToneMapping
)

// ParseToneMapping accepts the names used in the config file, in any case.
// An empty name means no tone mapping.
func ParseToneMapping(s string) (ToneMapping, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return NoToneMapping, nil
	case "linear":
		return LinearToneMapping, nil
	case "aces":
		return ACESFilmicToneMapping, nil
	}
	return NoToneMapping, fmt.Errorf("surface: unknown tone mapping %q", s)
}

type ColorSpace int

const (
	LinearSRGB ColorSpace = iota
	SRGB
)

// Config is the complete surface state. It is only mutated by Manager.
type Config struct {
	Width       int
	Height      int
	PixelRatio  float64
	ClearColor  color.RGBA
	ToneMapping ToneMapping
	Exposure    float64
	ColorSpace  ColorSpace
}

// PhysicalSize is the canvas size in device pixels.
func (c Config) PhysicalSize() (int, int) {
	w := int(math.Floor(float64(c.Width) * c.PixelRatio))
	h := int(math.Floor(float64(c.Height) * c.PixelRatio))
	return max(w, 1), max(h, 1)
}

// Aspect is the logical width over height.
func (c Config) Aspect() float64 {
	return float64(c.Width) / float64(c.Height)
}

// ResizeEvent carries the container's current size.
type ResizeEvent struct {
	Width, Height int
}

// Canvas is a drawable pixel buffer. *ebiten.Image satisfies it.
type Canvas interface {
	Bounds() image.Rectangle
	Fill(clr color.Color)
	Dispose()
}

// Allocator creates canvases of a physical size.
type Allocator interface {
	Allocate(width, height int) (Canvas, error)
}

// AllocatorFunc adapts a function to Allocator.
type AllocatorFunc func(width, height int) (Canvas, error)

func (f AllocatorFunc) Allocate(width, height int) (Canvas, error) { return f(width, height) }

// AspectSetter receives the aspect ratio on every resize; the scene camera implements it.
type AspectSetter interface {
	SetAspect(aspect float64)
}

// Options configures New.
type Options struct {
	Width       int
	Height      int
	PixelRatio  float64
	ClearColor  color.RGBA
	ToneMapping ToneMapping
	Exposure    float64
	ColorSpace  ColorSpace
}

type Manager struct {
	alloc  Allocator
	cfg    Config
	canvas Canvas
	aspect AspectSetter

	saved     Config
	capturing bool
	stale     bool
	disposed  bool
}

// New initializes the surface for a container of the given logical size.
// It fails with ErrNoContext when the first canvas cannot be allocated.
func New(alloc Allocator, opts Options) (*Manager, error) {
	if alloc == nil {
		return nil, fmt.Errorf("%w: nil allocator", ErrNoContext)
	}
	m := &Manager{
		alloc: alloc,
		cfg: Config{
			Width:       max(opts.Width, 1),
			Height:      max(opts.Height, 1),
			PixelRatio:  ClampPixelRatio(opts.PixelRatio),
			ClearColor:  opts.ClearColor,
			ToneMapping: opts.ToneMapping,
			Exposure:    opts.Exposure,
			ColorSpace:  opts.ColorSpace,
		},
	}
	if err := m.reallocate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContext, err)
	}
	return m, nil
}

// ClampPixelRatio limits the live pixel ratio to (0, MaxPixelRatio].
func ClampPixelRatio(r float64) float64 {
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 1
	}
	return math.Min(r, MaxPixelRatio)
}

// Bind attaches the camera whose aspect follows the surface size and syncs it once.
func (m *Manager) Bind(a AspectSetter) {
	m.aspect = a
	if a != nil {
		a.SetAspect(m.cfg.Aspect())
	}
}

func (m *Manager) Config() Config { return m.cfg }

// Canvas is nil while the surface is stale.
func (m *Manager) Canvas() Canvas { return m.canvas }

// Stale reports that the live canvas could not be restored after a capture.
func (m *Manager) Stale() bool { return m.stale }

func (m *Manager) PhysicalSize() (int, int) { return m.cfg.PhysicalSize() }

func (m *Manager) Capturing() bool { return m.capturing }

// SetPixelRatio changes the live pixel ratio, clamped like at initialization.
func (m *Manager) SetPixelRatio(r float64) error {
	if m.disposed {
		return ErrDisposed
	}
	if m.capturing {
		return ErrCaptureActive
	}
	r = ClampPixelRatio(r)
	if r == m.cfg.PixelRatio {
		return nil
	}
	m.cfg.PixelRatio = r
	return m.reallocate()
}

// Resize applies a container size. Degenerate sizes are clamped to 1x1.
// Calling it again with the same size leaves the canvas untouched.
func (m *Manager) Resize(ev ResizeEvent) error {
	if m.disposed {
		return ErrDisposed
	}
	w, h := max(ev.Width, 1), max(ev.Height, 1)
	if m.capturing {
		// applied to the saved config so EndCapture restores the newest live size
		m.saved.Width, m.saved.Height = w, h
		return nil
	}
	m.cfg.Width, m.cfg.Height = w, h
	if m.aspect != nil {
		m.aspect.SetAspect(m.cfg.Aspect())
	}
	return m.reallocate()
}

// BeginCapture records the live config and switches to width x height at ratio 1.
// The camera aspect is left alone.
func (m *Manager) BeginCapture(width, height int) error {
	if m.disposed {
		return ErrDisposed
	}
	if m.capturing {
		return ErrCaptureActive
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("surface: invalid capture size %dx%d", width, height)
	}
	m.saved = m.cfg
	m.capturing = true
	m.cfg.PixelRatio = 1
	m.cfg.Width, m.cfg.Height = width, height
	if err := m.reallocate(); err != nil {
		if rerr := m.EndCapture(); rerr != nil {
			return errors.Join(err, rerr)
		}
		return fmt.Errorf("surface: allocate capture canvas: %w", err)
	}
	return nil
}

// EndCapture restores the config recorded by BeginCapture.
func (m *Manager) EndCapture() error {
	if !m.capturing {
		return ErrNoCapture
	}
	m.cfg = m.saved
	m.capturing = false
	if m.disposed {
		return nil
	}
	if m.aspect != nil {
		m.aspect.SetAspect(m.cfg.Aspect())
	}
	if err := m.reallocate(); err != nil {
		// never keep drawing into the capture-sized canvas
		if m.canvas != nil {
			m.canvas.Dispose()
			m.canvas = nil
		}
		m.stale = true
		return fmt.Errorf("surface: restore live canvas: %w", err)
	}
	return nil
}

// Refresh retries the live canvas allocation of a stale surface. It is a
// no-op otherwise and cheap enough to call every frame.
func (m *Manager) Refresh() error {
	if m.disposed {
		return ErrDisposed
	}
	if !m.stale || m.capturing {
		return nil
	}
	return m.reallocate()
}

// Capture runs fn against a width x height canvas and restores the live
// configuration whether or not fn succeeds.
func (m *Manager) Capture(width, height int, fn func(Canvas) error) (err error) {
	if err := m.BeginCapture(width, height); err != nil {
		return err
	}
	defer func() {
		if rerr := m.EndCapture(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn(m.canvas)
}

// Dispose releases the canvas. The manager is unusable afterwards.
func (m *Manager) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	if m.canvas != nil {
		m.canvas.Dispose()
		m.canvas = nil
	}
}

func (m *Manager) reallocate() error {
	w, h := m.cfg.PhysicalSize()
	if m.canvas != nil {
		b := m.canvas.Bounds()
		if b.Dx() == w && b.Dy() == h {
			return nil
		}
	}
	c, err := m.alloc.Allocate(w, h)
	if err != nil {
		return err
	}
	if m.canvas != nil {
		m.canvas.Dispose()
	}
	m.canvas = c
	m.stale = false
	return nil
}
