// Package capture renders one frame at a fixed high resolution, encodes it
// as PNG and hands it to a sink, leaving the live surface as it found it.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/iburimskiy/reality-check/internal/config"
	"github.com/iburimskiy/reality-check/internal/scene"
	"github.com/iburimskiy/reality-check/internal/surface"
)

var (
	// ErrCanceled is returned when the user dismisses the save prompt.
	ErrCanceled = errors.New("capture: canceled")
	// ErrBusy is returned when a capture is requested while one is running.
	ErrBusy = errors.New("capture: already running")
)

// Request is the size of one capture.
type Request struct {
	Width  int
	Height int
}

// DefaultRequest is the 8K frame.
func DefaultRequest() Request {
	return Request{Width: config.CaptureWidth, Height: config.CaptureHeight}
}

type Renderer interface {
	Render(dst surface.Canvas, sc *scene.Scene, cfg surface.Config) error
}

// Extractor reads a canvas back into CPU memory.
type Extractor interface {
	Extract(src surface.Canvas) (*image.RGBA, error)
}

// Sink receives the encoded image and reports where it ended up.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Result describes a finished capture.
type Result struct {
	Path    string
	Width   int
	Height  int
	Size    int
	Elapsed time.Duration
}

type Options struct {
	Request  Request
	Filename string
	Logger   *slog.Logger
	Now      func() time.Time
}

type Capturer struct {
	surface   *surface.Manager
	scene     *scene.Scene
	renderer  Renderer
	extractor Extractor
	sink      Sink

	req  Request
	name string
	log  *slog.Logger
	now  func() time.Time
	busy bool
}

func New(m *surface.Manager, sc *scene.Scene, r Renderer, x Extractor, sink Sink, opts Options) (*Capturer, error) {
	switch {
	case m == nil:
		return nil, errors.New("capture: nil surface")
	case sc == nil:
		return nil, errors.New("capture: nil scene")
	case r == nil || x == nil:
		return nil, errors.New("capture: nil renderer or extractor")
	case sink == nil:
		return nil, errors.New("capture: nil sink")
	}
	c := &Capturer{
		surface:   m,
		scene:     sc,
		renderer:  r,
		extractor: x,
		sink:      sink,
		req:       opts.Request,
		name:      opts.Filename,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if c.req.Width <= 0 || c.req.Height <= 0 {
		c.req = DefaultRequest()
	}
	if c.name == "" {
		c.name = config.CaptureFilename
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("component", "capture")
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

func (c *Capturer) Request() Request { return c.req }

func (c *Capturer) Filename() string { return c.name }

// Capture renders the scene once at the request size with the live camera,
// restores the surface, then encodes and saves the frame.
func (c *Capturer) Capture(ctx context.Context) (Result, error) {
	if c.busy {
		return Result{}, ErrBusy
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	c.busy = true
	defer func() { c.busy = false }()

	start := c.now()
	live := c.surface.Config()
	c.log.Info("capture begin", "width", c.req.Width, "height", c.req.Height,
		"live_width", live.Width, "live_height", live.Height, "pixel_ratio", live.PixelRatio)

	var img *image.RGBA
	err := c.surface.Capture(c.req.Width, c.req.Height, func(dst surface.Canvas) error {
		if err := c.renderer.Render(dst, c.scene, c.surface.Config()); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		var err error
		img, err = c.extractor.Extract(dst)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		if b := img.Bounds(); b.Dx() != c.req.Width || b.Dy() != c.req.Height {
			return fmt.Errorf("extract: got %dx%d, want %dx%d", b.Dx(), b.Dy(), c.req.Width, c.req.Height)
		}
		return nil
	})
	if err != nil {
		c.log.Error("capture failed", "err", err)
		return Result{}, fmt.Errorf("capture: %w", err)
	}

	data, err := Encode(img)
	if err != nil {
		c.log.Error("capture encode failed", "err", err)
		return Result{}, fmt.Errorf("capture: %w", err)
	}

	path, err := c.sink.Save(ctx, c.name, data)
	if errors.Is(err, ErrCanceled) {
		c.log.Info("capture save canceled")
		return Result{}, ErrCanceled
	}
	if err != nil {
		c.log.Error("capture save failed", "err", err)
		return Result{}, fmt.Errorf("capture: save: %w", err)
	}

	res := Result{
		Path:    path,
		Width:   c.req.Width,
		Height:  c.req.Height,
		Size:    len(data),
		Elapsed: c.now().Sub(start),
	}
	c.log.Info("capture end", "path", res.Path, "bytes", res.Size, "elapsed", res.Elapsed)
	return res, nil
}

// Encode writes img as PNG. Large frames favor speed over size.
func Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("encode: nil image")
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
