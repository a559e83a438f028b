package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iburimskiy/reality-check/internal/anim"
	"github.com/iburimskiy/reality-check/internal/scene"
	"github.com/iburimskiy/reality-check/internal/surface"
)

type fakeCanvas struct {
	w, h     int
	disposed bool
}

func (c *fakeCanvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.w, c.h) }
func (c *fakeCanvas) Fill(color.Color)        {}
func (c *fakeCanvas) Dispose()                { c.disposed = true }

func allocator() surface.Allocator {
	return surface.AllocatorFunc(func(w, h int) (surface.Canvas, error) {
		return &fakeCanvas{w: w, h: h}, nil
	})
}

type fakeRenderer struct {
	configs []surface.Config
	aspects []float32
	hook    func()
	err     error
}

func (r *fakeRenderer) Render(dst surface.Canvas, sc *scene.Scene, cfg surface.Config) error {
	r.configs = append(r.configs, cfg)
	r.aspects = append(r.aspects, sc.Camera.Aspect)
	if r.hook != nil {
		r.hook()
	}
	return r.err
}

type fakeExtractor struct {
	err    error
	shrink bool
}

func (x fakeExtractor) Extract(src surface.Canvas) (*image.RGBA, error) {
	if x.err != nil {
		return nil, x.err
	}
	b := src.Bounds()
	if x.shrink {
		b = image.Rect(0, 0, b.Dx()/2, b.Dy()/2)
	}
	img := image.NewRGBA(b)
	img.Set(0, 0, color.RGBA{R: 3, G: 4, B: 10, A: 255})
	return img, nil
}

type memSink struct {
	name  string
	data  []byte
	err   error
	calls int
}

func (s *memSink) Save(_ context.Context, name string, data []byte) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	s.name, s.data = name, data
	return "/tmp/" + name, nil
}

type fixture struct {
	surface  *surface.Manager
	scene    *scene.Scene
	renderer *fakeRenderer
	sink     *memSink
	capturer *Capturer
}

func newFixture(t *testing.T, w, h int, ratio float64, x Extractor) *fixture {
	t.Helper()
	m, err := surface.New(allocator(), surface.Options{Width: w, Height: h, PixelRatio: ratio, Exposure: 1.2})
	require.NoError(t, err)
	sc, err := scene.Assemble(scene.NewRand(3), 1, scene.Counts{Streams: 8, Circuits: 2, Segments: 4, Stars: 8})
	require.NoError(t, err)
	m.Bind(sc.Camera)

	f := &fixture{surface: m, scene: sc, renderer: &fakeRenderer{}, sink: &memSink{}}
	f.capturer, err = New(m, sc, f.renderer, x, f.sink, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return f
}

func TestCaptureAtFiveSeconds(t *testing.T) {
	f := newFixture(t, 800, 600, 2, fakeExtractor{})
	sched := anim.New(f.scene, anim.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	for i := 1; i <= 50; i++ {
		sched.Advance(float64(i)*0.1, 0.1)
	}
	before := f.surface.Config()
	camPos := f.scene.Camera.Position

	res, err := f.capturer.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7680, res.Width)
	assert.Equal(t, 4320, res.Height)
	assert.Equal(t, "ai-reality-check-8k.png", f.sink.name)
	assert.Equal(t, "/tmp/ai-reality-check-8k.png", res.Path)
	assert.Equal(t, len(f.sink.data), res.Size)

	cfg, err := png.DecodeConfig(bytes.NewReader(f.sink.data))
	require.NoError(t, err)
	assert.Equal(t, 7680, cfg.Width)
	assert.Equal(t, 4320, cfg.Height)

	require.Len(t, f.renderer.configs, 1)
	assert.Equal(t, 7680, f.renderer.configs[0].Width)
	assert.Equal(t, 1.0, f.renderer.configs[0].PixelRatio)
	assert.InDelta(t, 800.0/600.0, f.renderer.aspects[0], 1e-6, "capture keeps the live camera projection")

	after := f.surface.Config()
	assert.Equal(t, before, after)
	assert.Equal(t, 800, after.Width)
	assert.Equal(t, 600, after.Height)
	assert.Equal(t, 2.0, after.PixelRatio)
	assert.Equal(t, 1600, f.surface.Canvas().Bounds().Dx())
	assert.Equal(t, camPos, f.scene.Camera.Position)
}

func TestCaptureRestoresOnExtractionFailure(t *testing.T) {
	boom := errors.New("readback lost")
	f := newFixture(t, 1024, 768, 1.5, fakeExtractor{err: boom})
	before := f.surface.Config()

	_, err := f.capturer.Capture(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, f.surface.Config())
	assert.False(t, f.surface.Capturing())
	assert.Zero(t, f.sink.calls)
}

func TestCaptureRejectsWrongSize(t *testing.T) {
	f := newFixture(t, 640, 480, 1, fakeExtractor{shrink: true})
	before := f.surface.Config()
	_, err := f.capturer.Capture(context.Background())
	assert.Error(t, err)
	assert.Equal(t, before, f.surface.Config())
}

func TestCaptureRenderFailure(t *testing.T) {
	f := newFixture(t, 640, 480, 1, fakeExtractor{})
	f.renderer.err = errors.New("shader")
	_, err := f.capturer.Capture(context.Background())
	assert.ErrorContains(t, err, "render")
	assert.Equal(t, 640, f.surface.Config().Width)
}

func TestCaptureCanceled(t *testing.T) {
	f := newFixture(t, 800, 600, 2, fakeExtractor{})
	f.sink.err = ErrCanceled
	before := f.surface.Config()

	_, err := f.capturer.Capture(context.Background())
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Equal(t, before, f.surface.Config())
}

func TestCaptureBusy(t *testing.T) {
	f := newFixture(t, 320, 240, 1, fakeExtractor{})
	var inner error
	f.renderer.hook = func() {
		_, inner = f.capturer.Capture(context.Background())
	}
	_, err := f.capturer.Capture(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrBusy)

	f.renderer.hook = nil
	_, err = f.capturer.Capture(context.Background())
	assert.NoError(t, err)
}

func TestCaptureContextDone(t *testing.T) {
	f := newFixture(t, 320, 240, 1, fakeExtractor{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.capturer.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.renderer.configs)
}

func TestNewDefaults(t *testing.T) {
	f := newFixture(t, 10, 10, 1, fakeExtractor{})
	assert.Equal(t, DefaultRequest(), f.capturer.Request())
	assert.Equal(t, "ai-reality-check-8k.png", f.capturer.Filename())

	_, err := New(nil, f.scene, f.renderer, fakeExtractor{}, f.sink, Options{})
	assert.Error(t, err)
	_, err = New(f.surface, f.scene, f.renderer, fakeExtractor{}, nil, Options{})
	assert.Error(t, err)
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	path, err := DirSink{Dir: dir}.Save(context.Background(), "frame.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "frame.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	_, err = DirSink{Dir: dir}.Save(context.Background(), "../escape.png", nil)
	assert.Error(t, err)
	_, err = DirSink{Dir: dir}.Save(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	data, err := Encode(img)
	require.NoError(t, err)
	back, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, _, _, a := back.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)
}
