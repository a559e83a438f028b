package anim

import (
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iburimskiy/reality-check/internal/scene"
	"github.com/iburimskiy/reality-check/internal/surface"
)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time           { return f.t }
func (f *fakeTime) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeTime() *fakeTime {
	return &fakeTime{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func newScene(t *testing.T) *scene.Scene {
	t.Helper()
	sc, err := scene.Assemble(scene.NewRand(7), 4.0/3.0, scene.Counts{Streams: 16, Circuits: 4, Segments: 6, Stars: 16})
	require.NoError(t, err)
	return sc
}

func newScheduler(t *testing.T, ft *fakeTime) *Scheduler {
	t.Helper()
	opts := Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if ft != nil {
		opts.Now = ft.now
	}
	return New(newScene(t), opts)
}

func TestClockTick(t *testing.T) {
	ft := newFakeTime()
	c := NewClock(ft.now)

	e, d := c.Tick()
	assert.Zero(t, e)
	assert.Zero(t, d)

	ft.advance(250 * time.Millisecond)
	e, d = c.Tick()
	assert.InDelta(t, 0.25, e, 1e-9)
	assert.InDelta(t, 0.25, d, 1e-9)

	ft.advance(-time.Second)
	e, d = c.Tick()
	assert.InDelta(t, 0.25, e, 1e-9)
	assert.Zero(t, d)

	c.Reset()
	assert.Zero(t, c.Elapsed())
	ft.advance(time.Second)
	e, _ = c.Tick()
	assert.InDelta(t, 1.0, e, 1e-9)
}

func TestOpenness(t *testing.T) {
	tests := []struct {
		t, want float64
	}{
		{-1, 0},
		{0, 0},
		{1, 0.35},
		{2, 0.7},
		{3, 1},
		{10, 1},
		{1e9, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Openness(tt.t), 1e-12, "t=%v", tt.t)
	}
	assert.InDelta(t, 1, Openness(1/0.35), 1e-12)

	prev := 0.0
	for x := 0.0; x < 20; x += 0.01 {
		o := Openness(x)
		assert.GreaterOrEqual(t, o, prev)
		assert.LessOrEqual(t, o, 1.0)
		prev = o
	}
}

func TestAdvanceIsFrameRateIndependent(t *testing.T) {
	a := newScheduler(t, nil)
	b := newScheduler(t, nil)

	elapsed := 0.0
	for range 120 {
		elapsed += 0.02
		a.Advance(elapsed, 0.02)
	}
	elapsed = 0
	for range 60 {
		elapsed += 0.04
		b.Advance(elapsed, 0.04)
	}

	ap, as, ac := a.Spin()
	bp, bs, bc := b.Spin()
	assert.InDelta(t, ap, bp, 1e-12)
	assert.InDelta(t, as, bs, 1e-12)
	assert.InDelta(t, ac, bc, 1e-12)
	assert.InDelta(t, a.Rig().Progress, b.Rig().Progress, 1e-12)
	assert.True(t, a.Rig().Position.ApproxEqualThreshold(b.Rig().Position, 1e-9))
	assert.InDelta(t, 0.048, ap, 1e-9)
	assert.InDelta(t, -0.024, ac, 1e-9)
}

func TestAdvanceIsMonotonic(t *testing.T) {
	s := newScheduler(t, nil)
	var lastPlanet, lastProgress float64
	elapsed := 0.0
	for _, dt := range []float64{0, 0.016, 0.5, 0, 3, 0.001, -1} {
		elapsed += max(dt, 0)
		s.Advance(elapsed, dt)
		p, _, _ := s.Spin()
		assert.GreaterOrEqual(t, p, lastPlanet)
		assert.GreaterOrEqual(t, s.Rig().Progress, lastProgress)
		lastPlanet, lastProgress = p, s.Rig().Progress
	}
}

func TestProgressClamped(t *testing.T) {
	s := newScheduler(t, nil)
	s.Advance(1e6, 1e6)
	assert.Equal(t, 1.0, s.Rig().Progress)
	assert.Equal(t, 1.0, s.Rig().Smoothed)
	for range 10 {
		s.Advance(2e6, 1e5)
	}
	assert.Equal(t, 1.0, s.Rig().Progress)
	assert.False(t, s.Rig().Position.ApproxEqualThreshold(mgl64.Vec3{}, 1e-9))
}

func TestScenarioTenSeconds(t *testing.T) {
	ft := newFakeTime()
	s := newScheduler(t, ft)
	require.NoError(t, s.Start())

	start := s.Rig().Position
	for range 600 {
		ft.advance(time.Second / 60)
		require.NoError(t, s.Update())
	}

	assert.InDelta(t, 10, s.Clock().Elapsed(), 1e-5)
	assert.Equal(t, 1.0, s.Openness())
	planet, _, _ := s.Spin()
	assert.InDelta(t, 0.2, planet, 1e-6)

	sc := s.scene
	assert.InDelta(t, 0.2, sc.Planet.Rotation[1], 1e-5)
	assert.Equal(t, float32(1), sc.Eye.Material.Uniforms.Float(scene.UniformOpen))
	assert.InDelta(t, 10, sc.Planet.Material.Uniforms.Float(scene.UniformTime), 1e-4)

	before := start.Sub(RigTarget).Len()
	after := s.Rig().Position.Sub(RigTarget).Len()
	assert.Less(t, after, before)
	assert.Greater(t, after, 0.0)
	assert.Equal(t, float32(s.Rig().Position[2]), sc.Camera.Position[2])
	assert.Equal(t, vec32(RigLookAt), sc.Camera.Target())
}

func TestEyeNeverCloses(t *testing.T) {
	s := newScheduler(t, nil)
	s.Advance(5, 0.1)
	s.Advance(1, 0.1)
	assert.Equal(t, 1.0, s.Openness())
}

func TestTasksRunInOrderAtFrameStart(t *testing.T) {
	ft := newFakeTime()
	s := newScheduler(t, ft)

	var order []int
	require.NoError(t, s.Post(func() { order = append(order, 1) }))
	require.NoError(t, s.Start())
	require.NoError(t, s.Post(func() { order = append(order, 2) }))
	require.NoError(t, s.Post(func() {
		order = append(order, 3)
		assert.Zero(t, s.Frames(), "tasks run before the frame advances")
		require.NoError(t, s.Post(func() { order = append(order, 4) }))
	}))
	assert.Equal(t, 3, s.Pending())

	require.NoError(t, s.Update())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 1, s.Pending())

	require.NoError(t, s.Update())
	assert.Equal(t, []int{1, 2, 3, 4}, order)
	assert.Equal(t, uint64(2), s.Frames())
}

func TestStateMachine(t *testing.T) {
	s := newScheduler(t, newFakeTime())
	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.Update())
	assert.Zero(t, s.Frames(), "idle scheduler does not advance")

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Equal(t, Running, s.State())

	require.NoError(t, s.Post(func() {}))
	s.Stop()
	assert.Equal(t, Stopped, s.State())
	assert.Zero(t, s.Pending())
	assert.ErrorIs(t, s.Post(func() {}), ErrStopped)
	assert.ErrorIs(t, s.Update(), ErrStopped)
	assert.ErrorIs(t, s.Start(), ErrStopped)
	s.Stop()
	assert.Equal(t, "stopped", s.State().String())
}

func TestTaskCanStop(t *testing.T) {
	s := newScheduler(t, newFakeTime())
	require.NoError(t, s.Start())
	ran := false
	require.NoError(t, s.Post(s.Stop))
	require.NoError(t, s.Post(func() { ran = true }))
	require.NoError(t, s.Update())
	assert.False(t, ran)
	assert.Zero(t, s.Frames())
}

type fakeCanvas struct{ w, h int }

func (c *fakeCanvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.w, c.h) }
func (c *fakeCanvas) Fill(color.Color)        {}
func (c *fakeCanvas) Dispose()                {}

type fakeTarget struct {
	canvas *fakeCanvas
	cfg    surface.Config
}

func (f fakeTarget) Canvas() surface.Canvas  { return f.canvas }
func (f fakeTarget) Config() surface.Config { return f.cfg }

type fakeRenderer struct {
	calls int
	last  surface.Config
	err   error
}

func (r *fakeRenderer) Render(dst surface.Canvas, sc *scene.Scene, cfg surface.Config) error {
	r.calls++
	r.last = cfg
	return r.err
}

func TestRender(t *testing.T) {
	s := newScheduler(t, newFakeTime())
	r := &fakeRenderer{}
	target := fakeTarget{canvas: &fakeCanvas{w: 1600, h: 1200}, cfg: surface.Config{Width: 800, Height: 600, PixelRatio: 2}}

	assert.ErrorIs(t, s.Render(r, target), ErrNotRunning)
	require.NoError(t, s.Start())
	require.NoError(t, s.Render(r, target))
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 800, r.last.Width)

	boom := errors.New("shader compile failed")
	r.err = boom
	assert.ErrorIs(t, s.Render(r, target), boom)
}
