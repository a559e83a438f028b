package anim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/iburimskiy/reality-check/internal/config"
	"github.com/iburimskiy/reality-check/internal/scene"
	"github.com/iburimskiy/reality-check/internal/surface"
)

var (
	// ErrStopped is returned once the scheduler has been torn down.
	ErrStopped = errors.New("anim: scheduler stopped")
	// ErrNotRunning is returned by Render before Start.
	ErrNotRunning = errors.New("anim: scheduler not running")
)

type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Renderer draws the scene into a canvas under the given surface config.
type Renderer interface {
	Render(dst surface.Canvas, sc *scene.Scene, cfg surface.Config) error
}

// Target is the surface a frame is rendered into. *surface.Manager satisfies it.
type Target interface {
	Canvas() surface.Canvas
	Config() surface.Config
}

type Options struct {
	Now    func() time.Time
	Logger *slog.Logger
}

// Scheduler owns the clock and camera rig and mutates the scene once per frame.
// All methods must be called from the frame goroutine.
type Scheduler struct {
	scene *scene.Scene
	clock *Clock
	rig   *Rig
	log   *slog.Logger

	state State
	tasks []func()

	openness    float64
	planetSpin  float64
	starSpin    float64
	circuitSpin float64
	frames      uint64
}

func New(sc *scene.Scene, opts Options) *Scheduler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		scene: sc,
		clock: NewClock(opts.Now),
		rig:   NewRig(),
		log:   log.With("component", "anim"),
	}
}

// Openness is how far the eye has opened at elapsed time t.
func Openness(t float64) float64 {
	if t <= 0 || math.IsNaN(t) {
		return 0
	}
	return math.Min(1, t*config.EyeOpenRate)
}

func (s *Scheduler) State() State { return s.state }

func (s *Scheduler) Clock() *Clock { return s.clock }

func (s *Scheduler) Rig() *Rig { return s.rig }

func (s *Scheduler) Openness() float64 { return s.openness }

func (s *Scheduler) Frames() uint64 { return s.frames }

// Spin returns the accumulated Y rotations of the planet, stars and circuits.
func (s *Scheduler) Spin() (planet, stars, circuits float64) {
	return s.planetSpin, s.starSpin, s.circuitSpin
}

// Start resets the clock and enters Running. A stopped scheduler cannot restart.
func (s *Scheduler) Start() error {
	switch s.state {
	case Running:
		return nil
	case Stopped:
		return ErrStopped
	}
	s.clock.Reset()
	s.rig.Apply(s.scene.Camera)
	s.state = Running
	s.log.Info("animation started")
	return nil
}

// Stop tears the loop down and drops any queued tasks.
func (s *Scheduler) Stop() {
	if s.state == Stopped {
		return
	}
	if n := len(s.tasks); n > 0 {
		s.log.Debug("dropping queued tasks", "count", n)
	}
	s.tasks = nil
	s.state = Stopped
	s.log.Info("animation stopped", "frames", s.frames, "elapsed", s.clock.Elapsed())
}

// Post queues task to run at the start of the next Update.
func (s *Scheduler) Post(task func()) error {
	if s.state == Stopped {
		return ErrStopped
	}
	if task != nil {
		s.tasks = append(s.tasks, task)
	}
	return nil
}

// Pending reports how many tasks wait for the next frame boundary.
func (s *Scheduler) Pending() int { return len(s.tasks) }

// Update runs the queued tasks in order, then advances one frame.
func (s *Scheduler) Update() error {
	switch s.state {
	case Stopped:
		return ErrStopped
	case Idle:
		return nil
	}
	s.drain()
	if s.state != Running {
		return nil
	}
	elapsed, dt := s.clock.Tick()
	s.Advance(elapsed, dt)
	return nil
}

func (s *Scheduler) drain() {
	// tasks posted while draining wait for the next frame
	tasks := s.tasks
	s.tasks = nil
	for _, task := range tasks {
		task()
		if s.state == Stopped {
			return
		}
	}
}

// Advance applies one frame at elapsed seconds, dt seconds after the last.
func (s *Scheduler) Advance(elapsed, dt float64) {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	for _, b := range s.scene.TimeBindings() {
		b.Set(float32(elapsed))
	}

	s.openness = math.Max(s.openness, Openness(elapsed))
	if s.scene.Eye != nil {
		s.scene.Eye.Material.Uniforms.SetFloat(scene.UniformOpen, float32(s.openness))
	}

	s.planetSpin += config.PlanetSpin * dt
	s.starSpin += config.StarSpin * dt
	s.circuitSpin += config.CircuitSpin * dt
	setYaw(s.scene.Planet, s.planetSpin)
	setYaw(s.scene.Stars, s.starSpin)
	setYaw(s.scene.Circuits, s.circuitSpin)

	s.rig.Step(dt)
	s.rig.Apply(s.scene.Camera)
	s.frames++
}

func setYaw(o *scene.Object, a float64) {
	if o != nil {
		o.Rotation[1] = float32(a)
	}
}

// Render issues one render of the scene into t.
func (s *Scheduler) Render(r Renderer, t Target) error {
	if s.state != Running {
		return ErrNotRunning
	}
	if err := r.Render(t.Canvas(), s.scene, t.Config()); err != nil {
		return fmt.Errorf("render frame %d: %w", s.frames, err)
	}
	return nil
}
