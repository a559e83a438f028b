// Package anim drives the per-frame animation: the clock, the camera rig,
// the time uniforms and object spins, and the queue of work deferred to
// the next frame boundary.
package anim

import "time"

// Clock measures elapsed seconds since Reset and the step between ticks.
// It never runs backwards: a wall clock that jumps back yields a zero delta.
type Clock struct {
	now     func() time.Time
	start   time.Time
	last    time.Time
	started bool
	elapsed float64
	delta   float64
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Reset restarts the clock at zero.
func (c *Clock) Reset() {
	c.start = c.now()
	c.last = c.start
	c.started = true
	c.elapsed = 0
	c.delta = 0
}

// Tick advances the clock and returns the new elapsed time and delta.
// The first Tick after construction starts the clock and reports zero.
func (c *Clock) Tick() (elapsed, delta float64) {
	if !c.started {
		c.Reset()
		return 0, 0
	}
	t := c.now()
	d := t.Sub(c.last).Seconds()
	if d < 0 {
		d = 0
	} else {
		c.last = t
	}
	c.delta = d
	c.elapsed += d
	return c.elapsed, c.delta
}

func (c *Clock) Elapsed() float64 { return c.elapsed }

func (c *Clock) Delta() float64 { return c.delta }
