// Package chime plays a short synthesized tone when a capture is saved.
package chime

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

const (
	ringSize    = 4096
	levelWindow = 1024
	attack      = 5 * time.Millisecond
)

type Options struct {
	SampleRate int
	Frequency  float64
	Duration   time.Duration
	Volume     float64 // log2 gain, 0 is unchanged
}

// Chime owns the speaker. A nil *Chime is silent.
type Chime struct {
	rate beep.SampleRate
	opts Options
	tap  atomic.Pointer[Tap]
	log  *slog.Logger
}

// New initializes the speaker at the configured sample rate.
func New(opts Options, log *slog.Logger) (*Chime, error) {
	if opts.SampleRate <= 0 || opts.Duration <= 0 {
		return nil, fmt.Errorf("chime: invalid options %+v", opts)
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Chime{
		rate: beep.SampleRate(opts.SampleRate),
		opts: opts,
		log:  log.With("component", "chime"),
	}
	if err := speaker.Init(c.rate, c.rate.N(time.Second/20)); err != nil {
		return nil, fmt.Errorf("chime: init speaker: %w", err)
	}
	return c, nil
}

// Tone is a sine at freq lasting d, with a short linear attack and a
// quadratic release so it starts and ends at silence.
func Tone(sr beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	total := sr.N(d)
	rise := max(sr.N(attack), 1)
	step := 2 * math.Pi * freq / float64(sr)
	pos := 0
	osc := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			env := math.Min(1, float64(pos)/float64(rise))
			if total > 0 {
				tail := 1 - float64(pos)/float64(total)
				env *= math.Max(tail, 0) * math.Max(tail, 0)
			}
			v := math.Sin(step*float64(pos)) * env
			samples[i] = [2]float64{v, v}
			pos++
		}
		return len(samples), true
	})
	return beep.Take(total, osc)
}

// Play starts the tone, replacing one that is still sounding.
func (c *Chime) Play() {
	if c == nil {
		return
	}
	vol := &effects.Volume{
		Streamer: Tone(c.rate, c.opts.Frequency, c.opts.Duration),
		Base:     2,
		Volume:   c.opts.Volume,
	}
	tap := NewTap(vol, ringSize)
	c.tap.Store(tap)

	speaker.Clear()
	speaker.Play(beep.Seq(tap, beep.Callback(tap.Reset)))
	c.log.Debug("chime", "frequency", c.opts.Frequency, "duration", c.opts.Duration)
}

// Level follows the loudness of the sounding tone, 0 when silent.
func (c *Chime) Level() float64 {
	if c == nil {
		return 0
	}
	t := c.tap.Load()
	if t == nil {
		return 0
	}
	return t.Level(levelWindow)
}

func (c *Chime) Close() {
	if c == nil {
		return
	}
	speaker.Clear()
	speaker.Close()
}
