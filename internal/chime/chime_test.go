package chime

import (
	"math"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(s beep.Streamer, chunk int) [][2]float64 {
	var out [][2]float64
	buf := make([][2]float64, chunk)
	for {
		n, ok := s.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok || n == 0 {
			return out
		}
	}
}

func TestToneLengthAndEnvelope(t *testing.T) {
	sr := beep.SampleRate(44100)
	samples := drain(Tone(sr, 880, 120*time.Millisecond), 512)
	require.Len(t, samples, sr.N(120*time.Millisecond))

	assert.Zero(t, samples[0][0])
	peak := 0.0
	for _, s := range samples {
		assert.Equal(t, s[0], s[1])
		assert.LessOrEqual(t, math.Abs(s[0]), 1.0)
		peak = math.Max(peak, math.Abs(s[0]))
	}
	assert.Greater(t, peak, 0.5)
	assert.Less(t, math.Abs(samples[len(samples)-1][0]), 1e-3)
}

func counter() beep.Streamer {
	i := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for k := range samples {
			i++
			samples[k] = [2]float64{float64(i), float64(i)}
		}
		return len(samples), true
	})
}

func TestTapKeepsMostRecent(t *testing.T) {
	tap := NewTap(counter(), 8)
	assert.Empty(t, tap.Snapshot(4))

	buf := make([][2]float64, 5)
	for range 4 {
		tap.Stream(buf)
	}
	got := tap.Snapshot(3)
	assert.Equal(t, [][2]float64{{18, 18}, {19, 19}, {20, 20}}, got)
	assert.Len(t, tap.Snapshot(100), 8)
	assert.Equal(t, float64(13), tap.Snapshot(100)[0][0])

	tap.Reset()
	assert.Empty(t, tap.Snapshot(8))
	assert.NoError(t, tap.Err())
}

func TestTapLevel(t *testing.T) {
	silent := NewTap(beep.Silence(-1), 16)
	silent.Stream(make([][2]float64, 16))
	assert.Zero(t, silent.Level(16))

	full := NewTap(beep.StreamerFunc(func(s [][2]float64) (int, bool) {
		for i := range s {
			s[i] = [2]float64{1, 1}
		}
		return len(s), true
	}), 16)
	full.Stream(make([][2]float64, 16))
	assert.InDelta(t, 1, full.Level(16), 1e-12)

	tone := NewTap(Tone(44100, 440, 50*time.Millisecond), 1024)
	tone.Stream(make([][2]float64, 1024))
	lvl := tone.Level(1024)
	assert.Greater(t, lvl, 0.0)
	assert.Less(t, lvl, 1.0)
}

func TestNilChimeIsSilent(t *testing.T) {
	var c *Chime
	c.Play()
	c.Close()
	assert.Zero(t, c.Level())
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{SampleRate: 0, Duration: time.Second}, nil)
	assert.Error(t, err)
	_, err = New(Options{SampleRate: 44100}, nil)
	assert.Error(t, err)
}
