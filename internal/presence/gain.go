package presence

import (
	"math"
	"time"

	"github.com/ugaemi/hangout-server/internal/game"
)

// RampDuration is how long a gain change takes to settle.
const RampDuration = 200 * time.Millisecond

// Gain maps a distance to a voice gain with quadratic falloff: 1 at zero
// distance, 0 at and beyond game.MaxVoiceDistance.
func Gain(distance float64) float64 {
	g := 1 - (distance/game.MaxVoiceDistance)*(distance/game.MaxVoiceDistance)
	switch {
	case math.IsNaN(g), g < 0:
		return 0
	case g > 1:
		return 1
	}
	return g
}

// Ramp moves a gain linearly toward its target so level changes never step.
type Ramp struct {
	from, to float64
	start    time.Time
	dur      time.Duration
}

// NewRamp creates a ramp resting at initial.
func NewRamp(initial float64) *Ramp {
	return &Ramp{from: initial, to: initial, dur: RampDuration}
}

// Set starts a transition from the current level to target.
func (r *Ramp) Set(target float64, now time.Time) {
	if target == r.to {
		return
	}
	r.from = r.Value(now)
	r.to = target
	r.start = now
}

// Value returns the level at now.
func (r *Ramp) Value(now time.Time) float64 {
	elapsed := now.Sub(r.start)
	if r.dur <= 0 || elapsed >= r.dur {
		return r.to
	}
	if elapsed <= 0 {
		return r.from
	}
	frac := float64(elapsed) / float64(r.dur)
	return r.from + (r.to-r.from)*frac
}

// Target returns the level the ramp is heading to.
func (r *Ramp) Target() float64 {
	return r.to
}

// Mixer keeps one ramp per peer. It is not safe for concurrent use; drive
// it from the audio loop.
type Mixer struct {
	ramps map[string]*Ramp
}

// NewMixer creates an empty mixer.
func NewMixer() *Mixer {
	return &Mixer{ramps: make(map[string]*Ramp)}
}

// Update retargets every peer in gains. New peers fade in from silence.
func (m *Mixer) Update(gains map[string]float64, now time.Time) {
	for id, g := range gains {
		r, ok := m.ramps[id]
		if !ok {
			r = NewRamp(0)
			m.ramps[id] = r
		}
		r.Set(g, now)
	}
}

// Level returns the current gain for a peer, 0 if unknown.
func (m *Mixer) Level(id string, now time.Time) float64 {
	r, ok := m.ramps[id]
	if !ok {
		return 0
	}
	return r.Value(now)
}

// Release drops a peer's ramp. It satisfies PeerReleaser.
func (m *Mixer) Release(id string) {
	delete(m.ramps, id)
}
