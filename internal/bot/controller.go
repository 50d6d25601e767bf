// Package bot drives the autonomous entities: standalone wanderers and
// leader/follower pairs. Controllers mutate live entities handed to them by
// the Runner, which holds the store's write lock for the whole tick.
package bot

import (
	"math/rand"
	"time"

	"github.com/ugaemi/hangout-server/internal/game"
)

// Lookup returns the live entity for an id, or nil.
type Lookup func(id string) *game.Entity

// Update reports what a controller changed on one entity during a tick.
type Update struct {
	ID                string
	Moved             bool
	SpeakingRefreshed bool
}

// Controller advances one or more bots by a tick.
type Controller interface {
	Tick(now time.Time, lookup Lookup) []Update
}

// KeepSpeaking enforces that a bot never silently stops speaking. It forces
// a silent bot back on and periodically restarts the audio clock of a
// speaking one. Returns true when clients need a fresh timestamp.
func KeepSpeaking(e *game.Entity, now time.Time) bool {
	if !e.IsSpeaking {
		e.StartSpeaking(now)
		return true
	}
	if now.Sub(e.LastSpeakingChange) > game.SpeakingRefresh {
		e.StartSpeaking(now)
		return true
	}
	return false
}

// Wanderer is a standalone bot doing an accelerating random walk.
type Wanderer struct {
	ID    string
	world game.World
	rng   *rand.Rand
}

// NewWanderer creates a controller for the bot with the given id.
func NewWanderer(id string, w game.World, rng *rand.Rand) *Wanderer {
	return &Wanderer{ID: id, world: w, rng: rng}
}

// Tick applies a random impulse and the speaking keepalive.
func (b *Wanderer) Tick(now time.Time, lookup Lookup) []Update {
	e := lookup(b.ID)
	if e == nil {
		return nil
	}

	game.StepBot(e, b.world, impulse(b.rng, game.BotAcceleration), impulse(b.rng, game.BotAcceleration))

	return []Update{{
		ID:                e.ID,
		Moved:             true,
		SpeakingRefreshed: KeepSpeaking(e, now),
	}}
}

// impulse returns a uniform value in [-scale, scale].
func impulse(rng *rand.Rand, scale float64) float64 {
	return (rng.Float64()*2 - 1) * scale
}
