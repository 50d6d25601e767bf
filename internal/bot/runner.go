package bot

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/ugaemi/hangout-server/internal/game"
	"github.com/ugaemi/hangout-server/internal/world"
	"github.com/ugaemi/hangout-server/internal/ws"
)

// Broadcaster delivers a message to every connected client.
type Broadcaster interface {
	Broadcast(msg ws.Message)
}

// Runner ticks every controller against the store and broadcasts the
// resulting deltas.
type Runner struct {
	store       *world.Store
	out         Broadcaster
	controllers []Controller
}

// NewRunner creates a runner with no controllers.
func NewRunner(store *world.Store, out Broadcaster) *Runner {
	return &Runner{store: store, out: out}
}

// Add registers a controller.
func (r *Runner) Add(c Controller) {
	r.controllers = append(r.controllers, c)
}

// Tick advances all bots once. The whole tick runs under the store lock;
// messages are broadcast after the lock is released.
func (r *Runner) Tick(now time.Time) {
	var msgs []ws.Message

	r.store.WithEntities(func(lookup func(id string) *game.Entity) {
		for _, c := range r.controllers {
			for _, u := range c.Tick(now, lookup) {
				e := lookup(u.ID)
				if e == nil {
					continue
				}
				if u.Moved {
					msg, err := ws.NewMessage(ws.TypePlayerMoved, ws.NewMovedPayload(e))
					if err != nil {
						slog.Error("failed to build bot move", "bot", e.ID, "error", err)
						continue
					}
					msgs = append(msgs, msg)
				}
				if u.SpeakingRefreshed {
					msg, err := ws.NewMessage(ws.TypePlayerSpeaking, ws.SpeakingPayload{
						ID:         e.ID,
						IsSpeaking: true,
						Timestamp:  e.AudioStartTime,
					})
					if err != nil {
						slog.Error("failed to build bot speaking", "bot", e.ID, "error", err)
						continue
					}
					msgs = append(msgs, msg)
					slog.Debug("bot audio clock refreshed", "bot", e.ID, "timestamp", e.AudioStartTime)
				}
			}
		}
	})

	for _, msg := range msgs {
		r.out.Broadcast(msg)
	}
}

// SpawnConfig describes the bots created at startup.
type SpawnConfig struct {
	Wanderers int
	Pairs     int
	Name      string
	SoundFile string
	Image     string
}

// Spawn creates the configured bots in the store and registers their
// controllers. Bots live until the process exits.
func (r *Runner) Spawn(cfg SpawnConfig, now time.Time, rng *rand.Rand) {
	w := r.store.World()

	newBot := func(name, sound string) *game.Entity {
		b := game.NewBot(w, name, sound, now)
		if cfg.Image != "" {
			img := cfg.Image
			b.CustomImage = &img
		}
		return b
	}

	for i := 0; i < cfg.Wanderers; i++ {
		b := newBot(cfg.Name, cfg.SoundFile)
		r.store.Add(b)
		r.Add(NewWanderer(b.ID, w, rng))
		slog.Info("bot created", "bot", b.ID, "kind", "wanderer")
	}

	for i := 0; i < cfg.Pairs; i++ {
		leader := newBot(cfg.Name+" Lead", cfg.SoundFile)
		follower := newBot(cfg.Name+" Sidekick", "")
		pair := NewPair(leader, follower, w, rng)
		// Start together so the first tick does not need a correction.
		follower.X, follower.Y = w.ClampPosition(leader.X-game.PairDistance, leader.Y)
		r.store.Add(leader)
		r.store.Add(follower)
		r.Add(pair)
		slog.Info("bot pair created", "leader", leader.ID, "follower", follower.ID)
	}
}
