package bot

import (
	"math"
	"math/rand"
	"time"

	"github.com/ugaemi/hangout-server/internal/game"
)

// Pair moves two bots as a leader and a follower. Only the leader computes
// motion; the follower is re-anchored behind the leader every tick so the two
// never drift further apart than game.MaxBotSeparation.
type Pair struct {
	LeaderID   string
	FollowerID string
	world      game.World
	rng        *rand.Rand
}

// NewPair binds two bots through their PairedID fields. The bot holding the
// sound asset leads.
func NewPair(a, b *game.Entity, w game.World, rng *rand.Rand) *Pair {
	if !a.HasSoundAsset() && b.HasSoundAsset() {
		a, b = b, a
	}
	a.PairedID = b.ID
	b.PairedID = a.ID
	return &Pair{LeaderID: a.ID, FollowerID: b.ID, world: w, rng: rng}
}

// Tick advances the pair. A missing partner makes the tick a no-op.
func (p *Pair) Tick(now time.Time, lookup Lookup) []Update {
	leader := lookup(p.LeaderID)
	follower := lookup(p.FollowerID)
	if leader == nil || follower == nil {
		return nil
	}

	if game.DistanceBetween(leader, follower) > game.MaxBotSeparation {
		// Correction: snap without moving the leader.
		p.anchor(leader, follower, 0, 0)
	} else {
		slow := game.BotAcceleration / 2
		game.StepBot(leader, p.world, impulse(p.rng, slow), impulse(p.rng, slow))
		p.anchor(leader, follower, impulse(p.rng, game.PairJitter), impulse(p.rng, game.PairJitter))
	}

	return []Update{
		{ID: leader.ID, Moved: true, SpeakingRefreshed: KeepSpeaking(leader, now)},
		{ID: follower.ID, Moved: true, SpeakingRefreshed: KeepSpeaking(follower, now)},
	}
}

// anchor places the follower PairDistance behind the leader's heading, offset
// by (jx, jy), and copies the leader's velocity onto it.
func (p *Pair) anchor(leader, follower *game.Entity, jx, jy float64) {
	hx, hy := heading(leader, follower)
	x := leader.X - hx*game.PairDistance + jx
	y := leader.Y - hy*game.PairDistance + jy
	follower.X, follower.Y = p.world.ClampPosition(x, y)
	follower.VelocityX = leader.VelocityX
	follower.VelocityY = leader.VelocityY
}

// heading is the leader's unit direction of travel. A stationary leader
// faces away from its follower so the follower keeps its side.
func heading(leader, follower *game.Entity) (float64, float64) {
	if speed := math.Hypot(leader.VelocityX, leader.VelocityY); speed > game.StopEpsilon {
		return leader.VelocityX / speed, leader.VelocityY / speed
	}
	dx, dy := leader.X-follower.X, leader.Y-follower.Y
	if d := math.Hypot(dx, dy); d > game.StopEpsilon {
		return dx / d, dy / d
	}
	return 1, 0
}
