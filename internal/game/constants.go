package game

import "time"

// World dimensions (pixels)
const (
	WorldWidth  = 10000
	WorldHeight = 10000
)

// Movement
const (
	EntityRadius = 30.0 // pixels
	Acceleration = 0.5  // velocity gained per input tick
	Friction     = 0.9  // velocity multiplier per tick (1 = no friction)
	MaxVelocity  = 8.0  // per-axis velocity cap
	StopEpsilon  = 0.01 // velocities below this snap to zero
)

// Bot movement
const (
	BotAcceleration  = 0.3
	BotMaxVelocity   = 3.0
	BotFriction      = 0.95
	BotBounceDamping = 0.5 // fraction of velocity kept when reflecting off a wall
)

// Paired bots
const (
	MaxBotSeparation = 150.0 // hard ceiling between leader and follower
	PairDistance     = 60.0  // ideal follower offset behind the leader
	PairJitter       = 10.0  // max random offset per axis when re-anchoring
)

// Bot speaking
const (
	// SpeakingRefresh bounds client playback drift from accumulated clock skew.
	SpeakingRefresh = 2250 * time.Second // 37.5 minutes
	BotTickInterval = 100 * time.Millisecond
)

// Appearance
const (
	DefaultMaxImageBytes = 1_000_000
	DefaultBotColor      = "#FF5733"
)

// Voice
const (
	MaxVoiceDistance = 250.0 // gain reaches zero at this distance
)
