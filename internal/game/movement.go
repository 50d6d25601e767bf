package game

import "math"

// Distance calculates the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceBetween returns the distance between two entities.
func DistanceBetween(a, b *Entity) float64 {
	return Distance(a.X, a.Y, b.X, b.Y)
}

// ApplyMovement advances an entity by one tick of player physics: the
// acceleration is added to the velocity, velocity is capped per axis,
// position integrates, friction decays velocity, and position is clamped to
// the world. A clamped axis loses its velocity component (inelastic wall).
func ApplyMovement(e *Entity, w World, ax, ay float64) {
	e.VelocityX = clampVelocity(e.VelocityX+finite(ax), MaxVelocity)
	e.VelocityY = clampVelocity(e.VelocityY+finite(ay), MaxVelocity)

	e.X += e.VelocityX
	e.Y += e.VelocityY

	e.VelocityX = settle(e.VelocityX * Friction)
	e.VelocityY = settle(e.VelocityY * Friction)

	x, y := w.ClampPosition(e.X, e.Y)
	if x != e.X {
		e.VelocityX = 0
	}
	if y != e.Y {
		e.VelocityY = 0
	}
	e.X, e.Y = x, y
}

// SetVelocity replaces the velocity directly, capped per axis.
func SetVelocity(e *Entity, vx, vy float64) {
	e.VelocityX = clampVelocity(finite(vx), MaxVelocity)
	e.VelocityY = clampVelocity(finite(vy), MaxVelocity)
}

// StepBot advances a bot by one tick: impulse, bot velocity cap, integrate,
// friction, then a damped reflection off any wall it hit.
func StepBot(e *Entity, w World, ax, ay float64) {
	e.VelocityX = clampVelocity(e.VelocityX+finite(ax), BotMaxVelocity)
	e.VelocityY = clampVelocity(e.VelocityY+finite(ay), BotMaxVelocity)

	e.X += e.VelocityX
	e.Y += e.VelocityY

	e.VelocityX *= BotFriction
	e.VelocityY *= BotFriction

	Bounce(e, w, BotBounceDamping)
}

// Bounce clamps the entity into the world and reflects the velocity of every
// clamped axis back inward, keeping only damping of its magnitude.
func Bounce(e *Entity, w World, damping float64) {
	x, y := w.ClampPosition(e.X, e.Y)
	if x != e.X {
		speed := math.Abs(e.VelocityX) * damping
		if x > e.X {
			e.VelocityX = speed
		} else {
			e.VelocityX = -speed
		}
	}
	if y != e.Y {
		speed := math.Abs(e.VelocityY) * damping
		if y > e.Y {
			e.VelocityY = speed
		} else {
			e.VelocityY = -speed
		}
	}
	e.X, e.Y = x, y
}

func clampVelocity(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func settle(v float64) float64 {
	if math.Abs(v) < StopEpsilon {
		return 0
	}
	return v
}

func finite(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
