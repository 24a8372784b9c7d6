package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Key is one directional input
type Key uint8

const (
	KeyUp Key = 1 << iota
	KeyDown
	KeyLeft
	KeyRight
)

// KeySet is the set of directional keys currently held
type KeySet uint8

// Has reports whether k is held
func (s KeySet) Has(k Key) bool {
	return s&KeySet(k) != 0
}

// With returns s with k held
func (s KeySet) With(k Key) KeySet {
	return s | KeySet(k)
}

// Without returns s with k released
func (s KeySet) Without(k Key) KeySet {
	return s &^ KeySet(k)
}

// KeyFromName maps browser-style key names to directional keys
func KeyFromName(name string) (Key, bool) {
	switch name {
	case "ArrowUp", "w", "W":
		return KeyUp, true
	case "ArrowDown", "s", "S":
		return KeyDown, true
	case "ArrowLeft", "a", "A":
		return KeyLeft, true
	case "ArrowRight", "d", "D":
		return KeyRight, true
	}
	return 0, false
}

// AxisStep returns the unrotated per-frame step for the held keys.
// Opposing keys cancel.
func AxisStep(keys KeySet, speed float64) mgl64.Vec3 {
	var step mgl64.Vec3
	if keys.Has(KeyLeft) != keys.Has(KeyRight) {
		if keys.Has(KeyLeft) {
			step[0] = -speed
		} else {
			step[0] = speed
		}
	}
	if keys.Has(KeyUp) != keys.Has(KeyDown) {
		if keys.Has(KeyUp) {
			step[2] = -speed
		} else {
			step[2] = speed
		}
	}
	return step
}

// MovementResolver turns held keys into actor displacement
type MovementResolver struct {
	Speed       float64
	HalfExtents mgl64.Vec3
	Obstacles   *ObstacleSpace // nil disables obstacle checks
}

// ActorBox returns the actor's bounding box at p. p is the feet position.
func (m *MovementResolver) ActorBox(p mgl64.Vec3) Box3 {
	c := p.Add(mgl64.Vec3{0, m.HalfExtents.Y(), 0})
	return BoxAround(c, m.HalfExtents)
}

// Step computes the displacement for one frame without applying it.
// Obstacles the actor already overlaps are ignored so it can walk out of them.
func (m *MovementResolver) Step(actor *Actor, keys KeySet) mgl64.Vec3 {
	step := AxisStep(keys, m.Speed)
	if step.Len() == 0 {
		return step
	}
	step = actor.Facing.Rotate(step)

	if m.Obstacles == nil {
		return step
	}
	current := m.ActorBox(actor.Position)
	predicted := m.ActorBox(actor.Position.Add(step))
	for _, ob := range m.Obstacles.Overlapping(predicted) {
		// an obstacle the actor already stands in never holds it there
		if current.Intersects(ob.Bounds()) {
			continue
		}
		c := ob.Bounds().Center()
		sep := normalizeOr(ground(actor.Position.Sub(c)), mgl64.Vec3{})
		if math.Abs(sep.X()) > math.Abs(sep.Z()) {
			step[0] = 0
		} else {
			step[2] = 0
		}
	}
	return step
}

// Resolve moves the actor for one frame and returns the applied step
func (m *MovementResolver) Resolve(actor *Actor, keys KeySet) mgl64.Vec3 {
	step := m.Step(actor, keys)
	actor.Position = actor.Position.Add(step)
	return step
}
