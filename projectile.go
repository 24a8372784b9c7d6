package main

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrOutOfAmmo       = errors.New("out of ammo")
	ErrActorEliminated = errors.New("actor eliminated")
	ErrProjectileLimit = errors.New("too many live projectiles")
	ErrNoAimDirection  = errors.New("aim direction has no length")
)

// NewProjectile creates a shot at origin flying along dir at speed
func NewProjectile(origin, dir mgl64.Vec3, speed float64) (*Projectile, error) {
	d := normalizeOr(dir, mgl64.Vec3{})
	if d.Len() == 0 {
		return nil, ErrNoAimDirection
	}
	return &Projectile{
		Position: origin,
		Velocity: d.Mul(speed),
	}, nil
}

// Advance moves the projectile one frame and reports whether it is still
// within maxRange of its spawn point
func (p *Projectile) Advance(maxRange float64) bool {
	p.Position = p.Position.Add(p.Velocity)
	p.Travel += p.Velocity.Len()
	return p.Travel <= maxRange
}

// advanceProjectiles steps every live projectile and marks the ones past
// maxRange for removal. Returns how many were retired.
func advanceProjectiles(w *World, maxRange float64) int {
	retired := 0
	w.Each(KindProjectile, func(h Handle, e *Entity) {
		if !e.Projectile.Advance(maxRange) {
			w.MarkRemove(h)
			retired++
		}
	})
	return retired
}
