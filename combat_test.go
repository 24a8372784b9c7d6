package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func spawnOpponent(w *World, id string, pos mgl64.Vec3) Handle {
	h, _ := w.Spawn(Entity{Kind: KindOpponent, Opponent: &Opponent{Identity: id, Position: pos}})
	return h
}

func spawnShot(w *World, pos mgl64.Vec3) Handle {
	h, _ := w.Spawn(Entity{Kind: KindProjectile, Projectile: &Projectile{Position: pos}})
	return h
}

func TestHitRecolorConsumesProjectile(t *testing.T) {
	w := NewWorld()
	oh := spawnOpponent(w, "dummy-1", mgl64.Vec3{5, 0.5, 5})
	spawnShot(w, mgl64.Vec3{5.2, 0.5, 5})

	r := NewHitResolver(0.5, HitRecolor, 500)
	events := r.Resolve(w)
	w.Compact()

	if len(events) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(events))
	}
	if events[0].Eliminated {
		t.Error("recolor hit should not eliminate")
	}
	e, ok := w.Get(oh)
	if !ok || !e.Opponent.Hit {
		t.Error("opponent should remain and be flagged hit")
	}
	if w.Count(KindProjectile) != 0 {
		t.Error("projectile should be consumed")
	}
}

func TestHitOutsideRadiusMisses(t *testing.T) {
	w := NewWorld()
	spawnOpponent(w, "dummy-1", mgl64.Vec3{0, 0, 0})
	spawnShot(w, mgl64.Vec3{0.5, 0, 0})

	r := NewHitResolver(0.5, HitRecolor, 500)
	if events := r.Resolve(w); len(events) != 0 {
		t.Errorf("distance equal to radius is not a hit, got %d events", len(events))
	}
}

func TestHitAlreadyHitOpponentIgnored(t *testing.T) {
	w := NewWorld()
	oh := spawnOpponent(w, "dummy-1", mgl64.Vec3{})
	e, _ := w.Get(oh)
	e.Opponent.Hit = true
	spawnShot(w, mgl64.Vec3{0.1, 0, 0})

	r := NewHitResolver(0.5, HitRecolor, 500)
	if events := r.Resolve(w); len(events) != 0 {
		t.Errorf("hit opponent should not register again, got %d", len(events))
	}
	if w.Count(KindProjectile) != 1 {
		t.Error("projectile should keep flying")
	}
}

func TestHitEliminateRemovesOpponent(t *testing.T) {
	w := NewWorld()
	spawnOpponent(w, "b@x", mgl64.Vec3{10, 0, 10})
	spawnShot(w, mgl64.Vec3{11, 0, 10})

	r := NewHitResolver(3, HitEliminate, 500)
	events := r.Resolve(w)
	w.Compact()

	if len(events) != 1 || !events[0].Eliminated || events[0].Identity != "b@x" {
		t.Fatalf("unexpected events %+v", events)
	}
	if _, _, ok := w.Opponent("b@x"); ok {
		t.Error("eliminated opponent should be removed")
	}
}

func TestHitOneOpponentPerProjectileNearestWins(t *testing.T) {
	w := NewWorld()
	spawnOpponent(w, "far", mgl64.Vec3{2, 0, 0})
	spawnOpponent(w, "near", mgl64.Vec3{0.5, 0, 0})
	spawnShot(w, mgl64.Vec3{0, 0, 0})

	r := NewHitResolver(3, HitEliminate, 500)
	events := r.Resolve(w)
	w.Compact()

	if len(events) != 1 {
		t.Fatalf("one projectile makes at most one hit, got %d", len(events))
	}
	if events[0].Identity != "near" {
		t.Errorf("expected nearest opponent hit, got %s", events[0].Identity)
	}
	if _, _, ok := w.Opponent("far"); !ok {
		t.Error("far opponent should survive")
	}
}

func TestHitTwoProjectilesOneOpponent(t *testing.T) {
	w := NewWorld()
	spawnOpponent(w, "dummy-1", mgl64.Vec3{})
	spawnShot(w, mgl64.Vec3{0.1, 0, 0})
	spawnShot(w, mgl64.Vec3{-0.1, 0, 0})

	r := NewHitResolver(0.5, HitRecolor, 500)
	events := r.Resolve(w)
	w.Compact()
	if len(events) != 1 {
		t.Errorf("opponent takes one hit per pass, got %d", len(events))
	}
	if w.Count(KindProjectile) != 1 {
		t.Errorf("second projectile should survive, got %d", w.Count(KindProjectile))
	}
}

func TestHitAcrossCellBorder(t *testing.T) {
	// radius 3 gives 12-unit cells with a border at x=2
	w := NewWorld()
	spawnOpponent(w, "a@x", mgl64.Vec3{0.5, 0, 0})
	spawnShot(w, mgl64.Vec3{2.5, 0, 0})

	r := NewHitResolver(3, HitEliminate, 500)
	if events := r.Resolve(w); len(events) != 1 || events[0].Identity != "a@x" {
		t.Errorf("hit circle should reach into the neighbor cell, got %+v", events)
	}
}
