package main

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestProjectileVelocityAlongAim(t *testing.T) {
	p, err := NewProjectile(mgl64.Vec3{1, 0, 1}, mgl64.Vec3{3, 0, 4}, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := mgl64.Vec3{1.2, 0, 1.6}
	if !p.Velocity.ApproxEqual(want) {
		t.Errorf("velocity = %v, want %v", p.Velocity, want)
	}
	if math.Abs(p.Velocity.Len()-2) > 1e-9 {
		t.Errorf("speed = %v, want 2", p.Velocity.Len())
	}
}

func TestProjectileZeroDirection(t *testing.T) {
	_, err := NewProjectile(mgl64.Vec3{}, mgl64.Vec3{}, 1)
	if !errors.Is(err, ErrNoAimDirection) {
		t.Errorf("expected ErrNoAimDirection, got %v", err)
	}
}

func TestProjectileRetiresPastRange(t *testing.T) {
	w := NewWorld()
	p, _ := NewProjectile(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, 0.5)
	w.Spawn(Entity{Kind: KindProjectile, Projectile: p})

	for frame := 1; frame <= 40; frame++ {
		if n := advanceProjectiles(w, 20); n != 0 {
			t.Fatalf("retired early on frame %d", frame)
		}
		w.Compact()
	}
	if math.Abs(p.Travel-20) > 1e-9 {
		t.Fatalf("travel after 40 frames = %v, want 20", p.Travel)
	}
	if n := advanceProjectiles(w, 20); n != 1 {
		t.Fatalf("expected retirement on frame 41, got %d", n)
	}
	w.Compact()
	if w.Count(KindProjectile) != 0 {
		t.Error("projectile should be gone")
	}
}
