package main

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPointerFromViewport(t *testing.T) {
	p := PointerFromViewport(40, 12, 80, 24)
	if p.X != 0 || p.Y != 0 {
		t.Errorf("center should map to (0,0), got %+v", p)
	}
	p = PointerFromViewport(200, -5, 80, 24)
	if p.X != 1 || p.Y != -1 {
		t.Errorf("outside positions clamp, got %+v", p)
	}
	if p := PointerFromViewport(10, 10, 0, 0); p != (PointerOffset{}) {
		t.Errorf("empty viewport should give zero offset, got %+v", p)
	}
}

func TestAimPointerDirection(t *testing.T) {
	a := NewAimState()
	if a.Direction() != (mgl64.Vec3{0, 0, -1}) {
		t.Fatalf("initial aim = %v", a.Direction())
	}

	a.SetPointer(PointerOffset{X: 1, Y: 0})
	if !a.Direction().ApproxEqual(mgl64.Vec3{1, 0, 0}) {
		t.Errorf("pointer right should aim +x, got %v", a.Direction())
	}

	a.SetPointer(PointerOffset{X: 0, Y: -1})
	if !a.Direction().ApproxEqual(mgl64.Vec3{0, 0, -1}) {
		t.Errorf("pointer up should aim forward, got %v", a.Direction())
	}

	a.SetPointer(PointerOffset{X: 0.3, Y: 0.4})
	if l := a.Direction().Len(); math.Abs(l-1) > 1e-9 {
		t.Errorf("aim must be unit length, got %v", l)
	}
	if a.Direction().Y() != 0 {
		t.Errorf("aim must lie on the ground, got %v", a.Direction())
	}
}

func TestAimZeroPointerKeepsDirection(t *testing.T) {
	a := NewAimState()
	a.SetPointer(PointerOffset{X: -1, Y: 0})
	a.SetPointer(PointerOffset{})
	if !a.Direction().ApproxEqual(mgl64.Vec3{-1, 0, 0}) {
		t.Errorf("zero offset should keep the last aim, got %v", a.Direction())
	}
}

func TestAimMarkerProjectsAhead(t *testing.T) {
	cfg := DefaultModeConfig(ModeArena)
	cam := NewCamera(cfg, mgl64.Vec3{}, 800, 600)
	aim := NewAimState()

	px, py, ok := AimMarker(cam, mgl64.Vec3{}, aim, cfg.AimRadius)
	if !ok {
		t.Fatal("marker ahead of the actor should be visible")
	}
	if math.Abs(px-400) > 1e-6 {
		t.Errorf("forward marker should be horizontally centered, got %v", px)
	}
	if py >= 300 {
		t.Errorf("forward marker should sit above the center, got %v", py)
	}

	aim.SetWorldDirection(mgl64.Vec3{1, 0, 0})
	px, _, _ = AimMarker(cam, mgl64.Vec3{}, aim, cfg.AimRadius)
	if px <= 400 {
		t.Errorf("marker aimed right should be right of center, got %v", px)
	}
}
