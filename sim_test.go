package main

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// recordingRenderer keeps every frame it is asked to draw
type recordingRenderer struct {
	frames  []*Frame
	resized [2]int
	closed  bool
}

func (r *recordingRenderer) Resize(w, h int)     { r.resized = [2]int{w, h} }
func (r *recordingRenderer) Draw(f *Frame) error { r.frames = append(r.frames, f); return nil }
func (r *recordingRenderer) Close() error        { r.closed = true; return nil }

func newTrainingSim(t *testing.T) *Sim {
	t.Helper()
	s, err := NewSim(DefaultModeConfig(ModeTraining), "me@x", SimOptions{Width: 80, Height: 24, Rng: rand.New(rand.NewSource(7))})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newArenaSim(t *testing.T, sink PresenceSink) *Sim {
	t.Helper()
	s, err := NewSim(DefaultModeConfig(ModeArena), "me@x", SimOptions{Width: 80, Height: 24, Sink: sink, Rng: rand.New(rand.NewSource(7))})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSimRequiresIdentity(t *testing.T) {
	if _, err := NewSim(DefaultModeConfig(ModeTraining), "", SimOptions{}); !errors.Is(err, ErrMissingIdentity) {
		t.Errorf("expected ErrMissingIdentity, got %v", err)
	}
}

func TestSimTrainingScene(t *testing.T) {
	s := newTrainingSim(t)
	w := s.World()
	if w.Count(KindOpponent) != 3 {
		t.Errorf("expected 3 dummies, got %d", w.Count(KindOpponent))
	}
	if w.Count(KindObstacle) != 0 {
		t.Errorf("training has no obstacles, got %d", w.Count(KindObstacle))
	}
	w.Each(KindOpponent, func(_ Handle, e *Entity) {
		p := e.Opponent.Position
		if p.X() < -10 || p.X() > 10 || p.Z() < -10 || p.Z() > 10 {
			t.Errorf("dummy %s outside spread: %v", e.Opponent.Identity, p)
		}
	})
	a := s.Actor()
	if a.Health != 100 || a.Ammo != 50 {
		t.Errorf("actor starts with %d hp %d ammo", a.Health, a.Ammo)
	}
}

func TestSimArenaScene(t *testing.T) {
	s := newArenaSim(t, nil)
	cfg := s.Config()
	if cfg.TreeMinDistance != 10 || cfg.HouseMinDistance != 10 {
		t.Errorf("placement spacing = %v/%v, want 10/10", cfg.TreeMinDistance, cfg.HouseMinDistance)
	}
	// every candidate is at least 10 apart from the earlier ones of its kind
	if n, want := s.World().Count(KindObstacle), len(TreeCandidates)+len(HouseCandidates); n != want {
		t.Errorf("arena placed %d obstacles, want %d", n, want)
	}
	if s.World().Count(KindOpponent) != 0 {
		t.Error("arena starts without opponents")
	}
}

func TestSimShootConsumesAmmo(t *testing.T) {
	s := newTrainingSim(t)
	if err := s.Shoot(); err != nil {
		t.Fatal(err)
	}
	if s.Actor().Ammo != 49 {
		t.Errorf("ammo = %d, want 49", s.Actor().Ammo)
	}
	if s.World().Count(KindProjectile) != 1 {
		t.Errorf("expected 1 projectile, got %d", s.World().Count(KindProjectile))
	}

	s.Actor().Ammo = 0
	if err := s.Shoot(); !errors.Is(err, ErrOutOfAmmo) {
		t.Errorf("expected ErrOutOfAmmo, got %v", err)
	}
}

func TestSimProjectileLimit(t *testing.T) {
	cfg := DefaultModeConfig(ModeTraining)
	cfg.MaxProjectiles = 2
	s, _ := NewSim(cfg, "me@x", SimOptions{Rng: rand.New(rand.NewSource(1))})
	s.Shoot()
	s.Shoot()
	if err := s.Shoot(); !errors.Is(err, ErrProjectileLimit) {
		t.Errorf("expected ErrProjectileLimit, got %v", err)
	}
}

func TestSimTrainingHitRecolorsDummy(t *testing.T) {
	s := newTrainingSim(t)
	var target mgl64.Vec3
	s.World().Each(KindOpponent, func(_ Handle, e *Entity) {
		if e.Opponent.Identity == "dummy-1" {
			target = e.Opponent.Position
		}
	})
	s.Aim().SetWorldDirection(target.Sub(s.Actor().Position))
	if err := s.Shoot(); err != nil {
		t.Fatal(err)
	}

	hits := 0
	for i := 0; i < 45 && hits == 0; i++ {
		hits += len(s.Step().Hits)
	}
	if hits != 1 {
		t.Fatalf("expected a hit, got %d", hits)
	}
	if s.World().Count(KindOpponent) != 3 {
		t.Error("training hits do not remove dummies")
	}
	if s.World().Count(KindProjectile) != 0 {
		t.Error("projectile should be consumed")
	}
	flagged := 0
	s.World().Each(KindOpponent, func(_ Handle, e *Entity) {
		if e.Opponent.Hit {
			flagged++
		}
	})
	if flagged != 1 {
		t.Errorf("expected one recolored dummy, got %d", flagged)
	}
}

func TestSimArenaEliminationPushesDefeated(t *testing.T) {
	sink := &recordingSink{}
	s := newArenaSim(t, sink)
	s.ApplyRoom(RoomUpdate{Kind: UpdateRoster, Roster: &RosterFrame{Seq: 1, Peers: []RosterPeer{
		peer("rival@x", at(0, 0, -12)),
	}}})
	if s.World().Count(KindOpponent) != 1 {
		t.Fatal("roster should create the rival")
	}

	if err := s.Shoot(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		s.Step()
	}
	if s.World().Count(KindOpponent) != 0 {
		t.Error("rival should be eliminated")
	}
	if len(sink.pushed) != 1 || sink.pushed[0] != "rival@x" {
		t.Errorf("pushed = %v", sink.pushed)
	}

	// the roster still lists the rival until the storage echo, it stays gone
	s.ApplyRoom(RoomUpdate{Kind: UpdateRoster, Roster: &RosterFrame{Seq: 2, Peers: []RosterPeer{
		peer("rival@x", at(0, 0, -12)),
	}}})
	if s.World().Count(KindOpponent) != 0 {
		t.Error("defeated rival re-created")
	}
}

func TestSimSelfElimination(t *testing.T) {
	s := newArenaSim(t, &recordingSink{})
	s.ApplyRoom(RoomUpdate{Kind: UpdateStorage, Storage: &StorageFrame{Defeated: []string{"me@x"}}})
	if !s.Actor().Eliminated {
		t.Fatal("actor listed as defeated should be eliminated")
	}
	if err := s.Shoot(); !errors.Is(err, ErrActorEliminated) {
		t.Errorf("expected ErrActorEliminated, got %v", err)
	}
	before := s.Actor().Position
	s.SetKeys(KeySet(0).With(KeyUp))
	s.Step()
	if s.Actor().Position != before {
		t.Error("eliminated actor must not move")
	}
	if s.World().Count(KindActor) != 0 {
		t.Error("eliminated actor should leave the scene")
	}
	if !s.View().HUD.Eliminated {
		t.Error("HUD should show elimination")
	}
}

func TestSimTrainingIgnoresSelfInStorage(t *testing.T) {
	s := newTrainingSim(t)
	s.ApplyRoom(RoomUpdate{Kind: UpdateStorage, Storage: &StorageFrame{Defeated: []string{"me@x"}}})
	if s.Actor().Eliminated {
		t.Error("training never eliminates the actor")
	}
}

func TestSimTickDrawsThenPublishes(t *testing.T) {
	sink := &recordingSink{}
	s := newArenaSim(t, sink)
	r := &recordingRenderer{}

	// move off the initial presence so the tick publishes
	s.SetKeys(KeySet(0).With(KeyRight))
	if _, err := s.Tick(r); err != nil {
		t.Fatal(err)
	}
	if len(r.frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(r.frames))
	}
	if len(sink.presences) != 1 {
		t.Errorf("expected one presence, got %d", len(sink.presences))
	}

	s.SetKeys(0)
	s.Tick(r)
	if len(sink.presences) != 1 {
		t.Errorf("standing still should not publish, got %d", len(sink.presences))
	}
}

func TestSimViewSprites(t *testing.T) {
	s := newTrainingSim(t)
	f := s.View()
	counts := map[EntityKind]int{}
	for _, sp := range f.Sprites {
		counts[sp.Kind]++
		if sp.Kind == KindActor && sp.Tint != TintSelf {
			t.Error("actor sprite should be tinted self")
		}
	}
	if counts[KindActor] != 1 || counts[KindOpponent] != 3 {
		t.Errorf("sprite counts = %v", counts)
	}
	if !f.Marker.Visible {
		t.Error("aim marker should be visible")
	}
	if f.HUD.Identity != "me@x" || f.HUD.Ammo != 50 || f.HUD.Opponents != 3 {
		t.Errorf("hud = %+v", f.HUD)
	}
}

func TestSimCameraFollowsActor(t *testing.T) {
	s := newTrainingSim(t)
	s.SetKeys(KeySet(0).With(KeyLeft))
	for i := 0; i < 20; i++ {
		s.Step()
	}
	if s.Camera().Target != s.Actor().Position {
		t.Errorf("camera target %v, actor at %v", s.Camera().Target, s.Actor().Position)
	}
	off := s.Camera().Position.Sub(s.Actor().Position)
	if !off.ApproxEqualThreshold(s.Config().CameraOffset, 1e-9) {
		t.Errorf("camera offset drifted to %v", off)
	}
}

func TestSimConnectionState(t *testing.T) {
	s := newArenaSim(t, nil)
	s.ApplyRoom(RoomUpdate{Kind: UpdateWelcome, Welcome: &WelcomeMsg{Room: "room100"}})
	if !s.Connected() {
		t.Error("welcome should mark connected")
	}
	s.ApplyRoom(RoomUpdate{Kind: UpdateDisconnected, Err: errors.New("gone")})
	if s.Connected() {
		t.Error("disconnect should mark offline")
	}
}

func TestSimArenaMovesFreelyFromSpawn(t *testing.T) {
	cases := []struct {
		key  Key
		want mgl64.Vec3
	}{
		{KeyUp, mgl64.Vec3{0, 0, -0.3}},
		{KeyDown, mgl64.Vec3{0, 0, 0.3}},
		{KeyLeft, mgl64.Vec3{-0.3, 0, 0}},
		{KeyRight, mgl64.Vec3{0.3, 0, 0}},
	}
	for _, c := range cases {
		s := newArenaSim(t, nil)
		s.SetKeys(KeySet(0).With(c.key))
		for frame := 1; frame <= 120; frame++ {
			before := s.Actor().Position
			res := s.Step()
			if !approx(res.Step.X(), c.want.X()) || !approx(res.Step.Z(), c.want.Z()) {
				t.Fatalf("key %d frame %d: step %v, want %v", c.key, frame, res.Step, c.want)
			}
			if got := s.Actor().Position.Sub(before); !approx(got.X(), c.want.X()) || !approx(got.Z(), c.want.Z()) {
				t.Fatalf("key %d frame %d: moved %v", c.key, frame, got)
			}
		}
		if d := s.Actor().Position.Len(); math.Abs(d-36) > 1e-6 {
			t.Errorf("key %d: traveled %v, want 36", c.key, d)
		}
	}
}

func TestSimRetiredProjectileNotRendered(t *testing.T) {
	s := newArenaSim(t, nil)
	if err := s.Shoot(); err != nil {
		t.Fatal(err)
	}
	projectiles := func() int {
		n := 0
		for _, sp := range s.View().Sprites {
			if sp.Kind == KindProjectile {
				n++
			}
		}
		return n
	}

	// 200 range at 2 per frame: live through frame 100
	for frame := 1; frame <= 100; frame++ {
		if res := s.Step(); res.Retired != 0 {
			t.Fatalf("retired early on frame %d", frame)
		}
		if projectiles() != 1 {
			t.Fatalf("projectile missing from frame %d", frame)
		}
	}
	if res := s.Step(); res.Retired != 1 {
		t.Fatalf("expected retirement on frame 101, got %d", res.Retired)
	}
	if n := projectiles(); n != 0 {
		t.Errorf("retired projectile still rendered (%d sprites)", n)
	}
}
