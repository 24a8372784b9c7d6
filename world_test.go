package main

import (
	"sort"
	"testing"
)

// OpponentIdentities lists the identities the world currently tracks
func (w *World) OpponentIdentities() []string {
	ids := make([]string, 0, len(w.opponents))
	for id := range w.opponents {
		ids = append(ids, id)
	}
	return ids
}

func TestWorldSpawnAndGet(t *testing.T) {
	w := NewWorld()
	h, ok := w.Spawn(Entity{Kind: KindOpponent, Opponent: &Opponent{Identity: "a@x"}})
	if !ok || !h.Valid() {
		t.Fatalf("spawn failed: %v %v", h, ok)
	}
	e, ok := w.Get(h)
	if !ok || e.Opponent.Identity != "a@x" {
		t.Fatalf("get returned %v %v", e, ok)
	}
	if w.Count(KindOpponent) != 1 {
		t.Errorf("expected 1 opponent, got %d", w.Count(KindOpponent))
	}
}

func TestWorldDuplicateOpponentIdentity(t *testing.T) {
	w := NewWorld()
	h1, _ := w.Spawn(Entity{Kind: KindOpponent, Opponent: &Opponent{Identity: "a@x"}})
	h2, created := w.Spawn(Entity{Kind: KindOpponent, Opponent: &Opponent{Identity: "a@x"}})
	if created {
		t.Error("duplicate identity should not be created")
	}
	if h1 != h2 {
		t.Errorf("duplicate spawn should return the existing handle, got %v want %v", h2, h1)
	}
	if w.Count(KindOpponent) != 1 {
		t.Errorf("expected 1 opponent, got %d", w.Count(KindOpponent))
	}
}

func TestWorldMarkRemoveHidesImmediately(t *testing.T) {
	w := NewWorld()
	h, _ := w.Spawn(Entity{Kind: KindProjectile, Projectile: &Projectile{}})
	if !w.MarkRemove(h) {
		t.Fatal("mark remove failed")
	}
	if _, ok := w.Get(h); ok {
		t.Error("marked entity should not be visible")
	}
	if w.MarkRemove(h) {
		t.Error("second mark remove should report false")
	}
	if w.Count(KindProjectile) != 0 {
		t.Errorf("count should drop on mark, got %d", w.Count(KindProjectile))
	}
}

func TestWorldStaleHandleAfterReuse(t *testing.T) {
	w := NewWorld()
	old, _ := w.Spawn(Entity{Kind: KindProjectile, Projectile: &Projectile{}})
	w.MarkRemove(old)
	w.Compact()

	fresh, _ := w.Spawn(Entity{Kind: KindProjectile, Projectile: &Projectile{Travel: 7}})
	if fresh.Index != old.Index {
		t.Fatalf("expected slot reuse, got index %d want %d", fresh.Index, old.Index)
	}
	if _, ok := w.Get(old); ok {
		t.Error("stale handle must not resolve to the reused slot")
	}
	if e, ok := w.Get(fresh); !ok || e.Projectile.Travel != 7 {
		t.Error("fresh handle should resolve")
	}
}

func TestWorldRemoveDuringIteration(t *testing.T) {
	w := NewWorld()
	for i := 0; i < 10; i++ {
		w.Spawn(Entity{Kind: KindProjectile, Projectile: &Projectile{Travel: float64(i)}})
	}
	visited := 0
	w.Each(KindProjectile, func(h Handle, e *Entity) {
		visited++
		if int(e.Projectile.Travel)%2 == 0 {
			w.MarkRemove(h)
		}
	})
	if visited != 10 {
		t.Errorf("iteration should visit all 10, visited %d", visited)
	}
	w.Compact()
	if w.Count(KindProjectile) != 5 {
		t.Errorf("expected 5 left, got %d", w.Count(KindProjectile))
	}
	w.Each(KindProjectile, func(_ Handle, e *Entity) {
		if int(e.Projectile.Travel)%2 == 0 {
			t.Errorf("even projectile %v survived", e.Projectile.Travel)
		}
	})
}

func TestWorldOpponentLookupAfterRemoval(t *testing.T) {
	w := NewWorld()
	h, _ := w.Spawn(Entity{Kind: KindOpponent, Opponent: &Opponent{Identity: "a@x"}})
	w.Spawn(Entity{Kind: KindOpponent, Opponent: &Opponent{Identity: "b@x"}})
	w.MarkRemove(h)

	if _, _, ok := w.Opponent("a@x"); ok {
		t.Error("removed opponent should not be found")
	}
	ids := w.OpponentIdentities()
	sort.Strings(ids)
	if len(ids) != 1 || ids[0] != "b@x" {
		t.Errorf("identities = %v", ids)
	}

	// identity is free again once removed
	if _, created := w.Spawn(Entity{Kind: KindOpponent, Opponent: &Opponent{Identity: "a@x"}}); !created {
		t.Error("identity should be reusable after removal")
	}
}
