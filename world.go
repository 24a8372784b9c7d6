package main

// Handle is a stable reference to an entity in a World. A handle goes stale
// once its entity is compacted away, even if the slot is reused.
type Handle struct {
	Index uint32
	Gen   uint32
}

// Valid reports whether h was ever issued
func (h Handle) Valid() bool {
	return h.Gen != 0
}

type slot struct {
	gen     uint32
	live    bool
	removed bool // marked, freed on the next Compact
	entity  Entity
}

// World owns every entity of the simulation. Removal is two-phase:
// MarkRemove during a scan, Compact after it.
type World struct {
	slots      []slot
	free       []uint32
	opponents  map[string]Handle
	marked     []uint32
	liveCounts map[EntityKind]int
}

// NewWorld creates an empty World
func NewWorld() *World {
	return &World{
		opponents:  make(map[string]Handle),
		liveCounts: make(map[EntityKind]int),
	}
}

// Spawn stores e and returns its handle. Opponent identities must be unique;
// spawning a duplicate returns the existing handle and false.
func (w *World) Spawn(e Entity) (Handle, bool) {
	if e.Kind == KindOpponent {
		if h, ok := w.opponents[e.Opponent.Identity]; ok {
			return h, false
		}
	}

	var idx uint32
	if n := len(w.free); n > 0 {
		idx = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		idx = uint32(len(w.slots))
		w.slots = append(w.slots, slot{})
	}
	s := &w.slots[idx]
	s.gen++
	s.live = true
	s.removed = false
	s.entity = e

	h := Handle{Index: idx, Gen: s.gen}
	if e.Kind == KindOpponent {
		w.opponents[e.Opponent.Identity] = h
	}
	w.liveCounts[e.Kind]++
	return h, true
}

// Get returns the entity for h. Entities marked for removal are not returned.
func (w *World) Get(h Handle) (*Entity, bool) {
	if !h.Valid() || int(h.Index) >= len(w.slots) {
		return nil, false
	}
	s := &w.slots[h.Index]
	if !s.live || s.removed || s.gen != h.Gen {
		return nil, false
	}
	return &s.entity, true
}

// MarkRemove schedules h for removal. The entity stops being visible to Get
// and Each immediately; its slot is reclaimed by Compact.
func (w *World) MarkRemove(h Handle) bool {
	e, ok := w.Get(h)
	if !ok {
		return false
	}
	s := &w.slots[h.Index]
	s.removed = true
	w.marked = append(w.marked, h.Index)
	w.liveCounts[e.Kind]--
	if e.Kind == KindOpponent {
		delete(w.opponents, e.Opponent.Identity)
	}
	return true
}

// Compact frees every slot marked since the last Compact
func (w *World) Compact() {
	for _, idx := range w.marked {
		s := &w.slots[idx]
		s.live = false
		s.removed = false
		s.entity = Entity{}
		w.free = append(w.free, idx)
	}
	w.marked = w.marked[:0]
}

// Each calls fn for every visible entity of kind in slot order. fn may call
// MarkRemove on any handle, including the current one.
func (w *World) Each(kind EntityKind, fn func(Handle, *Entity)) {
	for i := range w.slots {
		s := &w.slots[i]
		if !s.live || s.removed || s.entity.Kind != kind {
			continue
		}
		fn(Handle{Index: uint32(i), Gen: s.gen}, &s.entity)
	}
}

// Opponent looks up an opponent by identity
func (w *World) Opponent(identity string) (Handle, *Opponent, bool) {
	h, ok := w.opponents[identity]
	if !ok {
		return Handle{}, nil, false
	}
	e, ok := w.Get(h)
	if !ok {
		return Handle{}, nil, false
	}
	return h, e.Opponent, true
}

// Count returns the number of visible entities of kind
func (w *World) Count(kind EntityKind) int {
	return w.liveCounts[kind]
}
