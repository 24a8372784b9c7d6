package main

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
)

// PresenceSink receives the local actor's outbound room writes
type PresenceSink interface {
	UpdatePresence(p Presence)
	PushDefeated(identity string)
}

// Reconciler keeps the remote opponents in a World in step with the room
// roster. Every roster pass is a full diff, so repeated or reordered
// snapshots converge on the same state.
type Reconciler struct {
	world *World
	cfg   ModeConfig
	self  string
	rng   *rand.Rand
	sink  PresenceSink
	log   *logrus.Entry

	lastSeq uint64

	shared  map[string]bool   // identities in the shared defeated list
	round   uint64            // storage round of shared
	pending map[string]uint64 // pushed locally, not yet echoed; value is the round at push time

	published     Presence
	lastPublished mgl64.Vec3
}

// NewReconciler creates a reconciler for the actor identity self. sink may be
// nil when the simulation runs without a room.
func NewReconciler(w *World, cfg ModeConfig, self string, sink PresenceSink, rng *rand.Rand) *Reconciler {
	initial := InitialPresence()
	return &Reconciler{
		world:         w,
		cfg:           cfg,
		self:          self,
		rng:           rng,
		sink:          sink,
		log:           componentLog("reconcile").WithField("identity", self),
		shared:        make(map[string]bool),
		pending:       make(map[string]uint64),
		published:     initial,
		lastPublished: initial.Position.Vec(),
	}
}

// Defeated reports whether identity is out for this round
func (r *Reconciler) Defeated(identity string) bool {
	if r.shared[identity] {
		return true
	}
	_, ok := r.pending[identity]
	return ok
}

// Apply diffs the world against a roster snapshot: unknown identities are
// created, missing ones removed, and reported positions copied verbatim.
// Snapshots older than the last applied one are ignored. Returns how many
// opponents were added and removed.
func (r *Reconciler) Apply(frame *RosterFrame) (added, removed int) {
	if frame == nil {
		return 0, 0
	}
	if frame.Seq != 0 && frame.Seq < r.lastSeq {
		r.log.WithFields(logrus.Fields{"seq": frame.Seq, "last": r.lastSeq}).Debug("stale roster")
		return 0, 0
	}
	if frame.Seq != 0 {
		r.lastSeq = frame.Seq
	}

	seen := make(map[string]bool, len(frame.Peers))
	for _, peer := range frame.Peers {
		id := peer.Identity
		if id == "" || id == r.self || seen[id] || r.Defeated(id) {
			continue
		}
		seen[id] = true

		_, op, ok := r.world.Opponent(id)
		if !ok {
			op = &Opponent{
				Identity: id,
				Position: r.cfg.remoteSpawn(r.rng),
				Source:   SourceRemote,
			}
			if _, created := r.world.Spawn(Entity{Kind: KindOpponent, Opponent: op}); !created {
				continue
			}
			added++
		}
		if op.Source != SourceRemote {
			continue
		}
		if peer.Presence.Position != nil {
			op.Position = peer.Presence.Position.Vec()
		}
	}

	r.world.Each(KindOpponent, func(h Handle, e *Entity) {
		if e.Opponent.Source == SourceRemote && !seen[e.Opponent.Identity] {
			r.world.MarkRemove(h)
			removed++
		}
	})
	r.world.Compact()

	if added > 0 || removed > 0 {
		r.log.WithFields(logrus.Fields{"added": added, "removed": removed, "seq": frame.Seq}).Debug("roster applied")
	}
	return added, removed
}

// ApplyStorage takes a new shared storage snapshot. Opponents named in the
// defeated list are removed. Returns true when the local identity is listed.
func (r *Reconciler) ApplyStorage(s *StorageFrame) (selfDefeated bool) {
	if s == nil {
		return false
	}
	shared := make(map[string]bool, len(s.Defeated))
	for _, id := range s.Defeated {
		shared[id] = true
	}
	r.shared = shared
	r.round = s.Round

	for id, round := range r.pending {
		if shared[id] || s.Round > round {
			delete(r.pending, id)
		}
	}

	r.world.Each(KindOpponent, func(h Handle, e *Entity) {
		if e.Opponent.Source == SourceRemote && shared[e.Opponent.Identity] {
			r.world.MarkRemove(h)
		}
	})
	r.world.Compact()

	return shared[r.self]
}

// MarkDefeated records a local elimination and appends it to the shared list
func (r *Reconciler) MarkDefeated(identity string) {
	if r.shared[identity] {
		return
	}
	if _, ok := r.pending[identity]; ok {
		return
	}
	r.pending[identity] = r.round
	if r.sink != nil {
		r.sink.PushDefeated(identity)
	}
}

// PublishIfMoved sends the actor's presence when position, health or ammo
// differ from the last published values. Returns whether it sent.
func (r *Reconciler) PublishIfMoved(a *Actor) bool {
	if r.sink == nil || a == nil {
		return false
	}
	if a.Position == r.lastPublished && a.Health == r.published.Health && a.Ammo == r.published.Bullets {
		return false
	}
	p := Presence{
		Position: vecMsg(a.Position),
		Health:   a.Health,
		Bullets:  a.Ammo,
		Hit:      a.Eliminated,
	}
	r.sink.UpdatePresence(p)
	r.published = p
	r.lastPublished = a.Position
	return true
}
