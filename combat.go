package main

import (
	"github.com/go-gl/mathgl/mgl64"
)

// HitEvent records one projectile striking one opponent
type HitEvent struct {
	Identity   string
	Opponent   Handle
	Projectile Handle
	Position   mgl64.Vec3
	Eliminated bool
}

// HitResolver tests live projectiles against opponents that are not yet hit
type HitResolver struct {
	Radius float64
	Mode   HitMode

	grid *SpatialGrid
	buf  []EntityRef
}

// NewHitResolver creates a resolver whose broad phase covers worldSize
func NewHitResolver(radius float64, mode HitMode, worldSize float64) *HitResolver {
	cell := radius * 4
	if cell < 8 {
		cell = 8
	}
	return &HitResolver{
		Radius: radius,
		Mode:   mode,
		grid:   NewSpatialGrid(worldSize, cell),
	}
}

// withinRadius checks if two points are closer than r
func withinRadius(a, b mgl64.Vec3, r float64) bool {
	d := a.Sub(b)
	return d.Dot(d) < r*r
}

// Resolve runs one hit pass. Each projectile resolves at most one hit, the
// nearest eligible opponent, and is consumed by it. A hit opponent is either
// flagged (recolor) or removed (eliminate) and takes no further hits.
// Removal is deferred to the caller's Compact.
func (r *HitResolver) Resolve(w *World) []HitEvent {
	r.grid.Clear()
	candidates := 0
	w.Each(KindOpponent, func(h Handle, e *Entity) {
		if e.Opponent.Hit {
			return
		}
		// opponents cover every cell their hit circle reaches, so a shot
		// only needs the cell it is in
		r.grid.InsertCircle(e.Opponent.Position.X(), e.Opponent.Position.Z(), r.Radius, EntityRef{Kind: KindOpponent, Handle: h})
		candidates++
	})
	if candidates == 0 {
		return nil
	}

	var events []HitEvent
	w.Each(KindProjectile, func(ph Handle, pe *Entity) {
		pos := pe.Projectile.Position
		r.buf = r.grid.QueryBuf(pos.X(), pos.Z(), 0, r.buf[:0])

		var (
			best     *Opponent
			bestH    Handle
			bestDist float64
		)
		for _, ref := range r.buf {
			oe, ok := w.Get(ref.Handle)
			if !ok || oe.Opponent.Hit {
				continue
			}
			if !withinRadius(pos, oe.Opponent.Position, r.Radius) {
				continue
			}
			d := pos.Sub(oe.Opponent.Position).Len()
			if best == nil || d < bestDist {
				best, bestH, bestDist = oe.Opponent, ref.Handle, d
			}
		}
		if best == nil {
			return
		}

		best.Hit = true
		w.MarkRemove(ph)
		ev := HitEvent{
			Identity:   best.Identity,
			Opponent:   bestH,
			Projectile: ph,
			Position:   best.Position,
		}
		if r.Mode == HitEliminate {
			w.MarkRemove(bestH)
			ev.Eliminated = true
		}
		events = append(events, ev)
	})
	return events
}
