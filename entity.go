package main

import (
	"github.com/go-gl/mathgl/mgl64"
)

// EntityKind tags the variant held by an Entity
type EntityKind uint8

const (
	KindActor EntityKind = iota + 1
	KindOpponent
	KindProjectile
	KindObstacle
)

func (k EntityKind) String() string {
	switch k {
	case KindActor:
		return "actor"
	case KindOpponent:
		return "opponent"
	case KindProjectile:
		return "projectile"
	case KindObstacle:
		return "obstacle"
	}
	return "unknown"
}

// Actor is the local player's avatar
type Actor struct {
	Identity   string
	Position   mgl64.Vec3
	Facing     mgl64.Quat
	Health     int
	Ammo       int
	Eliminated bool
}

// OpponentSource tells where an opponent came from
type OpponentSource uint8

const (
	SourceRemote OpponentSource = iota // another connected peer
	SourceDummy                        // local training target
)

// Opponent is the local stand-in for another peer or a training dummy
type Opponent struct {
	Identity string
	Position mgl64.Vec3
	Hit      bool
	Source   OpponentSource
}

// Projectile is a live shot
type Projectile struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Travel   float64 // distance covered since spawn
}

// ObstacleKind distinguishes static scenery
type ObstacleKind uint8

const (
	ObstacleTree ObstacleKind = iota
	ObstacleHouse
)

func (k ObstacleKind) String() string {
	if k == ObstacleHouse {
		return "house"
	}
	return "tree"
}

// Obstacle is a static object placed once at scene init
type Obstacle struct {
	Kind ObstacleKind
	X, Z float64
	Size float64
}

// Entity is a tagged variant: exactly the field matching Kind is set.
type Entity struct {
	Kind       EntityKind
	Actor      *Actor
	Opponent   *Opponent
	Projectile *Projectile
	Obstacle   *Obstacle
}

// Position returns the world position of any variant
func (e *Entity) Position() mgl64.Vec3 {
	switch e.Kind {
	case KindActor:
		return e.Actor.Position
	case KindOpponent:
		return e.Opponent.Position
	case KindProjectile:
		return e.Projectile.Position
	case KindObstacle:
		return mgl64.Vec3{e.Obstacle.X, 0, e.Obstacle.Z}
	}
	return mgl64.Vec3{}
}

// Bounds returns the axis-aligned box of an obstacle. Tree boxes cover the
// canopy, house boxes the scaled building.
func (o *Obstacle) Bounds() Box3 {
	var half mgl64.Vec3
	switch o.Kind {
	case ObstacleHouse:
		w := o.Size * o.Size / 2
		half = mgl64.Vec3{w, o.Size * o.Size * 0.6, w}
	default:
		half = mgl64.Vec3{o.Size, o.Size * 2, o.Size}
	}
	c := mgl64.Vec3{o.X, half.Y(), o.Z}
	return Box3{Min: c.Sub(half), Max: c.Add(half)}
}

// Box3 is an axis-aligned bounding box
type Box3 struct {
	Min, Max mgl64.Vec3
}

// BoxAround builds a box centered on c with the given half extents
func BoxAround(c, half mgl64.Vec3) Box3 {
	return Box3{Min: c.Sub(half), Max: c.Add(half)}
}

// Intersects reports whether the boxes overlap. Touching faces do not count.
func (b Box3) Intersects(o Box3) bool {
	return b.Min.X() < o.Max.X() && b.Max.X() > o.Min.X() &&
		b.Min.Y() < o.Max.Y() && b.Max.Y() > o.Min.Y() &&
		b.Min.Z() < o.Max.Z() && b.Max.Z() > o.Min.Z()
}

// Center returns the box midpoint
func (b Box3) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}
