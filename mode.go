package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// GameMode selects the rule set of the local simulation
type GameMode int

const (
	ModeArena    GameMode = 0 // remote opponents, elimination, shared defeated list
	ModeTraining GameMode = 1 // local dummies, recolor on hit
)

// HitMode decides what a registered hit does to the opponent
type HitMode int

const (
	HitRecolor   HitMode = 0
	HitEliminate HitMode = 1
)

func (m GameMode) String() string {
	switch m {
	case ModeTraining:
		return "training"
	default:
		return "arena"
	}
}

// ParseGameMode accepts the names printed by String
func ParseGameMode(s string) (GameMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "arena":
		return ModeArena, nil
	case "training":
		return ModeTraining, nil
	}
	return ModeArena, fmt.Errorf("unknown mode %q", s)
}

// ModeConfig holds the tuning for one mode. Distances are world units,
// speeds are world units per frame.
type ModeConfig struct {
	Mode           GameMode
	HitMode        HitMode
	MoveSpeed      float64
	AimRadius      float64
	MuzzleVelocity float64
	MaxRange       float64
	HitRadius      float64
	MaxProjectiles int

	ObstacleAware    bool
	PlaceObstacles   bool
	TreeMinDistance  float64
	HouseMinDistance float64
	WorldSize        float64 // side of the square ground plane centered on the origin

	Dummies     int
	DummySpread float64 // dummies spawn in [-spread, spread]^2
	SpawnSpread float64 // remote opponents spawn in [-spread, spread]^2, 0 = origin

	ActorHalfExtents mgl64.Vec3
	SpawnHeight      float64 // y of the actor and dummies at spawn
	StartHealth      int
	StartAmmo        int

	CameraOffset mgl64.Vec3
	CameraFovDeg float64
	CameraNear   float64
	CameraFar    float64
}

// DefaultModeConfig returns the tuning for the given mode
func DefaultModeConfig(mode GameMode) ModeConfig {
	switch mode {
	case ModeTraining:
		return ModeConfig{
			Mode:             ModeTraining,
			HitMode:          HitRecolor,
			MoveSpeed:        0.1,
			AimRadius:        10,
			MuzzleVelocity:   0.5,
			MaxRange:         20,
			HitRadius:        0.5,
			MaxProjectiles:   200,
			WorldSize:        500,
			Dummies:          3,
			DummySpread:      10,
			ActorHalfExtents: mgl64.Vec3{0.5, 0.5, 0.5},
			SpawnHeight:      0.5,
			StartHealth:      100,
			StartAmmo:        50,
			CameraOffset:     mgl64.Vec3{0, 2, 5},
			CameraFovDeg:     75,
			CameraNear:       0.1,
			CameraFar:        1000,
		}
	default:
		return ModeConfig{
			Mode:             ModeArena,
			HitMode:          HitEliminate,
			MoveSpeed:        0.3,
			AimRadius:        100,
			MuzzleVelocity:   2,
			MaxRange:         200,
			HitRadius:        3,
			MaxProjectiles:   200,
			ObstacleAware:    true,
			PlaceObstacles:   true,
			TreeMinDistance:  10,
			HouseMinDistance: 10,
			WorldSize:        500,
			ActorHalfExtents: mgl64.Vec3{1.2, 3.25, 0.5},
			StartHealth:      100,
			StartAmmo:        50,
			CameraOffset:     mgl64.Vec3{0, 40, 60},
			CameraFovDeg:     55,
			CameraNear:       0.1,
			CameraFar:        10000,
		}
	}
}

// dummySpawn returns a random ground position inside the dummy spread
func (c ModeConfig) dummySpawn(rng *rand.Rand) mgl64.Vec3 {
	return mgl64.Vec3{
		rng.Float64()*2*c.DummySpread - c.DummySpread,
		c.SpawnHeight,
		rng.Float64()*2*c.DummySpread - c.DummySpread,
	}
}

// remoteSpawn returns where a newly observed remote opponent appears
// until its first presence update arrives.
func (c ModeConfig) remoteSpawn(rng *rand.Rand) mgl64.Vec3 {
	if c.SpawnSpread <= 0 {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{
		rng.Float64()*2*c.SpawnSpread - c.SpawnSpread,
		0,
		rng.Float64()*2*c.SpawnSpread - c.SpawnSpread,
	}
}
