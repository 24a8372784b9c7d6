package main

import (
	"math/rand"
)

// GroundPoint is a position on the ground plane
type GroundPoint struct {
	X, Z float64
}

// HouseSpec is a candidate house position and scale
type HouseSpec struct {
	At   GroundPoint
	Size float64
}

// TreeCandidates are the tree positions tried at scene init, in order
var TreeCandidates = []GroundPoint{
	{-200, -200}, {-150, -180}, {-100, -150}, {-50, -200},
	{0, 0}, {50, 100}, {100, 150}, {150, 180}, {200, 200},
	{-100, 50}, {-200, 80}, {150, -100}, {200, -150},
	{0, -100}, {-150, -50}, {50, -80}, {180, 0},
}

// HouseCandidates are the house positions tried at scene init, in order
var HouseCandidates = []HouseSpec{
	{At: GroundPoint{-180, -180}, Size: 5},
	{At: GroundPoint{-100, -100}, Size: 4},
	{At: GroundPoint{50, 120}, Size: 6},
	{At: GroundPoint{120, -100}, Size: 3},
	{At: GroundPoint{0, 250}, Size: 5},
	{At: GroundPoint{180, 70}, Size: 4},
}

// IsOverlapping reports whether candidate lies strictly closer than minDistance
// to any already placed point
func IsOverlapping(candidate GroundPoint, placed []GroundPoint, minDistance float64) bool {
	for _, p := range placed {
		if Distance(candidate.X, candidate.Z, p.X, p.Z) < minDistance {
			return true
		}
	}
	return false
}

// acceptPoints filters candidates in order, keeping each one that does not
// overlap the ones already kept. Returns indexes of accepted candidates.
func acceptPoints(candidates []GroundPoint, minDistance float64) []int {
	placed := make([]GroundPoint, 0, len(candidates))
	accepted := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if IsOverlapping(c, placed, minDistance) {
			continue
		}
		placed = append(placed, c)
		accepted = append(accepted, i)
	}
	return accepted
}

// PlaceObstacles builds the static scenery. Trees and houses are filtered
// against their own kind only. Tree canopy sizes are drawn from rng.
func PlaceObstacles(trees []GroundPoint, houses []HouseSpec, treeMin, houseMin float64, rng *rand.Rand) []Obstacle {
	out := make([]Obstacle, 0, len(trees)+len(houses))

	for _, i := range acceptPoints(trees, treeMin) {
		out = append(out, Obstacle{
			Kind: ObstacleTree,
			X:    trees[i].X,
			Z:    trees[i].Z,
			Size: 6 + rng.Float64()*3,
		})
	}

	housePoints := make([]GroundPoint, len(houses))
	for i, h := range houses {
		housePoints[i] = h.At
	}
	for _, i := range acceptPoints(housePoints, houseMin) {
		out = append(out, Obstacle{
			Kind: ObstacleHouse,
			X:    houses[i].At.X,
			Z:    houses[i].At.Z,
			Size: houses[i].Size,
		})
	}
	return out
}
