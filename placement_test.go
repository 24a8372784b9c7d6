package main

import (
	"math/rand"
	"testing"
)

func TestIsOverlappingStrictDistance(t *testing.T) {
	placed := []GroundPoint{{0, 0}}
	if IsOverlapping(GroundPoint{20, 0}, placed, 20) {
		t.Error("point exactly at min distance should not overlap")
	}
	if !IsOverlapping(GroundPoint{19.9, 0}, placed, 20) {
		t.Error("point inside min distance should overlap")
	}
	if IsOverlapping(GroundPoint{5, 5}, nil, 20) {
		t.Error("nothing placed means no overlap")
	}
}

func TestPlacementKeepsMinimumSpacing(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	obs := PlaceObstacles(TreeCandidates, HouseCandidates, 20, 40, rng)

	var trees, houses []Obstacle
	for _, o := range obs {
		if o.Kind == ObstacleTree {
			trees = append(trees, o)
		} else {
			houses = append(houses, o)
		}
	}
	check := func(list []Obstacle, min float64) {
		t.Helper()
		for i := range list {
			for j := i + 1; j < len(list); j++ {
				d := Distance(list[i].X, list[i].Z, list[j].X, list[j].Z)
				if d < min {
					t.Errorf("%s at (%v,%v) and (%v,%v) only %.2f apart",
						list[i].Kind, list[i].X, list[i].Z, list[j].X, list[j].Z, d)
				}
			}
		}
	}
	check(trees, 20)
	check(houses, 40)
	if len(trees) == 0 || len(houses) == 0 {
		t.Fatalf("expected both kinds placed, got %d trees %d houses", len(trees), len(houses))
	}
}

func TestPlacementFirstCandidateWins(t *testing.T) {
	trees := []GroundPoint{{0, 0}, {10, 0}, {25, 0}}
	obs := PlaceObstacles(trees, nil, 20, 40, rand.New(rand.NewSource(2)))
	if len(obs) != 2 {
		t.Fatalf("expected 2 trees, got %d", len(obs))
	}
	if obs[0].X != 0 || obs[1].X != 25 {
		t.Errorf("expected trees at x=0 and x=25, got %v and %v", obs[0].X, obs[1].X)
	}
	for _, o := range obs {
		if o.Size < 6 || o.Size >= 9 {
			t.Errorf("tree size %v outside [6,9)", o.Size)
		}
	}
}

func TestPlacementKindsFilteredSeparately(t *testing.T) {
	trees := []GroundPoint{{0, 0}}
	houses := []HouseSpec{{At: GroundPoint{1, 1}, Size: 4}}
	obs := PlaceObstacles(trees, houses, 20, 40, rand.New(rand.NewSource(3)))
	if len(obs) != 2 {
		t.Errorf("a house near a tree is still placed, got %d obstacles", len(obs))
	}
}
