package main

import (
	"github.com/solarlune/resolv"
)

const (
	obstacleTag      = "obstacle"
	probeTag         = "probe"
	obstacleCellSize = 16
)

// ObstacleSpace indexes static obstacles on the ground plane. resolv does the
// cell broad phase; candidates are confirmed with an exact 3D box test.
type ObstacleSpace struct {
	space  *resolv.Space
	probe  *resolv.Object
	offset float64
}

// NewObstacleSpace builds the index for a square world of side worldSize
// centered on the origin. The space extends one world size past each edge
// so scenery placed on the border is still indexed.
func NewObstacleSpace(worldSize float64, obstacles []Obstacle) *ObstacleSpace {
	side := int(worldSize * 2)
	s := &ObstacleSpace{
		space:  resolv.NewSpace(side, side, obstacleCellSize, obstacleCellSize),
		offset: worldSize,
	}
	for i := range obstacles {
		ob := &obstacles[i]
		b := ob.Bounds()
		obj := resolv.NewObject(
			b.Min.X()+s.offset, b.Min.Z()+s.offset,
			b.Max.X()-b.Min.X(), b.Max.Z()-b.Min.Z(),
			obstacleTag,
		)
		obj.Data = ob
		s.space.Add(obj)
	}
	s.probe = resolv.NewObject(s.offset, s.offset, 1, 1, probeTag)
	s.space.Add(s.probe)
	return s
}

// Overlapping returns the obstacles whose boxes intersect box
func (s *ObstacleSpace) Overlapping(box Box3) []*Obstacle {
	s.probe.X = box.Min.X() + s.offset
	s.probe.Y = box.Min.Z() + s.offset
	s.probe.W = box.Max.X() - box.Min.X()
	s.probe.H = box.Max.Z() - box.Min.Z()
	s.probe.Update()

	c := s.probe.Check(0, 0, obstacleTag)
	if c == nil {
		return nil
	}
	var out []*Obstacle
	seen := make(map[*Obstacle]bool, len(c.Objects))
	for _, obj := range c.Objects {
		ob, ok := obj.Data.(*Obstacle)
		if !ok || seen[ob] {
			continue
		}
		seen[ob] = true
		if box.Intersects(ob.Bounds()) {
			out = append(out, ob)
		}
	}
	return out
}
