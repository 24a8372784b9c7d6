package main

import "math"

// EntityRef identifies an entity in the grid
type EntityRef struct {
	Kind   EntityKind
	Handle Handle
}

// SpatialGrid is a uniform grid over the ground plane for broad-phase
// projectile vs opponent queries. The covered square is centered on the
// origin; positions outside it clamp to the border cells.
type SpatialGrid struct {
	cellSize float64
	half     float64
	cols     int
	cells    [][]EntityRef
}

// NewSpatialGrid covers a square of side worldSize with cells of cellSize
func NewSpatialGrid(worldSize, cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(worldSize/cellSize)) + 1
	if cols < 1 {
		cols = 1
	}
	return &SpatialGrid{
		cellSize: cellSize,
		half:     worldSize / 2,
		cols:     cols,
		cells:    make([][]EntityRef, cols*cols),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) cellCoord(v float64) int {
	c := int(math.Floor((v + g.half) / g.cellSize))
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

// InsertCircle adds an entity reference to all cells overlapping its bounding square
func (g *SpatialGrid) InsertCircle(x, z, radius float64, ref EntityRef) {
	minCX, maxCX := g.cellCoord(x-radius), g.cellCoord(x+radius)
	minCZ, maxCZ := g.cellCoord(z-radius), g.cellCoord(z+radius)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cz*g.cols + cx
			g.cells[idx] = append(g.cells[idx], ref)
		}
	}
}

// QueryBuf appends results to buf and returns the extended slice, avoiding per-call allocation
func (g *SpatialGrid) QueryBuf(x, z, radius float64, buf []EntityRef) []EntityRef {
	minCX, maxCX := g.cellCoord(x-radius), g.cellCoord(x+radius)
	minCZ, maxCZ := g.cellCoord(z-radius), g.cellCoord(z+radius)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cz*g.cols+cx]...)
		}
	}
	return buf
}
