package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PointerOffset is a pointer position relative to the viewport center,
// scaled to [-1,1] on both axes. Y grows downward as in screen coordinates.
type PointerOffset struct {
	X, Y float64
}

// PointerFromViewport converts a pixel position into a PointerOffset
func PointerFromViewport(px, py float64, width, height int) PointerOffset {
	if width < 1 || height < 1 {
		return PointerOffset{}
	}
	return PointerOffset{
		X: Clamp(px/float64(width)*2-1, -1, 1),
		Y: Clamp(py/float64(height)*2-1, -1, 1),
	}
}

// AimState holds the current aim direction on the ground plane
type AimState struct {
	dir mgl64.Vec3
}

// NewAimState aims straight ahead (-Z)
func NewAimState() *AimState {
	return &AimState{dir: mgl64.Vec3{0, 0, -1}}
}

// Direction returns the normalized ground-plane aim direction
func (a *AimState) Direction() mgl64.Vec3 {
	return a.dir
}

// SetPointer updates the aim from a pointer offset. A zero offset keeps the
// previous direction.
func (a *AimState) SetPointer(p PointerOffset) {
	ndcX, ndcY := p.X, -p.Y
	a.setGround(ndcX, -ndcY)
}

// SetWorldDirection aims along a world direction projected to the ground
func (a *AimState) SetWorldDirection(d mgl64.Vec3) {
	a.setGround(d.X(), d.Z())
}

func (a *AimState) setGround(x, z float64) {
	if math.IsNaN(x) || math.IsNaN(z) {
		return
	}
	a.dir = normalizeOr(mgl64.Vec3{x, 0, z}, a.dir)
}

// AimMarker returns the viewport position of the aim marker: the point
// aimRadius ahead of the actor along the aim direction, projected through cam
func AimMarker(cam *Camera, actorPos mgl64.Vec3, aim *AimState, aimRadius float64) (px, py float64, ok bool) {
	world := actorPos.Add(aim.Direction().Mul(aimRadius))
	return cam.ProjectToViewport(world)
}
