package main

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera that follows the actor
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
	FovDeg   float64
	Near     float64
	Far      float64

	width, height int
}

// NewCamera creates a camera looking at target from target+offset
func NewCamera(cfg ModeConfig, target mgl64.Vec3, width, height int) *Camera {
	c := &Camera{
		Position: target.Add(cfg.CameraOffset),
		Target:   target,
		Up:       mgl64.Vec3{0, 1, 0},
		FovDeg:   cfg.CameraFovDeg,
		Near:     cfg.CameraNear,
		Far:      cfg.CameraFar,
	}
	c.Resize(width, height)
	return c
}

// Resize updates the viewport; the projection aspect follows it
func (c *Camera) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	c.width, c.height = width, height
}

// Viewport returns the viewport size in pixels (or terminal cells)
func (c *Camera) Viewport() (int, int) {
	return c.width, c.height
}

// Aspect returns width / height
func (c *Camera) Aspect() float64 {
	return float64(c.width) / float64(c.height)
}

// ViewProjection returns projection * view
func (c *Camera) ViewProjection() mgl64.Mat4 {
	proj := mgl64.Perspective(mgl64.DegToRad(c.FovDeg), c.Aspect(), c.Near, c.Far)
	view := mgl64.LookAtV(c.Position, c.Target, c.Up)
	return proj.Mul4(view)
}

// Project maps a world point to normalized device coordinates. ok is false
// for points behind the camera.
func (c *Camera) Project(p mgl64.Vec3) (ndc mgl64.Vec3, ok bool) {
	clip := c.ViewProjection().Mul4x1(p.Vec4(1))
	w := clip.W()
	if w <= 0 {
		return mgl64.Vec3{}, false
	}
	return mgl64.Vec3{clip.X() / w, clip.Y() / w, clip.Z() / w}, true
}

// ProjectToViewport maps a world point to viewport pixel coordinates
func (c *Camera) ProjectToViewport(p mgl64.Vec3) (px, py float64, ok bool) {
	ndc, ok := c.Project(p)
	if !ok {
		return 0, 0, false
	}
	px = (ndc.X()*0.5 + 0.5) * float64(c.width)
	py = -(ndc.Y()*0.5 - 0.5) * float64(c.height)
	return px, py, true
}

// Follow translates the camera by step and recenters its target on p
func (c *Camera) Follow(p, step mgl64.Vec3) {
	c.Position = c.Position.Add(step)
	c.Target = p
}
