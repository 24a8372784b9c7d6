package main

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
)

// Tint is the visual state of a sprite
type Tint uint8

const (
	TintNormal Tint = iota
	TintHit
	TintSelf
)

// Sprite is a non-owning view of one entity for a single frame
type Sprite struct {
	Handle   Handle
	Kind     EntityKind
	Position mgl64.Vec3
	Tint     Tint
	Label    string
	Obstacle ObstacleKind
	Size     float64
}

// Marker is the aim marker in viewport coordinates
type Marker struct {
	X, Y    float64
	Visible bool
}

// HUD is the actor status line
type HUD struct {
	Identity   string
	Mode       GameMode
	Health     int
	Ammo       int
	Opponents  int
	Eliminated bool
	Connected  bool
}

// Frame is everything a renderer needs to draw one frame. It is rebuilt from
// the world each frame; renderers must not keep it.
type Frame struct {
	Seq     uint64
	Camera  Camera
	Sprites []Sprite
	Marker  Marker
	HUD     HUD
}

// Renderer draws frames. Implementations own their output surface.
type Renderer interface {
	Resize(width, height int)
	Draw(f *Frame) error
	Close() error
}

// LogRenderer is the headless renderer: it logs a frame summary every
// `every` frames at debug level
type LogRenderer struct {
	every  uint64
	log    *logrus.Entry
	width  int
	height int
}

// NewLogRenderer creates a headless renderer
func NewLogRenderer(every uint64) *LogRenderer {
	if every == 0 {
		every = 60
	}
	return &LogRenderer{every: every, log: componentLog("render")}
}

func (r *LogRenderer) Resize(width, height int) {
	r.width, r.height = width, height
}

func (r *LogRenderer) Draw(f *Frame) error {
	if f.Seq%r.every != 0 {
		return nil
	}
	r.log.WithFields(logrus.Fields{
		"frame":      f.Seq,
		"sprites":    len(f.Sprites),
		"opponents":  f.HUD.Opponents,
		"health":     f.HUD.Health,
		"ammo":       f.HUD.Ammo,
		"eliminated": f.HUD.Eliminated,
	}).Debug("frame")
	return nil
}

func (r *LogRenderer) Close() error {
	return nil
}
