package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
)

const (
	FrameRate     = 60
	FrameDuration = time.Second / FrameRate
)

var ErrMissingIdentity = errors.New("missing actor identity")

// SimOptions are the collaborators of a Sim. Zero values are usable.
type SimOptions struct {
	Width, Height int
	Sink          PresenceSink
	Cues          Cues
	Rng           *rand.Rand
}

// StepResult summarizes one simulated frame
type StepResult struct {
	Step    mgl64.Vec3
	Retired int
	Hits    []HitEvent
}

// Sim is the local combat simulation. It is not safe for concurrent use; the
// peer loop owns it.
type Sim struct {
	cfg       ModeConfig
	world     *World
	actorH    Handle
	actor     *Actor
	aim       *AimState
	cam       *Camera
	move      *MovementResolver
	hits      *HitResolver
	recon     *Reconciler
	obstacles *ObstacleSpace
	cues      Cues
	keys      KeySet
	frame     uint64
	connected bool
	log       *logrus.Entry
}

// NewSim builds the scene for cfg: the actor, obstacles and dummies
func NewSim(cfg ModeConfig, identity string, opts SimOptions) (*Sim, error) {
	if identity == "" {
		return nil, ErrMissingIdentity
	}
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cues := opts.Cues
	if cues == nil {
		cues = nopCues{}
	}

	w := NewWorld()
	s := &Sim{
		cfg:   cfg,
		world: w,
		aim:   NewAimState(),
		hits:  NewHitResolver(cfg.HitRadius, cfg.HitMode, cfg.WorldSize),
		recon: NewReconciler(w, cfg, identity, opts.Sink, rng),
		cues:  cues,
		log:   componentLog("sim").WithFields(logrus.Fields{"identity": identity, "mode": cfg.Mode.String()}),
	}

	s.actor = &Actor{
		Identity: identity,
		Position: mgl64.Vec3{0, cfg.SpawnHeight, 0},
		Facing:   mgl64.QuatIdent(),
		Health:   cfg.StartHealth,
		Ammo:     cfg.StartAmmo,
	}
	s.actorH, _ = w.Spawn(Entity{Kind: KindActor, Actor: s.actor})

	var obstacles []Obstacle
	if cfg.PlaceObstacles {
		obstacles = PlaceObstacles(TreeCandidates, HouseCandidates, cfg.TreeMinDistance, cfg.HouseMinDistance, rng)
		for i := range obstacles {
			w.Spawn(Entity{Kind: KindObstacle, Obstacle: &obstacles[i]})
		}
	}
	s.move = &MovementResolver{Speed: cfg.MoveSpeed, HalfExtents: cfg.ActorHalfExtents}
	if cfg.ObstacleAware {
		s.obstacles = NewObstacleSpace(cfg.WorldSize, obstacles)
		s.move.Obstacles = s.obstacles
	}

	for i := 0; i < cfg.Dummies; i++ {
		w.Spawn(Entity{Kind: KindOpponent, Opponent: &Opponent{
			Identity: fmt.Sprintf("dummy-%d", i+1),
			Position: cfg.dummySpawn(rng),
			Source:   SourceDummy,
		}})
	}

	s.cam = NewCamera(cfg, s.actor.Position, opts.Width, opts.Height)
	s.log.WithFields(logrus.Fields{
		"obstacles": len(obstacles),
		"dummies":   cfg.Dummies,
	}).Info("scene ready")
	return s, nil
}

// Actor returns the local actor
func (s *Sim) Actor() *Actor { return s.actor }

// World returns the entity store
func (s *Sim) World() *World { return s.world }

// Camera returns the bound camera
func (s *Sim) Camera() *Camera { return s.cam }

// Aim returns the aim state
func (s *Sim) Aim() *AimState { return s.aim }

// Config returns the mode tuning
func (s *Sim) Config() ModeConfig { return s.cfg }

// Reconciler returns the roster reconciler
func (s *Sim) Reconciler() *Reconciler { return s.recon }

// FrameCount returns how many frames have been stepped
func (s *Sim) FrameCount() uint64 { return s.frame }

// SetKeys replaces the held directional keys
func (s *Sim) SetKeys(k KeySet) { s.keys = k }

// SetPointer aims from a screen-space pointer offset
func (s *Sim) SetPointer(p PointerOffset) { s.aim.SetPointer(p) }

// Resize updates the viewport and projection aspect
func (s *Sim) Resize(width, height int) { s.cam.Resize(width, height) }

// Shoot spawns a projectile at the actor along the current aim
func (s *Sim) Shoot() error {
	if s.actor.Eliminated {
		return ErrActorEliminated
	}
	if s.actor.Ammo <= 0 {
		return ErrOutOfAmmo
	}
	if s.cfg.MaxProjectiles > 0 && s.world.Count(KindProjectile) >= s.cfg.MaxProjectiles {
		return ErrProjectileLimit
	}
	p, err := NewProjectile(s.actor.Position, s.aim.Direction(), s.cfg.MuzzleVelocity)
	if err != nil {
		return err
	}
	s.world.Spawn(Entity{Kind: KindProjectile, Projectile: p})
	s.actor.Ammo--
	s.cues.Shot()
	return nil
}

// Step advances one frame: movement, projectile advance, then hit testing.
// The camera follows the applied step and recenters on the actor.
func (s *Sim) Step() StepResult {
	s.frame++
	var res StepResult

	if !s.actor.Eliminated {
		res.Step = s.move.Resolve(s.actor, s.keys)
	}
	s.cam.Follow(s.actor.Position, res.Step)

	res.Retired = advanceProjectiles(s.world, s.cfg.MaxRange)

	res.Hits = s.hits.Resolve(s.world)
	for _, ev := range res.Hits {
		if ev.Eliminated {
			s.recon.MarkDefeated(ev.Identity)
		}
		s.log.WithFields(logrus.Fields{"target": ev.Identity, "eliminated": ev.Eliminated}).Info("hit")
	}
	if len(res.Hits) > 0 {
		s.cues.Hit()
	}

	s.world.Compact()
	return res
}

// Tick runs one full frame: Step, draw, then the publish check
func (s *Sim) Tick(r Renderer) (StepResult, error) {
	res := s.Step()
	if r != nil {
		if err := r.Draw(s.View()); err != nil {
			return res, fmt.Errorf("draw: %w", err)
		}
	}
	s.recon.PublishIfMoved(s.actor)
	return res, nil
}

// ApplyRoom feeds a room notification into the simulation
func (s *Sim) ApplyRoom(u RoomUpdate) {
	switch u.Kind {
	case UpdateWelcome:
		s.connected = true
		if u.Welcome != nil {
			s.log.WithFields(logrus.Fields{"room": u.Welcome.Room, "cid": u.Welcome.ConnectionID}).Info("joined room")
		}
	case UpdateRoster:
		s.recon.Apply(u.Roster)
	case UpdateStorage:
		if s.recon.ApplyStorage(u.Storage) && s.cfg.Mode == ModeArena {
			s.eliminateSelf()
		}
	case UpdateDisconnected:
		if s.connected {
			s.log.WithError(u.Err).Warn("room connection lost, remote opponents frozen")
		}
		s.connected = false
	}
}

// Connected reports whether the room link is up
func (s *Sim) Connected() bool { return s.connected }

func (s *Sim) eliminateSelf() {
	if s.actor.Eliminated {
		return
	}
	s.actor.Eliminated = true
	s.world.MarkRemove(s.actorH)
	s.world.Compact()
	s.log.Info("eliminated")
}

// View builds the render frame from the current world state
func (s *Sim) View() *Frame {
	f := &Frame{
		Seq:    s.frame,
		Camera: *s.cam,
		HUD: HUD{
			Identity:   s.actor.Identity,
			Mode:       s.cfg.Mode,
			Health:     s.actor.Health,
			Ammo:       s.actor.Ammo,
			Opponents:  s.world.Count(KindOpponent),
			Eliminated: s.actor.Eliminated,
			Connected:  s.connected,
		},
	}
	f.Sprites = make([]Sprite, 0, s.world.Count(KindObstacle)+s.world.Count(KindOpponent)+s.world.Count(KindProjectile)+1)

	s.world.Each(KindObstacle, func(h Handle, e *Entity) {
		f.Sprites = append(f.Sprites, Sprite{
			Handle: h, Kind: KindObstacle, Position: e.Position(),
			Obstacle: e.Obstacle.Kind, Size: e.Obstacle.Size,
		})
	})
	s.world.Each(KindOpponent, func(h Handle, e *Entity) {
		t := TintNormal
		if e.Opponent.Hit {
			t = TintHit
		}
		f.Sprites = append(f.Sprites, Sprite{
			Handle: h, Kind: KindOpponent, Position: e.Opponent.Position,
			Tint: t, Label: e.Opponent.Identity,
		})
	})
	s.world.Each(KindProjectile, func(h Handle, e *Entity) {
		f.Sprites = append(f.Sprites, Sprite{Handle: h, Kind: KindProjectile, Position: e.Projectile.Position})
	})
	s.world.Each(KindActor, func(h Handle, e *Entity) {
		f.Sprites = append(f.Sprites, Sprite{
			Handle: h, Kind: KindActor, Position: e.Actor.Position,
			Tint: TintSelf, Label: e.Actor.Identity,
		})
	})

	if !s.actor.Eliminated {
		x, y, ok := AimMarker(s.cam, s.actor.Position, s.aim, s.cfg.AimRadius)
		f.Marker = Marker{X: x, Y: y, Visible: ok}
	}
	return f
}
