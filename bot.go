package main

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Bot timings are in frames
const (
	BotBurstSize     = 5
	BotBurstGap      = 9   // frames between shots in a burst
	BotBurstCooldown = 180 // frames between bursts
	BotWanderDrift   = 0.05
	BotStrafeFlipMin = 90
	BotStrafeFlipMax = 210
	botKeyThreshold  = 0.35
)

// BotIntent is what the bot wants to do this frame
type BotIntent struct {
	Keys   KeySet
	Aim    mgl64.Vec3
	HasAim bool
	Fire   bool
	Target string
}

// Bot drives an actor without a human: it tracks the nearest opponent in
// range, aims where the target will be, keeps a preferred distance while
// strafing and fires in bursts. With nothing in range it wanders.
type Bot struct {
	rng *rand.Rand

	last map[string]mgl64.Vec3 // opponent positions seen on the previous frame

	burstLeft   int
	fireCD      int
	burstCD     int
	wander      float64
	strafeDir   float64
	strafeTimer int
}

// NewBot creates a bot. rng may be nil.
func NewBot(rng *rand.Rand) *Bot {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	b := &Bot{
		rng:       rng,
		last:      make(map[string]mgl64.Vec3),
		wander:    rng.Float64() * 2 * math.Pi,
		strafeDir: 1,
	}
	if rng.Float64() < 0.5 {
		b.strafeDir = -1
	}
	b.strafeTimer = b.strafeFlip()
	return b
}

func (b *Bot) strafeFlip() int {
	return BotStrafeFlipMin + b.rng.Intn(BotStrafeFlipMax-BotStrafeFlipMin+1)
}

// keysToward picks the directional keys closest to a ground direction
func keysToward(x, z float64) KeySet {
	var k KeySet
	n := math.Hypot(x, z)
	if n == 0 {
		return k
	}
	x, z = x/n, z/n
	switch {
	case x > botKeyThreshold:
		k = k.With(KeyRight)
	case x < -botKeyThreshold:
		k = k.With(KeyLeft)
	}
	switch {
	case z > botKeyThreshold:
		k = k.With(KeyDown)
	case z < -botKeyThreshold:
		k = k.With(KeyUp)
	}
	return k
}

// Decide looks at the simulation and returns this frame's intent
func (b *Bot) Decide(s *Sim) BotIntent {
	var in BotIntent
	actor := s.Actor()
	if actor.Eliminated {
		return in
	}
	cfg := s.Config()

	if b.fireCD > 0 {
		b.fireCD--
	}
	if b.burstCD > 0 {
		b.burstCD--
	}

	var target, targetVel mgl64.Vec3
	best := math.MaxFloat64
	found := false
	seen := make(map[string]mgl64.Vec3, len(b.last))
	s.World().Each(KindOpponent, func(_ Handle, e *Entity) {
		op := e.Opponent
		seen[op.Identity] = op.Position
		if op.Hit && cfg.HitMode == HitRecolor {
			return
		}
		d := ground(op.Position.Sub(actor.Position)).Len()
		if d < cfg.MaxRange && d < best {
			best = d
			target = op.Position
			if prev, ok := b.last[op.Identity]; ok {
				targetVel = op.Position.Sub(prev)
			} else {
				targetVel = mgl64.Vec3{}
			}
			in.Target = op.Identity
			found = true
		}
	})
	b.last = seen

	if found {
		frames := 0.0
		if cfg.MuzzleVelocity > 0 {
			frames = best / cfg.MuzzleVelocity
		}
		lead := target.Add(targetVel.Mul(frames))
		if aim := ground(lead.Sub(actor.Position)); aim.Len() > 0 {
			in.Aim = aim.Normalize()
			in.HasAim = true
		}

		optimal := cfg.MaxRange * 0.45
		toTarget := ground(target.Sub(actor.Position))
		angle := math.Atan2(toTarget.Z(), toTarget.X())
		radial := Clamp((best-optimal)/(optimal*0.5), -1, 1)
		tangential := b.strafeDir * (1 - math.Abs(radial)*0.7)
		mx := math.Cos(angle)*radial + math.Cos(angle+math.Pi/2)*tangential
		mz := math.Sin(angle)*radial + math.Sin(angle+math.Pi/2)*tangential
		in.Keys = keysToward(mx, mz)

		b.strafeTimer--
		if b.strafeTimer <= 0 {
			b.strafeDir = -b.strafeDir
			b.strafeTimer = b.strafeFlip()
		}
	} else {
		b.wander = NormalizeAngle(b.wander + (b.rng.Float64()*2-1)*BotWanderDrift)
		in.Keys = keysToward(math.Cos(b.wander), math.Sin(b.wander))
	}

	if found && actor.Ammo > 0 {
		switch {
		case b.burstLeft > 0 && b.fireCD <= 0:
			in.Fire = true
		case b.burstLeft == 0 && b.burstCD <= 0:
			b.burstLeft = BotBurstSize
			in.Fire = true
		}
		if in.Fire {
			b.burstLeft--
			b.fireCD = BotBurstGap
			if b.burstLeft == 0 {
				b.burstCD = BotBurstCooldown
			}
		}
	}
	return in
}

// Apply feeds the intent into the simulation. A shot refused by the
// simulation is returned as an error.
func (b *Bot) Apply(s *Sim, in BotIntent) error {
	s.SetKeys(in.Keys)
	if in.HasAim {
		s.Aim().SetWorldDirection(in.Aim)
	}
	if in.Fire {
		return s.Shoot()
	}
	return nil
}
