package main

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
)

// PeerOptions wires a Peer. Events and Bot are alternatives: a terminal
// peer reads events, a headless peer asks the bot.
type PeerOptions struct {
	Link         RoomLink // nil runs without a room
	Renderer     Renderer
	Events       <-chan tcell.Event
	Bot          *Bot
	Cues         Cues
	MaxFrames    int
	KeepDefeated bool
}

// Peer runs the frame loop of one participant
type Peer struct {
	sim   *Sim
	opts  PeerOptions
	latch *KeyLatch
	log   *logrus.Entry
}

// NewPeer creates a peer around sim
func NewPeer(sim *Sim, opts PeerOptions) *Peer {
	if opts.Renderer == nil {
		opts.Renderer = NewLogRenderer(0)
	}
	if opts.Cues == nil {
		opts.Cues = nopCues{}
	}
	return &Peer{
		sim:   sim,
		opts:  opts,
		latch: NewKeyLatch(0),
		log:   componentLog("peer").WithField("identity", sim.Actor().Identity),
	}
}

// Run drives the simulation at FrameRate until ctx ends, the user quits, or
// MaxFrames frames have run. Resources in opts are released on return.
func (p *Peer) Run(ctx context.Context) error {
	defer p.teardown()

	if p.opts.Link != nil && p.sim.Config().Mode == ModeArena && !p.opts.KeepDefeated {
		p.opts.Link.ClearDefeated()
	}

	var updates <-chan RoomUpdate
	if p.opts.Link != nil {
		updates = p.opts.Link.Updates()
	}
	events := p.opts.Events

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !p.handleEvent(ev) {
				return nil
			}

		case u, ok := <-updates:
			if !ok {
				updates = nil
				p.sim.ApplyRoom(RoomUpdate{Kind: UpdateDisconnected, Err: errors.New("room link closed")})
				continue
			}
			p.sim.ApplyRoom(u)

		case now := <-ticker.C:
			if p.opts.Bot != nil {
				in := p.opts.Bot.Decide(p.sim)
				if err := p.opts.Bot.Apply(p.sim, in); err != nil && !errors.Is(err, ErrOutOfAmmo) {
					p.log.WithError(err).Debug("bot shot refused")
				}
			} else {
				p.sim.SetKeys(p.latch.Held(now))
			}
			if _, err := p.sim.Tick(p.opts.Renderer); err != nil {
				return err
			}
			if p.opts.MaxFrames > 0 && p.sim.FrameCount() >= uint64(p.opts.MaxFrames) {
				return nil
			}
		}
	}
}

// handleEvent applies one terminal event. Returns false on quit.
func (p *Peer) handleEvent(ev tcell.Event) bool {
	w, h := p.sim.Camera().Viewport()
	in, ok := translateEvent(ev, w, h)
	if !ok {
		return true
	}
	switch in.Kind {
	case InputQuit:
		return false
	case InputKey:
		p.latch.Press(in.Key, time.Now())
	case InputPointer:
		p.sim.SetPointer(in.Pointer)
	case InputShoot:
		if _, isMouse := ev.(*tcell.EventMouse); isMouse {
			p.sim.SetPointer(in.Pointer)
		}
		if err := p.sim.Shoot(); err != nil {
			p.log.WithError(err).Debug("shot refused")
		}
	case InputResize:
		p.sim.Resize(in.Width, in.Height)
		p.opts.Renderer.Resize(in.Width, in.Height)
	}
	return true
}

func (p *Peer) teardown() {
	if p.opts.Link != nil {
		if err := p.opts.Link.Close(); err != nil {
			p.log.WithError(err).Warn("close room link")
		}
	}
	if err := p.opts.Renderer.Close(); err != nil {
		p.log.WithError(err).Warn("close renderer")
	}
	p.opts.Cues.Close()
	p.log.WithField("frames", p.sim.FrameCount()).Info("peer stopped")
}
