package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
)

const usage = `usage: grove-arena <command> [flags]

commands:
  serve   run the room service and HTTP API
  play    join a room as a peer (terminal, or -headless bot)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfg, err := LoadConfig(cmd, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		initLogger(os.Stdout)
		err = serve(ctx, cfg)
	case "play":
		err = play(ctx, cfg)
	}
	if err != nil {
		Log.WithError(err).Error("exiting")
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *Config) error {
	store, err := OpenStore(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	auth, err := NewAuth(ctx, store, cfg.Secret)
	if err != nil {
		return err
	}
	events := NewEventLog(store)
	defer events.Stop()

	var google *GoogleAuth
	if cfg.GoogleEnabled() {
		google = NewGoogleAuth(cfg, auth, store)
	}

	hub := NewHub(auth, events)
	hubStop := make(chan struct{})
	go hub.Run(hubStop)
	defer close(hubStop)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           SetupRoutes(hub, cfg, google),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		Log.WithFields(logrus.Fields{
			"addr":   cfg.Addr,
			"public": cfg.PublicURL,
			"google": google != nil,
		}).Info("server starting")
		if cfg.ClientDir != "" {
			Log.WithField("dir", cfg.ClientDir).Info("serving client files")
		}
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func play(ctx context.Context, cfg *Config) error {
	if cfg.Headless {
		initLogger(os.Stdout)
	} else {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		initLogger(f)
	}

	modeCfg := DefaultModeConfig(cfg.Mode)
	identity := cfg.Email
	if identity == "" {
		identity = "trainee"
	}

	// Training is local only; arena needs the room service
	var link RoomLink
	if cfg.Mode == ModeArena {
		session, err := Login(ctx, cfg.ServerURL, cfg.Email, cfg.Password)
		if err != nil {
			return err
		}
		token, err := LiveAuth(ctx, cfg.ServerURL, session, cfg.Room)
		if err != nil {
			return err
		}
		rc, err := DialRoom(ctx, cfg.ServerURL, token)
		if err != nil {
			return err
		}
		link = rc
		identity = session.Identity
	}

	var (
		renderer Renderer
		events   chan tcell.Event
		bot      *Bot
		cues     Cues = nopCues{}
		width    = 80
		height   = 24
	)
	if cfg.Headless {
		renderer = NewLogRenderer(FrameRate)
		bot = NewBot(nil)
	} else {
		screen, err := tcell.NewScreen()
		if err != nil {
			closeLink(link)
			return fmt.Errorf("open terminal: %w", err)
		}
		tr, err := NewTermRenderer(screen)
		if err != nil {
			closeLink(link)
			return err
		}
		renderer = tr
		width, height = tr.Size()
		events = make(chan tcell.Event, 100)
		go pollInput(screen, events)

		if c, err := NewCues(); err != nil {
			Log.WithError(err).Warn("audio unavailable, cues disabled")
		} else {
			cues = c
		}
	}

	var sink PresenceSink
	if link != nil {
		sink = link
	}
	sim, err := NewSim(modeCfg, identity, SimOptions{
		Width:  width,
		Height: height,
		Sink:   sink,
		Cues:   cues,
	})
	if err != nil {
		renderer.Close()
		closeLink(link)
		return err
	}

	peer := NewPeer(sim, PeerOptions{
		Link:         link,
		Renderer:     renderer,
		Events:       events,
		Bot:          bot,
		Cues:         cues,
		MaxFrames:    cfg.Frames,
		KeepDefeated: cfg.KeepDefeated,
	})
	return peer.Run(ctx)
}

func closeLink(link RoomLink) {
	if link != nil {
		link.Close()
	}
}
