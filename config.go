package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process settings for both subcommands
type Config struct {
	// serve
	Addr      string
	ClientDir string
	DBDSN     string // sqlite path or postgres:// URL
	Secret    string // overrides the persisted token secret when set
	PublicURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	// play
	ServerURL    string
	Room         string
	Mode         GameMode
	Headless     bool
	Email        string
	Password     string
	LogFile      string
	KeepDefeated bool
	Frames       int // 0 runs until quit
}

// loadDotEnv reads .env if present. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// LoadConfig builds the config for a subcommand: .env, then environment, then flags.
func LoadConfig(cmd string, args []string) (*Config, error) {
	if err := loadDotEnv(envOr("GROVE_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:               envOr("GROVE_ADDR", ":8080"),
		ClientDir:          envOr("GROVE_CLIENT_DIR", ""),
		DBDSN:              envOr("GROVE_DB", "grove.db"),
		Secret:             os.Getenv("GROVE_SECRET"),
		PublicURL:          envOr("GROVE_PUBLIC_URL", "http://localhost:8080"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv("GOOGLE_REDIRECT_URI"),
		ServerURL:          envOr("GROVE_SERVER", "http://localhost:8080"),
		Room:               envOr("GROVE_ROOM", DefaultRoomID),
		Email:              os.Getenv("GROVE_EMAIL"),
		Password:           os.Getenv("GROVE_PASSWORD"),
	}

	fsFlags := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var mode string
	switch cmd {
	case "serve":
		fsFlags.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
		fsFlags.StringVar(&cfg.ClientDir, "client", cfg.ClientDir, "Path to browser client directory (optional)")
		fsFlags.StringVar(&cfg.DBDSN, "db", cfg.DBDSN, "SQLite path or postgres:// URL")
		fsFlags.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "Public base URL used in join links")
	case "play":
		fsFlags.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Room service base URL")
		fsFlags.StringVar(&cfg.Room, "room", cfg.Room, "Room to join")
		fsFlags.StringVar(&mode, "mode", "arena", "Game mode: arena or training")
		fsFlags.BoolVar(&cfg.Headless, "headless", false, "Run a bot without a terminal renderer")
		fsFlags.StringVar(&cfg.Email, "email", cfg.Email, "Account email (guest when empty)")
		fsFlags.StringVar(&cfg.Password, "password", cfg.Password, "Account password")
		fsFlags.StringVar(&cfg.LogFile, "log", "grove-play.log", "Log file used while the terminal renderer owns the screen")
		fsFlags.BoolVar(&cfg.KeepDefeated, "keep-defeated", false, "Do not clear the defeated list on arena entry")
		fsFlags.IntVar(&cfg.Frames, "frames", 0, "Stop after this many frames (0 = run until quit)")
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
	if err := fsFlags.Parse(args); err != nil {
		return nil, err
	}

	if cmd == "play" {
		m, err := ParseGameMode(mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = m
		cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
		if cfg.Room == "" {
			return nil, errors.New("room must not be empty")
		}
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return cfg, nil
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
