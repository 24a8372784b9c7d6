package main

import (
	"os"
	"path/filepath"
	"testing"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GROVE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, k := range []string{"GROVE_ADDR", "GROVE_DB", "GROVE_ROOM", "GROVE_SERVER", "GROVE_PUBLIC_URL", "GROVE_EMAIL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigServeDefaults(t *testing.T) {
	isolateEnv(t)
	cfg, err := LoadConfig("serve", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" || cfg.DBDSN != "grove.db" || cfg.PublicURL != "http://localhost:8080" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.GoogleEnabled() {
		t.Error("google should be off without credentials")
	}
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("GROVE_ADDR", ":9000")
	t.Setenv("GROVE_PUBLIC_URL", "https://grove.example/")
	cfg, err := LoadConfig("serve", []string{"-addr", ":7000"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("flag should win, addr = %q", cfg.Addr)
	}
	if cfg.PublicURL != "https://grove.example" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.PublicURL)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GROVE_ROOM=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GROVE_ENV_FILE", path)
	// godotenv does not override variables that are already set
	os.Unsetenv("GROVE_ROOM")
	t.Cleanup(func() { os.Unsetenv("GROVE_ROOM") })

	cfg, err := LoadConfig("play", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Room != "from-file" {
		t.Errorf("room = %q", cfg.Room)
	}
}

func TestLoadConfigPlay(t *testing.T) {
	isolateEnv(t)
	cfg, err := LoadConfig("play", []string{"-mode", "training", "-headless", "-frames", "120", "-server", "http://h:1/"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeTraining || !cfg.Headless || cfg.Frames != 120 || cfg.ServerURL != "http://h:1" {
		t.Errorf("play config = %+v", cfg)
	}
	if cfg.Room != DefaultRoomID {
		t.Errorf("room = %q", cfg.Room)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	isolateEnv(t)
	if _, err := LoadConfig("play", []string{"-mode", "deathmatch"}); err == nil {
		t.Error("unknown mode should fail")
	}
	if _, err := LoadConfig("play", []string{"-room", ""}); err == nil {
		t.Error("empty room should fail")
	}
	if _, err := LoadConfig("fly", nil); err == nil {
		t.Error("unknown command should fail")
	}
	if _, err := LoadConfig("serve", []string{"-nope"}); err == nil {
		t.Error("unknown flag should fail")
	}
}
