package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("Default http address = %q", cfg.Server.HTTPAddress)
	}
	if cfg.Game.MaxPlayers != 10 || cfg.Game.ImposterCount != 1 {
		t.Errorf("Game defaults not applied: %+v", cfg.Game)
	}
	if cfg.Game.DiscussionSeconds != 60 || cfg.Game.VotingSeconds != 30 || cfg.Game.MaxRounds != 3 {
		t.Errorf("Round defaults not applied: %+v", cfg.Game)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  http_address: \":9999\"\ngame:\n  max_rounds: 5\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.HTTPAddress != ":9999" {
		t.Errorf("File value not applied, got %q", cfg.Server.HTTPAddress)
	}
	if cfg.Game.MaxRounds != 5 {
		t.Errorf("File value not applied, got %d", cfg.Game.MaxRounds)
	}
	if cfg.Game.MaxPlayers != 10 {
		t.Errorf("Unset keys should keep defaults, got %d", cfg.Game.MaxPlayers)
	}
}
