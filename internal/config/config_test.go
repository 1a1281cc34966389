package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != Default().ServerURL {
		t.Errorf("server_url = %q", cfg.ServerURL)
	}
	if cfg.MaxReconnectAttempts != 5 || cfg.PingIntervalSecs != 30 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	want := &Config{
		ServerURL:            "wss://assistant.example.com/ws",
		PingIntervalSecs:     15,
		MaxReconnectAttempts: 10,
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadFillsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`server_url = "wss://host/ws"`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != "wss://host/ws" {
		t.Errorf("server_url = %q", cfg.ServerURL)
	}
	if cfg.PingIntervalSecs != 30 {
		t.Errorf("ping interval default not applied: %d", cfg.PingIntervalSecs)
	}
}
