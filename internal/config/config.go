package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the client configuration at ~/.prsnl/config.toml. It is
// passed explicitly to whatever needs it; there is no ambient global.
type Config struct {
	ServerURL            string `toml:"server_url"`
	PingIntervalSecs     int    `toml:"ping_interval_secs"`
	MaxReconnectAttempts int    `toml:"max_reconnect_attempts"`
}

// Default returns the out-of-the-box configuration.
func Default() *Config {
	return &Config{
		ServerURL:            "ws://localhost:8765/ws",
		PingIntervalSecs:     30,
		MaxReconnectAttempts: 5,
	}
}

// Load reads config from the given path, filling unset fields with
// defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = Default().ServerURL
	}
	if cfg.PingIntervalSecs <= 0 {
		cfg.PingIntervalSecs = Default().PingIntervalSecs
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = Default().MaxReconnectAttempts
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
