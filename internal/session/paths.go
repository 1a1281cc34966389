package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.prsnl.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".prsnl")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// LockPath returns the single-instance lock file path.
func LockPath() string {
	return filepath.Join(BaseDir(), "LOCK")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// LogPath returns the client log file path.
func LogPath() string {
	return filepath.Join(LogDir(), "prsnl.log")
}

// EnsureDirs creates the profile directory tree with proper permissions.
func EnsureDirs() error {
	for _, d := range []string{BaseDir(), LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
