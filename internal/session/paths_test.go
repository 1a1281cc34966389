package session

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPathsLiveUnderBaseDir(t *testing.T) {
	base := BaseDir()
	if !strings.HasSuffix(base, ".prsnl") {
		t.Errorf("base dir = %q", base)
	}
	for name, path := range map[string]string{
		"config": ConfigPath(),
		"lock":   LockPath(),
		"log":    LogPath(),
	} {
		if !strings.HasPrefix(path, base) {
			t.Errorf("%s path %q not under %q", name, path, base)
		}
	}
	if filepath.Base(ConfigPath()) != "config.toml" {
		t.Errorf("config path = %q", ConfigPath())
	}
}
