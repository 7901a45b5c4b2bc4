// Package config resolves flow's configuration and the locations of its
// files.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// appDir is the directory name used under the XDG config and data roots.
const appDir = "flow"

// ExpandPath expands a leading ~ and $VAR references in a configured path.
// A ~ that cannot be resolved is left in place.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}

// ConfigDir returns the directory searched for config.yaml:
// $XDG_CONFIG_HOME/flow, falling back to ~/.config/flow.
func ConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDatabasePath returns where the database lives when database.path
// is unset: $XDG_DATA_HOME/flow/flow.db, falling back to
// ~/.local/share/flow/flow.db.
func DefaultDatabasePath() string {
	dir, err := xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	if err != nil {
		return filepath.Join("$HOME", ".local", "share", appDir, "flow.db")
	}
	return filepath.Join(dir, "flow.db")
}

func xdgDir(env, fallback string) (string, error) {
	if root := os.Getenv(env); root != "" && filepath.IsAbs(root) {
		return filepath.Join(root, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appDir), nil
}
