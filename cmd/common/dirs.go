package common

import (
	"os"
	"path/filepath"
)

// DefaultEngineConfig returns the path of the user's engine tunables file,
// or "" if none exists.
func DefaultEngineConfig() string {
	path := filepath.Join(configHome(), "smore", "engine.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// https://specifications.freedesktop.org/basedir/latest/#variables
func configHome() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return dir
}
