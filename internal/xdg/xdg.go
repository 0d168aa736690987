// Package xdg provides helpers to resolve XDG Base Directory paths for chatdb.
// Configuration lives under the config home; the REPL history file lives under
// the state home. Both directories are created private (0700) on first use.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base directory.
const AppName = "chatdb"

// ConfigDir returns the XDG config directory for chatdb.
// It falls back to ~/.config/chatdb when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for chatdb.
// It falls back to ~/.local/state/chatdb when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// HistoryFile returns the path of the chat REPL history file.
func HistoryFile() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

func ensure(envVar, homeRelative string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRelative)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
