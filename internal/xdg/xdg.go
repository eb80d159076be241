// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package xdg resolves the per-user directories UEAdmission writes to,
// following the XDG Base Directory layout.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "ueadmission"

// File names inside the application directories.
const (
	PreferencesFileName = "preferences.yaml"
	SessionFileName     = "session.dat"
	ConfigFileName      = "config.yaml"
	LogFileName         = "ueadmission.log"
)

// baseDir returns $env/ueadmission, or $HOME/fallback.../ueadmission when
// env is unset.
func baseDir(env string, fallback ...string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_HOME_UNRESOLVED").
			With("env", env).
			Wrap(err)
	}
	parts := append([]string{home}, fallback...)
	parts = append(parts, appName)
	return filepath.Join(parts...), nil
}

// ConfigDir returns the config directory. Checks XDG_CONFIG_HOME first,
// falls back to ~/.config.
func ConfigDir() (string, error) {
	return baseDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the data directory. Checks XDG_DATA_HOME first, falls back
// to ~/.local/share.
func DataDir() (string, error) {
	return baseDir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the state directory. Checks XDG_STATE_HOME first, falls
// back to ~/.local/state.
func StateDir() (string, error) {
	return baseDir("XDG_STATE_HOME", ".local", "state")
}

// PreferencesFile is the key/value preferences document (session channel A).
func PreferencesFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PreferencesFileName), nil
}

// SessionFile is the serialized session blob (session channel B).
func SessionFile() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SessionFileName), nil
}

// ConfigFile is the default configuration file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// LogFile is where the interactive client writes its logs.
func LogFile() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogFileName), nil
}

// EnsureDir creates a directory and all parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").
			With("path", path).
			Wrap(err)
	}
	return nil
}
