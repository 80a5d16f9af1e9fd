// Package paths provides XDG-compliant path resolution for qlink.
//
// Resolution order:
// 1. QLINK_HOME (portable root) → $QLINK_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/qlink
// 3. Platform defaults → ~/.config/qlink, ~/.local/state/qlink
package paths

import (
	"os"
	"path/filepath"
)

const appName = "qlink"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("QLINK_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("QLINK_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the qlink configuration directory.
// Used for the global qlink.yml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the qlink state directory.
// Used for the binding database and logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// BindingDatabasePath returns the default location of the SQLite binding database.
func BindingDatabasePath() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "bindings.db")
}

// EnsureDirs creates all qlink directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
