package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the codeview home directory.
const HomeEnv = "CODEVIEW_HOME"

// GetCodeviewHome returns the directory holding the history database and
// default logs, creating it if needed.
// Priority order:
//  1. CODEVIEW_HOME environment variable (if set)
//  2. <user config dir>/codeview
func GetCodeviewHome() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("locate user config directory: %w", err)
		}
		home = filepath.Join(base, "codeview")
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create codeview home directory: %w", err)
	}
	return home, nil
}

// HistoryDBPath returns the configured history database, defaulting to
// $CODEVIEW_HOME/history.db.
func (c *Config) HistoryDBPath() (string, error) {
	if c.HistoryDB != "" {
		return c.HistoryDB, nil
	}
	home, err := GetCodeviewHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
