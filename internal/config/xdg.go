package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the XDG subdirectories.
const AppName = "skv"

// ConfigDir returns the XDG-compliant config directory for skv
// Typically ~/.config/skv/ on Linux
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigPath returns the full path to the config file
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json5")
}

// DataDir returns the XDG-compliant data directory for skv
// Typically ~/.local/share/skv/ on Linux (encrypted file store, keyring file backend)
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns the XDG-compliant state directory, used for log files
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}
