package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetHome returns the kabimap home directory.
// Priority: $KABIMAP_HOME -> $XDG_CONFIG_HOME/kabimap -> ~/.config/kabimap (Unix) / %APPDATA%\kabimap (Windows)
func GetHome() (string, error) {
	// Priority 1: KABIMAP_HOME environment variable
	if home := os.Getenv("KABIMAP_HOME"); home != "" {
		return home, nil
	}

	// Priority 2: XDG_CONFIG_HOME on Unix-like systems
	if runtime.GOOS != "windows" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "kabimap"), nil
		}
	}

	// Priority 3: Platform-specific defaults
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(userHome, "AppData", "Roaming", "kabimap"), nil
	default:
		return filepath.Join(userHome, ".config", "kabimap"), nil
	}
}

// GetConfigPath returns the path of the home config file.
func GetConfigPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// GetDefaultDatabase returns the default sqlite export path.
func GetDefaultDatabase() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "kabimap.db"), nil
}

// EnsureHome creates the home directory if it doesn't exist.
func EnsureHome() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", home, err)
	}
	return home, nil
}
