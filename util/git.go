package util

import (
	"os"
	"path/filepath"
)

// FindConfigRoot walks up from the current directory looking for a directory
// that holds the named marker file (or a .git directory).
// Returns the current directory if neither is found.
func FindConfigRoot(marker string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findRootFrom(dir, marker), nil
}

func findRootFrom(start, marker string) string {
	dir := start
	for {
		if marker != "" {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return start
		}
		dir = parent
	}
}
