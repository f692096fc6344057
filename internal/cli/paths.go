package cli

import (
	"path/filepath"
)

// StateDir is where label-pr keeps its files inside the git directory
func StateDir(gitDir string) string {
	return filepath.Join(gitDir, "label-pr")
}

// CachePath returns the parent cache location: configured if set, else
// inside the repository's git directory.
func CachePath(configured, gitDir string) string {
	if configured != "" {
		return configured
	}
	return filepath.Join(StateDir(gitDir), "parents.db")
}

// HistoryPath returns the run history database location
func HistoryPath(configured, gitDir string) string {
	if configured != "" {
		return configured
	}
	return filepath.Join(StateDir(gitDir), "history.db")
}
