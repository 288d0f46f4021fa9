package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.ragged_memory/logs, or a temp-dir equivalent when the
// home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ragged_memory", "logs")
	}
	return filepath.Join(home, ".ragged_memory", "logs")
}

// DefaultLogPath returns the CLI log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "ram.log")
}

// LogPathIn returns the log path inside a global store directory.
func LogPathIn(globalDir string) string {
	return filepath.Join(globalDir, "logs", "ram.log")
}
