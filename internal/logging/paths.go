package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.ragchat/logs, or a temp directory when there is no home.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ragchat", "logs")
	}
	return filepath.Join(home, ".ragchat", "logs")
}

// DefaultLogPath returns the default log file.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}
