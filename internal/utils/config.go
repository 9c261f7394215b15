package utils

import (
	"os"
	"path/filepath"
)

// GetProjectRoot returns the directory holding go.mod, walking up from the working directory.
func GetProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "."
}

// GetDataDir returns where the database and logs live by default.
// XDG_DATA_HOME wins over ~/.local/share.
func GetDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "listqr")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(GetProjectRoot(), "data")
	}
	return filepath.Join(home, ".local", "share", "listqr")
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
