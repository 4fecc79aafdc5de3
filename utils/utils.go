package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// FileExist reports whether a regular file exists at 'filePath'
func FileExist(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}

// CreateDirIfNotExist creates 'dir' along with any missing parents. The
// directory holds the sqlite db, so it's only readable by the owner.
func CreateDirIfNotExist(dir string) error {
	return os.MkdirAll(dir, 0700)
}

// ExpandHome replaces a leading "~" in 'path' with the current user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
