package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Permission constants for file and directory modes.
const (
	// UserWritableDirPerms represents the standard permissions for newly created directories (rwxr-xr-x).
	UserWritableDirPerms os.FileMode = 0755
	// UserWritableFilePerms represents the standard permissions for newly created files (rw-r--r--).
	UserWritableFilePerms os.FileMode = 0644
)

// ExpandPath expands the tilde (~) prefix in a path to the user's home directory.
// The "~user" form is not supported.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil // No tilde, return as-is.
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("could not expand %s: %w", path, err)
	}
	return expanded, nil
}

// ResolvePath expands a leading tilde and returns the cleaned absolute form of path.
func ResolvePath(path string) (string, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("could not determine absolute path for %s: %w", path, err)
	}
	return abs, nil
}

// NormalizePath converts a relative path to the forward-slash form used inside archives.
func NormalizePath(relPath string) string {
	return filepath.ToSlash(filepath.Clean(relPath))
}

// InvertMap takes a map[K]V and returns a map[V]K.
// It's a generic helper for creating reverse lookup maps for enums.
func InvertMap[K comparable, V comparable](m map[K]V) map[V]K {
	inv := make(map[V]K, len(m))
	for k, v := range m {
		inv[v] = k
	}
	return inv
}

// FormatBytes renders a byte count with a binary unit suffix, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
