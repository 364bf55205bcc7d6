package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IsHidden reports whether a file name denotes a hidden entry.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// AbsClean resolves path to an absolute, cleaned form.
func AbsClean(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// ParentPath returns the parent of path. ok is false for filesystem roots.
func ParentPath(path string) (parent string, ok bool) {
	parent = filepath.Dir(path)
	if parent == path {
		return "", false
	}
	return parent, true
}

// RelativeKey returns the "/"-separated path of target below root. ok is
// false when target is root itself or lies outside it.
func RelativeKey(root, target string) (key string, ok bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// NormalizeKey converts a stored key to "/" separators and strips any
// leading "./" or "/".
func NormalizeKey(key string) string {
	key = strings.ReplaceAll(key, `\`, "/")
	key = strings.TrimPrefix(key, "./")
	return strings.Trim(key, "/")
}

// KeyCandidates returns the keys to look up for a stored key, exact form
// first. Backslashes are legal in names outside Windows, so the rewrite for
// keys saved on Windows is only tried second.
func KeyCandidates(key string) []string {
	exact := strings.Trim(strings.TrimPrefix(key, "./"), "/")
	if normalized := NormalizeKey(key); normalized != exact {
		return []string{exact, normalized}
	}
	return []string{exact}
}

// FromKey is the inverse of RelativeKey.
func FromKey(root, key string) string {
	return filepath.Join(root, filepath.FromSlash(key))
}

// FindRepoRoot returns the nearest directory at or above start that contains
// a .git entry.
func FindRepoRoot(start string) (string, bool) {
	dir := filepath.Clean(start)
	for {
		if _, err := os.Lstat(filepath.Join(dir, ".git")); err == nil {
			return dir, true
		}
		parent, ok := ParentPath(dir)
		if !ok {
			return "", false
		}
		dir = parent
	}
}
