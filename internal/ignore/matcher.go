// Package ignore evaluates gitignore-style rules during a directory walk.
//
// Rules come from three places, lowest precedence first: global excludes
// (the user's git ignore file and the repository's .git/info/exclude), ignore
// files in ancestors of the scan root up to the repository root, and ignore
// files inside the scanned tree. Deeper files override shallower ones and
// within a file the last matching rule wins.
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/logger"
)

// DefaultFileNames are the per-directory ignore files always consulted.
var DefaultFileNames = []string{".gitignore", ".ignore"}

// Options configures a Matcher.
type Options struct {
	Root        string   // Absolute scan root
	FileNames   []string // Per-directory ignore file names, in increasing precedence
	GlobalFiles []string // Global exclude files, applied below the repository root
	Logger      logger.Logger
}

// Matcher answers ShouldIgnore for paths below one scan root. It is safe for
// concurrent use; per-directory rule sets are loaded on first use.
type Matcher struct {
	root      string
	top       string // Highest directory whose ignore files apply
	fileNames []string
	global    []*RuleSet
	logger    logger.Logger

	mu   sync.Mutex
	dirs map[string][]*RuleSet
}

// NewMatcher creates a matcher for opts.Root. Unreadable ignore files are
// logged and skipped.
func NewMatcher(opts Options) *Matcher {
	root := filepath.Clean(opts.Root)
	names := opts.FileNames
	if len(names) == 0 {
		names = DefaultFileNames
	}

	m := &Matcher{
		root:      root,
		top:       root,
		fileNames: names,
		logger:    logger.OrNoOp(opts.Logger),
		dirs:      make(map[string][]*RuleSet),
	}

	if repo, ok := fileutil.FindRepoRoot(root); ok {
		m.top = repo
	}

	for _, path := range opts.GlobalFiles {
		m.addGlobal(path)
	}
	m.addGlobal(filepath.Join(m.top, ".git", "info", "exclude"))

	return m
}

func (m *Matcher) addGlobal(path string) {
	rs, err := LoadFile(m.top, path)
	if err != nil {
		m.logger.LogWarn(fmt.Sprintf("Skipping ignore file: %v", err))
		return
	}
	if rs != nil {
		m.global = append(m.global, rs)
	}
}

// ShouldIgnore reports whether path (absolute, below the root) is excluded.
// The scan root itself is never ignored.
func (m *Matcher) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.Clean(path)
	if path == m.root {
		return false
	}

	ignored := false
	for _, rs := range m.global {
		if ig, ok := rs.Match(path, isDir); ok {
			ignored = ig
		}
	}

	for _, dir := range m.chain(filepath.Dir(path)) {
		for _, rs := range m.rulesFor(dir) {
			if ig, ok := rs.Match(path, isDir); ok {
				ignored = ig
			}
		}
	}
	return ignored
}

// chain lists dir and its ancestors up to top, outermost first.
func (m *Matcher) chain(dir string) []string {
	var dirs []string
	for {
		dirs = append(dirs, dir)
		if dir == m.top {
			break
		}
		parent, ok := fileutil.ParentPath(dir)
		if !ok {
			break
		}
		dir = parent
	}
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}

func (m *Matcher) rulesFor(dir string) []*RuleSet {
	m.mu.Lock()
	sets, ok := m.dirs[dir]
	m.mu.Unlock()
	if ok {
		return sets
	}

	for _, name := range m.fileNames {
		rs, err := LoadFile(dir, filepath.Join(dir, name))
		if err != nil {
			m.logger.LogWarn(fmt.Sprintf("Skipping ignore file: %v", err))
			continue
		}
		if rs.Len() > 0 {
			sets = append(sets, rs)
		}
	}

	m.mu.Lock()
	m.dirs[dir] = sets
	m.mu.Unlock()
	return sets
}

// DefaultGlobalFiles returns the user's global git ignore file location:
// $XDG_CONFIG_HOME/git/ignore, or ~/.config/git/ignore.
func DefaultGlobalFiles() []string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return []string{filepath.Join(xdg, "git", "ignore")}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".config", "git", "ignore")}
}
