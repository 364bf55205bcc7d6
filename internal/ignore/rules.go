package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// RuleSet is the parsed content of one ignore file. Patterns are evaluated
// relative to the directory the file applies to.
type RuleSet struct {
	base     string
	patterns []gitignore.Pattern
}

// ParseRules builds a rule set from gitignore-style lines applying below base.
func ParseRules(base string, lines []string) *RuleSet {
	rs := &RuleSet{base: filepath.Clean(base)}
	for _, line := range lines {
		if p, ok := parsePattern(line); ok {
			rs.patterns = append(rs.patterns, p)
		}
	}
	return rs
}

// LoadFile parses an ignore file. A missing file yields a nil set and no error.
func LoadFile(base, path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ignore file %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file %s: %w", path, err)
	}

	return ParseRules(base, lines), nil
}

// Len returns the number of effective rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.patterns)
}

// Match evaluates path against the set with "last rule wins" semantics.
// matched is false when no rule applies or path is not below the base.
func (rs *RuleSet) Match(path string, isDir bool) (ignored, matched bool) {
	if rs == nil || len(rs.patterns) == 0 {
		return false, false
	}
	rel, err := filepath.Rel(rs.base, path)
	if err != nil {
		return false, false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false, false
	}

	parts := strings.Split(rel, "/")
	for i := len(rs.patterns) - 1; i >= 0; i-- {
		switch rs.patterns[i].Match(parts, isDir) {
		case gitignore.Exclude:
			return true, true
		case gitignore.Include:
			return false, true
		}
	}
	return false, false
}

// parsePattern skips blank and comment lines. Leading whitespace is part of
// the pattern; gitignore.ParsePattern trims unescaped trailing spaces.
func parsePattern(line string) (gitignore.Pattern, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}
	// filepath.Match negates classes with '^' only.
	line = strings.ReplaceAll(line, "[!", "[^")
	return gitignore.ParsePattern(line, nil), true
}
