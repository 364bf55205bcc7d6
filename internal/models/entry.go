package models

import (
	"path/filepath"
	"time"
)

// LineStats holds per-file line counts for a recognised language.
type LineStats struct {
	Language string `json:"language"`
	Code     int    `json:"code"`
	Comments int    `json:"comments"`
	Blanks   int    `json:"blanks"`
}

// Lines returns the total number of counted lines.
func (s LineStats) Lines() int {
	return s.Code + s.Comments + s.Blanks
}

// Entry is the immutable record produced for every discovered file or directory.
// Entries are built by the metadata extractor on walker goroutines and never
// modified after they are sent.
type Entry struct {
	Path      string     `json:"path"`                 // Absolute, cleaned path
	IsDir     bool       `json:"is_dir"`               // Directory flag
	Size      uint64     `json:"size"`                 // Size in bytes
	HumanSize string     `json:"human_size"`           // Size formatted for display (decimal SI)
	IsBinary  bool       `json:"is_binary"`            // NUL byte found in the read sample
	Modified  time.Time  `json:"modified,omitempty"`   // Zero when the platform does not report it
	Extension string     `json:"extension,omitempty"`  // Lowercased, without the dot; empty for directories
	LineStats *LineStats `json:"line_stats,omitempty"` // Nil for directories, binaries and unknown languages
}

// Name returns the final path element, falling back to the full path for
// roots such as "/".
func (e Entry) Name() string {
	name := filepath.Base(e.Path)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return e.Path
	}
	return name
}
