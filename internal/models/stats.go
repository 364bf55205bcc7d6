package models

import (
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
)

const (
	// MaxLargestFiles bounds the largest-files leaderboard.
	MaxLargestFiles = 10
	// MaxRecordedErrors bounds the stored error list; one truncation marker follows it.
	MaxRecordedErrors = 100
	// ErrorsTruncatedMarker is appended once when errors exceed MaxRecordedErrors.
	ErrorsTruncatedMarker = "... more errors truncated ..."
	// NoExtensionKey is the FileTypes key for files without an extension.
	NoExtensionKey = "(no extension)"
)

// FileStat is a leaderboard row for the largest files of a scan.
type FileStat struct {
	Path      string `json:"path"` // Relative to the scan root
	Size      uint64 `json:"size"`
	HumanSize string `json:"human_size"`
}

// ScanStats aggregates totals while a tree is assembled.
type ScanStats struct {
	TotalFiles     int                  `json:"total_files"`
	TotalDirs      int                  `json:"total_dirs"`
	TotalSizeBytes uint64               `json:"total_size_bytes"`
	FileTypes      map[string]int       `json:"file_types"`
	LargestFiles   []FileStat           `json:"largest_files"`
	Errors         []string             `json:"errors"`
	Languages      map[string]LineStats `json:"languages"`
}

// NewScanStats returns empty statistics with initialised maps.
func NewScanStats() *ScanStats {
	return &ScanStats{
		FileTypes: make(map[string]int),
		Languages: make(map[string]LineStats),
	}
}

// AddEntry folds one discovered entry into the totals.
func (s *ScanStats) AddEntry(entry Entry, rootPath string) {
	if entry.IsDir {
		s.TotalDirs++
		return
	}

	s.TotalFiles++
	s.TotalSizeBytes += entry.Size

	key := NoExtensionKey
	if entry.Extension != "" {
		key = "." + entry.Extension
	}
	s.FileTypes[key]++

	if entry.LineStats != nil {
		lang := s.Languages[entry.LineStats.Language]
		lang.Language = entry.LineStats.Language
		lang.Code += entry.LineStats.Code
		lang.Comments += entry.LineStats.Comments
		lang.Blanks += entry.LineStats.Blanks
		s.Languages[entry.LineStats.Language] = lang
	}

	s.recordLargest(entry, rootPath)
}

func (s *ScanStats) recordLargest(entry Entry, rootPath string) {
	if entry.Size == 0 {
		return
	}
	if len(s.LargestFiles) >= MaxLargestFiles && entry.Size <= s.LargestFiles[len(s.LargestFiles)-1].Size {
		return
	}

	rel, err := filepath.Rel(rootPath, entry.Path)
	if err != nil || rootPath == "" {
		rel = entry.Path
	}
	row := FileStat{Path: filepath.ToSlash(rel), Size: entry.Size, HumanSize: entry.HumanSize}

	// Insert after every row of equal or greater size so ties keep arrival order.
	pos := sort.Search(len(s.LargestFiles), func(i int) bool {
		return s.LargestFiles[i].Size < row.Size
	})
	s.LargestFiles = append(s.LargestFiles, FileStat{})
	copy(s.LargestFiles[pos+1:], s.LargestFiles[pos:])
	s.LargestFiles[pos] = row
	if len(s.LargestFiles) > MaxLargestFiles {
		s.LargestFiles = s.LargestFiles[:MaxLargestFiles]
	}
}

// AddError records a scan error, keeping at most MaxRecordedErrors plus one marker.
func (s *ScanStats) AddError(msg string) {
	switch {
	case len(s.Errors) < MaxRecordedErrors:
		s.Errors = append(s.Errors, msg)
	case len(s.Errors) == MaxRecordedErrors:
		s.Errors = append(s.Errors, ErrorsTruncatedMarker)
	}
}

// TotalSizeHuman formats the total byte count for display.
func (s *ScanStats) TotalSizeHuman() string {
	return humanize.Bytes(s.TotalSizeBytes)
}

// SortedLanguages returns language totals ordered by code lines, largest first.
func (s *ScanStats) SortedLanguages() []LineStats {
	out := make([]LineStats, 0, len(s.Languages))
	for _, lang := range s.Languages {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code > out[j].Code
		}
		return out[i].Language < out[j].Language
	})
	return out
}
