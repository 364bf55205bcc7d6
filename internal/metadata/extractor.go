package metadata

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/models"
)

// Extractor builds the entry record for one path. info may be nil, in which
// case the implementation stats the path itself.
type Extractor interface {
	Extract(path string, info fs.FileInfo) (models.Entry, error)
}

// LineStatsProvider returns line statistics for a text file, or nil when the
// file's language is not recognised.
type LineStatsProvider interface {
	Count(path string, info fs.FileInfo) *models.LineStats
}

// Options configures a FileExtractor.
type Options struct {
	BinarySampleSize int               // Bytes sampled for the NUL check; clamped to MaxBinarySampleSize
	Lines            LineStatsProvider // Optional; nil disables line statistics
	Logger           logger.Logger
}

// FileExtractor reads entry metadata from the local filesystem.
type FileExtractor struct {
	sampleSize int
	lines      LineStatsProvider
	logger     logger.Logger
}

// NewExtractor creates a FileExtractor.
func NewExtractor(opts Options) *FileExtractor {
	return &FileExtractor{
		sampleSize: clampSampleSize(opts.BinarySampleSize),
		lines:      opts.Lines,
		logger:     logger.OrNoOp(opts.Logger),
	}
}

// Extract implements Extractor.
//
// Binary-check failures are logged and the file is treated as text; only a
// failure to obtain file info at all is returned as an error.
func (x *FileExtractor) Extract(path string, info fs.FileInfo) (models.Entry, error) {
	path = filepath.Clean(path)

	if info == nil {
		stat, err := os.Stat(path)
		if err != nil {
			return models.Entry{}, fmt.Errorf("failed to read metadata for %s: %w", path, err)
		}
		info = stat
	}

	size := uint64(0)
	if info.Size() > 0 {
		size = uint64(info.Size())
	}

	entry := models.Entry{
		Path:      path,
		IsDir:     info.IsDir(),
		Size:      size,
		HumanSize: humanize.Bytes(size),
		Modified:  info.ModTime(),
	}
	if entry.IsDir {
		return entry, nil
	}

	entry.Extension = Extension(path)

	binary, err := IsBinary(path, x.sampleSize)
	if err != nil {
		x.logger.LogWarn(fmt.Sprintf("Binary check failed for %s: %v. Assuming text.", path, err))
		binary = false
	}
	entry.IsBinary = binary

	if !binary && x.lines != nil {
		entry.LineStats = x.lines.Count(path, info)
	}

	return entry, nil
}

// Extension returns the lowercased extension of path without the leading
// dot. Dotfiles such as ".bashrc" have no extension.
func Extension(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == base || ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
