package metadata

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/harrison/codeview/internal/metrics"
	"github.com/harrison/codeview/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedLineCounter memoises another provider's results. Entries are keyed
// by path, size and modification time so an edited file is recounted.
type CachedLineCounter struct {
	inner LineStatsProvider
	cache *lru.Cache[string, *models.LineStats]
}

// NewCachedLineCounter wraps inner with an LRU cache holding size results.
func NewCachedLineCounter(inner LineStatsProvider, size int) (*CachedLineCounter, error) {
	cache, err := lru.New[string, *models.LineStats](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create line stats cache: %w", err)
	}
	return &CachedLineCounter{inner: inner, cache: cache}, nil
}

// Count implements LineStatsProvider.
func (c *CachedLineCounter) Count(path string, info fs.FileInfo) *models.LineStats {
	if info == nil {
		stat, err := os.Stat(path)
		if err != nil {
			return c.inner.Count(path, nil)
		}
		info = stat
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if stats, ok := c.cache.Get(key); ok {
		metrics.RecordCacheLookup(true)
		return stats
	}
	metrics.RecordCacheLookup(false)

	stats := c.inner.Count(path, info)
	c.cache.Add(key, stats)
	return stats
}

// Len returns the number of cached results.
func (c *CachedLineCounter) Len() int {
	return c.cache.Len()
}
