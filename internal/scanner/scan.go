// Package scanner runs the concurrent directory scan: a pool of walker
// goroutines feeds a single relay loop that batches discoveries into
// models.Message values. Every scan ends with exactly one Finished message,
// whether it completes, is cancelled or fails.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/ignore"
	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/metadata"
	"github.com/harrison/codeview/internal/metrics"
	"github.com/harrison/codeview/internal/models"
)

// ErrNotDirectory is reported when the scan root is not a directory.
var ErrNotDirectory = errors.New("scan root is not a directory")

const (
	DefaultBatchSize       = 100
	DefaultFlushInterval   = 50 * time.Millisecond
	DefaultChannelCapacity = 1024
	MaxThreads             = 8
)

// Options configures a scan.
type Options struct {
	Root               string
	ShowHidden         bool
	RespectIgnoreRules bool
	Threads            int           // 0 means min(NumCPU, MaxThreads)
	BatchSize          int           // Entries per AddNodes batch
	FlushInterval      time.Duration // Maximum age of a pending batch
	ChannelCapacity    int           // Walker-to-relay buffer; sends block when full
	ExtraIgnoreFiles   []string      // Per-directory ignore files besides .gitignore and .ignore
	GlobalIgnoreFiles  []string      // nil means ignore.DefaultGlobalFiles()
	BinarySampleSize   int
	LineStats          metadata.LineStatsProvider // Used when Extractor is nil
	Extractor          metadata.Extractor         // nil builds a metadata.FileExtractor
	Logger             logger.Logger
}

// DefaultOptions returns options for scanning root with ignore rules on.
func DefaultOptions(root string) Options {
	return Options{
		Root:               root,
		RespectIgnoreRules: true,
		BatchSize:          DefaultBatchSize,
		FlushInterval:      DefaultFlushInterval,
		ChannelCapacity:    DefaultChannelCapacity,
		BinarySampleSize:   metadata.MaxBinarySampleSize,
	}
}

// Handle controls a running scan.
type Handle struct {
	ID   string
	Root string // Absolute, cleaned scan root

	messages chan models.Message
	cancel   *atomic.Bool
	stopWalk func()
	done     chan struct{}
}

// Messages returns the outbound stream. It is closed after Finished.
func (h *Handle) Messages() <-chan models.Message {
	return h.messages
}

// Cancel requests a cooperative stop. Finished is still delivered.
func (h *Handle) Cancel() {
	h.cancel.Store(true)
	if h.stopWalk != nil {
		h.stopWalk()
	}
}

// CancelFlag exposes the shared cancellation flag; storing true has the same
// effect as Cancel, observed by workers before their next item.
func (h *Handle) CancelFlag() *atomic.Bool {
	return h.cancel
}

// Wait blocks until the scan goroutines have exited.
func (h *Handle) Wait() {
	<-h.done
}

// Scan starts scanning opts.Root in the background. Cancelling ctx means
// the consumer has gone away: workers stop early and undelivered messages
// are dropped.
func Scan(ctx context.Context, opts Options) *Handle {
	opts = withDefaults(opts)
	log := logger.OrNoOp(opts.Logger)

	h := &Handle{
		ID:       uuid.New().String(),
		messages: make(chan models.Message, opts.ChannelCapacity),
		cancel:   &atomic.Bool{},
		done:     make(chan struct{}),
	}

	root, err := fileutil.AbsClean(opts.Root)
	if err == nil {
		h.Root = root
	}
	var rootInfo os.FileInfo
	if err == nil {
		rootInfo, err = os.Stat(root)
		if err == nil && !rootInfo.IsDir() {
			err = fmt.Errorf("%w: %s", ErrNotDirectory, root)
		}
	}
	if err != nil {
		log.LogError(fmt.Sprintf("Scan %s not started: %v", h.ID, err))
		go func() {
			defer close(h.done)
			defer close(h.messages)
			for _, msg := range []models.Message{
				models.ErrorMessage(fmt.Sprintf("Failed to scan %s: %v", opts.Root, err)),
				models.FinishedMessage(),
			} {
				select {
				case h.messages <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
		return h
	}

	log.LogInfo(fmt.Sprintf("Starting scan %s of %s (threads: %d, hidden: %v, ignore rules: %v)",
		h.ID, root, opts.Threads, opts.ShowHidden, opts.RespectIgnoreRules))

	extractor := opts.Extractor
	if extractor == nil {
		extractor = metadata.NewExtractor(metadata.Options{
			BinarySampleSize: opts.BinarySampleSize,
			Lines:            opts.LineStats,
			Logger:           log,
		})
	}

	var matcher *ignore.Matcher
	if opts.RespectIgnoreRules {
		globals := opts.GlobalIgnoreFiles
		if globals == nil {
			globals = ignore.DefaultGlobalFiles()
		}
		matcher = ignore.NewMatcher(ignore.Options{
			Root:        root,
			FileNames:   append(append([]string{}, ignore.DefaultFileNames...), opts.ExtraIgnoreFiles...),
			GlobalFiles: globals,
			Logger:      log,
		})
	}

	raw := make(chan result, opts.ChannelCapacity)
	w := newWalker(root, rootInfo, walkerConfig{
		showHidden: opts.ShowHidden,
		matcher:    matcher,
		extractor:  extractor,
		threads:    opts.Threads,
		cancel:     h.cancel,
		out:        raw,
		logger:     log,
	})
	h.stopWalk = w.stop

	r := &relay{
		in:            raw,
		out:           h.messages,
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
		cancel:        h.cancel,
		logger:        log,
	}

	start := time.Now()
	metrics.ScanStarted()
	walkErr := make(chan error, 1)

	go func() {
		err := w.run(ctx)
		walkErr <- err
		close(raw)
	}()

	go func() {
		defer close(h.done)
		defer close(h.messages)
		r.run(ctx, walkErr)

		cancelled := h.cancel.Load()
		metrics.ScanFinished(time.Since(start), cancelled)
		if cancelled {
			log.LogInfo(fmt.Sprintf("Scan %s cancelled after %s", h.ID, time.Since(start).Round(time.Millisecond)))
		} else {
			log.LogDebug(fmt.Sprintf("Scan %s walk finished in %s", h.ID, time.Since(start).Round(time.Millisecond)))
		}
	}()

	return h
}

func withDefaults(opts Options) Options {
	if opts.Threads <= 0 {
		opts.Threads = min(runtime.NumCPU(), MaxThreads)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.ChannelCapacity <= 0 {
		opts.ChannelCapacity = DefaultChannelCapacity
	}
	return opts
}
