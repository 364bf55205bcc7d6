package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/ignore"
	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/metadata"
	"github.com/harrison/codeview/internal/metrics"
	"github.com/harrison/codeview/internal/models"
	"golang.org/x/sync/errgroup"
)

// result is one item of the walker's raw output: an entry or a failure.
type result struct {
	entry models.Entry
	err   string
}

// workItem is a path waiting to be extracted and, for directories, expanded.
type workItem struct {
	path string
	info fs.FileInfo
}

type walkerConfig struct {
	showHidden bool
	matcher    *ignore.Matcher // nil when ignore rules are not respected
	extractor  metadata.Extractor
	threads    int
	cancel     *atomic.Bool
	out        chan<- result
	logger     logger.Logger
}

// walker traverses a tree with a pool of goroutines sharing one work queue.
type walker struct {
	walkerConfig
	root string

	// mu guards the fields below; cond is signalled when work is queued,
	// when pending reaches zero and when the walk stops.
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []workItem
	pending int // Items queued or being processed
	stopped bool
}

// newWalker seeds the queue with the root. pending starts at one so workers
// wait for the root's children instead of exiting on an empty queue.
func newWalker(root string, rootInfo fs.FileInfo, cfg walkerConfig) *walker {
	w := &walker{
		walkerConfig: cfg,
		root:         root,
		queue:        []workItem{{path: root, info: rootInfo}},
		pending:      1,
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// run blocks until the tree is exhausted, the walk is stopped, or ctx is
// done. A recovered worker panic is returned as an error.
func (w *walker) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// Workers blocked in pop do not observe ctx, so a watcher wakes them.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-gctx.Done():
			w.stop()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	for i := 0; i < w.threads; i++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("walker worker panicked: %v", r)
					w.stop()
				}
			}()
			w.work(gctx)
			return nil
		})
	}

	return g.Wait()
}

// work is one worker's loop. The cancel flag is checked before every item,
// so a cancelled walk finishes at most the items already in hand.
func (w *walker) work(ctx context.Context) {
	for {
		if w.cancel.Load() {
			w.stop()
			return
		}
		item, ok := w.pop()
		if !ok {
			return
		}
		w.process(ctx, item)
		// Children were pushed during process, so pending never drops to
		// zero while a directory still has queued descendants.
		w.done()
	}
}

// process extracts one entry and, for directories, queues the children that
// pass the symlink, hidden and ignore filters.
func (w *walker) process(ctx context.Context, item workItem) {
	entry, err := w.extractor.Extract(item.path, item.info)
	if err != nil {
		w.emit(ctx, result{err: fmt.Sprintf("Failed to process entry '%s': %v", item.path, err)})
		return
	}
	metrics.RecordEntry(entry.IsDir)
	if !w.emit(ctx, result{entry: entry}) || !entry.IsDir {
		return
	}

	children, err := os.ReadDir(item.path)
	if err != nil {
		w.emit(ctx, result{err: fmt.Sprintf("Filesystem walk error: %v", err)})
		// ReadDir returns the entries read before the error.
		if len(children) == 0 {
			return
		}
	}

	for _, de := range children {
		if w.cancel.Load() {
			return
		}
		path := filepath.Join(item.path, de.Name())

		if de.Type()&fs.ModeSymlink != 0 {
			w.logger.LogTrace(fmt.Sprintf("Skipping symlink: %s", path))
			continue
		}
		if !w.showHidden && fileutil.IsHidden(de.Name()) {
			continue
		}
		if w.matcher != nil && w.matcher.ShouldIgnore(path, de.IsDir()) {
			w.logger.LogTrace(fmt.Sprintf("Ignoring: %s", path))
			continue
		}

		info, err := de.Info()
		if err != nil {
			// Let the extractor stat the path itself.
			info = nil
		}
		w.push(workItem{path: path, info: info})
	}
}

// emit sends a result downstream. It reports false once the consumer is
// gone, in which case the walk is stopped.
func (w *walker) emit(ctx context.Context, r result) bool {
	select {
	case w.out <- r:
		return true
	case <-ctx.Done():
		w.stop()
		return false
	}
}

// push queues an item and wakes one idle worker. Items pushed after stop
// are dropped.
func (w *walker) push(item workItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.queue = append(w.queue, item)
	w.pending++
	w.cond.Signal()
}

// pop takes the most recently queued item, blocking while other workers may
// still produce more. It reports false when the walk is over.
//
// An empty queue alone does not end the walk: an item being processed
// elsewhere may still push children. Only pending == 0 (nothing queued and
// nothing in flight) or a stop lets idle workers exit.
func (w *walker) pop() (workItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && w.pending > 0 && !w.stopped {
		w.cond.Wait()
	}
	if w.stopped || len(w.queue) == 0 {
		return workItem{}, false
	}
	// LIFO keeps the walk depth-first, so the queue stays near tree depth
	// times fan-out instead of growing with the width of the whole tree.
	item := w.queue[len(w.queue)-1]
	w.queue = w.queue[:len(w.queue)-1]
	return item, true
}

// done marks the item from the last pop as processed. The last item wakes
// every worker waiting in pop so they can see the walk is exhausted.
func (w *walker) done() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending--
	if w.pending == 0 {
		w.cond.Broadcast()
	}
}

// stop ends the walk: queued work is dropped and waiting workers wake up.
func (w *walker) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	w.queue = nil
	w.cond.Broadcast()
}
