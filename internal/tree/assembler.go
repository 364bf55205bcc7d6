package tree

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/metrics"
	"github.com/harrison/codeview/internal/models"
)

// orphanSampleSize bounds the child paths logged per missing parent.
const orphanSampleSize = 5

// ErrStreamClosed is returned by Consume when the message channel closes
// before Finished was seen.
var ErrStreamClosed = errors.New("scan stream closed before Finished")

// Apply processes one scan message and reports whether it was Finished.
// Messages after Finished are ignored.
func (t *Tree) Apply(msg models.Message) bool {
	if t.finished {
		t.logger.LogDebug(fmt.Sprintf("Ignoring %s message after Finished", msg.Kind))
		return true
	}

	switch msg.Kind {
	case models.MsgAddNode, models.MsgAddNodes:
		for _, entry := range msg.Discoveries() {
			t.Add(entry)
		}
	case models.MsgError:
		t.logger.LogDebug(fmt.Sprintf("Scan error reported: %s", msg.Err))
		t.stats.AddError(msg.Err)
	case models.MsgFinished:
		t.Finish()
		return true
	}
	return false
}

// Poll applies every message already waiting on ch without blocking.
func (t *Tree) Poll(ch <-chan models.Message) bool {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return t.finished
			}
			if t.Apply(msg) {
				return true
			}
		default:
			return t.finished
		}
	}
}

// Consume applies messages from ch until Finished, ch closes or ctx is done.
func (t *Tree) Consume(ctx context.Context, ch <-chan models.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				if t.finished {
					return nil
				}
				return ErrStreamClosed
			}
			if t.Apply(msg) {
				return nil
			}
		}
	}
}

// Add appends entry to the arena and links it to its parent, buffering it
// as an orphan when the parent has not arrived yet. Children buffered under
// this entry's path are adopted immediately.
func (t *Tree) Add(entry models.Entry) models.NodeID {
	id := models.NodeID(len(t.nodes))
	t.nodes = append(t.nodes, models.NewNode(entry))
	t.index[entry.Path] = id
	t.stats.AddEntry(entry, t.rootPath)

	if t.rootID == models.NoNode && entry.Path == t.rootPath {
		t.rootID = id
		t.nodes[id].Expanded = true
		t.logger.LogDebug(fmt.Sprintf("Root node added: ID %d, Path: %s", id, entry.Path))
	}

	// Children that arrived before this directory were buffered under its
	// path; adopt them in arrival order.
	if waiting, ok := t.orphans[entry.Path]; ok {
		delete(t.orphans, entry.Path)
		for _, o := range waiting {
			t.nodes[id].Children = append(t.nodes[id].Children, o.id)
		}
		t.logger.LogTrace(fmt.Sprintf("Node %d (%s) resolved %d orphans", id, entry.Path, len(waiting)))
	}

	// The root never has a parent inside the tree.
	if id == t.rootID {
		return id
	}

	parentPath, ok := fileutil.ParentPath(entry.Path)
	if !ok {
		t.logger.LogWarn(fmt.Sprintf("Node %s has no parent but is not the root", entry.Path))
		return id
	}
	if parent, found := t.index[parentPath]; found {
		t.nodes[parent].Children = append(t.nodes[parent].Children, id)
		return id
	}

	// Parent not seen yet: buffer until it arrives or Finish drops it.
	t.logger.LogTrace(fmt.Sprintf("Orphaned node %s (parent %s not found yet)", entry.Path, parentPath))
	t.orphans[parentPath] = append(t.orphans[parentPath], orphan{id: id, path: entry.Path})
	return id
}

// Finish discards unresolved orphans, sorts every directory's children and
// auto-expands small trees. It runs once; later calls are no-ops.
func (t *Tree) Finish() {
	if t.finished {
		return
	}
	t.finished = true

	t.dropOrphans()

	if t.rootID == models.NoNode {
		t.logger.LogWarn(fmt.Sprintf("Scan finished without discovering the root %s", t.rootPath))
		metrics.SetTreeNodes(len(t.nodes))
		return
	}

	t.sortChildren(t.rootID)

	if t.autoExpandLimit > 0 && t.stats.TotalFiles <= t.autoExpandLimit {
		t.logger.LogInfo(fmt.Sprintf("Auto-expanding all directories: %d files <= limit %d",
			t.stats.TotalFiles, t.autoExpandLimit))
		t.setExpandedSubtree(t.rootID, true)
	}

	metrics.SetTreeNodes(len(t.nodes))
}

// dropOrphans logs every parent path that never arrived with a bounded
// sample of its children, then forgets them. The nodes stay in the arena
// but are unreachable from the root.
func (t *Tree) dropOrphans() {
	if len(t.orphans) == 0 {
		return
	}

	parents := make([]string, 0, len(t.orphans))
	for p := range t.orphans {
		parents = append(parents, p)
	}
	// Sorted so the warning is stable across runs.
	sort.Strings(parents)

	t.logger.LogWarn(fmt.Sprintf("Scan finished with %d unresolved orphan parent path(s)", len(parents)))
	for _, p := range parents {
		children := t.orphans[p]
		var b strings.Builder
		fmt.Fprintf(&b, " - Missing parent: %s", p)
		for _, o := range children[:min(len(children), orphanSampleSize)] {
			fmt.Fprintf(&b, "\n   - Orphaned child: %s", o.path)
		}
		if len(children) > orphanSampleSize {
			fmt.Fprintf(&b, "\n   - ...and %d more orphans for this parent", len(children)-orphanSampleSize)
		}
		t.logger.LogWarn(b.String())
		t.dropped += len(children)
	}

	metrics.RecordOrphansDropped(t.dropped)
	t.orphans = make(map[string][]orphan)
}

// sortChildren orders every directory's children: directories first, then
// case-insensitive name, with the exact name breaking ties.
func (t *Tree) sortChildren(id models.NodeID) {
	stack := []models.NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := t.nodes[cur].Children
		if len(children) == 0 {
			continue
		}
		sort.SliceStable(children, func(i, j int) bool {
			a, b := &t.nodes[children[i]], &t.nodes[children[j]]
			if a.IsDir() != b.IsDir() {
				return a.IsDir()
			}
			la, lb := strings.ToLower(a.Name()), strings.ToLower(b.Name())
			if la != lb {
				return la < lb
			}
			return a.Name() < b.Name()
		})
		stack = append(stack, children...)
	}
}
