// Package tree assembles scan messages into an arena of nodes and maintains
// tri-state selection over it.
//
// Nodes live in an append-only slice and refer to each other by NodeID;
// parents are found through the path index, never through back-pointers.
// A Tree is owned by a single goroutine: the scanner's workers only produce
// messages, and every mutation happens on the consumer side.
package tree

import (
	"errors"
	"fmt"

	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/models"
)

// ErrInvalidNode is returned (and logged) when an operation references an
// id outside the arena. The operation has no effect.
var ErrInvalidNode = errors.New("invalid node id")

// DefaultAutoExpandLimit expands every directory when a scan finds at most
// this many files.
const DefaultAutoExpandLimit = 100

// Options configures a Tree.
type Options struct {
	Root            string // Absolute, cleaned scan root
	AutoExpandLimit int    // 0 disables auto-expansion
	Logger          logger.Logger
}

type orphan struct {
	id   models.NodeID
	path string
}

// Tree is the node arena for one scan.
type Tree struct {
	rootPath        string
	rootID          models.NodeID
	nodes           []models.Node
	index           map[string]models.NodeID
	orphans         map[string][]orphan
	stats           *models.ScanStats
	autoExpandLimit int
	logger          logger.Logger

	finished bool
	dropped  int
}

// New creates an empty tree for the scan rooted at opts.Root.
func New(opts Options) *Tree {
	return &Tree{
		rootPath:        opts.Root,
		rootID:          models.NoNode,
		index:           make(map[string]models.NodeID),
		orphans:         make(map[string][]orphan),
		stats:           models.NewScanStats(),
		autoExpandLimit: opts.AutoExpandLimit,
		logger:          logger.OrNoOp(opts.Logger),
	}
}

// Root returns the root node id, or models.NoNode before the root arrives.
func (t *Tree) Root() models.NodeID {
	return t.rootID
}

// RootPath returns the configured scan root.
func (t *Tree) RootPath() string {
	return t.rootPath
}

// Len returns the number of nodes in the arena, including dropped orphans.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Stats returns the statistics accumulated so far.
func (t *Tree) Stats() *models.ScanStats {
	return t.stats
}

// Finished reports whether the Finished message has been applied.
func (t *Tree) Finished() bool {
	return t.finished
}

// DroppedOrphans returns how many nodes were discarded at Finish because
// their parent never arrived.
func (t *Tree) DroppedOrphans() int {
	return t.dropped
}

// PendingOrphans returns how many nodes are waiting for their parent.
func (t *Tree) PendingOrphans() int {
	n := 0
	for _, list := range t.orphans {
		n += len(list)
	}
	return n
}

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id models.NodeID) (models.Node, bool) {
	if !t.valid(id) {
		return models.Node{}, false
	}
	return t.nodes[id], true
}

// Children returns the child ids of id in display order.
func (t *Tree) Children(id models.NodeID) []models.NodeID {
	if !t.valid(id) {
		return nil
	}
	return t.nodes[id].Children
}

// Lookup finds a node by absolute path.
func (t *Tree) Lookup(path string) (models.NodeID, bool) {
	id, ok := t.index[path]
	return id, ok
}

// Parent resolves the parent of id through the path index.
func (t *Tree) Parent(id models.NodeID) (models.NodeID, bool) {
	if !t.valid(id) || id == t.rootID {
		return models.NoNode, false
	}
	parentPath, ok := fileutil.ParentPath(t.nodes[id].Path())
	if !ok {
		return models.NoNode, false
	}
	parent, ok := t.index[parentPath]
	return parent, ok
}

// Walk visits id and its descendants depth-first in child order. Returning
// false from fn skips the node's children.
func (t *Tree) Walk(id models.NodeID, fn func(id models.NodeID, depth int) bool) {
	if !t.valid(id) {
		return
	}
	type frame struct {
		id    models.NodeID
		depth int
	}
	stack := []frame{{id: id}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(f.id, f.depth) {
			continue
		}
		children := t.nodes[f.id].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: children[i], depth: f.depth + 1})
		}
	}
}

func (t *Tree) valid(id models.NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// check logs and returns ErrInvalidNode for ids outside the arena.
func (t *Tree) check(op string, id models.NodeID) error {
	if t.valid(id) {
		return nil
	}
	t.logger.LogWarn(fmt.Sprintf("%s: invalid node id %d", op, id))
	return fmt.Errorf("%s: %w: %d", op, ErrInvalidNode, id)
}
