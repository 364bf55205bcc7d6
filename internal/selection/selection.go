// Package selection saves and restores tri-state selections as JSON files
// keyed by "/"-separated paths relative to the scan root.
//
// A restore only overwrites the nodes named in the file, so Restore follows
// the raw Apply with a bottom-up recalculation from the root.
package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/harrison/codeview/internal/filelock"
	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/models"
	"github.com/harrison/codeview/internal/tree"
)

// ErrNoRoot is returned when the tree has not discovered its root yet.
var ErrNoRoot = errors.New("tree has no root node")

// maxUnmatchedLogged bounds the per-key debug lines written by Apply.
const maxUnmatchedLogged = 20

// nowFunc is swapped in tests.
var nowFunc = time.Now

// File is the on-disk selection record.
type File struct {
	Version   string                  `json:"version"`
	Timestamp string                  `json:"timestamp"` // RFC3339
	RootPath  string                  `json:"root_path"`
	Selection map[string]models.Check `json:"selection"`
}

// Result reports how a selection file matched the current tree.
type Result struct {
	Applied   int
	Unmatched []string // Sorted keys with no node in the tree
}

// Collect records the state of every node below the root. The root itself
// is never a key.
func Collect(tr *tree.Tree, version string) (*File, error) {
	if tr.Root() == models.NoNode {
		return nil, ErrNoRoot
	}

	f := &File{
		Version:   version,
		Timestamp: nowFunc().UTC().Format(time.RFC3339),
		RootPath:  tr.RootPath(),
		Selection: make(map[string]models.Check),
	}
	for key, id := range keys(tr) {
		n, _ := tr.Node(id)
		f.Selection[key] = n.State
	}
	return f, nil
}

// Apply overwrites the state of every node named in f. Keys that match
// nothing are logged and returned; ancestors are left stale.
func Apply(tr *tree.Tree, f *File, log logger.Logger) (Result, error) {
	log = logger.OrNoOp(log)
	if tr.Root() == models.NoNode {
		return Result{}, ErrNoRoot
	}
	if f.RootPath != "" && f.RootPath != tr.RootPath() {
		log.LogWarn(fmt.Sprintf("Selection was saved for %s, applying to %s", f.RootPath, tr.RootPath()))
	}

	index := keys(tr)
	names := make([]string, 0, len(f.Selection))
	for key := range f.Selection {
		names = append(names, key)
	}
	sort.Strings(names)

	var res Result
	for _, key := range names {
		id, ok := lookupKey(index, key)
		if !ok {
			res.Unmatched = append(res.Unmatched, key)
			if len(res.Unmatched) <= maxUnmatchedLogged {
				log.LogDebug(fmt.Sprintf("Selection path not found in tree: %s", key))
			}
			continue
		}
		if err := tr.Assign(id, f.Selection[key]); err != nil {
			return res, err
		}
		res.Applied++
	}

	if len(res.Unmatched) > 0 {
		log.LogWarn(fmt.Sprintf("%d selection path(s) not found in the current tree", len(res.Unmatched)))
	}
	log.LogInfo(fmt.Sprintf("Applied %d selection state(s)", res.Applied))
	return res, nil
}

// Restore applies f and recomputes every directory state from the root.
func Restore(tr *tree.Tree, f *File, log logger.Logger) (Result, error) {
	res, err := Apply(tr, f, log)
	if err != nil {
		return res, err
	}
	if err := tr.RecalcSubtreeBottomUp(tr.Root()); err != nil {
		return res, err
	}
	return res, nil
}

func lookupKey(index map[string]models.NodeID, key string) (models.NodeID, bool) {
	for _, candidate := range fileutil.KeyCandidates(key) {
		if id, ok := index[candidate]; ok {
			return id, true
		}
	}
	return models.NoNode, false
}

// keys maps the relative key of every node reachable from the root to its id.
func keys(tr *tree.Tree) map[string]models.NodeID {
	out := make(map[string]models.NodeID, tr.Len())
	tr.Walk(tr.Root(), func(id models.NodeID, _ int) bool {
		n, _ := tr.Node(id)
		if key, ok := fileutil.RelativeKey(tr.RootPath(), n.Path()); ok {
			out[key] = id
		}
		return true
	})
	return out
}

// Marshal encodes f as indented JSON.
func Marshal(f *File) ([]byte, error) {
	if f.Selection == nil {
		f.Selection = make(map[string]models.Check)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode selection: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a selection record. Unknown state names are rejected.
func Unmarshal(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode selection: %w", err)
	}
	if f.Selection == nil {
		f.Selection = make(map[string]models.Check)
	}
	return &f, nil
}

// Save writes f to path under an exclusive lock.
func Save(path string, f *File) error {
	data, err := Marshal(f)
	if err != nil {
		return err
	}
	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("failed to save selection to %s: %w", path, err)
	}
	return nil
}

// Load reads a selection file under a shared lock.
func Load(path string) (*File, error) {
	data, err := filelock.LockAndRead(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}
	f, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
