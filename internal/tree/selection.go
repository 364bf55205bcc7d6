package tree

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/harrison/codeview/internal/models"
)

// Toggle unchecks the subtree of a Checked or Partial node and checks the
// subtree of an Unchecked one, then propagates the change upwards.
func (t *Tree) Toggle(id models.NodeID) error {
	if err := t.check("toggle", id); err != nil {
		return err
	}
	next := models.Checked
	if t.nodes[id].State != models.Unchecked {
		next = models.Unchecked
	}
	return t.Set(id, next)
}

// Set assigns state to id and its descendants and updates the ancestors.
func (t *Tree) Set(id models.NodeID, state models.Check) error {
	if err := t.SetSubtree(id, state); err != nil {
		return err
	}
	return t.PropagateUp(id)
}

// Assign overwrites the state of id alone. Ancestors and descendants are left
// stale until RecalcSubtreeBottomUp runs.
func (t *Tree) Assign(id models.NodeID, state models.Check) error {
	if err := t.check("assign", id); err != nil {
		return err
	}
	t.nodes[id].State = state
	return nil
}

// SetSubtree overwrites the state of id and, for directories, of every
// descendant. Ancestors are not touched.
func (t *Tree) SetSubtree(id models.NodeID, state models.Check) error {
	if err := t.check("set subtree", id); err != nil {
		return err
	}
	stack := []models.NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.nodes[cur]
		node.State = state
		if node.IsDir() {
			stack = append(stack, node.Children...)
		}
	}
	return nil
}

// PropagateUp recomputes the ancestors of id, nearest first, stopping at the
// first ancestor whose state does not change or when no parent is indexed.
func (t *Tree) PropagateUp(id models.NodeID) error {
	if err := t.check("propagate up", id); err != nil {
		return err
	}
	cur := id
	for {
		parent, ok := t.Parent(cur)
		if !ok {
			return nil
		}
		next := t.computeState(parent)
		if t.nodes[parent].State == next {
			return nil
		}
		t.nodes[parent].State = next
		cur = parent
	}
}

// ComputeParentState derives a node's state from its children. Files and
// childless directories keep their own state.
func (t *Tree) ComputeParentState(id models.NodeID) (models.Check, error) {
	if err := t.check("compute parent state", id); err != nil {
		return models.Unchecked, err
	}
	return t.computeState(id), nil
}

func (t *Tree) computeState(id models.NodeID) models.Check {
	node := &t.nodes[id]
	if !node.IsDir() || len(node.Children) == 0 {
		return node.State
	}

	hasChecked, hasUnchecked := false, false
	for _, child := range node.Children {
		switch t.nodes[child].State {
		case models.Partial:
			return models.Partial
		case models.Checked:
			hasChecked = true
		case models.Unchecked:
			hasUnchecked = true
		}
		if hasChecked && hasUnchecked {
			return models.Partial
		}
	}
	if hasChecked {
		return models.Checked
	}
	return models.Unchecked
}

// RecalcSubtreeBottomUp recomputes every directory below and including id in
// post-order. Use it after importing states that bypassed propagation.
func (t *Tree) RecalcSubtreeBottomUp(id models.NodeID) error {
	if err := t.check("recalc subtree", id); err != nil {
		return err
	}

	type frame struct {
		id       models.NodeID
		expanded bool
	}
	stack := []frame{{id: id}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.nodes[f.id]
		if !node.IsDir() || len(node.Children) == 0 {
			continue
		}
		if f.expanded {
			node.State = t.computeState(f.id)
			continue
		}
		stack = append(stack, frame{id: f.id, expanded: true})
		for _, child := range node.Children {
			stack = append(stack, frame{id: child})
		}
	}
	return nil
}

// SelectAll checks the whole tree.
func (t *Tree) SelectAll() {
	if t.rootID != models.NoNode {
		_ = t.SetSubtree(t.rootID, models.Checked)
		t.logger.LogDebug("Selected all nodes")
	}
}

// DeselectAll unchecks the whole tree.
func (t *Tree) DeselectAll() {
	if t.rootID != models.NoNode {
		_ = t.SetSubtree(t.rootID, models.Unchecked)
		t.logger.LogDebug("Deselected all nodes")
	}
}

// SelectChildren checks every child subtree of a directory.
func (t *Tree) SelectChildren(id models.NodeID) error {
	return t.setChildren("select children", id, models.Checked)
}

// DeselectChildren unchecks every child subtree of a directory.
func (t *Tree) DeselectChildren(id models.NodeID) error {
	return t.setChildren("deselect children", id, models.Unchecked)
}

func (t *Tree) setChildren(op string, id models.NodeID, state models.Check) error {
	if err := t.check(op, id); err != nil {
		return err
	}
	node := &t.nodes[id]
	if !node.IsDir() {
		return nil
	}
	for _, child := range node.Children {
		_ = t.SetSubtree(child, state)
	}
	// The directory itself is derived from its new children before its
	// ancestors are updated.
	node.State = t.computeState(id)
	t.logger.LogTrace(fmt.Sprintf("%s: node %d", op, id))
	return t.PropagateUp(id)
}

// ToggleExpanded flips the expansion flag of a directory.
func (t *Tree) ToggleExpanded(id models.NodeID) error {
	if err := t.check("toggle expanded", id); err != nil {
		return err
	}
	if node := &t.nodes[id]; node.IsDir() {
		node.Expanded = !node.Expanded
	}
	return nil
}

// ExpandAll expands every directory.
func (t *Tree) ExpandAll() {
	if t.rootID != models.NoNode {
		t.setExpandedSubtree(t.rootID, true)
	}
}

// CollapseAll collapses every directory except the root.
func (t *Tree) CollapseAll() {
	if t.rootID != models.NoNode {
		t.setExpandedSubtree(t.rootID, false)
		t.nodes[t.rootID].Expanded = true
	}
}

func (t *Tree) setExpandedSubtree(id models.NodeID, expanded bool) {
	stack := []models.NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.nodes[cur]
		if node.IsDir() {
			node.Expanded = expanded
			stack = append(stack, node.Children...)
		}
	}
}

// CheckedSet returns the ids of checked files reachable from the root.
func (t *Tree) CheckedSet() *roaring.Bitmap {
	bm := roaring.New()
	t.Walk(t.rootID, func(id models.NodeID, _ int) bool {
		node := &t.nodes[id]
		if !node.IsDir() && node.State == models.Checked {
			bm.Add(uint32(id))
		}
		return true
	})
	return bm
}

// CountFiles returns the number of files in the tree and how many are checked.
func (t *Tree) CountFiles() (total, selected int) {
	t.Walk(t.rootID, func(id models.NodeID, _ int) bool {
		if !t.nodes[id].IsDir() {
			total++
		}
		return true
	})
	return total, int(t.CheckedSet().GetCardinality())
}

// SelectedFiles returns the checked file entries in display order.
func (t *Tree) SelectedFiles() []models.Entry {
	checked := t.CheckedSet()
	files := make([]models.Entry, 0, checked.GetCardinality())
	t.Walk(t.rootID, func(id models.NodeID, _ int) bool {
		if checked.Contains(uint32(id)) {
			files = append(files, t.nodes[id].Entry)
		}
		return true
	})
	return files
}
