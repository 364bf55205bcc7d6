package models

// NodeID is a stable handle into a tree arena. IDs are assigned in insertion
// order and never reused within one scan.
type NodeID int

// NoNode marks the absence of a node, e.g. before the root is discovered.
const NoNode NodeID = -1

// Node is an arena slot: an entry plus its child handles and view state.
type Node struct {
	Entry    Entry
	Children []NodeID
	State    Check
	Expanded bool
}

// NewNode wraps an entry in a collapsed, checked node.
func NewNode(entry Entry) Node {
	return Node{
		Entry: entry,
		State: Checked,
	}
}

// IsDir reports whether the node represents a directory.
func (n *Node) IsDir() bool {
	return n.Entry.IsDir
}

// Path returns the node's absolute path.
func (n *Node) Path() string {
	return n.Entry.Path
}

// Name returns the node's display name.
func (n *Node) Name() string {
	return n.Entry.Name()
}
