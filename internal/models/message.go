package models

// MessageKind identifies the shape of a scan message.
type MessageKind int

const (
	// MsgAddNode carries a single discovered entry.
	MsgAddNode MessageKind = iota
	// MsgAddNodes carries a batch of discovered entries.
	MsgAddNodes
	// MsgError carries a non-fatal per-entry or per-walk failure.
	MsgError
	// MsgFinished is the terminal marker, sent exactly once per scan.
	MsgFinished
)

// String returns a human-readable name for the message kind
func (k MessageKind) String() string {
	switch k {
	case MsgAddNode:
		return "AddNode"
	case MsgAddNodes:
		return "AddNodes"
	case MsgError:
		return "Error"
	case MsgFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Message is one item of the outbound scan stream.
type Message struct {
	Kind    MessageKind
	Entry   Entry   // Set for MsgAddNode
	Entries []Entry // Set for MsgAddNodes
	Err     string  // Set for MsgError
}

// AddNodeMessage builds a single-entry discovery message.
func AddNodeMessage(entry Entry) Message {
	return Message{Kind: MsgAddNode, Entry: entry}
}

// AddNodesMessage builds a batched discovery message.
func AddNodesMessage(entries []Entry) Message {
	return Message{Kind: MsgAddNodes, Entries: entries}
}

// ErrorMessage builds a non-fatal error message.
func ErrorMessage(msg string) Message {
	return Message{Kind: MsgError, Err: msg}
}

// FinishedMessage builds the terminal marker.
func FinishedMessage() Message {
	return Message{Kind: MsgFinished}
}

// Discoveries returns every entry carried by the message, in order.
func (m Message) Discoveries() []Entry {
	switch m.Kind {
	case MsgAddNode:
		return []Entry{m.Entry}
	case MsgAddNodes:
		return m.Entries
	default:
		return nil
	}
}
