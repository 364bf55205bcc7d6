package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/codeview/internal/models"
	"github.com/harrison/codeview/internal/tree"
)

// TreeOptions controls RenderTree.
type TreeOptions struct {
	Expanded bool // Ignore per-node expansion and print every node
	MaxDepth int  // 0 prints every level
	ShowSize bool // Append human-readable sizes to files
}

var (
	checkedColor   = color.New(color.FgGreen)
	partialColor   = color.New(color.FgYellow)
	uncheckedColor = color.New(color.FgHiBlack)
	dirColor       = color.New(color.FgBlue, color.Bold)
)

// Marker returns the checkbox for a selection state.
func Marker(state models.Check) string {
	switch state {
	case models.Checked:
		return checkedColor.Sprint("[x]")
	case models.Partial:
		return partialColor.Sprint("[~]")
	default:
		return uncheckedColor.Sprint("[ ]")
	}
}

// RenderTree prints the tree from its root, one node per line, indented by
// depth. Collapsed directories show how many children are hidden.
func RenderTree(w io.Writer, tr *tree.Tree, opts TreeOptions) {
	if tr.Root() == models.NoNode {
		fmt.Fprintln(w, "(empty tree)")
		return
	}

	tr.Walk(tr.Root(), func(id models.NodeID, depth int) bool {
		n, _ := tr.Node(id)

		var b strings.Builder
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(Marker(n.State))
		b.WriteString(" ")

		name := n.Name()
		if depth == 0 {
			name = n.Path()
		}
		if n.IsDir() {
			b.WriteString(dirColor.Sprint(strings.TrimSuffix(name, "/") + "/"))
		} else {
			b.WriteString(name)
			if opts.ShowSize && n.Entry.HumanSize != "" {
				fmt.Fprintf(&b, " (%s)", n.Entry.HumanSize)
			}
		}

		descend := n.IsDir() && (opts.Expanded || n.Expanded)
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			descend = false
		}
		if n.IsDir() && !descend && len(n.Children) > 0 {
			fmt.Fprintf(&b, " (+%d)", len(n.Children))
		}

		fmt.Fprintln(w, b.String())
		return descend
	})
}
