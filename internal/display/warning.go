package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// maxWarningItems bounds the listed items; the rest are summarised.
const maxWarningItems = 10

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	ItemLabel  string   // Heading for Items, e.g. "Paths" (optional)
	Items      []string // Related paths or messages (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Items) > 0 {
		label := w.ItemLabel
		if label == "" {
			label = "Details"
		}
		fmt.Fprintf(&b, "    %s:\n", label)
		for i, item := range w.Items {
			if i == maxWarningItems {
				fmt.Fprintf(&b, "      ...and %d more\n", len(w.Items)-maxWarningItems)
				break
			}
			fmt.Fprintf(&b, "      %d. %s\n", i+1, item)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, color.New(color.FgYellow).Sprint(b.String()))
}

// WarnScanErrors reports the non-fatal errors collected during a scan.
func WarnScanErrors(errs []string) Warning {
	return Warning{
		Title:     fmt.Sprintf("%d entries could not be read", len(errs)),
		ItemLabel: "Errors",
		Items:     errs,
	}
}

// WarnUnmatched reports selection keys that matched nothing in the tree.
func WarnUnmatched(keys []string) Warning {
	return Warning{
		Title:      fmt.Sprintf("%d saved selection path(s) not found", len(keys)),
		Message:    "These paths were removed, renamed or are now filtered out.",
		ItemLabel:  "Paths",
		Items:      keys,
		Suggestion: "Save the selection again to drop stale paths",
	}
}

// WarnDroppedOrphans reports nodes excluded because their parent never
// appeared in the scan.
func WarnDroppedOrphans(n int) Warning {
	return Warning{
		Title:      fmt.Sprintf("%d entries were dropped from the tree", n),
		Message:    "Their parent directory was never reported by the scan.",
		Suggestion: "Re-run with --log-level debug to see the affected paths",
	}
}
