// Package display renders codeview results for the terminal: the selection
// tree, the scan summary, warnings and a live scan progress line.
//
// Every function writes to an io.Writer. Colors come from fatih/color and
// are therefore disabled whenever color.NoColor is set (non-TTY output or
// NO_COLOR in the environment).
//
//	display.RenderTree(os.Stdout, tr, display.TreeOptions{Expanded: true})
//	display.RenderSummary(os.Stdout, display.Summary{Stats: tr.Stats(), Total: total, Selected: selected})
//
// Warnings are displayed in yellow:
//
//	display.WarnUnmatched(res.Unmatched).Display(os.Stderr)
package display
