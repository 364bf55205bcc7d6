package cmd

import (
	"fmt"

	"github.com/harrison/codeview/internal/display"
	"github.com/spf13/cobra"
)

// NewTreeCommand creates the tree command
func NewTreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Print the scanned tree with selection markers",
		Long: `Scan a directory and print it as a tree. Each line carries a selection
marker: [x] checked, [ ] unchecked, [~] partially checked directory.

Directories are collapsed unless the scan found at most auto_expand_limit
files or --expand-all is given; collapsed directories show their child count.

Examples:
  codeview tree
  codeview tree . --expand-all --depth 3
  codeview tree . --selection review.json
  codeview tree . --none --check internal/scanner`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTree,
	}

	addScanFlags(cmd)
	addSelectionFlags(cmd)
	cmd.Flags().Bool("expand-all", false, "Expand every directory")
	cmd.Flags().Bool("collapse-all", false, "Collapse every directory below the root")
	cmd.Flags().Int("depth", 0, "Maximum depth to print (0 = unlimited)")
	cmd.Flags().Bool("size", false, "Show file sizes")

	return cmd
}

func runTree(cmd *cobra.Command, args []string) (err error) {
	expandAll, _ := cmd.Flags().GetBool("expand-all")
	collapseAll, _ := cmd.Flags().GetBool("collapse-all")
	if expandAll && collapseAll {
		return fmt.Errorf("cannot use both --expand-all and --collapse-all")
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	res, err := s.scan(cmd.Context(), rootArg(args))
	if err != nil {
		return err
	}
	if err := requireRoot(res); err != nil {
		return err
	}
	unmatched, err := s.applySelection(cmd.Context(), cmd, res.tree)
	if err != nil {
		return err
	}

	switch {
	case expandAll:
		res.tree.ExpandAll()
	case collapseAll:
		res.tree.CollapseAll()
	}

	depth, _ := cmd.Flags().GetInt("depth")
	showSize, _ := cmd.Flags().GetBool("size")
	display.RenderTree(s.out, res.tree, display.TreeOptions{MaxDepth: depth, ShowSize: showSize})

	total, selected := res.tree.CountFiles()
	fmt.Fprintf(s.out, "\n%d of %d files selected\n", selected, total)
	s.reportWarnings(res, unmatched)
	return nil
}
