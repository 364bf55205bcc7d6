package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/harrison/codeview/internal/display"
	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/history"
	"github.com/harrison/codeview/internal/models"
	"github.com/harrison/codeview/internal/selection"
	"github.com/spf13/cobra"
)

// NewSelectCommand creates the select command group
func NewSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Build, save and apply file selections",
		Long: `Select commands scan a directory, build a selection from flags or a saved
selection, and then list, save or apply it.

Selections are JSON files keyed by paths relative to the scanned root:
  {"version": "...", "timestamp": "...", "root_path": "...",
   "selection": {"src": "Partial", "src/main.go": "Checked", ...}}`,
	}

	cmd.AddCommand(newSelectListCommand())
	cmd.AddCommand(newSelectSaveCommand())
	cmd.AddCommand(newSelectApplyCommand())
	cmd.AddCommand(newSelectSnapshotsCommand())

	return cmd
}

func newSelectListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [path]",
		Short: "Print the selected files, one per line",
		Long: `Print the inclusion list: every checked file in tree order, relative to
the scanned root unless --absolute is given.

Examples:
  codeview select list
  codeview select list . --selection review.json
  codeview select list . --none --check cmd --check internal/scanner`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSelectList,
	}

	addScanFlags(cmd)
	addSelectionFlags(cmd)
	cmd.Flags().Bool("absolute", false, "Print absolute paths")

	return cmd
}

func runSelectList(cmd *cobra.Command, args []string) (err error) {
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

	absolute, _ := cmd.Flags().GetBool("absolute")
	n, err := display.WriteFileList(s.out, res.tree.RootPath(), res.tree.SelectedFiles(), absolute)
	if err != nil {
		return err
	}
	s.log.LogInfo(fmt.Sprintf("Listed %d selected files", n))
	s.reportWarnings(res, unmatched)
	return nil
}

func newSelectSaveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <file> [path]",
		Short: "Save a selection to a JSON file",
		Long: `Scan a directory, build a selection from the selection flags and write it
to <file>. With --name the selection is also stored as a named snapshot in
the history database.

Examples:
  codeview select save review.json . --none --check internal
  codeview select save review.json . --selection old.json --uncheck vendor --name review`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runSelectSave,
	}

	addScanFlags(cmd)
	addSelectionFlags(cmd)
	cmd.Flags().String("name", "", "Also store the selection as a named snapshot")

	return cmd
}

func runSelectSave(cmd *cobra.Command, args []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	res, err := s.scan(cmd.Context(), rootArg(args[1:]))
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

	f, err := selection.Collect(res.tree, Version)
	if err != nil {
		return err
	}
	if err := selection.Save(args[0], f); err != nil {
		return err
	}

	total, selected := res.tree.CountFiles()
	fmt.Fprintf(s.out, "Saved selection of %d/%d files to %s\n", selected, total, args[0])

	if name, _ := cmd.Flags().GetString("name"); name != "" {
		store, err := s.openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		snap := &history.Snapshot{RootPath: res.tree.RootPath(), Name: name, CheckedFiles: selected, Selection: f}
		if err := store.SaveSnapshot(cmd.Context(), snap); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Stored snapshot %q\n", name)
	}

	s.reportWarnings(res, unmatched)
	return nil
}

func newSelectApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <file> [path]",
		Short: "Apply a saved selection to a fresh scan and report the result",
		Long: `Scan a directory, restore the selection saved in <file> and report how
many saved paths matched. Paths that no longer exist are listed as a
warning. Use --list to print the resulting inclusion list.

Examples:
  codeview select apply review.json
  codeview select apply review.json ~/src/project --list`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runSelectApply,
	}

	addScanFlags(cmd)
	cmd.Flags().StringSlice("check", nil, "Check a path relative to the root after applying (repeatable)")
	cmd.Flags().StringSlice("uncheck", nil, "Uncheck a path relative to the root after applying (repeatable)")
	cmd.Flags().Bool("list", false, "Print the selected files after applying")
	cmd.Flags().Bool("absolute", false, "Print absolute paths with --list")

	return cmd
}

func runSelectApply(cmd *cobra.Command, args []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	saved, err := selection.Load(args[0])
	if err != nil {
		return err
	}

	res, err := s.scan(cmd.Context(), rootArg(args[1:]))
	if err != nil {
		return err
	}
	if err := requireRoot(res); err != nil {
		return err
	}

	result, err := selection.Restore(res.tree, saved, s.log)
	if err != nil {
		return err
	}
	checks, _ := cmd.Flags().GetStringSlice("check")
	unchecks, _ := cmd.Flags().GetStringSlice("uncheck")
	if err := applyPathFlags(res, checks, unchecks); err != nil {
		return err
	}

	if list, _ := cmd.Flags().GetBool("list"); list {
		absolute, _ := cmd.Flags().GetBool("absolute")
		if _, err := display.WriteFileList(s.out, res.tree.RootPath(), res.tree.SelectedFiles(), absolute); err != nil {
			return err
		}
	} else {
		total, selected := res.tree.CountFiles()
		fmt.Fprintf(s.out, "Applied %d of %d saved paths; %d/%d files selected\n",
			result.Applied, len(saved.Selection), selected, total)
	}

	s.reportWarnings(res, result.Unmatched)
	return nil
}

func newSelectSnapshotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots [path]",
		Short: "List named selection snapshots stored for a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSelectSnapshots,
	}
	return cmd
}

func runSelectSnapshots(cmd *cobra.Command, args []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	root, err := fileutil.AbsClean(rootArg(args))
	if err != nil {
		return err
	}
	store, err := s.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	snaps, err := store.Snapshots(cmd.Context(), root)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintf(s.out, "No snapshots for %s\n", root)
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFILES\tSAVED")
	for _, snap := range snaps {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", snap.Name, snap.CheckedFiles, humanize.RelTime(snap.CreatedAt, time.Now(), "ago", "from now"))
	}
	return tw.Flush()
}

// applyPathFlags applies --check then --uncheck to the tree.
func applyPathFlags(res *scanResult, checks, unchecks []string) error {
	if err := setPaths(res.tree, checks, models.Checked); err != nil {
		return err
	}
	return setPaths(res.tree, unchecks, models.Unchecked)
}
