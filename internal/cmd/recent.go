package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewRecentCommand creates the recent command
func NewRecentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently scanned projects",
		Long: `List the most recently scanned directories (at most 10), newest first.
With --scans, list individual scans instead, optionally for one directory.

Examples:
  codeview recent
  codeview recent --scans --limit 5
  codeview recent --scans --root ~/src/project`,
		Args: cobra.NoArgs,
		RunE: runRecent,
	}

	cmd.Flags().Bool("scans", false, "List individual scans")
	cmd.Flags().String("root", "", "Only list scans of this directory (with --scans)")
	cmd.Flags().Int("limit", 20, "Maximum scans to list (with --scans)")

	return cmd
}

func runRecent(cmd *cobra.Command, args []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	store, err := s.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)

	if scans, _ := cmd.Flags().GetBool("scans"); scans {
		root, _ := cmd.Flags().GetString("root")
		limit, _ := cmd.Flags().GetInt("limit")
		records, err := store.Scans(cmd.Context(), root, limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(s.out, "No scans recorded")
			return nil
		}
		fmt.Fprintln(tw, "WHEN\tROOT\tFILES\tDIRS\tSIZE\tERRORS\tDURATION")
		for _, r := range records {
			root := r.RootPath
			if r.Cancelled {
				root += " (cancelled)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
				humanize.RelTime(r.StartedAt, now, "ago", "from now"), root,
				r.TotalFiles, r.TotalDirs, humanize.Bytes(r.TotalSizeBytes), r.ErrorCount, r.Duration)
		}
		return tw.Flush()
	}

	projects, err := store.RecentProjects(cmd.Context())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(s.out, "No recent projects")
		return nil
	}
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\n", p.RootPath, humanize.RelTime(p.LastOpened, now, "ago", "from now"))
	}
	return tw.Flush()
}
