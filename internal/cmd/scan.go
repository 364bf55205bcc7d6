package cmd

import (
	"fmt"

	"github.com/harrison/codeview/internal/display"
	"github.com/spf13/cobra"
)

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory and print statistics",
		Long: `Scan a directory tree (default: the current directory) and print totals,
the most common file types, the largest files and per-language line counts.

Examples:
  codeview scan
  codeview scan ~/src/project --hidden
  codeview scan . --no-ignore --threads 4
  codeview scan . --metrics-file /var/lib/node_exporter/codeview.prom`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}

	addScanFlags(cmd)
	cmd.Flags().Int("top-types", display.DefaultTopTypes, "Number of file types to list")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) (err error) {
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

	total, selected := res.tree.CountFiles()
	topTypes, _ := cmd.Flags().GetInt("top-types")
	display.RenderSummary(s.out, display.Summary{
		Stats:     res.tree.Stats(),
		Duration:  res.duration,
		Total:     total,
		Selected:  selected,
		Dropped:   res.tree.DroppedOrphans(),
		Cancelled: res.cancelled,
		TopTypes:  topTypes,
	})
	s.reportWarnings(res, nil)

	if res.cancelled {
		return fmt.Errorf("scan cancelled")
	}
	return nil
}
