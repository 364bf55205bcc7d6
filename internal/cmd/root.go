package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for codeview
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codeview",
		Short: "Scan a codebase and select the files that matter",
		Long: `Codeview scans a directory tree in parallel, honouring .gitignore and
.ignore files, and builds a tree of every file and directory with
tri-state selection (checked, unchecked, partial).

Selections can be saved to JSON files or named snapshots and re-applied to
later scans of the same directory; the resulting inclusion list is printed
one path per line for use by other tools.

Configuration is loaded from .codeview/config.yaml if present.
CODEVIEW_HOME and CODEVIEW_LOG_LEVEL may be set in the environment or a
.env file. CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Path to config file (default: .codeview/config.yaml)")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error")
	pf.String("log-dir", "", "Directory for per-run log files")
	pf.String("history-db", "", "Path to the history database (default: $CODEVIEW_HOME/history.db)")
	pf.Bool("no-history", false, "Do not record scans in the history database")
	pf.String("metrics-file", "", "Write Prometheus metrics in text format to this file after the command")
	pf.Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewTreeCommand())
	cmd.AddCommand(NewSelectCommand())
	cmd.AddCommand(NewRecentCommand())

	return cmd
}
