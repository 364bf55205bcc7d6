package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/codeview/internal/config"
	"github.com/harrison/codeview/internal/display"
	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/history"
	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/metadata"
	"github.com/harrison/codeview/internal/metrics"
	"github.com/harrison/codeview/internal/models"
	"github.com/harrison/codeview/internal/scanner"
	"github.com/harrison/codeview/internal/selection"
	"github.com/harrison/codeview/internal/tree"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// progressInterval throttles the live progress line.
const progressInterval = 100 * time.Millisecond

// session carries the resolved configuration and loggers of one command.
type session struct {
	cfg     *config.Config
	log     logger.Logger
	console *logger.ConsoleLogger
	out     io.Writer
	errOut  io.Writer
	tty     bool // errOut is an interactive terminal

	noHistory   bool
	metricsFile string
	closers     []func() error
}

// scanResult is a finished scan assembled into a tree.
type scanResult struct {
	id        string
	tree      *tree.Tree
	started   time.Time
	duration  time.Duration
	cancelled bool
}

// addScanFlags registers the flags that shape a scan.
func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("hidden", false, "Include hidden files and directories")
	f.Bool("no-ignore", false, "Do not apply .gitignore, .ignore or git exclude rules")
	f.Int("threads", 0, "Walker threads (0 = min(NumCPU, 8))")
	f.Int("batch-size", 0, "Discoveries per batch message")
	f.Duration("flush-interval", 0, "Maximum age of a partial batch")
	f.Int("auto-expand-limit", 0, "Expand all directories when at most this many files are found (0 = never)")
	f.Bool("no-line-stats", false, "Skip per-file line statistics")
}

// addSelectionFlags registers the flags that choose the initial selection.
func addSelectionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("all", false, "Select every file (default)")
	f.Bool("none", false, "Start with nothing selected")
	f.String("selection", "", "Apply a saved selection file")
	f.String("snapshot", "", "Apply a named selection snapshot from the history database")
	f.StringSlice("check", nil, "Check a path relative to the root (repeatable)")
	f.StringSlice("uncheck", nil, "Uncheck a path relative to the root (repeatable)")
}

// newSession loads configuration (file, then environment, then flags),
// validates it and sets up logging.
func newSession(cmd *cobra.Command) (*session, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.ApplyEnv()
	cfg.MergeWithFlags(collectOverrides(cmd))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	errOut := cmd.ErrOrStderr()
	s := &session{
		cfg:    cfg,
		out:    cmd.OutOrStdout(),
		errOut: errOut,
		tty:    isTerminal(errOut),
	}
	if noColor || !isTerminal(s.out) {
		color.NoColor = true
	}
	s.noHistory, _ = cmd.Flags().GetBool("no-history")
	s.metricsFile, _ = cmd.Flags().GetString("metrics-file")

	console := logger.NewConsoleLogger(errOut, cfg.LogLevel)
	s.console = console
	s.log = console
	if cfg.LogDir != "" {
		fl, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open log directory: %w", err)
		}
		s.closers = append(s.closers, fl.Close)
		s.log = logger.NewMultiLogger(console, fl)
		console.LogDebug(fmt.Sprintf("Writing run log to %s", fl.Path()))
	}
	return s, nil
}

// collectOverrides turns explicitly set flags into config overrides.
func collectOverrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	f := cmd.Flags()

	if f.Lookup("hidden") != nil && f.Changed("hidden") {
		v, _ := f.GetBool("hidden")
		o.ShowHidden = &v
	}
	if f.Lookup("no-ignore") != nil && f.Changed("no-ignore") {
		v, _ := f.GetBool("no-ignore")
		v = !v
		o.RespectIgnoreRules = &v
	}
	if f.Lookup("threads") != nil && f.Changed("threads") {
		v, _ := f.GetInt("threads")
		o.Threads = &v
	}
	if f.Lookup("batch-size") != nil && f.Changed("batch-size") {
		v, _ := f.GetInt("batch-size")
		o.BatchSize = &v
	}
	if f.Lookup("flush-interval") != nil && f.Changed("flush-interval") {
		v, _ := f.GetDuration("flush-interval")
		o.FlushInterval = &v
	}
	if f.Lookup("auto-expand-limit") != nil && f.Changed("auto-expand-limit") {
		v, _ := f.GetInt("auto-expand-limit")
		o.AutoExpandLimit = &v
	}
	if f.Lookup("no-line-stats") != nil && f.Changed("no-line-stats") {
		v, _ := f.GetBool("no-line-stats")
		v = !v
		o.LineStats = &v
	}
	if f.Changed("log-level") {
		v, _ := f.GetString("log-level")
		o.LogLevel = &v
	}
	if f.Changed("log-dir") {
		v, _ := f.GetString("log-dir")
		o.LogDir = &v
	}
	if f.Changed("history-db") {
		v, _ := f.GetString("history-db")
		o.HistoryDB = &v
	}
	return o
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// close writes the metrics file and releases the file logger.
func (s *session) close() error {
	var errs []error
	if s.metricsFile != "" {
		if err := metrics.WriteTextfile(s.metricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// scanOptions maps the configuration onto scanner options for root.
func (s *session) scanOptions(root string) (scanner.Options, error) {
	opts := scanner.DefaultOptions(root)
	opts.ShowHidden = s.cfg.ShowHidden
	opts.RespectIgnoreRules = s.cfg.RespectIgnoreRules
	opts.Threads = s.cfg.Threads
	opts.BatchSize = s.cfg.BatchSize
	opts.FlushInterval = s.cfg.FlushInterval
	opts.ChannelCapacity = s.cfg.ChannelCapacity
	opts.BinarySampleSize = s.cfg.BinarySampleSize
	opts.ExtraIgnoreFiles = s.cfg.ExtraIgnoreFiles
	opts.Logger = s.log

	if s.cfg.LineStats {
		var provider metadata.LineStatsProvider = metadata.NewLineCounter()
		if s.cfg.LineStatsCacheSize > 0 {
			cached, err := metadata.NewCachedLineCounter(provider, s.cfg.LineStatsCacheSize)
			if err != nil {
				return opts, err
			}
			provider = cached
		}
		opts.LineStats = provider
	}
	return opts, nil
}

// scan runs a scan of root to completion. Interrupts request a cooperative
// cancel; the partial tree is still returned.
func (s *session) scan(ctx context.Context, root string) (*scanResult, error) {
	opts, err := s.scanOptions(root)
	if err != nil {
		return nil, err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	h := scanner.Scan(ctx, opts)
	tr := tree.New(tree.Options{Root: h.Root, AutoExpandLimit: s.cfg.AutoExpandLimit, Logger: s.log})

	var progress *display.ScanProgress
	if s.tty {
		progress = display.NewScanProgress(s.errOut, progressInterval)
	}

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	interrupted := sigCtx.Done()
	for !tr.Finished() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-interrupted:
			s.log.LogWarn("Interrupt received, stopping scan")
			h.Cancel()
			interrupted = nil
		case msg, ok := <-h.Messages():
			if !ok {
				return nil, tree.ErrStreamClosed
			}
			if !tr.Apply(msg) {
				tr.Poll(h.Messages())
			}
		case <-ticker.C:
		}
		if progress != nil {
			progress.Update(tr.Stats().TotalFiles, tr.Stats().TotalDirs)
		}
	}
	h.Wait()

	res := &scanResult{
		id:        h.ID,
		tree:      tr,
		started:   started,
		duration:  time.Since(started),
		cancelled: h.CancelFlag().Load(),
	}
	if progress != nil {
		progress.Complete(res.cancelled)
	}
	s.console.LogScanSummary(tr.Stats(), res.duration)
	s.record(ctx, res)
	return res, nil
}

// record stores a finished scan in the history database. Failures are
// logged and never fail the command.
func (s *session) record(ctx context.Context, res *scanResult) {
	if s.noHistory || res.tree.Root() == models.NoNode {
		return
	}
	store, err := s.openHistory()
	if err != nil {
		s.log.LogWarn(fmt.Sprintf("History disabled: %v", err))
		return
	}
	defer store.Close()

	stats := res.tree.Stats()
	err = store.RecordScan(ctx, &history.ScanRecord{
		ID:             res.id,
		RootPath:       res.tree.RootPath(),
		StartedAt:      res.started,
		Duration:       res.duration,
		TotalFiles:     stats.TotalFiles,
		TotalDirs:      stats.TotalDirs,
		TotalSizeBytes: stats.TotalSizeBytes,
		ErrorCount:     len(stats.Errors),
		DroppedOrphans: res.tree.DroppedOrphans(),
		Cancelled:      res.cancelled,
	})
	if err != nil {
		s.log.LogWarn(fmt.Sprintf("Failed to record scan history: %v", err))
	}
}

func (s *session) openHistory() (*history.Store, error) {
	path, err := s.cfg.HistoryDBPath()
	if err != nil {
		return nil, err
	}
	return history.NewStore(path)
}

// applySelection sets the initial selection from the selection flags and
// returns the keys of a saved selection that matched nothing.
func (s *session) applySelection(ctx context.Context, cmd *cobra.Command, tr *tree.Tree) ([]string, error) {
	f := cmd.Flags()
	none, _ := f.GetBool("none")
	all, _ := f.GetBool("all")
	file, _ := f.GetString("selection")
	snapshot, _ := f.GetString("snapshot")
	checks, _ := f.GetStringSlice("check")
	unchecks, _ := f.GetStringSlice("uncheck")

	sources := 0
	for _, set := range []bool{none, all, file != "", snapshot != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, fmt.Errorf("use only one of --all, --none, --selection and --snapshot")
	}
	if tr.Root() == models.NoNode {
		return nil, selection.ErrNoRoot
	}

	var unmatched []string
	switch {
	case none:
		tr.DeselectAll()
	case file != "":
		saved, err := selection.Load(file)
		if err != nil {
			return nil, err
		}
		res, err := selection.Restore(tr, saved, s.log)
		if err != nil {
			return nil, err
		}
		unmatched = res.Unmatched
	case snapshot != "":
		store, err := s.openHistory()
		if err != nil {
			return nil, err
		}
		defer store.Close()
		snap, err := store.LatestSnapshot(ctx, tr.RootPath(), snapshot)
		if err != nil {
			return nil, err
		}
		res, err := selection.Restore(tr, snap.Selection, s.log)
		if err != nil {
			return nil, err
		}
		unmatched = res.Unmatched
	default:
		tr.SelectAll()
	}

	if err := setPaths(tr, checks, models.Checked); err != nil {
		return nil, err
	}
	if err := setPaths(tr, unchecks, models.Unchecked); err != nil {
		return nil, err
	}
	return unmatched, nil
}

// setPaths applies state to each relative path and its subtree.
func setPaths(tr *tree.Tree, keys []string, state models.Check) error {
	for _, key := range keys {
		if fileutil.NormalizeKey(key) == "" {
			if err := tr.Set(tr.Root(), state); err != nil {
				return err
			}
			continue
		}
		id, ok := lookupPath(tr, key)
		if !ok {
			return fmt.Errorf("path %q is not in the scanned tree", key)
		}
		if err := tr.Set(id, state); err != nil {
			return err
		}
	}
	return nil
}

func lookupPath(tr *tree.Tree, key string) (models.NodeID, bool) {
	for _, candidate := range fileutil.KeyCandidates(key) {
		if id, ok := tr.Lookup(fileutil.FromKey(tr.RootPath(), candidate)); ok {
			return id, true
		}
	}
	return models.NoNode, false
}

// requireRoot turns a scan that never produced its root into an error.
func requireRoot(res *scanResult) error {
	if res.tree.Root() != models.NoNode {
		return nil
	}
	if errs := res.tree.Stats().Errors; len(errs) > 0 {
		return errors.New(errs[0])
	}
	return fmt.Errorf("scan of %s produced no root", res.tree.RootPath())
}

// rootArg returns the scan root named on the command line, or ".".
func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// reportWarnings prints the scan's user-facing warnings to errOut.
func (s *session) reportWarnings(res *scanResult, unmatched []string) {
	stats := res.tree.Stats()
	if len(stats.Errors) > 0 {
		display.WarnScanErrors(stats.Errors).Display(s.errOut)
	}
	if n := res.tree.DroppedOrphans(); n > 0 {
		display.WarnDroppedOrphans(n).Display(s.errOut)
	}
	if len(unmatched) > 0 {
		display.WarnUnmatched(unmatched).Display(s.errOut)
	}
}
