package display

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/models"
)

// DefaultTopTypes is how many extensions the summary lists.
const DefaultTopTypes = 5

// Summary is everything RenderSummary prints.
type Summary struct {
	Stats     *models.ScanStats
	Duration  time.Duration
	Total     int // Files in the tree
	Selected  int // Checked files
	Dropped   int // Orphans discarded at completion
	Cancelled bool
	TopTypes  int
}

// RenderSummary prints scan totals, selection coverage, the most common
// file types, the largest files and per-language line counts.
func RenderSummary(w io.Writer, s Summary) {
	stats := s.Stats
	if stats == nil {
		stats = models.NewScanStats()
	}
	label := color.New(color.FgCyan)

	status := "Scan complete"
	if s.Cancelled {
		status = "Scan cancelled"
	}
	fmt.Fprintf(w, "%s in %s\n", status, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  %s %s\n", label.Sprintf("%-13s", "Files:"), humanize.Comma(int64(stats.TotalFiles)))
	fmt.Fprintf(w, "  %s %s\n", label.Sprintf("%-13s", "Directories:"), humanize.Comma(int64(stats.TotalDirs)))
	fmt.Fprintf(w, "  %s %s\n", label.Sprintf("%-13s", "Total size:"), stats.TotalSizeHuman())
	errText := fmt.Sprintf("%d", len(stats.Errors))
	if len(stats.Errors) > 0 {
		errText = color.New(color.FgRed).Sprint(errText)
	}
	fmt.Fprintf(w, "  %s %s\n", label.Sprintf("%-13s", "Errors:"), errText)
	if s.Dropped > 0 {
		fmt.Fprintf(w, "  %s %d\n", label.Sprintf("%-13s", "Dropped:"), s.Dropped)
	}

	bar := logger.NewProgressBar(s.Total, 20, !color.NoColor)
	bar.Update(s.Selected)
	bar.SetPrefix("Selected: ")
	fmt.Fprintln(w, bar.Render())

	renderFileTypes(w, stats, s.TopTypes)
	renderLargest(w, stats)
	renderLanguages(w, stats)
}

func renderFileTypes(w io.Writer, stats *models.ScanStats, top int) {
	if len(stats.FileTypes) == 0 {
		return
	}
	if top <= 0 {
		top = DefaultTopTypes
	}

	type kv struct {
		ext   string
		count int
	}
	rows := make([]kv, 0, len(stats.FileTypes))
	for ext, count := range stats.FileTypes {
		rows = append(rows, kv{ext, count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].ext < rows[j].ext
	})

	fmt.Fprintln(w, "File types:")
	for i, r := range rows {
		if i == top {
			fmt.Fprintf(w, "  ...and %d more\n", len(rows)-top)
			break
		}
		fmt.Fprintf(w, "  %-16s %d\n", r.ext, r.count)
	}
}

func renderLargest(w io.Writer, stats *models.ScanStats) {
	if len(stats.LargestFiles) == 0 {
		return
	}
	fmt.Fprintln(w, "Largest files:")
	for _, f := range stats.LargestFiles {
		fmt.Fprintf(w, "  %10s  %s\n", f.HumanSize, f.Path)
	}
}

func renderLanguages(w io.Writer, stats *models.ScanStats) {
	langs := stats.SortedLanguages()
	if len(langs) == 0 {
		return
	}
	fmt.Fprintln(w, "Languages:")
	for _, l := range langs {
		fmt.Fprintf(w, "  %-12s code %-8s comments %-8s blanks %s\n", l.Language,
			humanize.Comma(int64(l.Code)), humanize.Comma(int64(l.Comments)), humanize.Comma(int64(l.Blanks)))
	}
}
