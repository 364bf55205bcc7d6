package display

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// ScanProgress rewrites a single status line while a scan runs.
type ScanProgress struct {
	writer   io.Writer
	interval time.Duration

	mu      sync.Mutex
	files   int
	dirs    int
	last    time.Time
	written bool
}

// NewScanProgress creates a progress line that redraws at most once per
// interval.
func NewScanProgress(w io.Writer, interval time.Duration) *ScanProgress {
	return &ScanProgress{writer: w, interval: interval}
}

// Update records the current totals and redraws when the interval passed.
func (p *ScanProgress) Update(files, dirs int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.files, p.dirs = files, dirs
	if now := time.Now(); !p.written || now.Sub(p.last) >= p.interval {
		p.last = now
		p.draw()
	}
}

func (p *ScanProgress) draw() {
	p.written = true
	fmt.Fprintf(p.writer, "\r%s %s files, %s dirs",
		color.New(color.FgCyan).Sprint("Scanning:"), humanize.Comma(int64(p.files)), humanize.Comma(int64(p.dirs)))
}

// Complete draws the final totals and ends the line.
func (p *ScanProgress) Complete(cancelled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.draw()
	if cancelled {
		fmt.Fprintf(p.writer, " %s\n", color.New(color.FgYellow).Sprint("(cancelled)"))
		return
	}
	fmt.Fprintf(p.writer, " %s\n", color.New(color.FgGreen).Sprint("✓"))
}
