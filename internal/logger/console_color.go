package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/codeview/internal/models"
)

// colorScheme defines consistent colors for scan metrics.
// Green: discovered content
// Red: errors
// Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	label   *color.Color
	value   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats "label: value" with a cyan label.
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	return fmt.Sprintf("%s: %s", scheme.label.Sprint(label), scheme.value.Sprintf("%v", value))
}

// formatColorizedScanMetrics formats scan totals with color coding.
// Format: "files: N, dirs: N, size: S, errors: N"
// The errors metric turns red when non-zero.
func formatColorizedScanMetrics(stats *models.ScanStats) string {
	scheme := newColorScheme()
	parts := []string{
		fmt.Sprintf("%s: %s", scheme.success.Sprint("files"), scheme.value.Sprintf("%d", stats.TotalFiles)),
		formatColorizedMetric("dirs", stats.TotalDirs, scheme),
		formatColorizedMetric("size", stats.TotalSizeHuman(), scheme),
	}

	errCount := len(stats.Errors)
	if errCount > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.fail.Sprint("errors"), scheme.fail.Sprintf("%d", errCount)))
	} else {
		parts = append(parts, formatColorizedMetric("errors", 0, scheme))
	}

	return strings.Join(parts, ", ")
}

// formatScanMetrics is the plain-text variant used when color is off.
func formatScanMetrics(stats *models.ScanStats) string {
	return fmt.Sprintf("files: %d, dirs: %d, size: %s, errors: %d",
		stats.TotalFiles, stats.TotalDirs, stats.TotalSizeHuman(), len(stats.Errors))
}
