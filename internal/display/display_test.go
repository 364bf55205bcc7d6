package display

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/codeview/internal/models"
	"github.com/harrison/codeview/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

var root = filepath.FromSlash("/R")

func sampleTree(t *testing.T, autoExpand int) *tree.Tree {
	t.Helper()
	tr := tree.New(tree.Options{Root: root, AutoExpandLimit: autoExpand})
	add := func(rel string, dir bool, size uint64) {
		tr.Add(models.Entry{
			Path:      filepath.Join(root, filepath.FromSlash(rel)),
			IsDir:     dir,
			Size:      size,
			HumanSize: fmt.Sprintf("%d B", size),
		})
	}
	add("", true, 0)
	add("main.go", false, 10)
	add("pkg", true, 0)
	add("pkg/a.go", false, 20)
	add("pkg/b.go", false, 30)
	tr.Finish()
	return tr
}

func TestRenderTree(t *testing.T) {
	tests := []struct {
		name   string
		expand int
		opts   TreeOptions
		want   []string
	}{
		{
			name:   "collapsed directories show hidden count",
			expand: 0,
			want: []string{
				"[x] " + root + "/",
				"  [x] pkg/ (+2)",
				"  [x] main.go",
			},
		},
		{
			name:   "auto-expanded tree",
			expand: 100,
			want: []string{
				"[x] " + root + "/",
				"  [x] pkg/",
				"    [x] a.go",
				"    [x] b.go",
				"  [x] main.go",
			},
		},
		{
			name: "expanded with sizes",
			opts: TreeOptions{Expanded: true, ShowSize: true},
			want: []string{
				"[x] " + root + "/",
				"  [x] pkg/",
				"    [x] a.go (20 B)",
				"    [x] b.go (30 B)",
				"  [x] main.go (10 B)",
			},
		},
		{
			name: "depth limit",
			opts: TreeOptions{Expanded: true, MaxDepth: 1},
			want: []string{
				"[x] " + root + "/",
				"  [x] pkg/ (+2)",
				"  [x] main.go",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			RenderTree(&buf, sampleTree(t, tt.expand), tt.opts)
			assert.Equal(t, strings.Join(tt.want, "\n")+"\n", buf.String())
		})
	}
}

func TestRenderTree_Markers(t *testing.T) {
	tr := sampleTree(t, 100)
	id, ok := tr.Lookup(filepath.Join(root, "pkg", "a.go"))
	require.True(t, ok)
	require.NoError(t, tr.Set(id, models.Unchecked))

	var buf bytes.Buffer
	RenderTree(&buf, tr, TreeOptions{})

	out := buf.String()
	assert.Contains(t, out, "[~] "+root+"/")
	assert.Contains(t, out, "  [~] pkg/")
	assert.Contains(t, out, "    [ ] a.go")
	assert.Contains(t, out, "    [x] b.go")
}

func TestRenderTree_Empty(t *testing.T) {
	var buf bytes.Buffer
	RenderTree(&buf, tree.New(tree.Options{Root: root}), TreeOptions{})
	assert.Equal(t, "(empty tree)\n", buf.String())
}

func TestRenderSummary(t *testing.T) {
	stats := models.NewScanStats()
	stats.AddEntry(models.Entry{Path: root, IsDir: true}, root)
	stats.AddEntry(models.Entry{
		Path: filepath.Join(root, "main.go"), Size: 1500, HumanSize: "1.5 kB", Extension: "go",
		LineStats: &models.LineStats{Language: "Go", Code: 1200, Comments: 3, Blanks: 4},
	}, root)
	stats.AddEntry(models.Entry{Path: filepath.Join(root, "Makefile"), Size: 20, HumanSize: "20 B"}, root)
	stats.AddError("Failed to process entry '/R/x': permission denied")

	var buf bytes.Buffer
	RenderSummary(&buf, Summary{
		Stats:    stats,
		Duration: 1234 * time.Millisecond,
		Total:    2,
		Selected: 1,
		Dropped:  3,
	})
	out := buf.String()

	for _, want := range []string{
		"Scan complete in 1.234s",
		"Files:        2",
		"Directories:  1",
		"Total size:   1.5 kB",
		"Errors:       1",
		"Dropped:      3",
		"Selected: [==========          ] 1/2 (50%)",
		"File types:",
		"(no extension)",
		"Largest files:",
		"1.5 kB  main.go",
		"Languages:",
		"Go           code 1,200",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderSummary_CancelledAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, Summary{Cancelled: true, Duration: 5 * time.Millisecond})

	out := buf.String()
	assert.Contains(t, out, "Scan cancelled in 5ms")
	assert.Contains(t, out, "0/0 (0%)")
	assert.NotContains(t, out, "Dropped:")
	assert.NotContains(t, out, "File types:")
}

func TestRenderFileTypes_Truncates(t *testing.T) {
	stats := models.NewScanStats()
	for i := 0; i < 7; i++ {
		stats.FileTypes[fmt.Sprintf(".e%d", i)] = i + 1
	}

	var buf bytes.Buffer
	renderFileTypes(&buf, stats, 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], ".e6")
	assert.Contains(t, lines[4], "...and 4 more")
}

func TestWarningDisplay(t *testing.T) {
	tests := []struct {
		name    string
		warning Warning
		want    []string
		absent  []string
	}{
		{
			name:    "title only",
			warning: Warning{Title: "Nothing selected"},
			want:    []string{"⚠️  Warning: Nothing selected\n"},
			absent:  []string{"Suggestion:", "Details:"},
		},
		{
			name:    "scan errors",
			warning: WarnScanErrors([]string{"e1", "e2"}),
			want:    []string{"2 entries could not be read", "Errors:", "1. e1", "2. e2"},
		},
		{
			name:    "unmatched keys",
			warning: WarnUnmatched([]string{"gone.txt"}),
			want:    []string{"1 saved selection path(s) not found", "Paths:", "1. gone.txt", "Suggestion:"},
		},
		{
			name:    "dropped orphans",
			warning: WarnDroppedOrphans(4),
			want:    []string{"4 entries were dropped from the tree", "--log-level debug"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.warning.Display(&buf)
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestWarningDisplay_TruncatesItems(t *testing.T) {
	items := make([]string, maxWarningItems+5)
	for i := range items {
		items[i] = fmt.Sprintf("p%d", i)
	}

	var buf bytes.Buffer
	Warning{Title: "many", Items: items}.Display(&buf)

	assert.Contains(t, buf.String(), "10. p9")
	assert.NotContains(t, buf.String(), "p10")
	assert.Contains(t, buf.String(), "...and 5 more")
}

func TestWarningDisplay_Color(t *testing.T) {
	color.NoColor = false
	defer func() { color.NoColor = true }()

	var buf bytes.Buffer
	Warning{Title: "colored"}.Display(&buf)

	assert.True(t, strings.HasPrefix(buf.String(), "\x1b[33m"))
	assert.True(t, strings.HasSuffix(buf.String(), "\x1b[0m"))
}

func TestScanProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewScanProgress(&buf, time.Hour)

	p.Update(1, 1)
	p.Update(2, 1) // Throttled.
	assert.Equal(t, "\rScanning: 1 files, 1 dirs", buf.String())

	p.Update(1500, 20)
	p.Complete(false)
	assert.True(t, strings.HasSuffix(buf.String(), "\rScanning: 1,500 files, 20 dirs ✓\n"))

	buf.Reset()
	p.Complete(true)
	assert.Contains(t, buf.String(), "(cancelled)")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestWriteFileList(t *testing.T) {
	entries := []models.Entry{
		{Path: filepath.Join(root, "main.go")},
		{Path: filepath.Join(root, "pkg", "a.go")},
	}

	var buf bytes.Buffer
	n, err := WriteFileList(&buf, root, entries, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "main.go\npkg/a.go\n", buf.String())

	buf.Reset()
	_, err = WriteFileList(&buf, root, entries[:1], true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "main.go")+"\n", buf.String())

	n, err = WriteFileList(failingWriter{}, root, entries, false)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}
