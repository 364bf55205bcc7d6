package metadata

import (
	"bytes"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/harrison/codeview/internal/models"
	"github.com/hhatto/gocloc"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultMaxLineStatsSize skips line counting for files larger than 8 MiB.
const DefaultMaxLineStatsSize int64 = 8 << 20

// LineCounter counts code, comment and blank lines for languages gocloc
// recognises. Markdown is parsed with goldmark instead.
type LineCounter struct {
	languages *gocloc.DefinedLanguages
	opts      *gocloc.ClocOptions
	markdown  goldmark.Markdown
	maxSize   int64
}

// NewLineCounter creates a LineCounter with the default size limit.
func NewLineCounter() *LineCounter {
	return &LineCounter{
		languages: gocloc.NewDefinedLanguages(),
		opts:      gocloc.NewClocOptions(),
		markdown:  goldmark.New(),
		maxSize:   DefaultMaxLineStatsSize,
	}
}

// Count implements LineStatsProvider. Unknown languages, oversized files and
// unreadable files yield nil.
func (c *LineCounter) Count(path string, info fs.FileInfo) *models.LineStats {
	name, ok := languageName(path)
	if !ok {
		return nil
	}
	language, ok := c.languages.Langs[name]
	if !ok && name != markdownLanguage {
		return nil
	}
	if info != nil && info.Size() > c.maxSize {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var stats models.LineStats
	if name == markdownLanguage {
		stats = c.countMarkdown(content)
	} else {
		f := gocloc.AnalyzeReader(path, language, bytes.NewReader(content), c.opts)
		stats = models.LineStats{Code: int(f.Code), Comments: int(f.Comments), Blanks: int(f.Blanks)}
	}
	stats.Language = name
	return &stats
}

// countMarkdown treats lines inside fenced or indented code blocks as code
// and every other non-blank line (prose, headings, fences) as comments.
func (c *LineCounter) countMarkdown(content []byte) models.LineStats {
	lines := splitLines(content)
	starts := lineStarts(content)
	codeLines := make(map[int]bool)

	doc := c.markdown.Parser().Parse(text.NewReader(content))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			segs := n.Lines()
			for i := 0; i < segs.Len(); i++ {
				codeLines[lineOf(starts, segs.At(i).Start)] = true
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	var stats models.LineStats
	for i, raw := range lines {
		switch {
		case strings.TrimSpace(raw) == "":
			stats.Blanks++
		case codeLines[i]:
			stats.Code++
		default:
			stats.Comments++
		}
	}
	return stats
}

// splitLines splits content on '\n', dropping the empty element after a
// trailing newline.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	s := string(bytes.TrimSuffix(content, []byte("\n")))
	return strings.Split(s, "\n")
}

func lineStarts(content []byte) []int {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' && i+1 < len(content) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf maps a byte offset to its zero-based line number.
func lineOf(starts []int, offset int) int {
	return sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
}
