package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/codeview/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFile(t *testing.T, name, content string) *models.LineStats {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return NewLineCounter().Count(path, nil)
}

func TestLineCounter_Source(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    models.LineStats
	}{
		{
			name:    "empty",
			file:    "a.go",
			content: "",
			want:    models.LineStats{Language: "Go"},
		},
		{
			name:    "line comments and blanks",
			file:    "a.go",
			content: "// header\n\npackage x\n\nvar y = 1 // trailing\n",
			want:    models.LineStats{Language: "Go", Code: 2, Comments: 1, Blanks: 2},
		},
		{
			name:    "block comment spans lines",
			file:    "a.go",
			content: "/*\n license\n*/\npackage x\n",
			want:    models.LineStats{Language: "Go", Code: 1, Comments: 3},
		},
		{
			name:    "single line block comment",
			file:    "a.go",
			content: "/* one */\nfunc f() {}\n",
			want:    models.LineStats{Language: "Go", Code: 1, Comments: 1},
		},
		{
			name:    "hash comments",
			file:    "run.py",
			content: "# note\nimport os\n\nprint(os.name)\n",
			want:    models.LineStats{Language: "Python", Code: 2, Comments: 1, Blanks: 1},
		},
		{
			name:    "extension is case-insensitive",
			file:    "MAIN.GO",
			content: "package main\n",
			want:    models.LineStats{Language: "Go", Code: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := countFile(t, tt.file, tt.content)
			require.NotNil(t, stats)
			assert.Equal(t, tt.want, *stats)
		})
	}
}

func TestLineCounter_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "README.md")
	content := "# Title\n\nSome prose.\n\n```go\nfunc main() {}\nreturn\n```\n\n    indented code\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	stats := NewLineCounter().Count(path, nil)
	require.NotNil(t, stats)

	assert.Equal(t, "Markdown", stats.Language)
	assert.Equal(t, 3, stats.Code, "two fenced lines plus one indented line")
	assert.Equal(t, 4, stats.Comments, "heading, prose and both fences")
	assert.Equal(t, 3, stats.Blanks)
}

func TestLineCounter_UnknownLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.xyz")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0644))

	assert.Nil(t, NewLineCounter().Count(path, nil))
}

func TestLineCounter_SizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.go")
	require.NoError(t, os.WriteFile(path, []byte("package big\n"), 0644))

	c := NewLineCounter()
	c.maxSize = 4
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Nil(t, c.Count(path, info))
}

func TestCachedLineCounter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))

	counting := &countingProvider{inner: NewLineCounter()}
	cached, err := NewCachedLineCounter(counting, 16)
	require.NoError(t, err)

	first := cached.Count(path, nil)
	second := cached.Count(path, nil)
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, counting.calls)
	assert.Equal(t, 1, cached.Len())

	// A size change produces a new key.
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nvar b = 2\n"), 0644))
	third := cached.Count(path, nil)
	require.NotNil(t, third)
	assert.Equal(t, 2, third.Code)
	assert.Equal(t, 2, counting.calls)
}

func TestNewCachedLineCounter_InvalidSize(t *testing.T) {
	_, err := NewCachedLineCounter(NewLineCounter(), 0)
	assert.Error(t, err)
}

type countingProvider struct {
	inner LineStatsProvider
	calls int
}

func (c *countingProvider) Count(path string, info os.FileInfo) *models.LineStats {
	c.calls++
	return c.inner.Count(path, info)
}
