package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHidden(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".git", true},
		{".env", true},
		{"main.go", false},
		{".", false},
		{"..", false},
		{"a.hidden", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHidden(tt.name))
		})
	}
}

func TestParentPath(t *testing.T) {
	root := t.TempDir()

	parent, ok := ParentPath(filepath.Join(root, "b", "c"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "b"), parent)

	_, ok = ParentPath(string(filepath.Separator))
	assert.False(t, ok)
}

func TestRelativeKey(t *testing.T) {
	root := filepath.Join(t.TempDir(), "R")

	key, ok := RelativeKey(root, filepath.Join(root, "b", "c"))
	require.True(t, ok)
	assert.Equal(t, "b/c", key)

	_, ok = RelativeKey(root, root)
	assert.False(t, ok, "root has no key")

	_, ok = RelativeKey(root, filepath.Dir(root))
	assert.False(t, ok, "paths outside the root have no key")

	assert.Equal(t, filepath.Join(root, "b", "c"), FromKey(root, key))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "b/c", NormalizeKey(`b\c`))
	assert.Equal(t, "b/c", NormalizeKey("./b/c"))
	assert.Equal(t, "b/c", NormalizeKey("/b/c/"))
}

func TestKeyCandidates(t *testing.T) {
	assert.Equal(t, []string{"b/c"}, KeyCandidates("./b/c/"))
	assert.Equal(t, []string{`we\ird`, "we/ird"}, KeyCandidates(`we\ird`))
	assert.Equal(t, filepath.Join("/R", `we\ird`), FromKey("/R", `we\ird`))
}

func TestFindRepoRoot(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repo, ".git"), 0755))
	nested := filepath.Join(repo, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, ok := FindRepoRoot(nested)
	require.True(t, ok)
	assert.Equal(t, repo, got)
}

func TestAbsClean(t *testing.T) {
	got, err := AbsClean("a/../b/")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "b", filepath.Base(got))
}
