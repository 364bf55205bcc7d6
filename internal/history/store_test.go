package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrison/codeview/internal/models"
	"github.com/harrison/codeview/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{"file database", filepath.Join(t.TempDir(), "history.db"), false},
		{"in-memory database", ":memory:", false},
		{"creates parent directories", filepath.Join(t.TempDir(), "nested", "dir", "history.db"), false},
		{"unwritable location", "/proc/codeview/history.db", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.dbPath)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()

			v, err := s.SchemaVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(migrations), v)
		})
	}
}

func TestNewStore_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordScan(context.Background(), &ScanRecord{ID: "a", RootPath: "/p", StartedAt: base}))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	scans, err := s.Scans(context.Background(), "/p", 0)
	require.NoError(t, err)
	assert.Len(t, scans, 1)
}

func TestRecordScan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &ScanRecord{
		ID:             "3f9c",
		RootPath:       "/src/project",
		StartedAt:      base,
		Duration:       1500 * time.Millisecond,
		TotalFiles:     120,
		TotalDirs:      14,
		TotalSizeBytes: 1 << 20,
		ErrorCount:     2,
		DroppedOrphans: 1,
		Cancelled:      true,
	}
	require.NoError(t, s.RecordScan(ctx, rec))
	require.NoError(t, s.RecordScan(ctx, &ScanRecord{ID: "other", RootPath: "/elsewhere", StartedAt: base.Add(time.Minute)}))

	scans, err := s.Scans(ctx, "/src/project", 10)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	got := scans[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, rec.Duration, got.Duration)
	assert.Equal(t, rec.TotalFiles, got.TotalFiles)
	assert.Equal(t, rec.TotalDirs, got.TotalDirs)
	assert.Equal(t, rec.TotalSizeBytes, got.TotalSizeBytes)
	assert.Equal(t, rec.ErrorCount, got.ErrorCount)
	assert.Equal(t, rec.DroppedOrphans, got.DroppedOrphans)
	assert.True(t, got.Cancelled)

	all, err := s.Scans(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "other", all[0].ID, "newest first")

	err = s.RecordScan(ctx, rec)
	assert.Error(t, err, "scan ids are unique")
}

func TestRecentProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < MaxRecentProjects+3; i++ {
		require.NoError(t, s.TouchProject(ctx, fmt.Sprintf("/p%d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	// Reopening an old project moves it to the top.
	require.NoError(t, s.RecordScan(ctx, &ScanRecord{ID: "x", RootPath: "/p5", StartedAt: base.Add(time.Hour)}))

	projects, err := s.RecentProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, MaxRecentProjects)
	assert.Equal(t, "/p5", projects[0].RootPath)
	assert.Equal(t, "/p12", projects[1].RootPath)

	var roots []string
	for _, p := range projects {
		roots = append(roots, p.RootPath)
	}
	assert.NotContains(t, roots, "/p0")
	assert.NotContains(t, roots, "/p2")
}

func TestSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &Snapshot{
		RootPath:     "/src/project",
		Name:         "review",
		CreatedAt:    base,
		CheckedFiles: 2,
		Selection: &selection.File{
			Version:   "1",
			Timestamp: base.Format(time.RFC3339),
			RootPath:  "/src/project",
			Selection: map[string]models.Check{"a": models.Checked, "b": models.Unchecked},
		},
	}
	require.NoError(t, s.SaveSnapshot(ctx, first))
	assert.NotZero(t, first.ID)

	second := *first
	second.ID = 0
	second.CreatedAt = base.Add(time.Hour)
	second.Selection = &selection.File{Version: "1", Selection: map[string]models.Check{"a": models.Unchecked}}
	require.NoError(t, s.SaveSnapshot(ctx, &second))

	latest, err := s.LatestSnapshot(ctx, "/src/project", "review")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, map[string]models.Check{"a": models.Unchecked}, latest.Selection.Selection)

	list, err := s.Snapshots(ctx, "/src/project")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.Selection.Selection, list[1].Selection.Selection)

	_, err = s.LatestSnapshot(ctx, "/src/project", "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.SaveSnapshot(ctx, &Snapshot{RootPath: "/x", Name: "empty"})
	assert.Error(t, err)
}
