// Package history records completed scans, recently opened projects and
// named selection snapshots in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/codeview/internal/selection"
	_ "github.com/mattn/go-sqlite3"
)

// MaxRecentProjects bounds the recent project list.
const MaxRecentProjects = 10

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ScanRecord summarises one completed scan.
type ScanRecord struct {
	ID             string
	RootPath       string
	StartedAt      time.Time
	Duration       time.Duration
	TotalFiles     int
	TotalDirs      int
	TotalSizeBytes uint64
	ErrorCount     int
	DroppedOrphans int
	Cancelled      bool
}

// Project is an entry of the recent projects list.
type Project struct {
	RootPath   string
	LastOpened time.Time
}

// Snapshot is a named selection stored in the database.
type Snapshot struct {
	ID           int64
	RootPath     string
	Name         string
	CreatedAt    time.Time
	CheckedFiles int
	Selection    *selection.File
}

// Store manages the history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations. ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// execWithRetry retries statements that fail with "database is locked".
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordScan stores rec and marks its root as the most recently opened
// project.
func (s *Store) RecordScan(ctx context.Context, rec *ScanRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO scans
		(id, root_path, started_at, duration_ms, total_files, total_dirs, total_size_bytes, error_count, dropped_orphans, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.RootPath,
		rec.StartedAt.UTC(),
		rec.Duration.Milliseconds(),
		rec.TotalFiles,
		rec.TotalDirs,
		int64(rec.TotalSizeBytes),
		rec.ErrorCount,
		rec.DroppedOrphans,
		rec.Cancelled,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}

	if err := touchProject(ctx, tx, rec.RootPath, rec.StartedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scan: %w", err)
	}
	return nil
}

// Scans returns the most recent scans of root, newest first. An empty root
// matches every project; limit <= 0 means no limit.
func (s *Store) Scans(ctx context.Context, root string, limit int) ([]*ScanRecord, error) {
	query := `SELECT id, root_path, started_at, duration_ms, total_files, total_dirs, total_size_bytes, error_count, dropped_orphans, cancelled
		FROM scans WHERE (? = '' OR root_path = ?) ORDER BY started_at DESC`
	args := []interface{}{root, root}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []*ScanRecord
	for rows.Next() {
		var (
			rec        ScanRecord
			durationMS int64
			size       int64
		)
		if err := rows.Scan(&rec.ID, &rec.RootPath, &rec.StartedAt, &durationMS, &rec.TotalFiles,
			&rec.TotalDirs, &size, &rec.ErrorCount, &rec.DroppedOrphans, &rec.Cancelled); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.TotalSizeBytes = uint64(size)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return out, nil
}

// TouchProject moves root to the top of the recent projects list.
func (s *Store) TouchProject(ctx context.Context, root string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchProject(ctx, tx, root, at); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recent project: %w", err)
	}
	return nil
}

func touchProject(ctx context.Context, tx *sql.Tx, root string, at time.Time) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO recent_projects (root_path, last_opened) VALUES (?, ?)
		ON CONFLICT(root_path) DO UPDATE SET last_opened = excluded.last_opened`, root, at.UTC()); err != nil {
		return fmt.Errorf("upsert recent project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recent_projects WHERE root_path NOT IN
		(SELECT root_path FROM recent_projects ORDER BY last_opened DESC LIMIT ?)`, MaxRecentProjects); err != nil {
		return fmt.Errorf("trim recent projects: %w", err)
	}
	return nil
}

// RecentProjects returns at most MaxRecentProjects roots, most recent first.
func (s *Store) RecentProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT root_path, last_opened FROM recent_projects
		ORDER BY last_opened DESC LIMIT ?`, MaxRecentProjects)
	if err != nil {
		return nil, fmt.Errorf("query recent projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.RootPath, &p.LastOpened); err != nil {
			return nil, fmt.Errorf("scan recent project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveSnapshot stores snap under its root and name. Earlier snapshots with
// the same name are kept; the newest wins on lookup.
func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.Selection == nil {
		return fmt.Errorf("snapshot %q has no selection", snap.Name)
	}
	data, err := selection.Marshal(snap.Selection)
	if err != nil {
		return err
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO selection_snapshots
		(root_path, name, created_at, checked_files, selection) VALUES (?, ?, ?, ?, ?)`,
		snap.RootPath, snap.Name, snap.CreatedAt.UTC(), snap.CheckedFiles, string(data))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	snap.ID = id
	return nil
}

// LatestSnapshot returns the newest snapshot called name for root, or
// ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context, root, name string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, root_path, name, created_at, checked_files, selection
		FROM selection_snapshots WHERE root_path = ? AND name = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, root, name)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %q for %s: %w", name, root, ErrNotFound)
	}
	return snap, err
}

// Snapshots lists the snapshots of root, newest first.
func (s *Store) Snapshots(ctx context.Context, root string) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, root_path, name, created_at, checked_files, selection
		FROM selection_snapshots WHERE root_path = ? ORDER BY created_at DESC, id DESC`, root)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		snap Snapshot
		data string
	)
	if err := row.Scan(&snap.ID, &snap.RootPath, &snap.Name, &snap.CreatedAt, &snap.CheckedFiles, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	f, err := selection.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", snap.ID, err)
	}
	snap.Selection = f
	return &snap, nil
}
