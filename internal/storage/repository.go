package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Sync states of an archived snapshot.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
	StatusError   = "error"
)

var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one saved document kept in the archive.
type Snapshot struct {
	ID          int64
	Source      string
	Version     string
	RecordCount int
	Document    []byte
	SavedAt     time.Time
	SyncStatus  string
	SyncError   string
	SyncedAt    time.Time
}

type SQLiteRepository struct {
	db     *sql.DB
	schema uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; avoids SQLITE_BUSY between the server and the worker goroutines
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schema: version}, nil
}

// SchemaVersion is the archive schema version found at open.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schema }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert archives a snapshot as pending and returns its id.
func (r *SQLiteRepository) Insert(ctx context.Context, s Snapshot) (int64, error) {
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (source, version, record_count, document, saved_at, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.Source, s.Version, s.RecordCount, s.Document, formatTime(s.SavedAt), StatusPending)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot archived",
		"id", id,
		"source", s.Source,
		"version", s.Version,
		"records", s.RecordCount)
	return id, nil
}

const snapshotColumns = `id, source, version, record_count, document, saved_at, sync_status, sync_error, synced_at`

// Get returns a snapshot with its document.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot %d: %w", id, err)
	}
	return s, nil
}

// List returns the latest snapshots, newest first, without their documents.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, version, record_count, NULL, saved_at, sync_status, sync_error, synced_at
		 FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return collect(rows)
}

// GetPending returns snapshots not yet mirrored, oldest first.
func (r *SQLiteRepository) GetPending(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE sync_status = ? ORDER BY id ASC LIMIT ?`,
		StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending snapshots: %w", err)
	}
	return collect(rows)
}

// MarkSynced marks a snapshot as successfully mirrored
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.setStatus(ctx, id, StatusSynced, "", formatTime(time.Now())); err != nil {
		return fmt.Errorf("mark snapshot synced: %w", err)
	}
	slog.InfoContext(ctx, "Snapshot marked as synced", "id", id)
	return nil
}

// MarkSyncError records why mirroring a snapshot failed.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64, reason string) error {
	if err := r.setStatus(ctx, id, StatusError, reason, nil); err != nil {
		return fmt.Errorf("mark snapshot sync error: %w", err)
	}
	slog.WarnContext(ctx, "Snapshot marked with sync error", "id", id, "reason", reason)
	return nil
}

func (r *SQLiteRepository) setStatus(ctx context.Context, id int64, status, reason string, syncedAt any) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE snapshots SET sync_status = ?, sync_error = ?, synced_at = ? WHERE id = ?`,
		status, reason, syncedAt, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// CountByStatus returns how many snapshots are in each sync state.
func (r *SQLiteRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sync_status, COUNT(*) FROM snapshots GROUP BY sync_status`)
	if err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (Snapshot, error) {
	var (
		s        Snapshot
		doc      []byte
		savedAt  string
		syncedAt sql.NullString
	)
	if err := sc.Scan(&s.ID, &s.Source, &s.Version, &s.RecordCount, &doc, &savedAt,
		&s.SyncStatus, &s.SyncError, &syncedAt); err != nil {
		return Snapshot{}, err
	}
	s.Document = doc
	s.SavedAt = parseTime(savedAt)
	if syncedAt.Valid {
		s.SyncedAt = parseTime(syncedAt.String)
	}
	return s, nil
}

func collect(rows *sql.Rows) ([]Snapshot, error) {
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
