package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // driver

	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS refresh_status (
  id            INTEGER PRIMARY KEY CHECK (id = 1),
  is_refreshing INTEGER NOT NULL DEFAULT 0 CHECK (is_refreshing IN (0,1)),
  last_error    TEXT    NOT NULL DEFAULT '',
  refresh_count INTEGER NOT NULL DEFAULT 0,
  cycle_id      TEXT    NOT NULL DEFAULT '',
  started_at    INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO refresh_status (id) VALUES (1);
CREATE TABLE IF NOT EXISTS snapshot (
  id            INTEGER PRIMARY KEY CHECK (id = 1),
  data          TEXT    NOT NULL,
  generated_at  INTEGER NOT NULL,
  refresh_count INTEGER NOT NULL
);
`

// SQLiteStore shares state between processes on one host through an
// embedded SQLite database in WAL mode.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
	logger logger.Logger
}

var _ SnapshotStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path and ensures the schema exists.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	cfg := newSettings(opts)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: cfg.logger}, nil
}

// LoadSnapshot implements SnapshotStore.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshot WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		s.logger.Warn(ctx, "snapshot row unreadable", logger.Error(err))
		return nil, fmt.Errorf("%w: snapshot row: %v", ErrCorrupt, err)
	}
	return &snap, nil
}

// LoadStatus implements SnapshotStore.
func (s *SQLiteStore) LoadStatus(ctx context.Context) (model.RefreshStatus, error) {
	if s.closed.Load() {
		return model.RefreshStatus{}, ErrClosed
	}
	var (
		st         model.RefreshStatus
		refreshing int
		startedAt  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT is_refreshing, last_error, refresh_count, cycle_id, started_at
		FROM refresh_status WHERE id = 1`).
		Scan(&refreshing, &st.LastError, &st.RefreshCount, &st.CycleID, &startedAt)
	if err != nil {
		return model.RefreshStatus{}, fmt.Errorf("load status: %w", err)
	}
	st.IsRefreshing = refreshing == 1
	st.StartedAt = fromUnixNano(startedAt)
	return st, nil
}

// BeginRefresh implements SnapshotStore with a single conditional UPDATE.
func (s *SQLiteStore) BeginRefresh(ctx context.Context, req model.RefreshRequest, staleAfter time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_status
		SET is_refreshing = 1, cycle_id = ?, started_at = ?
		WHERE id = 1 AND (is_refreshing = 0 OR (? > 0 AND started_at > 0 AND started_at <= ?))`,
		req.ID, req.RequestedAt.UnixNano(), int64(staleAfter), staleCutoff(req.RequestedAt, staleAfter))
	if err != nil {
		return false, fmt.Errorf("begin refresh: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("begin refresh: %w", err)
	}
	return n == 1, nil
}

// CompleteRefresh implements SnapshotStore in one transaction.
func (s *SQLiteStore) CompleteRefresh(ctx context.Context, snap model.Snapshot) (model.Snapshot, error) { //nolint:gocritic // snapshot is copied on publish
	if s.closed.Load() {
		return model.Snapshot{}, ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("complete refresh: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The first statement writes, so the database lock is taken up front.
	err = tx.QueryRowContext(ctx, `
		UPDATE refresh_status
		SET refresh_count = refresh_count + 1,
		    last_error = '',
		    is_refreshing = CASE WHEN ? = '' OR cycle_id = '' OR cycle_id = ? THEN 0 ELSE is_refreshing END
		WHERE id = 1
		RETURNING refresh_count`, snap.CycleID, snap.CycleID).Scan(&snap.RefreshCount)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("complete refresh: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot (id, data, generated_at, refresh_count) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET data = excluded.data, generated_at = excluded.generated_at, refresh_count = excluded.refresh_count`,
		string(data), snap.GeneratedAt.UnixNano(), snap.RefreshCount); err != nil {
		return model.Snapshot{}, fmt.Errorf("publish snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Snapshot{}, fmt.Errorf("complete refresh: %w", err)
	}
	return snap, nil
}

// FailRefresh implements SnapshotStore.
func (s *SQLiteStore) FailRefresh(ctx context.Context, cycleID string, cause error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE refresh_status
		SET last_error = ?,
		    is_refreshing = CASE WHEN ? = '' OR cycle_id = '' OR cycle_id = ? THEN 0 ELSE is_refreshing END
		WHERE id = 1`, errorText(cause), cycleID, cycleID)
	if err != nil {
		return fmt.Errorf("fail refresh: %w", err)
	}
	return nil
}

// Close implements SnapshotStore.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// staleCutoff is the latest started_at that counts as stale.
func staleCutoff(now time.Time, staleAfter time.Duration) int64 {
	if staleAfter <= 0 {
		return 0
	}
	return now.Add(-staleAfter).UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
