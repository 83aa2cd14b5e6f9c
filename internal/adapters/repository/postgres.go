package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/logger"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// PostgresSchema creates the shared state tables. It is idempotent.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS streamscout_refresh_status (
  id            SMALLINT PRIMARY KEY CHECK (id = 1),
  is_refreshing BOOLEAN     NOT NULL DEFAULT FALSE,
  last_error    TEXT        NOT NULL DEFAULT '',
  refresh_count BIGINT      NOT NULL DEFAULT 0,
  cycle_id      TEXT        NOT NULL DEFAULT '',
  started_at    TIMESTAMPTZ
);
INSERT INTO streamscout_refresh_status (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
CREATE TABLE IF NOT EXISTS streamscout_snapshot (
  id            SMALLINT PRIMARY KEY CHECK (id = 1),
  data          JSONB       NOT NULL,
  generated_at  TIMESTAMPTZ NOT NULL,
  refresh_count BIGINT      NOT NULL
);
`

// PostgresStore shares state between processes on any number of hosts.
type PostgresStore struct {
	pool   *Pool
	closed atomic.Bool
	logger logger.Logger
}

var _ SnapshotStore = (*PostgresStore)(nil)

// NewPostgresStore applies the schema and returns a store on pool.
// The pool stays owned by the caller.
func NewPostgresStore(ctx context.Context, pool *Pool, opts ...Option) (*PostgresStore, error) {
	cfg := newSettings(opts)
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool, logger: cfg.logger}, nil
}

// LoadSnapshot implements SnapshotStore.
func (s *PostgresStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM streamscout_snapshot WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn(ctx, "snapshot row unreadable", logger.Error(err))
		return nil, fmt.Errorf("%w: snapshot row: %v", ErrCorrupt, err)
	}
	return &snap, nil
}

// LoadStatus implements SnapshotStore.
func (s *PostgresStore) LoadStatus(ctx context.Context) (model.RefreshStatus, error) {
	if s.closed.Load() {
		return model.RefreshStatus{}, ErrClosed
	}
	var (
		st        model.RefreshStatus
		startedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT is_refreshing, last_error, refresh_count, cycle_id, started_at
		FROM streamscout_refresh_status WHERE id = 1
	`).Scan(&st.IsRefreshing, &st.LastError, &st.RefreshCount, &st.CycleID, &startedAt)
	if err != nil {
		return model.RefreshStatus{}, fmt.Errorf("load status: %w", err)
	}
	if startedAt != nil {
		st.StartedAt = *startedAt
	}
	return st, nil
}

// BeginRefresh implements SnapshotStore with a single conditional UPDATE;
// row locking makes the check-and-set atomic across hosts.
func (s *PostgresStore) BeginRefresh(ctx context.Context, req model.RefreshRequest, staleAfter time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	var cutoff *time.Time
	if staleAfter > 0 {
		c := req.RequestedAt.Add(-staleAfter)
		cutoff = &c
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE streamscout_refresh_status
		SET is_refreshing = TRUE, cycle_id = $1, started_at = $2
		WHERE id = 1
		  AND (NOT is_refreshing OR ($3::timestamptz IS NOT NULL AND started_at IS NOT NULL AND started_at <= $3))
	`, req.ID, req.RequestedAt, cutoff)
	if err != nil {
		return false, fmt.Errorf("begin refresh: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteRefresh implements SnapshotStore in one transaction.
func (s *PostgresStore) CompleteRefresh(ctx context.Context, snap model.Snapshot) (model.Snapshot, error) { //nolint:gocritic // snapshot is copied on publish
	if s.closed.Load() {
		return model.Snapshot{}, ErrClosed
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			UPDATE streamscout_refresh_status
			SET refresh_count = refresh_count + 1,
			    last_error = '',
			    is_refreshing = CASE WHEN $1 = '' OR cycle_id = '' OR cycle_id = $1 THEN FALSE ELSE is_refreshing END
			WHERE id = 1
			RETURNING refresh_count
		`, snap.CycleID).Scan(&snap.RefreshCount); err != nil {
			return err
		}

		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO streamscout_snapshot (id, data, generated_at, refresh_count)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET data = EXCLUDED.data,
			    generated_at = EXCLUDED.generated_at,
			    refresh_count = EXCLUDED.refresh_count
		`, data, snap.GeneratedAt, snap.RefreshCount)
		return err
	})
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("complete refresh: %w", err)
	}
	return snap, nil
}

// FailRefresh implements SnapshotStore.
func (s *PostgresStore) FailRefresh(ctx context.Context, cycleID string, cause error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE streamscout_refresh_status
		SET last_error = $1,
		    is_refreshing = CASE WHEN $2 = '' OR cycle_id = '' OR cycle_id = $2 THEN FALSE ELSE is_refreshing END
		WHERE id = 1
	`, errorText(cause), cycleID)
	if err != nil {
		return fmt.Errorf("fail refresh: %w", err)
	}
	return nil
}

// Close implements SnapshotStore. The pool is closed by its owner.
func (s *PostgresStore) Close() error {
	s.closed.Store(true)
	return nil
}
