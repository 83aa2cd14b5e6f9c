// Package lock arbitrates the recurring-refresh role between cooperating
// processes. The holder keeps the lock for its whole lifetime.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LeaderLock is an exclusive, non-blocking, process-lifetime lock.
type LeaderLock interface {
	// TryAcquire reports whether this process now holds the lock. It never
	// waits for another holder. Calling it again while held returns true.
	TryAcquire(ctx context.Context) (bool, error)
	// Release gives the lock up. Releasing an unheld lock is a no-op.
	Release() error
}

// FileLock is a LeaderLock backed by flock(2) on a file shared by every
// process on the host.
type FileLock struct {
	mu   sync.Mutex
	lock *flock.Flock
}

var _ LeaderLock = (*FileLock)(nil)

// NewFileLock creates a lock on path, creating its directory if needed.
func NewFileLock(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &FileLock{lock: flock.New(path)}, nil
}

// TryAcquire implements LeaderLock.
func (l *FileLock) TryAcquire(_ context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ok, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", l.lock.Path(), err)
	}
	return ok, nil
}

// Release implements LeaderLock.
func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.lock.Path(), err)
	}
	return nil
}

// AdvisoryLock is a LeaderLock backed by a Postgres session advisory lock.
// It pins one pooled connection for as long as the lock is held.
type AdvisoryLock struct {
	mu   sync.Mutex
	pool *pgxpool.Pool
	key  int64
	conn *pgxpool.Conn
}

var _ LeaderLock = (*AdvisoryLock)(nil)

// DefaultAdvisoryKey identifies the refresh role in pg_locks.
const DefaultAdvisoryKey int64 = 0x53545245414d // "STREAM"

// NewAdvisoryLock creates a lock on key using connections from pool.
func NewAdvisoryLock(pool *pgxpool.Pool, key int64) *AdvisoryLock {
	return &AdvisoryLock{pool: pool, key: key}
}

// TryAcquire implements LeaderLock.
func (l *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return true, nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&ok); err != nil {
		conn.Release()
		return false, fmt.Errorf("pg_try_advisory_lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release implements LeaderLock.
func (l *AdvisoryLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil

	var ok bool
	err := conn.QueryRow(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key).Scan(&ok)
	if err != nil {
		// The session may be gone; closing it drops the lock server-side.
		_ = conn.Conn().Close(context.Background())
		conn.Release()
		return fmt.Errorf("pg_advisory_unlock: %w", err)
	}
	conn.Release()
	if !ok {
		return ErrNotHeld
	}
	return nil
}

// Local is a LeaderLock for a single process with no peers; it always
// grants leadership.
type Local struct{}

var _ LeaderLock = Local{}

// TryAcquire implements LeaderLock.
func (Local) TryAcquire(_ context.Context) (bool, error) { return true, nil }

// Release implements LeaderLock.
func (Local) Release() error { return nil }
