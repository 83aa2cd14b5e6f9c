package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/atomicfile"
	"github.com/okian/streamscout/pkg/logger"
)

// File names inside the state directory.
const (
	CacheFile  = "cache.json"
	StatusFile = "status.json"
	lockFile   = ".state.lock"
)

// cacheRecord is the on-disk cache document.
type cacheRecord struct {
	Data                *model.Snapshot `json:"data"`
	Timestamp           float64         `json:"timestamp"`
	LastRefreshDuration float64         `json:"last_refresh_duration"`
	RefreshCount        int64           `json:"refresh_count"`
}

// FileStore shares state between processes on one host through two JSON
// files in a directory. Writers serialise on an flock; readers do not lock
// because every write is an atomic rename.
type FileStore struct {
	dir        string
	cachePath  string
	statusPath string

	mu     sync.Mutex // serialises goroutines sharing the flock handle
	lock   *flock.Flock
	closed atomic.Bool

	retryDelay time.Duration
	logger     logger.Logger
}

var _ SnapshotStore = (*FileStore)(nil)

// NewFileStore opens (creating if needed) the state directory dir.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	cfg := newSettings(opts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:        dir,
		cachePath:  filepath.Join(dir, CacheFile),
		statusPath: filepath.Join(dir, StatusFile),
		lock:       flock.New(filepath.Join(dir, lockFile)),
		retryDelay: cfg.lockRetryDelay,
		logger:     cfg.logger,
	}, nil
}

// Dir returns the state directory.
func (s *FileStore) Dir() string { return s.dir }

// LoadSnapshot implements SnapshotStore.
func (s *FileStore) LoadSnapshot(_ context.Context) (*model.Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var rec cacheRecord
	if err := readJSON(s.cachePath, &rec); err != nil {
		return nil, err
	}
	if rec.Data == nil {
		return nil, ErrNotFound
	}
	return rec.Data, nil
}

// LoadStatus implements SnapshotStore. A corrupt status file reads as idle.
func (s *FileStore) LoadStatus(ctx context.Context) (model.RefreshStatus, error) {
	if s.closed.Load() {
		return model.RefreshStatus{}, ErrClosed
	}
	return s.readStatus(ctx)
}

// BeginRefresh implements SnapshotStore.
func (s *FileStore) BeginRefresh(ctx context.Context, req model.RefreshRequest, staleAfter time.Duration) (bool, error) {
	var accepted bool
	err := s.withLock(ctx, func() error {
		st, err := s.readStatus(ctx)
		if err != nil {
			return err
		}
		if accepted = begin(&st, req, staleAfter); !accepted {
			return nil
		}
		return writeJSON(s.statusPath, st)
	})
	return accepted, err
}

// CompleteRefresh implements SnapshotStore.
func (s *FileStore) CompleteRefresh(ctx context.Context, snap model.Snapshot) (model.Snapshot, error) { //nolint:gocritic // snapshot is copied on publish
	var published model.Snapshot
	err := s.withLock(ctx, func() error {
		st, err := s.readStatus(ctx)
		if err != nil {
			return err
		}
		published = complete(&st, snap)
		rec := cacheRecord{
			Data:                &published,
			Timestamp:           unixSeconds(published.GeneratedAt),
			LastRefreshDuration: published.Duration.Seconds(),
			RefreshCount:        published.RefreshCount,
		}
		// Cache first: a crash between the writes leaves a fresh snapshot
		// behind a flag the stale guard will release.
		if err := writeJSON(s.cachePath, rec); err != nil {
			return err
		}
		return writeJSON(s.statusPath, st)
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	return published, nil
}

// FailRefresh implements SnapshotStore.
func (s *FileStore) FailRefresh(ctx context.Context, cycleID string, cause error) error {
	return s.withLock(ctx, func() error {
		st, err := s.readStatus(ctx)
		if err != nil {
			return err
		}
		fail(&st, cycleID, cause)
		return writeJSON(s.statusPath, st)
	})
}

// Close implements SnapshotStore. The lock file is left in place.
func (s *FileStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Close()
}

// withLock runs fn holding both the in-process mutex and the flock.
func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, s.retryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn(ctx, "state unlock failed", logger.Error(err))
		}
	}()
	return fn()
}

func (s *FileStore) readStatus(ctx context.Context) (model.RefreshStatus, error) {
	var st model.RefreshStatus
	err := readJSON(s.statusPath, &st)
	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, ErrNotFound):
		return model.RefreshStatus{}, nil
	case errors.Is(err, ErrCorrupt):
		s.logger.Warn(ctx, "status file unreadable, treating as idle", logger.Error(err))
		return model.RefreshStatus{}, nil
	default:
		return model.RefreshStatus{}, err
	}
}

// readJSON decodes path into v. Missing files map to ErrNotFound and
// undecodable ones to ErrCorrupt.
func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return atomicfile.Write(path, raw, 0o644)
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
