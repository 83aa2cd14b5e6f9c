package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/streamscout/internal/domain/model"
)

// MemoryStore keeps state in process. It serves a single process only.
type MemoryStore struct {
	mu       sync.Mutex
	status   model.RefreshStatus
	snapshot atomic.Pointer[model.Snapshot]
	closed   atomic.Bool
}

var _ SnapshotStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadSnapshot implements SnapshotStore without taking a lock.
func (s *MemoryStore) LoadSnapshot(_ context.Context) (*model.Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrNotFound
	}
	return snap, nil
}

// LoadStatus implements SnapshotStore.
func (s *MemoryStore) LoadStatus(_ context.Context) (model.RefreshStatus, error) {
	if s.closed.Load() {
		return model.RefreshStatus{}, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, nil
}

// BeginRefresh implements SnapshotStore.
func (s *MemoryStore) BeginRefresh(_ context.Context, req model.RefreshRequest, staleAfter time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return begin(&s.status, req, staleAfter), nil
}

// CompleteRefresh implements SnapshotStore.
func (s *MemoryStore) CompleteRefresh(_ context.Context, snap model.Snapshot) (model.Snapshot, error) { //nolint:gocritic // snapshot is copied on publish
	if s.closed.Load() {
		return model.Snapshot{}, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	published := complete(&s.status, snap)
	s.snapshot.Store(&published)
	return published, nil
}

// FailRefresh implements SnapshotStore.
func (s *MemoryStore) FailRefresh(_ context.Context, cycleID string, cause error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fail(&s.status, cycleID, cause)
	return nil
}

// Close implements SnapshotStore.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}
