// Package repository holds the shared snapshot and refresh status that
// every cooperating process reads and at most one process writes.
//
// All stores publish by whole replacement: a reader sees the previous
// complete snapshot or the new one, never a mix.
package repository

import (
	"context"
	"time"

	"github.com/okian/streamscout/internal/domain/model"
)

// SnapshotStore persists the published snapshot and the refresh flag.
type SnapshotStore interface {
	// LoadSnapshot returns the last published snapshot, or ErrNotFound.
	// The result is shared and must not be modified.
	LoadSnapshot(ctx context.Context) (*model.Snapshot, error)

	// LoadStatus returns the refresh status. A store that never saw a
	// refresh returns the zero status.
	LoadStatus(ctx context.Context) (model.RefreshStatus, error)

	// BeginRefresh sets the refresh flag for req if no refresh is in flight.
	// A flag older than staleAfter (measured from req.RequestedAt) counts as
	// free. The check and the set happen as one atomic step across processes.
	BeginRefresh(ctx context.Context, req model.RefreshRequest, staleAfter time.Duration) (bool, error)

	// CompleteRefresh publishes snap with the next refresh count, clears
	// last_error and, when snap.CycleID owns the flag, clears it.
	CompleteRefresh(ctx context.Context, snap model.Snapshot) (model.Snapshot, error)

	// FailRefresh records cause as last_error and, when cycleID owns the
	// flag, clears it. The published snapshot is left untouched.
	FailRefresh(ctx context.Context, cycleID string, cause error) error

	// Close releases the store's resources.
	Close() error
}

// begin applies the BeginRefresh transition to st.
func begin(st *model.RefreshStatus, req model.RefreshRequest, staleAfter time.Duration) bool {
	if st.InFlight(req.RequestedAt, staleAfter) {
		return false
	}
	st.IsRefreshing = true
	st.CycleID = req.ID
	st.StartedAt = req.RequestedAt
	return true
}

// complete applies the CompleteRefresh transition and stamps snap.
func complete(st *model.RefreshStatus, snap model.Snapshot) model.Snapshot {
	st.RefreshCount++
	st.LastError = ""
	if owns(st, snap.CycleID) {
		st.IsRefreshing = false
	}
	snap.RefreshCount = st.RefreshCount
	return snap
}

// fail applies the FailRefresh transition.
func fail(st *model.RefreshStatus, cycleID string, cause error) {
	st.LastError = errorText(cause)
	if owns(st, cycleID) {
		st.IsRefreshing = false
	}
}

// owns reports whether cycleID may clear the flag. An empty id always may.
func owns(st *model.RefreshStatus, cycleID string) bool {
	return cycleID == "" || st.CycleID == "" || st.CycleID == cycleID
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
