package model

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is the immutable ranked result of one refresh cycle.
// It is replaced wholesale and never mutated after publication.
type Snapshot struct {
	GeneratedAt     time.Time     `json:"generated_at"`
	Duration        time.Duration `json:"duration"`
	RefreshCount    int64         `json:"refresh_count"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	CycleID         string        `json:"cycle_id,omitempty"`
	Opportunities   []Opportunity `json:"opportunities"`
}

// Age reports how old the snapshot is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	if d := now.Sub(s.GeneratedAt); d > 0 {
		return d
	}
	return 0
}

// NextRefreshIn estimates time until the next scheduled cycle.
func (s *Snapshot) NextRefreshIn(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	if d := s.RefreshInterval - s.Age(now); d > 0 {
		return d
	}
	return 0
}

// Top returns at most limit opportunities without copying the backing array.
func (s *Snapshot) Top(limit int) []Opportunity {
	if s == nil || limit <= 0 {
		return nil
	}
	if limit > len(s.Opportunities) {
		limit = len(s.Opportunities)
	}
	return s.Opportunities[:limit:limit]
}

// RefreshStatus is the shared, process-wide refresh flag.
type RefreshStatus struct {
	IsRefreshing bool      `json:"is_refreshing"`
	LastError    string    `json:"last_error,omitempty"`
	RefreshCount int64     `json:"refresh_count"`
	CycleID      string    `json:"cycle_id,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
}

// InFlight reports whether a refresh holds the flag and has not gone stale.
// A zero staleAfter disables the staleness check.
func (s RefreshStatus) InFlight(now time.Time, staleAfter time.Duration) bool {
	if !s.IsRefreshing {
		return false
	}
	if staleAfter <= 0 || s.StartedAt.IsZero() {
		return true
	}
	return now.Sub(s.StartedAt) < staleAfter
}

// Trigger reasons.
const (
	ReasonSchedule = "schedule"
	ReasonForce    = "force"
)

// RefreshRequest identifies one accepted refresh cycle.
type RefreshRequest struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshRequest stamps a request with a fresh cycle id.
func NewRefreshRequest(reason string, now time.Time) RefreshRequest {
	return RefreshRequest{ID: uuid.NewString(), Reason: reason, RequestedAt: now}
}
