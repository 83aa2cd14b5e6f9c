// Package upstream declares the audience-metrics provider capability and
// its error taxonomy. Concrete bindings live in subpackages.
package upstream

import (
	"context"

	"github.com/okian/streamscout/internal/domain/model"
)

// Provider is the narrow upstream capability the collector consumes.
// Every call may fail independently.
type Provider interface {
	// Validate resolves names to entities. Implementations cap the batch size.
	Validate(ctx context.Context, names []string) ([]model.Entity, error)
	// ListTop returns up to count entities ranked by current audience.
	ListTop(ctx context.Context, count int) ([]model.Entity, error)
	// ListBroadcasts returns up to limit live broadcasts for one entity.
	ListBroadcasts(ctx context.Context, entityID string, limit int) ([]model.Broadcast, error)
}

// Session is a connected Provider that owns network resources.
type Session interface {
	Provider
	Close() error
}

// Connector opens sessions. Connect performs the handshake and is the only
// call bounded by the handshake timeout.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}
