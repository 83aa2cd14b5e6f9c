// Package harvest builds the candidate catalog from the live top listing.
package harvest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/streamscout/internal/adapters/catalog"
	"github.com/okian/streamscout/internal/adapters/upstream"
	"github.com/okian/streamscout/internal/domain/dedupe"
	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/logger"
)

// DefaultTarget is the number of games harvested when none is configured.
const DefaultTarget = 300

// Harvester fetches the top listing once and writes it as a catalog.
type Harvester struct {
	target int
	now    func() time.Time
	logger logger.Logger
}

// New creates a Harvester.
func New(opts ...Option) *Harvester {
	h := &Harvester{
		target: DefaultTarget,
		now:    time.Now,
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Fetch connects, lists the top games and returns them de-duplicated by id
// in listing order. Games without a name are dropped.
func (h *Harvester) Fetch(ctx context.Context, conn upstream.Connector) (catalog.Document, error) {
	const op = "harvest.fetch"

	session, err := conn.Connect(ctx)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("%s: connect: %w", op, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			h.logger.Warn(ctx, "upstream session close failed", logger.Error(cerr))
		}
	}()

	top, err := session.ListTop(ctx, h.target)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("%s: %w", op, err)
	}

	seen := dedupe.NewInMemoryDeduper()
	games := make([]model.Entity, 0, len(top))
	for _, g := range top {
		g.Name = strings.TrimSpace(g.Name)
		if g.ID == "" || g.Name == "" || seen.SeenAndRecord(ctx, g.ID) {
			continue
		}
		games = append(games, model.Entity{ID: g.ID, Name: g.Name})
	}
	if len(games) == 0 {
		return catalog.Document{}, ErrNoGames
	}
	if len(games) < h.target {
		h.logger.Warn(ctx, "top listing shorter than target",
			logger.Int("fetched", len(games)),
			logger.Int("target", h.target),
		)
	}
	return catalog.NewDocument(games, h.now()), nil
}

// Run fetches and atomically writes the catalog to path.
func (h *Harvester) Run(ctx context.Context, conn upstream.Connector, path string) (catalog.Document, error) {
	doc, err := h.Fetch(ctx, conn)
	if err != nil {
		return catalog.Document{}, err
	}
	if err := catalog.Save(path, doc); err != nil {
		return catalog.Document{}, fmt.Errorf("harvest.run: %w", err)
	}
	h.logger.Info(ctx, "catalog written",
		logger.String("path", path),
		logger.Int("games", doc.TotalGames),
	)
	return doc, nil
}
