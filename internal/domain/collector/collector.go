// Package collector turns a candidate name list into per-entity audience
// metrics using an upstream provider.
//
// Pipeline: trim and de-duplicate names, validate them in chunks, fetch
// broadcasts for each validated entity in concurrent batches, drop
// entities with no live broadcast. Chunk and entity failures are logged
// and skipped; they never abort the run.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/streamscout/internal/adapters/mq/worker"
	"github.com/okian/streamscout/internal/adapters/upstream"
	"github.com/okian/streamscout/internal/domain/dedupe"
	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/logger"
	"github.com/okian/streamscout/pkg/metrics"
)

const (
	defaultMaxCandidates = 500
	defaultChunkSize     = 100
	defaultChunkDelay    = time.Second
	defaultBatchSize     = 10
	defaultBatchDelay    = 250 * time.Millisecond
	defaultPageSize      = 100
	defaultFallbackTop   = 100
)

// Collector stages reported to metrics.
const (
	StageCandidates = "candidates"
	StageValidated  = "validated"
	StageFetched    = "fetched"
	StageFailed     = "fetch_failed"
	StageEmpty      = "empty"
)

// Stats summarises one collection run.
type Stats struct {
	Candidates    int           `json:"candidates"`
	Validated     int           `json:"validated"`
	Fetched       int           `json:"fetched"`
	FetchFailed   int           `json:"fetch_failed"`
	Empty         int           `json:"empty"`
	ChunkFailures int           `json:"chunk_failures"`
	RateLimited   int           `json:"rate_limited"`
	UsedFallback  bool          `json:"used_fallback"`
	Took          time.Duration `json:"took"`
}

// Result holds the metrics of one run in validation order, unique by id.
type Result struct {
	Metrics []model.EntityMetric
	Stats   Stats
}

// ByID indexes the metrics by entity id.
func (r Result) ByID() map[string]model.EntityMetric {
	out := make(map[string]model.EntityMetric, len(r.Metrics))
	for _, m := range r.Metrics {
		out[m.ID] = m
	}
	return out
}

// Collector gathers audience metrics. It holds no per-run state and may be
// reused across cycles.
type Collector struct {
	maxCandidates int
	chunkSize     int
	chunkDelay    time.Duration
	batchSize     int
	batchDelay    time.Duration
	pageSize      int
	fallbackTop   int
	logger        logger.Logger
}

// New creates a Collector with the given options.
func New(opts ...Option) *Collector {
	c := &Collector{
		maxCandidates: defaultMaxCandidates,
		chunkSize:     defaultChunkSize,
		chunkDelay:    defaultChunkDelay,
		batchSize:     defaultBatchSize,
		batchDelay:    defaultBatchDelay,
		pageSize:      defaultPageSize,
		fallbackTop:   defaultFallbackTop,
		logger:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect resolves names through p and returns metrics for every entity
// with at least one live broadcast. An empty name list switches to the
// provider's top listing. It fails only when nothing could be resolved or
// ctx is done.
func (c *Collector) Collect(ctx context.Context, p upstream.Provider, names []string) (Result, error) {
	start := time.Now()
	var st Stats

	names = c.candidates(ctx, names)
	st.Candidates = len(names)
	metrics.RecordCollected(StageCandidates, len(names))

	var (
		entities []model.Entity
		err      error
	)
	if len(names) == 0 {
		st.UsedFallback = true
		c.logger.Warn(ctx, "no candidate names, using top listing", logger.Int("count", c.fallbackTop))
		entities, err = p.ListTop(ctx, c.fallbackTop)
		if err != nil {
			return Result{Stats: st}, fmt.Errorf("%w: top listing: %w", ErrNoEntities, err)
		}
	} else {
		entities, err = c.validate(ctx, p, names, &st)
		if err != nil {
			return Result{Stats: st}, err
		}
	}

	entities = uniqueByID(ctx, entities)
	st.Validated = len(entities)
	metrics.RecordCollected(StageValidated, len(entities))

	out, err := c.fetch(ctx, p, entities, &st)
	st.Took = time.Since(start)
	if err != nil {
		return Result{Stats: st}, err
	}

	metrics.RecordCollected(StageFetched, st.Fetched)
	metrics.RecordCollected(StageFailed, st.FetchFailed)
	metrics.RecordCollected(StageEmpty, st.Empty)
	c.logger.Info(ctx, "collection finished",
		logger.Int("candidates", st.Candidates),
		logger.Int("validated", st.Validated),
		logger.Int("with_broadcasts", len(out)),
		logger.Int("fetch_failed", st.FetchFailed),
		logger.Int("chunk_failures", st.ChunkFailures),
		logger.Duration("took", st.Took),
	)
	return Result{Metrics: out, Stats: st}, nil
}

// candidates trims, drops blanks, removes case-insensitive duplicates and
// truncates to maxCandidates, keeping the first occurrence.
func (c *Collector) candidates(ctx context.Context, names []string) []string {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCaseFolding())
	out := make([]string, 0, min(len(names), c.maxCandidates))
	for _, n := range names {
		if len(out) == c.maxCandidates {
			break
		}
		n = strings.TrimSpace(n)
		if n == "" || seen.SeenAndRecord(ctx, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (c *Collector) validate(ctx context.Context, p upstream.Provider, names []string, st *Stats) ([]model.Entity, error) {
	var (
		out     []model.Entity
		lastErr error
	)
	for i := 0; i < len(names); i += c.chunkSize {
		if i > 0 {
			if err := pause(ctx, c.chunkDelay); err != nil {
				return nil, err
			}
		}
		chunk := names[i:min(i+c.chunkSize, len(names))]
		found, err := p.Validate(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			st.ChunkFailures++
			lastErr = err
			countRateLimit(err, st)
			metrics.RecordErrorByComponent("collector", "validate_chunk")
			c.logger.Warn(ctx, "validation chunk failed, skipping",
				logger.Int("offset", i),
				logger.Int("size", len(chunk)),
				logger.Error(err),
			)
			continue
		}
		out = append(out, found...)
	}

	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: every validation chunk failed: %w", ErrNoEntities, lastErr)
	}
	return out, nil
}

func (c *Collector) fetch(ctx context.Context, p upstream.Provider, entities []model.Entity, st *Stats) ([]model.EntityMetric, error) {
	pool := worker.NewPool(c.batchSize, worker.WithPageSize(c.pageSize), worker.WithLogger(c.logger))
	out := make([]model.EntityMetric, 0, len(entities))

	for i := 0; i < len(entities); i += c.batchSize {
		if i > 0 {
			if err := pause(ctx, c.batchDelay); err != nil {
				return nil, err
			}
		}
		batch := entities[i:min(i+c.batchSize, len(entities))]
		for _, o := range pool.Run(ctx, p, batch) {
			switch {
			case o.Err != nil:
				st.FetchFailed++
				countRateLimit(o.Err, st)
				metrics.RecordErrorByComponent("collector", "fetch_entity")
				c.logger.Debug(ctx, "dropping entity for this cycle",
					logger.String("entity_id", o.Entity.ID),
					logger.String("name", o.Entity.Name),
					logger.Error(o.Err),
				)
			case len(o.Broadcasts) == 0:
				st.Empty++
			default:
				st.Fetched++
				out = append(out, model.NewEntityMetric(o.Entity, o.Broadcasts))
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func countRateLimit(err error, st *Stats) {
	if upstream.IsRateLimited(err) {
		st.RateLimited++
	}
}

func uniqueByID(ctx context.Context, in []model.Entity) []model.Entity {
	seen := dedupe.NewInMemoryDeduper()
	out := in[:0:0]
	for _, e := range in {
		if e.ID == "" || seen.SeenAndRecord(ctx, e.ID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
