// Package worker runs per-entity broadcast fetches concurrently with a
// bounded number of workers.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/logger"
)

const (
	defaultPoolSize = 10
	defaultPageSize = 100
)

// Fetcher lists live broadcasts for one entity.
type Fetcher interface {
	ListBroadcasts(ctx context.Context, entityID string, limit int) ([]model.Broadcast, error)
}

// Outcome is the result of fetching one entity. Err is set when the fetch
// failed; Broadcasts is then nil.
type Outcome struct {
	Entity     model.Entity
	Broadcasts []model.Broadcast
	Err        error
	Took       time.Duration
}

type job struct {
	index  int
	entity model.Entity
}

// Pool fans fetches out to at most size workers.
type Pool struct {
	size     int
	pageSize int
	name     string
	logger   logger.Logger
}

// NewPool creates a pool with the given worker count.
func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = defaultPoolSize
	}
	p := &Pool{
		size:     size,
		pageSize: defaultPageSize,
		name:     "fetch-pool",
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the worker count.
func (p *Pool) Size() int { return p.size }

// Run fetches every entity and returns outcomes in input order. It returns
// only after all fetches finished. A failing or panicking fetch fills its
// own outcome and never cancels its siblings.
func (p *Pool) Run(ctx context.Context, f Fetcher, entities []model.Entity) []Outcome {
	out := make([]Outcome, len(entities))
	if len(entities) == 0 {
		return out
	}

	jobs := make(chan job)
	workers := min(p.size, len(entities))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		w := &fetchWorker{
			fetcher:  f,
			pageSize: p.pageSize,
			logger:   p.logger.Named(p.name + "-" + strconv.Itoa(i)),
		}
		go func() {
			defer wg.Done()
			w.run(ctx, jobs, out)
		}()
	}

	for i, e := range entities {
		jobs <- job{index: i, entity: e}
	}
	close(jobs)
	wg.Wait()

	return out
}

// fetchWorker drains jobs until the channel closes.
type fetchWorker struct {
	fetcher  Fetcher
	pageSize int
	logger   logger.Logger
}

func (w *fetchWorker) run(ctx context.Context, jobs <-chan job, out []Outcome) {
	for j := range jobs {
		out[j.index] = w.fetch(ctx, j.entity)
	}
}

func (w *fetchWorker) fetch(ctx context.Context, e model.Entity) (o Outcome) {
	start := time.Now()
	o.Entity = e
	defer func() {
		if r := recover(); r != nil {
			o.Broadcasts = nil
			o.Err = fmt.Errorf("fetch %s panicked: %v", e.ID, r)
		}
		o.Took = time.Since(start)
		if o.Err != nil {
			w.logger.Debug(ctx, "broadcast fetch failed",
				logger.String("entity_id", e.ID),
				logger.Error(o.Err),
			)
		}
	}()

	o.Broadcasts, o.Err = w.fetcher.ListBroadcasts(ctx, e.ID, w.pageSize)
	if o.Err != nil {
		o.Broadcasts = nil
	}
	return o
}
