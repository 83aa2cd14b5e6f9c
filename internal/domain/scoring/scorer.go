package scoring

import (
	"github.com/okian/streamscout/internal/domain/model"
)

// Default filter and artwork settings.
const (
	defaultMaxViewers   = 15000
	defaultMaxDominance = 0.70
	defaultArtWidth     = 285
	defaultArtHeight    = 380
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights replaces the blend weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w.Validate() == nil {
			s.weights = w
		}
	}
}

// WithMaxViewers sets the total-viewer ceiling above which a market is too large.
func WithMaxViewers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.maxViewers = n
		}
	}
}

// WithMaxDominance sets the top-broadcast share above which an entity is dropped.
func WithMaxDominance(ratio float64) Option {
	return func(s *Scorer) {
		if ratio > 0 && ratio <= 1 {
			s.maxDominance = ratio
		}
	}
}

// WithBoxArtSize sets the artwork dimensions substituted into templates.
func WithBoxArtSize(width, height int) Option {
	return func(s *Scorer) {
		if width > 0 && height > 0 {
			s.artWidth, s.artHeight = width, height
		}
	}
}

// Scorer applies the disqualification filters and the scoring curves.
// It is immutable after construction and safe for concurrent use.
type Scorer struct {
	weights      Weights
	maxViewers   int
	maxDominance float64
	artWidth     int
	artHeight    int
}

// NewScorer creates a Scorer with the given options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights:      DefaultWeights(),
		maxViewers:   defaultMaxViewers,
		maxDominance: defaultMaxDominance,
		artWidth:     defaultArtWidth,
		artHeight:    defaultArtHeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the blend weights in use.
func (s *Scorer) Weights() Weights { return s.weights }

// Result pairs the unranked opportunity with its breakdown.
type Result struct {
	Opportunity model.Opportunity
	Breakdown   Breakdown
}

// Score evaluates one entity. Filters run in order and the first match wins:
// no audience, market too large, then dominance.
func (s *Scorer) Score(m model.EntityMetric) (Result, error) { //nolint:gocritic // metric is read-only
	total := m.TotalViewers()
	channels := m.Channels()

	if total <= 0 || channels == 0 {
		return Result{}, ErrNoAudience
	}
	if total > s.maxViewers {
		return Result{}, ErrMarketTooLarge
	}
	if float64(m.TopViewers())/float64(total) > s.maxDominance {
		return Result{}, ErrDominated
	}

	b := Compute(total, channels, s.weights)
	tier := TierFor(b.Overall)

	return Result{
		Breakdown: b,
		Opportunity: model.Opportunity{
			GameID:          m.ID,
			GameName:        m.Name,
			BoxArtURL:       BoxArt(m.BoxArtURL, s.artWidth, s.artHeight),
			TotalViewers:    total,
			Channels:        channels,
			AvgViewers:      b.AvgViewers,
			Discoverability: b.Discoverability,
			Viability:       b.Viability,
			Engagement:      b.Engagement,
			Overall:         b.Overall,
			Tier:            string(tier),
			Recommendation:  tier.Recommendation(),
			Trend:           tier.Trend(),
			PurchaseLinks:   PurchaseLinks(m.Name),
		},
	}, nil
}

// ScoreAll scores every metric, keeping input order and reporting
// disqualifications through onDrop (which may be nil).
func (s *Scorer) ScoreAll(metrics []model.EntityMetric, onDrop func(model.EntityMetric, error)) []model.Opportunity {
	out := make([]model.Opportunity, 0, len(metrics))
	for i := range metrics {
		r, err := s.Score(metrics[i])
		if err != nil {
			if onDrop != nil {
				onDrop(metrics[i], err)
			}
			continue
		}
		out = append(out, r.Opportunity)
	}
	return out
}
