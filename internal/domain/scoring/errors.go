package scoring

import (
	"errors"
	"fmt"
)

// ErrDisqualified is wrapped by every disqualification reason.
var ErrDisqualified = errors.New("disqualified")

// Disqualification reasons.
var (
	ErrMarketTooLarge = fmt.Errorf("%w: market too large", ErrDisqualified)
	ErrDominated      = fmt.Errorf("%w: single broadcaster dominance", ErrDisqualified)
	ErrNoAudience     = fmt.Errorf("%w: no live audience", ErrDisqualified)
)

// ErrInvalidWeights is returned by NewWeights when weights do not sum to 1.
var ErrInvalidWeights = errors.New("scoring weights must be non-negative and sum to 1.0")

// Reason maps a disqualification error to a short metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMarketTooLarge):
		return "market_too_large"
	case errors.Is(err, ErrDominated):
		return "dominated"
	case errors.Is(err, ErrNoAudience):
		return "no_audience"
	default:
		return "unknown"
	}
}
