package scoring

import (
	"fmt"
	"math"
)

const weightTolerance = 1e-9

// Weights blends the three sub-scores into the overall score.
type Weights struct {
	Discoverability float64
	Viability       float64
	Engagement      float64
}

// DefaultWeights is 0.45 / 0.35 / 0.20.
func DefaultWeights() Weights {
	return Weights{Discoverability: 0.45, Viability: 0.35, Engagement: 0.20}
}

// NewWeights validates and returns a weight set.
func NewWeights(discoverability, viability, engagement float64) (Weights, error) {
	w := Weights{Discoverability: discoverability, Viability: viability, Engagement: engagement}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Validate checks non-negativity and that the weights sum to 1.
func (w Weights) Validate() error {
	if w.Discoverability < 0 || w.Viability < 0 || w.Engagement < 0 {
		return ErrInvalidWeights
	}
	if sum := w.Discoverability + w.Viability + w.Engagement; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: got %.6f", ErrInvalidWeights, sum)
	}
	return nil
}

func (w Weights) blend(disc, viab, eng float64) float64 {
	return w.Discoverability*disc + w.Viability*viab + w.Engagement*eng
}
