package scoring

import (
	"sort"

	"github.com/okian/streamscout/internal/domain/model"
)

// Rank sorts opportunities by full-precision overall score descending,
// keeping input order among equal scores, and assigns ranks 1..N.
// The input slice is not modified.
func Rank(in []model.Opportunity) []model.Opportunity {
	out := make([]model.Opportunity, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Overall > out[j].Overall
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
