package scoring

// Tier names an overall-score band.
type Tier string

// Tiers from best to worst.
const (
	TierExcellent   Tier = "excellent"
	TierGood        Tier = "good"
	TierModerate    Tier = "moderate"
	TierChallenging Tier = "challenging"
	TierSaturated   Tier = "saturated"
)

// TierFor classifies a full-precision overall score.
func TierFor(overall float64) Tier {
	switch {
	case overall >= 0.80:
		return TierExcellent
	case overall >= 0.65:
		return TierGood
	case overall >= 0.50:
		return TierModerate
	case overall >= 0.35:
		return TierChallenging
	default:
		return TierSaturated
	}
}

// Recommendation is the human label shown for a tier.
func (t Tier) Recommendation() string {
	switch t {
	case TierExcellent:
		return "🔥 EXCELLENT OPPORTUNITY"
	case TierGood:
		return "✅ GOOD OPPORTUNITY"
	case TierModerate:
		return "⚠️ MODERATE OPPORTUNITY"
	case TierChallenging:
		return "🔻 CHALLENGING"
	default:
		return "❌ HIGHLY SATURATED"
	}
}

// Trend is the directional glyph for a tier.
func (t Tier) Trend() string {
	switch t {
	case TierExcellent:
		return "⬆️"
	case TierGood:
		return "↗️"
	case TierModerate:
		return "➡️"
	case TierChallenging:
		return "↘️"
	default:
		return "⬇️"
	}
}
