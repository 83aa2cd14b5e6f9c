// Package scoring turns raw audience numbers into ranked opportunities.
//
// Everything here is pure: no clock, no network, no shared state. The same
// (viewers, channels) pair always yields the same Breakdown.
package scoring

import "math"

// Curve constants.
const (
	channelSaturation = 500.0
	discoverFloor     = 0.3

	viabilityLowAvg   = 10.0
	viabilityMidAvg   = 50.0
	viabilityHighAvg  = 500.0
	viabilityFloor    = 0.3
	viabilityLowScore = 0.5
	viabilityMidScore = 0.8

	engagementFullAvg = 100.0
	engagementMidAvg  = 50.0
	engagementLowAvg  = 20.0
	engagementFloor   = 0.2
)

// Breakdown holds the full-precision sub-scores for one entity.
type Breakdown struct {
	AvgViewers      float64
	Discoverability float64
	Viability       float64
	Engagement      float64
	Overall         float64
}

// Compute scores a (viewers, channels) pair. Either being zero (or negative)
// yields an all-zero Breakdown.
func Compute(viewers, channels int, w Weights) Breakdown {
	if viewers <= 0 || channels <= 0 {
		return Breakdown{}
	}
	avg := float64(viewers) / float64(channels)
	disc := Discoverability(channels)
	viab := Viability(avg)
	eng := Engagement(avg)
	return Breakdown{
		AvgViewers:      avg,
		Discoverability: disc,
		Viability:       viab,
		Engagement:      eng,
		Overall:         clamp01(w.blend(disc, viab, eng)),
	}
}

// Discoverability penalizes crowded categories.
func Discoverability(channels int) float64 {
	if channels <= 0 {
		return 0
	}
	penalty := math.Min(float64(channels)/channelSaturation, 1.0)
	return clamp01(math.Max(discoverFloor, 1.0-penalty))
}

// Viability rewards a healthy average audience per channel.
func Viability(avg float64) float64 {
	var v float64
	switch {
	case avg <= 0:
		return 0
	case avg < viabilityLowAvg:
		v = viabilityFloor
	case avg < viabilityMidAvg:
		v = viabilityLowScore + ((avg-viabilityLowAvg)/40)*0.3
	case avg <= viabilityHighAvg:
		v = viabilityMidScore + ((viabilityHighAvg-avg)/450)*0.2
	default:
		v = math.Max(viabilityFloor, viabilityMidScore-math.Max(0.15-(avg-viabilityHighAvg)/1000, 0.01))
	}
	return clamp01(v)
}

// Engagement rewards larger average audiences, saturating at 100.
func Engagement(avg float64) float64 {
	var e float64
	switch {
	case avg <= 0:
		return 0
	case avg >= engagementFullAvg:
		e = 1.0
	case avg >= engagementMidAvg:
		e = 0.6 + ((avg-engagementMidAvg)/50)*0.4
	case avg >= engagementLowAvg:
		e = 0.4 + ((avg-engagementLowAvg)/30)*0.2
	default:
		e = math.Max(engagementFloor, avg/50)
	}
	return clamp01(e)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
