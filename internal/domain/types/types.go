// Package types contains the response shapes served by the read surface.
package types

import (
	"math"
	"time"

	"github.com/okian/streamscout/internal/domain/model"
)

// Response status values.
const (
	StatusWarmingUp         = "warming_up"
	StatusRefreshStarted    = "refresh_started"
	StatusAlreadyRefreshing = "already_refreshing"
	StatusHealthy           = "healthy"
	StatusOnline            = "online"
	StatusError             = "error"
)

// Opportunity is the presentation form of model.Opportunity: scores rounded
// to 3 places and average viewers to 1.
type Opportunity struct {
	Rank            int                 `json:"rank"`
	GameName        string              `json:"game_name"`
	GameID          string              `json:"game_id"`
	TotalViewers    int                 `json:"total_viewers"`
	Channels        int                 `json:"channels"`
	AvgViewers      float64             `json:"avg_viewers_per_channel"`
	Discoverability float64             `json:"discoverability_score"`
	Viability       float64             `json:"viability_score"`
	Engagement      float64             `json:"engagement_score"`
	Overall         float64             `json:"overall_score"`
	Recommendation  string              `json:"recommendation"`
	Trend           string              `json:"trend"`
	PurchaseLinks   model.PurchaseLinks `json:"purchase_links"`
	BoxArtURL       string              `json:"box_art_url,omitempty"`
}

// AnalyzeResponse is returned by the analyze read once a snapshot exists.
type AnalyzeResponse struct {
	Timestamp              time.Time     `json:"timestamp"`
	TotalGamesAnalyzed     int           `json:"total_games_analyzed"`
	TopOpportunities       []Opportunity `json:"top_opportunities"`
	RefreshIntervalMinutes float64       `json:"refresh_interval_minutes"`
	FetchDurationSeconds   float64       `json:"fetch_duration_seconds"`
	RefreshCount           int64         `json:"refresh_count"`
	CacheAgeSeconds        int64         `json:"cache_age_seconds"`
	NextRefreshInSeconds   int64         `json:"next_refresh_in_seconds"`
	IsRefreshing           bool          `json:"is_refreshing"`
	LastError              string        `json:"last_error,omitempty"`
}

// WarmingUp is returned when no snapshot has ever been published.
type WarmingUp struct {
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	IsRefreshing bool      `json:"is_refreshing"`
	Timestamp    time.Time `json:"timestamp"`
}

// RefreshAck answers a force-refresh request.
type RefreshAck struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Health is the liveness document.
type Health struct {
	Status              string    `json:"status"`
	CacheActive         bool      `json:"cache_active"`
	CacheAgeSeconds     *int64    `json:"cache_age_seconds"`
	IsRefreshing        bool      `json:"is_refreshing"`
	RefreshCount        int64     `json:"refresh_count"`
	LastRefreshDuration *float64  `json:"last_refresh_duration"`
	LastError           *string   `json:"last_error"`
	Leader              bool      `json:"leader"`
	Timestamp           time.Time `json:"timestamp"`
}

// CacheStatus is the cache block of StatusReport.
type CacheStatus struct {
	HasData             bool     `json:"has_data"`
	AgeSeconds          *int64   `json:"age_seconds"`
	NextRefreshSeconds  int64    `json:"next_refresh_seconds"`
	TotalRefreshes      int64    `json:"total_refreshes"`
	LastDurationSeconds *float64 `json:"last_duration_seconds"`
}

// WorkerStatus is the worker block of StatusReport.
type WorkerStatus struct {
	IsRefreshing    bool    `json:"is_refreshing"`
	IntervalMinutes float64 `json:"interval_minutes"`
	LastError       *string `json:"last_error"`
	Leader          bool    `json:"leader"`
	CycleID         string  `json:"cycle_id,omitempty"`
}

// StatusReport is the diagnostic document.
type StatusReport struct {
	Service      string       `json:"service"`
	Version      string       `json:"version"`
	Architecture string       `json:"architecture"`
	Cache        CacheStatus  `json:"cache"`
	Worker       WorkerStatus `json:"worker"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Present converts a scored opportunity into its rounded wire form.
func Present(o model.Opportunity) Opportunity { //nolint:gocritic // value semantics keep snapshots immutable
	return Opportunity{
		Rank:            o.Rank,
		GameName:        o.GameName,
		GameID:          o.GameID,
		TotalViewers:    o.TotalViewers,
		Channels:        o.Channels,
		AvgViewers:      Round(o.AvgViewers, 1),
		Discoverability: Round(o.Discoverability, 3),
		Viability:       Round(o.Viability, 3),
		Engagement:      Round(o.Engagement, 3),
		Overall:         Round(o.Overall, 3),
		Recommendation:  o.Recommendation,
		Trend:           o.Trend,
		PurchaseLinks:   o.PurchaseLinks,
		BoxArtURL:       o.BoxArtURL,
	}
}

// PresentAll maps Present over a ranked slice.
func PresentAll(in []model.Opportunity) []Opportunity {
	out := make([]Opportunity, len(in))
	for i := range in {
		out[i] = Present(in[i])
	}
	return out
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Seconds converts a duration to whole seconds.
func Seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
