package model

// PurchaseLinks points a broadcaster at a store page for the game.
// Steam and Epic are empty for free-to-play titles.
type PurchaseLinks struct {
	Steam string `json:"steam,omitempty"`
	Epic  string `json:"epic,omitempty"`
	Free  bool   `json:"free"`
}

// Opportunity is the scored record for one entity. Scores are kept at full
// precision; rounding belongs to the presentation layer.
type Opportunity struct {
	Rank            int           `json:"rank"`
	GameID          string        `json:"game_id"`
	GameName        string        `json:"game_name"`
	BoxArtURL       string        `json:"box_art_url,omitempty"`
	TotalViewers    int           `json:"total_viewers"`
	Channels        int           `json:"channels"`
	AvgViewers      float64       `json:"avg_viewers_per_channel"`
	Discoverability float64       `json:"discoverability_score"`
	Viability       float64       `json:"viability_score"`
	Engagement      float64       `json:"engagement_score"`
	Overall         float64       `json:"overall_score"`
	Tier            string        `json:"tier"`
	Recommendation  string        `json:"recommendation"`
	Trend           string        `json:"trend"`
	PurchaseLinks   PurchaseLinks `json:"purchase_links"`
}
