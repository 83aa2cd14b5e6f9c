// Package model contains domain models passed between layers.
package model

import "sort"

// Entity is a catalog item (a game) evaluated for broadcasting opportunity.
type Entity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url,omitempty"` // upstream template with {width}/{height}
}

// Broadcast is one live channel for an entity.
type Broadcast struct {
	ID          string
	UserName    string
	ViewerCount int
}

// EntityMetric is the per-cycle audience picture of one entity.
// Viewers is sorted descending.
type EntityMetric struct {
	Entity
	Viewers []int
}

// NewEntityMetric builds a metric from raw broadcasts, ordering viewer
// counts descending. Negative counts are clamped to zero.
func NewEntityMetric(e Entity, broadcasts []Broadcast) EntityMetric {
	viewers := make([]int, len(broadcasts))
	for i, b := range broadcasts {
		if b.ViewerCount > 0 {
			viewers[i] = b.ViewerCount
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(viewers)))
	return EntityMetric{Entity: e, Viewers: viewers}
}

// TotalViewers sums viewers across all broadcasts.
func (m EntityMetric) TotalViewers() int {
	total := 0
	for _, v := range m.Viewers {
		total += v
	}
	return total
}

// Channels is the number of live broadcasts.
func (m EntityMetric) Channels() int { return len(m.Viewers) }

// TopViewers is the largest single broadcast, 0 when there is none.
func (m EntityMetric) TopViewers() int {
	if len(m.Viewers) == 0 {
		return 0
	}
	return m.Viewers[0]
}
