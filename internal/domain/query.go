package domain

import "time"

// RecordOrder selects the sort column for record queries.
type RecordOrder string

const (
	OrderByCollected  RecordOrder = "collected_at"
	OrderByEngagement RecordOrder = "engagement_score"
)

// RecordFilter narrows and orders record queries. Zero values mean
// "no constraint".
type RecordFilter struct {
	Source          string
	MinRelevance    int
	Search          string
	CollectedSince  time.Time
	CollectedBefore time.Time
	OrderBy         RecordOrder
	Limit           int
}

// SourceStats summarizes stored volume and freshness for one source.
type SourceStats struct {
	Source            string     `json:"source"`
	Count             int        `json:"count"`
	LastCollectedAt   *time.Time `json:"last_collected_at"`
	LatestPublishedAt *time.Time `json:"latest_published_at"`
	CountLast24h      int        `json:"records_last_24h"`
}
