// Package analytics records what users search for and how the index
// changes: a Collector buffers events off the request path, an Aggregator
// keeps rolling statistics in memory, and a Store snapshots them to
// Postgres.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventIndex      EventType = "index"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent describes one index mutation. Op is reindex, update, or
// remove; Source says what triggered it (api, watcher, kafka, cli).
type IndexEvent struct {
	Type      EventType `json:"type"`
	Op        string    `json:"op"`
	Source    string    `json:"source"`
	Path      string    `json:"path"`
	Files     int       `json:"files"`
	Symbols   int       `json:"symbols"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}
