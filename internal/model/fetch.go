package model

import "time"

// Outcome describes how a fetch was resolved.
type Outcome string

const (
	OutcomeHit      Outcome = "hit"      // served from the cache file
	OutcomeMiss     Outcome = "miss"     // no cache file, fetched remotely
	OutcomeRefresh  Outcome = "refresh"  // caller forced a remote fetch
	OutcomeFallback Outcome = "fallback" // cache file unreadable, fetched remotely
	OutcomeFailed   Outcome = "failed"
)

// FetchRecord is one entry in the fetch history.
type FetchRecord struct {
	ID         string    `json:"id"`
	QueryName  string    `json:"query_name"`
	QueryKey   string    `json:"query_key"`
	CachePath  string    `json:"cache_path"`
	Outcome    Outcome   `json:"outcome"`
	RowCount   int       `json:"row_count"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}
