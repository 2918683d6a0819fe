package models

import "time"

// RunState is the phase an ingestion run is in
type RunState string

const (
	RunFetching      RunState = "fetching"
	RunDeduplicating RunState = "deduplicating"
	RunEnriching     RunState = "enriching"
	RunAggregating   RunState = "aggregating"
	RunCommitting    RunState = "committing"
	RunDone          RunState = "done"
	RunFailed        RunState = "failed"
)

// RunReport summarizes one ingestion run
type RunReport struct {
	StartedAt   time.Time     `json:"startedAt"`
	Pulse       *MarketPulse  `json:"pulse,omitempty"`
	RunID       string        `json:"runId"`
	State       RunState      `json:"state"`
	ArticleIDs  []string      `json:"articleIds"`
	Fetched     int           `json:"fetched"`
	Duplicates  int           `json:"duplicates"`
	Enriched    int           `json:"enriched"`
	Fallbacks   int           `json:"fallbacks"`
	IPOMentions int64         `json:"ipoMentions"`
	Duration    time.Duration `json:"duration"`
}

// Committed reports whether the run wrote anything
func (r *RunReport) Committed() bool {
	return r != nil && r.State == RunDone && r.Enriched > 0
}
