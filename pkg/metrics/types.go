package metrics

import "time"

// IngestionRunMetric is one row per ingestion run
type IngestionRunMetric struct {
	Timestamp   time.Time
	RunID       string
	State       string
	PulseLabel  string
	Fetched     int
	Duplicates  int
	Enriched    int
	Fallbacks   int
	IPOMentions int64
	PulseScore  float64
	DurationMs  int64
}

func (m *IngestionRunMetric) TableName() string {
	return "ingestion_runs"
}

func (m *IngestionRunMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.RunID,
		m.State,
		uint32(m.Fetched),
		uint32(m.Duplicates),
		uint32(m.Enriched),
		uint32(m.Fallbacks),
		uint32(m.IPOMentions),
		m.PulseScore,
		m.PulseLabel,
		uint64(m.DurationMs),
	}
}

// AICallMetric tracks a single text-generation request
type AICallMetric struct {
	Timestamp  time.Time
	Provider   string
	Operation  string // extract | explain
	Failure    string // empty on success
	DurationMs int64
	Success    bool
}

func (m *AICallMetric) TableName() string {
	return "ai_calls"
}

func (m *AICallMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.Provider,
		m.Operation,
		m.Success,
		m.Failure,
		uint64(m.DurationMs),
	}
}
