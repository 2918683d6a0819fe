package models

import "time"

// MarketPulseKey is the only key the market pulse singleton is stored under
const MarketPulseKey = "latest"

// TopicStat is the cumulative mention counter of one normalized topic
type TopicStat struct {
	LastUpdated time.Time `json:"lastUpdated" db:"last_updated"`
	Key         string    `json:"id" db:"topic_key"`
	Topic       string    `json:"topic" db:"topic"`
	Frequency   int64     `json:"frequency" db:"frequency"`
}

// PulseLabel is the coarse reading of a pulse score
type PulseLabel string

const (
	PulseBullish PulseLabel = "Bullish"
	PulseNeutral PulseLabel = "Neutral"
	PulseBearish PulseLabel = "Bearish"
)

// MarketPulse is the composite sentiment of the latest run's new articles
type MarketPulse struct {
	UpdatedAt    time.Time  `json:"updatedAt"`
	Label        PulseLabel `json:"label"`
	Score        float64    `json:"score"`
	BasedOnCount int        `json:"basedOnCount"`
}

// HeatLevel buckets the IPO heat counter for display
type HeatLevel string

const (
	HeatLow    HeatLevel = "Low"
	HeatMedium HeatLevel = "Medium"
	HeatHigh   HeatLevel = "High"
)

// IPOHeat is the IPO attention counter together with its display bucket
type IPOHeat struct {
	Stat  TopicStat `json:"stat"`
	Level HeatLevel `json:"level"`
}
