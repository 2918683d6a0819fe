package sentiment

import (
	"math"
	"time"

	"github.com/selivandex/news-pulse/pkg/models"
)

// Label thresholds are strict: a score of exactly ±0.5 is Neutral
const (
	BullishThreshold = 0.5
	BearishThreshold = -0.5
)

// Score dampens the average sentiment by ln(1+n) so a handful of articles
// moves the pulse less than many
func Score(sentiments []models.Sentiment) float64 {
	if len(sentiments) == 0 {
		return 0
	}

	var sum float64
	for _, s := range sentiments {
		sum += float64(s)
	}

	n := float64(len(sentiments))
	return (sum / n) * math.Log1p(n)
}

// LabelFor maps a pulse score to its label
func LabelFor(score float64) models.PulseLabel {
	switch {
	case score > BullishThreshold:
		return models.PulseBullish
	case score < BearishThreshold:
		return models.PulseBearish
	default:
		return models.PulseNeutral
	}
}

// ComputePulse builds the market pulse of one run. It returns nil for an empty
// run, in which case the stored pulse must be left untouched.
func ComputePulse(sentiments []models.Sentiment, now time.Time) *models.MarketPulse {
	if len(sentiments) == 0 {
		return nil
	}

	score := Score(sentiments)
	return &models.MarketPulse{
		Score:        score,
		Label:        LabelFor(score),
		BasedOnCount: len(sentiments),
		UpdatedAt:    now,
	}
}
