package sentiment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/news-pulse/pkg/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		sentiments []models.Sentiment
		expected   float64
	}{
		{"mixed run", []models.Sentiment{1, 1, -1, 0}, 0.25 * math.Log(5)},
		{"single bullish article", []models.Sentiment{1}, math.Log(2)},
		{"all bearish", []models.Sentiment{-1, -1, -1}, -math.Log(4)},
		{"all neutral", []models.Sentiment{0, 0}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Score(tt.sentiments), 1e-12)
		})
	}
}

func TestLabelFor(t *testing.T) {
	tests := []struct {
		score    float64
		expected models.PulseLabel
	}{
		{0.5, models.PulseNeutral},
		{-0.5, models.PulseNeutral},
		{0.5000001, models.PulseBullish},
		{-0.5000001, models.PulseBearish},
		{0, models.PulseNeutral},
		{0.402, models.PulseNeutral},
		{2.3, models.PulseBullish},
		{-1.1, models.PulseBearish},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LabelFor(tt.score), "score %v", tt.score)
	}
}

func TestComputePulse(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)

	pulse := ComputePulse([]models.Sentiment{1, 1, -1, 0}, now)
	require.NotNil(t, pulse)
	assert.InDelta(t, 0.402, pulse.Score, 0.001)
	assert.Equal(t, models.PulseNeutral, pulse.Label)
	assert.Equal(t, 4, pulse.BasedOnCount)
	assert.Equal(t, now, pulse.UpdatedAt)

	assert.Nil(t, ComputePulse(nil, now))
}
