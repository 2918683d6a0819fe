package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/selivandex/news-pulse/pkg/models"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Federal Reserve", "federal-reserve"},
		{"M&A", "m-a"},
		{"  S&P 500!! ", "s-p-500"},
		{"AI/ML -- chips", "ai-ml-chips"},
		{"Bitcoin", "bitcoin"},
		{"Société Générale", "soci-t-g-n-rale"},
		{"!!!", ""},
		{"", ""},
		{"IPO Heat", "ipo-heat-topic"},
		{"IPO", "ipo"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeKey(tt.in))
		})
	}
}

func TestIsIPORelated(t *testing.T) {
	tests := []struct {
		name     string
		topics   []string
		headline string
		summary  string
		expected bool
	}{
		{"headline only", []string{"Startups"}, "Startup Preps IPO", "", true},
		{"topic", []string{"IPO Market"}, "", "", true},
		{"summary lowercase", nil, "", "plans an ipo next year", true},
		{"substring inside word", nil, "Shares of Hipolito jump", "", true},
		{"none", []string{"Fed"}, "Rates hold", "Nothing to see", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsIPORelated(tt.topics, tt.headline, tt.summary))
		})
	}
}

func TestHeatLevelFor(t *testing.T) {
	assert.Equal(t, models.HeatLow, HeatLevelFor(0))
	assert.Equal(t, models.HeatLow, HeatLevelFor(5))
	assert.Equal(t, models.HeatMedium, HeatLevelFor(6))
	assert.Equal(t, models.HeatMedium, HeatLevelFor(10))
	assert.Equal(t, models.HeatHigh, HeatLevelFor(11))
}

func TestTally(t *testing.T) {
	tally := NewTally()
	tally.Add("Fed")
	tally.Add("Oil")
	tally.Add("fed")
	tally.Add("???")
	tally.AddIPOHeat(0)
	tally.AddIPOHeat(2)
	tally.Add("IPO Heat")

	assert.Equal(t, []models.TopicIncrement{
		{Key: "fed", Topic: "Fed", Amount: 2},
		{Key: "oil", Topic: "Oil", Amount: 1},
		{Key: IPOHeatKey, Topic: IPOHeatName, Amount: 2},
		{Key: "ipo-heat-topic", Topic: "IPO Heat", Amount: 1},
	}, tally.Increments())
}
