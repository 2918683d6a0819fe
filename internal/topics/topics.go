// Package topics normalizes topic strings into storage keys and detects IPO attention.
package topics

import (
	"strings"
	"unicode"

	"github.com/selivandex/news-pulse/pkg/models"
)

// IPOHeatKey is the reserved counter of IPO-related mentions
const IPOHeatKey = "ipo-heat"

// IPOHeatName is the display name of the reserved counter
const IPOHeatName = "IPO Heat"

// ipoHeatAlias is where an extracted topic that would collide with IPOHeatKey is counted
const ipoHeatAlias = IPOHeatKey + "-topic"

// Heat level bounds, exclusive
const (
	heatHighAbove   = 10
	heatMediumAbove = 5
)

// NormalizeKey lowercases topic and collapses every run of characters other
// than ASCII letters and digits into a single "-", trimmed at both ends.
// An extracted topic that normalizes to the reserved IPO key is moved aside.
func NormalizeKey(topic string) string {
	var b strings.Builder
	b.Grow(len(topic))

	pendingSep := false
	for _, r := range strings.ToLower(topic) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}

	key := b.String()
	if key == IPOHeatKey {
		return ipoHeatAlias
	}
	return key
}

// IsIPORelated reports whether "ipo" occurs, case-insensitively and as a plain
// substring, in any topic, the headline or the raw summary
func IsIPORelated(topics []string, headline, summary string) bool {
	for _, t := range topics {
		if containsIPO(t) {
			return true
		}
	}
	return containsIPO(headline) || containsIPO(summary)
}

func containsIPO(s string) bool {
	return strings.Contains(strings.ToLower(s), "ipo")
}

// HeatLevelFor buckets an IPO heat frequency
func HeatLevelFor(frequency int64) models.HeatLevel {
	switch {
	case frequency > heatHighAbove:
		return models.HeatHigh
	case frequency > heatMediumAbove:
		return models.HeatMedium
	default:
		return models.HeatLow
	}
}

// Tally sums topic mentions into one increment per key, in first-seen order.
// Topics that normalize to an empty key are dropped.
type Tally struct {
	index map[string]int
	incs  []models.TopicIncrement
}

// NewTally creates an empty tally
func NewTally() *Tally {
	return &Tally{index: make(map[string]int)}
}

// Add counts one mention of topic
func (t *Tally) Add(topic string) {
	key := NormalizeKey(topic)
	if key == "" {
		return
	}
	t.add(key, strings.TrimSpace(topic), 1)
}

// AddIPOHeat counts n IPO-related articles
func (t *Tally) AddIPOHeat(n int64) {
	if n <= 0 {
		return
	}
	t.add(IPOHeatKey, IPOHeatName, n)
}

func (t *Tally) add(key, display string, n int64) {
	if i, ok := t.index[key]; ok {
		t.incs[i].Amount += n
		return
	}
	t.index[key] = len(t.incs)
	t.incs = append(t.incs, models.TopicIncrement{Key: key, Topic: display, Amount: n})
}

// Increments returns the summed increments
func (t *Tally) Increments() []models.TopicIncrement {
	out := make([]models.TopicIncrement, len(t.incs))
	copy(out, t.incs)
	return out
}
