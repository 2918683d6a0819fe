package models

// TopicIncrement is an additive change to one topic counter.
// Amounts for the same key within a batch are summed before commit.
type TopicIncrement struct {
	Key    string `json:"key"`
	Topic  string `json:"topic"`
	Amount int64  `json:"amount"`
}

// IngestBatch is everything a single ingestion run writes; it is committed atomically
type IngestBatch struct {
	Pulse    *MarketPulse
	Articles []Article
	Topics   []TopicIncrement
}

// IsEmpty reports whether committing the batch would change nothing
func (b *IngestBatch) IsEmpty() bool {
	return b == nil || (len(b.Articles) == 0 && len(b.Topics) == 0 && b.Pulse == nil)
}
