package model

import "time"

// Action represents an advisor trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionHold Action = "HOLD"
	ActionSell Action = "SELL"
)

// Pick is one ranked entry of an advisor recommendation.
type Pick struct {
	Ticker     string  `json:"ticker"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Recommendation is the advisor output document consumed each cycle.
// It is produced by an external analysis process and read via the feed.
type Recommendation struct {
	Timestamp  time.Time          `json:"timestamp"`
	Sentiment  string             `json:"sentiment"` // positive, neutral, negative
	TopPick    string             `json:"top_pick"`
	Action     Action             `json:"action"`
	Reason     string             `json:"reason"`
	Confidence float64            `json:"confidence"`
	TopPicks   []Pick             `json:"top_picks"`
	Prices     map[string]float64 `json:"prices"` // ticker → last price
}

// Candidate is a deduplicated, price-backed trade candidate for one cycle.
// Candidates are transient: built by the aggregator, consumed by the
// allocator, never persisted.
type Candidate struct {
	Ticker     string
	Action     Action
	Confidence float64
}
