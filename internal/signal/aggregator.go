// Package signal turns advisor recommendations into trade candidates.
//
// The aggregator merges the ranked pick list with the primary pick,
// deduplicates by ticker, drops anything without a current price, and splits
// the result into new-entry buys and reinforcement holds.
package signal

import (
	"sort"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

// Config holds the aggregation thresholds.
type Config struct {
	MaxCandidates       int     // bound on the merged candidate set
	MinConfidence       float64 // floor for BUY candidates
	ReinforceConfidence float64 // floor for HOLD reinforcement
}

// Aggregator builds per-cycle candidate sets from recommendations.
type Aggregator struct {
	cfg Config
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	return &Aggregator{cfg: cfg}
}

// CandidateSet is the aggregation result for one cycle.
type CandidateSet struct {
	Buy       []model.Candidate // new entries, confidence-sorted
	Reinforce []model.Candidate // existing positions to top up
}

// Aggregate merges rec into a deduplicated candidate set.
//
// prices is the cycle's atomic price map; candidates without a price are
// dropped. held reports whether a ticker has an open position — only held
// tickers qualify for HOLD reinforcement.
func (a *Aggregator) Aggregate(rec *model.Recommendation, prices map[string]float64, held func(ticker string) bool) CandidateSet {
	if rec == nil {
		return CandidateSet{}
	}

	merged := make([]model.Candidate, 0, len(rec.TopPicks)+1)
	seen := make(map[string]bool, len(rec.TopPicks)+1)

	add := func(ticker string, action model.Action, confidence float64) {
		if ticker == "" || seen[ticker] {
			return
		}
		if _, ok := prices[ticker]; !ok {
			return // stale or undiscoverable price never allocates
		}
		seen[ticker] = true
		merged = append(merged, model.Candidate{
			Ticker:     ticker,
			Action:     action,
			Confidence: confidence,
		})
	}

	// Ranked list first, then the primary pick if absent.
	for _, pick := range rec.TopPicks {
		add(pick.Ticker, pick.Action, pick.Confidence)
	}
	add(rec.TopPick, rec.Action, rec.Confidence)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	if len(merged) > a.cfg.MaxCandidates {
		merged = merged[:a.cfg.MaxCandidates]
	}

	var set CandidateSet
	for _, c := range merged {
		switch {
		case c.Action == model.ActionBuy && c.Confidence >= a.cfg.MinConfidence:
			set.Buy = append(set.Buy, c)
		case c.Action == model.ActionHold && c.Confidence >= a.cfg.ReinforceConfidence && held(c.Ticker):
			set.Reinforce = append(set.Reinforce, c)
		}
	}
	return set
}
