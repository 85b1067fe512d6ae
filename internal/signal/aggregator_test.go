package signal

import (
	"testing"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

func testAggregator() *Aggregator {
	return New(Config{MaxCandidates: 5, MinConfidence: 0.5, ReinforceConfidence: 0.8})
}

func noneHeld(string) bool { return false }
func allHeld(string) bool  { return true }

func rec(topPick string, action model.Action, conf float64, picks ...model.Pick) *model.Recommendation {
	return &model.Recommendation{
		TopPick:    topPick,
		Action:     action,
		Confidence: conf,
		TopPicks:   picks,
	}
}

// ────────────────────────────────────────────────────────────
// Merging and dedup
// ────────────────────────────────────────────────────────────

func TestAggregate_PrimaryPickMergedWithRanked(t *testing.T) {
	a := testAggregator()
	prices := map[string]float64{"SBER": 250, "GAZP": 120}

	r := rec("SBER", model.ActionBuy, 0.9,
		model.Pick{Ticker: "GAZP", Action: model.ActionBuy, Confidence: 0.6})

	set := a.Aggregate(r, prices, noneHeld)
	if len(set.Buy) != 2 {
		t.Fatalf("expected 2 buy candidates, got %d: %+v", len(set.Buy), set.Buy)
	}
	// Sorted by confidence descending.
	if set.Buy[0].Ticker != "SBER" || set.Buy[1].Ticker != "GAZP" {
		t.Errorf("wrong order: %+v", set.Buy)
	}
}

func TestAggregate_DuplicateTickerKeepsRankedEntry(t *testing.T) {
	a := testAggregator()
	prices := map[string]float64{"SBER": 250}

	// SBER appears both in the ranked list (0.6) and as the primary pick
	// (0.9). The ranked entry is added first and wins.
	r := rec("SBER", model.ActionBuy, 0.9,
		model.Pick{Ticker: "SBER", Action: model.ActionBuy, Confidence: 0.6})

	set := a.Aggregate(r, prices, noneHeld)
	if len(set.Buy) != 1 {
		t.Fatalf("expected 1 candidate after dedup, got %d", len(set.Buy))
	}
	if set.Buy[0].Confidence != 0.6 {
		t.Errorf("dedup kept wrong entry: %+v", set.Buy[0])
	}
}

func TestAggregate_PricelessCandidateDropped(t *testing.T) {
	a := testAggregator()
	prices := map[string]float64{"SBER": 250} // no GAZP price this cycle

	r := rec("SBER", model.ActionBuy, 0.9,
		model.Pick{Ticker: "GAZP", Action: model.ActionBuy, Confidence: 0.95})

	set := a.Aggregate(r, prices, noneHeld)
	if len(set.Buy) != 1 || set.Buy[0].Ticker != "SBER" {
		t.Errorf("candidate without a price must be dropped: %+v", set.Buy)
	}
}

func TestAggregate_MaxCandidatesBound(t *testing.T) {
	a := New(Config{MaxCandidates: 2, MinConfidence: 0.5})
	prices := map[string]float64{"A": 1, "B": 1, "C": 1}

	r := rec("", "", 0,
		model.Pick{Ticker: "A", Action: model.ActionBuy, Confidence: 0.6},
		model.Pick{Ticker: "B", Action: model.ActionBuy, Confidence: 0.9},
		model.Pick{Ticker: "C", Action: model.ActionBuy, Confidence: 0.7})

	set := a.Aggregate(r, prices, noneHeld)
	if len(set.Buy) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(set.Buy))
	}
	// The two highest-confidence candidates survive.
	if set.Buy[0].Ticker != "B" || set.Buy[1].Ticker != "C" {
		t.Errorf("wrong candidates survived truncation: %+v", set.Buy)
	}
}

// ────────────────────────────────────────────────────────────
// Action and confidence gates
// ────────────────────────────────────────────────────────────

func TestAggregate_ConfidenceFloor(t *testing.T) {
	a := testAggregator()
	prices := map[string]float64{"SBER": 250, "GAZP": 120}

	r := rec("", "", 0,
		model.Pick{Ticker: "SBER", Action: model.ActionBuy, Confidence: 0.5},
		model.Pick{Ticker: "GAZP", Action: model.ActionBuy, Confidence: 0.49})

	set := a.Aggregate(r, prices, noneHeld)
	if len(set.Buy) != 1 || set.Buy[0].Ticker != "SBER" {
		t.Errorf("confidence floor 0.5 is inclusive: %+v", set.Buy)
	}
}

func TestAggregate_HoldReinforcesOnlyHeldTickers(t *testing.T) {
	a := testAggregator()
	prices := map[string]float64{"SBER": 250, "GAZP": 120}

	r := rec("", "", 0,
		model.Pick{Ticker: "SBER", Action: model.ActionHold, Confidence: 0.85},
		model.Pick{Ticker: "GAZP", Action: model.ActionHold, Confidence: 0.85})

	held := func(ticker string) bool { return ticker == "SBER" }
	set := a.Aggregate(r, prices, held)

	if len(set.Buy) != 0 {
		t.Errorf("HOLD must never create new entries: %+v", set.Buy)
	}
	if len(set.Reinforce) != 1 || set.Reinforce[0].Ticker != "SBER" {
		t.Errorf("only held tickers reinforce: %+v", set.Reinforce)
	}
}

func TestAggregate_HoldBelowReinforceFloorIgnored(t *testing.T) {
	a := testAggregator()
	prices := map[string]float64{"SBER": 250}

	r := rec("", "", 0,
		model.Pick{Ticker: "SBER", Action: model.ActionHold, Confidence: 0.7})

	set := a.Aggregate(r, prices, allHeld)
	if len(set.Reinforce) != 0 {
		t.Errorf("HOLD below the reinforce floor must be ignored: %+v", set.Reinforce)
	}
}

func TestAggregate_SellActionNeverAllocates(t *testing.T) {
	a := testAggregator()
	prices := map[string]float64{"SBER": 250}

	r := rec("SBER", model.ActionSell, 0.99)
	set := a.Aggregate(r, prices, allHeld)
	if len(set.Buy)+len(set.Reinforce) != 0 {
		t.Errorf("SELL recommendations never allocate: %+v", set)
	}
}

func TestAggregate_NilRecommendation(t *testing.T) {
	a := testAggregator()
	set := a.Aggregate(nil, map[string]float64{"SBER": 250}, noneHeld)
	if len(set.Buy)+len(set.Reinforce) != 0 {
		t.Errorf("nil recommendation must produce an empty set: %+v", set)
	}
}
