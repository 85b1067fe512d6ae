package allocation

import (
	"math"
	"testing"

	"github.com/Zetan9/birzhAIbot/internal/model"
	"github.com/Zetan9/birzhAIbot/internal/signal"
)

func testAllocator() *Allocator {
	return New(Config{InvestFraction: 0.7, ReinforceFraction: 0.2, MinInvestCapital: 1000})
}

func buyCand(ticker string, conf float64) model.Candidate {
	return model.Candidate{Ticker: ticker, Action: model.ActionBuy, Confidence: conf}
}

func assertClose(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.01 {
		t.Errorf("%s: got %.2f, want %.2f", label, got, want)
	}
}

// ────────────────────────────────────────────────────────────
// Proportional split
// ────────────────────────────────────────────────────────────

func TestPlan_ProportionalToConfidence(t *testing.T) {
	a := testAllocator()
	set := signal.CandidateSet{Buy: []model.Candidate{
		buyCand("SBER", 0.9),
		buyCand("GAZP", 0.6),
	}}

	// Balance 100000 → invest capital 70000.
	// SBER share: 0.9/1.5 = 0.6 → 42000; GAZP: 0.6/1.5 = 0.4 → 28000.
	plan := a.Plan(set, 100000, nil)
	if len(plan) != 2 {
		t.Fatalf("expected 2 allocations, got %d: %+v", len(plan), plan)
	}
	assertClose(t, "SBER amount", plan[0].Amount, 42000)
	assertClose(t, "GAZP amount", plan[1].Amount, 28000)
}

func TestPlan_BelowMinCapitalMakesNoEntries(t *testing.T) {
	a := testAllocator()
	set := signal.CandidateSet{Buy: []model.Candidate{buyCand("SBER", 0.9)}}

	// Balance 1400 → invest capital 980 < 1000 floor.
	if plan := a.Plan(set, 1400, nil); plan != nil {
		t.Errorf("expected no entries below the capital floor, got %+v", plan)
	}
}

func TestPlan_EmptySet(t *testing.T) {
	a := testAllocator()
	if plan := a.Plan(signal.CandidateSet{}, 100000, nil); len(plan) != 0 {
		t.Errorf("empty candidate set must plan nothing, got %+v", plan)
	}
}

// ────────────────────────────────────────────────────────────
// Technical filter interaction
// ────────────────────────────────────────────────────────────

func TestPlan_FilterRejectionRedistributes(t *testing.T) {
	a := testAllocator()
	set := signal.CandidateSet{Buy: []model.Candidate{
		buyCand("SBER", 0.9),
		buyCand("GAZP", 0.6),
	}}

	// GAZP rejected: SBER takes the whole budget (share 0.9/0.9 = 1).
	filter := func(ticker string) (float64, bool) {
		return 1.0, ticker == "SBER"
	}
	plan := a.Plan(set, 100000, filter)
	if len(plan) != 1 {
		t.Fatalf("expected 1 allocation after rejection, got %d: %+v", len(plan), plan)
	}
	assertClose(t, "SBER amount", plan[0].Amount, 70000)
}

func TestPlan_FilterMultiplierScalesAmount(t *testing.T) {
	a := testAllocator()
	set := signal.CandidateSet{Buy: []model.Candidate{buyCand("SBER", 0.8)}}

	// Multiplier scales the final amount, not the proportional share.
	filter := func(string) (float64, bool) { return 0.5, true }
	plan := a.Plan(set, 100000, filter)
	if len(plan) != 1 {
		t.Fatalf("expected 1 allocation, got %+v", plan)
	}
	assertClose(t, "scaled amount", plan[0].Amount, 35000) // 70000 * 1.0 share * 0.5
}

func TestPlan_AllRejected(t *testing.T) {
	a := testAllocator()
	set := signal.CandidateSet{Buy: []model.Candidate{buyCand("SBER", 0.9)}}

	filter := func(string) (float64, bool) { return 0, false }
	if plan := a.Plan(set, 100000, filter); len(plan) != 0 {
		t.Errorf("expected empty plan when all candidates rejected, got %+v", plan)
	}
}

// ────────────────────────────────────────────────────────────
// Reinforcement budget
// ────────────────────────────────────────────────────────────

func TestPlan_ReinforcementUsesReservedBudget(t *testing.T) {
	a := testAllocator()
	set := signal.CandidateSet{
		Reinforce: []model.Candidate{
			{Ticker: "SBER", Action: model.ActionHold, Confidence: 0.85},
		},
	}

	// Reinforce budget: 100000 * 0.7 * 0.2 = 14000, sole candidate takes all.
	plan := a.Plan(set, 100000, nil)
	if len(plan) != 1 {
		t.Fatalf("expected 1 reinforcement, got %+v", plan)
	}
	if !plan[0].Reinforce {
		t.Error("allocation must be marked as reinforcement")
	}
	assertClose(t, "reinforce amount", plan[0].Amount, 14000)
}

func TestPlan_FilterNotAppliedToReinforcements(t *testing.T) {
	a := testAllocator()
	set := signal.CandidateSet{
		Reinforce: []model.Candidate{
			{Ticker: "SBER", Action: model.ActionHold, Confidence: 0.85},
		},
	}

	// A filter that rejects everything must not block reinforcement of an
	// already-open position.
	filter := func(string) (float64, bool) { return 0, false }
	plan := a.Plan(set, 100000, filter)
	if len(plan) != 1 {
		t.Errorf("reinforcements bypass the entry filter, got %+v", plan)
	}
}
