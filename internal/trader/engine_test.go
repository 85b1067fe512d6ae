package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/allocation"
	"github.com/Zetan9/birzhAIbot/internal/indicator"
	"github.com/Zetan9/birzhAIbot/internal/model"
	"github.com/Zetan9/birzhAIbot/internal/risk"
	"github.com/Zetan9/birzhAIbot/internal/signal"
)

// ────────────────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────────────────

type stubAdvisor struct {
	rec *model.Recommendation
	err error
}

func (s *stubAdvisor) Latest(ctx context.Context) (*model.Recommendation, error) {
	return s.rec, s.err
}

type stubPrices map[string]float64

func (s stubPrices) Price(ctx context.Context, ticker string) (float64, bool) {
	p, ok := s[ticker]
	return p, ok
}

type memState struct {
	saved *model.TraderState
	saves int
}

func (m *memState) Save(state *model.TraderState) error {
	m.saved = state
	m.saves++
	return nil
}

func (m *memState) Load() (*model.TraderState, error) {
	return m.saved, nil
}

func defaultDeps(advisor *stubAdvisor, prices stubPrices, store *memState) Deps {
	return Deps{
		Prices:  prices,
		Advisor: advisor,
		State:   store,
		Aggregator: signal.New(signal.Config{
			MaxCandidates: 5, MinConfidence: 0.5, ReinforceConfidence: 0.8,
		}),
		Allocator: allocation.New(allocation.Config{
			InvestFraction: 0.7, ReinforceFraction: 0.2, MinInvestCapital: 1000,
		}),
		Risk: risk.New(risk.Config{
			StopLossPct: 5, TrailingPct: 5, RSIOverbought: 80,
			MAShortFraction: 0.4, RSIFraction: 0.3,
		}),
	}
}

func cycleEngine(deps Deps) *Engine {
	e := New(Config{
		InitialBalance:      100000,
		FeeRate:             0.003,
		MaxPositionFraction: 0.4,
		MinLotMultiplier:    10,
		SafetyFactor:        0.9,
		RSIEntryLimit:       70,
		CycleInterval:       time.Hour,
	}, deps)
	e.tradingEnabled = true
	return e
}

// ────────────────────────────────────────────────────────────
// Cycle behavior
// ────────────────────────────────────────────────────────────

func TestRunCycle_BuysTopPick(t *testing.T) {
	advisor := &stubAdvisor{rec: &model.Recommendation{
		TopPick:    "SBER",
		Action:     model.ActionBuy,
		Confidence: 0.9,
		Prices:     map[string]float64{"SBER": 250},
	}}
	store := &memState{}
	e := cycleEngine(defaultDeps(advisor, stubPrices{"SBER": 250}, store))

	e.RunCycle(context.Background())

	pos, ok := e.positions["SBER"]
	if !ok {
		t.Fatal("expected an open SBER position after the cycle")
	}
	// Invest capital 70000, sole candidate, capped at 40000 → 160 shares.
	if pos.Shares != 160 {
		t.Errorf("shares: got %d, want 160", pos.Shares)
	}
	if store.saves == 0 {
		t.Error("cycle must persist state")
	}
}

func TestRunCycle_NoCandidatesLeavesStateUntouched(t *testing.T) {
	advisor := &stubAdvisor{rec: &model.Recommendation{
		TopPick:    "SBER",
		Action:     model.ActionBuy,
		Confidence: 0.3, // below the 0.5 floor
		Prices:     map[string]float64{"SBER": 250},
	}}
	e := cycleEngine(defaultDeps(advisor, stubPrices{"SBER": 250}, &memState{}))

	e.RunCycle(context.Background())
	e.RunCycle(context.Background())

	if len(e.positions) != 0 || len(e.tradeLog) != 0 {
		t.Errorf("no-candidate cycles must not trade: %d positions, %d trades",
			len(e.positions), len(e.tradeLog))
	}
	assertMoney(t, "balance", e.balance, 100000)
}

func TestRunCycle_AdvisorDownStillRunsExits(t *testing.T) {
	advisor := &stubAdvisor{err: errors.New("redis: connection refused")}
	store := &memState{}
	// Held at 100, now 94: −6% breaches the stop.
	e := cycleEngine(defaultDeps(advisor, stubPrices{"SBER": 94}, store))
	e.positions["SBER"] = model.Position{Ticker: "SBER", Shares: 100, AvgPrice: 100}

	e.RunCycle(context.Background())

	if _, ok := e.positions["SBER"]; ok {
		t.Error("stop-loss must fire even when the advisor feed is down")
	}
	if len(e.tradeLog) != 1 || e.tradeLog[0].Reason != model.ReasonStopLoss {
		t.Errorf("expected one stop-loss trade, got %+v", e.tradeLog)
	}
}

func TestRunCycle_PositionWithoutPriceLeftAlone(t *testing.T) {
	advisor := &stubAdvisor{err: errors.New("feed down")}
	e := cycleEngine(defaultDeps(advisor, stubPrices{}, &memState{}))
	e.positions["SBER"] = model.Position{Ticker: "SBER", Shares: 100, AvgPrice: 100}

	e.RunCycle(context.Background())

	if pos, ok := e.positions["SBER"]; !ok || pos.Shares != 100 {
		t.Errorf("position without a fresh price must be untouched: %+v", e.positions)
	}
}

func TestRunCycle_DisabledIsNoop(t *testing.T) {
	advisor := &stubAdvisor{rec: &model.Recommendation{
		TopPick: "SBER", Action: model.ActionBuy, Confidence: 0.9,
		Prices: map[string]float64{"SBER": 250},
	}}
	store := &memState{}
	e := cycleEngine(defaultDeps(advisor, stubPrices{"SBER": 250}, store))
	e.tradingEnabled = false

	e.RunCycle(context.Background())

	if len(e.positions) != 0 || store.saves != 0 {
		t.Error("disabled engine must not trade or save")
	}
}

func TestRunCycle_HoldReinforcesExistingPosition(t *testing.T) {
	advisor := &stubAdvisor{rec: &model.Recommendation{
		TopPick:    "SBER",
		Action:     model.ActionHold,
		Confidence: 0.85,
		Prices:     map[string]float64{"SBER": 100},
	}}
	e := cycleEngine(defaultDeps(advisor, stubPrices{"SBER": 100}, &memState{}))
	e.positions["SBER"] = model.Position{Ticker: "SBER", Shares: 50, AvgPrice: 100}

	e.RunCycle(context.Background())

	// Reinforce budget: 100000*0.7*0.2 = 14000 → 140 more shares at 100.
	pos := e.positions["SBER"]
	if pos.Shares != 190 {
		t.Errorf("shares after reinforcement: got %d, want 190", pos.Shares)
	}
}

// ────────────────────────────────────────────────────────────
// Technical entry filter
// ────────────────────────────────────────────────────────────

type stubHistory struct {
	bars map[string][]model.Bar
}

func (s *stubHistory) History(ctx context.Context, ticker string, lookbackDays int) ([]model.Bar, error) {
	return s.bars[ticker], nil
}

func risingBars(n int) []model.Bar {
	out := make([]model.Bar, n)
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := 100 + float64(i)
		out[i] = model.Bar{Time: day.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1}
	}
	return out
}

func TestRunCycle_OverboughtTickerRejected(t *testing.T) {
	advisor := &stubAdvisor{rec: &model.Recommendation{
		TopPick: "SBER", Action: model.ActionBuy, Confidence: 0.9,
		Prices: map[string]float64{"SBER": 130},
	}}
	deps := defaultDeps(advisor, stubPrices{"SBER": 130}, &memState{})
	// A strictly rising series pins RSI at 100, above the 70 entry limit.
	deps.History = &stubHistory{bars: map[string][]model.Bar{"SBER": risingBars(30)}}
	deps.Indicators = indicator.NewEngine(5, 20, 14, time.Hour)
	e := cycleEngine(deps)

	e.RunCycle(context.Background())

	if len(e.positions) != 0 {
		t.Errorf("overbought ticker must not be bought: %+v", e.positions)
	}
}

func TestRunCycle_MissingHistoryRejectsEntry(t *testing.T) {
	advisor := &stubAdvisor{rec: &model.Recommendation{
		TopPick: "SBER", Action: model.ActionBuy, Confidence: 0.9,
		Prices: map[string]float64{"SBER": 130},
	}}
	deps := defaultDeps(advisor, stubPrices{"SBER": 130}, &memState{})
	deps.History = &stubHistory{bars: map[string][]model.Bar{}} // nothing known
	deps.Indicators = indicator.NewEngine(5, 20, 14, time.Hour)
	e := cycleEngine(deps)

	e.RunCycle(context.Background())

	if len(e.positions) != 0 {
		t.Errorf("entry without history must be rejected: %+v", e.positions)
	}
}

// ────────────────────────────────────────────────────────────
// Lifecycle and restore
// ────────────────────────────────────────────────────────────

func TestNew_RestoresPersistedState(t *testing.T) {
	store := &memState{saved: &model.TraderState{
		Balance: 55000,
		Positions: map[string]model.Position{
			"SBER": {Shares: 40, AvgPrice: 240},
		},
		Trades:         []model.Trade{{Ticker: "SBER", Action: model.ActionBuy}},
		TradingEnabled: true,
	}}

	e := New(Config{InitialBalance: 100000}, Deps{State: store})

	assertMoney(t, "restored balance", e.balance, 55000)
	if !e.TradingEnabled() {
		t.Error("trading flag must be restored")
	}
	pos := e.positions["SBER"]
	if pos.Ticker != "SBER" || pos.Shares != 40 {
		t.Errorf("restored position missing its ticker key: %+v", pos)
	}
	if len(e.tradeLog) != 1 {
		t.Errorf("trade log not restored: %d entries", len(e.tradeLog))
	}
}

func TestNew_CorruptStateFallsBackFresh(t *testing.T) {
	failing := &failingState{}
	e := New(Config{InitialBalance: 100000}, Deps{State: failing})

	assertMoney(t, "fresh balance", e.balance, 100000)
	if e.TradingEnabled() {
		t.Error("fresh engine must start disabled")
	}
}

type failingState struct{}

func (f *failingState) Save(*model.TraderState) error { return nil }
func (f *failingState) Load() (*model.TraderState, error) {
	return nil, errors.New("corrupt snapshot")
}

func TestStartStopTrading_Persists(t *testing.T) {
	store := &memState{}
	e := New(Config{InitialBalance: 100000}, Deps{State: store})

	e.StartTrading()
	if store.saved == nil || !store.saved.TradingEnabled {
		t.Fatal("StartTrading must persist the enabled flag")
	}

	e.StopTrading()
	if store.saved.TradingEnabled {
		t.Error("StopTrading must persist the disabled flag")
	}
}

func TestRecentTrades_NewestFirst(t *testing.T) {
	e := testEngine(0)
	e.tradeLog = []model.Trade{
		{Ticker: "A"}, {Ticker: "B"}, {Ticker: "C"},
	}

	got := e.RecentTrades(2)
	if len(got) != 2 || got[0].Ticker != "C" || got[1].Ticker != "B" {
		t.Errorf("RecentTrades(2): got %+v, want C then B", got)
	}

	all := e.RecentTrades(0)
	if len(all) != 3 {
		t.Errorf("RecentTrades(0) returns everything, got %d", len(all))
	}
}

func TestGetPortfolioSummary_ValuesAtLastPrices(t *testing.T) {
	e := testEngine(10000)
	e.positions["SBER"] = model.Position{Ticker: "SBER", Shares: 100, AvgPrice: 100}
	e.lastPrices = map[string]float64{"SBER": 110}

	s := e.GetPortfolioSummary()
	assertMoney(t, "total value", s.TotalValue, 10000+11000)
	assertMoney(t, "invested", s.Invested, 11000)
	if s.PositionCount != 1 {
		t.Errorf("position count: got %d, want 1", s.PositionCount)
	}
	assertMoney(t, "position profit", s.Positions[0].Profit, 1000)

	// Unknown price falls back to cost basis.
	e.lastPrices = map[string]float64{}
	s = e.GetPortfolioSummary()
	assertMoney(t, "basis-valued total", s.TotalValue, 10000+10000)
}
