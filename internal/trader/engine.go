// Package trader implements the autonomous virtual trading engine.
//
// One scheduled cycle pulls prices and the advisor recommendation, runs
// aggregation → allocation → entries, then risk evaluation → exits, and
// persists the full portfolio snapshot. Cycles are serialized: a new cycle
// never starts before the previous one, including its persistence write,
// has finished.
package trader

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/allocation"
	"github.com/Zetan9/birzhAIbot/internal/indicator"
	"github.com/Zetan9/birzhAIbot/internal/markethours"
	"github.com/Zetan9/birzhAIbot/internal/metrics"
	"github.com/Zetan9/birzhAIbot/internal/model"
	"github.com/Zetan9/birzhAIbot/internal/notification"
	"github.com/Zetan9/birzhAIbot/internal/risk"
	"github.com/Zetan9/birzhAIbot/internal/signal"
)

// Config holds engine-level parameters. All numeric thresholds of the
// ruleset live here or in the component configs — never as literals.
type Config struct {
	InitialBalance      float64
	FeeRate             float64
	MaxPositionFraction float64
	MinLotMultiplier    float64
	SafetyFactor        float64
	RSIEntryLimit       float64

	LookbackDays     int
	CycleInterval    time.Duration
	MarketHoursOnly  bool
	TradeLogLimit    int
	PerfHistoryLimit int

	// WatchTickers are always priced each cycle in addition to open
	// positions and recommendation tickers.
	WatchTickers []string
}

// Deps are the engine collaborators, passed explicitly at construction.
type Deps struct {
	Prices     model.PriceProvider
	History    model.HistoryProvider
	Advisor    model.RecommendationProvider
	State      model.StateStore
	Journal    model.TradeJournal
	Notifier   notification.Notifier
	Indicators *indicator.Engine
	Aggregator *signal.Aggregator
	Allocator  *allocation.Allocator
	Risk       *risk.Manager
	Metrics    *metrics.Metrics
}

// Engine owns the virtual portfolio. All state mutation happens under mu
// inside a single cycle; external readers only get copies.
type Engine struct {
	cfg  Config
	deps Deps

	mu             sync.Mutex
	balance        float64
	positions      map[string]model.Position
	tradeLog       []model.Trade
	perfHistory    []model.PerformanceSnapshot
	tradingEnabled bool
	lastPrices     map[string]float64
}

// New constructs the engine and restores persisted state. A missing or
// corrupt snapshot falls back to a fresh portfolio with the configured
// initial balance — startup never fails on state problems.
func New(cfg Config, deps Deps) *Engine {
	if cfg.TradeLogLimit <= 0 {
		cfg.TradeLogLimit = 100
	}
	if cfg.PerfHistoryLimit <= 0 {
		cfg.PerfHistoryLimit = 50
	}

	e := &Engine{
		cfg:        cfg,
		deps:       deps,
		balance:    cfg.InitialBalance,
		positions:  make(map[string]model.Position),
		lastPrices: make(map[string]float64),
	}

	if deps.State != nil {
		state, err := deps.State.Load()
		switch {
		case err != nil:
			log.Printf("[trader] state load failed, starting fresh: %v", err)
		case state != nil:
			e.balance = state.Balance
			e.tradingEnabled = state.TradingEnabled
			e.tradeLog = state.Trades
			e.perfHistory = state.PerformanceHistory
			for ticker, pos := range state.Positions {
				pos.Ticker = ticker
				e.positions[ticker] = pos
			}
			log.Printf("[trader] restored state: balance %.0f, %d positions, %d trades",
				e.balance, len(e.positions), len(e.tradeLog))
		}
	}
	return e
}

// StartTrading enables the cycle scheduler.
func (e *Engine) StartTrading() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tradingEnabled = true
	e.saveLocked()
	log.Printf("[trader] autonomous trading enabled")
}

// StopTrading disables new cycles and forces an immediate state save.
// An in-flight cycle finishes normally — the flag only gates cycle starts.
func (e *Engine) StopTrading() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tradingEnabled = false
	e.saveLocked()
	log.Printf("[trader] autonomous trading disabled")
}

// TradingEnabled reports whether the scheduler may start cycles.
func (e *Engine) TradingEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tradingEnabled
}

// Run drives scheduled cycles until ctx is cancelled, then saves state.
func (e *Engine) Run(ctx context.Context) {
	e.tryCycle(ctx)

	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.saveLocked()
			e.mu.Unlock()
			log.Printf("[trader] scheduler stopped, state saved")
			return
		case <-ticker.C:
			e.tryCycle(ctx)
		}
	}
}

func (e *Engine) tryCycle(ctx context.Context) {
	if !e.TradingEnabled() {
		e.countSkip()
		return
	}
	if e.cfg.MarketHoursOnly && !markethours.IsMarketOpen(time.Now()) {
		log.Printf("[trader] %s, skipping cycle", markethours.StatusString(time.Now()))
		e.countSkip()
		return
	}
	e.RunCycle(ctx)
}

// RunCycle executes one analysis+allocation+risk+persist cycle.
// No-op when trading is disabled. With no qualifying candidates and no
// exits it leaves balance, positions, and trade log unchanged.
func (e *Engine) RunCycle(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.tradingEnabled {
		return
	}
	start := time.Now()

	rec := e.fetchRecommendation(ctx)
	prices := e.fetchPrices(ctx, rec)
	e.lastPrices = prices

	tradesBefore := len(e.tradeLog)

	// Entries run only with a usable recommendation; exits always run.
	if rec != nil {
		e.runEntries(ctx, rec, prices)
	}
	e.runExits(ctx, prices)

	e.recordPerformanceLocked()
	e.saveLocked()

	if e.deps.Metrics != nil {
		e.deps.Metrics.CyclesTotal.Inc()
		e.deps.Metrics.CycleDur.Observe(time.Since(start).Seconds())
		e.deps.Metrics.Balance.Set(e.balance)
		e.deps.Metrics.PortfolioValue.Set(e.portfolioValueLocked())
		e.deps.Metrics.OpenPositions.Set(float64(len(e.positions)))
	}
	log.Printf("[trader] cycle done in %v: %d trades, balance %.0f",
		time.Since(start), len(e.tradeLog)-tradesBefore, e.balance)
}

func (e *Engine) fetchRecommendation(ctx context.Context) *model.Recommendation {
	if e.deps.Advisor == nil {
		return nil
	}
	rec, err := e.deps.Advisor.Latest(ctx)
	if err != nil {
		log.Printf("[trader] recommendation feed unavailable, exits-only cycle: %v", err)
		if e.deps.Metrics != nil {
			e.deps.Metrics.FeedErrors.WithLabelValues("advisor").Inc()
		}
		return nil
	}
	return rec
}

// fetchPrices assembles the cycle's atomic price map: recommendation prices
// seeded first, then refreshed in parallel from the price provider for every
// ticker of interest. Individual failures just exclude that ticker.
func (e *Engine) fetchPrices(ctx context.Context, rec *model.Recommendation) map[string]float64 {
	prices := make(map[string]float64)
	universe := make(map[string]bool)

	if rec != nil {
		for ticker, price := range rec.Prices {
			if price > 0 {
				prices[ticker] = price
			}
		}
		universe[rec.TopPick] = true
		for _, pick := range rec.TopPicks {
			universe[pick.Ticker] = true
		}
	}
	for ticker := range e.positions {
		universe[ticker] = true
	}
	for _, ticker := range e.cfg.WatchTickers {
		universe[ticker] = true
	}
	delete(universe, "")

	if e.deps.Prices == nil {
		return prices
	}

	var wg sync.WaitGroup
	var pmu sync.Mutex
	for ticker := range universe {
		ticker := ticker
		wg.Add(1)
		go func() {
			defer wg.Done()
			if price, ok := e.deps.Prices.Price(ctx, ticker); ok && price > 0 {
				pmu.Lock()
				prices[ticker] = price
				pmu.Unlock()
			}
		}()
	}
	wg.Wait()
	return prices
}

func (e *Engine) runEntries(ctx context.Context, rec *model.Recommendation, prices map[string]float64) {
	if e.deps.Aggregator == nil || e.deps.Allocator == nil {
		return
	}

	held := func(ticker string) bool {
		_, ok := e.positions[ticker]
		return ok
	}
	set := e.deps.Aggregator.Aggregate(rec, prices, held)
	if len(set.Buy) == 0 && len(set.Reinforce) == 0 {
		log.Printf("[trader] no qualifying candidates this cycle")
		return
	}

	plan := e.deps.Allocator.Plan(set, e.balance, e.techFilter(ctx))
	for _, alloc := range plan {
		price, ok := prices[alloc.Ticker]
		if !ok {
			continue
		}
		e.buy(ctx, alloc.Ticker, price, alloc.Confidence, alloc.Amount)
	}
}

// techFilter gates new entries on indicator state: rejected when history is
// missing or RSI is at/above the entry limit; otherwise the confidence
// multiplier eases off linearly from 1.0 at RSI 50 down to 0.5 at the limit.
func (e *Engine) techFilter(ctx context.Context) allocation.TechFilter {
	if e.deps.History == nil || e.deps.Indicators == nil {
		return nil
	}
	return func(ticker string) (float64, bool) {
		bars, err := e.deps.History.History(ctx, ticker, e.cfg.LookbackDays)
		if err != nil || len(bars) == 0 {
			log.Printf("[trader] %s: no history for technical filter, skipping", ticker)
			return 0, false
		}
		snap := e.deps.Indicators.SnapshotFor(ticker, bars)
		if !snap.RSIReady {
			return 0, false
		}
		if snap.RSI >= e.cfg.RSIEntryLimit {
			return 0, false
		}
		mult := 1.0
		if snap.RSI > 50 {
			mult = 1 - (snap.RSI-50)/(e.cfg.RSIEntryLimit-50)*0.5
		}
		return mult, true
	}
}

// runExits evaluates every open position against the risk rule set using
// last-known prices. Positions without a price this cycle are left alone.
func (e *Engine) runExits(ctx context.Context, prices map[string]float64) {
	if e.deps.Risk == nil {
		return
	}

	tickers := make([]string, 0, len(e.positions))
	for ticker := range e.positions {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		pos := e.positions[ticker]
		price, ok := prices[ticker]
		if !ok {
			continue
		}

		var snap indicator.Snapshot
		if e.deps.History != nil && e.deps.Indicators != nil {
			bars, err := e.deps.History.History(ctx, ticker, e.cfg.LookbackDays)
			if err == nil && len(bars) > 0 {
				snap = e.deps.Indicators.SnapshotFor(ticker, bars)
			}
		}

		for _, instr := range e.deps.Risk.Evaluate(pos, price, snap) {
			cur, ok := e.positions[ticker]
			if !ok {
				break // an earlier instruction emptied the position
			}
			committed := false
			if instr.SellAll {
				committed = e.sell(ctx, ticker, price, 1.0, instr.Reason, 0, true)
			} else {
				shares := int64(float64(cur.Shares) * instr.Fraction)
				if shares > 0 {
					committed = e.sell(ctx, ticker, price, 1.0, instr.Reason, shares, false)
				}
			}
			if committed && e.deps.Metrics != nil {
				e.deps.Metrics.ExitsTotal.WithLabelValues(instr.Reason).Inc()
			}
		}

		// A chain of partial exits can empty the position.
		if _, ok := e.positions[ticker]; !ok {
			e.deps.Risk.PositionClosed(ticker)
		}
	}
}

func (e *Engine) countSkip() {
	if e.deps.Metrics != nil {
		e.deps.Metrics.CyclesSkipped.Inc()
	}
}

// saveLocked persists the full snapshot. Caller must hold e.mu.
func (e *Engine) saveLocked() {
	if e.deps.State == nil {
		return
	}

	positions := make(map[string]model.Position, len(e.positions))
	for ticker, pos := range e.positions {
		positions[ticker] = pos
	}
	trades := make([]model.Trade, len(e.tradeLog))
	copy(trades, e.tradeLog)
	history := make([]model.PerformanceSnapshot, len(e.perfHistory))
	copy(history, e.perfHistory)

	state := &model.TraderState{
		Balance:            e.balance,
		Positions:          positions,
		Trades:             trades,
		PerformanceHistory: history,
		TradingEnabled:     e.tradingEnabled,
		LastSave:           time.Now().UTC(),
	}
	if err := e.deps.State.Save(state); err != nil {
		log.Printf("[trader] state save failed: %v", err)
		if e.deps.Metrics != nil {
			e.deps.Metrics.SaveErrors.Inc()
		}
		return
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.StateSaves.Inc()
	}
}
