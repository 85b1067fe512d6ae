// Package risk evaluates open positions against the layered exit-rule set.
//
// Rules run in a fixed priority per position per cycle:
//
//  1. MA_long break      — full exit, stops evaluation
//  2. MA_short break     — partial exit, evaluation continues
//  3. RSI overbought     — partial exit, evaluation continues
//  4. take-profit tiers  — partial exits, each tier fires once per position
//  5. trailing stop      — full exit, stops evaluation
//  6. static stop-loss   — full exit
//
// Rules 1–3 need ready indicator values; 4–6 work from prices alone, so a
// position is never left unprotected just because history is missing.
package risk

import (
	"log"

	"github.com/Zetan9/birzhAIbot/internal/indicator"
	"github.com/Zetan9/birzhAIbot/internal/model"
)

// ProfitTier is one take-profit level: at LevelPct unrealized profit,
// Fraction of the position is sold. Each tier fires at most once per
// position lifetime.
type ProfitTier struct {
	LevelPct float64
	Fraction float64
}

// Config holds the exit-rule thresholds.
type Config struct {
	StopLossPct     float64 // full exit below −StopLossPct percent
	TrailingPct     float64 // full exit TrailingPct percent under the high-water mark
	RSIOverbought   float64 // partial exit above this RSI
	MAShortFraction float64 // share sold on MA_short break
	RSIFraction     float64 // share sold on RSI overbought
	ProfitTiers     []ProfitTier
}

// Instruction is one exit order for the executor.
type Instruction struct {
	Ticker   string
	SellAll  bool
	Fraction float64 // share of currently held shares, when !SellAll
	Reason   string
}

// Manager tracks per-position exit state (high-water marks, fired
// take-profit tiers) and emits exit instructions each cycle.
// Designed for single-cycle usage — the engine serializes calls.
type Manager struct {
	cfg Config

	highWater  map[string]float64
	tiersTaken map[string]map[int]bool
}

// New creates a risk Manager.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:        cfg,
		highWater:  make(map[string]float64),
		tiersTaken: make(map[string]map[int]bool),
	}
}

// Evaluate runs the rule set for one open position at the current price.
// snap values are consulted only where ready. The returned instructions are
// ordered; a full exit is always last.
func (m *Manager) Evaluate(pos model.Position, price float64, snap indicator.Snapshot) []Instruction {
	if pos.Shares <= 0 || price <= 0 {
		return nil
	}

	var out []Instruction

	// 1. Technical breakdown: close below the long MA closes the position.
	if snap.MALongReady && price < snap.MALong {
		log.Printf("[risk] %s: %.2f below long MA %.2f, full exit", pos.Ticker, price, snap.MALong)
		m.PositionClosed(pos.Ticker)
		return []Instruction{{Ticker: pos.Ticker, SellAll: true, Reason: model.ReasonMALongBreak}}
	}

	// 2. Short-trend break: trim the position.
	if snap.MAShortReady && price < snap.MAShort {
		out = append(out, Instruction{
			Ticker:   pos.Ticker,
			Fraction: m.cfg.MAShortFraction,
			Reason:   model.ReasonMAShortBreak,
		})
	}

	// 3. Overbought unwind.
	if snap.RSIReady && snap.RSI > m.cfg.RSIOverbought {
		out = append(out, Instruction{
			Ticker:   pos.Ticker,
			Fraction: m.cfg.RSIFraction,
			Reason:   model.ReasonRSIOverbought,
		})
	}

	// 4. Tiered take-profit.
	profitPct := pos.ProfitPct(price)
	for i, tier := range m.cfg.ProfitTiers {
		if profitPct < tier.LevelPct || m.tierTaken(pos.Ticker, i) {
			continue
		}
		m.markTier(pos.Ticker, i)
		out = append(out, Instruction{
			Ticker:   pos.Ticker,
			Fraction: tier.Fraction,
			Reason:   model.ReasonTakeProfit,
		})
		log.Printf("[risk] %s: take-profit tier %.0f%% hit at %.1f%%", pos.Ticker, tier.LevelPct, profitPct)
	}

	// 5. Trailing stop. The high-water mark is created lazily at the
	// current price and only ever moves up.
	hwm := m.highWater[pos.Ticker]
	if price > hwm {
		hwm = price
		m.highWater[pos.Ticker] = hwm
	}
	if price <= hwm*(1-m.cfg.TrailingPct/100) {
		log.Printf("[risk] %s: %.2f is %.1f%% under high-water %.2f, full exit",
			pos.Ticker, price, m.cfg.TrailingPct, hwm)
		m.PositionClosed(pos.Ticker)
		out = append(out, Instruction{Ticker: pos.Ticker, SellAll: true, Reason: model.ReasonTrailingStop})
		return out
	}

	// 6. Static stop-loss.
	if profitPct < -m.cfg.StopLossPct {
		log.Printf("[risk] %s: stop-loss at %.1f%%", pos.Ticker, profitPct)
		m.PositionClosed(pos.Ticker)
		out = append(out, Instruction{Ticker: pos.Ticker, SellAll: true, Reason: model.ReasonStopLoss})
	}

	return out
}

// PositionClosed clears exit state after any full exit. Must be called when
// a position reaches zero shares through any sell path.
func (m *Manager) PositionClosed(ticker string) {
	delete(m.highWater, ticker)
	delete(m.tiersTaken, ticker)
}

// HighWater returns the tracked high-water mark for ticker, if any.
func (m *Manager) HighWater(ticker string) (float64, bool) {
	hwm, ok := m.highWater[ticker]
	return hwm, ok
}

func (m *Manager) tierTaken(ticker string, tier int) bool {
	return m.tiersTaken[ticker][tier]
}

func (m *Manager) markTier(ticker string, tier int) {
	taken, ok := m.tiersTaken[ticker]
	if !ok {
		taken = make(map[int]bool, 4)
		m.tiersTaken[ticker] = taken
	}
	taken[tier] = true
}
