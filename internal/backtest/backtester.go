// Package backtest replays a historical bar series and a precomputed signal
// series through the same fee and rounding conventions as the live executor.
// Each run is self-contained; the Backtester keeps no state across runs.
package backtest

import (
	"log"
	"math"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

// Signal values of the replay series.
const (
	SignalBuy  = 1
	SignalHold = 0
	SignalSell = -1
)

const (
	// capitalUsage is the share of free capital deployed per buy signal.
	capitalUsage = 0.95
	// tradingDaysPerYear annualizes the Sharpe ratio of daily returns.
	tradingDaysPerYear = 252
)

// Trade is one simulated fill of a backtest run.
type Trade struct {
	Date    time.Time    `json:"date"`
	Action  model.Action `json:"action"`
	Price   float64      `json:"price"`
	Shares  int64        `json:"shares"`
	Cost    float64      `json:"cost,omitempty"`
	Revenue float64      `json:"revenue,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}

// EquityPoint is one point of the equity curve.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// Result summarizes one backtest run.
type Result struct {
	Ticker         string        `json:"ticker"`
	InitialCapital float64       `json:"initial_capital"`
	FinalEquity    float64       `json:"final_equity"`
	TotalReturn    float64       `json:"total_return"`  // percent
	MaxDrawdown    float64       `json:"max_drawdown"`  // percent, ≤ 0
	SharpeRatio    float64       `json:"sharpe_ratio"`
	Trades         []Trade       `json:"trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
}

// Backtester replays bars and signals with fixed capital and commission.
type Backtester struct {
	initialCapital float64
	commission     float64
}

// New creates a Backtester.
func New(initialCapital, commission float64) *Backtester {
	return &Backtester{initialCapital: initialCapital, commission: commission}
}

// Run replays the signal series over the bars. signals and bars are paired
// by index; the shorter series bounds the replay. Any open position is
// force-closed at the last bar's price.
func (b *Backtester) Run(ticker string, bars []model.Bar, signals []int) Result {
	n := len(bars)
	if len(signals) < n {
		n = len(signals)
	}

	capital := b.initialCapital
	var position int64
	var trades []Trade
	equityCurve := make([]EquityPoint, 0, n)

	for i := 0; i < n; i++ {
		bar := bars[i]
		price := bar.Close

		switch {
		case signals[i] == SignalBuy && capital > 0 && price > 0:
			shares := int64(capital * capitalUsage / price)
			cost := float64(shares) * price * (1 + b.commission)
			if shares > 0 && cost <= capital {
				position += shares
				capital -= cost
				trades = append(trades, Trade{
					Date:   bar.Time,
					Action: model.ActionBuy,
					Price:  price,
					Shares: shares,
					Cost:   cost,
				})
			}

		case signals[i] == SignalSell && position > 0:
			revenue := float64(position) * price * (1 - b.commission)
			capital += revenue
			trades = append(trades, Trade{
				Date:    bar.Time,
				Action:  model.ActionSell,
				Price:   price,
				Shares:  position,
				Revenue: revenue,
			})
			position = 0
		}

		equityCurve = append(equityCurve, EquityPoint{
			Date:   bar.Time,
			Equity: capital + float64(position)*price,
		})
	}

	if position > 0 && n > 0 {
		price := bars[n-1].Close
		revenue := float64(position) * price * (1 - b.commission)
		capital += revenue
		trades = append(trades, Trade{
			Date:    bars[n-1].Time,
			Action:  model.ActionSell,
			Price:   price,
			Shares:  position,
			Revenue: revenue,
			Reason:  "close",
		})
		position = 0
	}

	result := Result{
		Ticker:         ticker,
		InitialCapital: b.initialCapital,
		FinalEquity:    capital,
		Trades:         trades,
		EquityCurve:    equityCurve,
	}
	if b.initialCapital > 0 {
		result.TotalReturn = (capital - b.initialCapital) / b.initialCapital * 100
	}
	result.MaxDrawdown = maxDrawdown(equityCurve)
	result.SharpeRatio = sharpeRatio(equityCurve)

	log.Printf("[backtest] %s: %d trades, return %.2f%%, drawdown %.2f%%, sharpe %.2f",
		ticker, len(trades), result.TotalReturn, result.MaxDrawdown, result.SharpeRatio)
	return result
}

// maxDrawdown returns the deepest percentage drop from a running equity
// peak. Zero for a non-decreasing curve.
func maxDrawdown(curve []EquityPoint) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (p.Equity - peak) / peak * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpeRatio annualizes mean/stdev of daily equity returns.
// Returns 0 when the return series is degenerate (stdev 0 or < 2 points).
func sharpeRatio(curve []EquityPoint) float64 {
	var returns []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1) // sample stdev

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return math.Sqrt(tradingDaysPerYear) * mean / std
}
