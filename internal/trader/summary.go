package trader

import (
	"sort"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

// GetPortfolioSummary values the portfolio at last-known prices. A position
// whose price was never observed is valued at its cost basis.
func (e *Engine) GetPortfolioSummary() model.PortfolioSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked()
}

// RecentTrades returns up to n trades from the in-memory log, newest first.
func (e *Engine) RecentTrades(n int) []model.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n <= 0 || n > len(e.tradeLog) {
		n = len(e.tradeLog)
	}
	out := make([]model.Trade, 0, n)
	for i := len(e.tradeLog) - 1; i >= len(e.tradeLog)-n; i-- {
		out = append(out, e.tradeLog[i])
	}
	return out
}

func (e *Engine) summaryLocked() model.PortfolioSummary {
	summary := model.PortfolioSummary{Balance: e.balance}
	summary.TotalValue = e.balance

	for _, pos := range e.positions {
		price := e.priceOrBasisLocked(pos)
		currentValue := pos.Value(price)
		invested := float64(pos.Shares) * pos.AvgPrice
		profit := currentValue - invested

		profitPct := 0.0
		if invested > 0 {
			profitPct = profit / invested * 100
		}

		summary.TotalValue += currentValue
		summary.Positions = append(summary.Positions, model.PositionSummary{
			Ticker:        pos.Ticker,
			Shares:        pos.Shares,
			AvgPrice:      pos.AvgPrice,
			CurrentPrice:  price,
			CurrentValue:  currentValue,
			Profit:        profit,
			ProfitPercent: profitPct,
		})
	}

	sort.Slice(summary.Positions, func(i, j int) bool {
		return summary.Positions[i].CurrentValue > summary.Positions[j].CurrentValue
	})

	summary.Invested = summary.TotalValue - summary.Balance
	summary.PositionCount = len(summary.Positions)
	summary.TotalProfit = summary.TotalValue - e.cfg.InitialBalance
	if e.cfg.InitialBalance > 0 {
		summary.TotalProfitPercent = summary.TotalProfit / e.cfg.InitialBalance * 100
	}
	return summary
}

// portfolioValueLocked returns balance plus open positions at last-known
// prices. Caller must hold e.mu.
func (e *Engine) portfolioValueLocked() float64 {
	total := e.balance
	for _, pos := range e.positions {
		total += pos.Value(e.priceOrBasisLocked(pos))
	}
	return total
}

func (e *Engine) priceOrBasisLocked(pos model.Position) float64 {
	if price, ok := e.lastPrices[pos.Ticker]; ok && price > 0 {
		return price
	}
	return pos.AvgPrice
}

// recordPerformanceLocked appends a performance snapshot, bounded to the
// configured history limit. Caller must hold e.mu.
func (e *Engine) recordPerformanceLocked() {
	summary := e.summaryLocked()
	e.perfHistory = append(e.perfHistory, model.PerformanceSnapshot{
		Timestamp:          time.Now().UTC(),
		Balance:            summary.Balance,
		TotalValue:         summary.TotalValue,
		Invested:           summary.Invested,
		TotalProfit:        summary.TotalProfit,
		TotalProfitPercent: summary.TotalProfitPercent,
		PositionCount:      summary.PositionCount,
	})
	if len(e.perfHistory) > e.cfg.PerfHistoryLimit {
		e.perfHistory = e.perfHistory[len(e.perfHistory)-e.cfg.PerfHistoryLimit:]
	}
}
