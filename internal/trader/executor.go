package trader

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/model"
	"github.com/Zetan9/birzhAIbot/internal/notification"
)

// buy commits a simulated buy of ticker at price with the given capital
// budget. Sizing rules: position cap as a fraction of portfolio value,
// minimum lot, fee deduction, and a safety recompute when cost plus fee
// would overdraw the balance. Rejections are silent no-ops.
//
// Caller must hold e.mu. Returns true when a trade was committed.
func (e *Engine) buy(ctx context.Context, ticker string, price, confidence, amount float64) bool {
	if price <= 0 || amount <= 0 {
		return false
	}

	positionCap := e.portfolioValueLocked() * e.cfg.MaxPositionFraction
	pos := e.positions[ticker]
	currentValue := float64(pos.Shares) * price
	if currentValue >= positionCap {
		log.Printf("[trader] %s: position cap reached, skipping buy", ticker)
		e.countRejection()
		return false
	}

	available := math.Min(amount, math.Min(positionCap-currentValue, e.balance))
	if available < price*e.cfg.MinLotMultiplier {
		log.Printf("[trader] %s: %.0f too small for a lot at %.2f", ticker, available, price)
		e.countRejection()
		return false
	}

	shares := int64(available / price)
	cost := float64(shares) * price
	fee := cost * e.cfg.FeeRate

	if cost+fee > e.balance {
		shares = int64(e.balance * e.cfg.SafetyFactor / price)
		cost = float64(shares) * price
		fee = cost * e.cfg.FeeRate
	}
	if shares == 0 {
		e.countRejection()
		return false
	}

	e.balance -= cost + fee

	if pos.Shares > 0 {
		oldCost := float64(pos.Shares) * pos.AvgPrice
		newShares := pos.Shares + shares
		pos.AvgPrice = (oldCost + cost) / float64(newShares)
		pos.Shares = newShares
	} else {
		pos = model.Position{Ticker: ticker, Shares: shares, AvgPrice: price}
	}
	e.positions[ticker] = pos

	trade := model.Trade{
		Timestamp:    time.Now().UTC(),
		Ticker:       ticker,
		Action:       model.ActionBuy,
		Shares:       shares,
		Price:        price,
		Cost:         cost,
		Fee:          fee,
		Confidence:   confidence,
		BalanceAfter: e.balance,
	}
	e.commitTrade(ctx, trade)

	log.Printf("[trader] BUY %d %s @ %.2f = %.0f (fee %.0f)", shares, ticker, price, cost, fee)
	return true
}

// sell commits a simulated sell. Share resolution priority: sellAll takes
// everything; explicitShares is clamped to the held count; otherwise a
// confidence-tiered default applies (>0.9 all, >0.7 70%, else 50%).
//
// Caller must hold e.mu. No-op when the ticker is not held or the resolved
// count is zero. Returns true when a trade was committed.
func (e *Engine) sell(ctx context.Context, ticker string, price, confidence float64, reason string, explicitShares int64, sellAll bool) bool {
	pos, ok := e.positions[ticker]
	if !ok || pos.Shares <= 0 || price <= 0 {
		return false
	}

	var sellShares int64
	switch {
	case sellAll:
		sellShares = pos.Shares
	case explicitShares > 0:
		sellShares = explicitShares
		if sellShares > pos.Shares {
			sellShares = pos.Shares
		}
	case confidence > 0.9:
		sellShares = pos.Shares
	case confidence > 0.7:
		sellShares = int64(float64(pos.Shares) * 0.7)
	default:
		sellShares = int64(float64(pos.Shares) * 0.5)
	}
	if sellShares <= 0 {
		return false
	}

	revenue := float64(sellShares) * price
	fee := revenue * e.cfg.FeeRate
	profit := (price - pos.AvgPrice) * float64(sellShares)
	e.balance += revenue - fee

	if sellShares >= pos.Shares {
		delete(e.positions, ticker)
		if e.deps.Risk != nil {
			e.deps.Risk.PositionClosed(ticker)
		}
	} else {
		pos.Shares -= sellShares
		e.positions[ticker] = pos
	}

	trade := model.Trade{
		Timestamp:    time.Now().UTC(),
		Ticker:       ticker,
		Action:       model.ActionSell,
		Shares:       sellShares,
		Price:        price,
		Revenue:      revenue,
		Fee:          fee,
		Profit:       profit,
		Confidence:   confidence,
		Reason:       reason,
		BalanceAfter: e.balance,
	}
	e.commitTrade(ctx, trade)

	log.Printf("[trader] SELL %d %s @ %.2f = %.0f (profit %+.0f, reason %s)",
		sellShares, ticker, price, revenue, profit, reason)
	return true
}

// commitTrade appends to the bounded trade log, journals, updates metrics,
// and raises an alert. Journal and alert failures are logged, never fatal.
func (e *Engine) commitTrade(ctx context.Context, trade model.Trade) {
	e.tradeLog = append(e.tradeLog, trade)
	if len(e.tradeLog) > e.cfg.TradeLogLimit {
		e.tradeLog = e.tradeLog[len(e.tradeLog)-e.cfg.TradeLogLimit:]
	}

	if e.deps.Journal != nil {
		if err := e.deps.Journal.Record(trade); err != nil {
			log.Printf("[trader] journal write failed: %v", err)
		}
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.TradesTotal.WithLabelValues(string(trade.Action)).Inc()
	}
	if e.deps.Notifier != nil {
		if err := e.deps.Notifier.Send(ctx, notification.TradeAlert(trade)); err != nil {
			log.Printf("[trader] alert delivery failed: %v", err)
			if e.deps.Metrics != nil {
				e.deps.Metrics.AlertErrors.Inc()
			}
		}
	}
}

func (e *Engine) countRejection() {
	if e.deps.Metrics != nil {
		e.deps.Metrics.RejectionsTotal.Inc()
	}
}
