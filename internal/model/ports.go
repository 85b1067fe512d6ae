package model

import (
	"context"
	"time"
)

// ── Collaborator Port Interfaces ──
// These interfaces decouple the trading engine from concrete collaborators
// (Redis advisor feed, WebSocket quote stream, REST history API, state file,
// SQLite journal). The engine receives them explicitly at construction.

// PriceProvider resolves the latest known price for a ticker.
// The bool result is false when no fresh price is available; an unavailable
// price is ordinary, not an error.
type PriceProvider interface {
	// Price returns the latest price for ticker, or false if unknown/stale.
	Price(ctx context.Context, ticker string) (float64, bool)
}

// HistoryProvider fetches daily OHLCV bars for indicator computation.
type HistoryProvider interface {
	// History returns up to lookbackDays of daily bars in chronological
	// order. An empty slice means no data; only transport faults are errors.
	History(ctx context.Context, ticker string, lookbackDays int) ([]Bar, error)
}

// RecommendationProvider supplies the latest advisor recommendation.
type RecommendationProvider interface {
	// Latest returns the most recent recommendation document.
	// Returns an error when the feed is unavailable or malformed; the
	// caller then runs an exits-only cycle.
	Latest(ctx context.Context) (*Recommendation, error)
}

// StateStore persists and restores the full portfolio snapshot.
type StateStore interface {
	// Save overwrites the persisted snapshot atomically.
	Save(state *TraderState) error

	// Load reads the persisted snapshot. Returns nil, nil when no snapshot
	// exists yet.
	Load() (*TraderState, error)
}

// TradeJournal appends committed trades to a durable audit log.
type TradeJournal interface {
	// Record appends one trade. Failures are logged by callers, never fatal.
	Record(trade Trade) error

	// Recent returns the last n trades, newest first.
	Recent(n int) ([]Trade, error)

	// Close releases underlying resources.
	Close() error
}

// TraderState is the persisted state document.
// Timestamps serialize as RFC 3339 via time.Time, losslessly.
type TraderState struct {
	Balance            float64               `json:"balance"`
	Positions          map[string]Position   `json:"positions"`
	Trades             []Trade               `json:"trades"`
	PerformanceHistory []PerformanceSnapshot `json:"performance_history"`
	TradingEnabled     bool                  `json:"trading_enabled"`
	LastSave           time.Time             `json:"last_save"`
}
