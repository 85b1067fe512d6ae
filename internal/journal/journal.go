// Package journal persists committed trades to SQLite for analysis and audit.
// The journal is append-only and secondary to the JSON state snapshot: a
// journal failure never blocks trading.
package journal

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is a SQLite-backed trade log.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the journal database with WAL mode and schema.
func Open(dbPath string) (*Journal, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		ts            TEXT    NOT NULL,
		ticker        TEXT    NOT NULL,
		action        TEXT    NOT NULL,
		shares        INTEGER NOT NULL,
		price         REAL    NOT NULL,
		cost          REAL    DEFAULT 0,
		revenue       REAL    DEFAULT 0,
		fee           REAL    DEFAULT 0,
		profit        REAL    DEFAULT 0,
		confidence    REAL    DEFAULT 0,
		reason        TEXT,
		balance_after REAL    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker);
	CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// Record appends one trade.
func (j *Journal) Record(trade model.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (ts, ticker, action, shares, price, cost, revenue, fee, profit, confidence, reason, balance_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Timestamp.UTC().Format(time.RFC3339Nano),
		trade.Ticker,
		string(trade.Action),
		trade.Shares,
		trade.Price,
		trade.Cost,
		trade.Revenue,
		trade.Fee,
		trade.Profit,
		trade.Confidence,
		trade.Reason,
		trade.BalanceAfter,
	)
	return err
}

// Recent returns the last n trades, newest first.
func (j *Journal) Recent(n int) ([]model.Trade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT ts, ticker, action, shares, price, cost, revenue, fee, profit, confidence, reason, balance_after
		 FROM trades ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var ts, action, reason string
		if err := rows.Scan(&ts, &t.Ticker, &action, &t.Shares, &t.Price, &t.Cost,
			&t.Revenue, &t.Fee, &t.Profit, &t.Confidence, &reason, &t.BalanceAfter); err != nil {
			continue
		}
		t.Action = model.Action(action)
		t.Reason = reason
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			t.Timestamp = parsed
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
