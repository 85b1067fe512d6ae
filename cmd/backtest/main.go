// cmd/backtest replays historical daily bars through the MA-crossover
// strategy and prints a performance summary.
//
// Bars come either from a JSON file (--bars) or from the candle history API
// (--ticker with HISTORY_TOKEN set).
//
// Usage:
//
//	go run ./cmd/backtest --ticker=SBER --days=365
//	go run ./cmd/backtest --bars=testdata/sber.json --short=5 --long=20
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Zetan9/birzhAIbot/config"
	"github.com/Zetan9/birzhAIbot/internal/backtest"
	"github.com/Zetan9/birzhAIbot/internal/feed"
	"github.com/Zetan9/birzhAIbot/internal/model"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	ticker := flag.String("ticker", "", "Instrument ticker (fetches bars from the history API)")
	barsFile := flag.String("bars", "", "Path to a JSON file with daily bars (overrides --ticker fetch)")
	days := flag.Int("days", 365, "Lookback window in days when fetching history")
	shortW := flag.Int("short", 5, "Short MA window")
	longW := flag.Int("long", 20, "Long MA window")
	capital := flag.Float64("capital", 1000000, "Initial capital")
	fee := flag.Float64("fee", 0.003, "Commission per trade side")
	jsonOut := flag.Bool("json", false, "Print the full result as JSON instead of a summary")
	flag.Parse()

	bars, name, err := loadBars(*barsFile, *ticker, *days)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	if len(bars) < *longW+1 {
		log.Fatalf("[backtest] only %d bars, need at least %d for the long MA", len(bars), *longW+1)
	}
	log.Printf("[backtest] %s: %d bars, MA %d/%d, capital %.0f, fee %.4f",
		name, len(bars), *shortW, *longW, *capital, *fee)

	signals := backtest.GenerateMASignals(bars, *shortW, *longW)
	result := backtest.New(*capital, *fee).Run(name, bars, signals)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Ticker:            %-16s ║\n", result.Ticker)
	fmt.Printf("║  Bars:              %-16d ║\n", len(bars))
	fmt.Printf("║  Trades:            %-16d ║\n", len(result.Trades))
	fmt.Printf("║  Final equity:      %-16.2f ║\n", result.FinalEquity)
	fmt.Printf("║  Total return:      %-15.2f%% ║\n", result.TotalReturn)
	fmt.Printf("║  Max drawdown:      %-15.2f%% ║\n", result.MaxDrawdown)
	fmt.Printf("║  Sharpe ratio:      %-16.2f ║\n", result.SharpeRatio)
	fmt.Println("╚══════════════════════════════════════╝")
}

func loadBars(barsFile, ticker string, days int) ([]model.Bar, string, error) {
	if barsFile != "" {
		data, err := os.ReadFile(barsFile)
		if err != nil {
			return nil, "", fmt.Errorf("read bars file: %w", err)
		}
		var bars []model.Bar
		if err := json.Unmarshal(data, &bars); err != nil {
			return nil, "", fmt.Errorf("parse bars file: %w", err)
		}
		name := ticker
		if name == "" {
			name = barsFile
		}
		return bars, name, nil
	}

	if ticker == "" {
		return nil, "", fmt.Errorf("either --bars or --ticker is required")
	}
	cfg := config.Load()
	if cfg.HistoryToken == "" {
		return nil, "", fmt.Errorf("HISTORY_TOKEN not set, cannot fetch %s", ticker)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := feed.NewHistoryClient(cfg.HistoryBaseURL, cfg.HistoryToken)
	bars, err := client.History(ctx, ticker, days)
	if err != nil {
		return nil, "", fmt.Errorf("fetch history for %s: %w", ticker, err)
	}
	return bars, ticker, nil
}
