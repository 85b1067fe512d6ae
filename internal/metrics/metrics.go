// Package metrics exposes Prometheus metrics for the virtual trader.
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	CyclesSkipped   prometheus.Counter
	TradesTotal     *prometheus.CounterVec // labels: action
	ExitsTotal      *prometheus.CounterVec // labels: reason
	RejectionsTotal prometheus.Counter
	CycleDur        prometheus.Histogram

	Balance        prometheus.Gauge
	PortfolioValue prometheus.Gauge
	OpenPositions  prometheus.Gauge

	FeedErrors  *prometheus.CounterVec // labels: feed
	StateSaves  prometheus.Counter
	SaveErrors  prometheus.Counter
	AlertErrors prometheus.Counter
}

// New registers and returns all trader metrics on the default registry.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_cycles_total",
			Help: "Total completed analysis-and-trade cycles",
		}),
		CyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_cycles_skipped_total",
			Help: "Cycles skipped (trading disabled or market closed)",
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_trades_total",
			Help: "Committed trades by action",
		}, []string{"action"}),
		ExitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_exits_total",
			Help: "Risk-driven exits by reason",
		}, []string{"reason"}),
		RejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_order_rejections_total",
			Help: "Orders rejected by sizing rules (expected, silent no-ops)",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_cycle_duration_seconds",
			Help:    "Duration of one full trade cycle including persistence",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_balance_rubles",
			Help: "Free cash balance",
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_portfolio_value_rubles",
			Help: "Balance plus open positions at last known prices",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Number of open positions",
		}),
		FeedErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_feed_errors_total",
			Help: "Collaborator fetch failures by feed",
		}, []string{"feed"}),
		StateSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_state_saves_total",
			Help: "Successful state snapshot writes",
		}),
		SaveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_state_save_errors_total",
			Help: "Failed state snapshot writes",
		}),
		AlertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_alert_errors_total",
			Help: "Failed alert deliveries",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal, m.CyclesSkipped, m.TradesTotal, m.ExitsTotal,
		m.RejectionsTotal, m.CycleDur, m.Balance, m.PortfolioValue,
		m.OpenPositions, m.FeedErrors, m.StateSaves, m.SaveErrors,
		m.AlertErrors,
	)
	return m
}

// Serve starts the /metrics HTTP endpoint. Blocks; run in a goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("[metrics] serving on %s/metrics", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[metrics] server error: %v", err)
	}
}
