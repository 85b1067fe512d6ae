package indicator

import (
	"sync"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

// Engine computes snapshots for tickers and caches them with a TTL.
// The cache is owned by the Engine instance — there is no package-level
// mutable state. Safe for concurrent use.
type Engine struct {
	shortWindow int
	longWindow  int
	rsiPeriod   int
	ttl         time.Duration

	mu    sync.Mutex
	cache map[string]Snapshot

	now func() time.Time // overridable in tests
}

// NewEngine creates an indicator engine with the given windows and cache TTL.
func NewEngine(shortWindow, longWindow, rsiPeriod int, ttl time.Duration) *Engine {
	return &Engine{
		shortWindow: shortWindow,
		longWindow:  longWindow,
		rsiPeriod:   rsiPeriod,
		ttl:         ttl,
		cache:       make(map[string]Snapshot, 16),
		now:         time.Now,
	}
}

// SnapshotFor returns the indicator snapshot for ticker. A cached snapshot
// younger than the TTL is returned without recomputation; otherwise the
// snapshot is rebuilt from bars and cached.
func (e *Engine) SnapshotFor(ticker string, bars []model.Bar) Snapshot {
	now := e.now()

	e.mu.Lock()
	if snap, ok := e.cache[ticker]; ok && now.Sub(snap.ComputedAt) < e.ttl {
		e.mu.Unlock()
		return snap
	}
	e.mu.Unlock()

	snap := Compute(bars, e.shortWindow, e.longWindow, e.rsiPeriod, now)

	e.mu.Lock()
	e.cache[ticker] = snap
	e.mu.Unlock()
	return snap
}

// Invalidate drops the cached snapshot for ticker.
func (e *Engine) Invalidate(ticker string) {
	e.mu.Lock()
	delete(e.cache, ticker)
	e.mu.Unlock()
}
