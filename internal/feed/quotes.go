package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	quoteStaleAfter  = 5 * time.Minute
	reconnectBase    = 1 * time.Second
	reconnectMax     = 60 * time.Second
	quoteReadTimeout = 90 * time.Second
)

// quoteMsg is one streamed quote.
type quoteMsg struct {
	Ticker string    `json:"ticker"`
	Price  float64   `json:"price"`
	TS     time.Time `json:"ts"`
}

type quoteEntry struct {
	price float64
	seen  time.Time
}

// QuoteStream maintains the latest-price map from a WebSocket quote feed.
// It reconnects with exponential backoff and answers Price lookups from
// memory; quotes older than quoteStaleAfter are treated as unavailable.
type QuoteStream struct {
	url string

	mu     sync.RWMutex
	quotes map[string]quoteEntry

	now func() time.Time
}

// NewQuoteStream creates a quote stream client for the given WebSocket URL.
// Call Run to start consuming.
func NewQuoteStream(url string) *QuoteStream {
	return &QuoteStream{
		url:    url,
		quotes: make(map[string]quoteEntry, 64),
		now:    time.Now,
	}
}

// Price returns the latest fresh quote for ticker.
func (q *QuoteStream) Price(ctx context.Context, ticker string) (float64, bool) {
	q.mu.RLock()
	entry, ok := q.quotes[ticker]
	q.mu.RUnlock()
	if !ok || q.now().Sub(entry.seen) > quoteStaleAfter {
		return 0, false
	}
	return entry.price, true
}

// Run consumes the quote stream until ctx is cancelled, reconnecting on
// any read or dial failure. Blocks; run in a goroutine.
func (q *QuoteStream) Run(ctx context.Context) {
	backoff := reconnectBase
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, q.url, nil)
		if err != nil {
			log.Printf("[feed] quote dial failed, retrying in %v: %v", backoff, err)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		log.Printf("[feed] quote stream connected: %s", q.url)
		backoff = reconnectBase

		q.readLoop(ctx, conn)
		conn.Close()
	}
}

func (q *QuoteStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock reads when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(q.now().Add(quoteReadTimeout))
		var msg quoteMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				log.Printf("[feed] quote read error, reconnecting: %v", err)
			}
			return
		}
		if msg.Ticker == "" || msg.Price <= 0 {
			continue
		}
		q.mu.Lock()
		q.quotes[msg.Ticker] = quoteEntry{price: msg.Price, seen: q.now()}
		q.mu.Unlock()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > reconnectMax {
		return reconnectMax
	}
	return d
}
