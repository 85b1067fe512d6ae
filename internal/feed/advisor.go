// Package feed implements the engine's collaborators: the advisor
// recommendation feed (Redis), the streaming quote client (WebSocket), and
// the daily-candle history client (REST).
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// advisorKey is where the analysis process publishes its latest
	// recommendation document as JSON.
	advisorKey = "advisor:recommendation:latest"
	// pricesKey is a hash of ticker → last price maintained by the
	// market-data side.
	pricesKey = "prices:latest"
)

// RedisFeed reads advisor recommendations and fallback prices from Redis.
type RedisFeed struct {
	client *goredis.Client
	maxAge time.Duration // recommendations older than this are rejected
}

// NewRedisFeed connects to Redis and pings it.
// maxAge 0 disables the freshness check.
func NewRedisFeed(addr, password string, maxAge time.Duration) (*RedisFeed, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[feed] connected to redis at %s", addr)
	return &RedisFeed{client: client, maxAge: maxAge}, nil
}

// Latest returns the most recent recommendation document.
func (f *RedisFeed) Latest(ctx context.Context) (*model.Recommendation, error) {
	data, err := f.client.Get(ctx, advisorKey).Bytes()
	if err == goredis.Nil {
		return nil, fmt.Errorf("no recommendation published")
	}
	if err != nil {
		return nil, fmt.Errorf("recommendation fetch: %w", err)
	}

	var rec model.Recommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("recommendation parse: %w", err)
	}
	if f.maxAge > 0 && !rec.Timestamp.IsZero() && time.Since(rec.Timestamp) > f.maxAge {
		return nil, fmt.Errorf("recommendation stale: published %s", rec.Timestamp.Format(time.RFC3339))
	}
	return &rec, nil
}

// Price reads the last published price for ticker from the price hash.
func (f *RedisFeed) Price(ctx context.Context, ticker string) (float64, bool) {
	val, err := f.client.HGet(ctx, pricesKey, ticker).Result()
	if err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// Close releases the Redis connection.
func (f *RedisFeed) Close() error {
	return f.client.Close()
}

// ChainPrices queries providers in order and returns the first fresh price.
type ChainPrices []model.PriceProvider

func (c ChainPrices) Price(ctx context.Context, ticker string) (float64, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if price, ok := p.Price(ctx, ticker); ok {
			return price, true
		}
	}
	return 0, false
}
