package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

const candlesPath = "/tinkoff.public.invest.api.contract.v1.MarketDataService/GetCandles"

// HistoryClient fetches daily OHLCV candles from the broker REST API.
// Instrument resolution (ticker → instrument id) is the API side's concern;
// the client sends tickers as-is.
type HistoryClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHistoryClient creates a history client for the given API base URL.
func NewHistoryClient(baseURL, token string) *HistoryClient {
	return &HistoryClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// quotation is the API's split decimal: units + nano/1e9.
type quotation struct {
	Units string `json:"units"`
	Nano  int64  `json:"nano"`
}

func (q quotation) Float() float64 {
	var units int64
	fmt.Sscanf(q.Units, "%d", &units)
	return float64(units) + float64(q.Nano)/1e9
}

type candleRow struct {
	Time   time.Time `json:"time"`
	Open   quotation `json:"open"`
	High   quotation `json:"high"`
	Low    quotation `json:"low"`
	Close  quotation `json:"close"`
	Volume string    `json:"volume"`
}

type candlesResponse struct {
	Candles []candleRow `json:"candles"`
}

// History fetches up to lookbackDays of daily bars in chronological order.
// An empty result is not an error; only transport/API faults are.
func (h *HistoryClient) History(ctx context.Context, ticker string, lookbackDays int) ([]model.Bar, error) {
	now := time.Now().UTC()
	payload, _ := json.Marshal(map[string]interface{}{
		"instrumentId": ticker,
		"from":         now.AddDate(0, 0, -lookbackDays).Format(time.RFC3339),
		"to":           now.Format(time.RFC3339),
		"interval":     "CANDLE_INTERVAL_DAY",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+candlesPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history fetch %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("history fetch %s: status %d: %s", ticker, resp.StatusCode, body)
	}

	var parsed candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("history parse %s: %w", ticker, err)
	}

	bars := make([]model.Bar, 0, len(parsed.Candles))
	for _, c := range parsed.Candles {
		var volume int64
		fmt.Sscanf(c.Volume, "%d", &volume)
		bars = append(bars, model.Bar{
			Time:   c.Time,
			Open:   c.Open.Float(),
			High:   c.High.Float(),
			Low:    c.Low.Float(),
			Close:  c.Close.Float(),
			Volume: volume,
		})
	}
	return bars, nil
}
