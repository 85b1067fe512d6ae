package model

import "time"

// PositionSummary is one portfolio line item valued at current prices.
type PositionSummary struct {
	Ticker        string  `json:"ticker"`
	Shares        int64   `json:"shares"`
	AvgPrice      float64 `json:"avg_price"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profit_percent"`
}

// PortfolioSummary is the externally visible portfolio view.
type PortfolioSummary struct {
	Balance            float64           `json:"balance"`
	TotalValue         float64           `json:"total_value"`
	Invested           float64           `json:"invested"`
	Positions          []PositionSummary `json:"positions"`
	TotalProfit        float64           `json:"total_profit"`
	TotalProfitPercent float64           `json:"total_profit_percent"`
	PositionCount      int               `json:"position_count"`
}

// PerformanceSnapshot is one point of the performance history.
type PerformanceSnapshot struct {
	Timestamp          time.Time `json:"timestamp"`
	Balance            float64   `json:"balance"`
	TotalValue         float64   `json:"total_value"`
	Invested           float64   `json:"invested"`
	TotalProfit        float64   `json:"total_profit"`
	TotalProfitPercent float64   `json:"total_profit_percent"`
	PositionCount      int       `json:"position_count"`
}
