package model

import "time"

// Exit reasons recorded on risk-driven sells.
const (
	ReasonMALongBreak   = "ma_long_break"
	ReasonMAShortBreak  = "ma_short_break"
	ReasonRSIOverbought = "rsi_overbought"
	ReasonTakeProfit    = "take_profit"
	ReasonTrailingStop  = "trailing_stop"
	ReasonStopLoss      = "stop_loss"
	ReasonAdvisor       = "advisor"
	ReasonManual        = "manual"
)

// Trade is an immutable record of one committed buy or sell.
// Cost is set on buys, Revenue and Profit on sells.
type Trade struct {
	Timestamp    time.Time `json:"timestamp"`
	Ticker       string    `json:"ticker"`
	Action       Action    `json:"action"`
	Shares       int64     `json:"shares"`
	Price        float64   `json:"price"`
	Cost         float64   `json:"cost,omitempty"`
	Revenue      float64   `json:"revenue,omitempty"`
	Fee          float64   `json:"fee"`
	Profit       float64   `json:"profit,omitempty"`
	Confidence   float64   `json:"confidence"`
	Reason       string    `json:"reason,omitempty"`
	BalanceAfter float64   `json:"balance_after"`
}
