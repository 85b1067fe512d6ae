// Package notification delivers trading alerts to external channels
// (Telegram, logs) for committed trades and risk exits.
package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// TradeAlert formats a committed trade as an alert. Sells driven by
// protective rules (stop-loss, trailing stop) escalate to WARNING.
func TradeAlert(trade model.Trade) Alert {
	level := AlertInfo
	if trade.Reason == model.ReasonStopLoss || trade.Reason == model.ReasonTrailingStop {
		level = AlertWarning
	}

	var msg string
	if trade.Action == model.ActionBuy {
		msg = fmt.Sprintf("BUY %d %s @ %.2f = %.0f RUB (fee %.0f, confidence %.2f)",
			trade.Shares, trade.Ticker, trade.Price, trade.Cost, trade.Fee, trade.Confidence)
	} else {
		msg = fmt.Sprintf("SELL %d %s @ %.2f = %.0f RUB (profit %+.0f, reason %s)",
			trade.Shares, trade.Ticker, trade.Price, trade.Revenue, trade.Profit, trade.Reason)
	}

	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("%s %s", trade.Action, trade.Ticker),
		Message: msg,
	}
}

// LogNotifier logs alerts instead of delivering them (default backend).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}
