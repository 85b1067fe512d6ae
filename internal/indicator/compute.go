// Package indicator computes technical indicators over daily bar series
// and caches per-ticker snapshots with a TTL.
//
// Indicators are pure functions of the supplied history. When the series is
// shorter than an indicator's window the value is reported as not ready;
// callers must treat not-ready as "no signal", never as a value.
package indicator

import (
	"time"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

// Snapshot holds the indicator values for one ticker at one instant.
// Each value carries its own readiness flag.
type Snapshot struct {
	MAShort      float64
	MALong       float64
	RSI          float64
	MAShortReady bool
	MALongReady  bool
	RSIReady     bool
	ComputedAt   time.Time
}

// Ready reports whether every indicator in the snapshot is defined.
func (s Snapshot) Ready() bool {
	return s.MAShortReady && s.MALongReady && s.RSIReady
}

// SMA returns the simple mean of the last window closes.
// Returns false when fewer than window values exist.
func SMA(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window {
		return 0, false
	}
	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), true
}

// RSI returns the Relative Strength Index over the close series using
// Wilder's smoothing: the first period deltas seed the averages, later
// deltas are smoothed with weight 1/period.
//
// Needs at least period+1 closes (period deltas). When the average loss is
// zero the RSI is 100 — an all-gains series is maximally overbought.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// Compute derives a full snapshot from a chronological bar series.
func Compute(bars []model.Bar, shortWindow, longWindow, rsiPeriod int, now time.Time) Snapshot {
	closes := model.Closes(bars)
	snap := Snapshot{ComputedAt: now}
	snap.MAShort, snap.MAShortReady = SMA(closes, shortWindow)
	snap.MALong, snap.MALongReady = SMA(closes, longWindow)
	snap.RSI, snap.RSIReady = RSI(closes, rsiPeriod)
	return snap
}
