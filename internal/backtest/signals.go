package backtest

import "github.com/Zetan9/birzhAIbot/internal/model"

// GenerateMASignals derives a crossover signal series from bars: buy when
// the short moving average crosses above the long one, sell when it crosses
// below. Indices without both averages (or without a previous value to
// detect a cross) stay at hold. Output length equals len(bars).
func GenerateMASignals(bars []model.Bar, shortWindow, longWindow int) []int {
	closes := model.Closes(bars)
	maShort, okShort := rollingMean(closes, shortWindow)
	maLong, okLong := rollingMean(closes, longWindow)

	signals := make([]int, len(bars))
	for i := 1; i < len(bars); i++ {
		if !okShort[i] || !okLong[i] || !okShort[i-1] || !okLong[i-1] {
			continue
		}
		switch {
		case maShort[i] > maLong[i] && maShort[i-1] <= maLong[i-1]:
			signals[i] = SignalBuy
		case maShort[i] < maLong[i] && maShort[i-1] >= maLong[i-1]:
			signals[i] = SignalSell
		}
	}
	return signals
}

// rollingMean computes a trailing window mean; ok[i] is false until the
// window is full.
func rollingMean(values []float64, window int) (means []float64, ok []bool) {
	means = make([]float64, len(values))
	ok = make([]bool, len(values))
	if window <= 0 {
		return means, ok
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			means[i] = sum / float64(window)
			ok[i] = true
		}
	}
	return means, ok
}
