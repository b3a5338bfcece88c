package ta

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

const (
	rsiPeriod    = 14
	atrPeriod    = 14
	bbPeriod     = 20
	bbDeviations = 2.0
)

// Snapshot computes the point-in-time indicator set attached to a
// report: the configured SMAs, RSI(14), Bollinger(20, 2) and ATR(14).
// Indicators whose period exceeds the series length are left as NaN so
// downstream formatting can skip them.
func Snapshot(s types.Series, smaPeriods []int) types.Indicators {
	out := types.Indicators{SMA: make(map[int]float64, len(smaPeriods))}
	out.RSI = math.NaN()
	out.ATR = math.NaN()
	out.BB.Middle, out.BB.Upper, out.BB.Lower = math.NaN(), math.NaN(), math.NaN()

	n := len(s.Bars)
	if n == 0 {
		return out
	}
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range s.Bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	for _, p := range smaPeriods {
		if p <= 0 || n < p {
			continue
		}
		out.SMA[p] = last(talib.Sma(closes, p))
	}

	if n > rsiPeriod {
		out.RSI = last(talib.Rsi(closes, rsiPeriod))
	}
	if n >= bbPeriod {
		upper, middle, lower := talib.BBands(closes, bbPeriod, bbDeviations, bbDeviations, talib.SMA)
		out.BB.Upper = last(upper)
		out.BB.Middle = last(middle)
		out.BB.Lower = last(lower)
	}
	if n > atrPeriod {
		out.ATR = last(talib.Atr(highs, lows, closes, atrPeriod))
	}
	return out
}

func last(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}
