package analysis

import (
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// mkBar builds a bar at day offset i from the test epoch.
func mkBar(i int, open, high, low, close, vol float64) types.Bar {
	return types.Bar{
		Time:   testEpoch.AddDate(0, 0, i),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: vol,
	}
}

// flatSeries builds n identical bars; handy as a quiet baseline that
// individual tests then distort.
func flatSeries(timeframe string, n int, open, high, low, close, vol float64) types.Series {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = mkBar(i, open, high, low, close, vol)
	}
	return types.Series{Symbol: "TEST", Timeframe: timeframe, Bars: bars}
}

func mkSeries(timeframe string, bars ...types.Bar) types.Series {
	return types.Series{Symbol: "TEST", Timeframe: timeframe, Bars: bars}
}
