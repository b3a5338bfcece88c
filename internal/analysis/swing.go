package analysis

import "github.com/marvinguevarra/trading-analyzer/internal/types"

// DetectSwingPoints scans the series with a symmetric window of `window`
// bars (odd, centered on the candidate) and flags strict local extrema.
// A bar is a swing high when its high is the strict maximum over the
// window, a swing low when its low is the strict minimum; the same bar
// can carry both flags. Bars within window/2 of either edge are never
// flagged, and a series shorter than the window yields an empty result
// rather than an error.
func DetectSwingPoints(s types.Series, window int) []types.SwingPoint {
	if window <= 0 || window%2 == 0 {
		return nil
	}
	half := window / 2
	if len(s.Bars) < window {
		return nil
	}

	out := make([]types.SwingPoint, 0, len(s.Bars)/5)
	for i := half; i < len(s.Bars)-half; i++ {
		hi, lo := true, true
		for j := i - half; j <= i+half; j++ {
			if j == i {
				continue
			}
			if s.Bars[j].High >= s.Bars[i].High {
				hi = false
			}
			if s.Bars[j].Low <= s.Bars[i].Low {
				lo = false
			}
			if !hi && !lo {
				break
			}
		}
		if hi {
			out = append(out, types.SwingPoint{
				Index:     i,
				Price:     s.Bars[i].High,
				Time:      s.Bars[i].Time,
				Kind:      types.SwingHigh,
				Timeframe: s.Timeframe,
			})
		}
		if lo {
			out = append(out, types.SwingPoint{
				Index:     i,
				Price:     s.Bars[i].Low,
				Time:      s.Bars[i].Time,
				Kind:      types.SwingLow,
				Timeframe: s.Timeframe,
			})
		}
	}
	return out
}
