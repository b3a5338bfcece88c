package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// DetectGaps finds price gaps between consecutive bars. Wick gaps (the
// incoming bar's range does not overlap the prior bar's) are detected
// first; body gaps (open vs prior close) catch openings where the wicks
// still overlap. Gaps smaller than minGapPct (percent of the prior
// close, inclusive boundary) are discarded. The input series is never
// mutated.
func DetectGaps(s types.Series, minGapPct float64) []types.Gap {
	if len(s.Bars) < 2 || minGapPct <= 0 {
		return nil
	}

	var gaps []types.Gap
	for i := 1; i < len(s.Bars); i++ {
		prev, curr := s.Bars[i-1], s.Bars[i]
		if prev.Close == 0 {
			continue
		}

		switch {
		case curr.Low > prev.High:
			size := curr.Low - prev.High
			pct := size / prev.Close * 100
			if pct >= minGapPct {
				gaps = append(gaps, buildGap(s, i, prev.High, curr.Low, size, pct, types.GapUp))
			}
		case curr.High < prev.Low:
			size := prev.Low - curr.High
			pct := size / prev.Close * 100
			if pct >= minGapPct {
				gaps = append(gaps, buildGap(s, i, curr.High, prev.Low, size, pct, types.GapDown))
			}
		default:
			body := curr.Open - prev.Close
			pct := math.Abs(body) / prev.Close * 100
			if pct < minGapPct {
				continue
			}
			if body > 0 {
				gaps = append(gaps, buildGap(s, i, prev.Close, curr.Open, body, pct, types.GapUp))
			} else {
				gaps = append(gaps, buildGap(s, i, curr.Open, prev.Close, -body, pct, types.GapDown))
			}
		}
	}
	return gaps
}

func buildGap(s types.Series, idx int, low, high, size, sizePct float64, dir types.GapDirection) types.Gap {
	g := types.Gap{
		Date:      s.Bars[idx].Time,
		Direction: dir,
		Low:       low,
		High:      high,
		Size:      size,
		SizePct:   sizePct,
		BarsSince: len(s.Bars) - 1 - idx,
	}
	g.Filled, g.FillPct, g.FillDate = checkFill(s, idx, low, high, dir)
	g.Type = classifyGap(s, idx, sizePct)
	g.Severity = gapSeverity(g, len(s.Bars))
	return g
}

// checkFill scans bars after the gap origin. A gap up fills once price
// trades down to the gap low; a gap down once price trades up to the gap
// high. Partial fill is the deepest penetration as a fraction of the
// gap range.
func checkFill(s types.Series, idx int, low, high float64, dir types.GapDirection) (bool, float64, time.Time) {
	size := high - low
	if size <= 0 {
		return true, 1, time.Time{}
	}
	var (
		maxFill  float64
		fillDate time.Time
	)
	for j := idx + 1; j < len(s.Bars); j++ {
		b := s.Bars[j]
		if dir == types.GapUp {
			if b.Low <= low {
				return true, 1, b.Time
			}
			if pen := high - b.Low; pen > 0 && pen/size > maxFill {
				maxFill = pen / size
				fillDate = b.Time
			}
		} else {
			if b.High >= high {
				return true, 1, b.Time
			}
			if pen := b.High - low; pen > 0 && pen/size > maxFill {
				maxFill = pen / size
				fillDate = b.Time
			}
		}
	}
	return false, maxFill, fillDate
}

// classifyGap assigns common/breakaway/runaway/exhaustion from the
// preceding trend, consolidation range, and volume context. The rules
// are heuristic but deterministic for identical input.
func classifyGap(s types.Series, idx int, sizePct float64) types.GapType {
	lookback := 20
	if idx < lookback {
		lookback = idx
	}
	if lookback < 5 {
		return types.GapCommon
	}
	window := s.Bars[idx-lookback : idx]

	volumeSpike := false
	if hasVolume(window) {
		avg := 0.0
		for _, b := range window {
			avg += b.Volume
		}
		avg /= float64(len(window))
		if avg > 0 && s.Bars[idx].Volume > avg*1.5 {
			volumeSpike = true
		}
	}

	first, last := window[0].Close, window[len(window)-1].Close
	trendPct := 0.0
	if first != 0 {
		trendPct = (last - first) / first * 100
	}

	hi, lo, closeSum := window[0].High, window[0].Low, 0.0
	for _, b := range window {
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
		closeSum += b.Close
	}
	meanClose := closeSum / float64(len(window))
	inConsolidation := meanClose > 0 && (hi-lo)/meanClose*100 < 15

	switch {
	case inConsolidation && volumeSpike:
		return types.GapBreakaway
	case math.Abs(trendPct) > 20 && !volumeSpike:
		return types.GapExhaustion
	case math.Abs(trendPct) > 10 && volumeSpike:
		return types.GapRunaway
	case sizePct < 3:
		return types.GapCommon
	case volumeSpike && math.Abs(trendPct) > 5:
		return types.GapBreakaway
	default:
		return types.GapCommon
	}
}

// gapSeverity scores size, type, fill status and recency into a 1-10
// priority used for ranking.
func gapSeverity(g types.Gap, totalBars int) int {
	score := 0.0

	switch {
	case g.SizePct >= 10:
		score += 3
	case g.SizePct >= 5:
		score += 2
	case g.SizePct >= 3:
		score += 1.5
	default:
		score += 1
	}

	switch g.Type {
	case types.GapBreakaway:
		score += 3
	case types.GapRunaway:
		score += 2.5
	case types.GapExhaustion:
		score += 1.5
	default:
		score += 1
	}

	if !g.Filled {
		score += 2
	} else {
		score += 0.5
	}

	if totalBars > 0 {
		score += (1 - float64(g.BarsSince)/float64(totalBars)) * 2
	}

	n := int(math.Round(score))
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	return n
}

// PrioritizeGaps orders unfilled gaps first, then by severity and size.
// It returns a new slice.
func PrioritizeGaps(gaps []types.Gap) []types.Gap {
	out := make([]types.Gap, len(gaps))
	copy(out, gaps)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Filled != out[j].Filled {
			return !out[i].Filled
		}
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].SizePct > out[j].SizePct
	})
	return out
}

// UnfilledGaps filters to gaps price has not yet retraced through.
func UnfilledGaps(gaps []types.Gap) []types.Gap {
	var out []types.Gap
	for _, g := range gaps {
		if !g.Filled {
			out = append(out, g)
		}
	}
	return out
}

func hasVolume(bars []types.Bar) bool {
	for _, b := range bars {
		if b.Volume > 0 {
			return true
		}
	}
	return false
}
