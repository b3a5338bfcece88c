package analysis

import (
	"math"
	"sort"
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// ExtractLevels produces the deduplicated support/resistance levels for
// one timeframe. Four sources feed the candidate pool: swing pivots,
// volume-profile nodes, psychological round numbers (primary timeframe
// only, so higher timeframes don't flood confluence with round numbers
// at every scale) and moving-average clusters. Candidates within the
// tolerance band merge before output. The result is stamped with the
// series' timeframe and sorted by price ascending.
func ExtractLevels(s types.Series, cfg Config, primary bool) []types.Level {
	cfg = cfg.Normalize()
	if len(s.Bars) == 0 {
		return nil
	}
	bars := s.Bars
	if len(bars) > cfg.LookbackBars {
		bars = bars[len(bars)-cfg.LookbackBars:]
	}
	window := types.Series{Symbol: s.Symbol, Timeframe: s.Timeframe, Bars: bars}
	current := window.LastClose()
	if current <= 0 {
		return nil
	}
	tol := cfg.TolerancePct / 100

	var pool []types.Level
	pool = append(pool, pivotLevels(window, cfg)...)
	pool = append(pool, volumeNodes(window, cfg)...)
	if primary {
		pool = append(pool, roundNumbers(current, cfg)...)
	}
	pool = append(pool, maClusters(window, cfg)...)

	merged := mergeWithinBand(pool, tol)

	for i := range merged {
		touches, breaks, last := countTouches(window, merged[i].Price, tol, merged[i].Kind)
		merged[i].Touches += touches
		merged[i].Breaks = breaks
		if last.After(merged[i].LastTest) {
			merged[i].LastTest = last
		}
		merged[i].Strength = levelStrength(merged[i], current, len(bars))
		merged[i].Timeframe = s.Timeframe
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Price < merged[j].Price })
	return merged
}

// pivotLevels turns swing highs into resistance candidates and swing
// lows into support candidates.
func pivotLevels(s types.Series, cfg Config) []types.Level {
	swings := DetectSwingPoints(s, cfg.SwingWindow)
	out := make([]types.Level, 0, len(swings))
	for _, sp := range swings {
		kind := types.KindResistance
		if sp.Kind == types.SwingLow {
			kind = types.KindSupport
		}
		out = append(out, types.Level{
			Price:    sp.Price,
			Kind:     kind,
			Source:   types.SourceSwing,
			LastTest: sp.Time,
		})
	}
	return out
}

// volumeNodes bins traded volume into price buckets and keeps buckets
// more than one standard deviation above the mean. Skipped when volume
// is absent, all-equal, or the price range is degenerate.
func volumeNodes(s types.Series, cfg Config) []types.Level {
	if !hasVolume(s.Bars) || degenerateVolume(s.Bars) {
		return nil
	}
	lo, hi := s.Bars[0].Low, s.Bars[0].High
	for _, b := range s.Bars {
		if b.Low < lo {
			lo = b.Low
		}
		if b.High > hi {
			hi = b.High
		}
	}
	if hi <= lo {
		return nil
	}

	bins := cfg.VolumeBins
	binSize := (hi - lo) / float64(bins)
	profile := make([]float64, bins)
	for _, b := range s.Bars {
		if b.Volume <= 0 {
			continue
		}
		lb := int((b.Low - lo) / binSize)
		ub := int((b.High - lo) / binSize)
		if lb < 0 {
			lb = 0
		}
		if ub > bins-1 {
			ub = bins - 1
		}
		span := ub - lb + 1
		per := b.Volume / float64(span)
		for i := lb; i <= ub; i++ {
			profile[i] += per
		}
	}

	mean, sd := meanStd(profile)
	threshold := mean + sd
	var out []types.Level
	for i, v := range profile {
		if v > threshold {
			price := lo + (float64(i)+0.5)*binSize
			out = append(out, types.Level{
				Price:  price,
				Kind:   types.KindUnspecified,
				Source: types.SourceVolume,
			})
		}
	}
	return out
}

// roundNumbers generates psychological levels around the current price.
// The interval scales with the price's magnitude unless pinned by config.
func roundNumbers(current float64, cfg Config) []types.Level {
	interval := cfg.RoundNumberInterval
	if interval <= 0 {
		interval = roundInterval(current)
	}
	base := math.Floor(current/interval) * interval

	var out []types.Level
	for i := -cfg.RoundNumberCount; i <= cfg.RoundNumberCount; i++ {
		price := base + float64(i)*interval
		if price <= 0 {
			continue
		}
		out = append(out, types.Level{
			Price:  price,
			Kind:   types.KindUnspecified,
			Source: types.SourceRoundNumber,
		})
	}
	return out
}

func roundInterval(price float64) float64 {
	switch {
	case price < 10:
		return 1
	case price < 50:
		return 5
	case price < 200:
		return 10
	case price < 1000:
		return 50
	default:
		return 100
	}
}

// maClusters finds price zones where two or more moving averages sit
// within the tolerance band of each other.
func maClusters(s types.Series, cfg Config) []types.Level {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}

	var mas []float64
	for _, p := range cfg.MAPeriods {
		if len(closes) < p {
			continue
		}
		sma := talib.Sma(closes, p)
		v := sma[len(sma)-1]
		if !math.IsNaN(v) && v > 0 {
			mas = append(mas, v)
		}
	}
	if len(mas) < 2 {
		return nil
	}
	sort.Float64s(mas)

	tol := cfg.TolerancePct / 100
	var out []types.Level
	i := 0
	for i < len(mas) {
		j := i + 1
		for j < len(mas) && mas[j]-mas[i] <= mas[i]*tol {
			j++
		}
		if j-i >= 2 {
			sum := 0.0
			for _, v := range mas[i:j] {
				sum += v
			}
			out = append(out, types.Level{
				Price:  sum / float64(j-i),
				Kind:   types.KindUnspecified,
				Source: types.SourceMACluster,
			})
		}
		i = j
	}
	return out
}

// mergeWithinBand collapses candidates whose prices fall within the
// tolerance band. Touches sum; the surviving candidate is the one from
// the higher-priority source, with a strength increment per absorbed
// member applied later through Touches.
func mergeWithinBand(pool []types.Level, tol float64) []types.Level {
	if len(pool) == 0 {
		return nil
	}
	sorted := make([]types.Level, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	out := []types.Level{sorted[0]}
	for _, lv := range sorted[1:] {
		last := &out[len(out)-1]
		if lv.Price-last.Price <= last.Price*tol {
			if sourceRank(lv.Source) > sourceRank(last.Source) {
				lv.Touches += last.Touches + 1
				if last.LastTest.After(lv.LastTest) {
					lv.LastTest = last.LastTest
				}
				if lv.Kind == types.KindUnspecified {
					lv.Kind = last.Kind
				}
				*last = lv
			} else {
				last.Touches += lv.Touches + 1
				if lv.LastTest.After(last.LastTest) {
					last.LastTest = lv.LastTest
				}
			}
		} else {
			out = append(out, lv)
		}
	}
	return out
}

func sourceRank(src types.LevelSource) int {
	switch src {
	case types.SourceSwing:
		return 3
	case types.SourceVolume, types.SourceMACluster:
		return 2
	case types.SourceRoundNumber:
		return 1
	default:
		return 0
	}
}

// countTouches counts bars whose range overlaps the level's tolerance
// band, and closes that punched fully through it. For a support, a
// break is a close below the band; for a resistance, above; an
// unspecified level breaks in either direction.
func countTouches(s types.Series, price, tol float64, kind types.LevelKind) (touches, breaks int, last time.Time) {
	zoneLo := price * (1 - tol)
	zoneHi := price * (1 + tol)
	for _, b := range s.Bars {
		if b.Low > zoneHi || b.High < zoneLo {
			continue
		}
		touches++
		last = b.Time
		switch kind {
		case types.KindSupport:
			if b.Close < zoneLo {
				breaks++
			}
		case types.KindResistance:
			if b.Close > zoneHi {
				breaks++
			}
		default:
			if b.Close < zoneLo || b.Close > zoneHi {
				breaks++
			}
		}
	}
	return touches, breaks, last
}

// levelStrength scores a level on the open integer scale from touches,
// source quality, proximity to the current price, recency and held-vs-
// broken history.
func levelStrength(lv types.Level, current float64, totalBars int) int {
	if current <= 0 {
		return 1
	}
	score := 0.0

	switch {
	case lv.Touches >= 5:
		score += 3
	case lv.Touches >= 3:
		score += 2
	case lv.Touches >= 1:
		score += 1
	}
	score += float64(lv.Touches) * 0.5

	score += float64(sourceRank(lv.Source))

	distance := math.Abs(lv.Price-current) / current
	switch {
	case distance < 0.05:
		score += 2
	case distance < 0.10:
		score += 1.5
	case distance < 0.20:
		score += 1
	default:
		score += 0.5
	}

	if lv.Breaks == 0 {
		score += 2
	} else if lv.Breaks > lv.Touches/2 {
		score -= 2
	}

	n := int(math.Round(score))
	if n < 1 {
		n = 1
	}
	return n
}

// degenerateVolume reports all-zero or all-equal volume; either would
// produce a flat profile with no meaningful nodes.
func degenerateVolume(bars []types.Bar) bool {
	first := bars[0].Volume
	for _, b := range bars[1:] {
		if b.Volume != first {
			return false
		}
	}
	return true
}

func meanStd(vals []float64) (mean, sd float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	for _, v := range vals {
		d := v - mean
		sd += d * d
	}
	sd = math.Sqrt(sd / float64(len(vals)))
	return mean, sd
}
