package analysis

import (
	"math"
	"sort"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// IdentifyZones detects supply/demand zones: a consolidation base
// followed by an explosive move away from it. The base's high-low range
// becomes the zone; an upward explosion marks demand, downward supply.
// Zones are per-timeframe and never enter cross-timeframe confluence.
func IdentifyZones(s types.Series, cfg Config) []types.Zone {
	cfg = cfg.Normalize()
	if len(s.Bars) < 5 {
		return nil
	}
	bars := s.Bars

	volAvg, volOK := averageVolume(bars)

	var zones []types.Zone
	for pos := 2; pos < len(bars); pos++ {
		movePct, dir := barMove(bars[pos])
		if movePct < cfg.MinMovePct || dir == 0 {
			continue
		}

		start, end, ok := findBase(bars, pos, cfg.ConsolidationBars, movePct)
		if !ok {
			continue
		}

		zoneLo, zoneHi := bars[start].Low, bars[start].High
		for i := start; i <= end; i++ {
			if bars[i].Low < zoneLo {
				zoneLo = bars[i].Low
			}
			if bars[i].High > zoneHi {
				zoneHi = bars[i].High
			}
		}

		pre := preMoveDirection(bars, start)
		var kind types.ZoneKind
		var pattern types.ZonePattern
		if dir > 0 {
			kind = types.ZoneDemand
			if pre > 0 {
				pattern = types.PatternRBR
			} else {
				pattern = types.PatternDBR
			}
		} else {
			kind = types.ZoneSupply
			if pre < 0 {
				pattern = types.PatternDBD
			} else {
				pattern = types.PatternRBD
			}
		}

		volumeConfirmed := volOK && volAvg > 0 && bars[pos].Volume > volAvg*cfg.VolumeSpikeMult
		fresh, tests := zoneFreshness(bars, pos, zoneLo, zoneHi)

		widthPct := 0.0
		if mid := (zoneHi + zoneLo) / 2; mid > 0 {
			widthPct = (zoneHi - zoneLo) / mid * 100
		}

		zones = append(zones, types.Zone{
			Kind:            kind,
			Pattern:         pattern,
			Low:             zoneLo,
			High:            zoneHi,
			Start:           bars[start].Time,
			End:             bars[end].Time,
			Strength:        zoneStrength(movePct, volumeConfirmed, fresh, tests, pattern, widthPct),
			Fresh:           fresh,
			TestCount:       tests,
			VolumeConfirmed: volumeConfirmed,
			MoveSizePct:     movePct,
			Timeframe:       s.Timeframe,
		})
	}

	zones = dedupeZones(zones)
	sort.SliceStable(zones, func(i, j int) bool { return zones[i].Strength > zones[j].Strength })
	return zones
}

// barMove is the open-to-close body move in percent, with direction
// +1/-1 (0 for a doji or zero open).
func barMove(b types.Bar) (float64, int) {
	if b.Open == 0 {
		return 0, 0
	}
	pct := math.Abs(b.Close-b.Open) / b.Open * 100
	switch {
	case b.Close > b.Open:
		return pct, 1
	case b.Close < b.Open:
		return pct, -1
	default:
		return 0, 0
	}
}

// findBase walks backward from the explosive bar collecting narrow-range
// bars. A bar belongs to the base while its range stays under 70% of
// the explosive move.
func findBase(bars []types.Bar, explosive, maxBars int, movePct float64) (start, end int, ok bool) {
	end = explosive - 1
	if end < 0 {
		return 0, 0, false
	}
	start = end
	for i := end; i > end-maxBars && i >= 0; i-- {
		mid := (bars[i].High + bars[i].Low) / 2
		if mid == 0 {
			break
		}
		rangePct := bars[i].Range() / mid * 100
		if rangePct < movePct*0.7 {
			start = i
		} else {
			break
		}
	}
	if start == end && end > 0 {
		start = end - 1
	}
	return start, end, true
}

// preMoveDirection is the price direction leading into the base.
func preMoveDirection(bars []types.Bar, baseStart int) int {
	lookback := 5
	if baseStart < lookback {
		lookback = baseStart
	}
	if lookback < 1 {
		return 0
	}
	pre := bars[baseStart-lookback].Close
	at := bars[baseStart].Close
	switch {
	case at > pre:
		return 1
	case at < pre:
		return -1
	default:
		return 0
	}
}

// zoneFreshness counts post-move returns into the zone. A fresh zone
// was never revisited.
func zoneFreshness(bars []types.Bar, explosive int, lo, hi float64) (bool, int) {
	tests := 0
	for i := explosive + 1; i < len(bars); i++ {
		if bars[i].Low <= hi && bars[i].High >= lo {
			tests++
		}
	}
	return tests == 0, tests
}

// zoneStrength combines move magnitude, volume confirmation, freshness,
// pattern quality and zone tightness into a 1-10 score. Reversal
// patterns (DBR, RBD) outrank continuations.
func zoneStrength(movePct float64, volumeConfirmed, fresh bool, tests int, pattern types.ZonePattern, widthPct float64) int {
	score := 0.0

	switch {
	case movePct >= 8:
		score += 3
	case movePct >= 5:
		score += 2
	case movePct >= 3:
		score += 1.5
	default:
		score += 1
	}

	if volumeConfirmed {
		score += 2
	}

	if fresh {
		score += 2
	} else if tests <= 1 {
		score += 1
	}

	switch pattern {
	case types.PatternDBR, types.PatternRBD:
		score += 2
	case types.PatternRBR, types.PatternDBD:
		score += 1.5
	default:
		score += 1
	}

	if widthPct < 2 {
		score += 1
	} else if widthPct < 5 {
		score += 0.5
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

// dedupeZones removes zones overlapping more than half of the narrower
// zone's width, keeping the stronger one.
func dedupeZones(zones []types.Zone) []types.Zone {
	if len(zones) <= 1 {
		return zones
	}
	sorted := make([]types.Zone, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })

	out := []types.Zone{sorted[0]}
	for _, z := range sorted[1:] {
		prev := &out[len(out)-1]
		overlap := math.Min(prev.High, z.High) - math.Max(prev.Low, z.Low)
		minWidth := math.Min(prev.Width(), z.Width())
		if minWidth > 0 && overlap/minWidth > 0.5 {
			if z.Strength > prev.Strength {
				*prev = z
			}
		} else {
			out = append(out, z)
		}
	}
	return out
}

func averageVolume(bars []types.Bar) (float64, bool) {
	if !hasVolume(bars) {
		return 0, false
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars)), true
}
