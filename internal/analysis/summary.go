package analysis

import (
	"sort"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// SummarizeLevels partitions the unified level list into key and minor
// levels. Confluence always makes a level key regardless of its numeric
// strength; everything else needs strength at or above the threshold.
// Both partitions keep price-ascending order.
func SummarizeLevels(levels []types.Level, currentPrice float64, timeframes []string, cfg Config) types.LevelSummary {
	cfg = cfg.Normalize()
	summary := types.LevelSummary{
		CurrentPrice: currentPrice,
		Timeframes:   timeframes,
	}
	for _, lv := range levels {
		if lv.IsConfluence || lv.Strength >= cfg.KeyStrength {
			summary.KeyLevels = append(summary.KeyLevels, lv)
		} else {
			summary.MinorLevels = append(summary.MinorLevels, lv)
		}
	}
	sort.SliceStable(summary.KeyLevels, func(i, j int) bool {
		return summary.KeyLevels[i].Price < summary.KeyLevels[j].Price
	})
	sort.SliceStable(summary.MinorLevels, func(i, j int) bool {
		return summary.MinorLevels[i].Price < summary.MinorLevels[j].Price
	})
	return summary
}

// ResolveKind classifies unspecified levels against the live price:
// below means support, above resistance. Levels with a known kind are
// returned as-is.
func ResolveKind(lv types.Level, currentPrice float64) types.LevelKind {
	if lv.Kind != types.KindUnspecified {
		return lv.Kind
	}
	switch {
	case lv.Price < currentPrice:
		return types.KindSupport
	case lv.Price > currentPrice:
		return types.KindResistance
	default:
		return types.KindUnspecified
	}
}

// NearestLevels returns the closest support below and resistance above
// the current price, resolving unspecified kinds first. Either result
// may be nil.
func NearestLevels(levels []types.Level, currentPrice float64) (support, resistance *types.Level) {
	for i := range levels {
		lv := &levels[i]
		switch ResolveKind(*lv, currentPrice) {
		case types.KindSupport:
			if lv.Price < currentPrice && (support == nil || lv.Price > support.Price) {
				support = lv
			}
		case types.KindResistance:
			if lv.Price > currentPrice && (resistance == nil || lv.Price < resistance.Price) {
				resistance = lv
			}
		}
	}
	return support, resistance
}
