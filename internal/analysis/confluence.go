package analysis

import (
	"sort"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// MergeConfluence pools the per-timeframe level sets and merges levels
// that are numerically close into single confluence levels with boosted
// strength and multi-timeframe provenance.
//
// The sweep walks the price-sorted pool left to right. A candidate
// joins the open group when its price is within the tolerance of the
// group's FIRST member's price; the reference never moves as members
// join, which is what keeps two sequential two-way merges equal to one
// three-way merge (a running-mean reference would re-anchor the group
// mid-sweep and break that).
//
// A group spanning two or more distinct timeframes emits one merged
// level: the price of its strongest member, summed strength plus the
// confluence bonus, summed touches, the union of timeframe labels and
// the latest last-test date. A single-timeframe group passes its
// members through unmodified; by definition confluence requires
// agreement across timeframes, so one timeframe alone never produces a
// confluence level no matter how many of its levels share a band.
//
// Empty per-timeframe inputs are skipped; an empty map yields nil.
func MergeConfluence(byTimeframe map[string][]types.Level, cfg Config) []types.Level {
	cfg = cfg.Normalize()
	tol := cfg.ConfluenceTolerancePct / 100

	var pool []types.Level
	for _, levels := range byTimeframe {
		pool = append(pool, levels...)
	}
	if len(pool) == 0 {
		return nil
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Price < pool[j].Price })

	var out []types.Level
	group := []types.Level{pool[0]}
	ref := pool[0].Price
	for _, lv := range pool[1:] {
		// Inclusive boundary: exactly tolerance apart still merges.
		if lv.Price-ref <= ref*tol {
			group = append(group, lv)
			continue
		}
		out = append(out, closeGroup(group, cfg)...)
		group = []types.Level{lv}
		ref = lv.Price
	}
	out = append(out, closeGroup(group, cfg)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// closeGroup emits the merged level for a multi-timeframe group, or the
// members untouched otherwise.
func closeGroup(group []types.Level, cfg Config) []types.Level {
	if len(group) == 1 {
		return group
	}
	frames := distinctTimeframes(group)
	if len(frames) < 2 {
		// Same-timeframe adjacency should not survive per-timeframe
		// dedup, but tolerate it: pass members through unchanged.
		return group
	}

	merged := types.Level{
		Source:               group[0].Source,
		IsConfluence:         true,
		ConfluenceTimeframes: frames,
	}

	strongest := 0
	kind := group[0].Kind
	kindsAgree := true
	for i, lv := range group {
		merged.Strength += lv.Strength
		merged.Touches += lv.Touches
		merged.Breaks += lv.Breaks
		if lv.LastTest.After(merged.LastTest) {
			merged.LastTest = lv.LastTest
		}
		if lv.Strength > group[strongest].Strength {
			strongest = i
		}
		if lv.Kind != kind {
			kindsAgree = false
		}
	}
	merged.Price = group[strongest].Price
	merged.Source = group[strongest].Source
	merged.Strength += cfg.ConfluenceBonus
	merged.Timeframe = joinFrames(frames)

	// Members disagreeing on direction stay unresolved; the consumer
	// decides against the live price.
	if kindsAgree {
		merged.Kind = kind
	} else {
		merged.Kind = types.KindUnspecified
	}

	return []types.Level{merged}
}

// distinctTimeframes unions the contributing frames. An already-merged
// confluence level (from a prior two-way merge) contributes its whole
// provenance set, not its display label.
func distinctTimeframes(group []types.Level) []string {
	seen := make(map[string]bool, len(group))
	var frames []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			frames = append(frames, f)
		}
	}
	for _, lv := range group {
		if lv.IsConfluence {
			for _, f := range lv.ConfluenceTimeframes {
				add(f)
			}
		} else {
			add(lv.Timeframe)
		}
	}
	sort.Strings(frames)
	return frames
}

func joinFrames(frames []string) string {
	out := ""
	for i, f := range frames {
		if i > 0 {
			out += " + "
		}
		out += f
	}
	return out
}
