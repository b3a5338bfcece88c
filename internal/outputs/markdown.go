// Package outputs renders finished reports to their on-disk formats.
package outputs

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// Markdown renders the report as a human-readable brief.
func Markdown(r *types.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s — Support/Resistance Analysis\n\n", r.Symbol)
	fmt.Fprintf(&sb, "Run `%s`, generated %s.\n\n", r.RunID, r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&sb, "**Current price:** %s  \n", price(r.CurrentPrice))
	fmt.Fprintf(&sb, "**Timeframes:** %s  \n", strings.Join(r.Timeframes, ", "))
	if r.CostUSD > 0 {
		fmt.Fprintf(&sb, "**Model spend:** $%.4f  \n", r.CostUSD)
	}
	sb.WriteString("\n")

	sb.WriteString("## Key Levels\n\n")
	if len(r.Levels.KeyLevels) == 0 {
		sb.WriteString("No key levels identified.\n\n")
	} else {
		sb.WriteString("| Price | Kind | Strength | Source | Touches | Timeframes |\n")
		sb.WriteString("|-------|------|----------|--------|---------|------------|\n")
		for _, lv := range r.Levels.KeyLevels {
			sb.WriteString(levelRow(lv))
		}
		sb.WriteString("\n")
	}

	if len(r.Levels.MinorLevels) > 0 {
		sb.WriteString("## Minor Levels\n\n")
		sb.WriteString("| Price | Kind | Strength | Source | Touches | Timeframes |\n")
		sb.WriteString("|-------|------|----------|--------|---------|------------|\n")
		for _, lv := range r.Levels.MinorLevels {
			sb.WriteString(levelRow(lv))
		}
		sb.WriteString("\n")
	}

	if len(r.Zones) > 0 {
		sb.WriteString("## Supply/Demand Zones\n\n")
		for _, z := range r.Zones {
			freshness := "tested"
			if z.Fresh {
				freshness = "fresh"
			}
			fmt.Fprintf(&sb, "- **%s** %s %s–%s (%s, %s, strength %d, %d tests)\n",
				z.Kind, z.Timeframe, price(z.Low), price(z.High), z.Pattern, freshness, z.Strength, z.TestCount)
		}
		sb.WriteString("\n")
	}

	if len(r.Gaps) > 0 {
		sb.WriteString("## Gaps\n\n")
		for _, g := range r.Gaps {
			status := "unfilled"
			if g.Filled {
				status = "filled " + humanize.Time(g.FillDate)
			} else if g.FillPct > 0 {
				status = fmt.Sprintf("%.0f%% filled", g.FillPct*100)
			}
			fmt.Fprintf(&sb, "- %s **%s %s gap** %s–%s (%.2f%%), %s, severity %d/10\n",
				g.Date.Format("2006-01-02"), g.Type, g.Direction, price(g.Low), price(g.High), g.SizePct, status, g.Severity)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Indicators\n\n")
	if !math.IsNaN(r.Indicators.RSI) {
		fmt.Fprintf(&sb, "- RSI(14): %.1f\n", r.Indicators.RSI)
	}
	if !math.IsNaN(r.Indicators.ATR) {
		fmt.Fprintf(&sb, "- ATR(14): %.2f\n", r.Indicators.ATR)
	}
	if !math.IsNaN(r.Indicators.BB.Middle) {
		fmt.Fprintf(&sb, "- Bollinger(20,2): %s / %s / %s\n",
			price(r.Indicators.BB.Lower), price(r.Indicators.BB.Middle), price(r.Indicators.BB.Upper))
	}
	for _, period := range smaPeriods(r.Indicators.SMA) {
		fmt.Fprintf(&sb, "- SMA%d: %s\n", period, price(r.Indicators.SMA[period]))
	}
	sb.WriteString("\n")

	if r.News != nil && r.News.ArticleCount > 0 {
		sb.WriteString("## News Sentiment\n\n")
		fmt.Fprintf(&sb, "**%s** (score %.2f, confidence %.2f, %d articles)\n\n%s\n\n",
			r.News.Overall, r.News.Score, r.News.Confidence, r.News.ArticleCount, r.News.Summary)
	}

	if r.Fundamental != "" {
		sb.WriteString("## Fundamentals\n\n")
		sb.WriteString(r.Fundamental)
		sb.WriteString("\n\n")
	}

	if r.Synthesis != "" {
		sb.WriteString("## Synthesis\n\n")
		sb.WriteString(r.Synthesis)
		sb.WriteString("\n")
	}

	return sb.String()
}

func levelRow(lv types.Level) string {
	frames := lv.Timeframe
	source := string(lv.Source)
	if lv.IsConfluence {
		frames = strings.Join(lv.ConfluenceTimeframes, "+")
		source = "confluence"
	}
	return fmt.Sprintf("| %s | %s | %d | %s | %d | %s |\n",
		price(lv.Price), lv.Kind, lv.Strength, source, lv.Touches, frames)
}

func price(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func smaPeriods(sma map[int]float64) []int {
	periods := make([]int, 0, len(sma))
	for p := range sma {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	return periods
}
