package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/marvinguevarra/trading-analyzer/internal/interfaces"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/trace"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

const synthesisSystemPrompt = "You are a senior technical analyst. Write a tight trading brief grounded ONLY in the data provided. Never invent price levels."

// SynthesisAgent produces the final written brief from the assembled
// report, on the deep tier.
type SynthesisAgent struct {
	model interfaces.LLM
	cfg   *store.Config
}

func NewSynthesisAgent(cfg *store.Config, model interfaces.LLM) *SynthesisAgent {
	return &SynthesisAgent{model: model, cfg: cfg}
}

// Synthesize turns the quantitative report into prose.
func (a *SynthesisAgent) Synthesize(ctx context.Context, report *types.Report) (string, error) {
	ctx, span := trace.StartSpan(ctx, "synthesis")
	defer span.End()

	resp, err := a.model.Complete(ctx, types.CompletionRequest{
		Model:       a.cfg.LLM.Models.Deep.Name,
		System:      synthesisSystemPrompt,
		Prompt:      buildSynthesisPrompt(report),
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Temperature: a.cfg.LLM.Temperature,
		Purpose:     "synthesis",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Text), nil
}

func buildSynthesisPrompt(r *types.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Symbol: %s\nCurrent price: %.2f\nTimeframes analyzed: %s\n\n",
		r.Symbol, r.CurrentPrice, strings.Join(r.Timeframes, ", "))

	sb.WriteString("Key levels:\n")
	writeLevels(&sb, r.Levels.KeyLevels)
	if len(r.Levels.MinorLevels) > 0 {
		sb.WriteString("Minor levels:\n")
		writeLevels(&sb, r.Levels.MinorLevels)
	}

	if len(r.Zones) > 0 {
		sb.WriteString("\nSupply/demand zones:\n")
		for _, z := range r.Zones {
			fmt.Fprintf(&sb, "- %s %s zone %.2f-%.2f (%s), strength %d, tests %d",
				z.Timeframe, z.Kind, z.Low, z.High, z.Pattern, z.Strength, z.TestCount)
			if z.Fresh {
				sb.WriteString(", fresh")
			}
			sb.WriteString("\n")
		}
	}

	if len(r.Gaps) > 0 {
		sb.WriteString("\nOpen and notable gaps:\n")
		for _, g := range r.Gaps {
			status := "unfilled"
			if g.Filled {
				status = "filled"
			} else if g.FillPct > 0 {
				status = fmt.Sprintf("%.0f%% filled", g.FillPct*100)
			}
			fmt.Fprintf(&sb, "- %s %s gap %.2f-%.2f (%.2f%%), %s, severity %d\n",
				g.Date.Format("2006-01-02"), g.Direction, g.Low, g.High, g.SizePct, status, g.Severity)
		}
	}

	sb.WriteString("\n")
	if !math.IsNaN(r.Indicators.RSI) {
		fmt.Fprintf(&sb, "Indicators: RSI %.1f, ATR %.2f, Bollinger %.2f/%.2f/%.2f\n",
			r.Indicators.RSI, r.Indicators.ATR,
			r.Indicators.BB.Lower, r.Indicators.BB.Middle, r.Indicators.BB.Upper)
	}
	for _, period := range sortedPeriods(r.Indicators.SMA) {
		fmt.Fprintf(&sb, "SMA%d: %.2f\n", period, r.Indicators.SMA[period])
	}

	if r.News != nil && r.News.ArticleCount > 0 {
		fmt.Fprintf(&sb, "\nNews sentiment: %s (score %.2f, confidence %.2f)\n%s\n",
			r.News.Overall, r.News.Score, r.News.Confidence, r.News.Summary)
	}

	if r.Fundamental != "" {
		fmt.Fprintf(&sb, "\nFundamental notes:\n%s\n", r.Fundamental)
	}

	sb.WriteString(`
Write a trading brief with these sections:
1. Market structure: where price sits relative to the key levels.
2. The two or three levels that matter most right now, and why.
3. Zone and gap context: what to watch on approach.
4. Risks: what would invalidate the structure.
Keep it under 400 words. Cite only prices listed above.`)

	return sb.String()
}

func sortedPeriods(sma map[int]float64) []int {
	periods := make([]int, 0, len(sma))
	for p := range sma {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	return periods
}

func writeLevels(sb *strings.Builder, levels []types.Level) {
	for _, lv := range levels {
		if lv.IsConfluence {
			fmt.Fprintf(sb, "- %.2f %s, strength %d, confluence across %s\n",
				lv.Price, lv.Kind, lv.Strength, strings.Join(lv.ConfluenceTimeframes, "+"))
			continue
		}
		fmt.Fprintf(sb, "- %.2f %s, strength %d, %s (%s), %d touches\n",
			lv.Price, lv.Kind, lv.Strength, lv.Timeframe, lv.Source, lv.Touches)
	}
}
