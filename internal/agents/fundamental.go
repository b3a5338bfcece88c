// Package agents holds the model-backed analysis stages: headline
// sentiment on the fast tier, filing review on the balanced tier, and
// the final synthesis on the deep tier.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/marvinguevarra/trading-analyzer/internal/interfaces"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/trace"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

const fundamentalSystemPrompt = "You are an equity analyst reviewing SEC filings. Be concise and factual; flag risks explicitly."

const maxFilingsReviewed = 5

// FundamentalAgent summarizes recent SEC filings with the balanced tier.
type FundamentalAgent struct {
	model   interfaces.LLM
	filings interfaces.FilingProvider
	cfg     *store.Config
}

func NewFundamentalAgent(cfg *store.Config, model interfaces.LLM, filings interfaces.FilingProvider) *FundamentalAgent {
	return &FundamentalAgent{model: model, filings: filings, cfg: cfg}
}

// Analyze fetches recent filings and returns a short fundamental
// read. No filings means an empty string, not an error.
func (a *FundamentalAgent) Analyze(ctx context.Context, symbol string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "fundamental-analysis")
	defer span.End()

	filings, err := a.filings.RecentFilings(ctx, symbol, maxFilingsReviewed)
	if err != nil {
		return "", fmt.Errorf("fetch filings: %w", err)
	}
	if len(filings) == 0 {
		logger.Info(ctx, "No recent filings", "symbol", symbol)
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent SEC filings for %s:\n\n", symbol)
	for _, f := range filings {
		fmt.Fprintf(&sb, "- %s filed %s (%s)\n", f.Form, f.FiledAt.Format("2006-01-02"), f.Accession)
		if f.Excerpt != "" {
			excerpt := f.Excerpt
			if len(excerpt) > 1500 {
				excerpt = excerpt[:1500] + "..."
			}
			fmt.Fprintf(&sb, "  %s\n", excerpt)
		}
	}
	sb.WriteString("\nSummarize the fundamental picture in 3-5 sentences: filing cadence, any 8-K events, and what a technical trader should keep in mind.")

	resp, err := a.model.Complete(ctx, types.CompletionRequest{
		Model:       a.cfg.LLM.Models.Balanced.Name,
		System:      fundamentalSystemPrompt,
		Prompt:      sb.String(),
		MaxTokens:   800,
		Temperature: 0.2,
		Purpose:     "fundamental",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Text), nil
}
