// Package orchestrator runs the full analysis pipeline for one symbol:
// fetch bars per timeframe, run the detectors, merge confluence, take
// an indicator snapshot, then layer the model-backed stages on top.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marvinguevarra/trading-analyzer/internal/agents"
	"github.com/marvinguevarra/trading-analyzer/internal/analysis"
	"github.com/marvinguevarra/trading-analyzer/internal/cache"
	"github.com/marvinguevarra/trading-analyzer/internal/costlog"
	"github.com/marvinguevarra/trading-analyzer/internal/interfaces"
	"github.com/marvinguevarra/trading-analyzer/internal/llm"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/ta"
	"github.com/marvinguevarra/trading-analyzer/internal/trace"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// Deps are the pipeline's injectable collaborators. Series, when
// non-empty, bypasses Fetcher (CSV mode). Filings, News, Reports and
// Model may be nil; the corresponding stage is skipped.
type Deps struct {
	Fetcher interfaces.Fetcher
	Filings interfaces.FilingProvider
	News    interfaces.NewsProvider
	Model   interfaces.LLM
	Costs   *llm.CostTracker
	Reports *cache.ReportCache
	Series  map[string]types.Series
}

type Orchestrator struct {
	cfg  *store.Config
	deps Deps
}

func New(cfg *store.Config, deps Deps) *Orchestrator {
	return &Orchestrator{cfg: cfg, deps: deps}
}

// Run executes one analysis run. A cached same-day report short-circuits
// the whole pipeline.
func (o *Orchestrator) Run(ctx context.Context) (*types.Report, error) {
	ctx, span := trace.StartSpan(ctx, "analysis-run")
	defer span.End()

	symbol := o.cfg.Symbol
	start := time.Now()
	runID := uuid.NewString()

	if o.deps.Reports != nil {
		cached, err := o.deps.Reports.Get(ctx, symbol, start)
		if err != nil {
			logger.ErrorWithErr(ctx, "Report cache lookup failed", err, "symbol", symbol)
		} else if cached != nil {
			logger.Info(ctx, "Using cached report", "symbol", symbol, "run_id", cached.RunID)
			return cached, nil
		}
	}

	logger.Analysis(ctx, symbol, "start", "run_id", runID, "timeframes", o.cfg.Timeframes)

	acfg, err := o.analysisConfig()
	if err != nil {
		return nil, err
	}

	series, err := o.collectSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}

	primarySeries, ok := series[o.cfg.Primary]
	if !ok || len(primarySeries.Bars) == 0 {
		return nil, fmt.Errorf("no data for primary timeframe %s", o.cfg.Primary)
	}
	currentPrice := primarySeries.LastClose()

	byTimeframe := map[string][]types.Level{}
	zones := []types.Zone{}
	analyzed := []string{}
	for _, tf := range o.cfg.Timeframes {
		s, ok := series[tf]
		if !ok {
			continue
		}
		byTimeframe[tf] = analysis.ExtractLevels(s, acfg, tf == o.cfg.Primary)
		zones = append(zones, analysis.IdentifyZones(s, acfg)...)
		analyzed = append(analyzed, tf)
		logger.Analysis(ctx, symbol, "timeframe", "tf", tf, "bars", len(s.Bars),
			"levels", len(byTimeframe[tf]))
	}

	merged := analysis.MergeConfluence(byTimeframe, acfg)
	summary := analysis.SummarizeLevels(merged, currentPrice, analyzed, acfg)
	gaps := analysis.PrioritizeGaps(analysis.DetectGaps(primarySeries, acfg.MinGapPct))

	report := &types.Report{
		RunID:        runID,
		Symbol:       symbol,
		GeneratedAt:  start,
		CurrentPrice: currentPrice,
		Timeframes:   analyzed,
		Levels:       summary,
		Zones:        zones,
		Gaps:         gaps,
		Indicators:   ta.Snapshot(primarySeries, acfg.MAPeriods),
	}

	logger.Analysis(ctx, symbol, "core-complete",
		"key_levels", len(summary.KeyLevels), "zones", len(zones), "gaps", len(gaps))

	o.runAgents(ctx, runID, report)

	if o.deps.Costs != nil {
		report.CostUSD = o.deps.Costs.TotalUSD()
	}

	if err := costlog.AppendRun(costlog.RunEntry{
		RunID:      runID,
		Symbol:     symbol,
		Calls:      o.modelCalls(),
		TotalUSD:   report.CostUSD,
		DurationMS: time.Since(start).Milliseconds(),
	}); err != nil {
		logger.ErrorWithErr(ctx, "Failed to append run ledger", err, "run_id", runID)
	}

	if o.deps.Reports != nil {
		if err := o.deps.Reports.Put(ctx, report); err != nil {
			logger.ErrorWithErr(ctx, "Failed to cache report", err, "run_id", runID)
		}
	}

	logger.Analysis(ctx, symbol, "done", "run_id", runID,
		"duration_ms", time.Since(start).Milliseconds(), "cost_usd", report.CostUSD)

	return report, nil
}

// collectSeries loads bars for every configured timeframe. Preloaded
// series win; otherwise each timeframe is fetched concurrently and the
// fan-in completes before any analysis starts. A failed secondary
// timeframe is dropped; a failed primary is fatal.
func (o *Orchestrator) collectSeries(ctx context.Context, symbol string) (map[string]types.Series, error) {
	if len(o.deps.Series) > 0 {
		return o.deps.Series, nil
	}
	if o.deps.Fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured and no preloaded series")
	}

	type result struct {
		tf     string
		series types.Series
		err    error
	}

	results := make([]result, len(o.cfg.Timeframes))
	var wg sync.WaitGroup
	for i, tf := range o.cfg.Timeframes {
		wg.Add(1)
		go func(i int, tf string) {
			defer wg.Done()
			s, err := o.deps.Fetcher.Fetch(ctx, symbol, tf)
			results[i] = result{tf: tf, series: s, err: err}
		}(i, tf)
	}
	wg.Wait()

	series := make(map[string]types.Series, len(results))
	for _, r := range results {
		if r.err != nil {
			if r.tf == o.cfg.Primary {
				return nil, fmt.Errorf("fetch %s %s: %w", symbol, r.tf, r.err)
			}
			logger.ErrorWithErr(ctx, "Skipping timeframe after fetch failure", r.err,
				"symbol", symbol, "tf", r.tf)
			continue
		}
		series[r.tf] = r.series
	}
	return series, nil
}

// runAgents layers sentiment, fundamentals and synthesis onto the
// report. Agent failures degrade the report, they never fail the run.
func (o *Orchestrator) runAgents(ctx context.Context, runID string, report *types.Report) {
	if o.deps.Model == nil {
		return
	}

	model := &ledgerLLM{inner: o.deps.Model, runID: runID, symbol: report.Symbol}

	if o.cfg.News.Enabled {
		var agent *agents.NewsAgent
		if o.deps.News != nil {
			agent = agents.NewNewsAgentWithProvider(o.cfg, model, o.deps.News)
		} else {
			agent = agents.NewNewsAgent(o.cfg, model)
		}
		sentiment, err := agent.Analyze(ctx, report.Symbol)
		if err != nil {
			logger.ErrorWithErr(ctx, "News stage failed", err, "symbol", report.Symbol)
		} else {
			report.News = &sentiment
		}
	}

	if o.deps.Filings != nil {
		fundamental, err := agents.NewFundamentalAgent(o.cfg, model, o.deps.Filings).Analyze(ctx, report.Symbol)
		if err != nil {
			logger.ErrorWithErr(ctx, "Fundamental stage failed", err, "symbol", report.Symbol)
		} else {
			report.Fundamental = fundamental
		}
	}

	synthesis, err := agents.NewSynthesisAgent(o.cfg, model).Synthesize(ctx, report)
	if err != nil {
		logger.ErrorWithErr(ctx, "Synthesis stage failed", err, "symbol", report.Symbol)
		return
	}
	report.Synthesis = synthesis
}

func (o *Orchestrator) modelCalls() int {
	if o.deps.Costs == nil {
		return 0
	}
	calls := 0
	for _, usage := range o.deps.Costs.Snapshot() {
		calls += usage.Calls
	}
	return calls
}

func (o *Orchestrator) analysisConfig() (analysis.Config, error) {
	a := o.cfg.Analysis
	acfg := analysis.Config{
		SwingWindow:            a.SwingWindow,
		LookbackBars:           a.LookbackBars,
		TolerancePct:           a.TolerancePct,
		ConfluenceTolerancePct: a.ConfluenceTolerancePct,
		ConfluenceBonus:        a.ConfluenceBonus,
		MinGapPct:              a.MinGapPct,
		RoundNumberInterval:    a.RoundNumberInterval,
		VolumeBins:             a.VolumeBins,
		MAPeriods:              a.MAPeriods,
		MinMovePct:             a.MinMovePct,
		ConsolidationBars:      a.ConsolidationBars,
		VolumeSpikeMult:        a.VolumeSpikeMult,
		KeyStrength:            a.KeyStrength,
	}.Normalize()

	if err := acfg.Validate(); err != nil {
		return analysis.Config{}, fmt.Errorf("analysis config: %w", err)
	}
	return acfg, nil
}

// ledgerLLM writes one cost-ledger line per model call, stamped with
// the run it belongs to.
type ledgerLLM struct {
	inner  interfaces.LLM
	runID  string
	symbol string
}

func (l *ledgerLLM) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	resp, err := l.inner.Complete(ctx, req)
	if err != nil {
		return resp, err
	}

	if lerr := costlog.Append(costlog.Entry{
		RunID:        l.runID,
		Symbol:       l.symbol,
		Model:        resp.Model,
		Purpose:      req.Purpose,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      resp.CostUSD,
	}); lerr != nil {
		logger.ErrorWithErr(ctx, "Failed to append cost ledger", lerr, "run_id", l.runID)
	}

	return resp, nil
}
