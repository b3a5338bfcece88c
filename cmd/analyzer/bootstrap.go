package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/marvinguevarra/trading-analyzer/internal/cache"
	"github.com/marvinguevarra/trading-analyzer/internal/fetcher"
	"github.com/marvinguevarra/trading-analyzer/internal/interfaces"
	"github.com/marvinguevarra/trading-analyzer/internal/llm"
	"github.com/marvinguevarra/trading-analyzer/internal/llm/llmobs"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/orchestrator"
	"github.com/marvinguevarra/trading-analyzer/internal/parsers"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/trace"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// initializeSystem initializes environment, logger and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads the config file and applies CLI overrides.
func loadConfig(ctx context.Context, path, symbol, dataDir, format string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}

	if symbol != "" {
		cfg.Symbol = strings.ToUpper(symbol)
	}
	if dataDir != "" {
		cfg.DataSource = "CSV"
		cfg.DataDir = dataDir
	}
	if format != "" {
		cfg.Output.Formats = strings.Split(format, ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildDeps assembles the pipeline collaborators from config. The
// returned cleanup closes anything that owns a file handle.
func buildDeps(ctx context.Context, cfg *store.Config, noCache bool) (orchestrator.Deps, func(), error) {
	deps := orchestrator.Deps{}
	cleanup := func() {}

	timeout := time.Duration(cfg.Fetcher.TimeoutSecs) * time.Second

	if cfg.DataSource == "CSV" {
		series, err := loadCSVSeries(ctx, cfg)
		if err != nil {
			return deps, cleanup, err
		}
		deps.Series = series
	} else {
		deps.Fetcher = fetcher.NewYahooFetcher(cfg.Fetcher.YahooBaseURL, timeout, cfg.Fetcher.RangeDays)
	}

	deps.Costs = llm.NewCostTracker(cfg.LLM.BudgetUSD)

	var model interfaces.LLM
	switch cfg.LLM.Provider {
	case "claude":
		model = llm.NewClaudeClient(cfg, deps.Costs)
		deps.Filings = fetcher.NewSECFetcher(cfg.Fetcher.SECBaseURL, "", cfg.Fetcher.UserAgent, timeout)
	default:
		model = llm.NewNoopClient()
		logger.Warn(ctx, "No LLM provider configured - model stages will be placeholders")
	}
	deps.Model = llmobs.Wrap(model)

	if !noCache && cfg.Output.CacheDB != "" {
		reports, err := cache.Open(cfg.Output.CacheDB)
		if err != nil {
			return deps, cleanup, fmt.Errorf("open report cache: %w", err)
		}
		deps.Reports = reports
		cleanup = func() { reports.Close() }
	}

	return deps, cleanup, nil
}

// loadCSVSeries parses every CSV in the data directory that matches the
// configured symbol and keys the results by detected timeframe.
func loadCSVSeries(ctx context.Context, cfg *store.Config) (map[string]types.Series, error) {
	paths, err := filepath.Glob(filepath.Join(cfg.DataDir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV files in %s", cfg.DataDir)
	}

	wanted := make(map[string]bool, len(cfg.Timeframes))
	for _, tf := range cfg.Timeframes {
		wanted[tf] = true
	}

	series := map[string]types.Series{}
	for _, path := range paths {
		parsed, err := parsers.Load(ctx, path)
		if err != nil {
			logger.ErrorWithErr(ctx, "Skipping unparseable CSV", err, "path", path)
			continue
		}
		if !parsed.Quality.Valid() {
			logger.Warn(ctx, "Skipping low-quality CSV", "path", path,
				"score", parsed.Quality.Score, "errors", parsed.Quality.Errors)
			continue
		}
		if !strings.EqualFold(parsed.Series.Symbol, cfg.Symbol) {
			continue
		}
		if !wanted[parsed.Series.Timeframe] {
			logger.Info(ctx, "Ignoring timeframe not in config", "path", path, "tf", parsed.Series.Timeframe)
			continue
		}
		series[parsed.Series.Timeframe] = parsed.Series
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("no usable CSVs for %s in %s", cfg.Symbol, cfg.DataDir)
	}
	return series, nil
}
