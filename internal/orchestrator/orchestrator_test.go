package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/cache"
	"github.com/marvinguevarra/trading-analyzer/internal/llm"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

func flatSeries(symbol, timeframe string, n int, close float64) types.Series {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{
			Time:   epoch.AddDate(0, 0, i),
			Open:   close,
			High:   close + 1,
			Low:    close - 1,
			Close:  close,
			Volume: 1000,
		}
	}
	return types.Series{Symbol: symbol, Timeframe: timeframe, Bars: bars}
}

func runConfig(t *testing.T) *store.Config {
	t.Helper()
	t.Setenv("ANALYZER_LOG_DIR", t.TempDir())

	cfg := &store.Config{}
	cfg.Symbol = "AAPL"
	cfg.Timeframes = []string{"daily", "weekly"}
	cfg.Primary = "daily"
	cfg.LLM.MaxTokens = 1000
	cfg.LLM.Models.Fast = store.ModelSpec{Name: "fast-model"}
	cfg.LLM.Models.Balanced = store.ModelSpec{Name: "balanced-model"}
	cfg.LLM.Models.Deep = store.ModelSpec{Name: "deep-model"}
	return cfg
}

type fakeFetcher struct {
	series map[string]types.Series
	errs   map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, symbol, timeframe string) (types.Series, error) {
	if err := f.errs[timeframe]; err != nil {
		return types.Series{}, err
	}
	return f.series[timeframe], nil
}

type fakeFilings struct{ filings []types.Filing }

func (f *fakeFilings) RecentFilings(ctx context.Context, symbol string, limit int) ([]types.Filing, error) {
	return f.filings, nil
}

type fakeNews struct{ articles []types.NewsArticle }

func (f *fakeNews) Latest(ctx context.Context, symbol string, limit int) ([]types.NewsArticle, error) {
	return f.articles, nil
}

// purposeLLM answers by call purpose so each stage parses cleanly.
type purposeLLM struct {
	calls []string
}

func (f *purposeLLM) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	f.calls = append(f.calls, req.Purpose)
	text := "Structure favors the bulls above support."
	if req.Purpose == "news_sentiment" {
		text = `{"overall":"POSITIVE","score":0.5,"confidence":0.8,"summary":"Upbeat coverage."}`
	}
	return types.CompletionResponse{
		Text:         text,
		Model:        req.Model,
		InputTokens:  100,
		OutputTokens: 50,
		CostUSD:      0.01,
	}, nil
}

func TestRunOfflinePreloadedSeries(t *testing.T) {
	cfg := runConfig(t)

	o := New(cfg, Deps{Series: map[string]types.Series{
		"daily":  flatSeries("AAPL", "daily", 100, 103),
		"weekly": flatSeries("AAPL", "weekly", 30, 103),
	}})

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Symbol != "AAPL" {
		t.Errorf("unexpected symbol %s", report.Symbol)
	}
	if report.CurrentPrice != 103 {
		t.Errorf("expected current price 103, got %f", report.CurrentPrice)
	}
	if len(report.Timeframes) != 2 {
		t.Errorf("expected both timeframes analyzed, got %v", report.Timeframes)
	}
	if report.RunID == "" {
		t.Error("expected a run ID")
	}
	if report.Synthesis != "" || report.News != nil {
		t.Error("offline run should have no model stages")
	}
	if report.Indicators.SMA == nil {
		t.Error("expected indicator snapshot")
	}
}

func TestRunFetchesConcurrentlyAndDropsFailedSecondary(t *testing.T) {
	cfg := runConfig(t)

	fetcher := &fakeFetcher{
		series: map[string]types.Series{"daily": flatSeries("AAPL", "daily", 100, 103)},
		errs:   map[string]error{"weekly": errors.New("rate limited")},
	}

	report, err := New(cfg, Deps{Fetcher: fetcher}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Timeframes) != 1 || report.Timeframes[0] != "daily" {
		t.Errorf("expected only daily analyzed, got %v", report.Timeframes)
	}
}

func TestRunFailsWhenPrimaryFetchFails(t *testing.T) {
	cfg := runConfig(t)

	fetcher := &fakeFetcher{
		series: map[string]types.Series{"weekly": flatSeries("AAPL", "weekly", 30, 103)},
		errs:   map[string]error{"daily": errors.New("connection refused")},
	}

	if _, err := New(cfg, Deps{Fetcher: fetcher}).Run(context.Background()); err == nil {
		t.Error("expected error when primary timeframe fetch fails")
	}
}

func TestRunAgentStagesAndCostLedger(t *testing.T) {
	cfg := runConfig(t)
	cfg.News.Enabled = true
	cfg.News.MaxArticles = 5

	model := &purposeLLM{}
	costs := llm.NewCostTracker(0)

	o := New(cfg, Deps{
		Series: map[string]types.Series{
			"daily":  flatSeries("AAPL", "daily", 100, 103),
			"weekly": flatSeries("AAPL", "weekly", 30, 103),
		},
		Model: model,
		Costs: costs,
		News: &fakeNews{articles: []types.NewsArticle{
			{Title: "Apple rallies", Source: "YahooFinance"},
			{Title: "New product cycle", Source: "Finviz"},
			{Title: "Analysts upbeat", Source: "MarketWatch"},
		}},
		Filings: &fakeFilings{filings: []types.Filing{
			{Form: "10-Q", FiledAt: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), Accession: "0000320193-24-000069"},
		}},
	})

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.News == nil || report.News.Overall != "POSITIVE" {
		t.Errorf("expected positive news sentiment, got %+v", report.News)
	}
	if report.Fundamental == "" {
		t.Error("expected fundamental summary")
	}
	if report.Synthesis == "" {
		t.Error("expected synthesis")
	}

	want := []string{"news_sentiment", "fundamental", "synthesis"}
	if fmt.Sprint(model.calls) != fmt.Sprint(want) {
		t.Errorf("expected stage order %v, got %v", want, model.calls)
	}

	// Each call wrote one ledger line stamped with the run ID.
	data, err := os.ReadFile(filepath.Join(os.Getenv("ANALYZER_LOG_DIR"),
		time.Now().UTC().Format("2006-01-02")+".jsonl"))
	if err != nil {
		t.Fatalf("read cost ledger: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 ledger lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, report.RunID) {
			t.Errorf("ledger line missing run ID: %s", line)
		}
	}
}

func TestRunUsesReportCache(t *testing.T) {
	cfg := runConfig(t)

	reports, err := cache.Open(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer reports.Close()

	deps := Deps{
		Series: map[string]types.Series{
			"daily":  flatSeries("AAPL", "daily", 100, 103),
			"weekly": flatSeries("AAPL", "weekly", 30, 103),
		},
		Reports: reports,
	}

	first, err := New(cfg, deps).Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	second, err := New(cfg, deps).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if second.RunID != first.RunID {
		t.Errorf("expected cached report %s, got fresh run %s", first.RunID, second.RunID)
	}
}
