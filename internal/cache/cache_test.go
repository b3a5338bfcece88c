package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

func openTestCache(t *testing.T) *ReportCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleReport(symbol, runID string, at time.Time) *types.Report {
	return &types.Report{
		RunID:        runID,
		Symbol:       symbol,
		GeneratedAt:  at,
		CurrentPrice: 187.5,
		Timeframes:   []string{"daily", "weekly"},
		Levels: types.LevelSummary{
			CurrentPrice: 187.5,
			KeyLevels: []types.Level{
				{Price: 185, Kind: types.KindSupport, Strength: 12, IsConfluence: true, ConfluenceTimeframes: []string{"daily", "weekly"}},
			},
		},
		CostUSD: 0.42,
	}
}

func TestPutAndGet(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	at := time.Date(2024, 6, 14, 15, 30, 0, 0, time.UTC)
	if err := c.Put(ctx, sampleReport("AAPL", "run-1", at)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Get(ctx, "AAPL", at)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if got.RunID != "run-1" {
		t.Errorf("expected run-1, got %s", got.RunID)
	}
	if got.CurrentPrice != 187.5 {
		t.Errorf("expected price 187.5, got %f", got.CurrentPrice)
	}
	if len(got.Levels.KeyLevels) != 1 || !got.Levels.KeyLevels[0].IsConfluence {
		t.Errorf("key levels did not round-trip: %+v", got.Levels.KeyLevels)
	}
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t)

	got, err := c.Get(context.Background(), "MSFT", time.Now())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss, got %+v", got)
	}
}

func TestPutReplacesSameDay(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	morning := time.Date(2024, 6, 14, 9, 30, 0, 0, time.UTC)
	afternoon := time.Date(2024, 6, 14, 16, 0, 0, 0, time.UTC)

	if err := c.Put(ctx, sampleReport("AAPL", "run-1", morning)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(ctx, sampleReport("AAPL", "run-2", afternoon)); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	got, err := c.Get(ctx, "AAPL", morning)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.RunID != "run-2" {
		t.Fatalf("expected same-day replace with run-2, got %+v", got)
	}

	history, err := c.History(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected single row after replace, got %d", len(history))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	for i, day := range []int{10, 12, 11} {
		at := time.Date(2024, 6, day, 16, 0, 0, 0, time.UTC)
		runID := []string{"run-a", "run-b", "run-c"}[i]
		if err := c.Put(ctx, sampleReport("AAPL", runID, at)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	history, err := c.History(ctx, "AAPL", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(history))
	}
	if history[0].RunID != "run-b" || history[1].RunID != "run-c" {
		t.Errorf("expected newest first [run-b run-c], got [%s %s]", history[0].RunID, history[1].RunID)
	}
}

func TestPrune(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	old := sampleReport("AAPL", "run-old", time.Now().Add(-90*24*time.Hour))
	fresh := sampleReport("AAPL", "run-new", time.Now())
	if err := c.Put(ctx, old); err != nil {
		t.Fatalf("Put old: %v", err)
	}
	if err := c.Put(ctx, fresh); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}

	deleted, err := c.Prune(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned row, got %d", deleted)
	}

	history, err := c.History(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].RunID != "run-new" {
		t.Errorf("expected only the fresh report to survive, got %+v", history)
	}
}
