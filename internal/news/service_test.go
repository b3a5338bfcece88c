package news

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

type fakeProvider struct {
	articles []types.NewsArticle
	err      error
}

func (f *fakeProvider) Latest(ctx context.Context, symbol string, limit int) ([]types.NewsArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.articles) > limit {
		return f.articles[:limit], nil
	}
	return f.articles, nil
}

type fakeLLM struct {
	text     string
	err      error
	lastReq  types.CompletionRequest
	numCalls int
}

func (f *fakeLLM) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	f.lastReq = req
	f.numCalls++
	if f.err != nil {
		return types.CompletionResponse{}, f.err
	}
	return types.CompletionResponse{Text: f.text, Model: req.Model}, nil
}

func testConfig() *store.Config {
	cfg := &store.Config{}
	cfg.News.Enabled = true
	cfg.News.MaxArticles = 10
	cfg.News.CacheTTLMin = 30
	cfg.LLM.Models.Fast = store.ModelSpec{Name: "claude-3-5-haiku-latest"}
	return cfg
}

func headlines(n int) []types.NewsArticle {
	arts := make([]types.NewsArticle, n)
	for i := range arts {
		arts[i] = types.NewsArticle{
			Title:  fmt.Sprintf("Headline %d", i+1),
			URL:    fmt.Sprintf("https://example.com/%d", i+1),
			Source: "YahooFinance",
		}
	}
	return arts
}

func TestSentimentCache(t *testing.T) {
	cache := newSentimentCache(50 * time.Millisecond)

	sentiment := types.NewsSentiment{
		Symbol:     "AAPL",
		Overall:    "POSITIVE",
		Score:      0.8,
		Confidence: 0.9,
		Timestamp:  time.Now().Unix(),
	}

	cache.set("AAPL", sentiment)

	retrieved, found := cache.get("AAPL")
	if !found {
		t.Fatal("expected to find cached sentiment")
	}
	if retrieved.Score != 0.8 {
		t.Errorf("expected score 0.8, got %f", retrieved.Score)
	}

	time.Sleep(100 * time.Millisecond)
	if _, found := cache.get("AAPL"); found {
		t.Error("expected cache entry to be expired")
	}
}

func TestCacheCleanup(t *testing.T) {
	cache := newSentimentCache(20 * time.Millisecond)

	for i := 0; i < 5; i++ {
		sym := fmt.Sprintf("SYM%d", i)
		cache.set(sym, types.NewsSentiment{Symbol: sym, Timestamp: time.Now().Unix()})
	}

	time.Sleep(50 * time.Millisecond)
	cache.cleanup()

	cache.mu.RLock()
	count := len(cache.data)
	cache.mu.RUnlock()

	if count != 0 {
		t.Errorf("expected 0 cache entries after cleanup, got %d", count)
	}
}

func TestGetSentimentUsesFastTier(t *testing.T) {
	model := &fakeLLM{text: `{"overall":"POSITIVE","score":0.6,"confidence":0.9,"summary":"Strong earnings coverage."}`}
	provider := &fakeProvider{articles: headlines(10)}

	svc := NewServiceWithProvider(testConfig(), model, provider)

	sentiment, err := svc.GetSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetSentiment: %v", err)
	}

	if model.lastReq.Model != "claude-3-5-haiku-latest" {
		t.Errorf("expected fast tier model, got %q", model.lastReq.Model)
	}
	if model.lastReq.Purpose != "news_sentiment" {
		t.Errorf("expected purpose news_sentiment, got %q", model.lastReq.Purpose)
	}

	if sentiment.Overall != "POSITIVE" {
		t.Errorf("expected POSITIVE, got %s", sentiment.Overall)
	}
	if sentiment.Score != 0.6 {
		t.Errorf("expected score 0.6, got %f", sentiment.Score)
	}
	if sentiment.ArticleCount != 10 {
		t.Errorf("expected 10 articles, got %d", sentiment.ArticleCount)
	}
	// 10 articles keeps full model confidence
	if sentiment.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", sentiment.Confidence)
	}
}

func TestGetSentimentCachesResult(t *testing.T) {
	model := &fakeLLM{text: `{"overall":"NEUTRAL","score":0.0,"confidence":0.5,"summary":"Quiet week."}`}
	provider := &fakeProvider{articles: headlines(3)}

	svc := NewServiceWithProvider(testConfig(), model, provider)
	ctx := context.Background()

	if _, err := svc.GetSentiment(ctx, "AAPL"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.GetSentiment(ctx, "AAPL"); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if model.numCalls != 1 {
		t.Errorf("expected one model call, got %d", model.numCalls)
	}
}

func TestGetSentimentDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.News.Enabled = false

	model := &fakeLLM{}
	svc := NewServiceWithProvider(cfg, model, &fakeProvider{})

	sentiment, err := svc.GetSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetSentiment: %v", err)
	}

	if sentiment.Overall != "NEUTRAL" {
		t.Errorf("expected NEUTRAL when disabled, got %s", sentiment.Overall)
	}
	if model.numCalls != 0 {
		t.Errorf("expected no model calls when disabled, got %d", model.numCalls)
	}
}

func TestGetSentimentDegradesOnProviderError(t *testing.T) {
	model := &fakeLLM{}
	provider := &fakeProvider{err: errors.New("network down")}

	svc := NewServiceWithProvider(testConfig(), model, provider)

	sentiment, err := svc.GetSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}
	if sentiment.Overall != "NEUTRAL" {
		t.Errorf("expected NEUTRAL fallback, got %s", sentiment.Overall)
	}
	if sentiment.Confidence != 0 {
		t.Errorf("expected zero confidence fallback, got %f", sentiment.Confidence)
	}
}

func TestRefreshSentimentBypassesCache(t *testing.T) {
	model := &fakeLLM{text: `{"overall":"NEGATIVE","score":-0.4,"confidence":0.7,"summary":"Downgrade chatter."}`}
	provider := &fakeProvider{articles: headlines(5)}

	svc := NewServiceWithProvider(testConfig(), model, provider)
	ctx := context.Background()

	if _, err := svc.GetSentiment(ctx, "AAPL"); err != nil {
		t.Fatalf("GetSentiment: %v", err)
	}
	if _, err := svc.RefreshSentiment(ctx, "AAPL"); err != nil {
		t.Fatalf("RefreshSentiment: %v", err)
	}

	if model.numCalls != 2 {
		t.Errorf("expected refresh to re-score, got %d calls", model.numCalls)
	}
}

func TestCachedSymbolsAndClear(t *testing.T) {
	svc := NewServiceWithProvider(testConfig(), &fakeLLM{}, &fakeProvider{})

	for _, sym := range []string{"AAPL", "MSFT", "NVDA"} {
		svc.cache.set(sym, types.NewsSentiment{Symbol: sym, Timestamp: time.Now().Unix()})
	}

	if got := len(svc.CachedSymbols()); got != 3 {
		t.Errorf("expected 3 cached symbols, got %d", got)
	}

	svc.ClearCache()

	if got := len(svc.CachedSymbols()); got != 0 {
		t.Errorf("expected empty cache after clear, got %d", got)
	}
}
