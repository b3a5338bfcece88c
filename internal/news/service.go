package news

import (
	"context"
	"sync"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/interfaces"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// Service provides news sentiment with a TTL cache in front of the
// scrape-and-analyze path.
type Service struct {
	provider interfaces.NewsProvider
	analyzer *SentimentAnalyzer
	cache    *sentimentCache
	cfg      *store.Config
}

// sentimentCache stores sentiment results temporarily.
type sentimentCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	sentiment types.NewsSentiment
	timestamp time.Time
}

func newSentimentCache(ttl time.Duration) *sentimentCache {
	cache := &sentimentCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}

	go cache.cleanupLoop()

	return cache
}

func (c *sentimentCache) get(symbol string) (types.NewsSentiment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[symbol]
	if !exists {
		return types.NewsSentiment{}, false
	}

	if time.Since(entry.timestamp) > c.ttl {
		return types.NewsSentiment{}, false
	}

	return entry.sentiment, true
}

func (c *sentimentCache) set(symbol string, sentiment types.NewsSentiment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[symbol] = &cacheEntry{
		sentiment: sentiment,
		timestamp: time.Now(),
	}
}

func (c *sentimentCache) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *sentimentCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for symbol, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, symbol)
		}
	}
}

// NewService wires the default scraper as provider.
func NewService(cfg *store.Config, model interfaces.LLM) *Service {
	scraper := NewScraper(30*time.Second, cfg.News.Sources)
	return NewServiceWithProvider(cfg, model, scraper)
}

// NewServiceWithProvider allows injecting a custom article provider.
func NewServiceWithProvider(cfg *store.Config, model interfaces.LLM, provider interfaces.NewsProvider) *Service {
	return &Service{
		provider: provider,
		analyzer: NewSentimentAnalyzer(cfg, model),
		cache:    newSentimentCache(time.Duration(cfg.News.CacheTTLMin) * time.Minute),
		cfg:      cfg,
	}
}

// GetSentiment returns cached sentiment when fresh, otherwise scrapes
// and scores. Transient failures degrade to a neutral result instead of
// failing the whole analysis run.
func (s *Service) GetSentiment(ctx context.Context, symbol string) (types.NewsSentiment, error) {
	if !s.cfg.News.Enabled {
		return types.NewsSentiment{
			Symbol:    symbol,
			Overall:   "NEUTRAL",
			Summary:   "News sentiment disabled",
			Timestamp: time.Now().Unix(),
		}, nil
	}

	if cached, ok := s.cache.get(symbol); ok {
		logger.Info(ctx, "Using cached sentiment", "symbol", symbol, "age_minutes",
			time.Since(time.Unix(cached.Timestamp, 0)).Minutes())
		return cached, nil
	}

	logger.Info(ctx, "Fetching fresh news sentiment", "symbol", symbol)
	sentiment, err := s.fetchFreshSentiment(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch sentiment", err, "symbol", symbol)
		return types.NewsSentiment{
			Symbol:    symbol,
			Overall:   "NEUTRAL",
			Summary:   "Failed to fetch sentiment: " + err.Error(),
			Timestamp: time.Now().Unix(),
		}, nil
	}

	s.cache.set(symbol, sentiment)

	return sentiment, nil
}

func (s *Service) fetchFreshSentiment(ctx context.Context, symbol string) (types.NewsSentiment, error) {
	articles, err := s.provider.Latest(ctx, symbol, s.cfg.News.MaxArticles)
	if err != nil {
		return types.NewsSentiment{}, err
	}

	return s.analyzer.Analyze(ctx, symbol, articles)
}

// RefreshSentiment bypasses the cache and re-scores.
func (s *Service) RefreshSentiment(ctx context.Context, symbol string) (types.NewsSentiment, error) {
	sentiment, err := s.fetchFreshSentiment(ctx, symbol)
	if err != nil {
		return types.NewsSentiment{}, err
	}

	s.cache.set(symbol, sentiment)
	return sentiment, nil
}

// ClearCache removes all cached sentiment data.
func (s *Service) ClearCache() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	s.cache.data = make(map[string]*cacheEntry)
}

// CachedSymbols returns the symbols currently cached.
func (s *Service) CachedSymbols() []string {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()

	symbols := make([]string, 0, len(s.cache.data))
	for symbol := range s.cache.data {
		symbols = append(symbols, symbol)
	}
	return symbols
}
