package agents

import (
	"context"

	"github.com/marvinguevarra/trading-analyzer/internal/interfaces"
	"github.com/marvinguevarra/trading-analyzer/internal/news"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// NewsAgent is the headline-sentiment stage. It delegates to the news
// service, which owns scraping and caching.
type NewsAgent struct {
	svc *news.Service
}

func NewNewsAgent(cfg *store.Config, model interfaces.LLM) *NewsAgent {
	return &NewsAgent{svc: news.NewService(cfg, model)}
}

// NewNewsAgentWithProvider injects a custom article source.
func NewNewsAgentWithProvider(cfg *store.Config, model interfaces.LLM, provider interfaces.NewsProvider) *NewsAgent {
	return &NewsAgent{svc: news.NewServiceWithProvider(cfg, model, provider)}
}

func (a *NewsAgent) Analyze(ctx context.Context, symbol string) (types.NewsSentiment, error) {
	return a.svc.GetSentiment(ctx, symbol)
}
