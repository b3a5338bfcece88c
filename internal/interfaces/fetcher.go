package interfaces

import (
	"context"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

type Fetcher interface {
	Fetch(ctx context.Context, symbol, timeframe string) (types.Series, error)
}

type NewsProvider interface {
	Latest(ctx context.Context, symbol string, limit int) ([]types.NewsArticle, error)
}

type FilingProvider interface {
	RecentFilings(ctx context.Context, symbol string, limit int) ([]types.Filing, error)
}
