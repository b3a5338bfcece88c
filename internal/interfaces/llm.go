package interfaces

import (
	"context"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

type LLM interface {
	Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error)
}
