package llm

import (
	"context"

	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// NoopClient is the fallback client used when no LLM provider is
// configured; reports are generated without narrative sections and at
// zero cost.
type NoopClient struct{}

func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (c *NoopClient) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	logger.Debug(ctx, "Noop LLM client called", "purpose", req.Purpose)
	return types.CompletionResponse{
		Text:  "LLM analysis disabled (noop provider configured).",
		Model: "noop",
	}, nil
}
