package llmobs

import (
	"context"

	"github.com/marvinguevarra/trading-analyzer/internal/interfaces"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/trace"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// observableLLM wraps an LLM client with observability (logging & tracing)
type observableLLM struct {
	client interfaces.LLM
}

// Compile-time interface check
var _ interfaces.LLM = (*observableLLM)(nil)

// Wrap wraps an LLM client with observability middleware
func Wrap(client interfaces.LLM) interfaces.LLM {
	return &observableLLM{
		client: client,
	}
}

// Complete runs a completion with observability
func (o *observableLLM) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"model", req.Model,
		"purpose", req.Purpose,
		"prompt_chars", len(req.Prompt),
	)

	resp, err := o.client.Complete(ctx, req)
	if err != nil {
		// Use ErrorWithErrSkip(1) to report the actual caller
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err,
			"model", req.Model,
			"purpose", req.Purpose,
		)
		return types.CompletionResponse{}, err
	}

	logger.LLMCall(ctx, resp.Model, req.Purpose, resp.InputTokens, resp.OutputTokens, resp.CostUSD)
	return resp, nil
}
