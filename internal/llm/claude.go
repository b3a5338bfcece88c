package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/trace"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

const anthropicVersion = "2023-06-01"

// ClaudeClient calls the Anthropic Messages API. Every call is charged
// against the run's CostTracker using the per-tier rates from config.
type ClaudeClient struct {
	cfg      *store.Config
	costs    *CostTracker
	endpoint string
	http     *http.Client
}

func NewClaudeClient(cfg *store.Config, costs *CostTracker) *ClaudeClient {
	// default messages endpoint (public Anthropic)
	endpoint := "https://api.anthropic.com/v1/messages"
	// If you use a proxy/bedrock/vertex, set endpoint via CLAUDE_API_ENDPOINT env var
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &ClaudeClient{
		cfg:      cfg,
		costs:    costs,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ClaudeClient) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if err := c.costs.Allow(); err != nil {
		return types.CompletionResponse{}, err
	}

	keyEnv := c.cfg.LLM.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "CLAUDE_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		err := fmt.Errorf("%s missing", keyEnv)
		logger.ErrorWithErr(ctx, "Claude API key not configured", err)
		return types.CompletionResponse{}, err
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.LLM.MaxTokens
	}
	body := messagesRequest{
		Model:       req.Model,
		System:      req.System,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	bb, err := json.Marshal(body)
	if err != nil {
		return types.CompletionResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bb))
	if err != nil {
		return types.CompletionResponse{}, err
	}
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return types.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.CompletionResponse{}, err
	}
	if resp.StatusCode >= 300 {
		return types.CompletionResponse{}, fmt.Errorf("claude http %d: %s", resp.StatusCode, string(respBytes))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return types.CompletionResponse{}, fmt.Errorf("decode claude response: %w", err)
	}
	if parsed.Error != nil {
		return types.CompletionResponse{}, fmt.Errorf("claude %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return types.CompletionResponse{}, errors.New("claude response contained no text blocks")
	}

	spec := c.modelSpec(req.Model)
	callCost := cost(parsed.Usage.InputTokens, parsed.Usage.OutputTokens, spec.InputPerMTok, spec.OutputPerMTok)
	c.costs.Charge(req.Model, parsed.Usage.InputTokens, parsed.Usage.OutputTokens, callCost)

	return types.CompletionResponse{
		Text:         text.String(),
		Model:        req.Model,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		CostUSD:      callCost,
	}, nil
}

// modelSpec resolves the rate card for a model name; unknown models
// fall back to the deep tier so cost is never under-counted.
func (c *ClaudeClient) modelSpec(model string) store.ModelSpec {
	for _, spec := range []store.ModelSpec{
		c.cfg.LLM.Models.Fast,
		c.cfg.LLM.Models.Balanced,
		c.cfg.LLM.Models.Deep,
	} {
		if spec.Name == model {
			return spec
		}
	}
	return c.cfg.LLM.Models.Deep
}

// ExtractJSON locates the first JSON object embedded in model output;
// models often wrap JSON in prose or code fences despite instructions.
func ExtractJSON(text string) (string, bool) {
	t := strings.TrimSpace(text)
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return t[start : end+1], true
}
