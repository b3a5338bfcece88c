package news

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/interfaces"
	"github.com/marvinguevarra/trading-analyzer/internal/llm"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/store"
	"github.com/marvinguevarra/trading-analyzer/internal/trace"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

const sentimentSystemPrompt = "You are a financial analyst expert at reading news sentiment for equities. Respond ONLY with valid JSON."

// SentimentAnalyzer scores a batch of headlines with the fast model tier.
type SentimentAnalyzer struct {
	model interfaces.LLM
	cfg   *store.Config
}

// NewSentimentAnalyzer creates an analyzer backed by the given model client.
func NewSentimentAnalyzer(cfg *store.Config, model interfaces.LLM) *SentimentAnalyzer {
	return &SentimentAnalyzer{model: model, cfg: cfg}
}

// Analyze scores all articles in one model call and returns the
// aggregate sentiment. An empty article list yields a neutral result
// without spending tokens.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, symbol string, articles []types.NewsArticle) (types.NewsSentiment, error) {
	ctx, span := trace.StartSpan(ctx, "analyze-news-sentiment")
	defer span.End()

	if len(articles) == 0 {
		return types.NewsSentiment{
			Symbol:    symbol,
			Overall:   "NEUTRAL",
			Summary:   "No recent articles found",
			Timestamp: time.Now().Unix(),
		}, nil
	}

	resp, err := a.model.Complete(ctx, types.CompletionRequest{
		Model:       a.cfg.LLM.Models.Fast.Name,
		System:      sentimentSystemPrompt,
		Prompt:      buildSentimentPrompt(symbol, articles),
		MaxTokens:   500,
		Temperature: 0.1,
		Purpose:     "news_sentiment",
	})
	if err != nil {
		return types.NewsSentiment{}, err
	}

	sentiment, err := parseSentiment(resp.Text)
	if err != nil {
		return types.NewsSentiment{}, err
	}

	sentiment.Symbol = symbol
	sentiment.ArticleCount = len(articles)
	sentiment.Timestamp = time.Now().Unix()
	sentiment.Confidence *= countWeight(len(articles))

	logger.Info(ctx, "Sentiment analysis completed", "symbol", symbol,
		"overall", sentiment.Overall, "score", sentiment.Score, "articles", len(articles))

	return sentiment, nil
}

// countWeight damps model confidence when the sample is thin.
func countWeight(articles int) float64 {
	switch {
	case articles >= 10:
		return 1.0
	case articles >= 5:
		return 0.8
	case articles >= 3:
		return 0.6
	default:
		return 0.4
	}
}

func buildSentimentPrompt(symbol string, articles []types.NewsArticle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent news for %s stock:\n\n", symbol)

	for i, art := range articles {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, art.Source, art.Title)
		if art.Snippet != "" {
			snippet := art.Snippet
			if len(snippet) > 300 {
				snippet = snippet[:300] + "..."
			}
			fmt.Fprintf(&sb, "   %s\n", snippet)
		}
	}

	sb.WriteString(`
Assess the overall sentiment of this news flow for an investor in the stock.

Respond ONLY with valid JSON matching this schema:
{
  "overall": "POSITIVE|NEGATIVE|NEUTRAL|MIXED",
  "score": -1.0 to 1.0 (float),
  "confidence": 0.0 to 1.0 (float),
  "summary": "two or three sentences on the dominant themes"
}`)

	return sb.String()
}

func parseSentiment(text string) (types.NewsSentiment, error) {
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return types.NewsSentiment{}, fmt.Errorf("no JSON object in model output")
	}

	var parsed struct {
		Overall    string  `json:"overall"`
		Score      float64 `json:"score"`
		Confidence float64 `json:"confidence"`
		Summary    string  `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return types.NewsSentiment{}, fmt.Errorf("invalid sentiment JSON: %w", err)
	}

	overall := strings.ToUpper(strings.TrimSpace(parsed.Overall))
	switch overall {
	case "POSITIVE", "NEGATIVE", "NEUTRAL", "MIXED":
	default:
		overall = "NEUTRAL"
	}

	return types.NewsSentiment{
		Overall:    overall,
		Score:      clamp(parsed.Score, -1, 1),
		Confidence: clamp(parsed.Confidence, 0, 1),
		Summary:    strings.TrimSpace(parsed.Summary),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
