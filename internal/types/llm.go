package types

// CompletionRequest is one prompt sent to a model tier.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	// Purpose labels the call for cost attribution (news_sentiment,
	// fundamental, synthesis).
	Purpose string
}

// CompletionResponse carries the model output and its token accounting.
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}
