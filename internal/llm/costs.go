package llm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBudgetExceeded is returned when a call would push spend past the
// configured budget.
var ErrBudgetExceeded = errors.New("llm budget exceeded")

// ModelUsage accumulates per-model token and dollar totals.
type ModelUsage struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// CostTracker accounts for LLM spend across one analysis run. It is an
// explicit dependency handed to each client rather than process-global
// state; runs never share totals. Safe for concurrent use. A zero
// budget means unlimited.
type CostTracker struct {
	mu      sync.Mutex
	budget  float64
	total   float64
	byModel map[string]ModelUsage
}

func NewCostTracker(budgetUSD float64) *CostTracker {
	return &CostTracker{
		budget:  budgetUSD,
		byModel: make(map[string]ModelUsage),
	}
}

// Allow reports whether further spend is permitted.
func (t *CostTracker) Allow() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.budget > 0 && t.total >= t.budget {
		return fmt.Errorf("%w: spent $%.4f of $%.2f", ErrBudgetExceeded, t.total, t.budget)
	}
	return nil
}

// Charge records a completed call.
func (t *CostTracker) Charge(model string, inputTokens, outputTokens int, costUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += costUSD
	u := t.byModel[model]
	u.Calls++
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
	u.CostUSD += costUSD
	t.byModel[model] = u
}

// TotalUSD returns spend so far.
func (t *CostTracker) TotalUSD() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Snapshot copies the per-model usage table.
func (t *CostTracker) Snapshot() map[string]ModelUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]ModelUsage, len(t.byModel))
	for k, v := range t.byModel {
		out[k] = v
	}
	return out
}

// cost computes the dollar cost of a call from per-million-token rates.
func cost(inputTokens, outputTokens int, inPerMTok, outPerMTok float64) float64 {
	return float64(inputTokens)/1e6*inPerMTok + float64(outputTokens)/1e6*outPerMTok
}
