package llm

import (
	"errors"
	"sync"
	"testing"
)

func TestCostTrackerAccumulates(t *testing.T) {
	tr := NewCostTracker(0)
	tr.Charge("fast", 1000, 500, 0.01)
	tr.Charge("fast", 2000, 1000, 0.02)
	tr.Charge("deep", 500, 200, 0.05)

	if got := tr.TotalUSD(); got != 0.08 {
		t.Errorf("total = %v, want 0.08", got)
	}
	snap := tr.Snapshot()
	if u := snap["fast"]; u.Calls != 2 || u.InputTokens != 3000 || u.OutputTokens != 1500 {
		t.Errorf("fast usage = %+v", u)
	}
	if u := snap["deep"]; u.Calls != 1 || u.CostUSD != 0.05 {
		t.Errorf("deep usage = %+v", u)
	}
}

func TestCostTrackerBudget(t *testing.T) {
	tr := NewCostTracker(0.10)
	if err := tr.Allow(); err != nil {
		t.Fatalf("fresh tracker blocked: %v", err)
	}
	tr.Charge("deep", 10000, 5000, 0.12)
	err := tr.Allow()
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("over-budget tracker allowed: %v", err)
	}
}

func TestCostTrackerUnlimited(t *testing.T) {
	tr := NewCostTracker(0)
	tr.Charge("deep", 1e6, 1e6, 100)
	if err := tr.Allow(); err != nil {
		t.Errorf("zero budget should be unlimited: %v", err)
	}
}

func TestCostTrackerConcurrent(t *testing.T) {
	tr := NewCostTracker(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Charge("fast", 10, 5, 0.001)
		}()
	}
	wg.Wait()
	if got := tr.Snapshot()["fast"].Calls; got != 50 {
		t.Errorf("calls = %d, want 50", got)
	}
}

func TestCost(t *testing.T) {
	// 1M input at $3 and 0.5M output at $15.
	if got := cost(1_000_000, 500_000, 3, 15); got != 10.5 {
		t.Errorf("cost = %v, want 10.5", got)
	}
}
