package costlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANALYZER_LOG_DIR", dir)

	entries := []Entry{
		{RunID: "r1", Symbol: "AAPL", Model: "fast", Purpose: "news_sentiment", InputTokens: 100, OutputTokens: 50, CostUSD: 0.001},
		{RunID: "r1", Symbol: "AAPL", Model: "deep", Purpose: "synthesis", InputTokens: 2000, OutputTokens: 800, CostUSD: 0.09},
	}
	for _, e := range entries {
		if err := Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	path := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("ledger file missing: %v", err)
	}
	defer f.Close()

	var got []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad ledger line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("got %d ledger lines, want 2", len(got))
	}
	if got[0].Purpose != "news_sentiment" || got[1].CostUSD != 0.09 {
		t.Errorf("ledger entries = %+v", got)
	}
	if got[0].Time == "" {
		t.Error("entry timestamp not stamped")
	}
}

func TestAppendRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANALYZER_LOG_DIR", dir)

	if err := AppendRun(RunEntry{RunID: "r2", Symbol: "MSFT", Calls: 3, TotalUSD: 0.12}); err != nil {
		t.Fatalf("AppendRun: %v", err)
	}
	path := filepath.Join(dir, "runs", time.Now().UTC().Format("2006-01-02")+".jsonl")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("run ledger missing: %v", err)
	}
}
