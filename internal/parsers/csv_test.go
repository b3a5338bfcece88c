package parsers

import (
	"context"
	"strings"
	"testing"
	"time"
)

const goodCSV = `time,open,high,low,close,Volume
2024-01-01,100,101,99,100.5,1000
2024-01-02,100.5,102,100,101.5,1200
2024-01-03,101.5,103,101,102,900
2024-01-04,102,102.5,100.5,101,1100
2024-01-05,101,101.5,99.5,100,1300
2024-01-08,100,101,99,100.5,1000
2024-01-09,100.5,102,100,101.5,1200
2024-01-10,101.5,103,101,102,900
2024-01-11,102,102.5,100.5,101,1100
2024-01-12,101,101.5,99.5,100,1300
`

func TestParseGoodCSV(t *testing.T) {
	p, err := Parse(context.Background(), strings.NewReader(goodCSV), "NYSE_WHR_1D")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Series.Symbol != "WHR" {
		t.Errorf("symbol = %q, want WHR", p.Series.Symbol)
	}
	if p.Series.Timeframe != "daily" {
		t.Errorf("timeframe = %q, want daily", p.Series.Timeframe)
	}
	if len(p.Series.Bars) != 10 {
		t.Fatalf("got %d bars, want 10", len(p.Series.Bars))
	}
	if !p.Quality.Valid() {
		t.Errorf("quality = %+v, want valid", p.Quality)
	}
	if p.Series.Bars[0].Close != 100.5 || p.Series.Bars[0].Volume != 1000 {
		t.Errorf("first bar = %+v", p.Series.Bars[0])
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !p.DateRange[0].Equal(want) {
		t.Errorf("date range start = %v, want %v", p.DateRange[0], want)
	}
}

func TestParseDropsInvalidBars(t *testing.T) {
	// Row 3 violates high >= max(open, close); row 4 has garbage open.
	csv := `time,open,high,low,close
2024-01-01,100,101,99,100.5
2024-01-02,100.5,102,100,101.5
2024-01-03,101,100,99,101.5
2024-01-04,abc,102,100,101
2024-01-05,101,101.5,99.5,100
`
	p, err := Parse(context.Background(), strings.NewReader(csv), "TEST")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Series.Bars) != 3 {
		t.Errorf("got %d bars, want 3 after dropping bad rows", len(p.Series.Bars))
	}
	if p.Quality.Invalid != 2 {
		t.Errorf("invalid count = %d, want 2", p.Quality.Invalid)
	}
}

func TestParseDropsDuplicateTimestamps(t *testing.T) {
	csv := `time,open,high,low,close
2024-01-01,100,101,99,100.5
2024-01-02,100.5,102,100,101.5
2024-01-02,100.5,102,100,101.5
2024-01-03,101.5,103,101,102
`
	p, err := Parse(context.Background(), strings.NewReader(csv), "TEST")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Series.Bars) != 3 {
		t.Errorf("got %d bars, want 3", len(p.Series.Bars))
	}
	if p.Quality.Duplicates != 1 {
		t.Errorf("duplicate count = %d, want 1", p.Quality.Duplicates)
	}
}

func TestParseSortsOutOfOrderRows(t *testing.T) {
	csv := `time,open,high,low,close
2024-01-03,101.5,103,101,102
2024-01-01,100,101,99,100.5
2024-01-02,100.5,102,100,101.5
`
	p, err := Parse(context.Background(), strings.NewReader(csv), "TEST")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i := 1; i < len(p.Series.Bars); i++ {
		if !p.Series.Bars[i].Time.After(p.Series.Bars[i-1].Time) {
			t.Fatalf("bars not time-ascending: %v", p.Series.Bars)
		}
	}
}

func TestParseUnixTimestamps(t *testing.T) {
	csv := `timestamp,o,h,l,c,vol
1704067200,100,101,99,100.5,1000
1704153600,100.5,102,100,101.5,1200
`
	p, err := Parse(context.Background(), strings.NewReader(csv), "BTCUSD_1D")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Series.Bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(p.Series.Bars))
	}
	if p.Series.Symbol != "BTCUSD" {
		t.Errorf("symbol = %q, want BTCUSD", p.Series.Symbol)
	}
	if got := p.Series.Bars[0].Time; got != time.Unix(1704067200, 0).UTC() {
		t.Errorf("first bar time = %v", got)
	}
}

func TestParseMissingRequiredColumn(t *testing.T) {
	csv := `time,open,high,low
2024-01-01,100,101,99
`
	if _, err := Parse(context.Background(), strings.NewReader(csv), "TEST"); err == nil {
		t.Error("missing close column accepted")
	}
}

func TestParseIndicatorColumns(t *testing.T) {
	csv := `time,open,high,low,close,RSI,MACD Level
2024-01-01,100,101,99,100.5,55.2,0.3
2024-01-02,100.5,102,100,101.5,56.1,0.4
`
	p, err := Parse(context.Background(), strings.NewReader(csv), "TEST")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Indicators) != 2 || p.Indicators[0] != "rsi" || p.Indicators[1] != "macd_level" {
		t.Errorf("indicators = %v, want [rsi macd_level]", p.Indicators)
	}
}

func TestDetectTimeframeWeekly(t *testing.T) {
	var b strings.Builder
	b.WriteString("time,open,high,low,close\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		b.WriteString(start.AddDate(0, 0, i*7).Format("2006-01-02"))
		b.WriteString(",100,101,99,100.5\n")
	}
	p, err := Parse(context.Background(), strings.NewReader(b.String()), "TEST")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Series.Timeframe != "weekly" {
		t.Errorf("timeframe = %q, want weekly", p.Series.Timeframe)
	}
}
