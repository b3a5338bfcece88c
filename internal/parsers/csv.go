package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// Parsed is the result of loading one TradingView CSV export.
type Parsed struct {
	Series     types.Series
	DateRange  [2]time.Time
	Indicators []string
	Quality    Quality
}

// Quality reports what the loader had to discard or flag.
type Quality struct {
	TotalRows  int
	Kept       int
	Duplicates int
	Invalid    int
	Score      float64 // 0.0 - 1.0
	Errors     []string
	Warnings   []string
}

// Valid reports whether the data is usable for analysis.
func (q Quality) Valid() bool {
	return q.Score >= 0.5 && len(q.Errors) == 0
}

var (
	exchangePrefixes = map[string]bool{
		"NYSE": true, "NASDAQ": true, "AMEX": true, "LSE": true,
		"TSE": true, "BINANCE": true, "COINBASE": true, "CME": true,
	}
	timeframeSuffix = regexp.MustCompile(`__?\d+[mMhHdDwW]$`)
)

// timeframe detection thresholds, median bar interval in seconds
var timeframeThresholds = []struct {
	name    string
	seconds float64
}{
	{"1m", 90},
	{"5m", 400},
	{"15m", 1200},
	{"1h", 5400},
	{"4h", 18000},
	{"daily", 108000},
	{"weekly", 700000},
	{"monthly", 2800000},
}

// Load reads a TradingView CSV export from disk. The symbol is derived
// from the filename (NYSE_WHR_1D -> WHR) and the timeframe from the
// median bar interval.
func Load(ctx context.Context, path string) (Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Parsed{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(ctx, f, stem)
}

// Parse reads CSV content from r. name is the filename stem used for
// symbol extraction; bars are returned time-ascending with duplicate
// timestamps and OHLC-invariant violations dropped and counted in the
// quality report.
func Parse(ctx context.Context, r io.Reader, name string) (Parsed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return Parsed{}, fmt.Errorf("read csv header: %w", err)
	}
	cols, indicators := mapColumns(header)
	for _, req := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := cols[req]; !ok {
			return Parsed{}, fmt.Errorf("missing required column %q (have %v)", req, header)
		}
	}

	var (
		bars    []types.Bar
		quality Quality
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Parsed{}, fmt.Errorf("read csv row: %w", err)
		}
		quality.TotalRows++

		bar, err := parseBar(record, cols)
		if err != nil {
			quality.Invalid++
			quality.Warnings = append(quality.Warnings, fmt.Sprintf("row %d: %v", quality.TotalRows, err))
			continue
		}
		if !bar.Valid() {
			quality.Invalid++
			quality.Warnings = append(quality.Warnings, fmt.Sprintf("row %d: OHLC invariant violated", quality.TotalRows))
			continue
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	deduped := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Time.Equal(bars[i-1].Time) {
			quality.Duplicates++
			continue
		}
		deduped = append(deduped, b)
	}
	bars = deduped
	quality.Kept = len(bars)
	scoreQuality(&quality)

	symbol := extractSymbol(name)
	timeframe := detectTimeframe(bars)

	p := Parsed{
		Series:     types.Series{Symbol: symbol, Timeframe: timeframe, Bars: bars},
		Indicators: indicators,
		Quality:    quality,
	}
	if len(bars) > 0 {
		p.DateRange = [2]time.Time{bars[0].Time, bars[len(bars)-1].Time}
	}

	if quality.Invalid > 0 || quality.Duplicates > 0 {
		logger.DataQuality(ctx, symbol, "rows_dropped",
			"invalid", quality.Invalid, "duplicates", quality.Duplicates, "kept", quality.Kept)
	}
	logger.Info(ctx, "CSV parsed",
		"symbol", symbol, "timeframe", timeframe, "bars", len(bars), "quality", quality.Score)
	return p, nil
}

// mapColumns normalizes the header into column indexes and collects the
// names of pre-computed indicator columns.
func mapColumns(header []string) (map[string]int, []string) {
	cols := make(map[string]int, len(header))
	var indicators []string
	for i, raw := range header {
		lower := strings.ToLower(strings.TrimSpace(raw))
		switch lower {
		case "time", "date", "datetime", "timestamp":
			cols["time"] = i
		case "open", "o":
			cols["open"] = i
		case "high", "h":
			cols["high"] = i
		case "low", "l":
			cols["low"] = i
		case "close", "c", "adj close":
			cols["close"] = i
		case "volume", "vol", "v":
			cols["volume"] = i
		default:
			indicators = append(indicators, strings.ReplaceAll(lower, " ", "_"))
		}
	}
	return cols, indicators
}

func parseBar(record []string, cols map[string]int) (types.Bar, error) {
	field := func(name string) (string, bool) {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[idx]), true
	}

	ts, _ := field("time")
	t, err := parseTime(ts)
	if err != nil {
		return types.Bar{}, err
	}

	var bar types.Bar
	bar.Time = t
	for _, spec := range []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close},
	} {
		raw, _ := field(spec.name)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Bar{}, fmt.Errorf("bad %s %q", spec.name, raw)
		}
		*spec.dst = v
	}

	if raw, ok := field("volume"); ok && raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return types.Bar{}, fmt.Errorf("bad volume %q", raw)
		}
		bar.Volume = v
	}
	return bar, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	// TradingView exports unix seconds in the time column.
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// extractSymbol strips the exchange prefix and trailing timeframe tag
// from a TradingView filename stem (NYSE_WHR__1M -> WHR).
func extractSymbol(stem string) string {
	parts := strings.Split(stem, "_")
	symbol := parts[0]
	if exchangePrefixes[strings.ToUpper(parts[0])] && len(parts) > 1 {
		symbol = parts[1]
	}
	symbol = timeframeSuffix.ReplaceAllString(symbol, "")
	return strings.ToUpper(symbol)
}

// detectTimeframe matches the median bar interval against known
// timeframes.
func detectTimeframe(bars []types.Bar) string {
	if len(bars) < 2 {
		return "unknown"
	}
	intervals := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		intervals = append(intervals, bars[i].Time.Sub(bars[i-1].Time).Seconds())
	}
	sort.Float64s(intervals)
	median := intervals[len(intervals)/2]

	best := "unknown"
	bestDiff := 0.0
	for _, tf := range timeframeThresholds {
		diff := median - tf.seconds
		if diff < 0 {
			diff = -diff
		}
		if best == "unknown" || diff < bestDiff {
			best = tf.name
			bestDiff = diff
		}
	}
	return best
}

func scoreQuality(q *Quality) {
	score := 1.0
	if q.Kept < 10 {
		q.Errors = append(q.Errors, fmt.Sprintf("too few usable rows: %d (minimum 10)", q.Kept))
		score -= 0.3
	}
	if q.TotalRows > 0 {
		badPct := float64(q.Invalid) / float64(q.TotalRows)
		if badPct > 0.1 {
			q.Errors = append(q.Errors, fmt.Sprintf("%.0f%% of rows invalid", badPct*100))
			score -= 0.2
		} else if q.Invalid > 0 {
			score -= 0.05
		}
		if q.Duplicates > 0 {
			score -= 0.05
		}
	}
	if score < 0 {
		score = 0
	}
	q.Score = score
}
