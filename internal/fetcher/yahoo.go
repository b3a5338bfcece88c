package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/api"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// yahooIntervals maps analyzer timeframe labels to Yahoo chart API
// intervals.
var yahooIntervals = map[string]string{
	"1m":      "1m",
	"5m":      "5m",
	"15m":     "15m",
	"1h":      "60m",
	"4h":      "60m", // Yahoo has no 4h granularity; closest supported
	"daily":   "1d",
	"weekly":  "1wk",
	"monthly": "1mo",
}

// YahooFetcher pulls OHLCV series from the Yahoo Finance chart API.
type YahooFetcher struct {
	client    *api.Client
	rangeDays int
}

func NewYahooFetcher(baseURL string, timeout time.Duration, rangeDays int) *YahooFetcher {
	return &YahooFetcher{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		rangeDays: rangeDays,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch downloads one symbol/timeframe series. Bars Yahoo reports with
// null prices (halts, partial sessions) are dropped.
func (f *YahooFetcher) Fetch(ctx context.Context, symbol, timeframe string) (types.Series, error) {
	interval, ok := yahooIntervals[timeframe]
	if !ok {
		return types.Series{}, fmt.Errorf("unsupported timeframe %q", timeframe)
	}

	url := fmt.Sprintf("/v8/finance/chart/%s?interval=%s&range=%dd", symbol, interval, f.rangeDays)
	req := api.NewRequest(http.MethodGet, url).WithContext(ctx)
	for k, v := range api.YahooFinanceHeaders() {
		req.WithHeader(k, v)
	}
	resp, err := f.client.DoWithRetry(req, nil)
	if err != nil {
		return types.Series{}, fmt.Errorf("yahoo chart %s/%s: %w", symbol, timeframe, err)
	}

	var parsed chartResponse
	if err := resp.ParseJSON(&parsed); err != nil {
		return types.Series{}, err
	}
	if parsed.Chart.Error != nil {
		return types.Series{}, fmt.Errorf("yahoo chart error: %s: %s", parsed.Chart.Error.Code, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return types.Series{}, fmt.Errorf("yahoo chart %s/%s: empty result", symbol, timeframe)
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]types.Bar, 0, len(result.Timestamp))
	dropped := 0
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		b := types.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  quote.Open[i],
			High:  quote.High[i],
			Low:   quote.Low[i],
			Close: quote.Close[i],
		}
		if i < len(quote.Volume) {
			b.Volume = quote.Volume[i]
		}
		if !b.Valid() {
			dropped++
			continue
		}
		bars = append(bars, b)
	}
	if dropped > 0 {
		logger.DataQuality(ctx, symbol, "yahoo_bars_dropped", "dropped", dropped, "kept", len(bars))
	}
	if len(bars) == 0 {
		return types.Series{}, fmt.Errorf("yahoo chart %s/%s: no usable bars", symbol, timeframe)
	}

	logger.Info(ctx, "Series fetched", "symbol", symbol, "timeframe", timeframe, "bars", len(bars))
	return types.Series{Symbol: symbol, Timeframe: timeframe, Bars: bars}, nil
}
