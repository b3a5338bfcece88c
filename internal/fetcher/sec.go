package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/marvinguevarra/trading-analyzer/internal/api"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// relevantForms are the filing types surfaced to the fundamental agent.
var relevantForms = map[string]bool{
	"10-K": true,
	"10-Q": true,
	"8-K":  true,
}

// SECFetcher pulls recent filings from SEC EDGAR. The ticker-to-CIK
// table is fetched once and cached for the fetcher's lifetime.
type SECFetcher struct {
	client     *api.Client
	tickersURL string
	userAgent  string

	mu   sync.Mutex
	ciks map[string]int64
}

func NewSECFetcher(baseURL, tickersURL, userAgent string, timeout time.Duration) *SECFetcher {
	if tickersURL == "" {
		tickersURL = "https://www.sec.gov/files/company_tickers.json"
	}
	return &SECFetcher{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		tickersURL: tickersURL,
		userAgent:  userAgent,
	}
}

type submissionsResponse struct {
	CIK     any    `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// RecentFilings returns up to limit 10-K/10-Q/8-K filings for a ticker,
// newest first as EDGAR reports them.
func (f *SECFetcher) RecentFilings(ctx context.Context, symbol string, limit int) ([]types.Filing, error) {
	cik, err := f.lookupCIK(ctx, symbol)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("/submissions/CIK%010d.json", cik)
	resp, err := f.client.GET(ctx, url, api.SECHeaders(f.userAgent))
	if err != nil {
		return nil, fmt.Errorf("edgar submissions %s: %w", symbol, err)
	}
	var parsed submissionsResponse
	if err := resp.ParseJSON(&parsed); err != nil {
		return nil, err
	}

	recent := parsed.Filings.Recent
	var filings []types.Filing
	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || i >= len(recent.FilingDate) {
			break
		}
		if !relevantForms[recent.Form[i]] {
			continue
		}
		filedAt, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}
		accession := recent.AccessionNumber[i]
		doc := ""
		if i < len(recent.PrimaryDocument) {
			doc = recent.PrimaryDocument[i]
		}
		filings = append(filings, types.Filing{
			Form:      recent.Form[i],
			FiledAt:   filedAt,
			Accession: accession,
			URL: fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%d/%s/%s",
				cik, strings.ReplaceAll(accession, "-", ""), doc),
		})
		if limit > 0 && len(filings) >= limit {
			break
		}
	}

	logger.Info(ctx, "Filings fetched", "symbol", symbol, "count", len(filings))
	return filings, nil
}

type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

func (f *SECFetcher) lookupCIK(ctx context.Context, symbol string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ciks == nil {
		req := api.NewRequest("GET", f.tickersURL).WithContext(ctx)
		for k, v := range api.SECHeaders(f.userAgent) {
			req.WithHeader(k, v)
		}
		// tickersURL is absolute; bypass the base URL by using a bare client
		resp, err := api.NewClient().Do(req)
		if err != nil {
			return 0, fmt.Errorf("fetch ticker table: %w", err)
		}
		var table map[string]tickerEntry
		if err := resp.ParseJSON(&table); err != nil {
			return 0, fmt.Errorf("parse ticker table: %w", err)
		}
		f.ciks = make(map[string]int64, len(table))
		for _, e := range table {
			f.ciks[strings.ToUpper(e.Ticker)] = e.CIK
		}
	}

	cik, ok := f.ciks[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("symbol %q not found in EDGAR ticker table", symbol)
	}
	return cik, nil
}
