package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// Scraper pulls recent headlines for a symbol from financial news sites.
type Scraper struct {
	sources []NewsSource
	timeout time.Duration
}

// NewsSource defines one scrapeable news site.
type NewsSource struct {
	Name       string
	BaseURL    string
	SearchPath string // e.g. "/quote/{symbol}/news"
	Selectors  ArticleSelectors
	RateLimit  time.Duration
}

// ArticleSelectors defines CSS selectors for extracting article data.
type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	URL              string
	Snippet          string
	PublishedAt      string
}

// NewScraper creates a scraper restricted to the named sources. Unknown
// names are ignored; an empty list means all default sources.
func NewScraper(timeout time.Duration, sourceNames []string) *Scraper {
	all := defaultSources()
	if len(sourceNames) == 0 {
		return &Scraper{sources: all, timeout: timeout}
	}

	wanted := make(map[string]bool, len(sourceNames))
	for _, n := range sourceNames {
		wanted[strings.ToLower(n)] = true
	}

	picked := []NewsSource{}
	for _, src := range all {
		if wanted[strings.ToLower(src.Name)] {
			picked = append(picked, src)
		}
	}
	return &Scraper{sources: picked, timeout: timeout}
}

func defaultSources() []NewsSource {
	return []NewsSource{
		{
			Name:       "YahooFinance",
			BaseURL:    "https://finance.yahoo.com",
			SearchPath: "/quote/{symbol}/news",
			Selectors: ArticleSelectors{
				ArticleContainer: "li.stream-item",
				Title:            "h3",
				URL:              "a",
				Snippet:          "p",
				PublishedAt:      "div.publishing",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:       "Finviz",
			BaseURL:    "https://finviz.com",
			SearchPath: "/quote.ashx?t={symbol}",
			Selectors: ArticleSelectors{
				ArticleContainer: "tr.news_table-row",
				Title:            "a.tab-link-news",
				URL:              "a.tab-link-news",
				PublishedAt:      "td.news_date-cell",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:       "MarketWatch",
			BaseURL:    "https://www.marketwatch.com",
			SearchPath: "/investing/stock/{symbol}",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.element--article",
				Title:            "h3.article__headline a",
				URL:              "h3.article__headline a",
				Snippet:          "p.article__summary",
				PublishedAt:      "span.article__timestamp",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// Latest fetches recent articles for a symbol across all configured
// sources. A source that fails is skipped, not fatal.
func (s *Scraper) Latest(ctx context.Context, symbol string, limit int) ([]types.NewsArticle, error) {
	if len(s.sources) == 0 {
		return nil, fmt.Errorf("no news sources configured")
	}

	logger.Info(ctx, "Starting news scrape", "symbol", symbol, "sources", len(s.sources))

	perSource := limit / len(s.sources)
	if perSource < 1 {
		perSource = 1
	}

	all := []types.NewsArticle{}
	for _, source := range s.sources {
		articles, err := s.scrapeSource(ctx, source, symbol, perSource)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", source.Name, "symbol", symbol)
			continue
		}
		all = append(all, articles...)

		// Rate limiting between sources
		time.Sleep(source.RateLimit)
	}

	if len(all) > limit {
		all = all[:limit]
	}

	s.enrichSnippets(ctx, all)

	logger.Info(ctx, "News scrape completed", "symbol", symbol, "articles", len(all))
	return all, nil
}

// enrichSnippets fetches the article body for items the listing page
// gave no summary for.
func (s *Scraper) enrichSnippets(ctx context.Context, articles []types.NewsArticle) {
	for i := range articles {
		if articles[i].Snippet != "" {
			continue
		}
		if text := s.fetchArticleText(ctx, articles[i].URL); text != "" {
			articles[i].Snippet = text
		}

		// Rate limiting between article fetches
		time.Sleep(500 * time.Millisecond)
	}
}

// fetchArticleText pulls the lead paragraphs from an article page.
func (s *Scraper) fetchArticleText(ctx context.Context, articleURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	client := &http.Client{Timeout: s.timeout}
	resp, err := client.Do(req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch article", err, "url", articleURL)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	paragraphs := []string{}
	doc.Find("article p, div.article-body p, div.caas-body p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 20 {
			paragraphs = append(paragraphs, text)
		}
		return len(paragraphs) < 3
	})
	return strings.Join(paragraphs, " ")
}

func (s *Scraper) scrapeSource(ctx context.Context, source NewsSource, symbol string, maxArticles int) ([]types.NewsArticle, error) {
	articles := []types.NewsArticle{}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(source.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)

	c.SetRequestTimeout(s.timeout)

	// Set user agent to avoid being blocked
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(source.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(articles) >= maxArticles {
			return
		}

		title := strings.TrimSpace(e.ChildText(source.Selectors.Title))
		if title == "" {
			return
		}

		articleURL := e.ChildAttr(source.Selectors.URL, "href")
		if articleURL == "" {
			return
		}

		// Make URL absolute
		if !strings.HasPrefix(articleURL, "http") {
			articleURL = source.BaseURL + articleURL
		}

		snippet := ""
		if source.Selectors.Snippet != "" {
			snippet = strings.TrimSpace(e.ChildText(source.Selectors.Snippet))
		}

		published := parsePublished(strings.TrimSpace(e.ChildText(source.Selectors.PublishedAt)))

		articles = append(articles, types.NewsArticle{
			Title:       title,
			URL:         articleURL,
			Source:      source.Name,
			PublishedAt: published,
			Snippet:     snippet,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "source", source.Name, "url", r.Request.URL.String())
	})

	searchURL := source.BaseURL + strings.ReplaceAll(source.SearchPath, "{symbol}", strings.ToUpper(symbol))

	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", searchURL, err)
	}

	c.Wait()

	return articles, nil
}

// parsePublished best-effort parses the timestamp strings news sites
// render. Relative forms like "2 hours ago" come back as zero time.
func parsePublished(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	layouts := []string{
		time.RFC3339,
		"Jan-02-06 03:04PM",
		"Jan 2, 2006",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
