package yahoo

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/httputil"
	"github.com/wonny/stockcast/pkg/logger"
	"github.com/wonny/stockcast/pkg/redis"
)

// MaxHeadlines is the most headlines returned per symbol
const MaxHeadlines = contracts.MaxHeadlines

// NewsScraper extracts headlines from the Yahoo Finance quote page
type NewsScraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	cache      SeriesCache
	cacheTTL   time.Duration
}

// NewNewsScraper creates a scraper. baseURL is the quote page root,
// e.g. https://finance.yahoo.com/quote
func NewNewsScraper(httpClient *httputil.Client, log *logger.Logger, baseURL string) *NewsScraper {
	return &NewsScraper{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithCache enables headline caching. Empty results are not cached.
func (s *NewsScraper) WithCache(cache SeriesCache, ttl time.Duration) *NewsScraper {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// FetchHeadlines returns up to MaxHeadlines distinct h3 headlines
func (s *NewsScraper) FetchHeadlines(ctx context.Context, symbol string) ([]string, error) {
	symbol = contracts.NormalizeSymbol(symbol)

	cacheKey := redis.HeadlinesKey(symbol)
	if s.cache != nil {
		var cached []string
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit && len(cached) > 0 {
			return cached, nil
		}
	}

	fullURL := fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(symbol))

	body, err := fetch(ctx, s.httpClient, fullURL)
	if err != nil {
		return []string{}, fmt.Errorf("fetch quote page: %w", err)
	}

	headlines, err := parseHeadlines(body)
	if err != nil {
		return []string{}, err
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(headlines),
	}).Debug("Scraped headlines")

	if s.cache != nil && len(headlines) > 0 {
		if err := s.cache.Set(ctx, cacheKey, headlines, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("headline cache write failed")
		}
	}

	return headlines, nil
}

func parseHeadlines(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return []string{}, fmt.Errorf("parse quote page: %w", err)
	}

	headlines := make([]string, 0, MaxHeadlines)
	seen := make(map[string]struct{})
	doc.Find("h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return true
		}
		if _, dup := seen[text]; dup {
			return true
		}
		seen[text] = struct{}{}
		headlines = append(headlines, text)
		return len(headlines) < MaxHeadlines
	})

	return headlines, nil
}
