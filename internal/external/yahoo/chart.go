package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/httputil"
	"github.com/wonny/stockcast/pkg/logger"
	"github.com/wonny/stockcast/pkg/redis"
)

// ChartClient fetches daily OHLCV bars from the Yahoo Finance chart API
// ⭐ SSOT: Yahoo chart API calls happen here only
type ChartClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	cache      SeriesCache
	cacheTTL   time.Duration
}

// NewChartClient creates a chart client. baseURL is the chart endpoint
// without the symbol, e.g. https://query1.finance.yahoo.com/v8/finance/chart
func NewChartClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *ChartClient {
	return &ChartClient{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithCache enables raw series caching
func (c *ChartClient) WithCache(cache SeriesCache, ttl time.Duration) *ChartClient {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

// chartResponse is the v8 chart payload. Quote values are nullable.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				GMTOffset            int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDailySeries returns the raw bars for symbol over lookback (e.g. "1mo")
// at interval (e.g. "1d"). Null values are preserved as nil fields.
func (c *ChartClient) FetchDailySeries(ctx context.Context, symbol, lookback, interval string) ([]contracts.PriceBar, error) {
	symbol = contracts.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", contracts.ErrNotFound)
	}

	cacheKey := redis.SeriesKey(symbol, lookback, interval)
	if c.cache != nil {
		var cached []contracts.PriceBar
		if hit, err := c.cache.Get(ctx, cacheKey, &cached); err != nil {
			c.logger.WithError(err).Warn("series cache read failed")
		} else if hit && len(cached) > 0 {
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("range", lookback)
	params.Set("interval", interval)
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	body, err := fetch(ctx, c.httpClient, fullURL)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", contracts.ErrNotFound, symbol)
		}
		return nil, err
	}

	bars, err := parseChart(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, bars, c.cacheTTL); err != nil {
			c.logger.WithError(err).Warn("series cache write failed")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"range":  lookback,
		"count":  len(bars),
	}).Debug("Fetched daily series")

	return bars, nil
}

// parseChart decodes a chart payload into bars dated on the exchange's calendar day
func parseChart(body []byte) ([]contracts.PriceBar, error) {
	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: decode chart: %v", contracts.ErrNetwork, err)
	}
	if chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s", contracts.ErrNotFound, chart.Chart.Error.Description)
		}
		return nil, fmt.Errorf("%w: yahoo api error: %s", contracts.ErrNetwork, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("%w: no data returned", contracts.ErrNotFound)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no quote block", contracts.ErrNotFound)
	}
	quote := result.Indicators.Quote[0]
	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)

	bars := make([]contracts.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		local := time.Unix(ts, 0).In(loc)
		y, m, d := local.Date()
		bars = append(bars, contracts.PriceBar{
			Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
		})
	}
	return bars, nil
}

// at tolerates ragged quote arrays
func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtOffset)
}
