package yahoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/httputil"
	"github.com/wonny/stockcast/pkg/logger"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "exchangeTimezoneName": "America/New_York", "gmtoffset": -14400},
      "timestamp": [1717421400, 1717507800, 1717594200],
      "indicators": {"quote": [{
        "open":   [192.9, null, 195.4],
        "high":   [194.9, 195.3, 196.9],
        "low":    [192.5, 193.0, 194.1],
        "close":  [194.0, 194.3, 195.9],
        "volume": [50080500, 47471400, 54156800]
      }]}
    }],
    "error": null
  }
}`

const notFoundFixture = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func newTestClient() *httputil.Client {
	return httputil.New(logger.NewNop()).WithRetry(1, time.Millisecond)
}

func TestChartClient_FetchDailySeries(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(chartFixture))
	}))
	defer srv.Close()

	c := NewChartClient(newTestClient(), logger.NewNop(), srv.URL+"/v8/finance/chart/")
	bars, err := c.FetchDailySeries(context.Background(), "aapl", "1mo", "1d")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Contains(t, gotQuery, "range=1mo")
	assert.Contains(t, gotQuery, "interval=1d")

	require.Len(t, bars, 3)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), bars[2].Date)
	assert.Nil(t, bars[1].Open)
	require.NotNil(t, bars[2].Close)
	assert.Equal(t, 195.9, *bars[2].Close)
	assert.Equal(t, 54156800.0, *bars[2].Volume)
}

func TestChartClient_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"404 status", http.StatusNotFound, notFoundFixture},
		{"error payload", http.StatusOK, notFoundFixture},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewChartClient(newTestClient(), logger.NewNop(), srv.URL)
			bars, err := c.FetchDailySeries(context.Background(), "ZZZINVALID", "1mo", "1d")
			assert.ErrorIs(t, err, contracts.ErrNotFound)
			assert.Empty(t, bars)
		})
	}
}

func TestChartClient_ServerErrorRetriedOnce(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewChartClient(newTestClient(), logger.NewNop(), srv.URL)
	_, err := c.FetchDailySeries(context.Background(), "AAPL", "1mo", "1d")
	assert.ErrorIs(t, err, contracts.ErrNetwork)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestChartClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewChartClient(newTestClient(), logger.NewNop(), url)
	_, err := c.FetchDailySeries(context.Background(), "AAPL", "1mo", "1d")
	assert.ErrorIs(t, err, contracts.ErrNetwork)
}

// memCache stores JSON like redis.Cache does
type memCache struct {
	data map[string][]byte
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.sets++
	return nil
}

func TestChartClient_Cache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(chartFixture))
	}))
	defer srv.Close()

	cache := newMemCache()
	c := NewChartClient(newTestClient(), logger.NewNop(), srv.URL).WithCache(cache, time.Minute)

	first, err := c.FetchDailySeries(context.Background(), "AAPL", "1mo", "1d")
	require.NoError(t, err)
	second, err := c.FetchDailySeries(context.Background(), "AAPL", "1mo", "1d")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.data, "series:AAPL:1mo:1d")
}

func TestParseChart_RaggedArrays(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1704153600,1704240000],
	"indicators":{"quote":[{"open":[1],"high":[1,2],"low":[1,2],"close":[1,2],"volume":[1,2]}]}}],"error":null}}`

	bars, err := parseChart([]byte(body))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Nil(t, bars[1].Open)
	assert.False(t, bars[1].Complete())
}
