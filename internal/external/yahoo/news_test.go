package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/pkg/logger"
)

const quotePage = `<html><body>
<section>
  <h3 class="Mb(5px)">Apple unveils new chips</h3>
  <h3>  Apple   unveils new chips </h3>
  <h3><a href="/n/2">Analysts lift targets</a></h3>
  <h3></h3>
  <h3>Supply chain update</h3>
  <h3>Earnings preview</h3>
  <h3>Options activity spikes</h3>
  <h3>This one is past the limit</h3>
</section>
</body></html>`

func TestNewsScraper_FetchHeadlines(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(quotePage))
	}))
	defer srv.Close()

	s := NewNewsScraper(newTestClient(), logger.NewNop(), srv.URL+"/quote")
	headlines, err := s.FetchHeadlines(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "/quote/AAPL", gotPath)
	assert.Equal(t, []string{
		"Apple unveils new chips",
		"Analysts lift targets",
		"Supply chain update",
		"Earnings preview",
		"Options activity spikes",
	}, headlines)
}

func TestNewsScraper_NoHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>nothing</p></body></html>`))
	}))
	defer srv.Close()

	s := NewNewsScraper(newTestClient(), logger.NewNop(), srv.URL)
	headlines, err := s.FetchHeadlines(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.NotNil(t, headlines)
	assert.Empty(t, headlines)
}

func TestNewsScraper_ErrorReturnsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewNewsScraper(newTestClient(), logger.NewNop(), srv.URL)
	headlines, err := s.FetchHeadlines(context.Background(), "MSFT")
	assert.Error(t, err)
	assert.NotNil(t, headlines)
	assert.Empty(t, headlines)
}

func TestNewsScraper_Cache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(quotePage))
	}))
	defer srv.Close()

	cache := newMemCache()
	s := NewNewsScraper(newTestClient(), logger.NewNop(), srv.URL).WithCache(cache, time.Minute)

	first, err := s.FetchHeadlines(context.Background(), "msft")
	require.NoError(t, err)
	second, err := s.FetchHeadlines(context.Background(), "MSFT")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, second, MaxHeadlines)
	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, cache.data, "news:MSFT")
}
