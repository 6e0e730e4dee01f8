package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/httputil"
)

// SeriesCache is the subset of redis.Cache the Yahoo clients use
type SeriesCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// maxBodyBytes caps how much of a Yahoo response is read
const maxBodyBytes = 8 << 20

// fetch performs a GET and classifies failures.
// Transport errors and 5xx map to ErrNetwork, 404 maps to ErrNotFound.
func fetch(ctx context.Context, client *httputil.Client, rawURL string) ([]byte, error) {
	resp, err := client.Get(ctx, rawURL)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", contracts.ErrNetwork, err)
		}
		return nil, fmt.Errorf("%w: HTTP request failed: %v", contracts.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", contracts.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return body, contracts.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w: status %d", contracts.ErrNetwork, contracts.ErrRateLimited, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: unexpected status code: %d", contracts.ErrNetwork, resp.StatusCode)
	}
}
