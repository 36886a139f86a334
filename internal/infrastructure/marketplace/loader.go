// Package marketplace implements listing.Fetcher against source marketplaces.
//
// APIFetcher reads a JSON product API. HTMLFetcher scrapes product pages through a
// PageLoader, reading schema.org JSON-LD first and OpenGraph tags as a fallback.
// Every outbound request waits on a shared token bucket.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storefront/backend/internal/domain/listing"
	"golang.org/x/time/rate"
)

const (
	defaultMaxBytes  = 5 << 20
	defaultUserAgent = "storefront-importer/1.0"
)

// PageLoader returns the HTML of a page
type PageLoader interface {
	Load(ctx context.Context, pageURL string) ([]byte, error)
}

// NewLimiter builds the token bucket shared by fetchers. A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", listing.ErrRateLimited, err)
	}
	return nil
}

// HTTPPageLoader loads pages with a plain GET
type HTTPPageLoader struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBytes  int64
}

// Ensure HTTPPageLoader implements PageLoader
var _ PageLoader = (*HTTPPageLoader)(nil)

// NewHTTPPageLoader creates an HTTPPageLoader. A nil client gets a 20 second timeout.
func NewHTTPPageLoader(client *http.Client, limiter *rate.Limiter, userAgent string, maxBytes int64) *HTTPPageLoader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &HTTPPageLoader{client: client, limiter: limiter, userAgent: userAgent, maxBytes: maxBytes}
}

// Load implements PageLoader
func (l *HTTPPageLoader) Load(ctx context.Context, pageURL string) ([]byte, error) {
	if err := wait(ctx, l.limiter); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", listing.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", listing.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}
	return readLimited(resp.Body, l.maxBytes)
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: marketplace returned %d", listing.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: marketplace returned %d", listing.ErrFetchFailed, resp.StatusCode)
	}
	return nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", listing.ErrFetchFailed, err)
		}
		return nil, fmt.Errorf("%w: read body: %w", listing.ErrFetchFailed, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", listing.ErrInvalidResponse, maxBytes)
	}
	return data, nil
}
