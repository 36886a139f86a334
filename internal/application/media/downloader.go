package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrDownloadFailed is returned when an image could not be retrieved
	ErrDownloadFailed = errors.New("media: download failed")
	// ErrTooLarge is returned when an image exceeds the configured byte limit
	ErrTooLarge = errors.New("media: image too large")
)

// Downloader retrieves image bytes
type Downloader interface {
	// Download fetches the whole body of url, failing with ErrTooLarge past limit bytes
	Download(ctx context.Context, url string, limit int64) ([]byte, error)
	// DownloadPrefix fetches at most the first n bytes of url
	DownloadPrefix(ctx context.Context, url string, n int64) ([]byte, error)
}

// HTTPDownloader downloads images over HTTP
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
}

var _ Downloader = (*HTTPDownloader)(nil)

// NewHTTPDownloader creates an HTTPDownloader. A nil client gets a 30 second timeout.
func NewHTTPDownloader(client *http.Client) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPDownloader{client: client, userAgent: "storefront-importer/1.0"}
}

// Download implements Downloader
func (d *HTTPDownloader) Download(ctx context.Context, url string, limit int64) ([]byte, error) {
	body, err := d.get(ctx, url, "")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrDownloadFailed, url, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, url, limit)
	}
	return data, nil
}

// DownloadPrefix implements Downloader using a Range request.
// Servers that ignore the range are read only up to n bytes.
func (d *HTTPDownloader) DownloadPrefix(ctx context.Context, url string, n int64) ([]byte, error) {
	body, err := d.get(ctx, url, fmt.Sprintf("bytes=0-%d", n-1))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, n))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrDownloadFailed, url, err)
	}
	return data, nil
}

func (d *HTTPDownloader) get(ctx context.Context, url, byteRange string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/*")
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDownloadFailed, url, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned status %d", ErrDownloadFailed, url, resp.StatusCode)
	}
	return resp.Body, nil
}
