package marketplace

import (
	"fmt"
	"io"
	"net/http"

	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewFetcher builds the fetcher selected by cfg.Source. The returned closer releases a
// headless browser when one was started.
func NewFetcher(cfg *config.MarketplaceConfig, client *http.Client, logger *zap.Logger) (listing.Fetcher, io.Closer, error) {
	limiter := NewLimiter(cfg.RateLimit, cfg.Burst)

	switch cfg.Source {
	case "api":
		f, err := NewAPIFetcher(APIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			UserAgent: cfg.UserAgent,
			MaxBytes:  cfg.MaxBytes,
			Timeout:   cfg.Timeout,
		}, WithHTTPClient(client), WithLimiter(limiter), WithLogger(logger.Named("marketplace")))
		if err != nil {
			return nil, nil, err
		}
		return f, nopCloser{}, nil
	case "html":
		if cfg.RenderMode == "chrome" {
			loader := NewChromePageLoader(&ChromeConfig{
				Timeout:   cfg.Timeout,
				NoSandbox: true,
				UserAgent: cfg.UserAgent,
				Limiter:   limiter,
				Logger:    logger.Named("chrome"),
			})
			return NewHTMLFetcher(loader, logger.Named("marketplace")), loader, nil
		}
		loader := NewHTTPPageLoader(client, limiter, cfg.UserAgent, cfg.MaxBytes)
		return NewHTMLFetcher(loader, logger.Named("marketplace")), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown marketplace source %q", cfg.Source)
	}
}
