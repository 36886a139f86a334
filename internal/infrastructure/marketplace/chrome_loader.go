package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/storefront/backend/internal/domain/listing"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultChromeTimeout = 30 * time.Second

// ChromeConfig contains configuration for the headless page loader
type ChromeConfig struct {
	// Timeout bounds one page load including script execution
	Timeout time.Duration
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	// If empty, chromedp will launch a new browser instance
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// UserAgent overrides the browser user agent
	UserAgent string
	// WaitSelector is awaited before the DOM is captured
	WaitSelector string
	Limiter      *rate.Limiter
	Logger       *zap.Logger
}

// ChromePageLoader renders pages in headless Chrome, for marketplaces that build
// product data with JavaScript
type ChromePageLoader struct {
	config      *ChromeConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// Ensure ChromePageLoader implements PageLoader
var _ PageLoader = (*ChromePageLoader)(nil)

// NewChromePageLoader creates the browser allocator. The browser itself starts lazily on first load.
func NewChromePageLoader(config *ChromeConfig) *ChromePageLoader {
	if config == nil {
		config = &ChromeConfig{}
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultChromeTimeout
	}
	if config.WaitSelector == "" {
		config.WaitSelector = "body"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &ChromePageLoader{config: config, logger: logger}
	l.initAllocator()
	return l
}

func (l *ChromePageLoader) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if l.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if l.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.config.UserAgent))
	}

	if l.config.RemoteURL != "" {
		l.allocCtx, l.allocCancel = chromedp.NewRemoteAllocator(context.Background(), l.config.RemoteURL)
	} else {
		l.allocCtx, l.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// Load implements PageLoader
func (l *ChromePageLoader) Load(ctx context.Context, pageURL string) ([]byte, error) {
	if err := wait(ctx, l.config.Limiter); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(l.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			l.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer tabCancel()

	// Stop the tab when the caller's deadline passes
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var html string
	start := time.Now()
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(l.config.WaitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: page render timed out after %v", listing.ErrFetchFailed, l.config.Timeout)
		}
		return nil, fmt.Errorf("%w: chrome: %w", listing.ErrFetchFailed, err)
	}

	l.logger.Debug("Page rendered",
		zap.String("url", pageURL),
		zap.Int("bytes", len(html)),
		zap.Duration("duration", time.Since(start)))
	return []byte(html), nil
}

// Close releases the browser
func (l *ChromePageLoader) Close() error {
	if l.allocCancel != nil {
		l.allocCancel()
	}
	return nil
}
