package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var productIDPattern = regexp.MustCompile(`(\d{6,})(?:\.html?)?/?$`)

// ExtractProductID returns the marketplace product id embedded in a listing URL.
// It accepts .../item/1005001234.html style paths and ?productId= or ?id= query parameters.
func ExtractProductID(sourceURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", listing.ErrInvalidURL, sourceURL)
	}
	for _, key := range []string{"productId", "id"} {
		if v := u.Query().Get(key); v != "" {
			return v, nil
		}
	}
	if m := productIDPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no product id in %q", listing.ErrInvalidURL, sourceURL)
}

// APIConfig configures an APIFetcher
type APIConfig struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	MaxBytes  int64
	Timeout   time.Duration
}

// APIFetcher reads listings from a JSON product API at {BaseURL}/products/{id}
type APIFetcher struct {
	client  *http.Client
	cfg     APIConfig
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// Ensure APIFetcher implements Fetcher
var _ listing.Fetcher = (*APIFetcher)(nil)

// APIOption is a functional option for configuring APIFetcher
type APIOption func(*APIFetcher)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) APIOption {
	return func(f *APIFetcher) {
		f.client = client
	}
}

// WithLimiter sets the shared rate limiter
func WithLimiter(limiter *rate.Limiter) APIOption {
	return func(f *APIFetcher) {
		f.limiter = limiter
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) APIOption {
	return func(f *APIFetcher) {
		f.logger = logger
	}
}

// NewAPIFetcher creates an APIFetcher
func NewAPIFetcher(cfg APIConfig, opts ...APIOption) (*APIFetcher, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid marketplace base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	f := &APIFetcher{cfg: cfg, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: cfg.Timeout}
	}
	return f, nil
}

// FetchListing implements listing.Fetcher
func (f *APIFetcher) FetchListing(ctx context.Context, sourceURL string) (*listing.SourceListing, error) {
	productID, err := ExtractProductID(sourceURL)
	if err != nil {
		return nil, err
	}
	if err := wait(ctx, f.limiter); err != nil {
		return nil, err
	}

	endpoint := f.cfg.BaseURL + "/products/" + url.PathEscape(productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", listing.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	if f.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", f.cfg.APIKey)
	}

	start := f.now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", listing.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		f.logger.Warn("Marketplace API request failed",
			zap.String("product_id", productID),
			zap.Int("status", resp.StatusCode))
		return nil, err
	}
	body, err := readLimited(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return nil, err
	}

	var payload apiProduct
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", listing.ErrInvalidResponse, err)
	}
	l, err := payload.toListing(sourceURL, f.now())
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Fetched listing",
		zap.String("product_id", l.ExternalID),
		zap.Int("variants", len(l.Variants)),
		zap.Duration("duration", f.now().Sub(start)))
	return l, nil
}

// apiProduct is the JSON shape of the product API
type apiProduct struct {
	ProductID      string            `json:"product_id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Price          json.Number       `json:"price"`
	Currency       string            `json:"currency"`
	Images         []string          `json:"images"`
	Variants       []apiVariant      `json:"variants"`
	Specifications map[string]string `json:"specifications"`
	Seller         apiSeller         `json:"seller"`
}

type apiVariant struct {
	SKUID      string            `json:"sku_id"`
	Attributes map[string]string `json:"attributes"`
	Price      json.Number       `json:"price"`
	Stock      int               `json:"stock"`
	Image      string            `json:"image"`
}

type apiSeller struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	StoreURL   string  `json:"store_url"`
	Rating     float64 `json:"rating"`
	OrderCount int     `json:"order_count"`
}

func (p *apiProduct) toListing(sourceURL string, fetchedAt time.Time) (*listing.SourceListing, error) {
	if p.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id is missing", listing.ErrInvalidResponse)
	}
	currency := valueobject.Currency(strings.ToUpper(strings.TrimSpace(p.Currency)))
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	cost, err := parseMoney(p.Price, currency)
	if err != nil {
		return nil, fmt.Errorf("%w: price: %w", listing.ErrInvalidResponse, err)
	}

	l := &listing.SourceListing{
		ExternalID:     p.ProductID,
		Title:          p.Title,
		Description:    p.Description,
		Cost:           cost,
		ImageURLs:      nonEmpty(p.Images),
		Variants:       make([]listing.SourceVariant, 0, len(p.Variants)),
		Specifications: p.Specifications,
		Seller: listing.Seller{
			ID:         p.Seller.ID,
			Name:       p.Seller.Name,
			StoreURL:   p.Seller.StoreURL,
			Rating:     p.Seller.Rating,
			OrderCount: p.Seller.OrderCount,
		},
		SourceURL: sourceURL,
		FetchedAt: fetchedAt.UTC(),
	}
	if l.Specifications == nil {
		l.Specifications = map[string]string{}
	}
	for _, v := range p.Variants {
		price, err := parseMoney(v.Price, currency)
		if err != nil {
			return nil, fmt.Errorf("%w: variant %s price: %w", listing.ErrInvalidResponse, v.SKUID, err)
		}
		l.Variants = append(l.Variants, listing.SourceVariant{
			SKUID:      v.SKUID,
			Attributes: v.Attributes,
			Price:      price,
			Stock:      max(v.Stock, 0),
			ImageURL:   v.Image,
		})
	}
	return l, nil
}

func parseMoney(n json.Number, currency valueobject.Currency) (valueobject.Money, error) {
	if n == "" {
		return valueobject.Zero(currency), nil
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return valueobject.Money{}, err
	}
	if d.IsNegative() {
		return valueobject.Money{}, fmt.Errorf("negative amount %s", d)
	}
	return valueobject.NewMoney(d, currency)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
