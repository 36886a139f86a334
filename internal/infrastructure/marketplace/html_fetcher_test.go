package marketplace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// staticLoader returns a fixed page
type staticLoader struct {
	page string
	err  error
	url  string
}

func (l *staticLoader) Load(_ context.Context, pageURL string) ([]byte, error) {
	l.url = pageURL
	return []byte(l.page), l.err
}

const jsonLDPage = `<!doctype html><html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"BreadcrumbList"}</script>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "ProductGroup",
  "name": "Floral Ruffle Toddler Dress",
  "description": "Soft cotton dress",
  "productID": "FR-2024",
  "image": ["/img/a.jpg", {"@type": "ImageObject", "url": "https://cdn.example.com/b.jpg"}, "/img/a.jpg"],
  "brand": {"@type": "Brand", "name": "Sunny Kids"},
  "additionalProperty": [{"name": "Material", "value": "Cotton"}],
  "aggregateRating": {"ratingValue": "4.7", "reviewCount": 312},
  "offers": {"@type": "AggregateOffer", "lowPrice": "11.00", "highPrice": "13.00", "priceCurrency": "USD"},
  "hasVariant": [
    {"@type": "Product", "sku": "FR-2T-RED", "size": "2T", "color": "Red", "image": "https://cdn.example.com/red.jpg",
     "offers": {"@type": "Offer", "price": 11.00, "availability": "https://schema.org/InStock"}},
    {"@type": "Product", "sku": "FR-3T-RED", "size": "3T", "color": "Red",
     "offers": {"@type": "Offer", "price": "13.00", "availability": "https://schema.org/OutOfStock"}}
  ]
}
</script></head><body></body></html>`

const openGraphPage = `<html><head>
<meta property="og:title" content="Rainbow Tutu Skirt">
<meta property="og:description" content="Layered tulle skirt">
<meta property="og:site_name" content="Tiny Threads">
<meta property="og:image" content="https://cdn.example.com/tutu-1.jpg">
<meta property="og:image" content="https://cdn.example.com/tutu-2.jpg">
<meta property="product:price:amount" content="1,299.00">
<meta property="product:price:currency" content="usd">
</head><body></body></html>`

func TestHTMLFetcher_JSONLD(t *testing.T) {
	loader := &staticLoader{page: jsonLDPage}
	f := NewHTMLFetcher(loader, zaptest.NewLogger(t))

	l, err := f.FetchListing(context.Background(), "https://shop.example.com/products/floral")

	require.NoError(t, err)
	assert.Equal(t, "FR-2024", l.ExternalID)
	assert.Equal(t, "Floral Ruffle Toddler Dress", l.Title)
	assert.True(t, l.Cost.Amount().Equal(decimal.RequireFromString("11.00")))
	assert.Equal(t, []string{"https://shop.example.com/img/a.jpg", "https://cdn.example.com/b.jpg"}, l.ImageURLs)
	assert.Equal(t, "Cotton", l.Specifications["material"])
	assert.Equal(t, "Sunny Kids", l.Seller.Name)
	assert.Equal(t, "https://shop.example.com", l.Seller.StoreURL)
	assert.InDelta(t, 4.7, l.Seller.Rating, 0.001)

	require.Len(t, l.Variants, 2)
	assert.Equal(t, "FR-2T-RED", l.Variants[0].SKUID)
	assert.Equal(t, map[string]string{"size": "2T", "color": "Red"}, l.Variants[0].Attributes)
	assert.Equal(t, inStockQuantity, l.Variants[0].Stock)
	assert.Equal(t, "https://cdn.example.com/red.jpg", l.Variants[0].ImageURL)
	assert.Equal(t, 0, l.Variants[1].Stock)
	assert.True(t, l.Variants[1].Price.Amount().Equal(decimal.RequireFromString("13")))
}

func TestHTMLFetcher_OpenGraphFallback(t *testing.T) {
	f := NewHTMLFetcher(&staticLoader{page: openGraphPage}, nil)

	l, err := f.FetchListing(context.Background(), "https://shop.example.com/item/2005009876.html")

	require.NoError(t, err)
	assert.Equal(t, "2005009876", l.ExternalID)
	assert.Equal(t, "Rainbow Tutu Skirt", l.Title)
	assert.Equal(t, "Tiny Threads", l.Seller.Name)
	assert.Len(t, l.ImageURLs, 2)
	assert.True(t, l.Cost.Amount().Equal(decimal.RequireFromString("1299")))
	assert.Equal(t, "USD", string(l.Cost.Currency()))
	assert.Empty(t, l.Variants)
}

func TestHTMLFetcher_SingleOffer(t *testing.T) {
	page := `<script type="application/ld+json">[{"@type":"Product","name":"Bow Headband","sku":"BH-1",
"offers":{"@type":"Offer","price":"2.10","priceCurrency":"EUR","availability":"InStock","inventoryLevel":{"value":7}}}]</script>`
	f := NewHTMLFetcher(&staticLoader{page: page}, nil)

	l, err := f.FetchListing(context.Background(), "https://shop.example.com/bow")

	require.NoError(t, err)
	assert.Equal(t, "BH-1", l.ExternalID)
	assert.Equal(t, "EUR", string(l.Cost.Currency()))
	require.Len(t, l.Variants, 1)
	assert.Equal(t, 7, l.Variants[0].Stock)
}

func TestHTMLFetcher_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid url", func(t *testing.T) {
		_, err := NewHTMLFetcher(&staticLoader{}, nil).FetchListing(ctx, "mailto:a@b.c")
		assert.ErrorIs(t, err, listing.ErrInvalidURL)
	})

	t.Run("loader failure passes through", func(t *testing.T) {
		loadErr := errors.Join(listing.ErrFetchFailed, errors.New("boom"))
		_, err := NewHTMLFetcher(&staticLoader{err: loadErr}, nil).FetchListing(ctx, "https://shop.example.com/x")
		assert.ErrorIs(t, err, listing.ErrFetchFailed)
	})

	t.Run("page without product data", func(t *testing.T) {
		_, err := NewHTMLFetcher(&staticLoader{page: "<html><body>hello</body></html>"}, nil).
			FetchListing(ctx, "https://shop.example.com/x")
		assert.ErrorIs(t, err, listing.ErrInvalidResponse)
	})
}

func TestHTTPPageLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(openGraphPage))
		case "/busy":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	loader := NewHTTPPageLoader(srv.Client(), NewLimiter(0, 0), "test-agent", 1<<20)
	ctx := context.Background()

	page, err := loader.Load(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Contains(t, string(page), "Rainbow Tutu Skirt")

	_, err = loader.Load(ctx, srv.URL+"/busy")
	assert.ErrorIs(t, err, listing.ErrRateLimited)

	_, err = loader.Load(ctx, srv.URL+"/broken")
	assert.ErrorIs(t, err, listing.ErrFetchFailed)

	small := NewHTTPPageLoader(srv.Client(), nil, "test-agent", 16)
	_, err = small.Load(ctx, srv.URL+"/ok")
	assert.ErrorIs(t, err, listing.ErrInvalidResponse)
}
