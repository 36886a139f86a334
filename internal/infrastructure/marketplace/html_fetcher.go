package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// inStockQuantity is reported for offers that say InStock without a count
const inStockQuantity = 100

// HTMLFetcher scrapes listings from product pages
type HTMLFetcher struct {
	loader PageLoader
	logger *zap.Logger
	now    func() time.Time
}

// Ensure HTMLFetcher implements Fetcher
var _ listing.Fetcher = (*HTMLFetcher)(nil)

// NewHTMLFetcher creates an HTMLFetcher over loader
func NewHTMLFetcher(loader PageLoader, logger *zap.Logger) *HTMLFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTMLFetcher{loader: loader, logger: logger, now: time.Now}
}

// FetchListing implements listing.Fetcher
func (f *HTMLFetcher) FetchListing(ctx context.Context, sourceURL string) (*listing.SourceListing, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", listing.ErrInvalidURL, sourceURL)
	}

	page, err := f.loader.Load(ctx, u.String())
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", listing.ErrInvalidResponse, err)
	}

	l, ok := fromJSONLD(doc, f.logger)
	if !ok {
		l, ok = fromOpenGraph(doc)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no product data on page", listing.ErrInvalidResponse)
	}

	if l.ExternalID == "" {
		if id, err := ExtractProductID(sourceURL); err == nil {
			l.ExternalID = id
		} else {
			l.ExternalID = hashID(u.Host + u.Path)
		}
	}
	if l.Seller.StoreURL == "" {
		l.Seller.StoreURL = u.Scheme + "://" + u.Host
	}
	if l.Seller.ID == "" {
		l.Seller.ID = u.Host
	}
	l.ImageURLs = resolveAll(u, l.ImageURLs)
	l.SourceURL = sourceURL
	l.FetchedAt = f.now().UTC()
	if l.Specifications == nil {
		l.Specifications = map[string]string{}
	}
	return l, nil
}

// ldProduct is the subset of schema.org Product used for listings
type ldProduct struct {
	Type        ldStrings    `json:"@type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	SKU         string       `json:"sku"`
	ProductID   string       `json:"productID"`
	Image       ldImages     `json:"image"`
	Brand       ldNamed      `json:"brand"`
	Offers      ldOffers     `json:"offers"`
	Color       string       `json:"color"`
	Size        string       `json:"size"`
	Material    string       `json:"material"`
	HasVariant  []ldProduct  `json:"hasVariant"`
	Rating      *ldRating    `json:"aggregateRating"`
	Properties  []ldProperty `json:"additionalProperty"`
	Graph       []ldProduct  `json:"@graph"`
}

type ldOffer struct {
	Price          json.Number `json:"price"`
	LowPrice       json.Number `json:"lowPrice"`
	PriceCurrency  string      `json:"priceCurrency"`
	Availability   string      `json:"availability"`
	SKU            string      `json:"sku"`
	Name           string      `json:"name"`
	InventoryLevel *struct {
		Value json.Number `json:"value"`
	} `json:"inventoryLevel"`
	Seller ldNamed `json:"seller"`
}

type ldRating struct {
	RatingValue json.Number `json:"ratingValue"`
	ReviewCount json.Number `json:"reviewCount"`
}

type ldProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ldStrings accepts a string or an array of strings
type ldStrings []string

func (s *ldStrings) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

func (s ldStrings) has(v string) bool {
	for _, t := range s {
		if t == v {
			return true
		}
	}
	return false
}

// ldImages accepts a URL, a list of URLs, or ImageObjects
type ldImages []string

func (s *ldImages) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = []json.RawMessage{data}
	}
	for _, item := range raw {
		var u string
		if err := json.Unmarshal(item, &u); err == nil {
			*s = append(*s, u)
			continue
		}
		var obj struct {
			URL        string `json:"url"`
			ContentURL string `json:"contentUrl"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			if obj.URL != "" {
				*s = append(*s, obj.URL)
			} else if obj.ContentURL != "" {
				*s = append(*s, obj.ContentURL)
			}
		}
	}
	return nil
}

// ldNamed accepts a name string or an object with a name
type ldNamed struct {
	Name string
	URL  string
}

func (n *ldNamed) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n.Name = s
		return nil
	}
	var obj struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	n.Name, n.URL = obj.Name, obj.URL
	return nil
}

// ldOffers accepts a single Offer, an AggregateOffer or a list of offers
type ldOffers []ldOffer

func (o *ldOffers) UnmarshalJSON(data []byte) error {
	var many []ldOffer
	if err := json.Unmarshal(data, &many); err == nil {
		*o = many
		return nil
	}
	var agg struct {
		ldOffer
		Offers []ldOffer `json:"offers"`
	}
	if err := json.Unmarshal(data, &agg); err != nil {
		return err
	}
	if len(agg.Offers) > 0 {
		*o = agg.Offers
		return nil
	}
	*o = []ldOffer{agg.ldOffer}
	return nil
}

func fromJSONLD(doc *goquery.Document, logger *zap.Logger) (*listing.SourceListing, bool) {
	var found *ldProduct
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		var candidates []ldProduct
		if strings.HasPrefix(raw, "[") {
			if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
				logger.Debug("Skipping unparseable JSON-LD block", zap.Error(err))
				return true
			}
		} else {
			var one ldProduct
			if err := json.Unmarshal([]byte(raw), &one); err != nil {
				logger.Debug("Skipping unparseable JSON-LD block", zap.Error(err))
				return true
			}
			candidates = append([]ldProduct{one}, one.Graph...)
		}
		for i := range candidates {
			if candidates[i].Type.has("Product") || candidates[i].Type.has("ProductGroup") {
				found = &candidates[i]
				return false
			}
		}
		return true
	})
	if found == nil || strings.TrimSpace(found.Name) == "" {
		return nil, false
	}
	return found.toListing(), true
}

func (p *ldProduct) toListing() *listing.SourceListing {
	l := &listing.SourceListing{
		ExternalID:     firstNonEmpty(p.ProductID, p.SKU),
		Title:          p.Name,
		Description:    p.Description,
		ImageURLs:      nonEmpty(p.Image),
		Specifications: map[string]string{},
		Seller:         listing.Seller{Name: p.Brand.Name},
	}
	for _, prop := range p.Properties {
		if prop.Name != "" && prop.Value != "" {
			l.Specifications[strings.ToLower(prop.Name)] = prop.Value
		}
	}
	if p.Material != "" {
		l.Specifications["material"] = p.Material
	}
	if p.Rating != nil {
		if r, err := p.Rating.RatingValue.Float64(); err == nil {
			l.Seller.Rating = r
		}
		if c, err := p.Rating.ReviewCount.Int64(); err == nil {
			l.Seller.OrderCount = int(c)
		}
	}

	currency := valueobject.DefaultCurrency
	var base decimal.Decimal
	if len(p.Offers) > 0 {
		first := p.Offers[0]
		if first.PriceCurrency != "" {
			currency = valueobject.Currency(strings.ToUpper(first.PriceCurrency))
		}
		base = minOfferPrice(p.Offers)
		if first.Seller.Name != "" {
			l.Seller.Name = first.Seller.Name
			l.Seller.StoreURL = first.Seller.URL
		}
	}
	l.Cost, _ = valueobject.NewMoney(base, currency)

	switch {
	case len(p.HasVariant) > 0:
		for _, v := range p.HasVariant {
			l.Variants = append(l.Variants, v.toVariant(currency))
		}
	case len(p.Offers) > 1:
		for _, o := range p.Offers {
			price, _ := offerPrice(o)
			money, _ := valueobject.NewMoney(price, currency)
			l.Variants = append(l.Variants, listing.SourceVariant{
				SKUID:      o.SKU,
				Attributes: map[string]string{"option": firstNonEmpty(o.Name, o.SKU)},
				Price:      money,
				Stock:      offerStock(o),
			})
		}
	case len(p.Offers) == 1 && p.Offers[0].Availability != "":
		// One offer with availability is a single sellable variant
		l.Variants = []listing.SourceVariant{{
			SKUID:      firstNonEmpty(p.Offers[0].SKU, p.SKU),
			Attributes: map[string]string{},
			Price:      l.Cost,
			Stock:      offerStock(p.Offers[0]),
		}}
	}
	return l
}

func (p *ldProduct) toVariant(currency valueobject.Currency) listing.SourceVariant {
	attrs := map[string]string{}
	if p.Size != "" {
		attrs["size"] = p.Size
	}
	if p.Color != "" {
		attrs["color"] = p.Color
	}
	v := listing.SourceVariant{
		SKUID:      firstNonEmpty(p.SKU, p.ProductID),
		Attributes: attrs,
		Price:      valueobject.Zero(currency),
	}
	if len(p.Image) > 0 {
		v.ImageURL = p.Image[0]
	}
	if len(p.Offers) > 0 {
		price, _ := offerPrice(p.Offers[0])
		v.Price, _ = valueobject.NewMoney(price, currency)
		v.Stock = offerStock(p.Offers[0])
	}
	return v
}

func offerPrice(o ldOffer) (decimal.Decimal, bool) {
	for _, n := range []json.Number{o.Price, o.LowPrice} {
		if n == "" {
			continue
		}
		if d, err := decimal.NewFromString(string(n)); err == nil && !d.IsNegative() {
			return d, true
		}
	}
	return decimal.Zero, false
}

func minOfferPrice(offers []ldOffer) decimal.Decimal {
	var lowest decimal.Decimal
	found := false
	for _, o := range offers {
		if d, ok := offerPrice(o); ok && (!found || d.LessThan(lowest)) {
			lowest, found = d, true
		}
	}
	return lowest
}

func offerStock(o ldOffer) int {
	if o.InventoryLevel != nil {
		if n, err := o.InventoryLevel.Value.Int64(); err == nil && n >= 0 {
			return int(n)
		}
	}
	a := strings.ToLower(o.Availability)
	switch {
	case strings.HasSuffix(a, "instock"), strings.HasSuffix(a, "limitedavailability"), strings.HasSuffix(a, "onlineonly"):
		return inStockQuantity
	default:
		return 0
	}
}

func fromOpenGraph(doc *goquery.Document) (*listing.SourceListing, bool) {
	meta := func(property string) string {
		v, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
		return strings.TrimSpace(v)
	}

	title := meta("og:title")
	if title == "" {
		return nil, false
	}
	l := &listing.SourceListing{
		Title:          title,
		Description:    meta("og:description"),
		Specifications: map[string]string{},
		Seller:         listing.Seller{Name: meta("og:site_name")},
	}
	doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
			l.ImageURLs = append(l.ImageURLs, strings.TrimSpace(v))
		}
	})

	currency := valueobject.Currency(strings.ToUpper(firstNonEmpty(meta("product:price:currency"), meta("og:price:currency"))))
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount := decimal.Zero
	if v := firstNonEmpty(meta("product:price:amount"), meta("og:price:amount")); v != "" {
		if d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "")); err == nil && !d.IsNegative() {
			amount = d
		}
	}
	l.Cost, _ = valueobject.NewMoney(amount, currency)
	if id := meta("product:retailer_item_id"); id != "" {
		l.ExternalID = id
	}
	return l, true
}

func resolveAll(base *url.URL, refs []string) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		r, err := url.Parse(strings.TrimSpace(ref))
		if err != nil {
			continue
		}
		abs := base.ResolveReference(r).String()
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out
}

func hashID(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
