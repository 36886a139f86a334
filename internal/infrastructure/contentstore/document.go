package contentstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// productDocument is the BSON shape of a content document. Money is stored as Decimal128.
type productDocument struct {
	ID               string                 `bson:"_id"`
	Status           catalog.DocumentStatus `bson:"status"`
	Name             string                 `bson:"name"`
	Slug             string                 `bson:"slug"`
	Description      []descriptionBlock     `bson:"description"`
	ShortDescription string                 `bson:"short_description"`
	Price            primitive.Decimal128   `bson:"price"`
	CompareAtPrice   *primitive.Decimal128  `bson:"compare_at_price,omitempty"`
	Currency         string                 `bson:"currency"`
	SKU              string                 `bson:"sku"`
	CategoryID       string                 `bson:"category_id"`
	Tags             []string               `bson:"tags"`
	SEOTitle         string                 `bson:"seo_title"`
	SEODescription   string                 `bson:"seo_description"`
	Images           []imageDocument        `bson:"images"`
	Variants         []variantDocument      `bson:"variants"`
	SourceProductID  string                 `bson:"source_product_id"`
	CreatedAt        time.Time              `bson:"created_at"`
	UpdatedAt        time.Time              `bson:"updated_at"`
}

type descriptionBlock struct {
	Type  catalog.BlockType `bson:"type"`
	Text  string            `bson:"text"`
	Items []string          `bson:"items,omitempty"`
}

type imageDocument struct {
	SourceURL string `bson:"source_url"`
	AssetID   string `bson:"asset_id"`
	URL       string `bson:"url"`
	Width     int    `bson:"width"`
	Height    int    `bson:"height"`
	Primary   bool   `bson:"primary"`
	Index     int    `bson:"index"`
}

type variantDocument struct {
	SKU            string                `bson:"sku"`
	Name           string                `bson:"name"`
	Size           string                `bson:"size,omitempty"`
	Color          string                `bson:"color,omitempty"`
	ColorCode      string                `bson:"color_code,omitempty"`
	Price          primitive.Decimal128  `bson:"price"`
	CompareAtPrice *primitive.Decimal128 `bson:"compare_at_price,omitempty"`
	SourceSKUID    string                `bson:"source_sku_id,omitempty"`
	Stock          int                   `bson:"stock"`
	ImageURL       string                `bson:"image_url,omitempty"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func toNullDecimal128(d decimal.NullDecimal) *primitive.Decimal128 {
	if !d.Valid {
		return nil
	}
	v := toDecimal128(d.Decimal)
	return &v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func fromNullDecimal128(v *primitive.Decimal128) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(fromDecimal128(*v))
}

func newProductDocument(doc *catalog.ContentDocument) *productDocument {
	pd := &productDocument{
		ID:               doc.ID,
		Status:           doc.Status,
		Name:             doc.Name,
		Slug:             doc.Slug,
		Description:      make([]descriptionBlock, len(doc.Description)),
		ShortDescription: doc.ShortDescription,
		Price:            toDecimal128(doc.Price),
		CompareAtPrice:   toNullDecimal128(doc.CompareAtPrice),
		Currency:         doc.Currency,
		SKU:              doc.SKU,
		CategoryID:       doc.CategoryID,
		Tags:             doc.Tags,
		SEOTitle:         doc.SEOTitle,
		SEODescription:   doc.SEODescription,
		Images:           make([]imageDocument, len(doc.Images)),
		Variants:         make([]variantDocument, len(doc.Variants)),
		SourceProductID:  doc.SourceProductID,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if pd.Tags == nil {
		pd.Tags = []string{}
	}
	for i, b := range doc.Description {
		pd.Description[i] = descriptionBlock(b)
	}
	for i, img := range doc.Images {
		pd.Images[i] = imageDocument(img)
	}
	for i, v := range doc.Variants {
		pd.Variants[i] = variantDocument{
			SKU:            v.SKU,
			Name:           v.Name,
			Size:           v.Size,
			Color:          v.Color,
			ColorCode:      v.ColorCode,
			Price:          toDecimal128(v.Price),
			CompareAtPrice: toNullDecimal128(v.CompareAtPrice),
			SourceSKUID:    v.SourceSKUID,
			Stock:          v.Stock,
			ImageURL:       v.ImageURL,
		}
	}
	return pd
}

func (pd *productDocument) toDomain() *catalog.ContentDocument {
	doc := &catalog.ContentDocument{
		ID:               pd.ID,
		Status:           pd.Status,
		Name:             pd.Name,
		Slug:             pd.Slug,
		Description:      make([]catalog.DescriptionBlock, len(pd.Description)),
		ShortDescription: pd.ShortDescription,
		Price:            fromDecimal128(pd.Price),
		CompareAtPrice:   fromNullDecimal128(pd.CompareAtPrice),
		Currency:         pd.Currency,
		SKU:              pd.SKU,
		CategoryID:       pd.CategoryID,
		Tags:             pd.Tags,
		SEOTitle:         pd.SEOTitle,
		SEODescription:   pd.SEODescription,
		Images:           make([]catalog.ProcessedImage, len(pd.Images)),
		Variants:         make([]catalog.TransformedVariant, len(pd.Variants)),
		SourceProductID:  pd.SourceProductID,
		CreatedAt:        pd.CreatedAt,
		UpdatedAt:        pd.UpdatedAt,
	}
	for i, b := range pd.Description {
		doc.Description[i] = catalog.DescriptionBlock(b)
	}
	for i, img := range pd.Images {
		doc.Images[i] = catalog.ProcessedImage(img)
	}
	for i, v := range pd.Variants {
		doc.Variants[i] = catalog.TransformedVariant{
			SKU:            v.SKU,
			Name:           v.Name,
			Size:           v.Size,
			Color:          v.Color,
			ColorCode:      v.ColorCode,
			Price:          fromDecimal128(v.Price),
			CompareAtPrice: fromNullDecimal128(v.CompareAtPrice),
			SourceSKUID:    v.SourceSKUID,
			Stock:          v.Stock,
			ImageURL:       v.ImageURL,
		}
	}
	return doc
}
