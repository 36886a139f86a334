package catalog

import (
	"context"
	"errors"
)

var (
	// ErrAssetUpload is returned when an asset store rejects an upload
	ErrAssetUpload = errors.New("catalog: asset upload failed")
	// ErrAssetNotFound is returned when deleting or probing a missing asset
	ErrAssetNotFound = errors.New("catalog: asset not found")
)

// ProcessedImage is an image that was downloaded, re-encoded and stored
type ProcessedImage struct {
	SourceURL string `json:"source_url"`
	AssetID   string `json:"asset_id"`
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Primary   bool   `json:"primary"`
	// Index is the position of the source URL in the input list
	Index int `json:"index"`
}

// Dimensions is the pixel size of an image
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Asset is a stored binary object
type Asset struct {
	// ID is the store-specific reference, e.g. an object key or a file id
	ID string
	// URL is where shoppers can load the asset
	URL string
}

// AssetStore stores binary assets and returns stable references to them
type AssetStore interface {
	// Upload stores data under key; re-uploading the same key replaces the object
	Upload(ctx context.Context, key string, data []byte, contentType string) (*Asset, error)
	// Delete removes an asset by the ID returned from Upload
	Delete(ctx context.Context, id string) error
}
