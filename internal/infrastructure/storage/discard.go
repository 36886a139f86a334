package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/catalog"
)

// DiscardAssetStore accepts uploads without keeping them.
// Previews use it so images are measured and encoded but never published.
type DiscardAssetStore struct {
	// BaseURL prefixes the placeholder URLs returned by Upload
	BaseURL string
}

// NewDiscardAssetStore creates a DiscardAssetStore
func NewDiscardAssetStore() *DiscardAssetStore {
	return &DiscardAssetStore{BaseURL: "preview://assets"}
}

// Ensure DiscardAssetStore implements AssetStore
var _ catalog.AssetStore = (*DiscardAssetStore)(nil)

// Upload returns a placeholder asset for key
func (s *DiscardAssetStore) Upload(ctx context.Context, key string, _ []byte, _ string) (*catalog.Asset, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: storage key is required", catalog.ErrAssetUpload)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}
	return &catalog.Asset{ID: key, URL: strings.TrimRight(s.BaseURL, "/") + "/" + key}, nil
}

// Delete is a no-op
func (s *DiscardAssetStore) Delete(context.Context, string) error {
	return nil
}
