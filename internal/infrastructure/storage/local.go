package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/storefront/backend/internal/domain/catalog"
)

// LocalAssetStore writes assets below a directory, for development installs
type LocalAssetStore struct {
	root          string
	publicBaseURL string
}

// Ensure LocalAssetStore implements AssetStore
var _ catalog.AssetStore = (*LocalAssetStore)(nil)

// NewLocalAssetStore creates the root directory if needed.
// Without publicBaseURL, asset URLs are file:// URLs.
func NewLocalAssetStore(root, publicBaseURL string) (*LocalAssetStore, error) {
	if root == "" {
		return nil, errors.New("local storage directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid local storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}
	return &LocalAssetStore{root: abs, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Upload writes data to root/key through a temporary file so readers never see partial files
func (s *LocalAssetStore) Upload(ctx context.Context, key string, data []byte, _ string) (*catalog.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}
	path, err := s.path(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}

	return &catalog.Asset{ID: key, URL: s.url(key, path)}, nil
}

// Delete removes root/id
func (s *LocalAssetStore) Delete(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return catalog.ErrAssetNotFound
		}
		return fmt.Errorf("failed to delete local asset: %w", err)
	}
	return nil
}

func (s *LocalAssetStore) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("storage key %q escapes the storage directory", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *LocalAssetStore) url(key, path string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
