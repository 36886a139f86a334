package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/storefront/backend/internal/domain/catalog"
	infraconfig "github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Ensure DriveAssetStore implements AssetStore
var _ catalog.AssetStore = (*DriveAssetStore)(nil)

// DriveAssetStore stores assets as files in one Google Drive folder.
// The asset key is used as the file name and the Drive file id is the asset id.
type DriveAssetStore struct {
	service  *drive.Service
	folderID string
	logger   *zap.Logger
}

// DriveOption is a functional option for configuring DriveAssetStore
type DriveOption func(*DriveAssetStore)

// WithDriveLogger sets a custom logger for DriveAssetStore
func WithDriveLogger(logger *zap.Logger) DriveOption {
	return func(s *DriveAssetStore) {
		s.logger = logger
	}
}

// NewDriveAssetStore authenticates with a service account credentials file
func NewDriveAssetStore(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...DriveOption) (*DriveAssetStore, error) {
	if cfg == nil || cfg.DriveFolderID == "" {
		return nil, errors.New("drive folder id is required")
	}
	if cfg.DriveCredFile == "" {
		return nil, errors.New("drive credentials file is required")
	}
	service, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.DriveCredFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return NewDriveAssetStoreWithService(service, cfg.DriveFolderID, opts...), nil
}

// NewDriveAssetStoreWithService wraps an existing Drive client
func NewDriveAssetStoreWithService(service *drive.Service, folderID string, opts ...DriveOption) *DriveAssetStore {
	s := &DriveAssetStore{service: service, folderID: folderID, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload creates the file, or replaces the content of a file with the same name in the folder,
// and makes it readable by anyone with the link.
func (s *DriveAssetStore) Upload(ctx context.Context, key string, data []byte, contentType string) (*catalog.Asset, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: storage key is required", catalog.ErrAssetUpload)
	}

	existingID, err := s.findByName(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}

	var file *drive.File
	media := googleapi.ContentType(contentType)
	if existingID != "" {
		file, err = s.service.Files.Update(existingID, &drive.File{}).
			Media(bytes.NewReader(data), media).
			SupportsAllDrives(true).
			Fields("id").
			Context(ctx).
			Do()
	} else {
		file, err = s.service.Files.Create(&drive.File{
			Name:     key,
			Parents:  []string{s.folderID},
			MimeType: contentType,
		}).
			Media(bytes.NewReader(data), media).
			SupportsAllDrives(true).
			Fields("id").
			Context(ctx).
			Do()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: drive upload %s: %w", catalog.ErrAssetUpload, key, err)
	}

	if existingID == "" {
		_, err = s.service.Permissions.Create(file.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			s.logger.Warn("Failed to share drive asset", zap.String("file_id", file.Id), zap.Error(err))
		}
	}

	return &catalog.Asset{ID: file.Id, URL: driveURL(file.Id)}, nil
}

// Delete removes a file by Drive file id
func (s *DriveAssetStore) Delete(ctx context.Context, id string) error {
	err := s.service.Files.Delete(id).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return catalog.ErrAssetNotFound
		}
		return fmt.Errorf("failed to delete drive file: %w", err)
	}
	return nil
}

func (s *DriveAssetStore) findByName(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeDriveQuery(name), escapeDriveQuery(s.folderID))
	r, err := s.service.Files.List().
		Q(query).
		Fields("files(id)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to list drive files: %w", err)
	}
	if len(r.Files) == 0 {
		return "", nil
	}
	return r.Files[0].Id, nil
}

func escapeDriveQuery(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

func driveURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=view&id=%s", fileID)
}
