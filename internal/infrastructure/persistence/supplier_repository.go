package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSupplierRepository implements SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// Upsert inserts the supplier or refreshes the row with the same external id.
// The stored row is returned, so callers get the existing ID on conflict.
func (r *GormSupplierRepository) Upsert(ctx context.Context, s *sourcing.Supplier) (*sourcing.Supplier, error) {
	if s == nil || s.ExternalID == "" {
		return nil, sourcing.ErrInvalidSupplier
	}
	model := models.SupplierModelFromDomain(s)
	model.UpdatedAt = time.Now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = model.UpdatedAt
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "store_url", "rating", "order_count", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return nil, err
	}
	return r.FindByExternalID(ctx, s.ExternalID)
}

// FindByExternalID finds a supplier by its marketplace id
func (r *GormSupplierRepository) FindByExternalID(ctx context.Context, externalID string) (*sourcing.Supplier, error) {
	var model models.SupplierModel
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormSupplierRepository implements SupplierRepository
var _ sourcing.SupplierRepository = (*GormSupplierRepository)(nil)
