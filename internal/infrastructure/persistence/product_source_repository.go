package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductSourceRepository implements ProductSourceRepository using GORM
type GormProductSourceRepository struct {
	db *gorm.DB
}

// NewGormProductSourceRepository creates a new GormProductSourceRepository
func NewGormProductSourceRepository(db *gorm.DB) *GormProductSourceRepository {
	return &GormProductSourceRepository{db: db}
}

// Create inserts the source-tracking record. The unique index on source_product_id
// turns a concurrent second import of the same listing into ErrDuplicateSource.
func (r *GormProductSourceRepository) Create(ctx context.Context, ps *sourcing.ProductSource) error {
	model := models.ProductSourceModelFromDomain(ps)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", sourcing.ErrDuplicateSource, ps.SourceProductID)
		}
		return err
	}
	return nil
}

// FindBySourceProductID finds the record tracking a marketplace listing
func (r *GormProductSourceRepository) FindBySourceProductID(ctx context.Context, sourceProductID string) (*sourcing.ProductSource, error) {
	var model models.ProductSourceModel
	if err := r.db.WithContext(ctx).
		Where("source_product_id = ?", sourceProductID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormProductSourceRepository implements ProductSourceRepository
var _ sourcing.ProductSourceRepository = (*GormProductSourceRepository)(nil)
