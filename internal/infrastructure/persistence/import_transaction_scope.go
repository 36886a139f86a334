package persistence

import (
	"context"

	"github.com/storefront/backend/internal/application/importer"
	"github.com/storefront/backend/internal/domain/sourcing"
	"gorm.io/gorm"
)

// GormTransactionScope implements importer.TransactionScope using GORM transactions.
// Supplier upsert, source record and product rows of one import commit together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction, rolling back when it returns an error.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos importer.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) SupplierRepo() sourcing.SupplierRepository {
	return NewGormSupplierRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProductSourceRepo() sourcing.ProductSourceRepository {
	return NewGormProductSourceRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProductRepo() sourcing.ProductRepository {
	return NewGormProductRepository(r.tx)
}

var (
	_ importer.TransactionScope          = (*GormTransactionScope)(nil)
	_ importer.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
