package importer

import (
	"context"

	"github.com/storefront/backend/internal/domain/sourcing"
)

// TransactionScope runs the relational writes of an import atomically.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories sharing one database transaction
type TransactionalRepositories interface {
	SupplierRepo() sourcing.SupplierRepository
	ProductSourceRepo() sourcing.ProductSourceRepository
	ProductRepo() sourcing.ProductRepository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// Used by tests and by stores without transaction support.
type NoOpTransactionScope struct {
	supplierRepo sourcing.SupplierRepository
	sourceRepo   sourcing.ProductSourceRepository
	productRepo  sourcing.ProductRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	supplierRepo sourcing.SupplierRepository,
	sourceRepo sourcing.ProductSourceRepository,
	productRepo sourcing.ProductRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		supplierRepo: supplierRepo,
		sourceRepo:   sourceRepo,
		productRepo:  productRepo,
	}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) SupplierRepo() sourcing.SupplierRepository { return s.supplierRepo }

func (s *NoOpTransactionScope) ProductSourceRepo() sourcing.ProductSourceRepository {
	return s.sourceRepo
}

func (s *NoOpTransactionScope) ProductRepo() sourcing.ProductRepository { return s.productRepo }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
