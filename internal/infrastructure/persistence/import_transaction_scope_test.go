package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/storefront/backend/internal/application/importer"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("commits all writes", func(t *testing.T) {
		db := setupTestDB(t)
		scope := NewGormTransactionScope(db)
		ps := newTestProductSource("2001")

		err := scope.Execute(ctx, func(repos importer.TransactionalRepositories) error {
			s, err := sourcing.NewSupplier("seller-9", "Bloom", "")
			if err != nil {
				return err
			}
			stored, err := repos.SupplierRepo().Upsert(ctx, s)
			if err != nil {
				return err
			}
			ps.SupplierID = stored.ID
			if err := repos.ProductSourceRepo().Create(ctx, ps); err != nil {
				return err
			}
			return repos.ProductRepo().CreateRows(ctx, newTestProductRows("bloom-dress-abc123"))
		})
		require.NoError(t, err)

		_, err = NewGormSupplierRepository(db).FindByExternalID(ctx, "seller-9")
		assert.NoError(t, err)
		_, err = NewGormProductSourceRepository(db).FindBySourceProductID(ctx, "2001")
		assert.NoError(t, err)
		exists, err := NewGormProductRepository(db).ExistsBySlug(ctx, "bloom-dress-abc123")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("rolls back every write when a later step fails", func(t *testing.T) {
		db := setupTestDB(t)
		scope := NewGormTransactionScope(db)
		failure := errors.New("inventory write failed")

		err := scope.Execute(ctx, func(repos importer.TransactionalRepositories) error {
			s, err := sourcing.NewSupplier("seller-9", "Bloom", "")
			if err != nil {
				return err
			}
			if _, err := repos.SupplierRepo().Upsert(ctx, s); err != nil {
				return err
			}
			if err := repos.ProductSourceRepo().Create(ctx, newTestProductSource("2001")); err != nil {
				return err
			}
			return failure
		})
		assert.ErrorIs(t, err, failure)

		_, err = NewGormSupplierRepository(db).FindByExternalID(ctx, "seller-9")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = NewGormProductSourceRepository(db).FindBySourceProductID(ctx, "2001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
