package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/pkg/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) *PGRepository {
	t.Helper()
	db, err := sqlite.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewPGRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func stores(t *testing.T) map[string]product.Repository {
	return map[string]product.Repository{
		"sqlite": newSQLiteRepo(t),
		"memory": NewMemoryRepository(),
	}
}

func sampleProduct(docID, name string, itemCodes ...string) *model.Product {
	p := &model.Product{
		DocID: docID,
		Data: model.ProductData{
			Name:        name,
			Description: name + " description",
			VendorID:    docID,
			Options: []model.Option{
				{ID: "opt001", Name: model.OptionPackaging, Values: []model.OptionValue{{ID: "val001", Name: "BX", Value: "BX"}}},
			},
		},
		DataPublic: map[string]any{},
		Info: model.ProductInfo{
			CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			TransactionID: "txn-1",
		},
	}
	for _, code := range itemCodes {
		p.Data.Variants = append(p.Data.Variants, model.Variant{ID: "v" + code, ItemCode: code, Price: 10, Active: true, Available: true})
	}
	return p
}

func TestInsertAndFind(t *testing.T) {
	for name, repo := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := sampleProduct("doc-1", "Gauze", "100", "200")
			require.NoError(t, repo.Insert(ctx, in))

			got, err := repo.FindByID(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, in.Data, got.Data)
			assert.True(t, in.Info.CreatedAt.Equal(got.Info.CreatedAt))

			all, err := repo.FindAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "Gauze", all[0].Data.Name)
		})
	}
}

func TestFindByIDMissing(t *testing.T) {
	for name, repo := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.FindByID(context.Background(), "nope")
			assert.ErrorIs(t, err, product.ErrNotFound)
		})
	}
}

func TestInsertDuplicateNameConflicts(t *testing.T) {
	for name, repo := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Insert(ctx, sampleProduct("doc-1", "Gauze", "100")))

			err := repo.Insert(ctx, sampleProduct("doc-2", "Gauze", "200"))
			assert.ErrorIs(t, err, product.ErrConflict)
		})
	}
}

func TestInsertDuplicateItemCodeConflicts(t *testing.T) {
	for name, repo := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Insert(ctx, sampleProduct("doc-1", "Gauze", "100")))

			err := repo.Insert(ctx, sampleProduct("doc-2", "Tape", "100"))
			assert.ErrorIs(t, err, product.ErrConflict)

			all, err := repo.FindAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1, "failed insert must not leave a partial document")
		})
	}
}

func TestUpdateByIDReplacesDocumentAndItemCodes(t *testing.T) {
	for name, repo := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Insert(ctx, sampleProduct("doc-1", "Gauze", "100")))
			require.NoError(t, repo.Insert(ctx, sampleProduct("doc-2", "Tape", "200")))

			updated := sampleProduct("doc-1", "Gauze", "100", "300")
			updated.Info.TransactionID = "txn-2"
			updated.Data.Variants[0].Active = false
			require.NoError(t, repo.UpdateByID(ctx, "doc-1", updated))

			got, err := repo.FindByID(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, "txn-2", got.Info.TransactionID)
			require.Len(t, got.Data.Variants, 2)
			assert.False(t, got.Data.Variants[0].Active)

			err = repo.UpdateByID(ctx, "doc-2", sampleProduct("doc-2", "Tape", "200", "300"))
			assert.ErrorIs(t, err, product.ErrConflict)

			err = repo.UpdateByID(ctx, "doc-2", sampleProduct("doc-2", "Gauze", "200"))
			assert.ErrorIs(t, err, product.ErrConflict)
		})
	}
}

func TestUpdateByIDMissing(t *testing.T) {
	for name, repo := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := repo.UpdateByID(context.Background(), "doc-9", sampleProduct("doc-9", "Gauze", "1"))
			assert.ErrorIs(t, err, product.ErrNotFound)
		})
	}
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	in := sampleProduct("doc-1", "Gauze", "100")
	require.NoError(t, repo.Insert(ctx, in))

	in.Data.Variants[0].Price = 99
	got, err := repo.FindByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.Data.Variants[0].Price)

	got.Data.Name = "changed"
	again, err := repo.FindByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Gauze", again.Data.Name)
}
