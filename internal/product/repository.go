package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

// Repository is the document store holding the persisted catalog. Implementations
// enforce uniqueness of data.name and of every variant itemCode across the catalog
// and report violations as ErrConflict.
type Repository interface {
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, docID string) (*model.Product, error)
	Insert(ctx context.Context, p *model.Product) error
	UpdateByID(ctx context.Context, docID string, p *model.Product) error
}
