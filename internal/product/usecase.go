package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
)

type UseCase interface {
	// RunOnce ingests one feed and reconciles it against the stored catalog.
	RunOnce(ctx context.Context, input *dto.RunInput) (*dto.RunReport, error)
}

// TextGenerator is the external text enhancement provider.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// EventPublisher announces persisted products to downstream consumers.
type EventPublisher interface {
	PublishCreated(ctx context.Context, p *model.Product) error
	PublishUpdated(ctx context.Context, p *model.Product) error
}

// Indexer keeps the product search index in sync with the store.
type Indexer interface {
	EnsureIndex(ctx context.Context) error
	IndexProduct(ctx context.Context, p *model.Product) error
}

// CacheInvalidator drops cached product listings after the catalog changed.
type CacheInvalidator interface {
	InvalidateProductLists(ctx context.Context, companyID string) error
}

// RunLocker serializes runs. TryLock returns ErrRunInProgress when the lock is held.
type RunLocker interface {
	TryLock(ctx context.Context) (unlock func(), err error)
}
