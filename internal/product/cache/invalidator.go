package cache

import (
	"context"
	"fmt"
)

// Deleter removes keys by glob pattern.
type Deleter interface {
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

// ListInvalidator drops the product service's cached listings for a company.
type ListInvalidator struct {
	store Deleter
}

func NewListInvalidator(store Deleter) *ListInvalidator {
	return &ListInvalidator{store: store}
}

func ListPattern(companyID string) string {
	return fmt.Sprintf("products:list:%s:*", companyID)
}

func (i *ListInvalidator) InvalidateProductLists(ctx context.Context, companyID string) error {
	_, err := i.store.DeleteByPattern(ctx, ListPattern(companyID))
	return err
}
