package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
)

// MemoryRepository keeps documents in process with the same uniqueness rules as the
// SQL store: one product per name and one variant per item code across the catalog.
type MemoryRepository struct {
	mu        sync.RWMutex
	docs      map[string][]byte
	names     map[string]string
	itemCodes map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:      make(map[string][]byte),
		names:     make(map[string]string),
		itemCodes: make(map[string]string),
	}
}

func (r *MemoryRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]model.Product, 0, len(r.docs))
	for _, doc := range r.docs {
		var p model.Product
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Data.Name < products[j].Data.Name })
	return products, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, docID string) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[docID]
	if !ok {
		return nil, product.ErrNotFound
	}
	var p model.Product
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, p *model.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[p.DocID]; ok {
		return fmt.Errorf("%w: doc id %s", product.ErrConflict, p.DocID)
	}
	if err := r.checkUnique(p.DocID, p); err != nil {
		return err
	}

	r.docs[p.DocID] = doc
	r.index(p.DocID, p)
	return nil
}

func (r *MemoryRepository) UpdateByID(ctx context.Context, docID string, p *model.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[docID]; !ok {
		return fmt.Errorf("%w: %s", product.ErrNotFound, docID)
	}
	if err := r.checkUnique(docID, p); err != nil {
		return err
	}

	r.unindex(docID)
	r.docs[docID] = doc
	r.index(docID, p)
	return nil
}

// Len returns the number of stored products.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func (r *MemoryRepository) checkUnique(docID string, p *model.Product) error {
	if owner, ok := r.names[p.Data.Name]; ok && owner != docID {
		return fmt.Errorf("%w: name %q", product.ErrConflict, p.Data.Name)
	}
	seen := make(map[string]struct{}, len(p.Data.Variants))
	for _, code := range p.ItemCodes() {
		if _, dup := seen[code]; dup {
			return fmt.Errorf("%w: item code %q", product.ErrConflict, code)
		}
		seen[code] = struct{}{}
		if owner, ok := r.itemCodes[code]; ok && owner != docID {
			return fmt.Errorf("%w: item code %q", product.ErrConflict, code)
		}
	}
	return nil
}

func (r *MemoryRepository) index(docID string, p *model.Product) {
	r.names[p.Data.Name] = docID
	for _, code := range p.ItemCodes() {
		r.itemCodes[code] = docID
	}
}

func (r *MemoryRepository) unindex(docID string) {
	for name, owner := range r.names {
		if owner == docID {
			delete(r.names, name)
		}
	}
	for code, owner := range r.itemCodes {
		if owner == docID {
			delete(r.itemCodes, code)
		}
	}
}
