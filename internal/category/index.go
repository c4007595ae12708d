package category

import (
	"sync"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

// Index maps vendor category ids to names for the duration of one run.
// It is safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewIndex() *Index {
	return &Index{names: make(map[string]string)}
}

// Register records c. The first non-empty name seen for an id wins; blank ids are ignored.
func (idx *Index) Register(c model.Category) {
	if c.ID == "" {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if name, ok := idx.names[c.ID]; ok && name != "" {
		return
	}
	idx.names[c.ID] = c.Name
}

// Lookup returns the category for id. ok is false when the id was never registered.
func (idx *Index) Lookup(id string) (model.Category, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	name, ok := idx.names[id]
	return model.Category{ID: id, Name: name}, ok
}

// Name returns the registered name for id or "".
func (idx *Index) Name(id string) string {
	c, _ := idx.Lookup(id)
	return c.Name
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.names)
}
