package product

import (
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/category"
)

// Run is the state of one ingest-and-reconcile pass. Nothing in it outlives the run.
type Run struct {
	TransactionID string
	UserRequestID string
	StartedAt     time.Time
	Categories    *category.Index
}
