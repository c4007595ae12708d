package dto

import (
	"io"
	"time"
)

type RunInput struct {
	// FilePath is the feed to ingest. Empty means the configured default file.
	FilePath string
	// Source, when set, is read instead of FilePath.
	Source io.Reader
}

// AggregateFailure records one product that could not be persisted.
type AggregateFailure struct {
	Name  string `json:"name"`
	DocID string `json:"doc_id,omitempty"`
	Error string `json:"error"`
}

// Outcome is the terminal state of one aggregate in the reconciliation pass.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeMerged    Outcome = "merged"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

type RunReport struct {
	TransactionID   string    `json:"transaction_id"`
	UserRequestID   string    `json:"user_request_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	RowsRead        int       `json:"rows_read"`
	RowsRejected    int       `json:"rows_rejected"`
	Aggregates      int       `json:"aggregates"`
	Inserted        int       `json:"inserted"`
	Merged          int       `json:"merged"`
	Unchanged       int       `json:"unchanged"`
	Skipped         int       `json:"skipped"`
	Enhanced        int       `json:"enhanced"`
	EnhanceFailures int       `json:"enhance_failures"`

	// DuplicateItemCodes counts rows dropped because their item code repeated an
	// earlier row of the same product.
	DuplicateItemCodes int                `json:"duplicate_item_codes"`
	Failures           []AggregateFailure `json:"failures,omitempty"`
}

// Persisted reports whether the run wrote anything to the store.
func (r *RunReport) Persisted() bool {
	return r.Inserted+r.Merged > 0
}
