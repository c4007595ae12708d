package product

import "errors"

var (
	// ErrRowRejected is returned for a feed row that fails structural validation.
	ErrRowRejected = errors.New("row rejected")

	// ErrConflict is returned when a store uniqueness constraint (product name or
	// variant item code) rejects a write.
	ErrConflict = errors.New("store write conflict")

	// ErrNotFound is returned when an update targets a product that does not exist.
	ErrNotFound = errors.New("product not found")

	// ErrEnhancementFailed wraps text provider errors. Never fatal.
	ErrEnhancementFailed = errors.New("description enhancement failed")

	// ErrRowSource is returned when the row source cannot be opened or streamed.
	ErrRowSource = errors.New("row source failure")

	// ErrRunInProgress is returned when another run holds the run lock.
	ErrRunInProgress = errors.New("catalog sync run already in progress")
)
