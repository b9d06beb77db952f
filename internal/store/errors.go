package store

import "errors"

// Sentinel errors for store operations.
var (
	// ErrUnknownSource indicates a reading source with no backing table.
	ErrUnknownSource = errors.New("store: unknown reading source")
)
