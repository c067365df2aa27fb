package store

import "errors"

// Sentinel errors for store operations.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrUnknownTable   = errors.New("unknown table")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrLoadFailed     = errors.New("load failed")
	ErrSaveFailed     = errors.New("save failed")
)
