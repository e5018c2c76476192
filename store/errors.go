package store

import "errors"

var (
	// ErrUnknownBackend indicates that the configured backend kind is not supported.
	ErrUnknownBackend = errors.New("unknown store backend")

	// ErrClosed indicates that the store was used after Close.
	ErrClosed = errors.New("store is closed")
)
