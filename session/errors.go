package session

import "errors"

var (
	// ErrMissingInput indicates that a baseline or target source was not given.
	ErrMissingInput = errors.New("both baseline and target bundles are required")

	// ErrRead indicates that a source could not be read. Previously loaded
	// state is left untouched.
	ErrRead = errors.New("failed to read bundle")

	// ErrNotLoaded indicates that an operation needs a successful Load first.
	ErrNotLoaded = errors.New("no bundles loaded")
)
