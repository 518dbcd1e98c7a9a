package training

import "errors"

var (
	// ErrNotInitialized reports an operation attempted before its
	// prerequisite was bound (model before optimizer, optimizer before
	// training).
	ErrNotInitialized = errors.New("not initialized")

	// ErrInvalidInput reports unusable caller-supplied data.
	ErrInvalidInput = errors.New("invalid input")
)
