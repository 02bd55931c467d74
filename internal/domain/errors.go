package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrStorageNotConfigured is returned by historical methods when no
	// storage collaborator was wired in. This is a configuration error and is
	// surfaced immediately rather than degrading to an empty result.
	ErrStorageNotConfigured = errors.New("storage not configured")
	// ErrInsufficientData signals that a statistical method's minimum sample
	// size was not met and the numbers would be meaningless.
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
)
