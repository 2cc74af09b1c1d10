// Package common defines shared constants and sentinel errors used across
// the relay layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Access errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Assembly errors.
	ErrEmptyBatch = errors.New("batch has no files")
	ErrNoSession  = errors.New("no open batch session")

	// Link errors (malformed token).
	ErrInvalidBatchID = errors.New("invalid batch id")
)
