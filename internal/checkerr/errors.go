// Package checkerr holds the sentinel errors shared across the checker's
// packages, so callers can use errors.Is/errors.As regardless of which
// package produced the wrapped error.
package checkerr

import "errors"

var (
	// ErrMalformedHistory marks a history that is empty, has non-contiguous
	// transaction ids, or whose result shapes don't match their operations.
	ErrMalformedHistory = errors.New("malformed history")

	// ErrNotFound marks a lookup that found no matching element, e.g.
	// who_wrote(x, k) with no writer.
	ErrNotFound = errors.New("not found")

	// ErrInternalInvariant marks a fatal condition that should be
	// impossible if the rest of the checker is correct: a cycle that
	// classifies under no known anomaly, or under more than one minimal
	// class.
	ErrInternalInvariant = errors.New("internal invariant violation")
)
