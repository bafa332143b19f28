package core

import "errors"

// Sentinel errors shared across the orchestration layer. Callers classify
// outcomes with errors.Is; anything else is an internal store or backend
// failure.
var (
	// ErrThrottled means the identity exceeded its admission budget.
	// Recoverable: retry after the rate window elapses.
	ErrThrottled = errors.New("rate limit exceeded")

	// ErrCompanionNotFound means the referenced companion has no profile
	// or seed material.
	ErrCompanionNotFound = errors.New("companion not found")

	// ErrAlreadySeeded is returned by a history store when a seed is
	// attempted on a namespace that already holds its seed run. Losing a
	// seed race is normal operation, not a failure.
	ErrAlreadySeeded = errors.New("namespace already seeded")
)
