package circulation

import "errors"

// The error taxonomy adapters branch on. Store-level version conflicts reach
// callers only after the resolver has reclassified them into ErrRaceLost or
// ErrEntityGone; a bare conflict means the resolver could not tell who won.
var (
	// ErrNotFound means a referenced book, reservation or checkout is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means a precondition on the book state machine was
	// violated (e.g. reserving a book that is not available).
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrRaceLost means the operation lost a compare-and-swap to a concurrent
	// writer and the entity's state no longer satisfies the precondition.
	// The original intent must be explicitly re-confirmed by the caller.
	ErrRaceLost = errors.New("lost race to concurrent operation")

	// ErrEntityGone means the entity was deleted while the operation was in
	// flight.
	ErrEntityGone = errors.New("entity removed concurrently")
)
