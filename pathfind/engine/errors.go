package engine

import "errors"

var (
	ErrOutOfBounds      = errors.New("coordinate out of bounds")
	ErrInvalidBlock     = errors.New("invalid block")
	ErrInvalidGridShape = errors.New("invalid grid shape")
	ErrInvalidEndpoint  = errors.New("start and destination must differ")
	ErrTooManyBlocks    = errors.New("not enough free cells for blocks")
	ErrInvalidCostModel = errors.New("invalid cost model")

	ErrRunActive     = errors.New("search run is active")
	ErrNotRunning    = errors.New("no search run is active")
	ErrAlreadyPaused = errors.New("search run is already paused")
	ErrNotPaused     = errors.New("search run is not paused")

	// ErrInvariantViolation aborts a run; it means the search loop itself is broken.
	ErrInvariantViolation = errors.New("search invariant violated")
)
