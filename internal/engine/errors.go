package engine

import "errors"

var (
	// ErrAllocation is returned when a store cannot grow to hold another
	// element. The store is left exactly as it was before the call.
	ErrAllocation = errors.New("allocation failed")

	// ErrNotFound is returned when an operation names an unknown job or node.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an identifier is already registered.
	ErrConflict = errors.New("already exists")

	// ErrOutOfBounds is returned for node capacities outside 0 <= available <= total.
	ErrOutOfBounds = errors.New("capacity out of bounds")
)
