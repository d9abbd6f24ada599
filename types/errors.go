package types

import "github.com/pkg/errors"

var (
	// ErrCapacityExceeded is returned when arena has no room for new blocks.
	ErrCapacityExceeded = errors.New("arena capacity exceeded")

	// ErrReferenceTableFull is returned when there is no free slot for new reference.
	ErrReferenceTableFull = errors.New("reference table full")

	// ErrIntegerOverflow is returned when integer does not fit into the node.
	ErrIntegerOverflow = errors.New("integer overflow")

	// ErrPattern is returned when pattern is malformed or it does not match.
	ErrPattern = errors.New("pattern failure")

	// ErrSort is returned when comparator does not define a total order.
	ErrSort = errors.New("sort failure")

	// ErrDanglingHandle is returned when handle no longer points to a node.
	ErrDanglingHandle = errors.New("dangling handle")

	// ErrGeneric is a catch-all error kind.
	ErrGeneric = errors.New("generic failure")
)
