package linker

import "errors"

var (
	// ErrAlreadyPlaced indicates an append on a blob that has been placed
	// into a parent or linked, or an attempt to place a blob twice.
	ErrAlreadyPlaced = errors.New("linker: blob already placed")

	// ErrInvalidAlignment indicates an alignment that is not positive or
	// does not divide the alignment of the enclosing blob.
	ErrInvalidAlignment = errors.New("linker: invalid alignment")

	// ErrCycleDetected indicates a blob reaching itself through placement,
	// such as appending a blob to itself.
	ErrCycleDetected = errors.New("linker: cycle detected")

	// ErrEndOfInput indicates a read past the end of a blob.
	ErrEndOfInput = errors.New("linker: read past end of input")

	// ErrUnexpectedValue indicates bytes that do not match the value the
	// format requires at that position.
	ErrUnexpectedValue = errors.New("linker: unexpected value")

	// ErrUnresolvable indicates a symbol whose value cannot be represented
	// in its declared width.
	ErrUnresolvable = errors.New("linker: symbol value out of range")
)
