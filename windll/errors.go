package windll

import "errors"

var (
	// ErrMalformedData indicates input bytes that do not form a valid
	// keyboard-layout DLL: bad signatures, out-of-range addresses, or
	// inconsistent length fields.
	ErrMalformedData = errors.New("windll: malformed data")

	// ErrTooManyShiftStates indicates a layout that needs 15 or more
	// distinct shift states; the character table cannot represent it.
	ErrTooManyShiftStates = errors.New("windll: too many shift states")
)
