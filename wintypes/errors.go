package wintypes

import "errors"

var (
	// ErrOverflow indicates a value that does not fit its declared width.
	ErrOverflow = errors.New("wintypes: value overflows field width")

	// ErrUnicode indicates a string that cannot be represented in the
	// declared encoding (non-ASCII bytes in an ASCII field, or characters
	// outside the Basic Multilingual Plane in a UTF-16 field).
	ErrUnicode = errors.New("wintypes: string not representable in encoding")
)
