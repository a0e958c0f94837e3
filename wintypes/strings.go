package wintypes

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/kbdimage/linker"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Str returns a NUL-terminated ASCII string blob (alignment 1).
func Str(s string) (*linker.Blob, error) {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return nil, fmt.Errorf("%w: %q is not ASCII", ErrUnicode, s)
		}
	}
	b := linker.NewBytes([]byte(s), 1)
	b.AppendBytes(0)
	return b, nil
}

// WStr returns a NUL-terminated UTF-16LE string blob (alignment 2). The
// keyboard tables store UCS-2, so characters outside the Basic Multilingual
// Plane are rejected rather than encoded as surrogate pairs.
func WStr(s string) (*linker.Blob, error) {
	enc, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnicode, s, err)
	}
	if len(enc) != 2*utf8.RuneCountInString(s) {
		return nil, fmt.Errorf("%w: %q contains characters outside the BMP", ErrUnicode, s)
	}
	b := linker.NewBytes(enc, 2)
	b.AppendBytes(0, 0)
	return b, nil
}

// WChar returns a single UTF-16 code unit blob (alignment 2).
func WChar(r rune) (*linker.Blob, error) {
	if r < 0 || r > 0xFFFF || (r >= 0xD800 && r <= 0xDFFF) {
		return nil, fmt.Errorf("%w: U+%04X is not a single UTF-16 unit", ErrUnicode, r)
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(r))
	return linker.NewBytes(buf[:], 2), nil
}
