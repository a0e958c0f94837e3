package wintypes

import (
	"encoding/binary"

	"github.com/joshuapare/kbdimage/linker"
)

// U8 returns a 1-byte blob.
func U8(v uint8) *linker.Blob {
	return linker.NewBytes([]byte{v}, 1)
}

// U16 returns a 2-byte little-endian blob aligned to 2.
func U16(v uint16) *linker.Blob {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return linker.NewBytes(buf[:], 2)
}

// U32 returns a 4-byte little-endian blob aligned to 4.
func U32(v uint32) *linker.Blob {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return linker.NewBytes(buf[:], 4)
}

// U64 returns an 8-byte little-endian blob aligned to 8.
func U64(v uint64) *linker.Blob {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return linker.NewBytes(buf[:], 8)
}

// UintPtr returns a pointer-sized integer blob (DWORD_PTR).
func UintPtr(a *Architecture, v uint64) (*linker.Blob, error) {
	if a.Pointer == 4 {
		if v>>32 != 0 {
			return nil, ErrOverflow
		}
		return U32(uint32(v)), nil
	}
	return U64(v), nil
}

// MakeLong returns a 4-byte blob holding MAKELONG(lo, hi): the low word
// first, then the high word, aligned to 4.
func MakeLong(lo, hi uint16) *linker.Blob {
	b := linker.New(4)
	b.AppendBlob(U16(lo))
	b.AppendBlob(U16(hi))
	return b
}
