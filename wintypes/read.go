package wintypes

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuapare/kbdimage/linker"
)

// ReadU8 reads one byte.
func ReadU8(r *linker.Reader) (uint8, error) {
	b, err := r.ReadBytes(1, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an aligned little-endian uint16.
func ReadU16(r *linker.Reader) (uint16, error) {
	b, err := r.ReadBytes(2, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads an aligned little-endian uint32.
func ReadU32(r *linker.Reader) (uint32, error) {
	b, err := r.ReadBytes(4, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads an aligned little-endian uint64.
func ReadU64(r *linker.Reader) (uint64, error) {
	b, err := r.ReadBytes(8, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadUint reads a little-endian unsigned integer of the given width with
// an explicit alignment; alignment 1 packs the read, as inside instruction
// bytes.
func ReadUint(r *linker.Reader, width, alignment int) (uint64, error) {
	b, err := r.ReadBytes(width, alignment)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// ReadUintPtr reads an aligned pointer-sized integer (DWORD_PTR).
func ReadUintPtr(r *linker.Reader, a *Architecture) (uint64, error) {
	return ReadUint(r, a.Pointer, a.Pointer)
}

// ReadLPTR reads an aligned long-pointer value.
func ReadLPTR(r *linker.Reader, a *Architecture) (uint64, error) {
	return ReadUint(r, a.LongPointer, a.LongPointer)
}

// ReadMakeLong reads an aligned MAKELONG pair and returns (low, high).
func ReadMakeLong(r *linker.Reader) (lo, hi uint16, err error) {
	if err = r.ReadPadding(4); err != nil {
		return 0, 0, err
	}
	if lo, err = ReadU16(r); err != nil {
		return 0, 0, err
	}
	hi, err = ReadU16(r)
	return lo, hi, err
}

// ReadWChar reads one aligned UTF-16 code unit.
func ReadWChar(r *linker.Reader) (rune, error) {
	v, err := ReadU16(r)
	if err != nil {
		return 0, err
	}
	if v >= 0xD800 && v <= 0xDFFF {
		return 0, fmt.Errorf("%w: lone surrogate 0x%04X", ErrUnicode, v)
	}
	return rune(v), nil
}

// ReadWStr reads an aligned NUL-terminated UTF-16LE string.
func ReadWStr(r *linker.Reader) (string, error) {
	var raw []byte
	for {
		b, err := r.ReadBytes(2, 2)
		if err != nil {
			return "", err
		}
		if b[0] == 0 && b[1] == 0 {
			break
		}
		raw = append(raw, b...)
	}
	return DecodeUTF16(raw)
}

// DecodeUTF16 converts raw UTF-16LE bytes to a string.
func DecodeUTF16(raw []byte) (string, error) {
	dec, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnicode, err)
	}
	return string(dec), nil
}
