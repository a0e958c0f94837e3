package wintypes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kbdimage/linker"
)

func TestIntConstructors(t *testing.T) {
	require.Equal(t, []byte{0x12}, U8(0x12).Bytes())
	require.Equal(t, []byte{0x34, 0x12}, U16(0x1234).Bytes())
	require.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, U32(0x12345678).Bytes())
	require.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, U64(0x0102030405060708).Bytes())

	require.Equal(t, 2, U16(0).Alignment())
	require.Equal(t, 4, U32(0).Alignment())
	require.Equal(t, 8, U64(0).Alignment())
}

func TestUintPtr(t *testing.T) {
	b, err := UintPtr(X86, 0x1000)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x10, 0, 0}, b.Bytes())

	_, err = UintPtr(X86, 1<<40)
	require.ErrorIs(t, err, ErrOverflow)

	b, err = UintPtr(AMD64, 1<<40)
	require.NoError(t, err)
	require.Equal(t, 8, b.Len())
}

func TestMakeLong(t *testing.T) {
	require.Equal(t, []byte{0x61, 0x00, 0xB4, 0x00}, MakeLong(0x61, 0xB4).Bytes())
	require.Equal(t, 4, MakeLong(0, 0).Alignment())
}

func TestStr(t *testing.T) {
	b, err := Str("kbdus.dll")
	require.NoError(t, err)
	require.Equal(t, append([]byte("kbdus.dll"), 0), b.Bytes())

	_, err = Str("kbdüs")
	require.ErrorIs(t, err, ErrUnicode)
}

func TestWStr(t *testing.T) {
	b, err := WStr("ab")
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 0, 'b', 0, 0, 0}, b.Bytes())
	require.Equal(t, 2, b.Alignment())

	b, err = WStr("á")
	require.NoError(t, err)
	require.Equal(t, []byte{0xE1, 0, 0, 0}, b.Bytes())

	// Outside the BMP: would need a surrogate pair.
	_, err = WStr("\U0001F600")
	require.ErrorIs(t, err, ErrUnicode)
}

func TestWChar(t *testing.T) {
	b, err := WChar('´')
	require.NoError(t, err)
	require.Equal(t, []byte{0xB4, 0x00}, b.Bytes())

	_, err = WChar(0x1F600)
	require.ErrorIs(t, err, ErrUnicode)
	_, err = WChar(0xD800)
	require.ErrorIs(t, err, ErrUnicode)
}

func TestArchitectureConstants(t *testing.T) {
	require.Equal(t, uint16(0x14C), X86.Machine())
	require.Equal(t, uint16(0x14C), WOW64.Machine())
	require.Equal(t, uint16(0x8664), AMD64.Machine())

	require.Equal(t, uint16(0x10B), X86.OptionalMagic())
	require.Equal(t, uint16(0x10B), WOW64.OptionalMagic())
	require.Equal(t, uint16(0x20B), AMD64.OptionalMagic())

	require.Equal(t, uint16(0x2102), X86.Characteristics())
	require.Equal(t, uint16(0x2022), AMD64.Characteristics())

	require.Equal(t, 4, WOW64.Pointer)
	require.Equal(t, 8, WOW64.LongPointer)
	require.Equal(t, uint64(0x5FFF0000), X86.Base)
	require.Equal(t, uint64(0x5FFE0000), WOW64.Base)
	require.Equal(t, uint64(0x180000000), AMD64.Base)

	require.Same(t, X86, ByMachine(0x14C))
	require.Same(t, AMD64, ByMachine(0x8664))
	require.Nil(t, ByMachine(0x1C0))
}

func TestPointerWidths(t *testing.T) {
	target := linker.NewBytes([]byte{1}, 1)
	require.Equal(t, 4, PTR(WOW64, target).Size())
	require.Equal(t, 8, LPTR(WOW64, target).Size())
	require.Equal(t, 4, LPTR(X86, target).Size())
	require.Equal(t, 8, PTR(AMD64, target).Size())
	require.Equal(t, uint64(0x5FFE0000), LPTR(WOW64, target).Base)
}

func TestReadRoundTrip(t *testing.T) {
	b := linker.New(8)
	b.AppendBlob(U16(0x1234))
	b.AppendBlob(U32(0xDEADBEEF))
	b.AppendBlob(U8(0x7F))
	b.AppendBlob(MakeLong(0x11, 0x22))
	require.NoError(t, b.Err())

	r := linker.NewReader(b, 0)
	v16, err := ReadU16(r)
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), v16)
	v32, err := ReadU32(r)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v32)
	v8, err := ReadU8(r)
	require.NoError(t, err)
	require.Equal(t, uint8(0x7F), v8)
	lo, hi, err := ReadMakeLong(r)
	require.NoError(t, err)
	require.Equal(t, uint16(0x11), lo)
	require.Equal(t, uint16(0x22), hi)
}

func TestReadWStr(t *testing.T) {
	b, err := WStr("Esc")
	require.NoError(t, err)
	r := linker.NewReader(b, 0)
	s, err := ReadWStr(r)
	require.NoError(t, err)
	require.Equal(t, "Esc", s)
}

func TestReadUintUnaligned(t *testing.T) {
	b := linker.NewBytes([]byte{0xFF, 0x78, 0x56, 0x34, 0x12}, 1)
	r := linker.NewReader(b, 1)
	v, err := ReadUint(r, 4, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0x12345678), v)
}
