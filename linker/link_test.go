package linker

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkSingle(t *testing.T) {
	a := NewBytes([]byte{0xAA}, 1)
	out, err := Link(0, a)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA}, out.Bytes())

	parent, offset, ok := a.Placement()
	require.True(t, ok)
	require.Same(t, out, parent)
	require.Equal(t, 0, offset)
}

func TestLinkRootsInOrder(t *testing.T) {
	a := NewBytes([]byte{0xAA}, 1)
	b := NewBytes([]byte{0xBB}, 1)
	out, err := Link(0, a, b)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, out.Bytes())
}

func TestLinkFollowsSymbolTargets(t *testing.T) {
	b := NewBytes([]byte{0xCC}, 1)
	a := NewBytes([]byte{0x33}, 4)
	a.AppendSymbol(RVA{To: b})

	out, err := Link(0, a)
	require.NoError(t, err)
	// a at 0, rva slot at 4, b appended at 8 and referenced by value.
	require.Equal(t, []byte{0x33, 0, 0, 0, 8, 0, 0, 0, 0xCC}, out.Bytes())
}

func TestLinkBaseOffsetsPlacements(t *testing.T) {
	b := NewBytes([]byte{0xCC}, 1)
	a := NewBytes([]byte{0x33}, 4)
	a.AppendSymbol(RVA{To: b})

	out, err := Link(0x1000, a)
	require.NoError(t, err)
	require.Equal(t, uint32(0x1008), binary.LittleEndian.Uint32(out.Bytes()[4:8]))

	root, offset, ok := b.FindPlacement()
	require.True(t, ok)
	require.Same(t, out, root)
	require.Equal(t, 0x1008, offset)
}

func TestLinkSelfReference(t *testing.T) {
	obj := NewBytes([]byte{0x33}, 1)
	obj.AppendSymbol(Sizeof{To: obj, Width: 1})
	out, err := Link(0, obj)
	require.NoError(t, err)
	require.Equal(t, []byte{0x33, 2}, out.Bytes())
}

func TestLinkAlignmentPadding(t *testing.T) {
	a := NewBytes([]byte{0xAA}, 4)
	b := NewBytes([]byte{0xBB, 0xBB}, 4)
	c := NewBytes([]byte{0xCC, 0xCC, 0xCC}, 4)
	d := NewBytes([]byte{0xDD, 0xDD, 0xDD, 0xDD}, 4)
	e := NewBytes([]byte{0xEE}, 4)
	f := NewBytes([]byte{0xFF}, 2)

	out, err := Link(0, a, b, c, d, e, f)
	require.NoError(t, err)
	require.Equal(t, []byte{
		0xAA, 0x00, 0x00, 0x00,
		0xBB, 0xBB, 0x00, 0x00,
		0xCC, 0xCC, 0xCC, 0x00,
		0xDD, 0xDD, 0xDD, 0xDD,
		0xEE, 0x00, 0xFF,
	}, out.Bytes())
	require.Equal(t, 4, out.Alignment())
}

func TestLinkReRootsPlacedBlobs(t *testing.T) {
	inner := NewBytes([]byte{0x11}, 1)
	tree := NewBytes([]byte{0x22}, 1)
	tree.AppendBlob(inner)

	a := New(4)
	a.AppendSymbol(RVA{To: inner}) // reaches inner, must pull in its tree root

	out, err := Link(0, a)
	require.NoError(t, err)
	require.Equal(t, []byte{5, 0, 0, 0, 0x22, 0x11}, out.Bytes())
	require.Equal(t, uint32(5), binary.LittleEndian.Uint32(out.Bytes()[0:4]))
}

func TestLinkEnqueuesBlobOnce(t *testing.T) {
	shared := NewBytes([]byte{0x55}, 1)
	a := New(4)
	a.AppendSymbol(RVA{To: shared})
	a.AppendSymbol(RVA{To: shared})

	out, err := Link(0, a, shared)
	require.NoError(t, err)
	require.Equal(t, []byte{8, 0, 0, 0, 8, 0, 0, 0, 0x55}, out.Bytes())
}

func TestPointerNullEmitsZeros(t *testing.T) {
	a := New(8)
	a.AppendSymbol(Pointer{To: nil, Width: 8, Base: 0x180000000})
	out, err := Link(0, a)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 8), out.Bytes())
}

func TestPointerAddsBase(t *testing.T) {
	target := NewBytes([]byte{0x77}, 1)
	a := New(4)
	a.AppendSymbol(Pointer{To: target, Width: 4, Base: 0x5FFF0000})
	out, err := Link(0x1000, a)
	require.NoError(t, err)
	require.Equal(t, uint32(0x5FFF1004), binary.LittleEndian.Uint32(out.Bytes()[0:4]))
}

func TestPointerOverflow(t *testing.T) {
	target := NewBytes([]byte{0x77}, 1)
	a := New(4)
	a.AppendSymbol(Pointer{To: target, Width: 4, Base: 0x180000000})
	_, err := Link(0, a)
	require.ErrorIs(t, err, ErrUnresolvable)
}

func TestUnalignedPointerPacksTight(t *testing.T) {
	target := NewBytes([]byte{0x77}, 1)
	a := NewBytes([]byte{0xB8}, 1)
	a.AppendSymbol(Pointer{To: target, Width: 4, Base: 0, Unaligned: true})
	a.AppendBytes(0xC3)
	out, err := Link(0, a)
	require.NoError(t, err)
	require.Equal(t, []byte{0xB8, 6, 0, 0, 0, 0xC3, 0x77}, out.Bytes())
}

func TestResourceOffsetSubDirBit(t *testing.T) {
	target := NewBytes([]byte{0x42}, 1)
	a := New(4)
	a.AppendSymbol(ResourceOffset{To: target, SubDir: true})
	a.AppendSymbol(ResourceOffset{To: target})
	out, err := Link(0, a)
	require.NoError(t, err)
	require.Equal(t, uint32(0x80000008), binary.LittleEndian.Uint32(out.Bytes()[0:4]))
	require.Equal(t, uint32(0x00000008), binary.LittleEndian.Uint32(out.Bytes()[4:8]))
}

func TestLinkPropagatesStickyError(t *testing.T) {
	a := New(0) // latched ErrInvalidAlignment
	_, err := Link(0, a)
	require.ErrorIs(t, err, ErrInvalidAlignment)
}
