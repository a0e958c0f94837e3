package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendBytesAndSymbols(t *testing.T) {
	a := NewBytes([]byte{0xAA}, 4)
	a.AppendBytes(0xBB)

	b := NewBytes([]byte{0xCC}, 1)
	a.AppendSymbol(RVA{To: b})

	require.NoError(t, a.Err())
	// The symbol slot is padded to its 4-byte alignment and zero-filled.
	require.Equal(t, []byte{0xAA, 0xBB, 0, 0, 0, 0, 0, 0}, a.Bytes())
	require.NoError(t, a.Err())

	syms := a.Symbols()
	require.Len(t, syms, 1)
	require.Equal(t, 4, syms[0].Offset)
}

func TestAppendBlobEstablishesPlacement(t *testing.T) {
	a := New(4)
	b := NewBytes([]byte{0xBB}, 2)
	a.AppendBlob(b)
	require.NoError(t, a.Err())

	parent, offset, ok := b.Placement()
	require.True(t, ok)
	require.Same(t, a, parent)
	require.Equal(t, 0, offset)
}

func TestAppendAfterPlacement(t *testing.T) {
	a := New(1)
	out, err := Link(0, a)
	require.NoError(t, err)
	require.NotNil(t, out)

	a.AppendBytes(0x00)
	require.ErrorIs(t, a.Err(), ErrAlreadyPlaced)
}

func TestAppendPlacedChild(t *testing.T) {
	parent1 := New(1)
	child := New(1)
	parent1.AppendBlob(child)
	require.NoError(t, parent1.Err())

	parent2 := New(1)
	parent2.AppendBlob(child)
	require.ErrorIs(t, parent2.Err(), ErrAlreadyPlaced)
}

func TestAppendSelf(t *testing.T) {
	a := New(1)
	a.AppendBlob(a)
	require.ErrorIs(t, a.Err(), ErrCycleDetected)
}

func TestAppendPadding(t *testing.T) {
	a := NewBytes([]byte{0xAA}, 8)
	a.AppendPadding(4)
	require.Equal(t, []byte{0xAA, 0, 0, 0}, a.Bytes())
	a.AppendPadding(8)
	require.Equal(t, []byte{0xAA, 0, 0, 0, 0, 0, 0, 0}, a.Bytes())

	a.AppendPadding(16)
	require.ErrorIs(t, a.Err(), ErrInvalidAlignment)
}

func TestInvalidAlignment(t *testing.T) {
	require.ErrorIs(t, New(0).Err(), ErrInvalidAlignment)
	require.ErrorIs(t, New(-1).Err(), ErrInvalidAlignment)

	// A child whose alignment does not divide the parent's is rejected.
	a := New(1)
	b := New(2)
	a.AppendBlob(b)
	require.ErrorIs(t, a.Err(), ErrInvalidAlignment)
}

func TestAlignmentPropagatesToPlacement(t *testing.T) {
	a := New(4)
	b := New(2)
	a.AppendBlob(b)
	require.NoError(t, a.Err())
	require.Equal(t, 4, a.Alignment())

	parent, offset, ok := b.Placement()
	require.True(t, ok)
	require.Same(t, a, parent)
	require.Equal(t, 0, offset)
}

func TestFindPlacementNested(t *testing.T) {
	// +---+-------------------+
	// | A | B +---+-----------+
	// |   |   | C | D +---+---+
	// |   |   |   |   | E | F |
	// +---+---+---+---+---+---+
	a := NewBytes([]byte{0xAA}, 1)
	b := NewBytes([]byte{0xBB}, 1)
	c := NewBytes([]byte{0xCC}, 1)
	d := NewBytes([]byte{0xDD}, 1)
	e := NewBytes([]byte{0xEE}, 1)
	f := NewBytes([]byte{0xFF}, 1)

	d.AppendBlob(e)
	d.AppendBlob(f)
	b.AppendBlob(c)
	b.AppendBlob(d)

	out, err := Link(0, a, b)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, out.Bytes())

	for i, blob := range []*Blob{a, b, c, d, e, f} {
		root, offset, ok := blob.FindPlacement()
		require.True(t, ok)
		require.Same(t, out, root)
		require.Equal(t, i, offset)
	}
}

func TestPatch(t *testing.T) {
	a := NewBytes([]byte{1, 2, 3, 4}, 1)
	a.Patch(1, []byte{9, 9})
	require.Equal(t, []byte{1, 9, 9, 4}, a.Bytes())

	a.Patch(3, []byte{1, 2})
	require.ErrorIs(t, a.Err(), ErrEndOfInput)
}
