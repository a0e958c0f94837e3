package linker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kbdimage/diag"
)

func TestReaderReadBytes(t *testing.T) {
	b := NewBytes([]byte{1, 2, 3, 4, 5}, 1)
	r := NewReader(b, 0)

	got, err := r.ReadBytes(2, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, got)
	require.Equal(t, 2, r.Offset())

	_, err = r.ReadBytes(4, 1)
	require.ErrorIs(t, err, ErrEndOfInput)
}

func TestReaderAlignmentSkipsPadding(t *testing.T) {
	b := NewBytes([]byte{1, 0, 0, 0, 5, 6, 7, 8}, 4)
	c := diag.New(nil)
	r := NewReader(b, 0)
	r.Diags = c

	one, err := r.ReadBytes(1, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, one)

	word, err := r.ReadBytes(4, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{5, 6, 7, 8}, word)
	require.Empty(t, c.Warnings())
}

func TestReaderWarnsOnNonZeroPadding(t *testing.T) {
	b := NewBytes([]byte{1, 0xEE, 2, 2}, 2)
	c := diag.New(nil)
	r := NewReader(b, 0)
	r.Diags = c

	_, err := r.ReadBytes(1, 1)
	require.NoError(t, err)
	_, err = r.ReadBytes(2, 2)
	require.NoError(t, err)
	require.True(t, c.Has(diag.CodeNonZeroPadding))
}

func TestReaderReadOrWarn(t *testing.T) {
	b := NewBytes([]byte{0xAB, 0xCD}, 1)
	c := diag.New(nil)
	r := NewReader(b, 0)
	r.Diags = c

	require.NoError(t, r.ReadOrWarn([]byte{0xAB}, 1))
	require.False(t, c.Has(diag.CodeUnexpectedValue))
	require.NoError(t, r.ReadOrWarn([]byte{0x00}, 1))
	require.True(t, c.Has(diag.CodeUnexpectedValue))
}

func TestReaderReadOrFail(t *testing.T) {
	b := NewBytes([]byte{0xAB, 0xCD}, 1)
	r := NewReader(b, 0)
	require.NoError(t, r.ReadOrFail([]byte{0xAB}, 1))
	require.ErrorIs(t, r.ReadOrFail([]byte{0xFF}, 1), ErrUnexpectedValue)
}
