package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New(nil)
	require.Empty(t, c.Warnings())
	require.False(t, c.Has(CodeLigatureSkipped))

	c.Warnf(CodeLigatureSkipped, "ligature at vk 0x%X", 0x41)
	c.WarnAt(CodeNonZeroPadding, 0x200, "padding")

	require.Len(t, c.Warnings(), 2)
	require.True(t, c.Has(CodeLigatureSkipped))
	require.True(t, c.Has(CodeNonZeroPadding))
	require.False(t, c.Has(CodeManyShiftStates))

	require.Equal(t, int64(-1), c.Warnings()[0].Offset)
	require.Equal(t, int64(0x200), c.Warnings()[1].Offset)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Warnf(CodeLigatureSkipped, "dropped")
	require.Nil(t, c.Warnings())
	require.False(t, c.Has(CodeLigatureSkipped))
}

func TestCodeString(t *testing.T) {
	require.Equal(t, "ligature-skipped", CodeLigatureSkipped.String())
	require.Equal(t, "code-999", Code(999).String())
}

func TestWarningString(t *testing.T) {
	w := Warning{Code: CodeNonZeroPadding, Message: "padding", Offset: 0x10}
	require.Contains(t, w.String(), "non-zero-padding")
	require.Contains(t, w.String(), "0x10")
}
