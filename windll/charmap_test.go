package windll

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kbdimage/diag"
	"github.com/joshuapare/kbdimage/layout"
	"github.com/joshuapare/kbdimage/wintypes"
)

func newTestDll(t *testing.T, l *layout.Layout, arch *wintypes.Architecture) *WinDll {
	t.Helper()
	return New(l, arch, Config{Timestamp: 0x5F5E1000}, diag.New(nil))
}

func deadKeyLayout() *layout.Layout {
	l := layout.New()
	l.Name = "Dead"
	l.DLLName = "kbddead.dll"
	l.Keymap[layout.ScanCode{Code: 0x28}] = layout.KeyCode{WinVK: 0xDE}
	l.SetChar(0xDE, layout.ShiftState{}, layout.Character{Char: '´', Dead: true})
	l.SetChar(0xDE, layout.ShiftState{Shift: true}, layout.Character{Char: '"'})
	l.DeadKeys = []layout.DeadKey{{
		Accent: '´',
		Name:   "acute",
		Combos: []layout.DeadKeyCombo{{Base: 'a', Composed: layout.Character{Char: 'á'}}},
	}}
	return l
}

func TestCompileCharmapDeadKeyRows(t *testing.T) {
	d := newTestDll(t, deadKeyLayout(), wintypes.X86)
	require.NoError(t, d.compileKeymap())
	require.NoError(t, d.compileCharmap())

	// Base row: WCH_DEAD in the default column, '"' under shift. The
	// continuation row carries the raw accent.
	require.Equal(t, []byte{
		0xDE, 0x00, 0x01, 0xF0, 0x22, 0x00, // vk, attrs, F001, '"'
		0xFF, 0x00, 0xB4, 0x00, 0x00, 0xF0, // continuation: '´', F000
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // terminator row
	}, d.kbdVkToWchars.Bytes())

	// DEADKEY rows: MAKELONG(base, accent), composed char, flags.
	require.Equal(t, []byte{
		0x61, 0x00, 0xB4, 0x00, 0xE1, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}, d.kbdDeadKey.Bytes())

	// MODIFIERS: max mask 1, columns 0 (default) and 1 (shift).
	mods := d.kbdModifiers.Bytes()
	require.Equal(t, byte(1), mods[4])
	require.Equal(t, byte(0), mods[6])
	require.Equal(t, byte(1), mods[7])

	// VK_TO_WCHAR_TABLE: nModifications and cbSize = 2*n + 2.
	table := d.kbdVkToWcharTable.Bytes()
	require.Equal(t, byte(2), table[4])
	require.Equal(t, byte(6), table[5])

	require.Empty(t, d.Diags.Warnings())
}

func TestCompileCharmapSGCaps(t *testing.T) {
	l := layout.New()
	l.DLLName = "kbdsg.dll"
	l.Keymap[layout.ScanCode{Code: 0x1E}] = layout.KeyCode{
		WinVK:      0x41,
		Attributes: layout.KeyAttributes{CapslockSecondary: true},
	}
	l.SetChar(0x41, layout.ShiftState{}, layout.Character{Char: 'a'})
	l.SetChar(0x41, layout.ShiftState{Shift: true}, layout.Character{Char: 'A'})
	l.SetChar(0x41, layout.ShiftState{Capslock: true}, layout.Character{Char: 'á'})
	l.SetChar(0x41, layout.ShiftState{Shift: true, Capslock: true}, layout.Character{Char: 'Á'})

	d := newTestDll(t, l, wintypes.WOW64)
	require.NoError(t, d.compileKeymap())
	require.NoError(t, d.compileCharmap())

	require.Equal(t, []byte{
		0x41, 0x02, 0x61, 0x00, 0x41, 0x00, // base row, SGCAPS attribute
		0x41, 0x00, 0xE1, 0x00, 0xC1, 0x00, // CapsLock row
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}, d.kbdVkToWchars.Bytes())
	require.Empty(t, d.Diags.Warnings())
}

func TestCompileCharmapSGCapsDropsOnDeadKeys(t *testing.T) {
	l := layout.New()
	l.DLLName = "kbdsg.dll"
	l.Keymap[layout.ScanCode{Code: 0x1E}] = layout.KeyCode{
		WinVK:      0x41,
		Attributes: layout.KeyAttributes{CapslockSecondary: true},
	}
	l.SetChar(0x41, layout.ShiftState{}, layout.Character{Char: '^', Dead: true})

	d := newTestDll(t, l, wintypes.X86)
	require.NoError(t, d.compileKeymap())
	require.NoError(t, d.compileCharmap())

	require.True(t, d.Diags.Has(diag.CodeSGCapsDeadKeys))
	// SGCAPS dropped: one base row plus the dead-key continuation.
	require.Equal(t, []byte{
		0x41, 0x00, 0x01, 0xF0,
		0xFF, 0x00, 0x5E, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}, d.kbdVkToWchars.Bytes())
}

func manyShiftStates(n int) *layout.Layout {
	l := layout.New()
	l.DLLName = "kbdmany.dll"
	l.Keymap[layout.ScanCode{Code: 0x1E}] = layout.KeyCode{WinVK: 0x41}
	for mask := 0; mask < n; mask++ {
		l.SetChar(0x41, layout.ShiftStateFromBits(uint8(mask)), layout.Character{Char: rune('a' + mask)})
	}
	return l
}

func TestCompileCharmapTooManyShiftStates(t *testing.T) {
	d := newTestDll(t, manyShiftStates(15), wintypes.X86)
	require.NoError(t, d.compileKeymap())
	require.ErrorIs(t, d.compileCharmap(), ErrTooManyShiftStates)

	// The whole compile refuses to emit bytes.
	img, _, err := Compile(manyShiftStates(15), wintypes.AMD64, Config{})
	require.ErrorIs(t, err, ErrTooManyShiftStates)
	require.Nil(t, img)
}

func TestCompileCharmapWarnsAboveTenShiftStates(t *testing.T) {
	d := newTestDll(t, manyShiftStates(11), wintypes.X86)
	require.NoError(t, d.compileKeymap())
	require.NoError(t, d.compileCharmap())
	require.True(t, d.Diags.Has(diag.CodeManyShiftStates))
}

func TestCompileCharmapSkipsUnknownCompositeVK(t *testing.T) {
	l := layout.New()
	l.DLLName = "kbdx.dll"
	l.Keymap[layout.ScanCode{Code: 0x1E}] = layout.KeyCode{WinVK: 0x999}
	l.SetChar(0x999, layout.ShiftState{}, layout.Character{Char: 'x'})

	d := newTestDll(t, l, wintypes.X86)
	require.NoError(t, d.compileKeymap())
	require.NoError(t, d.compileCharmap())
	require.True(t, d.Diags.Has(diag.CodeUnknownSpecialVK))
	// Only the terminator row remains; no columns were allocated.
	require.Equal(t, []byte{0x00, 0x00}, d.kbdVkToWchars.Bytes())
}

func TestCompileCharmapWarnsUnmappedKey(t *testing.T) {
	l := layout.New()
	l.DLLName = "kbdx.dll"
	l.Keymap[layout.ScanCode{Code: 0x02}] = layout.KeyCode{WinVK: 0x31}
	l.SetChar(0x31, layout.ShiftState{}, layout.Character{Char: '1'})
	l.SetChar(0x55, layout.ShiftState{}, layout.Character{Char: 'x'}) // no scancode

	d := newTestDll(t, l, wintypes.X86)
	require.NoError(t, d.compileKeymap())
	require.NoError(t, d.compileCharmap())
	require.True(t, d.Diags.Has(diag.CodeUnmappedKey))
}

func TestNumpadTranslation(t *testing.T) {
	// The composite numpad VKs translate to their plain forms in the
	// character table and sort by composite value.
	l := layout.New()
	l.DLLName = "kbdnum.dll"
	l.Keymap[layout.ScanCode{Code: 0x47}] = layout.KeyCode{WinVK: 0xC24} // Num 7
	l.Keymap[layout.ScanCode{Code: 0x02}] = layout.KeyCode{WinVK: 0x31}
	l.SetChar(0x67, layout.ShiftState{}, layout.Character{Char: '7'})
	l.SetChar(0x31, layout.ShiftState{}, layout.Character{Char: '1'})

	d := newTestDll(t, l, wintypes.X86)
	require.NoError(t, d.compileKeymap())
	require.NoError(t, d.compileCharmap())

	// One column; rows: vk 0x31 first (0x31 < 0xC24), then plain 0x67.
	require.Equal(t, []byte{
		0x31, 0x00, '1', 0x00,
		0x67, 0x00, '7', 0x00,
		0x00, 0x00, 0x00, 0x00,
	}, d.kbdVkToWchars.Bytes())
	require.Empty(t, d.Diags.Warnings())
}
