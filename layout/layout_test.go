package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanCodeString(t *testing.T) {
	require.Equal(t, "2", ScanCode{Code: 0x02}.String())
	require.Equal(t, "E0,1C", ScanCode{Code: 0x1C, Prefix: 0xE0}.String())

	sc, err := ParseScanCode("E1,1D")
	require.NoError(t, err)
	require.Equal(t, ScanCode{Code: 0x1D, Prefix: 0xE1}, sc)

	sc, err = ParseScanCode("45")
	require.NoError(t, err)
	require.Equal(t, ScanCode{Code: 0x45}, sc)

	_, err = ParseScanCode("E0,1C,45")
	require.Error(t, err)
	_, err = ParseScanCode("xyz")
	require.Error(t, err)
}

func TestScanCodeOrdering(t *testing.T) {
	keymap := map[ScanCode]KeyCode{
		{Code: 0x1D, Prefix: 0xE1}: {},
		{Code: 0x02}:               {},
		{Code: 0x35, Prefix: 0xE0}: {},
		{Code: 0x01}:               {},
		{Code: 0x1C, Prefix: 0xE0}: {},
	}
	sorted := SortedScanCodes(keymap)
	require.Equal(t, []ScanCode{
		{Code: 0x01},
		{Code: 0x02},
		{Code: 0x1C, Prefix: 0xE0},
		{Code: 0x35, Prefix: 0xE0},
		{Code: 0x1D, Prefix: 0xE1},
	}, sorted)
}

func TestShiftStateBits(t *testing.T) {
	require.Equal(t, uint8(0), ShiftState{}.Bits())
	require.Equal(t, uint8(1), ShiftState{Shift: true}.Bits())
	require.Equal(t, uint8(2), ShiftState{Control: true}.Bits())
	require.Equal(t, uint8(4), ShiftState{Alt: true}.Bits())
	require.Equal(t, uint8(8), ShiftState{Kana: true}.Bits())
	require.Equal(t, uint8(7), ShiftState{Shift: true, Control: true, Alt: true}.Bits())

	// CapsLock is not a wire modifier bit.
	require.Equal(t, uint8(1), ShiftState{Shift: true, Capslock: true}.Bits())

	for mask := uint8(0); mask < 16; mask++ {
		require.Equal(t, mask, ShiftStateFromBits(mask).Bits())
	}
}

func TestShiftStateString(t *testing.T) {
	require.Equal(t, "default", ShiftState{}.String())
	require.Equal(t, "shift,control", ShiftState{Shift: true, Control: true}.String())
	require.Equal(t, "shift,capslock", ShiftState{Shift: true, Capslock: true}.String())

	ss, err := ParseShiftState("shift,capslock")
	require.NoError(t, err)
	require.Equal(t, ShiftState{Shift: true, Capslock: true}, ss)

	ss, err = ParseShiftState("default")
	require.NoError(t, err)
	require.Equal(t, ShiftState{}, ss)

	_, err = ParseShiftState("hyper")
	require.Error(t, err)
}

func TestKeyAttributesBits(t *testing.T) {
	a := KeyAttributes{Capslock: true, Kanalock: true}
	require.Equal(t, uint8(0x09), a.Bits())
	require.Equal(t, a, AttributesFromBits(0x09))
	require.True(t, KeyAttributes{}.IsZero())
	require.Equal(t, uint8(0x02), KeyAttributes{CapslockSecondary: true}.Bits())
}

func TestDefaultName(t *testing.T) {
	require.True(t, DefaultName("", 0x41))
	require.True(t, DefaultName("A", 0x41))
	require.True(t, DefaultName("1", 0x31))
	require.False(t, DefaultName("Esc", 0x1B))
	// The low byte decides, so composite VKs share the default.
	require.True(t, DefaultName("o", 0x16F))
}

func TestValidate(t *testing.T) {
	l := New()
	l.DLLName = "kbdtst.dll"
	l.Keymap[ScanCode{Code: 0x02}] = KeyCode{WinVK: 0x31}
	require.NoError(t, l.Validate())

	bad := New()
	bad.DLLName = "waytoolongname.dll"
	require.ErrorIs(t, bad.Validate(), ErrInvalidLayout)

	bad = New()
	bad.DLLName = "kbd.exe"
	require.ErrorIs(t, bad.Validate(), ErrInvalidLayout)

	bad = New()
	bad.DLLName = "kbd.dll"
	bad.Keymap[ScanCode{Code: 1, Prefix: 0xE2}] = KeyCode{}
	require.ErrorIs(t, bad.Validate(), ErrInvalidLayout)

	bad = New()
	bad.DLLName = "kbd.dll"
	bad.SetChar(0x41, ShiftState{}, Character{Char: 0x1F600})
	require.ErrorIs(t, bad.Validate(), ErrInvalidLayout)

	bad = New()
	bad.DLLName = "kbd.dll"
	bad.DeadKeys = []DeadKey{{Accent: '´'}, {Accent: '´'}}
	require.ErrorIs(t, bad.Validate(), ErrInvalidLayout)
}

func TestJSONRoundTrip(t *testing.T) {
	l := New()
	l.Name = "Test"
	l.Author = "T"
	l.Copyright = "T"
	l.Version = Version{Major: 1, Minor: 2}
	l.DLLName = "kbdtst.dll"
	l.Keymap[ScanCode{Code: 0x02}] = KeyCode{WinVK: 0x31}
	l.Keymap[ScanCode{Code: 0x1E}] = KeyCode{WinVK: 0x41, Attributes: KeyAttributes{Capslock: true}}
	l.Keymap[ScanCode{Code: 0x1D, Prefix: 0xE1}] = KeyCode{WinVK: 0x13, Name: "Pause"}
	l.SetChar(0x31, ShiftState{}, Character{Char: '1'})
	l.SetChar(0x31, ShiftState{Shift: true}, Character{Char: '!'})
	l.SetChar(0x41, ShiftState{}, Character{Char: 'a'})
	l.SetChar(0xDE, ShiftState{}, Character{Char: '´', Dead: true})
	l.DeadKeys = []DeadKey{
		{Accent: '`', Name: "grave", Combos: []DeadKeyCombo{
			{Base: 'e', Composed: Character{Char: 'è'}},
		}},
		{Accent: '´', Name: "acute", Combos: []DeadKeyCombo{
			{Base: 'a', Composed: Character{Char: 'á'}},
			{Base: 'e', Composed: Character{Char: 'é'}},
			{Base: '´', Composed: Character{Char: '´', Dead: true}},
		}},
	}

	data, err := Marshal(l)
	require.NoError(t, err)
	got, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, l, got)

	// Dead keys keep document order through repeated round trips.
	require.Equal(t, '`', got.DeadKeys[0].Accent)
	require.Equal(t, '´', got.DeadKeys[1].Accent)
	require.Equal(t, 'a', got.DeadKeys[1].Combos[0].Base)
}

func TestJSONRejectsMultiRuneKeys(t *testing.T) {
	_, err := Parse([]byte(`{"version":[1,0],"deadkeys":{"ab":{"name":"x"}}}`))
	require.Error(t, err)
}

func TestEnUS(t *testing.T) {
	l := EnUS()
	require.NoError(t, l.Validate())
	require.Equal(t, "kbdus.dll", l.DLLName)

	kc := l.Keymap[ScanCode{Code: 0x02}]
	require.Equal(t, uint16('1'), kc.WinVK)
	require.Empty(t, kc.Name)

	a := l.Keymap[ScanCode{Code: 0x1E}]
	require.Equal(t, uint16('A'), a.WinVK)
	require.True(t, a.Attributes.Capslock)

	require.Equal(t, Character{Char: '!'}, l.Charmap['1'][ShiftState{Shift: true}])
	require.Equal(t, Character{Char: 'a'}, l.Charmap['A'][ShiftState{}])

	// Pause hides behind the 0xE1 prefix.
	pause := l.Keymap[ScanCode{Code: 0x1D, Prefix: 0xE1}]
	require.Equal(t, "Pause", pause.Name)

	data, err := Marshal(l)
	require.NoError(t, err)
	got, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, l, got)
}
