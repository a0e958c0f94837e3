package windll

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kbdimage/layout"
	"github.com/joshuapare/kbdimage/wintypes"
)

func TestCompileKeymapVscToVk(t *testing.T) {
	l := layout.New()
	l.DLLName = "kbdtst.dll"
	l.Keymap[layout.ScanCode{Code: 0x02}] = layout.KeyCode{WinVK: 0x31}
	l.Keymap[layout.ScanCode{Code: 0x45}] = layout.KeyCode{WinVK: 0x90, Name: "Num Lock"}
	l.Keymap[layout.ScanCode{Code: 0x1D, Prefix: 0xE0}] = layout.KeyCode{WinVK: 0x11, Name: "Right Ctrl"}
	l.Keymap[layout.ScanCode{Code: 0x1D, Prefix: 0xE1}] = layout.KeyCode{WinVK: 0x13, Name: "Pause"}

	d := newTestDll(t, l, wintypes.X86)
	require.NoError(t, d.compileKeymap())

	require.Equal(t, 0x46, d.kbdVscToVkCount)
	raw := d.kbdVscToVk.Bytes()
	require.Len(t, raw, 2*0x46)
	// Vacant slots hold VK__none_, assigned slots the 16-bit VK.
	require.Equal(t, byte(0xFF), raw[0])
	require.Equal(t, byte(0x31), raw[2*0x02])
	require.Equal(t, byte(0xFF), raw[2*0x03])
	require.Equal(t, byte(0x90), raw[2*0x45])

	// E0/E1 rows: (vsc, pad, vk16), zero-terminated.
	require.Equal(t, []byte{0x1D, 0, 0x11, 0, 0, 0, 0, 0}, d.kbdVscToVkE0.Bytes())
	require.Equal(t, []byte{0x1D, 0, 0x13, 0, 0, 0, 0, 0}, d.kbdVscToVkE1.Bytes())
}

func TestCompileKeymapNameRouting(t *testing.T) {
	l := layout.New()
	l.DLLName = "kbdtst.dll"
	l.Keymap[layout.ScanCode{Code: 0x02}] = layout.KeyCode{WinVK: 0x31, Name: "1"} // default, dropped
	l.Keymap[layout.ScanCode{Code: 0x0E}] = layout.KeyCode{WinVK: 0x08, Name: "Backspace"}
	l.Keymap[layout.ScanCode{Code: 0x45}] = layout.KeyCode{WinVK: 0x90, Name: "Num Lock"}
	l.Keymap[layout.ScanCode{Code: 0x1D, Prefix: 0xE0}] = layout.KeyCode{WinVK: 0x11, Name: "Right Ctrl"}
	l.Keymap[layout.ScanCode{Code: 0x1D, Prefix: 0xE1}] = layout.KeyCode{WinVK: 0x13, Name: "Pause"}

	d := newTestDll(t, l, wintypes.X86)
	require.NoError(t, d.compileKeymap())

	// Base table: Backspace (0x0E) plus Pause filed under 0x45; rows are
	// 8 bytes on x86 (vsc, padding, pointer slot).
	base := d.kbdKeyNames.Bytes()
	require.Len(t, base, 3*8)
	require.Equal(t, byte(0x0E), base[0])
	require.Equal(t, byte(0x45), base[8])
	require.Len(t, d.kbdKeyNames.Symbols(), 3) // two names + null terminator

	// Extended table: NumLock (plain 0x45) and Right Ctrl (E0-1D).
	ext := d.kbdKeyNamesExt.Bytes()
	require.Len(t, ext, 3*8)
	require.Equal(t, byte(0x45), ext[0])
	require.Equal(t, byte(0x1D), ext[8])
}

func TestCompileKeymapRequiresPlainScancode(t *testing.T) {
	l := layout.New()
	l.DLLName = "kbdtst.dll"
	l.Keymap[layout.ScanCode{Code: 0x1D, Prefix: 0xE0}] = layout.KeyCode{WinVK: 0x11}

	d := newTestDll(t, l, wintypes.X86)
	require.ErrorIs(t, d.compileKeymap(), layout.ErrInvalidLayout)
}

func TestCompileKeymapOverflow(t *testing.T) {
	l := layout.New()
	l.DLLName = "kbdtst.dll"
	l.Keymap[layout.ScanCode{Code: 0xFF}] = layout.KeyCode{WinVK: 0x31}

	d := newTestDll(t, l, wintypes.X86)
	require.ErrorIs(t, d.compileKeymap(), wintypes.ErrOverflow)
}
