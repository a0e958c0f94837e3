// Package layout defines the language-neutral keyboard model consumed and
// produced by the DLL compiler: scancodes, virtual-key assignments,
// per-modifier character tables, dead keys, and layout metadata, together
// with a stable JSON serialization.
package layout

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ScanCode identifies a physical key on the wire: a one-byte code with an
// optional 0xE0 or 0xE1 prefix.
type ScanCode struct {
	Code   uint8
	Prefix uint8
}

// String renders "1C" for unprefixed codes and "E0,1C" for prefixed ones.
func (s ScanCode) String() string {
	if s.Prefix != 0 {
		return fmt.Sprintf("%X,%X", s.Prefix, s.Code)
	}
	return fmt.Sprintf("%X", s.Code)
}

// ParseScanCode parses the String form.
func ParseScanCode(s string) (ScanCode, error) {
	var out ScanCode
	parts := strings.Split(s, ",")
	switch len(parts) {
	case 1:
		code, err := strconv.ParseUint(parts[0], 16, 8)
		if err != nil {
			return out, fmt.Errorf("scancode %q: %w", s, err)
		}
		out.Code = uint8(code)
	case 2:
		prefix, err := strconv.ParseUint(parts[0], 16, 8)
		if err != nil {
			return out, fmt.Errorf("scancode %q: %w", s, err)
		}
		code, err := strconv.ParseUint(parts[1], 16, 8)
		if err != nil {
			return out, fmt.Errorf("scancode %q: %w", s, err)
		}
		out.Prefix = uint8(prefix)
		out.Code = uint8(code)
	default:
		return out, fmt.Errorf("scancode %q: too many parts", s)
	}
	return out, nil
}

// Less orders scancodes by (prefix, code).
func (s ScanCode) Less(t ScanCode) bool {
	if s.Prefix != t.Prefix {
		return s.Prefix < t.Prefix
	}
	return s.Code < t.Code
}

// KeyAttributes are the per-key CapsLock behaviors stored in the character
// table's attribute byte.
type KeyAttributes struct {
	// Capslock makes CapsLock act like Shift for this key (CAPLOK).
	Capslock bool
	// CapslockSecondary gives the key a separate CapsLock character row
	// (SGCAPS, Swiss-German legacy behavior).
	CapslockSecondary bool
	// CapslockAltGr makes CapsLock act like Shift in AltGr states
	// (CAPLOKALTGR).
	CapslockAltGr bool
	// Kanalock makes the Kana lock affect the key (KANALOK).
	Kanalock bool
}

// Bits packs the attributes into the wire byte.
func (a KeyAttributes) Bits() uint8 {
	var bits uint8
	if a.Capslock {
		bits |= 0x01
	}
	if a.CapslockSecondary {
		bits |= 0x02
	}
	if a.CapslockAltGr {
		bits |= 0x04
	}
	if a.Kanalock {
		bits |= 0x08
	}
	return bits
}

// AttributesFromBits unpacks the wire byte.
func AttributesFromBits(bits uint8) KeyAttributes {
	return KeyAttributes{
		Capslock:          bits&0x01 != 0,
		CapslockSecondary: bits&0x02 != 0,
		CapslockAltGr:     bits&0x04 != 0,
		Kanalock:          bits&0x08 != 0,
	}
}

// IsZero reports whether no attribute is set.
func (a KeyAttributes) IsZero() bool { return a == KeyAttributes{} }

// KeyCode is a scancode's assignment: the Windows virtual key, an optional
// display name, and the key's CapsLock attributes. An empty name means the
// default name, the character of the VK's low byte.
type KeyCode struct {
	WinVK      uint16
	Name       string
	Attributes KeyAttributes
}

// DefaultName reports whether name is the default for the given VK.
func DefaultName(name string, vk uint16) bool {
	return name == "" || name == string(rune(vk&0xFF))
}

// Character is one produced codepoint; Dead marks a dead key that combines
// with the next keystroke.
type Character struct {
	Char rune
	Dead bool
}

// DeadKeyCombo is one composition: pressing the dead key then Base yields
// Composed.
type DeadKeyCombo struct {
	Base     rune
	Composed Character
}

// DeadKey is a dead-key definition. Combos keep the insertion order of the
// source file, which the compiler preserves on the wire.
type DeadKey struct {
	Accent rune
	Name   string
	Combos []DeadKeyCombo
}

// Combo returns the composition for base, if present.
func (d *DeadKey) Combo(base rune) (Character, bool) {
	for _, c := range d.Combos {
		if c.Base == base {
			return c.Composed, true
		}
	}
	return Character{}, false
}

// SortedScanCodes returns keymap keys in ascending (prefix, code) order.
func SortedScanCodes(keymap map[ScanCode]KeyCode) []ScanCode {
	out := make([]ScanCode, 0, len(keymap))
	for sc := range keymap {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// SortedVKs returns charmap keys in ascending order.
func SortedVKs(charmap map[uint16]map[ShiftState]Character) []uint16 {
	out := make([]uint16, 0, len(charmap))
	for vk := range charmap {
		out = append(out, vk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortedShiftStates returns the states of one key's character map ordered
// by ascending modifier mask, CapsLock variants after their plain form.
func SortedShiftStates(m map[ShiftState]Character) []ShiftState {
	out := make([]ShiftState, 0, len(m))
	for ss := range m {
		out = append(out, ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].sortKey() < out[j].sortKey() })
	return out
}
