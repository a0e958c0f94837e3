package layout

import (
	"fmt"
	"strings"
)

// ShiftState is the set of modifiers held during a keystroke. Capslock is
// only meaningful on the secondary row of an SGCAPS key and is not part of
// the wire modifier mask.
type ShiftState struct {
	Shift    bool
	Control  bool
	Alt      bool
	Kana     bool
	Capslock bool
}

// Bits packs the state into the KBD modifier mask (KBDSHIFT, KBDCTRL,
// KBDALT, KBDKANA). Capslock is excluded.
func (s ShiftState) Bits() uint8 {
	var mask uint8
	if s.Shift {
		mask |= 1
	}
	if s.Control {
		mask |= 2
	}
	if s.Alt {
		mask |= 4
	}
	if s.Kana {
		mask |= 8
	}
	return mask
}

// ShiftStateFromBits unpacks a modifier mask.
func ShiftStateFromBits(mask uint8) ShiftState {
	return ShiftState{
		Shift:   mask&1 != 0,
		Control: mask&2 != 0,
		Alt:     mask&4 != 0,
		Kana:    mask&8 != 0,
	}
}

// WithCapslock returns the state with the Capslock flag replaced.
func (s ShiftState) WithCapslock(on bool) ShiftState {
	s.Capslock = on
	return s
}

// sortKey orders states by modifier mask, CapsLock variants after their
// plain form, giving the deterministic column assignment the wire format
// requires.
func (s ShiftState) sortKey() int {
	key := int(s.Bits())
	if s.Capslock {
		key |= 0x10
	}
	return key
}

// String renders "default" or a comma-separated list of the set modifiers.
func (s ShiftState) String() string {
	var parts []string
	if s.Shift {
		parts = append(parts, "shift")
	}
	if s.Control {
		parts = append(parts, "control")
	}
	if s.Alt {
		parts = append(parts, "alt")
	}
	if s.Kana {
		parts = append(parts, "kana")
	}
	if s.Capslock {
		parts = append(parts, "capslock")
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, ",")
}

// ParseShiftState parses the String form.
func ParseShiftState(s string) (ShiftState, error) {
	var out ShiftState
	if s == "default" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		switch part {
		case "shift":
			out.Shift = true
		case "control":
			out.Control = true
		case "alt":
			out.Alt = true
		case "kana":
			out.Kana = true
		case "capslock":
			out.Capslock = true
		default:
			return out, fmt.Errorf("shift state %q: unknown modifier %q", s, part)
		}
	}
	return out, nil
}
