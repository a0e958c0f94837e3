package layout

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidLayout indicates a layout that fails validation.
var ErrInvalidLayout = errors.New("layout: invalid layout")

var dllNameRE = regexp.MustCompile(`^[A-Za-z0-9_]{1,8}\.dll$`)

// Version is the layout's two-part version, stored in the image version
// fields and the version resource.
type Version struct {
	Major uint16
	Minor uint16
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Layout is a complete keyboard description.
type Layout struct {
	Name      string
	Author    string
	Copyright string
	Version   Version
	// DLLName is the driver file name, at most eight name characters plus
	// the ".dll" suffix.
	DLLName string
	// Keymap assigns a virtual key to each scancode.
	Keymap map[ScanCode]KeyCode
	// Charmap maps a virtual key to the character produced under each
	// shift state.
	Charmap map[uint16]map[ShiftState]Character
	// DeadKeys lists dead-key definitions in source order.
	DeadKeys []DeadKey
}

// New returns an empty layout with allocated maps.
func New() *Layout {
	return &Layout{
		Keymap:  make(map[ScanCode]KeyCode),
		Charmap: make(map[uint16]map[ShiftState]Character),
	}
}

// DeadKey returns the dead-key definition for accent, if present.
func (l *Layout) DeadKey(accent rune) (*DeadKey, bool) {
	for i := range l.DeadKeys {
		if l.DeadKeys[i].Accent == accent {
			return &l.DeadKeys[i], true
		}
	}
	return nil, false
}

// SetChar records one character assignment, allocating the inner map.
func (l *Layout) SetChar(vk uint16, ss ShiftState, c Character) {
	m, ok := l.Charmap[vk]
	if !ok {
		m = make(map[ShiftState]Character)
		l.Charmap[vk] = m
	}
	m[ss] = c
}

// Validate checks the constraints the compiler relies on: a well-formed
// DLL name, known scancode prefixes, BMP-only characters, and unique
// dead-key accents.
func (l *Layout) Validate() error {
	if !dllNameRE.MatchString(l.DLLName) {
		return fmt.Errorf("%w: dll name %q", ErrInvalidLayout, l.DLLName)
	}
	for sc := range l.Keymap {
		if sc.Prefix != 0 && sc.Prefix != 0xE0 && sc.Prefix != 0xE1 {
			return fmt.Errorf("%w: scancode prefix 0x%X", ErrInvalidLayout, sc.Prefix)
		}
	}
	for vk, chars := range l.Charmap {
		for ss, c := range chars {
			if c.Char > 0xFFFF || (c.Char >= 0xD800 && c.Char <= 0xDFFF) {
				return fmt.Errorf("%w: vk 0x%X %v: character U+%04X outside the BMP",
					ErrInvalidLayout, vk, ss, c.Char)
			}
		}
	}
	seen := make(map[rune]bool)
	for _, dk := range l.DeadKeys {
		if seen[dk.Accent] {
			return fmt.Errorf("%w: duplicate dead key %q", ErrInvalidLayout, dk.Accent)
		}
		seen[dk.Accent] = true
		if dk.Accent > 0xFFFF {
			return fmt.Errorf("%w: dead key %q outside the BMP", ErrInvalidLayout, dk.Accent)
		}
	}
	return nil
}
