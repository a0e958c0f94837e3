package layout

// EnUS returns the bundled US-English layout. It mirrors the tables of the
// standard kbdus driver closely enough to exercise every code path: plain
// and shifted characters, CAPLOK letters, numpad composite virtual keys,
// extended-prefix keys, and the Pause key behind the 0xE1 prefix.
func EnUS() *Layout {
	l := New()
	l.Name = "English (US) Layout"
	l.Author = "kbdimage"
	l.Copyright = "Public Domain"
	l.Version = Version{Major: 1, Minor: 0}
	l.DLLName = "kbdus.dll"

	type key struct {
		sc   ScanCode
		vk   uint16
		name string
	}
	keys := []key{
		{ScanCode{Code: 0x01}, 0x1B, "Esc"},
		{ScanCode{Code: 0x02}, '1', ""},
		{ScanCode{Code: 0x03}, '2', ""},
		{ScanCode{Code: 0x04}, '3', ""},
		{ScanCode{Code: 0x05}, '4', ""},
		{ScanCode{Code: 0x06}, '5', ""},
		{ScanCode{Code: 0x07}, '6', ""},
		{ScanCode{Code: 0x08}, '7', ""},
		{ScanCode{Code: 0x09}, '8', ""},
		{ScanCode{Code: 0x0A}, '9', ""},
		{ScanCode{Code: 0x0B}, '0', ""},
		{ScanCode{Code: 0x0C}, 0xBD, "-"},
		{ScanCode{Code: 0x0D}, 0xBB, "="},
		{ScanCode{Code: 0x0E}, 0x08, "Backspace"},
		{ScanCode{Code: 0x0F}, 0x09, "Tab"},
		{ScanCode{Code: 0x10}, 'Q', ""},
		{ScanCode{Code: 0x11}, 'W', ""},
		{ScanCode{Code: 0x12}, 'E', ""},
		{ScanCode{Code: 0x13}, 'R', ""},
		{ScanCode{Code: 0x14}, 'T', ""},
		{ScanCode{Code: 0x15}, 'Y', ""},
		{ScanCode{Code: 0x16}, 'U', ""},
		{ScanCode{Code: 0x17}, 'I', ""},
		{ScanCode{Code: 0x18}, 'O', ""},
		{ScanCode{Code: 0x19}, 'P', ""},
		{ScanCode{Code: 0x1A}, 0xDB, "["},
		{ScanCode{Code: 0x1B}, 0xDD, "]"},
		{ScanCode{Code: 0x1C}, 0x0D, "Enter"},
		{ScanCode{Code: 0x1D}, 0x11, "Ctrl"},
		{ScanCode{Code: 0x1E}, 'A', ""},
		{ScanCode{Code: 0x1F}, 'S', ""},
		{ScanCode{Code: 0x20}, 'D', ""},
		{ScanCode{Code: 0x21}, 'F', ""},
		{ScanCode{Code: 0x22}, 'G', ""},
		{ScanCode{Code: 0x23}, 'H', ""},
		{ScanCode{Code: 0x24}, 'J', ""},
		{ScanCode{Code: 0x25}, 'K', ""},
		{ScanCode{Code: 0x26}, 'L', ""},
		{ScanCode{Code: 0x27}, 0xBA, ";"},
		{ScanCode{Code: 0x28}, 0xDE, "'"},
		{ScanCode{Code: 0x29}, 0xC0, "`"},
		{ScanCode{Code: 0x2A}, 0x10, "Shift"},
		{ScanCode{Code: 0x2B}, 0xDC, "\\"},
		{ScanCode{Code: 0x2C}, 'Z', ""},
		{ScanCode{Code: 0x2D}, 'X', ""},
		{ScanCode{Code: 0x2E}, 'C', ""},
		{ScanCode{Code: 0x2F}, 'V', ""},
		{ScanCode{Code: 0x30}, 'B', ""},
		{ScanCode{Code: 0x31}, 'N', ""},
		{ScanCode{Code: 0x32}, 'M', ""},
		{ScanCode{Code: 0x33}, 0xBC, ","},
		{ScanCode{Code: 0x34}, 0xBE, "."},
		{ScanCode{Code: 0x35}, 0xBF, "/"},
		{ScanCode{Code: 0x36}, 0x10, "Right Shift"},
		{ScanCode{Code: 0x37}, 0x26A, "Num *"},
		{ScanCode{Code: 0x38}, 0x12, "Alt"},
		{ScanCode{Code: 0x39}, 0x20, "Space"},
		{ScanCode{Code: 0x3A}, 0x14, "Caps Lock"},
		{ScanCode{Code: 0x3B}, 0x70, "F1"},
		{ScanCode{Code: 0x3C}, 0x71, "F2"},
		{ScanCode{Code: 0x3D}, 0x72, "F3"},
		{ScanCode{Code: 0x3E}, 0x73, "F4"},
		{ScanCode{Code: 0x3F}, 0x74, "F5"},
		{ScanCode{Code: 0x40}, 0x75, "F6"},
		{ScanCode{Code: 0x41}, 0x76, "F7"},
		{ScanCode{Code: 0x42}, 0x77, "F8"},
		{ScanCode{Code: 0x43}, 0x78, "F9"},
		{ScanCode{Code: 0x44}, 0x79, "F10"},
		{ScanCode{Code: 0x45}, 0x90, "Num Lock"},
		{ScanCode{Code: 0x46}, 0x91, "Scroll Lock"},
		{ScanCode{Code: 0x47}, 0xC24, "Num 7"},
		{ScanCode{Code: 0x48}, 0xC26, "Num 8"},
		{ScanCode{Code: 0x49}, 0xC21, "Num 9"},
		{ScanCode{Code: 0x4A}, 0x6D, "Num -"},
		{ScanCode{Code: 0x4B}, 0xC25, "Num 4"},
		{ScanCode{Code: 0x4C}, 0xC0C, "Num 5"},
		{ScanCode{Code: 0x4D}, 0xC27, "Num 6"},
		{ScanCode{Code: 0x4E}, 0x6B, "Num +"},
		{ScanCode{Code: 0x4F}, 0xC23, "Num 1"},
		{ScanCode{Code: 0x50}, 0xC28, "Num 2"},
		{ScanCode{Code: 0x51}, 0xC22, "Num 3"},
		{ScanCode{Code: 0x52}, 0xC2D, "Num 0"},
		{ScanCode{Code: 0x53}, 0xC2E, "Num Del"},
		{ScanCode{Code: 0x57}, 0x7A, "F11"},
		{ScanCode{Code: 0x58}, 0x7B, "F12"},

		{ScanCode{Code: 0x1C, Prefix: 0xE0}, 0x10D, "Num Enter"},
		{ScanCode{Code: 0x1D, Prefix: 0xE0}, 0x11, "Right Ctrl"},
		{ScanCode{Code: 0x35, Prefix: 0xE0}, 0x16F, "Num /"},
		{ScanCode{Code: 0x37, Prefix: 0xE0}, 0x12C, "Prnt Scrn"},
		{ScanCode{Code: 0x38, Prefix: 0xE0}, 0x12, "Right Alt"},
		{ScanCode{Code: 0x47, Prefix: 0xE0}, 0x124, "Home"},
		{ScanCode{Code: 0x48, Prefix: 0xE0}, 0x126, "Up"},
		{ScanCode{Code: 0x49, Prefix: 0xE0}, 0x121, "Page Up"},
		{ScanCode{Code: 0x4B, Prefix: 0xE0}, 0x125, "Left"},
		{ScanCode{Code: 0x4D, Prefix: 0xE0}, 0x127, "Right"},
		{ScanCode{Code: 0x4F, Prefix: 0xE0}, 0x123, "End"},
		{ScanCode{Code: 0x50, Prefix: 0xE0}, 0x128, "Down"},
		{ScanCode{Code: 0x51, Prefix: 0xE0}, 0x122, "Page Down"},
		{ScanCode{Code: 0x52, Prefix: 0xE0}, 0x12D, "Insert"},
		{ScanCode{Code: 0x53, Prefix: 0xE0}, 0x12E, "Delete"},
		{ScanCode{Code: 0x5B, Prefix: 0xE0}, 0x15B, "Left Windows"},
		{ScanCode{Code: 0x5C, Prefix: 0xE0}, 0x15C, "Right Windows"},
		{ScanCode{Code: 0x5D, Prefix: 0xE0}, 0x15D, "Application"},

		{ScanCode{Code: 0x1D, Prefix: 0xE1}, 0x13, "Pause"},
	}
	for _, k := range keys {
		kc := KeyCode{WinVK: k.vk}
		if !DefaultName(k.name, k.vk) {
			kc.Name = k.name
		}
		if plain := k.vk & 0xFF; plain >= 'A' && plain <= 'Z' && k.vk < 0x100 {
			kc.Attributes.Capslock = true
		}
		l.Keymap[k.sc] = kc
	}

	def := ShiftState{}
	shift := ShiftState{Shift: true}

	pairs := map[uint16][2]rune{
		'1': {'1', '!'}, '2': {'2', '@'}, '3': {'3', '#'}, '4': {'4', '$'},
		'5': {'5', '%'}, '6': {'6', '^'}, '7': {'7', '&'}, '8': {'8', '*'},
		'9': {'9', '('}, '0': {'0', ')'},
		0xBD: {'-', '_'}, 0xBB: {'=', '+'},
		0xDB: {'[', '{'}, 0xDD: {']', '}'}, 0xDC: {'\\', '|'},
		0xBA: {';', ':'}, 0xDE: {'\'', '"'}, 0xC0: {'`', '~'},
		0xBC: {',', '<'}, 0xBE: {'.', '>'}, 0xBF: {'/', '?'},
	}
	for vk, p := range pairs {
		l.SetChar(vk, def, Character{Char: p[0]})
		l.SetChar(vk, shift, Character{Char: p[1]})
	}
	for c := 'A'; c <= 'Z'; c++ {
		l.SetChar(uint16(c), def, Character{Char: c + 0x20})
		l.SetChar(uint16(c), shift, Character{Char: c})
	}

	// Whitespace and control characters the driver produces itself.
	l.SetChar(0x08, def, Character{Char: '\b'})
	l.SetChar(0x09, def, Character{Char: '\t'})
	l.SetChar(0x0D, def, Character{Char: '\r'})
	l.SetChar(0x1B, def, Character{Char: 0x1B})
	l.SetChar(0x20, def, Character{Char: ' '})

	// Numpad: character production under NumLock.
	for i := rune(0); i <= 9; i++ {
		l.SetChar(uint16(0x60+i), def, Character{Char: '0' + i})
	}
	l.SetChar(0x6A, def, Character{Char: '*'})
	l.SetChar(0x6B, def, Character{Char: '+'})
	l.SetChar(0x6D, def, Character{Char: '-'})
	l.SetChar(0x6E, def, Character{Char: '.'})
	l.SetChar(0x6F, def, Character{Char: '/'})

	return l
}
