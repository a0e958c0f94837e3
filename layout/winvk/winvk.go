// Package winvk is the fixed reference table of Windows virtual-key codes.
// It exists for diagnostics and display: the compiler itself never needs a
// VK's name, only its numeric value.
package winvk

import "fmt"

// Flag bits a composite VK carries on top of its 8-bit code.
const (
	KBDEXT     = 0x100
	KBDMULTIVK = 0x200
	KBDSPECIAL = 0x400
	KBDNUMPAD  = 0x800
)

// Info describes one virtual key.
type Info struct {
	Name string
	// Extended marks keys whose scancodes carry the 0xE0 prefix.
	Extended bool
	// Mappable marks keys that may appear in a character table.
	Mappable bool
}

// Name returns the symbolic name of a VK, or a hex form for unknown codes.
func Name(vk uint16) string {
	if info, ok := table[vk]; ok {
		return info.Name
	}
	if plain, ok := translate[vk]; ok {
		if info, ok := table[plain]; ok {
			return info.Name
		}
	}
	return fmt.Sprintf("VK_0x%02X", vk)
}

// Lookup returns the reference record for a VK.
func Lookup(vk uint16) (Info, bool) {
	info, ok := table[vk]
	return info, ok
}

// translate strips the known flag combinations off composite VKs.
var translate = map[uint16]uint16{
	0x16F: 0x6F, 0x103: 0x03, 0x26A: 0x6A,
	0xC24: 0x67, 0xC26: 0x68, 0xC21: 0x69,
	0xC25: 0x64, 0xC0C: 0x65, 0xC27: 0x66,
	0xC23: 0x61, 0xC28: 0x62, 0xC22: 0x63,
	0xC2D: 0x60, 0xC2E: 0x6E,
}

var table = map[uint16]Info{
	0x03: {Name: "VK_CANCEL", Extended: true, Mappable: true},
	0x08: {Name: "VK_BACK", Mappable: true},
	0x09: {Name: "VK_TAB", Mappable: true},
	0x0C: {Name: "VK_CLEAR"},
	0x0D: {Name: "VK_RETURN", Mappable: true},
	0x10: {Name: "VK_SHIFT"},
	0x11: {Name: "VK_CONTROL"},
	0x12: {Name: "VK_MENU"},
	0x13: {Name: "VK_PAUSE"},
	0x14: {Name: "VK_CAPITAL"},
	0x15: {Name: "VK_KANA"},
	0x1B: {Name: "VK_ESCAPE", Mappable: true},
	0x20: {Name: "VK_SPACE", Mappable: true},
	0x21: {Name: "VK_PRIOR", Extended: true},
	0x22: {Name: "VK_NEXT", Extended: true},
	0x23: {Name: "VK_END", Extended: true},
	0x24: {Name: "VK_HOME", Extended: true},
	0x25: {Name: "VK_LEFT", Extended: true},
	0x26: {Name: "VK_UP", Extended: true},
	0x27: {Name: "VK_RIGHT", Extended: true},
	0x28: {Name: "VK_DOWN", Extended: true},
	0x2C: {Name: "VK_SNAPSHOT", Extended: true},
	0x2D: {Name: "VK_INSERT", Extended: true},
	0x2E: {Name: "VK_DELETE", Extended: true},
	0x30: {Name: "VK_0", Mappable: true},
	0x31: {Name: "VK_1", Mappable: true},
	0x32: {Name: "VK_2", Mappable: true},
	0x33: {Name: "VK_3", Mappable: true},
	0x34: {Name: "VK_4", Mappable: true},
	0x35: {Name: "VK_5", Mappable: true},
	0x36: {Name: "VK_6", Mappable: true},
	0x37: {Name: "VK_7", Mappable: true},
	0x38: {Name: "VK_8", Mappable: true},
	0x39: {Name: "VK_9", Mappable: true},
	0x41: {Name: "VK_A", Mappable: true},
	0x42: {Name: "VK_B", Mappable: true},
	0x43: {Name: "VK_C", Mappable: true},
	0x44: {Name: "VK_D", Mappable: true},
	0x45: {Name: "VK_E", Mappable: true},
	0x46: {Name: "VK_F", Mappable: true},
	0x47: {Name: "VK_G", Mappable: true},
	0x48: {Name: "VK_H", Mappable: true},
	0x49: {Name: "VK_I", Mappable: true},
	0x4A: {Name: "VK_J", Mappable: true},
	0x4B: {Name: "VK_K", Mappable: true},
	0x4C: {Name: "VK_L", Mappable: true},
	0x4D: {Name: "VK_M", Mappable: true},
	0x4E: {Name: "VK_N", Mappable: true},
	0x4F: {Name: "VK_O", Mappable: true},
	0x50: {Name: "VK_P", Mappable: true},
	0x51: {Name: "VK_Q", Mappable: true},
	0x52: {Name: "VK_R", Mappable: true},
	0x53: {Name: "VK_S", Mappable: true},
	0x54: {Name: "VK_T", Mappable: true},
	0x55: {Name: "VK_U", Mappable: true},
	0x56: {Name: "VK_V", Mappable: true},
	0x57: {Name: "VK_W", Mappable: true},
	0x58: {Name: "VK_X", Mappable: true},
	0x59: {Name: "VK_Y", Mappable: true},
	0x5A: {Name: "VK_Z", Mappable: true},
	0x5B: {Name: "VK_LWIN", Extended: true},
	0x5C: {Name: "VK_RWIN", Extended: true},
	0x5D: {Name: "VK_APPS", Extended: true},
	0x60: {Name: "VK_NUMPAD0", Mappable: true},
	0x61: {Name: "VK_NUMPAD1", Mappable: true},
	0x62: {Name: "VK_NUMPAD2", Mappable: true},
	0x63: {Name: "VK_NUMPAD3", Mappable: true},
	0x64: {Name: "VK_NUMPAD4", Mappable: true},
	0x65: {Name: "VK_NUMPAD5", Mappable: true},
	0x66: {Name: "VK_NUMPAD6", Mappable: true},
	0x67: {Name: "VK_NUMPAD7", Mappable: true},
	0x68: {Name: "VK_NUMPAD8", Mappable: true},
	0x69: {Name: "VK_NUMPAD9", Mappable: true},
	0x6A: {Name: "VK_MULTIPLY", Mappable: true},
	0x6B: {Name: "VK_ADD", Mappable: true},
	0x6D: {Name: "VK_SUBTRACT", Mappable: true},
	0x6E: {Name: "VK_DECIMAL", Mappable: true},
	0x6F: {Name: "VK_DIVIDE", Extended: true, Mappable: true},
	0x70: {Name: "VK_F1"},
	0x71: {Name: "VK_F2"},
	0x72: {Name: "VK_F3"},
	0x73: {Name: "VK_F4"},
	0x74: {Name: "VK_F5"},
	0x75: {Name: "VK_F6"},
	0x76: {Name: "VK_F7"},
	0x77: {Name: "VK_F8"},
	0x78: {Name: "VK_F9"},
	0x79: {Name: "VK_F10"},
	0x7A: {Name: "VK_F11"},
	0x7B: {Name: "VK_F12"},
	0x90: {Name: "VK_NUMLOCK"},
	0x91: {Name: "VK_SCROLL"},
	0xA0: {Name: "VK_LSHIFT"},
	0xA1: {Name: "VK_RSHIFT"},
	0xA2: {Name: "VK_LCONTROL"},
	0xA3: {Name: "VK_RCONTROL", Extended: true},
	0xA4: {Name: "VK_LMENU"},
	0xA5: {Name: "VK_RMENU", Extended: true},
	0xBA: {Name: "VK_OEM_1", Mappable: true},
	0xBB: {Name: "VK_OEM_PLUS", Mappable: true},
	0xBC: {Name: "VK_OEM_COMMA", Mappable: true},
	0xBD: {Name: "VK_OEM_MINUS", Mappable: true},
	0xBE: {Name: "VK_OEM_PERIOD", Mappable: true},
	0xBF: {Name: "VK_OEM_2", Mappable: true},
	0xC0: {Name: "VK_OEM_3", Mappable: true},
	0xDB: {Name: "VK_OEM_4", Mappable: true},
	0xDC: {Name: "VK_OEM_5", Mappable: true},
	0xDD: {Name: "VK_OEM_6", Mappable: true},
	0xDE: {Name: "VK_OEM_7", Mappable: true},
	0xE2: {Name: "VK_OEM_102", Mappable: true},
	0xFF: {Name: "VK__none_"},
}
