package windll

import (
	"fmt"

	"github.com/joshuapare/kbdimage/diag"
	"github.com/joshuapare/kbdimage/layout"
	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

// The keymap tables: a flat VSC-to-VK array for unprefixed scancodes, row
// lists for the 0xE0 and 0xE1 prefixes, and the key-name tables. A key name
// is only stored when it differs from the default, the character of the
// VK's low byte. The Pause key (E1-1D) files its name under scancode 0x45
// in the base table; NumLock (plain 0x45) files its name in the extended
// table.

func (d *WinDll) compileKeymap() error {
	maxCode := -1
	for sc := range d.Layout.Keymap {
		if sc.Prefix == 0 && int(sc.Code) > maxCode {
			maxCode = int(sc.Code)
		}
	}
	if maxCode < 0 {
		return fmt.Errorf("%w: keymap has no unprefixed scancodes", layout.ErrInvalidLayout)
	}
	count := maxCode + 1
	if count > 0xFF {
		return fmt.Errorf("%w: %d VSC-to-VK entries", wintypes.ErrOverflow, count)
	}

	vscToVk := linker.New(4)
	for vsc := 0; vsc <= maxCode; vsc++ {
		vk := uint16(0xFF)
		if kc, ok := d.Layout.Keymap[layout.ScanCode{Code: uint8(vsc)}]; ok {
			vk = kc.WinVK
		}
		vscToVk.AppendBlob(wintypes.U16(vk))
	}
	d.kbdVscToVk = vscToVk
	d.kbdVscToVkCount = count

	keyNames := linker.New(8)
	keyNamesExt := linker.New(8)
	vscToVkE0 := linker.New(4)
	vscToVkE1 := linker.New(4)

	appendName := func(table *linker.Blob, vsc uint8, name string) error {
		str, err := wintypes.WStr(name)
		if err != nil {
			return err
		}
		table.AppendBlob(wintypes.U8(vsc))
		table.AppendSymbol(wintypes.LPTR(d.Arch, str))
		return nil
	}

	for _, sc := range layout.SortedScanCodes(d.Layout.Keymap) {
		kc := d.Layout.Keymap[sc]
		named := kc.Name != "" && !layout.DefaultName(kc.Name, kc.WinVK)
		switch sc.Prefix {
		case 0:
			if named {
				table := keyNames
				if sc.Code == 0x45 {
					table = keyNamesExt
				}
				if err := appendName(table, sc.Code, kc.Name); err != nil {
					return err
				}
			}
		case 0xE0:
			vscToVkE0.AppendBlob(wintypes.U8(sc.Code))
			vscToVkE0.AppendBlob(wintypes.U16(kc.WinVK))
			if named {
				if err := appendName(keyNamesExt, sc.Code, kc.Name); err != nil {
					return err
				}
			}
		case 0xE1:
			vscToVkE1.AppendBlob(wintypes.U8(sc.Code))
			vscToVkE1.AppendBlob(wintypes.U16(kc.WinVK))
			// Pause (E1-1D-45) is named through the base table's 0x45 slot.
			if named && sc.Code == 0x1D {
				if err := appendName(keyNames, 0x45, kc.Name); err != nil {
					return err
				}
			}
		}
	}

	keyNames.AppendBlob(wintypes.U8(0))
	keyNames.AppendSymbol(wintypes.LPTR(d.Arch, nil))
	keyNamesExt.AppendBlob(wintypes.U8(0))
	keyNamesExt.AppendSymbol(wintypes.LPTR(d.Arch, nil))
	vscToVkE0.AppendBlob(wintypes.U8(0))
	vscToVkE0.AppendBlob(wintypes.U16(0))
	vscToVkE1.AppendBlob(wintypes.U8(0))
	vscToVkE1.AppendBlob(wintypes.U16(0))

	d.kbdKeyNames = keyNames
	d.kbdKeyNamesExt = keyNamesExt
	d.kbdVscToVkE0 = vscToVkE0
	d.kbdVscToVkE1 = vscToVkE1
	return nil
}

// readNameTable parses rows of (vsc, long pointer to UTF-16 name).
func (d *WinDll) readNameTable(table *linker.Blob) (map[uint8]string, error) {
	names := make(map[uint8]string)
	if table == nil {
		return names, nil
	}
	r := d.reader(table, 0)
	for {
		vsc, err := wintypes.ReadU8(r)
		if err != nil {
			return nil, err
		}
		if vsc == 0 {
			break
		}
		ptr, err := wintypes.ReadLPTR(r, d.Arch)
		if err != nil {
			return nil, err
		}
		name, err := d.extractWStr(uint32(ptr - d.base))
		if err != nil {
			return nil, err
		}
		if prev, dup := names[vsc]; dup && prev != name {
			d.Diags.Warnf(diag.CodeDuplicateEntry, "duplicate name for vsc 0x%X", vsc)
			continue
		}
		names[vsc] = name
	}
	return names, nil
}

func (d *WinDll) decompileKeymap() error {
	names, err := d.readNameTable(d.kbdKeyNames)
	if err != nil {
		return err
	}
	namesExt, err := d.readNameTable(d.kbdKeyNamesExt)
	if err != nil {
		return err
	}

	nameFor := func(sc layout.ScanCode) string {
		if sc.Prefix == 0xE1 && sc.Code == 0x1D {
			return names[0x45]
		}
		if sc.Prefix == 0xE0 || sc.Code == 0x45 {
			return namesExt[sc.Code]
		}
		return names[sc.Code]
	}

	assign := func(sc layout.ScanCode, vk uint16) {
		if _, dup := d.Layout.Keymap[sc]; dup {
			d.Diags.Warnf(diag.CodeDuplicateEntry, "replacing duplicate scancode %s", sc)
		}
		d.Layout.Keymap[sc] = layout.KeyCode{WinVK: vk, Name: nameFor(sc)}
	}

	r := d.reader(d.kbdVscToVk, 0)
	for vsc := 0; vsc < d.kbdVscToVkCount; vsc++ {
		vk, err := wintypes.ReadU16(r)
		if err != nil {
			return err
		}
		if vk == 0 || vk == 0xFF {
			continue
		}
		assign(layout.ScanCode{Code: uint8(vsc)}, vk)
	}

	prefixed := []struct {
		prefix uint8
		table  *linker.Blob
	}{{0xE0, d.kbdVscToVkE0}, {0xE1, d.kbdVscToVkE1}}
	for _, pt := range prefixed {
		prefix, table := pt.prefix, pt.table
		if table == nil {
			continue
		}
		r := d.reader(table, 0)
		for {
			vsc, err := wintypes.ReadU8(r)
			if err != nil {
				return err
			}
			if vsc == 0 {
				break
			}
			vk, err := wintypes.ReadU16(r)
			if err != nil {
				return err
			}
			assign(layout.ScanCode{Code: vsc, Prefix: prefix}, vk)
		}
	}
	return nil
}
