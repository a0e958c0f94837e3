package windll

import (
	"fmt"

	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

// KBDTABLES is a struct of long pointers to every table, the VSC-to-VK
// bound, the locale flags word, and the (empty) ligature fields. Its size
// is 11 long pointers plus 16 bytes on every target.

func (d *WinDll) compileTables() error {
	t := linker.New(d.Arch.LongPointer)
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdModifiers))
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdVkToWcharTable))
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdDeadKey))
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdKeyNames))
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdKeyNamesExt))
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdKeyNamesDead))
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdVscToVk))
	t.AppendBlob(wintypes.U8(uint8(d.kbdVscToVkCount)))
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdVscToVkE0))
	t.AppendSymbol(wintypes.LPTR(d.Arch, d.kbdVscToVkE1))
	t.AppendBlob(wintypes.MakeLong(1, 1)) // fLocaleFlags: version 1, KLLF_ALTGR clear
	t.AppendBlob(wintypes.U8(0))          // nLgMax
	t.AppendBlob(wintypes.U8(0))          // cbLgEntry
	t.AppendSymbol(wintypes.LPTR(d.Arch, nil))
	t.AppendBlob(wintypes.U32(0)) // dwType
	t.AppendBlob(wintypes.U32(0)) // dwSubType
	if err := t.Err(); err != nil {
		return err
	}
	d.kbdTables = t
	return nil
}

// kbdTablesSize is the byte size of KBDTABLES for the current target.
func (d *WinDll) kbdTablesSize() int {
	return 11*d.Arch.LongPointer + 16
}

func (d *WinDll) decompileTables() error {
	r := d.reader(d.kbdTables, 0)

	readPtr := func() (uint64, error) { return wintypes.ReadLPTR(r, d.Arch) }
	rvaOf := func(ptr uint64) (uint32, error) {
		if ptr < d.base {
			return 0, fmt.Errorf("%w: pointer 0x%X below image base 0x%X", ErrMalformedData, ptr, d.base)
		}
		return uint32(ptr - d.base), nil
	}

	// MODIFIERS: peek wMaxModBits to bound the ModNumber array.
	modPtr, err := readPtr()
	if err != nil {
		return err
	}
	modRVA, err := rvaOf(modPtr)
	if err != nil {
		return err
	}
	maxBlob, err := d.extractFixed(modRVA+uint32(d.Arch.LongPointer), 2, 2)
	if err != nil {
		return err
	}
	maxMask, err := wintypes.ReadU16(d.reader(maxBlob, 0))
	if err != nil {
		return err
	}
	modLen := d.Arch.LongPointer + 2*(int(maxMask)+2)
	if d.kbdModifiers, err = d.extractFixed(modRVA, modLen, 8); err != nil {
		return err
	}

	tablePtr, err := readPtr()
	if err != nil {
		return err
	}
	tableRVA, err := rvaOf(tablePtr)
	if err != nil {
		return err
	}
	if _, d.kbdVkToWcharTable, err = d.extractArray(tableRVA, 2*d.Arch.LongPointer, 8); err != nil {
		return err
	}

	deadPtr, err := readPtr()
	if err != nil {
		return err
	}
	if deadPtr != 0 {
		rva, err := rvaOf(deadPtr)
		if err != nil {
			return err
		}
		if _, d.kbdDeadKey, err = d.extractArray(rva, 8, 8); err != nil {
			return err
		}
	}

	for _, slot := range []**linker.Blob{&d.kbdKeyNames, &d.kbdKeyNamesExt} {
		ptr, err := readPtr()
		if err != nil {
			return err
		}
		if ptr == 0 {
			continue
		}
		rva, err := rvaOf(ptr)
		if err != nil {
			return err
		}
		if _, *slot, err = d.extractArray(rva, 2*d.Arch.LongPointer, 8); err != nil {
			return err
		}
	}

	deadNamesPtr, err := readPtr()
	if err != nil {
		return err
	}
	if deadNamesPtr != 0 {
		rva, err := rvaOf(deadNamesPtr)
		if err != nil {
			return err
		}
		if _, d.kbdKeyNamesDead, err = d.extractArray(rva, d.Arch.LongPointer, 8); err != nil {
			return err
		}
	}

	vscPtr, err := readPtr()
	if err != nil {
		return err
	}
	vscRVA, err := rvaOf(vscPtr)
	if err != nil {
		return err
	}
	count, err := wintypes.ReadU8(r)
	if err != nil {
		return err
	}
	d.kbdVscToVkCount = int(count)
	if d.kbdVscToVk, err = d.extractFixed(vscRVA, 2*int(count), 8); err != nil {
		return err
	}

	for _, slot := range []**linker.Blob{&d.kbdVscToVkE0, &d.kbdVscToVkE1} {
		ptr, err := readPtr()
		if err != nil {
			return err
		}
		if ptr == 0 {
			continue
		}
		rva, err := rvaOf(ptr)
		if err != nil {
			return err
		}
		if _, *slot, err = d.extractArray(rva, 4, 8); err != nil {
			return err
		}
	}

	// fLocaleFlags, ligature fields, dwType and dwSubType are not carried
	// into the layout model.
	return nil
}
