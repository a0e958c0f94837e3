package windll

import (
	"fmt"

	"github.com/joshuapare/kbdimage/diag"
	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

const exportName = "KbdLayerDescriptor"

// The export directory is self-contained: the address, name-pointer and
// ordinal tables plus both strings live inside the directory blob, so the
// whole directory can be carved out of a foreign image in one piece.

func (d *WinDll) compileDirExport() error {
	// PKBDTABLES KbdLayerDescriptor(): return the table address.
	fn := linker.New(16)
	if d.Arch.Pointer == 8 {
		fn.AppendBytes(0x48) // REX.W
	}
	fn.AppendBytes(0xB8) // MOV EAX, imm
	addr := wintypes.PTR(d.Arch, d.kbdTables)
	addr.Unaligned = true
	fn.AppendSymbol(addr)
	if d.Arch == wintypes.WOW64 {
		fn.AppendBytes(0x99) // CDQ: sign-extend the long pointer into EDX
	}
	fn.AppendBytes(0xC3) // RET

	dllName, err := wintypes.Str(d.Layout.DLLName)
	if err != nil {
		return err
	}
	funcName, err := wintypes.Str(exportName)
	if err != nil {
		return err
	}

	addresses := linker.New(4)
	addresses.AppendSymbol(linker.RVA{To: fn})

	names := linker.New(4)
	names.AppendSymbol(linker.RVA{To: funcName})

	ordinals := linker.New(4)
	ordinals.AppendBlob(wintypes.U16(0))

	export := linker.New(16)
	export.AppendBlob(wintypes.U32(0))           // Export Flags (reserved)
	export.AppendBlob(wintypes.U32(d.Timestamp)) // Timestamp
	export.AppendBlob(wintypes.U16(0))           // Major Version
	export.AppendBlob(wintypes.U16(0))           // Minor Version
	export.AppendSymbol(linker.RVA{To: dllName}) // Name RVA
	export.AppendBlob(wintypes.U32(1))           // Ordinal Base
	export.AppendBlob(wintypes.U32(1))           // Address Table Entries
	export.AppendBlob(wintypes.U32(1))           // Number of Name Pointers
	export.AppendSymbol(linker.RVA{To: addresses})
	export.AppendSymbol(linker.RVA{To: names})
	export.AppendSymbol(linker.RVA{To: ordinals})
	for _, child := range []*linker.Blob{addresses, names, ordinals, dllName, funcName} {
		export.AppendBlob(child)
	}
	if err := export.Err(); err != nil {
		return err
	}
	d.dirExport = export
	return nil
}

func (d *WinDll) decompileDirExport() error {
	r := d.reader(d.dirExport, 0)
	r.Seek(12)
	dllNameRVA, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}
	one := []byte{1, 0, 0, 0}
	for i := 0; i < 3; i++ { // ordinal base, address count, name count
		if err := r.ReadOrWarn(one, 4); err != nil {
			return err
		}
	}
	addressesRVA, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}
	namesRVA, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}

	if name, err := d.extractStr(dllNameRVA); err == nil {
		d.Layout.DLLName = name
	} else {
		return err
	}

	// A keyboard DLL exports exactly one function; tolerate but flag a
	// different name.
	namePtrBlob, err := d.extractFixed(namesRVA, 4, 4)
	if err != nil {
		return err
	}
	namePtr, err := wintypes.ReadU32(d.reader(namePtrBlob, 0))
	if err != nil {
		return err
	}
	if fname, err := d.extractStr(namePtr); err != nil {
		return err
	} else if fname != exportName {
		d.Diags.Warnf(diag.CodeUnexpectedValue, "exported function %q, want %q", fname, exportName)
	}

	fnRVABlob, err := d.extractFixed(addressesRVA, 4, 4)
	if err != nil {
		return err
	}
	fnRVA, err := wintypes.ReadU32(d.reader(fnRVABlob, 0))
	if err != nil {
		return err
	}
	fn, err := d.extractFixed(fnRVA, 16, 4)
	if err != nil {
		return err
	}
	tableRVA, err := d.parseThunk(fn, fnRVA)
	if err != nil {
		return err
	}
	d.kbdTables, err = d.extractFixed(tableRVA, d.kbdTablesSize(), d.Arch.LongPointer)
	return err
}

// parseThunk matches the three instruction patterns KbdLayerDescriptor may
// use, returns the KBDTABLES RVA, and upgrades a 0x14C image to WoW64 when
// the CDQ byte is present.
func (d *WinDll) parseThunk(fn *linker.Blob, fnRVA uint32) (uint32, error) {
	r := d.reader(fn, 0)
	if d.Arch == wintypes.AMD64 {
		if err := r.ReadOrFail([]byte{0x48}, 1); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedData, err)
		}
	}
	ins, err := wintypes.ReadU8(r)
	if err != nil {
		return 0, err
	}
	var tableRVA uint32
	switch ins {
	case 0xB8: // MOV EAX/RAX, imm
		addr, err := wintypes.ReadUint(r, d.Arch.Pointer, 1)
		if err != nil {
			return 0, err
		}
		if addr < d.base {
			return 0, fmt.Errorf("%w: table address 0x%X below image base 0x%X", ErrMalformedData, addr, d.base)
		}
		tableRVA = uint32(addr - d.base)
		if ins, err = wintypes.ReadU8(r); err != nil {
			return 0, err
		}
		if ins == 0x99 { // CDQ
			switch d.Arch {
			case wintypes.X86:
				d.Arch = wintypes.WOW64
			case wintypes.WOW64:
			default:
				return 0, fmt.Errorf("%w: unexpected CDQ on %s", ErrMalformedData, d.Arch)
			}
			if ins, err = wintypes.ReadU8(r); err != nil {
				return 0, err
			}
		}
	case 0x8D: // LEA EAX, [rel disp32]
		if err := r.ReadOrFail([]byte{0x05}, 1); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedData, err)
		}
		disp, err := wintypes.ReadUint(r, 4, 1)
		if err != nil {
			return 0, err
		}
		tableRVA = uint32(int64(fnRVA) + int64(r.Offset()) + int64(int32(disp)))
		if ins, err = wintypes.ReadU8(r); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: unexpected instruction 0x%X in thunk", ErrMalformedData, ins)
	}
	if ins != 0xC3 {
		return 0, fmt.Errorf("%w: unexpected instruction 0x%X in thunk", ErrMalformedData, ins)
	}
	return tableRVA, nil
}
