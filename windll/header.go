package windll

import (
	"fmt"

	"github.com/joshuapare/kbdimage/diag"
	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

const (
	subsystemNative    = 1
	dllCharacteristics = 0x540
	osVersionMajor     = 5
	osVersionMinor     = 1

	charDataSection  = 0x60000040 // initialized data, read, execute
	charRsrcSection  = 0x42000040 // initialized data, read, discardable
	charRelocSection = 0x42000040
)

var dosStub = append(
	[]byte{
		0x0E,             // PUSH CS
		0x1F,             // POP DS
		0xBA, 0x0E, 0x00, // MOV DX, 0xE
		0xB4, 0x09, // MOV AH, 0x09
		0xCD, 0x21, // INT 0x21
		0xB8, 0x01, 0x4C, // MOV AX, 0x4C01 (exit(1))
		0xCD, 0x21, // INT 0x21
	},
	[]byte("This program cannot be run in DOS mode.\n\n\r$")...,
)

func alignUp(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// link places the three sections at their virtual addresses. The .data
// section pulls in the export directory, thunk and every KBD table through
// symbol reachability; .rsrc and .reloc are single-rooted. The relocation
// directory is computed between the .data and .reloc placements because it
// needs the final pointer offsets.
func (d *WinDll) link() error {
	base := d.alignSection
	var err error
	if d.secData, err = linker.Link(base, d.dirExport); err != nil {
		return fmt.Errorf("link .data: %w", err)
	}
	d.secData.SetAlignment(d.alignFile)

	base = alignUp(base+d.secData.Len(), d.alignSection)
	if d.secRsrc, err = linker.Link(base, d.dirResource); err != nil {
		return fmt.Errorf("link .rsrc: %w", err)
	}
	d.secRsrc.SetAlignment(d.alignFile)

	base = alignUp(base+d.secRsrc.Len(), d.alignSection)
	if err := d.compileDirReloc(); err != nil {
		return err
	}
	if d.secReloc, err = linker.Link(base, d.dirReloc); err != nil {
		return fmt.Errorf("link .reloc: %w", err)
	}
	d.secReloc.SetAlignment(d.alignFile)
	return nil
}

func blobRVA(b *linker.Blob) uint32 {
	_, off, _ := b.FindPlacement()
	return uint32(off)
}

func (d *WinDll) fileLen(b *linker.Blob) int {
	return alignUp(b.Len(), d.alignFile)
}

func (d *WinDll) compileHeader() error {
	header := linker.New(d.alignFile)

	sec := linker.New(4)
	for _, s := range []struct {
		name            string
		section         *linker.Blob
		characteristics uint32
	}{
		{".data\x00\x00\x00", d.secData, charDataSection},
		{".rsrc\x00\x00\x00", d.secRsrc, charRsrcSection},
		{".reloc\x00\x00", d.secReloc, charRelocSection},
	} {
		sec.AppendBytes([]byte(s.name)...)
		sec.AppendBlob(wintypes.U32(uint32(s.section.Len())))   // VirtualSize
		sec.AppendBlob(wintypes.U32(blobRVA(s.section)))        // VirtualAddress
		sec.AppendBlob(wintypes.U32(uint32(d.fileLen(s.section)))) // SizeOfRawData
		sec.AppendSymbol(linker.RVA{To: s.section})             // PointerToRawData
		sec.AppendBlob(wintypes.U32(0))                         // PointerToRelocations
		sec.AppendBlob(wintypes.U32(0))                         // PointerToLinenumbers
		sec.AppendBlob(wintypes.U16(0))                         // NumberOfRelocations
		sec.AppendBlob(wintypes.U16(0))                         // NumberOfLinenumbers
		sec.AppendBlob(wintypes.U32(s.characteristics))
	}

	opt := linker.New(d.Arch.Pointer)
	opt.AppendBlob(wintypes.U16(d.Arch.OptionalMagic()))
	opt.AppendBlob(wintypes.U8(linkerVersionMajor))
	opt.AppendBlob(wintypes.U8(linkerVersionMinor))
	opt.AppendBlob(wintypes.U32(0)) // SizeOfCode
	sizeData := d.fileLen(d.secData) + d.fileLen(d.secRsrc) + d.fileLen(d.secReloc)
	opt.AppendBlob(wintypes.U32(uint32(sizeData))) // SizeOfInitializedData
	opt.AppendBlob(wintypes.U32(0))                // SizeOfUninitializedData
	opt.AppendBlob(wintypes.U32(0))                // AddressOfEntryPoint
	opt.AppendBlob(wintypes.U32(blobRVA(d.secData))) // BaseOfCode
	if d.Arch.Pointer == 4 {
		opt.AppendBlob(wintypes.U32(blobRVA(d.secData))) // BaseOfData, PE32 only
	}
	opt.AppendSymbol(wintypes.PTR(d.Arch, header)) // ImageBase
	opt.AppendBlob(wintypes.U32(uint32(d.alignSection)))
	opt.AppendBlob(wintypes.U32(uint32(d.alignFile)))
	opt.AppendBlob(wintypes.U16(osVersionMajor))
	opt.AppendBlob(wintypes.U16(osVersionMinor))
	opt.AppendBlob(wintypes.U16(d.Layout.Version.Major)) // MajorImageVersion
	opt.AppendBlob(wintypes.U16(d.Layout.Version.Minor)) // MinorImageVersion
	opt.AppendBlob(wintypes.U16(osVersionMajor))         // MajorSubsystemVersion
	opt.AppendBlob(wintypes.U16(osVersionMinor))         // MinorSubsystemVersion
	opt.AppendBlob(wintypes.U32(0))                      // Win32VersionValue
	// The .reloc section is assumed shorter than one section alignment.
	opt.AppendBlob(wintypes.U32(blobRVA(d.secReloc) + uint32(d.alignSection))) // SizeOfImage
	opt.AppendSymbol(linker.Sizeof{To: header, Width: 4})                      // SizeOfHeaders
	opt.AppendBlob(wintypes.U32(0))                                           // CheckSum, patched after assembly
	opt.AppendBlob(wintypes.U16(subsystemNative))
	opt.AppendBlob(wintypes.U16(dllCharacteristics))
	for _, v := range []uint64{0x40000, 0x1000, 0x100000, 0x1000} {
		b, err := wintypes.UintPtr(d.Arch, v) // stack/heap reserve and commit
		if err != nil {
			return err
		}
		opt.AppendBlob(b)
	}
	opt.AppendBlob(wintypes.U32(0))  // LoaderFlags
	opt.AppendBlob(wintypes.U32(16)) // NumberOfRvaAndSizes
	directories := []*linker.Blob{
		d.dirExport, nil, d.dirResource, nil, // Export, Import, Resource, Exception
		nil, d.dirReloc, nil, nil, // Certificate, BaseRelocation, Debug, Architecture
		nil, nil, nil, nil, // GlobalPtr, TLS, LoadConfig, BoundImport
		nil, nil, nil, nil, // IAT, DelayImport, CLR, reserved
	}
	for _, dir := range directories {
		if dir != nil {
			opt.AppendBlob(wintypes.U32(blobRVA(dir)))
			opt.AppendSymbol(linker.Sizeof{To: dir, Width: 4})
		} else {
			opt.AppendBlob(wintypes.U32(0))
			opt.AppendBlob(wintypes.U32(0))
		}
	}

	coff := linker.New(4)
	coff.AppendBlob(wintypes.U16(d.Arch.Machine()))
	coff.AppendBlob(wintypes.U16(3)) // NumberOfSections
	coff.AppendBlob(wintypes.U32(d.Timestamp))
	coff.AppendBlob(wintypes.U32(0)) // PointerToSymbolTable
	coff.AppendBlob(wintypes.U32(0)) // NumberOfSymbols
	coff.AppendBlob(wintypes.U16(uint16(opt.Len())))
	coff.AppendBlob(wintypes.U16(d.Arch.Characteristics()))

	pe := linker.New(8)
	pe.AppendBytes([]byte("PE\x00\x00")...)
	pe.AppendBlob(coff)
	pe.AppendBlob(opt)
	pe.AppendBlob(sec)

	mz := linker.New(16)
	mz.AppendBytes([]byte("MZ")...)
	mz.AppendBlob(wintypes.U16(0x90))   // length of last page
	mz.AppendBlob(wintypes.U16(3))      // page count
	mz.AppendBlob(wintypes.U16(0))      // relocation entries
	mz.AppendBlob(wintypes.U16(4))      // header paragraphs
	mz.AppendBlob(wintypes.U16(0))      // min extra paragraphs
	mz.AppendBlob(wintypes.U16(0xFFFF)) // max extra paragraphs
	mz.AppendBlob(wintypes.U16(0))      // initial SS
	mz.AppendBlob(wintypes.U16(0xB8))   // initial SP
	mz.AppendBlob(wintypes.U16(0))      // checksum
	mz.AppendBlob(wintypes.MakeLong(0, 0)) // initial CS:IP
	mz.AppendBlob(wintypes.U16(0x40))   // relocation table offset
	mz.AppendBlob(wintypes.U16(0))      // overlay number
	mz.AppendBytes(make([]byte, 32)...) // reserved
	mz.AppendSymbol(linker.RVA{To: pe}) // e_lfanew
	mz.AppendBytes(dosStub...)

	gen, err := wintypes.Str(d.generator())
	if err != nil {
		return err
	}
	notice := linker.New(16)
	notice.AppendBlob(gen)

	header.AppendBlob(mz)
	header.AppendBlob(notice)
	header.AppendBlob(pe)
	header.AppendPadding(d.alignFile)
	if err := header.Err(); err != nil {
		return err
	}
	d.secHeader = header
	return nil
}

// assemble concatenates header and sections at file offsets. The sections
// are released first: their virtual placements and already-resolved symbol
// tables must not leak into the file-offset link.
func (d *WinDll) assemble() error {
	for _, s := range []*linker.Blob{d.secData, d.secRsrc, d.secReloc} {
		s.Unplace()
	}
	assembly, err := linker.Link(0,
		d.secHeader, d.secData, d.secRsrc, d.secReloc, linker.New(d.alignFile))
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	d.assembly = assembly
	if d.Config.FixChecksum {
		d.patchChecksum()
	}
	return nil
}

func (d *WinDll) decompileHeader() error {
	r := d.reader(d.assembly, 0)
	if err := r.ReadOrFail([]byte("MZ"), 1); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	r.Seek(0x3C)
	peOff, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}
	r.Seek(int(peOff))
	if err := r.ReadOrFail([]byte("PE\x00\x00"), 1); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	machine, err := wintypes.ReadU16(r)
	if err != nil {
		return err
	}
	d.Arch = wintypes.ByMachine(machine)
	if d.Arch == nil {
		return fmt.Errorf("%w: unknown machine 0x%X", ErrMalformedData, machine)
	}
	numSections, err := wintypes.ReadU16(r)
	if err != nil {
		return err
	}
	if d.Timestamp, err = wintypes.ReadU32(r); err != nil {
		return err
	}
	if _, err = r.ReadBytes(8, 1); err != nil { // symbol table fields
		return err
	}
	pos := r.Offset()
	optSize, err := wintypes.ReadU16(r)
	if err != nil {
		return err
	}
	optEnd := pos + 4 + int(optSize)
	characteristics, err := wintypes.ReadU16(r)
	if err != nil {
		return err
	}
	if characteristics != d.Arch.Characteristics() {
		d.Diags.Warnf(diag.CodeHeaderMismatch,
			"COFF characteristics 0x%X, want 0x%X", characteristics, d.Arch.Characteristics())
	}

	var magic [2]byte
	magic[0] = byte(d.Arch.OptionalMagic())
	magic[1] = byte(d.Arch.OptionalMagic() >> 8)
	if err := r.ReadOrFail(magic[:], 1); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	skip := 26 // PE32: linker version through BaseOfData
	if d.Arch.Pointer == 8 {
		skip = 22 // PE32+ has no BaseOfData
	}
	if _, err = r.ReadBytes(skip, 1); err != nil {
		return err
	}
	if d.base, err = wintypes.ReadUint(r, d.Arch.Pointer, 1); err != nil {
		return err
	}
	if d.base != d.Arch.Base {
		d.Diags.Warnf(diag.CodeBaseMismatch,
			"image base 0x%X, preferred 0x%X", d.base, d.Arch.Base)
	}
	secAlign, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}
	if int(secAlign) != d.alignSection {
		d.Diags.Warnf(diag.CodeAlignmentMismatch,
			"section alignment 0x%X, expected 0x%X", secAlign, d.alignSection)
		d.alignSection = int(secAlign)
	}
	fileAlign, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}
	if int(fileAlign) != d.alignFile {
		d.Diags.Warnf(diag.CodeAlignmentMismatch,
			"file alignment 0x%X, expected 0x%X", fileAlign, d.alignFile)
		d.alignFile = int(fileAlign)
	}
	if _, err = r.ReadBytes(12+4+4+4+4, 1); err != nil { // versions through checksum
		return err
	}
	subsystem, err := wintypes.ReadU16(r)
	if err != nil {
		return err
	}
	if subsystem != subsystemNative {
		d.Diags.Warnf(diag.CodeHeaderMismatch, "subsystem %d, want %d", subsystem, subsystemNative)
	}
	dllChar, err := wintypes.ReadU16(r)
	if err != nil {
		return err
	}
	if dllChar != dllCharacteristics {
		d.Diags.Warnf(diag.CodeHeaderMismatch,
			"DLL characteristics 0x%X, want 0x%X", dllChar, dllCharacteristics)
	}
	if _, err = r.ReadBytes(4*d.Arch.Pointer+4, 1); err != nil { // stack, heap, loader flags
		return err
	}

	dirCount, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}
	if dirCount < 1 {
		return fmt.Errorf("%w: no export directory", ErrMalformedData)
	}
	exportRVA, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}
	exportLen, err := wintypes.ReadU32(r)
	if err != nil {
		return err
	}
	if exportRVA == 0 {
		return fmt.Errorf("%w: no export directory", ErrMalformedData)
	}
	var resourceRVA, resourceLen uint32
	if dirCount >= 3 {
		if _, err = r.ReadBytes(8, 1); err != nil { // import directory
			return err
		}
		if resourceRVA, err = wintypes.ReadU32(r); err != nil {
			return err
		}
		if resourceLen, err = wintypes.ReadU32(r); err != nil {
			return err
		}
	}
	if r.Offset() > optEnd {
		return fmt.Errorf("%w: SizeOfOptionalHeader too low", ErrMalformedData)
	}

	r.Seek(optEnd)
	d.sections = d.sections[:0]
	for i := 0; i < int(numSections); i++ {
		if _, err = r.ReadBytes(8, 1); err != nil { // name
			return err
		}
		if _, err = wintypes.ReadU32(r); err != nil { // VirtualSize
			return err
		}
		rva, err := wintypes.ReadU32(r)
		if err != nil {
			return err
		}
		if _, err = wintypes.ReadU32(r); err != nil { // SizeOfRawData
			return err
		}
		fileOff, err := wintypes.ReadU32(r)
		if err != nil {
			return err
		}
		if _, err = r.ReadBytes(16, 1); err != nil {
			return err
		}
		d.sections = append(d.sections, section{rva: rva, fileOff: fileOff})
	}
	sortSections(d.sections)

	if d.dirExport, err = d.extractFixed(exportRVA, int(exportLen), 16); err != nil {
		return err
	}
	if resourceRVA == 0 {
		d.Diags.Warnf(diag.CodeNoResources, "no resource directory")
	} else if d.dirResource, err = d.extractFixed(resourceRVA, int(resourceLen), 16); err != nil {
		return err
	}
	return nil
}
