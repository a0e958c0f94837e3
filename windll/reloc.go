package windll

import (
	"sort"

	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

// The base-relocation directory groups the absolute pointers of .data into
// 0x1000-byte pages. Each block is (page RVA, block size, entries); an
// entry packs the relocation type into the top 4 bits (HIGHLOW for 4-byte
// pointers, DIR64 for 8-byte) and the in-page offset into the low 12.
// Blocks with an odd entry count gain one zero entry to stay DWORD-aligned.

const (
	relocHighLow = 0x3 << 12
	relocDir64   = 0xA << 12
)

// compileDirReloc runs after .data is linked: the section's symbol table
// then holds every pointer with its final in-section offset.
func (d *WinDll) compileDirReloc() error {
	_, sectionRVA, _ := d.secData.Placement()

	type entry struct {
		offset uint16
		kind   uint16
	}
	blocks := make(map[uint32][]entry)
	for _, ps := range d.secData.Symbols() {
		ptr, ok := ps.Symbol.(linker.Pointer)
		if !ok || ptr.To == nil {
			continue
		}
		rva := uint32(sectionRVA + ps.Offset)
		kind := uint16(relocHighLow)
		if ptr.Width == 8 {
			kind = relocDir64
		}
		page := rva &^ 0xFFF
		blocks[page] = append(blocks[page], entry{offset: uint16(rva & 0xFFF), kind: kind})
	}

	pages := make([]uint32, 0, len(blocks))
	for page := range blocks {
		pages = append(pages, page)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })

	reloc := linker.New(4)
	for _, page := range pages {
		entries := blocks[page]
		sort.Slice(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })
		size := 8 + 2*len(entries)
		if len(entries)%2 == 1 {
			size += 2
		}
		reloc.AppendBlob(wintypes.U32(page))
		reloc.AppendBlob(wintypes.U32(uint32(size)))
		for _, e := range entries {
			reloc.AppendBlob(wintypes.U16(e.offset | e.kind))
		}
		reloc.AppendPadding(4)
	}
	if err := reloc.Err(); err != nil {
		return err
	}
	d.dirReloc = reloc
	return nil
}
