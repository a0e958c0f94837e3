package windll

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

// maxArrayEntries bounds terminator scans so a damaged table cannot walk
// the whole image.
const maxArrayEntries = 0x10000

func sortSections(s []section) {
	sort.Slice(s, func(i, j int) bool { return s[i].rva < s[j].rva })
}

// extractFixed copies size bytes at an RVA out of the image, using the
// section table to translate the RVA to a file offset.
func (d *WinDll) extractFixed(rva uint32, size, alignment int) (*linker.Blob, error) {
	if len(d.sections) == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrMalformedData)
	}
	idx := sort.Search(len(d.sections), func(i int) bool { return d.sections[i].rva > rva }) - 1
	if idx < 0 {
		return nil, fmt.Errorf("%w: rva 0x%X before first section", ErrMalformedData, rva)
	}
	sec := d.sections[idx]
	off := int(sec.fileOff) + int(rva-sec.rva)
	if size < 0 || off < 0 || off+size > d.assembly.Len() {
		return nil, fmt.Errorf("%w: rva 0x%X + 0x%X outside image", ErrMalformedData, rva, size)
	}
	return linker.NewBytes(d.assembly.Bytes()[off:off+size], alignment), nil
}

// extractArray reads fixed-size entries at an RVA until an all-zero entry.
// The returned blob includes the terminator; the count does not.
func (d *WinDll) extractArray(rva uint32, entrySize, alignment int) (int, *linker.Blob, error) {
	if entrySize <= 0 {
		return 0, nil, fmt.Errorf("%w: entry size %d", ErrMalformedData, entrySize)
	}
	var data []byte
	count := 0
	for ; count <= maxArrayEntries; count++ {
		entry, err := d.extractFixed(rva+uint32(count*entrySize), entrySize, 1)
		if err != nil {
			return 0, nil, err
		}
		data = append(data, entry.Bytes()...)
		if isZero(entry.Bytes()) {
			return count, linker.NewBytes(data, alignment), nil
		}
	}
	return 0, nil, fmt.Errorf("%w: unterminated array at rva 0x%X", ErrMalformedData, rva)
}

func isZero(p []byte) bool {
	return bytes.Count(p, []byte{0}) == len(p)
}

// extractStr reads a NUL-terminated byte string at an RVA.
func (d *WinDll) extractStr(rva uint32) (string, error) {
	_, blob, err := d.extractArray(rva, 1, 1)
	if err != nil {
		return "", err
	}
	raw := blob.Bytes()
	return string(raw[:len(raw)-1]), nil
}

// extractWStr reads a NUL-terminated UTF-16LE string at an RVA.
func (d *WinDll) extractWStr(rva uint32) (string, error) {
	_, blob, err := d.extractArray(rva, 2, 2)
	if err != nil {
		return "", err
	}
	raw := blob.Bytes()
	return wintypes.DecodeUTF16(raw[:len(raw)-2])
}
