package windll

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joshuapare/kbdimage/diag"
	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

// VS_VERSIONINFO is a tree of (wLength, wValueLength, wType, szKey, value,
// children) nodes. wLength covers the whole node and is patched in after
// the subtree is complete. wValueLength counts words for text values and
// bytes for binary ones. Everything is padded to 4-byte boundaries.

const (
	vsSignature     = 0xFEEF04BD
	vosNTWindows32  = 0x00040004
	vftDLL          = 2
	vft2DrvKeyboard = 2
	translationKey  = "000004B0" // language 0, codepage 1200 (UTF-16)
)

// versionStrings returns the eight standard StringFileInfo entries.
func (d *WinDll) versionStrings() map[string]string {
	l := d.Layout
	return map[string]string{
		"CompanyName":      l.Author,
		"FileDescription":  l.Name,
		"FileVersion":      l.Version.String(),
		"InternalName":     strings.TrimSuffix(l.DLLName, ".dll"),
		"LegalCopyright":   l.Copyright,
		"OriginalFilename": l.DLLName,
		"ProductName":      l.Name,
		"ProductVersion":   l.Version.String(),
	}
}

// beginVersionNode writes the common node header with a length placeholder
// and returns the blob; the caller patches offset 0 when the node is done.
func beginVersionNode(key string, valueLen, typ uint16) (*linker.Blob, error) {
	node := linker.New(4)
	node.AppendBlob(wintypes.U16(0xFFFF)) // wLength, patched below
	node.AppendBlob(wintypes.U16(valueLen))
	node.AppendBlob(wintypes.U16(typ))
	k, err := wintypes.WStr(key)
	if err != nil {
		return nil, err
	}
	node.AppendBlob(k)
	node.AppendPadding(4)
	return node, nil
}

func finishVersionNode(node *linker.Blob) (*linker.Blob, error) {
	if node.Len() > 0xFFFF {
		return nil, fmt.Errorf("%w: version node of %d bytes", wintypes.ErrOverflow, node.Len())
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(node.Len()))
	node.Patch(0, buf[:])
	return node, nil
}

func (d *WinDll) buildVersionInfo() (*linker.Blob, error) {
	versionPair := func() *linker.Blob {
		return wintypes.MakeLong(d.Layout.Version.Minor, d.Layout.Version.Major)
	}

	fixed := linker.New(4) // VS_FIXEDFILEINFO
	fixed.AppendBlob(wintypes.U32(vsSignature))
	fixed.AppendBlob(wintypes.MakeLong(0, 1)) // dwStrucVersion
	fixed.AppendBlob(versionPair())           // dwFileVersionMS
	fixed.AppendBlob(wintypes.MakeLong(0, 0)) // dwFileVersionLS
	fixed.AppendBlob(versionPair())           // dwProductVersionMS
	fixed.AppendBlob(wintypes.MakeLong(0, 0)) // dwProductVersionLS
	fixed.AppendBlob(wintypes.U32(0x3F))      // dwFileFlagsMask
	fixed.AppendBlob(wintypes.U32(0))         // dwFileFlags
	fixed.AppendBlob(wintypes.U32(vosNTWindows32))
	fixed.AppendBlob(wintypes.U32(vftDLL))
	fixed.AppendBlob(wintypes.U32(vft2DrvKeyboard))
	fixed.AppendBlob(wintypes.U32(0)) // dwFileDateMS
	fixed.AppendBlob(wintypes.U32(0)) // dwFileDateLS

	stringTable, err := beginVersionNode(translationKey, 0, 1)
	if err != nil {
		return nil, err
	}
	entries := d.versionStrings()
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, err := wintypes.WStr(entries[key])
		if err != nil {
			return nil, err
		}
		str, err := beginVersionNode(key, uint16(value.Len()/2), 1) // length in words
		if err != nil {
			return nil, err
		}
		str.AppendBlob(value)
		if _, err := finishVersionNode(str); err != nil {
			return nil, err
		}
		stringTable.AppendPadding(4)
		stringTable.AppendBlob(str)
	}
	if _, err := finishVersionNode(stringTable); err != nil {
		return nil, err
	}

	stringFileInfo, err := beginVersionNode("StringFileInfo", 0, 1)
	if err != nil {
		return nil, err
	}
	stringFileInfo.AppendBlob(stringTable)
	if _, err := finishVersionNode(stringFileInfo); err != nil {
		return nil, err
	}

	translation, err := beginVersionNode("Translation", 4, 0)
	if err != nil {
		return nil, err
	}
	translation.AppendBlob(wintypes.MakeLong(0x0409, 0x04B0))
	if _, err := finishVersionNode(translation); err != nil {
		return nil, err
	}

	varFileInfo, err := beginVersionNode("VarFileInfo", 0, 1)
	if err != nil {
		return nil, err
	}
	varFileInfo.AppendBlob(translation)
	if _, err := finishVersionNode(varFileInfo); err != nil {
		return nil, err
	}

	info, err := beginVersionNode("VS_VERSION_INFO", uint16(fixed.Len()), 0)
	if err != nil {
		return nil, err
	}
	info.AppendBlob(fixed)
	info.AppendPadding(4)
	info.AppendBlob(stringFileInfo)
	info.AppendPadding(4)
	info.AppendBlob(varFileInfo)
	if _, err := finishVersionNode(info); err != nil {
		return nil, err
	}
	// The section layout aligns the data entry itself to 16.
	info.SetAlignment(16)
	if err := info.Err(); err != nil {
		return nil, err
	}
	return info, nil
}

// versionNode is a parsed VS_VERSIONINFO node.
type versionNode struct {
	key      string
	text     string // set for text nodes, without the trailing NUL
	raw      []byte // set for binary nodes
	children []versionNode
}

func (n *versionNode) child(key string) *versionNode {
	for i := range n.children {
		if n.children[i].key == key {
			return &n.children[i]
		}
	}
	return nil
}

func (d *WinDll) readVersionNode(r *linker.Reader, depth int) (versionNode, error) {
	var node versionNode
	if depth > maxResourceDepth {
		return node, fmt.Errorf("%w: version node deeper than %d", ErrMalformedData, maxResourceDepth)
	}
	if err := r.ReadPadding(4); err != nil {
		return node, err
	}
	start := r.Offset()
	length, err := wintypes.ReadU16(r)
	if err != nil {
		return node, err
	}
	if length < 6 {
		return node, fmt.Errorf("%w: version node of %d bytes", ErrMalformedData, length)
	}
	end := start + int(length)
	valueLen, err := wintypes.ReadU16(r)
	if err != nil {
		return node, err
	}
	typ, err := wintypes.ReadU16(r)
	if err != nil {
		return node, err
	}
	if node.key, err = wintypes.ReadWStr(r); err != nil {
		return node, err
	}
	if err := r.ReadPadding(4); err != nil {
		return node, err
	}
	if typ == 1 {
		raw, err := r.ReadBytes(2*int(valueLen), 1)
		if err != nil {
			return node, err
		}
		text, err := wintypes.DecodeUTF16(raw)
		if err != nil {
			return node, err
		}
		node.text = strings.TrimSuffix(text, "\x00")
	} else {
		if node.raw, err = r.ReadBytes(int(valueLen), 1); err != nil {
			return node, err
		}
	}
	for {
		if err := r.ReadPadding(4); err != nil {
			return node, err
		}
		if r.Offset() >= end {
			break
		}
		child, err := d.readVersionNode(r, depth+1)
		if err != nil {
			return node, err
		}
		node.children = append(node.children, child)
	}
	return node, nil
}

// decompileVersionInfo recovers the layout metadata. It never fails: a
// damaged version resource degrades to warnings.
func (d *WinDll) decompileVersionInfo(info *linker.Blob) {
	r := d.reader(info, 0)
	root, err := d.readVersionNode(r, 0)
	if err != nil {
		d.Diags.Warnf(diag.CodeNoVersionInfo, "version info unreadable: %v", err)
		return
	}
	if root.key != "VS_VERSION_INFO" {
		d.Diags.Warnf(diag.CodeNoVersionInfo, "version root node %q", root.key)
		return
	}
	if len(root.raw) >= 12 && binary.LittleEndian.Uint32(root.raw[0:4]) == vsSignature {
		d.Layout.Version.Minor = binary.LittleEndian.Uint16(root.raw[8:10])
		d.Layout.Version.Major = binary.LittleEndian.Uint16(root.raw[10:12])
	} else {
		d.Diags.Warnf(diag.CodeUnexpectedValue, "missing VS_FIXEDFILEINFO")
	}

	sfi := root.child("StringFileInfo")
	if sfi == nil {
		d.Diags.Warnf(diag.CodeNoVersionInfo, "no StringFileInfo")
		return
	}
	for i := range sfi.children {
		table := &sfi.children[i]
		if len(table.key) != 8 {
			d.Diags.Warnf(diag.CodeUnexpectedValue, "string table key %q", table.key)
			continue
		}
		cp, err := strconv.ParseUint(table.key[4:8], 16, 16)
		if err != nil || cp != 0x4B0 {
			// Only the UTF-16 codepage is usable.
			continue
		}
		strs := make(map[string]string, len(table.children))
		for _, s := range table.children {
			strs[s.key] = s.text
		}
		if name, ok := strs["FileDescription"]; ok && name != "" {
			d.Layout.Name = name
		} else {
			d.Layout.Name = strs["ProductName"]
		}
		d.Layout.Author = strs["CompanyName"]
		d.Layout.Copyright = strs["LegalCopyright"]
		if dll, ok := strs["OriginalFilename"]; ok && dll != "" {
			d.Layout.DLLName = dll
		}
		return
	}
	d.Diags.Warnf(diag.CodeNoVersionInfo, "no usable StringFileInfo table")
}
