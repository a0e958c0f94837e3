package windll

import (
	"fmt"
	"sort"

	"github.com/joshuapare/kbdimage/diag"
	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

// The .rsrc directory is a tree of tables. Each row points either at a data
// entry or, with the high bit of its offset set, at a sub-table. Rows with
// string names come first, sorted lexicographically, then ID rows sorted
// numerically. All offsets are relative to the section start, so they are
// resolved inside the tree's own root blob before it joins a section.

const rtVersion = 16 // RT_VERSION resource type

// resourceEntry is one row of a resource table while building. Exactly one
// of sub or data is set.
type resourceEntry struct {
	name     string // used when non-empty, otherwise id applies
	id       uint32
	sub      []resourceEntry
	data     *linker.Blob
	codepage uint32
}

func (d *WinDll) compileDirResource() error {
	info, err := d.buildVersionInfo()
	if err != nil {
		return err
	}

	tree := []resourceEntry{{
		id: rtVersion,
		sub: []resourceEntry{{
			id: 1,
			sub: []resourceEntry{{
				id:   0x409,
				data: info,
			}},
		}},
	}}

	tables, err := buildResourceTables(tree)
	if err != nil {
		return err
	}

	rsrc := linker.New(16)
	rsrc.AppendBlob(tables)
	rsrc.AppendBlob(info)
	if err := rsrc.Err(); err != nil {
		return err
	}
	d.dirResource = rsrc
	return nil
}

// buildResourceTables assembles the directory tree and resolves its
// internal offsets against its own root.
func buildResourceTables(entries []resourceEntry) (*linker.Blob, error) {
	root := linker.New(4)
	table, strings, err := buildResourceTable(entries)
	if err != nil {
		return nil, err
	}
	root.AppendBlob(table)
	for _, s := range strings {
		root.AppendBlob(s)
	}
	if err := root.Err(); err != nil {
		return nil, err
	}
	err = root.ResolveSymbols(func(s linker.Symbol) bool {
		_, ok := s.(linker.ResourceOffset)
		return ok
	})
	return root, err
}

func buildResourceTable(entries []resourceEntry) (*linker.Blob, []*linker.Blob, error) {
	var names, ids []resourceEntry
	for _, e := range entries {
		if e.name != "" {
			names = append(names, e)
		} else {
			ids = append(ids, e)
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return names[i].name < names[j].name })
	sort.SliceStable(ids, func(i, j int) bool { return ids[i].id < ids[j].id })

	table := linker.New(4)
	table.AppendBlob(wintypes.U32(0)) // Characteristics
	table.AppendBlob(wintypes.U32(0)) // TimeDateStamp
	table.AppendBlob(wintypes.U16(0)) // MajorVersion
	table.AppendBlob(wintypes.U16(0)) // MinorVersion
	table.AppendBlob(wintypes.U16(uint16(len(names))))
	table.AppendBlob(wintypes.U16(uint16(len(ids))))

	var children, strings []*linker.Blob
	appendTarget := func(e resourceEntry) error {
		if e.data != nil {
			entry := linker.New(4)
			entry.AppendSymbol(linker.RVA{To: e.data})
			entry.AppendSymbol(linker.Sizeof{To: e.data, Width: 4})
			entry.AppendBlob(wintypes.U32(e.codepage))
			entry.AppendBlob(wintypes.U32(0)) // reserved
			table.AppendSymbol(linker.ResourceOffset{To: entry})
			children = append(children, entry)
			return nil
		}
		sub, subStrings, err := buildResourceTable(e.sub)
		if err != nil {
			return err
		}
		strings = append(strings, subStrings...)
		table.AppendSymbol(linker.ResourceOffset{To: sub, SubDir: true})
		children = append(children, sub)
		return nil
	}

	for _, e := range names {
		str, err := wintypes.WStr(e.name)
		if err != nil {
			return nil, nil, err
		}
		// Length-prefixed, not NUL-terminated: drop the terminator.
		name := linker.New(2)
		name.AppendBlob(wintypes.U16(uint16(len([]rune(e.name)))))
		name.AppendBlob(linker.NewBytes(str.Bytes()[:str.Len()-2], 2))
		strings = append(strings, name)
		table.AppendSymbol(linker.ResourceOffset{To: name})
		if err := appendTarget(e); err != nil {
			return nil, nil, err
		}
	}
	for _, e := range ids {
		table.AppendBlob(wintypes.U32(e.id))
		if err := appendTarget(e); err != nil {
			return nil, nil, err
		}
	}

	for _, child := range children {
		table.AppendBlob(child)
	}
	if err := table.Err(); err != nil {
		return nil, nil, err
	}
	return table, strings, nil
}

// resourceLeaf is a parsed data entry.
type resourceLeaf struct {
	rva      uint32
	size     uint32
	codepage uint32
}

// resourceDir is a parsed table: named children and ID children.
type resourceDir struct {
	names map[string]*resourceChild
	ids   map[uint32]*resourceChild
}

type resourceChild struct {
	dir  *resourceDir
	leaf *resourceLeaf
}

const maxResourceDepth = 8

func (d *WinDll) readResourceDir(offset uint32, depth int) (*resourceDir, error) {
	if depth > maxResourceDepth {
		return nil, fmt.Errorf("%w: resource tree deeper than %d", ErrMalformedData, maxResourceDepth)
	}
	r := d.reader(d.dirResource, int(offset))
	if err := r.ReadOrWarn(make([]byte, 12), 1); err != nil {
		return nil, err
	}
	nameCount, err := wintypes.ReadU16(r)
	if err != nil {
		return nil, err
	}
	idCount, err := wintypes.ReadU16(r)
	if err != nil {
		return nil, err
	}
	out := &resourceDir{
		names: make(map[string]*resourceChild, nameCount),
		ids:   make(map[uint32]*resourceChild, idCount),
	}

	readChild := func() (*resourceChild, error) {
		raw, err := wintypes.ReadU32(r)
		if err != nil {
			return nil, err
		}
		target := raw & 0x7FFFFFFF
		if raw&0x80000000 != 0 {
			dir, err := d.readResourceDir(target, depth+1)
			if err != nil {
				return nil, err
			}
			return &resourceChild{dir: dir}, nil
		}
		lr := d.reader(d.dirResource, int(target))
		rva, err := wintypes.ReadU32(lr)
		if err != nil {
			return nil, err
		}
		size, err := wintypes.ReadU32(lr)
		if err != nil {
			return nil, err
		}
		cp, err := wintypes.ReadU32(lr)
		if err != nil {
			return nil, err
		}
		if err := lr.ReadOrWarn(make([]byte, 4), 4); err != nil {
			return nil, err
		}
		return &resourceChild{leaf: &resourceLeaf{rva: rva, size: size, codepage: cp}}, nil
	}

	for i := 0; i < int(nameCount); i++ {
		nameOff, err := wintypes.ReadU32(r)
		if err != nil {
			return nil, err
		}
		nr := d.reader(d.dirResource, int(nameOff))
		nameLen, err := wintypes.ReadU16(nr)
		if err != nil {
			return nil, err
		}
		raw, err := nr.ReadBytes(2*int(nameLen), 2)
		if err != nil {
			return nil, err
		}
		name, err := wintypes.DecodeUTF16(raw)
		if err != nil {
			return nil, err
		}
		child, err := readChild()
		if err != nil {
			return nil, err
		}
		out.names[name] = child
	}
	for i := 0; i < int(idCount); i++ {
		id, err := wintypes.ReadU32(r)
		if err != nil {
			return nil, err
		}
		child, err := readChild()
		if err != nil {
			return nil, err
		}
		out.ids[id] = child
	}
	return out, nil
}

func (d *WinDll) decompileDirResource() error {
	if d.dirResource == nil {
		d.Diags.Warnf(diag.CodeNoResources, "image has no resources")
		return nil
	}
	root, err := d.readResourceDir(0, 0)
	if err != nil {
		// Metadata is best-effort: a damaged resource tree does not void
		// the keyboard tables.
		d.Diags.Warnf(diag.CodeNoVersionInfo, "resource tree unreadable: %v", err)
		return nil
	}
	versions := root.ids[rtVersion]
	if versions == nil || versions.dir == nil {
		d.Diags.Warnf(diag.CodeNoVersionInfo, "no RT_VERSION resource")
		return nil
	}
	names := versions.dir.ids[1]
	if names == nil || names.dir == nil {
		d.Diags.Warnf(diag.CodeNoVersionInfo, "no RT_VERSION name 1")
		return nil
	}
	leafChild := names.dir.ids[0x409]
	if leafChild == nil {
		for id, child := range names.dir.ids {
			if child.leaf != nil {
				d.Diags.Warnf(diag.CodeUnexpectedValue, "using version info for language 0x%X", id)
				leafChild = child
				break
			}
		}
	}
	if leafChild == nil || leafChild.leaf == nil {
		d.Diags.Warnf(diag.CodeNoVersionInfo, "no usable version info language")
		return nil
	}
	info, err := d.extractFixed(leafChild.leaf.rva, int(leafChild.leaf.size), 4)
	if err != nil {
		d.Diags.Warnf(diag.CodeNoVersionInfo, "version info out of bounds: %v", err)
		return nil
	}
	d.decompileVersionInfo(info)
	return nil
}
