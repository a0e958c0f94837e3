// Package linker implements an in-memory, arena-style assembler of byte
// blobs. A Blob is an owning byte buffer with an alignment constraint and a
// set of unresolved symbols at fixed offsets. Blobs nest to form a forest;
// Link flattens the graph reachable from a set of roots into a single
// container placed at a chosen address and resolves every symbol in place.
//
// Blobs carry a sticky error: the first misuse (append after placement,
// alignment violation, self-append) latches and every later append is a
// no-op. Callers check Err once, typically via Link, instead of after every
// append.
package linker

import (
	"fmt"
	"sort"
)

// findPlacementLimit bounds the parent walk so a corrupted placement chain
// surfaces as a failed lookup instead of spinning.
const findPlacementLimit = 1 << 20

type placement struct {
	parent *Blob // nil for a link root placed at an absolute offset
	offset int
	valid  bool
}

// Blob is a byte buffer with alignment, deferred symbols, and an optional
// placement inside a parent blob.
type Blob struct {
	data      []byte
	alignment int
	symbols   map[int]Symbol
	place     placement
	err       error
}

// New returns an empty blob with the given alignment. An alignment below 1
// latches ErrInvalidAlignment.
func New(alignment int) *Blob {
	b := &Blob{alignment: alignment, symbols: make(map[int]Symbol)}
	if alignment < 1 {
		b.err = fmt.Errorf("%w: %d", ErrInvalidAlignment, alignment)
		b.alignment = 1
	}
	return b
}

// NewBytes returns a blob seeded with a copy of data.
func NewBytes(data []byte, alignment int) *Blob {
	b := New(alignment)
	b.data = append(b.data, data...)
	return b
}

// Err returns the first misuse recorded on this blob, if any.
func (b *Blob) Err() error { return b.err }

func (b *Blob) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Len returns the current length in bytes.
func (b *Blob) Len() int { return len(b.data) }

// Bytes returns the backing store. Mutating it is only safe on a linked
// container, e.g. to patch a checksum after assembly.
func (b *Blob) Bytes() []byte { return b.data }

// Alignment returns the blob's alignment.
func (b *Blob) Alignment() int { return b.alignment }

// SetAlignment replaces the blob's alignment. Used between link phases when
// a section linked at its virtual address is re-placed at a file offset
// with a different alignment.
func (b *Blob) SetAlignment(a int) {
	if a < 1 {
		b.fail(fmt.Errorf("%w: %d", ErrInvalidAlignment, a))
		return
	}
	b.alignment = a
}

// AppendBytes appends raw bytes with no alignment requirement.
func (b *Blob) AppendBytes(p ...byte) {
	if b.err != nil {
		return
	}
	if b.place.valid {
		b.fail(ErrAlreadyPlaced)
		return
	}
	b.data = append(b.data, p...)
}

// AppendPadding grows the blob with zero bytes until its length is a
// multiple of alignment, which must divide the blob's own alignment.
func (b *Blob) AppendPadding(alignment int) {
	if b.err != nil {
		return
	}
	if b.place.valid {
		b.fail(ErrAlreadyPlaced)
		return
	}
	if alignment < 1 || b.alignment%alignment != 0 {
		b.fail(fmt.Errorf("%w: padding %d in blob aligned %d", ErrInvalidAlignment, alignment, b.alignment))
		return
	}
	b.pad(alignment)
}

func (b *Blob) pad(alignment int) {
	n := (alignment - len(b.data)%alignment) % alignment
	b.data = append(b.data, make([]byte, n)...)
}

// AppendSymbol reserves space for a deferred symbol. The slot is padded to
// the symbol's alignment and zero-filled until Link resolves it.
func (b *Blob) AppendSymbol(s Symbol) {
	if b.err != nil {
		return
	}
	if b.place.valid {
		b.fail(ErrAlreadyPlaced)
		return
	}
	if a := s.align(); b.alignment%a != 0 {
		b.fail(fmt.Errorf("%w: symbol aligned %d in blob aligned %d", ErrInvalidAlignment, a, b.alignment))
		return
	}
	b.pad(s.align())
	b.symbols[len(b.data)] = s
	b.data = append(b.data, make([]byte, s.Size())...)
}

// AppendBlob places child at the end of this blob. Neither blob may already
// be placed, the child's alignment must divide this blob's, and a blob
// cannot contain itself. The child's symbols are copied up so the top-most
// parent always holds the symbols of its whole subtree.
func (b *Blob) AppendBlob(child *Blob) {
	if b.err != nil {
		return
	}
	if child == b {
		b.fail(ErrCycleDetected)
		return
	}
	if child.err != nil {
		b.fail(child.err)
		return
	}
	if b.place.valid || child.place.valid {
		b.fail(ErrAlreadyPlaced)
		return
	}
	if b.alignment%child.alignment != 0 {
		b.fail(fmt.Errorf("%w: child aligned %d in blob aligned %d", ErrInvalidAlignment, child.alignment, b.alignment))
		return
	}
	b.pad(child.alignment)
	child.place = placement{parent: b, offset: len(b.data), valid: true}
	b.data = append(b.data, child.data...)
	for off, sym := range child.symbols {
		b.symbols[child.place.offset+off] = sym
	}
}

// Placement returns the immediate parent and offset, if placed. A link root
// reports a nil parent and its base address as offset.
func (b *Blob) Placement() (parent *Blob, offset int, ok bool) {
	return b.place.parent, b.place.offset, b.place.valid
}

// FindPlacement walks parent links to the top of the tree, summing offsets.
// For an unplaced blob it returns (b, 0, false). For a blob under a linked
// root the offset includes the root's base address.
func (b *Blob) FindPlacement() (root *Blob, offset int, ok bool) {
	if !b.place.valid {
		return b, 0, false
	}
	off := 0
	cur := b
	for steps := 0; cur.place.valid; steps++ {
		if steps > findPlacementLimit {
			return nil, 0, false
		}
		off += cur.place.offset
		if cur.place.parent == nil {
			return cur, off, true
		}
		cur = cur.place.parent
	}
	return cur, off, true
}

// Unplace clears the blob's placement and symbol table so it can be placed
// again. Used between link phases: a section is first linked at its virtual
// address (resolving its symbols), then re-placed at its file offset inside
// the final image.
func (b *Blob) Unplace() {
	b.place = placement{}
	b.symbols = make(map[int]Symbol)
}

// Patch overwrites existing bytes. The range must already exist; Patch
// never grows the blob. It is the one mutation allowed after placement,
// used for back-patched length fields and the image checksum.
func (b *Blob) Patch(offset int, p []byte) {
	if offset < 0 || offset+len(p) > len(b.data) {
		b.fail(fmt.Errorf("%w: patch [0x%X,0x%X) in blob of %d bytes",
			ErrEndOfInput, offset, offset+len(p), len(b.data)))
		return
	}
	copy(b.data[offset:], p)
}

// ResolveSymbols resolves every symbol accepted by match using current
// placements, writes the bytes in place, and removes the symbols from the
// table. Resource-tree offsets use this: they are relative to the tree's
// own root and must not survive into section linking.
func (b *Blob) ResolveSymbols(match func(Symbol) bool) error {
	for _, ps := range b.Symbols() {
		if !match(ps.Symbol) {
			continue
		}
		bts, err := ps.Symbol.resolve()
		if err != nil {
			return err
		}
		copy(b.data[ps.Offset:], bts)
		delete(b.symbols, ps.Offset)
	}
	return nil
}

// PlacedSymbol pairs a symbol with its offset inside the blob.
type PlacedSymbol struct {
	Offset int
	Symbol Symbol
}

// Symbols returns the blob's symbols (own and copied-up from children) in
// ascending offset order.
func (b *Blob) Symbols() []PlacedSymbol {
	out := make([]PlacedSymbol, 0, len(b.symbols))
	for off, sym := range b.symbols {
		out = append(out, PlacedSymbol{Offset: off, Symbol: sym})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}
