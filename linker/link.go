package linker

import "fmt"

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}

// Link flattens the blob graph reachable from roots into a new container
// placed at base. Blobs are laid out in FIFO order of first reach, starting
// from the roots in argument order and following symbol targets
// breadth-first. A blob that is already placed inside another is re-rooted:
// its top-most parent is enqueued instead. The container's alignment is the
// least common multiple of the enqueued alignments; padding between blobs
// is zero-filled. After layout every symbol is resolved in place.
func Link(base int, roots ...*Blob) (*Blob, error) {
	out := New(1)
	// The container counts as seen: a symbol whose target is already laid
	// out re-roots to out and must not enqueue it.
	seen := map[*Blob]bool{out: true}
	var queue []*Blob

	enqueue := func(b *Blob) {
		if b == nil {
			return
		}
		for {
			parent, _, ok := b.Placement()
			if !ok || parent == nil {
				break
			}
			b = parent
		}
		if !seen[b] {
			seen[b] = true
			queue = append(queue, b)
		}
	}

	for _, r := range roots {
		enqueue(r)
	}
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		out.alignment = lcm(out.alignment, obj.Alignment())
		out.AppendBlob(obj)
		for _, ps := range obj.Symbols() {
			enqueue(ps.Symbol.Target())
		}
	}
	if err := out.Err(); err != nil {
		return nil, err
	}

	// Placement first: symbol values include the container's base address.
	out.place = placement{parent: nil, offset: base, valid: true}

	for _, ps := range out.Symbols() {
		bts, err := ps.Symbol.resolve()
		if err != nil {
			return nil, fmt.Errorf("resolve symbol at 0x%X: %w", ps.Offset, err)
		}
		if len(bts) != ps.Symbol.Size() {
			return nil, fmt.Errorf("%w: symbol at 0x%X resolved to %d bytes, want %d",
				ErrUnresolvable, ps.Offset, len(bts), ps.Symbol.Size())
		}
		copy(out.data[ps.Offset:], bts)
	}
	return out, nil
}
