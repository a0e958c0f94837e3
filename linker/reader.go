package linker

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/kbdimage/diag"
)

// Reader is a positioned cursor over a blob's bytes. Alignment arguments
// are relative to the start of the blob: reading with an alignment first
// skips padding up to the next boundary, warning if the padding is not
// zero-filled. A nil diagnostics collector drops the warnings.
type Reader struct {
	blob  *Blob
	off   int
	Diags *diag.Collector
}

// NewReader returns a reader positioned at offset.
func NewReader(b *Blob, offset int) *Reader {
	return &Reader{blob: b, off: offset}
}

// Offset returns the current position.
func (r *Reader) Offset() int { return r.off }

// Seek repositions the reader.
func (r *Reader) Seek(offset int) { r.off = offset }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return r.blob.Len() - r.off }

// ReadPadding skips to the next multiple of alignment, warning when the
// skipped bytes are not zero.
func (r *Reader) ReadPadding(alignment int) error {
	if alignment <= 1 {
		return nil
	}
	n := (alignment - r.off%alignment) % alignment
	if n == 0 {
		return nil
	}
	if r.off+n > r.blob.Len() {
		return fmt.Errorf("%w: %d padding bytes at 0x%X", ErrEndOfInput, n, r.off)
	}
	pad := r.blob.data[r.off : r.off+n]
	for _, c := range pad {
		if c != 0 {
			r.Diags.WarnAt(diag.CodeNonZeroPadding, int64(r.off), "padding bytes % X", pad)
			break
		}
	}
	r.off += n
	return nil
}

// ReadBytes skips padding up to alignment, then reads n bytes.
func (r *Reader) ReadBytes(n, alignment int) ([]byte, error) {
	if err := r.ReadPadding(alignment); err != nil {
		return nil, err
	}
	if r.off+n > r.blob.Len() {
		return nil, fmt.Errorf("%w: %d bytes at 0x%X", ErrEndOfInput, n, r.off)
	}
	out := r.blob.data[r.off : r.off+n]
	r.off += n
	return out, nil
}

// ReadOrWarn reads len(expected) bytes and warns if they differ.
func (r *Reader) ReadOrWarn(expected []byte, alignment int) error {
	off := r.off
	got, err := r.ReadBytes(len(expected), alignment)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, expected) {
		r.Diags.WarnAt(diag.CodeUnexpectedValue, int64(off), "read % X, want % X", got, expected)
	}
	return nil
}

// ReadOrFail reads len(expected) bytes and fails if they differ.
func (r *Reader) ReadOrFail(expected []byte, alignment int) error {
	off := r.off
	got, err := r.ReadBytes(len(expected), alignment)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, expected) {
		return fmt.Errorf("%w: read % X at 0x%X, want % X", ErrUnexpectedValue, got, off, expected)
	}
	return nil
}
