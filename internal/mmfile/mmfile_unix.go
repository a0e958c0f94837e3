//go:build unix

// Package mmfile loads driver images for inspection. On unix platforms the
// file is mapped read-only, so the decompiler walks the bytes without
// copying them; elsewhere it falls back to a plain read.
package mmfile

import (
	"fmt"
	"os"
	"syscall"
)

// File is a loaded image. Data stays valid until Close.
type File struct {
	Data   []byte
	mapped bool
}

// Open maps the file at path read-only.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() // the mapping outlives the descriptor

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &File{}, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("mmfile: %s: too large to map (%d bytes)", path, size)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmfile: map %s: %w", path, err)
	}
	return &File{Data: data, mapped: true}, nil
}

// Close releases the mapping. Safe to call more than once.
func (f *File) Close() error {
	if !f.mapped || f.Data == nil {
		return nil
	}
	data := f.Data
	f.Data = nil
	f.mapped = false
	return syscall.Munmap(data)
}
