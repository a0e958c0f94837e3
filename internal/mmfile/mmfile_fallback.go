//go:build !unix

package mmfile

import "os"

// File is a loaded image. Data stays valid until Close.
type File struct {
	Data []byte
}

// Open reads the whole file; no mapping support on this platform.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{Data: data}, nil
}

// Close releases the buffer.
func (f *File) Close() error {
	f.Data = nil
	return nil
}
