//go:build !linux && !freebsd && !darwin

package output

import "os"

func datasync(f *os.File) error {
	return f.Sync()
}
