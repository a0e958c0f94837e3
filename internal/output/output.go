// Package output places finished driver images on disk. A compile fans out
// into one DLL per architecture, each in its own subdirectory, so WriteFile
// creates missing parents and never leaves a torn image at the destination:
// the bytes land in a hidden sibling file, are forced to stable storage,
// and are renamed over the target in one step.
package output

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes data to path atomically, creating parent directories as
// needed.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".partial-*")
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	// Once the rename lands this unlink is a no-op on a name that no
	// longer exists; until then it keeps failed runs from leaving
	// .partial files behind.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	if err := datasync(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("output: flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("output: replace %s: %w", path, err)
	}
	return nil
}
