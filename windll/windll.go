// Package windll compiles keyboard layouts into Windows keyboard-layout
// driver DLLs and decompiles such DLLs back into layouts. The emitted image
// is the exact shape the kernel keyboard subsystem loads: three sections
// (.data, .rsrc, .reloc), a single exported function KbdLayerDescriptor
// returning the KBDTABLES address, a VS_VERSIONINFO resource, and a base
// relocation directory covering every absolute pointer.
package windll

import (
	"fmt"

	"github.com/joshuapare/kbdimage/diag"
	"github.com/joshuapare/kbdimage/layout"
	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

// Version is the toolchain version recorded in the generator banner and the
// optional header's linker-version bytes.
const Version = "1.0.0"

const (
	linkerVersionMajor = 1
	linkerVersionMinor = 0

	defaultFileAlign    = 0x200
	defaultSectionAlign = 0x1000
)

// Config carries the ambient inputs of a compilation. The core performs no
// I/O and reads no clocks: callers inject the timestamp.
type Config struct {
	// Timestamp is the 32-bit Unix build time stamped into the COFF header
	// and export directory. Two compilations with equal timestamps produce
	// byte-identical images.
	Timestamp uint32
	// Generator overrides the banner between the DOS stub and PE header.
	Generator string
	// FixChecksum computes the PE checksum of the finished image. Disable
	// it for bit-compatibility with tools that leave the field zero.
	FixChecksum bool
}

// DefaultConfig returns the config the CLI uses, minus the timestamp.
func DefaultConfig() Config {
	return Config{Generator: "Generated with kbdimage " + Version, FixChecksum: true}
}

type section struct {
	rva     uint32
	fileOff uint32
}

// WinDll is one compilation or decompilation in flight. All state lives for
// a single Compile or Decompile call; nothing is shared or reused.
type WinDll struct {
	Layout *layout.Layout
	Arch   *wintypes.Architecture
	Config Config
	Diags  *diag.Collector

	// Timestamp is the COFF timestamp: Config.Timestamp when compiling,
	// the parsed value when decompiling.
	Timestamp uint32

	alignFile    int
	alignSection int

	kbdModifiers      *linker.Blob
	kbdVkToWchars     *linker.Blob
	kbdVkToWcharTable *linker.Blob
	kbdDeadKey        *linker.Blob
	kbdKeyNames      *linker.Blob
	kbdKeyNamesExt   *linker.Blob
	kbdKeyNamesDead  *linker.Blob
	kbdVscToVk       *linker.Blob
	kbdVscToVkE0     *linker.Blob
	kbdVscToVkE1     *linker.Blob
	kbdVscToVkCount  int
	kbdTables        *linker.Blob

	dirExport   *linker.Blob
	dirResource *linker.Blob
	dirReloc    *linker.Blob

	secHeader *linker.Blob
	secData   *linker.Blob
	secRsrc   *linker.Blob
	secReloc  *linker.Blob

	assembly *linker.Blob

	// decompile state
	base     uint64
	sections []section
}

// New prepares a compilation or decompilation. layout and arch may be nil
// when the instance will only decompile. diags may be nil.
func New(l *layout.Layout, arch *wintypes.Architecture, cfg Config, diags *diag.Collector) *WinDll {
	if diags == nil {
		diags = diag.New(nil)
	}
	if arch == nil {
		arch = wintypes.AMD64
	}
	return &WinDll{
		Layout:       l,
		Arch:         arch,
		Config:       cfg,
		Diags:        diags,
		Timestamp:    cfg.Timestamp,
		alignFile:    defaultFileAlign,
		alignSection: defaultSectionAlign,
	}
}

// Compile produces the DLL image bytes.
func (d *WinDll) Compile() ([]byte, error) {
	if d.Layout == nil {
		return nil, fmt.Errorf("%w: no layout", layout.ErrInvalidLayout)
	}
	if err := d.Layout.Validate(); err != nil {
		return nil, err
	}
	steps := []func() error{
		d.compileKeymap,
		d.compileCharmap,
		d.compileTables,
		d.compileDirExport,
		d.compileDirResource,
		d.link,
		d.compileHeader,
		d.assemble,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return d.assembly.Bytes(), nil
}

// Decompile parses a DLL image and reconstructs its layout.
func (d *WinDll) Decompile(data []byte) (*layout.Layout, error) {
	d.Layout = layout.New()
	d.assembly = linker.NewBytes(data, d.alignFile)
	steps := []func() error{
		d.decompileHeader,
		d.decompileDirExport,
		d.decompileTables,
		d.decompileKeymap,
		d.decompileCharmap,
		d.decompileDirResource,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return d.Layout, nil
}

func (d *WinDll) reader(b *linker.Blob, offset int) *linker.Reader {
	r := linker.NewReader(b, offset)
	r.Diags = d.Diags
	return r
}

func (d *WinDll) generator() string {
	g := d.Config.Generator
	if g == "" {
		g = "Generated with kbdimage " + Version
	}
	return g + " for " + d.Arch.Name
}

// Compile builds the layout for one architecture and returns the image
// bytes plus the warnings raised along the way.
func Compile(l *layout.Layout, arch *wintypes.Architecture, cfg Config) ([]byte, []diag.Warning, error) {
	d := New(l, arch, cfg, nil)
	img, err := d.Compile()
	return img, d.Diags.Warnings(), err
}

// Decompile parses a DLL image into a layout plus the warnings raised.
func Decompile(data []byte) (*layout.Layout, []diag.Warning, error) {
	d := New(nil, nil, Config{}, nil)
	l, err := d.Decompile(data)
	return l, d.Diags.Warnings(), err
}

// DecompileArch is Decompile exposing the detected architecture.
func DecompileArch(data []byte) (*layout.Layout, *wintypes.Architecture, []diag.Warning, error) {
	d := New(nil, nil, Config{}, nil)
	l, err := d.Decompile(data)
	return l, d.Arch, d.Diags.Warnings(), err
}
