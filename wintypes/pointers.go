package wintypes

import "github.com/joshuapare/kbdimage/linker"

// PTR returns a plain-pointer symbol: sizeof(PTR) bytes wide, absolute
// against the architecture's image base. A nil target emits zeros.
func PTR(a *Architecture, target *linker.Blob) linker.Pointer {
	return linker.Pointer{To: target, Width: a.Pointer, Base: a.Base}
}

// LPTR returns a long-pointer symbol. On WoW64 this is 8 bytes wide while
// plain pointers stay at 4; on the other targets the widths coincide.
func LPTR(a *Architecture, target *linker.Blob) linker.Pointer {
	return linker.Pointer{To: target, Width: a.LongPointer, Base: a.Base}
}
