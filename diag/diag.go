// Package diag collects structured warnings emitted while compiling or
// decompiling keyboard-layout DLLs. Warnings carry a machine-readable code
// so callers and tests can react to specific conditions without string
// matching. Fatal conditions are regular errors; everything here is
// recoverable by contract.
package diag

import (
	"fmt"
	"log/slog"
)

// Code identifies a warning condition.
type Code int

const (
	// CodeNonZeroPadding indicates alignment padding contained non-zero bytes.
	CodeNonZeroPadding Code = iota + 1
	// CodeUnexpectedValue indicates a field held a value other than the one
	// the format prescribes at that position.
	CodeUnexpectedValue
	// CodeManyShiftStates indicates a layout needs more than 10 shift states.
	CodeManyShiftStates
	// CodeSGCapsDeadKeys indicates SGCAPS was dropped because the base row
	// contains dead keys.
	CodeSGCapsDeadKeys
	// CodeUnknownSpecialVK indicates a composite virtual key with no known
	// translation; the key is skipped.
	CodeUnknownSpecialVK
	// CodeUnmappedKey indicates a charmap entry not reachable from any
	// scancode; the entry is skipped.
	CodeUnmappedKey
	// CodeLigatureSkipped indicates a WCH_LGTR sentinel was found; ligatures
	// are not supported and the cell is dropped.
	CodeLigatureSkipped
	// CodeDuplicateEntry indicates a duplicate table row was skipped or
	// replaced during decompilation.
	CodeDuplicateEntry
	// CodeDeadKeyFlags indicates a DEADKEY row carried flag bits other than
	// the dead bit.
	CodeDeadKeyFlags
	// CodeDeadKeyInvalid indicates a dead key composition produced a
	// sentinel character.
	CodeDeadKeyInvalid
	// CodeBaseMismatch indicates the image uses a load address other than
	// the architecture's preferred base.
	CodeBaseMismatch
	// CodeAlignmentMismatch indicates section or file alignment differs from
	// the values this toolchain emits.
	CodeAlignmentMismatch
	// CodeHeaderMismatch indicates a COFF or optional-header field differs
	// from the expected value (characteristics, subsystem, DLL flags).
	CodeHeaderMismatch
	// CodeNoResources indicates the image has no resource directory.
	CodeNoResources
	// CodeNoVersionInfo indicates the resource tree lacks a usable
	// VS_VERSIONINFO entry.
	CodeNoVersionInfo
)

var codeNames = map[Code]string{
	CodeNonZeroPadding:    "non-zero-padding",
	CodeUnexpectedValue:   "unexpected-value",
	CodeManyShiftStates:   "many-shift-states",
	CodeSGCapsDeadKeys:    "sgcaps-dead-keys",
	CodeUnknownSpecialVK:  "unknown-special-vk",
	CodeUnmappedKey:       "unmapped-key",
	CodeLigatureSkipped:   "ligature-skipped",
	CodeDuplicateEntry:    "duplicate-entry",
	CodeDeadKeyFlags:      "dead-key-flags",
	CodeDeadKeyInvalid:    "dead-key-invalid",
	CodeBaseMismatch:      "base-mismatch",
	CodeAlignmentMismatch: "alignment-mismatch",
	CodeHeaderMismatch:    "header-mismatch",
	CodeNoResources:       "no-resources",
	CodeNoVersionInfo:     "no-version-info",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code-%d", int(c))
}

// Warning is a single recoverable issue. Offset is a byte position in the
// input when known, -1 otherwise.
type Warning struct {
	Code    Code
	Message string
	Offset  int64
}

func (w Warning) String() string {
	if w.Offset >= 0 {
		return fmt.Sprintf("%s @0x%X: %s", w.Code, w.Offset, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Collector accumulates warnings. The zero value is not usable; use New.
// When Logger is set every warning is mirrored to it at Warn level.
type Collector struct {
	Logger   *slog.Logger
	warnings []Warning
}

// New returns an empty collector. logger may be nil.
func New(logger *slog.Logger) *Collector {
	return &Collector{Logger: logger}
}

// Add records a warning. A nil collector silently drops it.
func (c *Collector) Add(w Warning) {
	if c == nil {
		return
	}
	c.warnings = append(c.warnings, w)
	if c.Logger != nil {
		c.Logger.Warn(w.Message, "code", w.Code.String(), "offset", w.Offset)
	}
}

// Warnf records a warning without a byte offset.
func (c *Collector) Warnf(code Code, format string, args ...any) {
	c.Add(Warning{Code: code, Message: fmt.Sprintf(format, args...), Offset: -1})
}

// WarnAt records a warning at a byte offset in the input.
func (c *Collector) WarnAt(code Code, offset int64, format string, args ...any) {
	c.Add(Warning{Code: code, Message: fmt.Sprintf(format, args...), Offset: offset})
}

// Warnings returns the recorded warnings in order.
func (c *Collector) Warnings() []Warning {
	if c == nil {
		return nil
	}
	return c.warnings
}

// Has reports whether any warning with the given code was recorded.
func (c *Collector) Has(code Code) bool {
	if c == nil {
		return false
	}
	for _, w := range c.warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
