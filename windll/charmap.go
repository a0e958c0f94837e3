package windll

import (
	"fmt"
	"sort"

	"github.com/joshuapare/kbdimage/diag"
	"github.com/joshuapare/kbdimage/layout"
	"github.com/joshuapare/kbdimage/linker"
	"github.com/joshuapare/kbdimage/wintypes"
)

// Sentinel characters in VK_TO_WCHARS cells.
const (
	wchNone = 0xF000 // no character under this shift state
	wchDead = 0xF001 // dead key; the continuation row holds the accent
	wchLgtr = 0xF002 // ligature; unsupported, dropped with a warning
)

// Attribute bits of a VK_TO_WCHARS row.
const (
	attrCaplok     = 0x01
	attrSGCaps     = 0x02
	attrCaplokAltG = 0x04
	attrKanalok    = 0x08
)

// vkToPlain strips the flag bits off the composite virtual keys that appear
// in keymaps: VK_DIVIDE and VK_CANCEL drop KBDEXT, VK_MULTIPLY drops
// KBDMULTIVK, and the eleven numpad navigation keys drop
// KBDNUMPAD|KBDSPECIAL. vkToComposite is the inverse, applied when
// decompiling.
var vkToPlain = map[uint16]uint16{
	0x16F: 0x6F, 0x103: 0x03, 0x26A: 0x6A,
	0xC24: 0x67, 0xC26: 0x68, 0xC21: 0x69,
	0xC25: 0x64, 0xC0C: 0x65, 0xC27: 0x66,
	0xC23: 0x61, 0xC28: 0x62, 0xC22: 0x63,
	0xC2D: 0x60, 0xC2E: 0x6E,
}

var vkToComposite = func() map[uint16]uint16 {
	m := make(map[uint16]uint16, len(vkToPlain))
	for composite, plain := range vkToPlain {
		m[plain] = composite
	}
	return m
}()

func (d *WinDll) compileCharmap() error {
	vkToBits := linker.New(4)
	for _, pair := range [...][2]uint8{{0x10, 1}, {0x11, 2}, {0x12, 4}, {0x15, 8}} {
		vkToBits.AppendBlob(wintypes.U8(pair[0]))
		vkToBits.AppendBlob(wintypes.U8(pair[1]))
	}
	vkToBits.AppendBlob(wintypes.U16(0))

	// Assign shift-state columns in first-encounter order over the sorted
	// keymap; the CapsLock flag never reaches the modifier mask.
	var (
		maxMask     uint8
		shiftStates []layout.ShiftState
		shiftIndex  = make(map[layout.ShiftState]int)
		vkAttrs     = make(map[uint16]layout.KeyAttributes)
		referenced  = make(map[uint16]bool)
	)
	for _, sc := range layout.SortedScanCodes(d.Layout.Keymap) {
		kc := d.Layout.Keymap[sc]
		vk := kc.WinVK
		if vk == 0 || vk == 0xFF {
			continue
		}
		if plain, ok := vkToPlain[vk]; ok {
			vk = plain
		}
		chars := d.Layout.Charmap[vk]
		if len(chars) == 0 {
			continue
		}
		referenced[vk] = true
		if vk > 0xFF {
			d.Diags.Warnf(diag.CodeUnknownSpecialVK, "unknown special vk 0x%X, skipping", vk)
			continue
		}
		vkAttrs[vk] = kc.Attributes
		for _, ss := range layout.SortedShiftStates(chars) {
			base := ss.WithCapslock(false)
			if _, ok := shiftIndex[base]; !ok {
				shiftIndex[base] = len(shiftStates)
				shiftStates = append(shiftStates, base)
				if bits := base.Bits(); bits > maxMask {
					maxMask = bits
				}
			}
		}
	}
	for _, vk := range layout.SortedVKs(d.Layout.Charmap) {
		if !referenced[vk] {
			d.Diags.Warnf(diag.CodeUnmappedKey, "vk 0x%X has characters but no scancode, skipping", vk)
		}
	}

	if len(shiftStates) >= 15 {
		return fmt.Errorf("%w: %d >= 15", ErrTooManyShiftStates, len(shiftStates))
	}
	if len(shiftStates) > 10 {
		d.Diags.Warnf(diag.CodeManyShiftStates, "%d shift states > 10", len(shiftStates))
	}

	modifiers := linker.New(8)
	modifiers.AppendSymbol(wintypes.LPTR(d.Arch, vkToBits))
	modifiers.AppendBlob(wintypes.U16(uint16(maxMask)))
	for mask := 0; mask <= int(maxMask); mask++ {
		column := 0x0F
		if idx, ok := shiftIndex[layout.ShiftStateFromBits(uint8(mask))]; ok {
			column = idx
		}
		modifiers.AppendBlob(wintypes.U8(uint8(column)))
	}
	d.kbdModifiers = modifiers

	appendWChar := func(b *linker.Blob, r rune) error {
		wc, err := wintypes.WChar(r)
		if err != nil {
			return err
		}
		b.AppendBlob(wc)
		return nil
	}

	vkToWchars := linker.New(2)
	appendRow := func(vk, attrs uint8, lookup func(layout.ShiftState) (rune, bool)) error {
		vkToWchars.AppendBlob(wintypes.U8(vk))
		vkToWchars.AppendBlob(wintypes.U8(attrs))
		for _, ss := range shiftStates {
			r, ok := lookup(ss)
			if !ok {
				r = wchNone
			}
			if err := appendWChar(vkToWchars, r); err != nil {
				return err
			}
		}
		return nil
	}

	vks := make([]uint16, 0, len(vkAttrs))
	for vk := range vkAttrs {
		vks = append(vks, vk)
	}
	// Row groups are ordered by the composite VK, keeping the numpad keys
	// at the positions the stock drivers use.
	sort.Slice(vks, func(i, j int) bool { return untranslateVK(vks[i]) < untranslateVK(vks[j]) })

	for _, vk := range vks {
		chars := d.Layout.Charmap[vk]
		attrs := vkAttrs[vk]

		secondary := make(map[layout.ShiftState]layout.Character)
		dead := make(map[layout.ShiftState]rune)
		for ss, c := range chars {
			if c.Dead && !ss.Capslock {
				dead[ss.WithCapslock(false)] = c.Char
			}
		}
		if attrs.CapslockSecondary {
			if len(dead) > 0 {
				d.Diags.Warnf(diag.CodeSGCapsDeadKeys,
					"vk 0x%X: SGCAPS is incompatible with dead keys, dropping SGCAPS", vk)
				attrs.CapslockSecondary = false
			} else {
				for ss, c := range chars {
					if !ss.Capslock {
						continue
					}
					secondary[ss.WithCapslock(false)] = c
					// Dead keys are unusual but valid on the CapsLock row.
					if c.Dead {
						dead[ss.WithCapslock(false)] = c.Char
					}
				}
			}
		}

		err := appendRow(uint8(vk), attrs.Bits(), func(ss layout.ShiftState) (rune, bool) {
			c, ok := chars[ss]
			if !ok {
				return 0, false
			}
			if c.Dead {
				return wchDead, true
			}
			return c.Char, true
		})
		if err != nil {
			return err
		}

		if attrs.CapslockSecondary {
			err := appendRow(uint8(vk), 0, func(ss layout.ShiftState) (rune, bool) {
				c, ok := secondary[ss]
				if !ok {
					return 0, false
				}
				if c.Dead {
					return wchDead, true
				}
				return c.Char, true
			})
			if err != nil {
				return err
			}
		}

		if len(dead) > 0 {
			err := appendRow(0xFF, 0, func(ss layout.ShiftState) (rune, bool) {
				r, ok := dead[ss]
				return r, ok
			})
			if err != nil {
				return err
			}
		}
	}

	// Terminator row.
	vkToWchars.AppendBlob(wintypes.U8(0))
	vkToWchars.AppendBlob(wintypes.U8(0))
	for range shiftStates {
		if err := appendWChar(vkToWchars, 0); err != nil {
			return err
		}
	}
	d.kbdVkToWchars = vkToWchars

	table := linker.New(8)
	table.AppendSymbol(wintypes.LPTR(d.Arch, vkToWchars))
	table.AppendBlob(wintypes.U8(uint8(len(shiftStates))))
	table.AppendBlob(wintypes.U8(uint8(2*len(shiftStates) + 2)))
	table.AppendSymbol(wintypes.LPTR(d.Arch, nil))
	table.AppendBlob(wintypes.U8(0))
	table.AppendBlob(wintypes.U8(0))
	table.AppendPadding(d.Arch.LongPointer)
	d.kbdVkToWcharTable = table

	deadKey := linker.New(4)
	for _, dk := range d.Layout.DeadKeys {
		for _, combo := range dk.Combos {
			deadKey.AppendBlob(wintypes.MakeLong(uint16(combo.Base), uint16(dk.Accent)))
			wc, err := wintypes.WChar(combo.Composed.Char)
			if err != nil {
				return err
			}
			deadKey.AppendBlob(wc)
			flags := uint16(0)
			if combo.Composed.Dead {
				flags = 1
			}
			deadKey.AppendBlob(wintypes.U16(flags))
		}
	}
	deadKey.AppendBlob(wintypes.U32(0))
	deadKey.AppendBlob(wintypes.U16(0))
	deadKey.AppendBlob(wintypes.U16(0))
	d.kbdDeadKey = deadKey

	keyNamesDead := linker.New(8)
	for _, dk := range d.Layout.DeadKeys {
		str, err := wintypes.WStr(string(dk.Accent) + dk.Name)
		if err != nil {
			return err
		}
		keyNamesDead.AppendSymbol(wintypes.LPTR(d.Arch, str))
	}
	keyNamesDead.AppendSymbol(wintypes.LPTR(d.Arch, nil))
	d.kbdKeyNamesDead = keyNamesDead
	return nil
}

func untranslateVK(vk uint16) uint16 {
	if composite, ok := vkToComposite[vk]; ok {
		return composite
	}
	return vk
}

func (d *WinDll) decompileCharmap() error {
	r := d.reader(d.kbdModifiers, 0)

	vkToBitsPtr, err := wintypes.ReadLPTR(r, d.Arch)
	if err != nil {
		return err
	}
	if err := d.checkVkToBits(uint32(vkToBitsPtr - d.base)); err != nil {
		return err
	}

	maxMask, err := wintypes.ReadU16(r)
	if err != nil {
		return err
	}
	shiftStateOf := make(map[int]layout.ShiftState)
	for mask := 0; mask <= int(maxMask); mask++ {
		column, err := wintypes.ReadU8(r)
		if err != nil {
			return err
		}
		if column != 0x0F {
			shiftStateOf[int(column)] = layout.ShiftStateFromBits(uint8(mask))
		}
	}

	attrsUpdate := make(map[uint16]layout.KeyAttributes)
	tr := d.reader(d.kbdVkToWcharTable, 0)
	for {
		ptr, err := wintypes.ReadLPTR(tr, d.Arch)
		if err != nil {
			return err
		}
		if ptr == 0 {
			break
		}
		cols, err := wintypes.ReadU8(tr)
		if err != nil {
			return err
		}
		width, err := wintypes.ReadU8(tr)
		if err != nil {
			return err
		}
		if width == 0 {
			return fmt.Errorf("%w: zero-width VK_TO_WCHARS row", ErrMalformedData)
		}
		if err := tr.ReadPadding(2 * d.Arch.LongPointer); err != nil {
			return err
		}
		rows, data, err := d.extractArray(uint32(ptr-d.base), int(width), 2)
		if err != nil {
			return err
		}
		if err := d.decompileWCharRows(data, rows, int(cols), shiftStateOf, attrsUpdate); err != nil {
			return err
		}
	}

	for sc, kc := range d.Layout.Keymap {
		vk := kc.WinVK
		if plain, ok := vkToPlain[vk]; ok {
			vk = plain
		}
		kc.Attributes = attrsUpdate[vk]
		d.Layout.Keymap[sc] = kc
	}

	return d.decompileDeadKeys()
}

// checkVkToBits reads the VK_TO_BIT rows and warns when the modifier
// assignment differs from the fixed table every stock driver uses.
func (d *WinDll) checkVkToBits(rva uint32) error {
	_, data, err := d.extractArray(rva, 2, 4)
	if err != nil {
		return err
	}
	expect := map[uint8]uint8{1: 0x10, 2: 0x11, 4: 0x12, 8: 0x15}
	r := d.reader(data, 0)
	for {
		vk, err := wintypes.ReadU8(r)
		if err != nil {
			return err
		}
		bit, err := wintypes.ReadU8(r)
		if err != nil {
			return err
		}
		if vk == 0 && bit == 0 {
			return nil
		}
		if want, ok := expect[bit]; !ok || want != vk {
			d.Diags.Warnf(diag.CodeUnexpectedValue, "modifier bit 0x%X bound to vk 0x%X", bit, vk)
		}
	}
}

func (d *WinDll) decompileWCharRows(data *linker.Blob, rows, cols int,
	shiftStateOf map[int]layout.ShiftState, attrsUpdate map[uint16]layout.KeyAttributes) error {

	r := d.reader(data, 0)
	readCell := func() (rune, error) {
		v, err := wintypes.ReadU16(r)
		if err != nil {
			return 0, err
		}
		return rune(v), nil
	}

	row := 0
	for row < rows {
		vkByte, err := wintypes.ReadU8(r)
		if err != nil {
			return err
		}
		attrBits, err := wintypes.ReadU8(r)
		if err != nil {
			return err
		}
		if vkByte == 0xFF {
			d.Diags.Warnf(diag.CodeUnexpectedValue, "unexpected dead-key continuation row")
			for col := 0; col < cols; col++ {
				if _, err := readCell(); err != nil {
					return err
				}
			}
			row++
			continue
		}
		vk := uint16(vkByte)
		attrs := layout.AttributesFromBits(attrBits)

		dead := make(map[int]bool)
		characters := make(map[layout.ShiftState]layout.Character)
		readRow := func(capslock bool, sgRow bool) error {
			for col := 0; col < cols; col++ {
				ch, err := readCell()
				if err != nil {
					return err
				}
				ss := shiftStateOf[col].WithCapslock(capslock)
				switch ch {
				case wchNone:
				case wchDead:
					if attrs.CapslockSecondary && !sgRow && !capslock {
						d.Diags.Warnf(diag.CodeSGCapsDeadKeys, "ignoring dead key for SGCAPS vk 0x%X", vk)
					} else {
						dead[col] = true
					}
				case wchLgtr:
					d.Diags.Warnf(diag.CodeLigatureSkipped, "ligature at vk 0x%X, skipping", vk)
				default:
					characters[ss] = layout.Character{Char: ch}
				}
			}
			return nil
		}

		if err := readRow(false, false); err != nil {
			return err
		}
		row++

		if attrs.CapslockSecondary && row < rows {
			vk2, err := wintypes.ReadU8(r)
			if err != nil {
				return err
			}
			if uint16(vk2) != vk {
				d.Diags.Warnf(diag.CodeUnexpectedValue, "expected SGCAPS continuation, not 0x%X", vk2)
			}
			attr2, err := wintypes.ReadU8(r)
			if err != nil {
				return err
			}
			if attr2 != 0 {
				d.Diags.Warnf(diag.CodeUnexpectedValue, "expected zero attributes, not 0x%X", attr2)
			}
			if err := readRow(true, true); err != nil {
				return err
			}
			row++
		}

		if len(dead) > 0 && row < rows {
			vk2, err := wintypes.ReadU8(r)
			if err != nil {
				return err
			}
			if vk2 != 0xFF {
				d.Diags.Warnf(diag.CodeUnexpectedValue, "expected dead-key continuation, not 0x%X", vk2)
			}
			attr2, err := wintypes.ReadU8(r)
			if err != nil {
				return err
			}
			if attr2 != 0 {
				d.Diags.Warnf(diag.CodeUnexpectedValue, "expected zero attributes, not 0x%X", attr2)
			}
			for col := 0; col < cols; col++ {
				ch, err := readCell()
				if err != nil {
					return err
				}
				if !dead[col] {
					if ch != wchNone {
						d.Diags.Warnf(diag.CodeUnexpectedValue, "expected WCH_NONE, not 0x%X", ch)
					}
					continue
				}
				if ch == wchNone || ch == wchDead || ch == wchLgtr {
					d.Diags.Warnf(diag.CodeDeadKeyInvalid, "dead key maps to sentinel 0x%X", ch)
					continue
				}
				ss := shiftStateOf[col].WithCapslock(attrs.CapslockSecondary)
				characters[ss] = layout.Character{Char: ch, Dead: true}
			}
			row++
		}

		if _, dup := d.Layout.Charmap[vk]; dup {
			d.Diags.Warnf(diag.CodeDuplicateEntry, "duplicate character table for vk 0x%X, skipping", vk)
			continue
		}
		d.Layout.Charmap[vk] = characters
		attrsUpdate[vk] = attrs
	}
	return nil
}

func (d *WinDll) decompileDeadKeys() error {
	deadNames := make(map[rune]string)
	if d.kbdKeyNamesDead != nil {
		r := d.reader(d.kbdKeyNamesDead, 0)
		for {
			ptr, err := wintypes.ReadLPTR(r, d.Arch)
			if err != nil {
				return err
			}
			if ptr == 0 {
				break
			}
			s, err := d.extractWStr(uint32(ptr - d.base))
			if err != nil {
				return err
			}
			if s == "" {
				d.Diags.Warnf(diag.CodeUnexpectedValue, "empty dead key name")
				continue
			}
			runes := []rune(s)
			deadNames[runes[0]] = string(runes[1:])
		}
	}

	if d.kbdDeadKey == nil {
		return nil
	}
	r := d.reader(d.kbdDeadKey, 0)
	for {
		base, err := wintypes.ReadWChar(r)
		if err != nil {
			return err
		}
		accent, err := wintypes.ReadWChar(r)
		if err != nil {
			return err
		}
		if base == 0 && accent == 0 {
			break
		}
		composed, err := wintypes.ReadWChar(r)
		if err != nil {
			return err
		}
		flags, err := wintypes.ReadU16(r)
		if err != nil {
			return err
		}
		if flags > 1 {
			d.Diags.Warnf(diag.CodeDeadKeyFlags, "unknown dead key flags 0x%X", flags)
		}
		dk, ok := d.Layout.DeadKey(accent)
		if !ok {
			name, named := deadNames[accent]
			if !named {
				name = string(accent)
			}
			d.Layout.DeadKeys = append(d.Layout.DeadKeys, layout.DeadKey{Accent: accent, Name: name})
			dk = &d.Layout.DeadKeys[len(d.Layout.DeadKeys)-1]
		}
		if _, dup := dk.Combo(base); dup {
			d.Diags.Warnf(diag.CodeDuplicateEntry, "duplicate dead key %q + %q", accent, base)
			continue
		}
		dk.Combos = append(dk.Combos, layout.DeadKeyCombo{
			Base:     base,
			Composed: layout.Character{Char: composed, Dead: flags == 1},
		})
	}
	return nil
}
