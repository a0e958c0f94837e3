package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// The JSON form keeps every map key as a string: scancodes in their hex
// form, virtual keys in decimal, shift states as modifier lists, dead keys
// and their combos keyed by the character itself. Dead-key objects keep the
// order of the source document.

type keyCodeJSON struct {
	WinVK      uint16             `json:"win_vk"`
	Name       string             `json:"name,omitempty"`
	Attributes *keyAttributesJSON `json:"attributes,omitempty"`
}

type keyAttributesJSON struct {
	Capslock          bool `json:"capslock,omitempty"`
	CapslockSecondary bool `json:"capslock_secondary,omitempty"`
	CapslockAltGr     bool `json:"capslock_altgr,omitempty"`
	Kanalock          bool `json:"kanalock,omitempty"`
}

type characterJSON struct {
	Char string `json:"char"`
	Dead bool   `json:"dead,omitempty"`
}

type deadKeyJSON struct {
	Name   string          `json:"name,omitempty"`
	Charmap json.RawMessage `json:"charmap,omitempty"`
}

type layoutJSON struct {
	Name      string                              `json:"name,omitempty"`
	Author    string                              `json:"author,omitempty"`
	Copyright string                              `json:"copyright,omitempty"`
	Version   [2]uint16                           `json:"version"`
	DLLName   string                              `json:"dll_name,omitempty"`
	Keymap    map[string]keyCodeJSON              `json:"keymap,omitempty"`
	Charmap   map[string]map[string]characterJSON `json:"charmap,omitempty"`
	DeadKeys  json.RawMessage                     `json:"deadkeys,omitempty"`
}

func charToJSON(c Character) characterJSON {
	return characterJSON{Char: string(c.Char), Dead: c.Dead}
}

func charFromJSON(cj characterJSON) (Character, error) {
	r, size := utf8.DecodeRuneInString(cj.Char)
	if size == 0 || size != len(cj.Char) || r == utf8.RuneError {
		return Character{}, fmt.Errorf("character %q: want exactly one codepoint", cj.Char)
	}
	return Character{Char: r, Dead: cj.Dead}, nil
}

func oneRune(s string) (rune, error) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("key %q: want exactly one codepoint", s)
	}
	return r, nil
}

// MarshalJSON renders the stable JSON form. Unordered map keys are sorted
// by encoding/json; dead keys are emitted in slice order.
func (l *Layout) MarshalJSON() ([]byte, error) {
	lj := layoutJSON{
		Name:      l.Name,
		Author:    l.Author,
		Copyright: l.Copyright,
		Version:   [2]uint16{l.Version.Major, l.Version.Minor},
		DLLName:   l.DLLName,
	}
	if len(l.Keymap) > 0 {
		lj.Keymap = make(map[string]keyCodeJSON, len(l.Keymap))
		for sc, kc := range l.Keymap {
			kj := keyCodeJSON{WinVK: kc.WinVK, Name: kc.Name}
			if !kc.Attributes.IsZero() {
				kj.Attributes = &keyAttributesJSON{
					Capslock:          kc.Attributes.Capslock,
					CapslockSecondary: kc.Attributes.CapslockSecondary,
					CapslockAltGr:     kc.Attributes.CapslockAltGr,
					Kanalock:          kc.Attributes.Kanalock,
				}
			}
			lj.Keymap[sc.String()] = kj
		}
	}
	if len(l.Charmap) > 0 {
		lj.Charmap = make(map[string]map[string]characterJSON, len(l.Charmap))
		for vk, chars := range l.Charmap {
			inner := make(map[string]characterJSON, len(chars))
			for ss, c := range chars {
				inner[ss.String()] = charToJSON(c)
			}
			lj.Charmap[fmt.Sprintf("%d", vk)] = inner
		}
	}
	if len(l.DeadKeys) > 0 {
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, dk := range l.DeadKeys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(string(dk.Accent))
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			var combos bytes.Buffer
			combos.WriteByte('{')
			for j, c := range dk.Combos {
				if j > 0 {
					combos.WriteByte(',')
				}
				ck, err := json.Marshal(string(c.Base))
				if err != nil {
					return nil, err
				}
				cv, err := json.Marshal(charToJSON(c.Composed))
				if err != nil {
					return nil, err
				}
				combos.Write(ck)
				combos.WriteByte(':')
				combos.Write(cv)
			}
			combos.WriteByte('}')
			dv, err := json.Marshal(deadKeyJSON{Name: dk.Name, Charmap: combos.Bytes()})
			if err != nil {
				return nil, err
			}
			buf.Write(dv)
		}
		buf.WriteByte('}')
		lj.DeadKeys = buf.Bytes()
	}
	return json.Marshal(lj)
}

// UnmarshalJSON parses the stable JSON form, preserving dead-key order.
func (l *Layout) UnmarshalJSON(data []byte) error {
	var lj layoutJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return err
	}
	out := New()
	out.Name = lj.Name
	out.Author = lj.Author
	out.Copyright = lj.Copyright
	out.Version = Version{Major: lj.Version[0], Minor: lj.Version[1]}
	out.DLLName = lj.DLLName
	for key, kj := range lj.Keymap {
		sc, err := ParseScanCode(key)
		if err != nil {
			return err
		}
		kc := KeyCode{WinVK: kj.WinVK, Name: kj.Name}
		if kj.Attributes != nil {
			kc.Attributes = KeyAttributes{
				Capslock:          kj.Attributes.Capslock,
				CapslockSecondary: kj.Attributes.CapslockSecondary,
				CapslockAltGr:     kj.Attributes.CapslockAltGr,
				Kanalock:          kj.Attributes.Kanalock,
			}
		}
		out.Keymap[sc] = kc
	}
	for key, inner := range lj.Charmap {
		var vk uint16
		if _, err := fmt.Sscanf(key, "%d", &vk); err != nil {
			return fmt.Errorf("charmap key %q: %w", key, err)
		}
		for ssKey, cj := range inner {
			ss, err := ParseShiftState(ssKey)
			if err != nil {
				return err
			}
			c, err := charFromJSON(cj)
			if err != nil {
				return err
			}
			out.SetChar(vk, ss, c)
		}
	}
	if len(lj.DeadKeys) > 0 {
		deadKeys, err := parseDeadKeys(lj.DeadKeys)
		if err != nil {
			return err
		}
		out.DeadKeys = deadKeys
	}
	*l = *out
	return nil
}

func parseDeadKeys(raw json.RawMessage) ([]DeadKey, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("deadkeys: %w", err)
	}
	var out []DeadKey
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		accent, err := oneRune(tok.(string))
		if err != nil {
			return nil, err
		}
		var dj deadKeyJSON
		if err := dec.Decode(&dj); err != nil {
			return nil, err
		}
		dk := DeadKey{Accent: accent, Name: dj.Name}
		if len(dj.Charmap) > 0 {
			combos, err := parseDeadKeyCombos(dj.Charmap)
			if err != nil {
				return nil, err
			}
			dk.Combos = combos
		}
		out = append(out, dk)
	}
	return out, nil
}

func parseDeadKeyCombos(raw json.RawMessage) ([]DeadKeyCombo, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("dead key charmap: %w", err)
	}
	var out []DeadKeyCombo
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		base, err := oneRune(tok.(string))
		if err != nil {
			return nil, err
		}
		var cj characterJSON
		if err := dec.Decode(&cj); err != nil {
			return nil, err
		}
		c, err := charFromJSON(cj)
		if err != nil {
			return nil, err
		}
		out = append(out, DeadKeyCombo{Base: base, Composed: c})
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("want %q, got %v", want, tok)
	}
	return nil
}

// Marshal renders a layout as JSON.
func Marshal(l *Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// Parse reads a layout from JSON.
func Parse(data []byte) (*Layout, error) {
	l := New()
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("layout: parse: %w", err)
	}
	return l, nil
}
