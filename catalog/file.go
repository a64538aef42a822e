package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Reserved keys. The markers bracket a contiguous block of newly-discovered,
// not-yet-translated keys; the anchor is a stable trailing key that keeps
// diffs quiet when real keys are appended near the end of the file.
const (
	MarkerStart = "👇 missing start 👇"
	MarkerEnd   = "👆 missing end 👆"
	AnchorKey   = ""
)

// IsReserved reports whether k is one of the reserved bookkeeping keys.
func IsReserved(k string) bool {
	return k == MarkerStart || k == MarkerEnd || k == AnchorKey
}

// File is a parsed locale file. Key order is preserved exactly as read so
// the fix engine can rewrite files byte-deterministically.
type File struct {
	Path   string
	Locale string

	order  []string
	values map[string]Value
}

// NewFile returns an empty locale file bound to a path. The locale id is
// the file's base name without extension.
func NewFile(path string) *File {
	return &File{
		Path:   path,
		Locale: LocaleID(path),
		values: make(map[string]Value),
	}
}

// LocaleID derives the locale id from a file path: "locales/pt-BR.json"
// names the locale "pt-BR".
func LocaleID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseFile reads and parses a locale file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	f.Locale = LocaleID(path)
	return f, nil
}

// Parse parses locale file JSON, preserving key order via the token stream.
// The top level must be a flat object; any nested value other than a plural
// record, and any duplicate key, is a schema error.
func Parse(data []byte) (*File, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	f := &File{values: make(map[string]Value, len(raw))}

	order, err := objectKeyOrder(data)
	if err != nil {
		return nil, err
	}
	f.order = order

	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if seen[k] {
			return nil, fmt.Errorf("duplicate key %q", k)
		}
		seen[k] = true

		v, err := DecodeValue(raw[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		f.values[k] = v
	}

	return f, nil
}

// objectKeyOrder walks the top-level object's token stream and returns its
// keys in file order, skipping each key's value subtree.
func objectKeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))

	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("top level must be an object, got %v", t)
	}

	var order []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		k, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}
		order = append(order, k)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
	}
	return order, nil
}

// Keys returns the translation keys in file order, excluding reserved keys.
func (f *File) Keys() []string {
	out := make([]string, 0, len(f.order))
	for _, k := range f.order {
		if IsReserved(k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Has reports whether k is present, reserved keys included.
func (f *File) Has(k string) bool {
	_, ok := f.values[k]
	return ok
}

// Get returns the value for k.
func (f *File) Get(k string) (Value, bool) {
	v, ok := f.values[k]
	return v, ok
}

// Len returns the number of non-reserved keys.
func (f *File) Len() int { return len(f.Keys()) }

// Set inserts or replaces k. New keys append before any trailing anchor.
func (f *File) Set(k string, v Value) {
	if _, ok := f.values[k]; !ok {
		f.insertOrder(len(f.orderWithoutAnchor()), k)
	}
	f.values[k] = v
}

// Delete removes k, preserving the order of the remaining keys.
func (f *File) Delete(k string) {
	if _, ok := f.values[k]; !ok {
		return
	}
	delete(f.values, k)
	for i, existing := range f.order {
		if existing == k {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// MarkerState reports which marker keys are present.
func (f *File) MarkerState() (start, end bool) {
	return f.Has(MarkerStart), f.Has(MarkerEnd)
}

// HasLegacyMarker reports whether the file carries an unpaired marker key.
// Such a file recorded missing translations under an older layout and is a
// distinguished hard error rather than a clean state.
func (f *File) HasLegacyMarker() bool {
	start, end := f.MarkerState()
	return start != end
}

// InsertBlock splices keys (with their values) into the key order at
// position pos among the non-reserved keys, bracketed by the marker pair
// when withMarkers is set. If a marker block already exists, the new keys
// join the end of that block instead, keeping the one-pair invariant.
func (f *File) InsertBlock(pos int, keys []string, values map[string]Value, withMarkers bool) {
	if len(keys) == 0 {
		return
	}

	for _, k := range keys {
		f.values[k] = values[k]
	}

	if start, end := f.MarkerState(); start && end {
		at := f.indexOf(MarkerEnd)
		f.order = spliceOrder(f.order, at, keys)
		return
	}

	block := keys
	if withMarkers {
		block = make([]string, 0, len(keys)+2)
		block = append(block, MarkerStart)
		block = append(block, keys...)
		block = append(block, MarkerEnd)
		f.values[MarkerStart] = String("")
		f.values[MarkerEnd] = String("")
	}

	// Map pos (an index among non-reserved keys) to an index in the full
	// order, so markers and the anchor never split the block.
	at := len(f.orderWithoutAnchor())
	count := 0
	for i, k := range f.order {
		if IsReserved(k) {
			continue
		}
		if count == pos {
			at = i
			break
		}
		count++
	}
	f.order = spliceOrder(f.order, at, block)
}

// EnsureAnchor places the reserved empty-string key at the very end.
func (f *File) EnsureAnchor() {
	f.Delete(AnchorKey)
	f.order = append(f.order, AnchorKey)
	f.values[AnchorKey] = String("")
}

// Validate enforces the plural schema: every plural record must carry a
// non-null "+2" form, except in the designated default locale where "+2"
// may be null pending translation.
func (f *File) Validate(isDefault bool) error {
	for _, k := range f.order {
		v := f.values[k]
		if v.Kind() != KindPlural {
			continue
		}
		if v.Plural().Other == nil && !isDefault {
			return fmt.Errorf("key %q: plural %q form may be null only in the default locale", k, fieldOther)
		}
	}
	return nil
}

// Marshal serializes the file with 2-space indentation, preserving key
// order. The output ends with a trailing newline.
func (f *File) Marshal() []byte {
	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range f.order {
		b.WriteString("  ")
		b.WriteString(jsonString(k))
		b.WriteString(": ")
		encodeValue(&b, f.values[k], "  ")
		if i < len(f.order)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

// WriteFile writes the serialized file to its path.
func (f *File) WriteFile() error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(f.Path, f.Marshal(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", f.Path, err)
	}
	return nil
}

func (f *File) indexOf(k string) int {
	for i, existing := range f.order {
		if existing == k {
			return i
		}
	}
	return len(f.order)
}

func (f *File) orderWithoutAnchor() []string {
	if n := len(f.order); n > 0 && f.order[n-1] == AnchorKey {
		return f.order[:n-1]
	}
	return f.order
}

func (f *File) insertOrder(at int, k string) {
	f.order = spliceOrder(f.order, at, []string{k})
}

func spliceOrder(order []string, at int, block []string) []string {
	if at < 0 {
		at = 0
	}
	if at > len(order) {
		at = len(order)
	}
	out := make([]string, 0, len(order)+len(block))
	out = append(out, order[:at]...)
	out = append(out, block...)
	out = append(out, order[at:]...)
	return out
}
