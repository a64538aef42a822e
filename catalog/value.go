// Package catalog implements the locale file data model: translation values,
// plural records and plural-form selection, and an order-preserving reader
// and writer for the flat JSON locale file format.
//
// A locale file is a UTF-8 JSON object mapping translation keys to values.
// A value is one of:
//
//	"text"                          a plain translated string
//	null                            explicitly pending translation
//	{ "zero": ..., "+2": ... }      a plural record
//
// Beyond translation keys, a file may carry at most one reserved
// empty-string key used as a stable trailing anchor, and at most one pair of
// marker keys bracketing a contiguous block of newly-discovered keys awaiting
// human review.
package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the Translation Value sum type.
type Kind int

const (
	// KindString is a plain translated string.
	KindString Kind = iota
	// KindEmpty is an explicit null: the key is known, translation pending.
	KindEmpty
	// KindPlural is a plural record.
	KindPlural
)

// Value is a translation value: exactly one of the three kinds. The zero
// Value is KindString with empty text.
type Value struct {
	kind   Kind
	str    string
	plural *Plural
}

// String constructs a plain-string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Empty constructs the explicit-null value.
func Empty() Value { return Value{kind: KindEmpty} }

// PluralValue constructs a plural-record value.
func PluralValue(p *Plural) Value { return Value{kind: KindPlural, plural: p} }

// Kind returns the value's discriminator.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload; meaningful only for KindString.
func (v Value) Str() string { return v.str }

// Plural returns the plural payload; nil unless KindPlural.
func (v Value) Plural() *Plural { return v.plural }

// Plural is a plural-form record. Field pointers distinguish "absent" from
// "present but empty". Other holds the JSON "+2" form: the universal
// fallback, required in every locale file except the designated default
// locale, where it may be null pending translation.
type Plural struct {
	Zero      *string
	One       *string
	Many      *string
	ManyLimit *int
	Other     *string
}

// Select picks the applicable plural form for count. First match wins:
//
//  1. count == 0 and zero is a non-empty string
//  2. count == 1 and one is a non-empty string
//  3. manyLimit and many both set and count > manyLimit
//  4. "+2" non-empty, with every literal '#' replaced by the decimal count
//
// Exact small-count forms always beat many/manyLimit, which in turn beats
// the generic "+2" form. When no form applies, ok is false and the caller
// falls back to the key with '#' substituted.
func (p *Plural) Select(count int) (form string, ok bool) {
	if count == 0 && p.Zero != nil && *p.Zero != "" {
		return *p.Zero, true
	}
	if count == 1 && p.One != nil && *p.One != "" {
		return *p.One, true
	}
	if p.ManyLimit != nil && p.Many != nil && *p.Many != "" && count > *p.ManyLimit {
		return *p.Many, true
	}
	if p.Other != nil && *p.Other != "" {
		return SubstituteCount(*p.Other, count), true
	}
	return "", false
}

// OnlyOther reports whether the record carries nothing but a "+2" form.
// Such a record could have been a plain string with '#'.
func (p *Plural) OnlyOther() bool {
	return p.Zero == nil && p.One == nil && p.Many == nil && p.ManyLimit == nil
}

// SubstituteCount replaces every literal '#' in s with the decimal count.
func SubstituteCount(s string, count int) string {
	return strings.ReplaceAll(s, "#", strconv.Itoa(count))
}

// Plural record field names as they appear in JSON.
const (
	fieldZero      = "zero"
	fieldOne       = "one"
	fieldMany      = "many"
	fieldManyLimit = "manyLimit"
	fieldOther     = "+2"
)

// DecodeValue parses one raw JSON value into a Value. Anything other than a
// string, null, or a well-formed plural object is a schema error.
func DecodeValue(raw json.RawMessage) (Value, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "null":
		return Empty(), nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("invalid string value: %w", err)
		}
		return String(s), nil
	case strings.HasPrefix(trimmed, "{"):
		p, err := decodePlural(raw)
		if err != nil {
			return Value{}, err
		}
		return PluralValue(p), nil
	}
	return Value{}, fmt.Errorf("value must be a string, null, or plural object, got %s", truncate(trimmed, 40))
}

func decodePlural(raw json.RawMessage) (*Plural, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("invalid plural object: %w", err)
	}

	p := &Plural{}
	for name, fraw := range fields {
		switch name {
		case fieldZero, fieldOne, fieldMany, fieldOther:
			// "+2" alone may be null (default-locale pending form).
			if name == fieldOther && strings.TrimSpace(string(fraw)) == "null" {
				continue
			}
			var s string
			if err := json.Unmarshal(fraw, &s); err != nil {
				return nil, fmt.Errorf("plural form %q must be a string: %w", name, err)
			}
			switch name {
			case fieldZero:
				p.Zero = &s
			case fieldOne:
				p.One = &s
			case fieldMany:
				p.Many = &s
			case fieldOther:
				p.Other = &s
			}
		case fieldManyLimit:
			var n int
			if err := json.Unmarshal(fraw, &n); err != nil {
				return nil, fmt.Errorf("manyLimit must be an integer: %w", err)
			}
			p.ManyLimit = &n
		default:
			return nil, fmt.Errorf("unknown plural field %q", name)
		}
	}

	if _, declared := fields[fieldOther]; !declared {
		return nil, fmt.Errorf("plural object missing required %q form", fieldOther)
	}
	return p, nil
}

// encodeValue writes v as JSON at the given object indentation depth.
// Plural fields keep a fixed order so rewrites are byte-deterministic.
func encodeValue(b *strings.Builder, v Value, indent string) {
	switch v.kind {
	case KindEmpty:
		b.WriteString("null")
	case KindString:
		b.WriteString(jsonString(v.str))
	case KindPlural:
		p := v.plural
		b.WriteString("{\n")
		inner := indent + "  "
		first := true
		field := func(name, val string) {
			if !first {
				b.WriteString(",\n")
			}
			first = false
			b.WriteString(inner)
			b.WriteString(jsonString(name))
			b.WriteString(": ")
			b.WriteString(val)
		}
		if p.Zero != nil {
			field(fieldZero, jsonString(*p.Zero))
		}
		if p.One != nil {
			field(fieldOne, jsonString(*p.One))
		}
		if p.Other != nil {
			field(fieldOther, jsonString(*p.Other))
		} else {
			field(fieldOther, "null")
		}
		if p.Many != nil {
			field(fieldMany, jsonString(*p.Many))
		}
		if p.ManyLimit != nil {
			field(fieldManyLimit, strconv.Itoa(*p.ManyLimit))
		}
		b.WriteString("\n")
		b.WriteString(indent)
		b.WriteString("}")
	}
}

func jsonString(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		// Strings cannot fail to marshal; keep the writer total anyway.
		return `""`
	}
	return string(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
