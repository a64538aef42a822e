// Package key implements translation key derivation.
//
// A translation key is the literal text of a translatable message with its
// interpolation slots encoded as 1-based positional placeholders {1}..{n}.
// Two call sites with textually identical literal segments and the same
// number of interpolations collapse to the same key regardless of the
// runtime values flowing through the slots.
//
// Two special key forms exist:
//
//   - a leading '$' marks an opaque id key: a short identifier standing in
//     for a long string. Opaque keys are exempt from length checks and their
//     literal text is never shown to end users.
//   - a "~~suffix" appended to a key names a variant of a base key (e.g. a
//     formal register). A variant key that is absent from the locale table
//     falls back to its own literal fallback text, never to the base key's
//     translation.
package key

import (
	"strconv"
	"strings"
)

// OpaquePrefix marks an opaque id key.
const OpaquePrefix = "$"

// VariantSeparator separates a base key from its variant name.
const VariantSeparator = "~~"

// Derive builds the canonical key from the ordered literal segments of a
// translatable message. Interpolation slot i (1-based) sits between
// segments[i-1] and segments[i] and is encoded as "{i}".
//
// A message with zero interpolations derives to its sole segment verbatim,
// including any embedded variant suffix or opaque prefix.
//
// Derive is a pure function of the segment list; it never depends on the
// values interpolated at runtime.
func Derive(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	if len(segments) == 1 {
		return segments[0]
	}

	var b strings.Builder
	b.WriteString(segments[0])
	for i := 1; i < len(segments); i++ {
		b.WriteByte('{')
		b.WriteString(strconv.Itoa(i))
		b.WriteByte('}')
		b.WriteString(segments[i])
	}
	return b.String()
}

// Fallback builds the human-readable fallback string for a message: the same
// concatenation as Derive, but with each slot filled by the corresponding
// stringified value instead of a placeholder. A slot with no matching value
// is dropped silently.
func Fallback(segments []string, values []string) string {
	if len(segments) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(segments[0])
	for i := 1; i < len(segments); i++ {
		if i-1 < len(values) {
			b.WriteString(values[i-1])
		}
		b.WriteString(segments[i])
	}
	return b.String()
}

// IsOpaque reports whether k is an opaque id key (leading '$').
func IsOpaque(k string) bool {
	return strings.HasPrefix(k, OpaquePrefix)
}

// HasVariant reports whether k carries a variant suffix.
func HasVariant(k string) bool {
	return strings.Contains(k, VariantSeparator)
}

// SplitVariant splits k into its base key and variant name. The variant is
// empty when k has no variant suffix.
func SplitVariant(k string) (base, variant string) {
	if i := strings.Index(k, VariantSeparator); i >= 0 {
		return k[:i], k[i+len(VariantSeparator):]
	}
	return k, ""
}

// Display returns the text of k as written for end users: the base key with
// any variant suffix stripped. The suffix addresses the translator, not the
// reader, so it never appears in fallback output.
func Display(k string) string {
	base, _ := SplitVariant(k)
	return base
}

// IsSpecial reports whether k is subject to the special-key semantic check:
// opaque ids and variant keys whose locale value literally equals the key
// signal an untranslated placeholder.
func IsSpecial(k string) bool {
	return IsOpaque(k) || HasVariant(k)
}
