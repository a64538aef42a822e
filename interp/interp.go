// Package interp substitutes interpolation values into translated strings.
//
// A translated (or fallback) string carries zero or more 1-based positional
// placeholders {1}..{n}. Interpolation splits the string on the placeholder
// pattern and reinserts the corresponding values in order. An index with no
// matching value substitutes nothing; malformed translations degrade, they
// never fail.
//
// Two output modes exist. Plain mode coerces every value to a string and
// concatenates. Structured mode keeps non-primitive values (markup nodes) as
// discrete segments in an ordered sequence, so an embedded rich node survives
// as a real node rather than its text rendering. Both modes produce identical
// text when every value is primitive.
package interp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{(\d+)\}`)

// Segment is one element of a structured interpolation result. Exactly one
// of Text and Node is meaningful: Node is nil for literal text segments and
// carries the original non-primitive value otherwise.
type Segment struct {
	Text string
	Node any
}

// Plain substitutes values into text and returns the concatenated string.
func Plain(text string, values []any) string {
	var b strings.Builder
	walk(text, func(literal string) {
		b.WriteString(literal)
	}, func(idx int) {
		if idx >= 1 && idx <= len(values) {
			b.WriteString(coerce(values[idx-1]))
		}
	})
	return b.String()
}

// Structured substitutes values into text, keeping non-primitive values as
// discrete node segments. Adjacent literal text is merged into one segment.
func Structured(text string, values []any) []Segment {
	var out []Segment

	appendText := func(s string) {
		if s == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Node == nil {
			out[n-1].Text += s
			return
		}
		out = append(out, Segment{Text: s})
	}

	walk(text, appendText, func(idx int) {
		if idx < 1 || idx > len(values) {
			return
		}
		v := values[idx-1]
		if isPrimitive(v) {
			appendText(coerce(v))
			return
		}
		out = append(out, Segment{Node: v})
	})
	return out
}

// Text flattens a structured result to plain text, coercing node segments.
// Useful for diagnostics and tests; rich consumers render nodes themselves.
func Text(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Node != nil {
			b.WriteString(coerce(s.Node))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// walk splits text on the placeholder pattern, invoking literal for each
// literal run and slot for each placeholder index, alternating in order.
func walk(text string, literal func(string), slot func(int)) {
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(text, -1) {
		literal(text[last:m[0]])
		idx, err := strconv.Atoi(text[m[2]:m[3]])
		if err == nil {
			slot(idx)
		}
		last = m[1]
	}
	literal(text[last:])
}

// isPrimitive reports whether v renders as text rather than as a discrete
// node. Strings, numbers, booleans and nil are primitive; everything else is
// treated as markup.
func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func coerce(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
