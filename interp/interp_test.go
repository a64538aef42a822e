package interp

import (
	"reflect"
	"testing"
)

func TestPlain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		values []any
		want   string
	}{
		{name: "no placeholders", text: "Hello World", values: []any{"x"}, want: "Hello World"},
		{name: "each slot once, literals verbatim", text: "{1} and {2}!", values: []any{"a", "b"}, want: "a and b!"},
		{name: "numbers stringified", text: "{1} files", values: []any{3}, want: "3 files"},
		{name: "out of range dropped silently", text: "Hi {1}{3}", values: []any{"x"}, want: "Hi x"},
		{name: "zero index dropped", text: "{0}ok", values: []any{"x"}, want: "ok"},
		{name: "repeated slot", text: "{1}{1}", values: []any{"ab"}, want: "abab"},
		{name: "nil value renders empty", text: "a{1}b", values: []any{nil}, want: "ab"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Plain(tc.text, tc.values); got != tc.want {
				t.Fatalf("Plain(%q, %v) = %q, want %q", tc.text, tc.values, got, tc.want)
			}
		})
	}
}

type fakeNode struct{ label string }

func (n fakeNode) String() string { return "<" + n.label + ">" }

func TestStructured(t *testing.T) {
	t.Parallel()

	node := fakeNode{label: "b"}
	got := Structured("Click {1} to {2}.", []any{node, "continue"})
	want := []Segment{
		{Text: "Click "},
		{Node: node},
		{Text: " to continue."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Structured = %#v, want %#v", got, want)
	}
}

func TestStructuredMatchesPlainOnPrimitives(t *testing.T) {
	t.Parallel()

	texts := []string{"Hello {1}", "{1}{2}", "{2} then {1}", "no slots", "{1} oops {9}"}
	values := []any{"a", 7}
	for _, text := range texts {
		plain := Plain(text, values)
		structured := Structured(text, values)
		if Text(structured) != plain {
			t.Fatalf("mode mismatch for %q: plain %q, structured %q", text, plain, Text(structured))
		}
		for _, seg := range structured {
			if seg.Node != nil {
				t.Fatalf("primitive value produced node segment: %#v", seg)
			}
		}
	}
}

func TestTextFlattensNodes(t *testing.T) {
	t.Parallel()

	segs := Structured("a{1}c", []any{fakeNode{label: "x"}})
	if got := Text(segs); got != "a<x>c" {
		t.Fatalf("Text = %q", got)
	}
}
