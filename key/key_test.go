package key

import "testing"

func TestDerive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{name: "no segments", segments: nil, want: ""},
		{name: "single segment verbatim", segments: []string{"Hello World"}, want: "Hello World"},
		{name: "one slot", segments: []string{"Hello ", "!"}, want: "Hello {1}!"},
		{name: "two slots", segments: []string{"", " of ", ""}, want: "{1} of {2}"},
		{name: "opaque verbatim", segments: []string{"$welcome.title"}, want: "$welcome.title"},
		{name: "variant verbatim", segments: []string{"Hello~~formal"}, want: "Hello~~formal"},
		{name: "slot before variant suffix", segments: []string{"Hi ", "~~casual"}, want: "Hi {1}~~casual"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Derive(tc.segments)
			if got != tc.want {
				t.Fatalf("Derive(%q) = %q, want %q", tc.segments, got, tc.want)
			}
			// Pure and idempotent: deriving twice from equal input is identical.
			if again := Derive(tc.segments); again != got {
				t.Fatalf("Derive not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		segments []string
		values   []string
		want     string
	}{
		{name: "fills slots in order", segments: []string{"Hello ", ", you have ", "."}, values: []string{"Ada", "3"}, want: "Hello Ada, you have 3."},
		{name: "missing value dropped", segments: []string{"Hello ", "!"}, values: nil, want: "Hello !"},
		{name: "extra values ignored", segments: []string{"Hi"}, values: []string{"x"}, want: "Hi"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fallback(tc.segments, tc.values); got != tc.want {
				t.Fatalf("Fallback = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSpecialForms(t *testing.T) {
	t.Parallel()

	if !IsOpaque("$short.id") || IsOpaque("plain") {
		t.Fatal("IsOpaque misclassified")
	}

	base, variant := SplitVariant("Save changes~~formal")
	if base != "Save changes" || variant != "formal" {
		t.Fatalf("SplitVariant = %q, %q", base, variant)
	}

	base, variant = SplitVariant("Save changes")
	if base != "Save changes" || variant != "" {
		t.Fatalf("SplitVariant without suffix = %q, %q", base, variant)
	}

	if got := Display("Hello {1}~~casual"); got != "Hello {1}" {
		t.Fatalf("Display = %q", got)
	}
	if got := Display("Hello {1}"); got != "Hello {1}" {
		t.Fatalf("Display without variant = %q", got)
	}

	if !IsSpecial("$id") || !IsSpecial("x~~v") || IsSpecial("x") {
		t.Fatal("IsSpecial misclassified")
	}
}
