package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		want Severity
	}{
		{"off", Off},
		{"warning", Warning},
		{"error", Error},
	} {
		got, err := ParseSeverity(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("ParseSeverity(%q) = %v, %v", tc.in, got, err)
		}
		if got.String() != tc.in {
			t.Fatalf("String() = %q, want %q", got.String(), tc.in)
		}
	}

	if _, err := ParseSeverity("loud"); err == nil {
		t.Fatal("unknown severity accepted")
	}
}

func TestSortOrdersByFileThenPosition(t *testing.T) {
	t.Parallel()

	diags := []Diagnostic{
		{File: "b.json", Rule: "x"},
		{File: "a.go", Line: 9, Col: 1, Rule: "x"},
		{File: "a.go", Line: 2, Col: 5, Rule: "x"},
		{File: "a.go", Line: 2, Col: 1, Rule: "x"},
	}
	Sort(diags)

	want := []Diagnostic{
		{File: "a.go", Line: 2, Col: 1, Rule: "x"},
		{File: "a.go", Line: 2, Col: 5, Rule: "x"},
		{File: "a.go", Line: 9, Col: 1, Rule: "x"},
		{File: "b.json", Rule: "x"},
	}
	for i := range want {
		if diags[i] != want[i] {
			t.Fatalf("order[%d] = %+v, want %+v", i, diags[i], want[i])
		}
	}
}

func TestPrinterDiag(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewPrinter(&buf, "never")
	p.Diag(Diagnostic{File: "app/ui.go", Line: 12, Col: 3, Rule: "key-length", Severity: Warning, Message: "too long"})
	p.Diag(Diagnostic{File: "locales/es.json", Rule: "missing-keys", Severity: Error, Message: "2 missing keys"})

	out := buf.String()
	if !strings.Contains(out, "app/ui.go:12:3 warning [key-length]: too long") {
		t.Fatalf("positioned diagnostic = %q", out)
	}
	if !strings.Contains(out, "locales/es.json error [missing-keys]: 2 missing keys") {
		t.Fatalf("file-level diagnostic = %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("color codes with mode never: %q", out)
	}
}

func TestPrinterColorAlways(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewPrinter(&buf, "always")
	p.Error("boom")
	if !strings.Contains(buf.String(), colorRed) {
		t.Fatalf("no color with mode always: %q", buf.String())
	}
}
