// Package report holds diagnostic records produced by the validation run
// and prints them to a terminal, with ANSI color when the output is a TTY.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
)

// Severity controls whether a rule is suppressed, advisory, or failing.
type Severity int

const (
	// Off suppresses a rule entirely.
	Off Severity = iota
	// Warning reports but never fails the run.
	Warning
	// Error reports and fails the run.
	Error
)

// ParseSeverity parses "off", "warning" or "error".
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "off":
		return Off, nil
	case "warning":
		return Warning, nil
	case "error":
		return Error, nil
	}
	return Off, fmt.Errorf("unknown severity %q (want off, warning, or error)", s)
}

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "off"
}

// Diagnostic is one line of the validation report.
type Diagnostic struct {
	// File is the locale or source file the diagnostic refers to.
	File string
	// Line and Col are 1-based when known, zero otherwise.
	Line int
	Col  int
	// Rule names the check that produced the diagnostic.
	Rule string
	Severity Severity
	Message  string
}

// Sort orders diagnostics for stable output: by file, then position, then
// rule, then message.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

// Printer writes human-readable report lines.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter builds a printer for w. Mode is "always", "never", or "auto";
// auto enables color when w is a terminal.
func NewPrinter(w io.Writer, mode string) *Printer {
	color := false
	switch mode {
	case "always":
		color = true
	case "never":
		color = false
	default:
		if f, ok := w.(*os.File); ok {
			color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return &Printer{w: w, color: color}
}

// Diag prints one diagnostic as "file[:line:col] rule severity: message".
func (p *Printer) Diag(d Diagnostic) {
	pos := d.File
	if d.Line > 0 {
		pos = fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Col)
	}
	label := d.Severity.String()
	if p.color {
		switch d.Severity {
		case Error:
			label = colorRed + label + colorReset
		case Warning:
			label = colorYellow + label + colorReset
		}
	}
	fmt.Fprintf(p.w, "%s %s [%s]: %s\n", pos, label, d.Rule, d.Message)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	p.tagged(colorBlue, "[INFO]", format, args...)
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	p.tagged(colorGreen, "[OK]", format, args...)
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.tagged(colorYellow, "[WARN]", format, args...)
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	p.tagged(colorRed, "[ERROR]", format, args...)
}

func (p *Printer) tagged(color, tag, format string, args ...any) {
	if p.color {
		tag = color + tag + colorReset
	}
	fmt.Fprintf(p.w, tag+" "+format+"\n", args...)
}
