// Package validate reconciles translation usages discovered in a source
// tree against the locale files on disk, reports per-file states, and in
// fix mode rewrites locale files with deterministic insertion of missing
// keys.
//
// The run is sequential: files are processed in sorted order, one at a
// time, so diagnostic output is stable across runs. A validation run always
// completes; per-file schema errors fail the run but never stop it.
package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/keyling/keyling/catalog"
	"github.com/keyling/keyling/key"
	"github.com/keyling/keyling/lockfile"
	"github.com/keyling/keyling/report"
	"github.com/keyling/keyling/scan"
	"github.com/keyling/keyling/translate"
)

// State is a bitmask of reconciliation findings for one locale file.
type State uint8

const (
	// StateMissing: required keys absent or still pending translation.
	StateMissing State = 1 << iota
	// StateExtra: keys on disk no usage accounts for.
	StateExtra
	// StateInvalidPlural: a plural key holding a non-plural value or a
	// plain key holding a plural record.
	StateInvalidPlural
	// StateInvalidSpecial: a '$' or '~~' key whose value literally equals
	// the key — an auto-filled placeholder nobody translated.
	StateInvalidSpecial
)

// UpToDate reports a clean file.
func (s State) UpToDate() bool { return s == 0 }

// FileResult is the reconciliation outcome for one locale file.
type FileResult struct {
	Path   string
	Locale string
	// DisplayName is the English display name of the locale, when the
	// locale id parses as a BCP 47 tag.
	DisplayName string
	// Default marks the designated default locale.
	Default bool

	State State
	// FormatErr is set when the file fails schema validation; terminal
	// for this file, nothing else is computed.
	FormatErr error
	// LegacyMarker is set when the file carries an unpaired marker key;
	// a distinguished hard error, terminal like FormatErr.
	LegacyMarker bool

	// MissingAbsent keys are entirely absent from the file; fix mode
	// inserts them. Sorted.
	MissingAbsent []string
	// MissingPending keys are present but explicitly null or untranslated;
	// counted as missing, never re-inserted. Sorted.
	MissingPending []string
	// Extra keys exist on disk with no matching usage. Sorted.
	Extra []string
	// InvalidPlural keys have the wrong value shape; fix mode deletes and
	// re-queues them as missing. Sorted.
	InvalidPlural []string
	// InvalidSpecial keys fail the special-key semantic check; never
	// auto-fixed. Sorted.
	InvalidSpecial []string

	// Fixed is set when fix mode rewrote the file.
	Fixed bool

	file *catalog.File
}

// MissingCount is the total number of keys counted missing.
func (fr *FileResult) MissingCount() int {
	return len(fr.MissingAbsent) + len(fr.MissingPending)
}

// Options configures a validation run. SourceDir and LocalesDir are
// required; everything else has working defaults.
type Options struct {
	SourceDir     string
	LocalesDir    string
	DefaultLocale string
	Fix           bool

	// Rules maps lint rule names to severities; unknown names are
	// rejected up front. Missing entries use the rule's default.
	Rules map[string]report.Severity
	// MaxKeyLength is the key-length rule threshold; 0 means the default
	// of 80.
	MaxKeyLength int

	// Translator, when set, supplies values for missing keys in fix mode.
	// Failures degrade to static placeholder generation.
	Translator translate.Translator

	Logger zerolog.Logger
}

// RunResult is the outcome of one validation run.
type RunResult struct {
	Files        []*FileResult
	Diagnostics  []report.Diagnostic
	ScanWarnings []string
	// Failed reports the run's overall pass/fail.
	Failed bool
	// FixedFiles counts locale files rewritten in fix mode.
	FixedFiles int
}

// Run scans the source tree, reconciles every locale file, applies lint
// rules, and (in fix mode) rewrites files. The returned error covers
// environment failures only (unreadable directories, fix lock held);
// translation problems are reported through RunResult.
func Run(ctx context.Context, opts Options) (*RunResult, error) {
	if opts.MaxKeyLength <= 0 {
		opts.MaxKeyLength = DefaultMaxKeyLength
	}

	usages, warnings, err := scan.Tree(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.SourceDir, err)
	}

	paths, err := localeFilePaths(opts.LocalesDir)
	if err != nil {
		return nil, err
	}

	if opts.Fix {
		lock, err := lockfile.Acquire(opts.LocalesDir)
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	res := &RunResult{ScanWarnings: warnings}

	stringKeys := usages.StringKeys()
	pluralKeys := usages.PluralKeys()

	for _, path := range paths {
		fr := reconcileFile(path, stringKeys, pluralKeys, opts)
		res.Files = append(res.Files, fr)

		if fr.FormatErr != nil || fr.LegacyMarker {
			res.Failed = true
			res.Diagnostics = append(res.Diagnostics, terminalDiagnostic(fr))
			continue
		}

		if opts.Fix {
			if err := applyFix(ctx, fr, usages, opts); err != nil {
				return res, err
			}
			if fr.Fixed {
				res.FixedFiles++
			}
		}

		res.Diagnostics = append(res.Diagnostics, stateDiagnostics(fr, opts.Fix)...)
	}

	lintDiags := runRules(usages, res.Files, opts)
	res.Diagnostics = append(res.Diagnostics, lintDiags...)

	for _, d := range res.Diagnostics {
		if d.Severity == report.Error {
			res.Failed = true
		}
	}
	return res, nil
}

func localeFilePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading locales directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// reconcileFile computes the per-file state from three inputs: the global
// usage key sets, the file's own key set, and whether this is the default
// locale.
func reconcileFile(path string, stringKeys, pluralKeys []string, opts Options) *FileResult {
	fr := &FileResult{
		Path:   path,
		Locale: catalog.LocaleID(path),
	}
	fr.Default = opts.DefaultLocale != "" && fr.Locale == opts.DefaultLocale
	if tag, err := language.Parse(fr.Locale); err == nil {
		fr.DisplayName = display.English.Languages().Name(tag)
	}

	f, err := catalog.ParseFile(path)
	if err != nil {
		fr.FormatErr = err
		return fr
	}
	if err := f.Validate(fr.Default); err != nil {
		fr.FormatErr = fmt.Errorf("%s: %w", path, err)
		return fr
	}
	fr.file = f

	if f.HasLegacyMarker() {
		fr.LegacyMarker = true
		return fr
	}

	required := make(map[string]bool, len(stringKeys)+len(pluralKeys))
	plural := make(map[string]bool, len(pluralKeys))
	for _, k := range stringKeys {
		required[k] = true
	}
	for _, k := range pluralKeys {
		required[k] = true
		plural[k] = true
	}

	for _, k := range f.Keys() {
		v, _ := f.Get(k)

		if key.IsSpecial(k) && v.Kind() == catalog.KindString && v.Str() == k {
			fr.InvalidSpecial = append(fr.InvalidSpecial, k)
		}

		if !required[k] {
			fr.Extra = append(fr.Extra, k)
			continue
		}

		if plural[k] {
			if v.Kind() != catalog.KindPlural {
				fr.InvalidPlural = append(fr.InvalidPlural, k)
			}
			continue
		}

		// Plain key on disk. A null value is fine in the default locale,
		// where the source literal itself is the translation; elsewhere it
		// means the key still awaits a translator. A self-equal value is
		// a real (if suspicious) translation and is left to the
		// constant-translation lint rule.
		switch v.Kind() {
		case catalog.KindPlural:
			fr.InvalidPlural = append(fr.InvalidPlural, k)
		case catalog.KindEmpty:
			if !fr.Default {
				fr.MissingPending = append(fr.MissingPending, k)
			}
		}
	}

	for k := range required {
		if !f.Has(k) {
			fr.MissingAbsent = append(fr.MissingAbsent, k)
		}
	}

	sort.Strings(fr.MissingAbsent)
	sort.Strings(fr.MissingPending)
	sort.Strings(fr.Extra)
	sort.Strings(fr.InvalidPlural)
	sort.Strings(fr.InvalidSpecial)

	if fr.MissingCount() > 0 {
		fr.State |= StateMissing
	}
	if len(fr.Extra) > 0 {
		fr.State |= StateExtra
	}
	if len(fr.InvalidPlural) > 0 {
		fr.State |= StateInvalidPlural
	}
	if len(fr.InvalidSpecial) > 0 {
		fr.State |= StateInvalidSpecial
	}
	return fr
}

func terminalDiagnostic(fr *FileResult) report.Diagnostic {
	if fr.FormatErr != nil {
		return report.Diagnostic{
			File:     fr.Path,
			Rule:     "schema",
			Severity: report.Error,
			Message:  fr.FormatErr.Error(),
		}
	}
	return report.Diagnostic{
		File:     fr.Path,
		Rule:     "legacy-marker",
		Severity: report.Error,
		Message:  "file has missing translations recorded under a legacy single-marker layout",
	}
}

// stateDiagnostics renders the per-file reconciliation states. In fix mode
// the recoverable categories were just repaired and downgrade to warnings
// describing what changed; the semantic special-key state stays an error in
// both modes.
func stateDiagnostics(fr *FileResult, fixed bool) []report.Diagnostic {
	var out []report.Diagnostic

	add := func(rule string, sev report.Severity, format string, args ...any) {
		out = append(out, report.Diagnostic{
			File:     fr.Path,
			Rule:     rule,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	reconciled := report.Error
	if fixed {
		reconciled = report.Warning
	}

	if fr.State&StateMissing != 0 {
		if fixed {
			add("missing-keys", reconciled, "%d missing keys (%d inserted, %d awaiting translation)",
				fr.MissingCount(), len(fr.MissingAbsent), len(fr.MissingPending))
		} else {
			add("missing-keys", reconciled, "%d missing keys (first: %q)", fr.MissingCount(), firstMissing(fr))
		}
	}
	if fr.State&StateExtra != 0 {
		verb := "found"
		if fixed {
			verb = "removed"
		}
		add("extra-keys", reconciled, "%d extra keys %s (first: %q)", len(fr.Extra), verb, fr.Extra[0])
	}
	if fr.State&StateInvalidPlural != 0 {
		add("plural-shape", reconciled, "%d keys with invalid value shape (first: %q)", len(fr.InvalidPlural), fr.InvalidPlural[0])
	}
	if fr.State&StateInvalidSpecial != 0 {
		add("special-key", report.Error, "%d special keys equal to their own key (first: %q); translate them by hand", len(fr.InvalidSpecial), fr.InvalidSpecial[0])
	}
	return out
}

func firstMissing(fr *FileResult) string {
	if len(fr.MissingAbsent) > 0 {
		return fr.MissingAbsent[0]
	}
	return fr.MissingPending[0]
}
