package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/keyling/keyling/catalog"
	"github.com/keyling/keyling/key"
	"github.com/keyling/keyling/report"
	"github.com/keyling/keyling/scan"
)

// DefaultMaxKeyLength is the key-length rule threshold when none is
// configured.
const DefaultMaxKeyLength = 80

// Lint rule names, as accepted in configuration and --rule flags.
const (
	RuleConstantTranslation   = "constant-translation"
	RuleUnnecessaryPlural     = "unnecessary-plural"
	RuleMarkupNoInterpolation = "markup-no-interpolation"
	RuleMarkupNoNodes         = "markup-no-nodes"
	RuleRedundantAffix        = "redundant-affix"
	RuleKeyLength             = "key-length"
)

// DefaultRules returns the built-in severity for every lint rule.
// Constant translations are almost always a forgotten copy-paste, so that
// one fails by default; the rest advise.
func DefaultRules() map[string]report.Severity {
	return map[string]report.Severity{
		RuleConstantTranslation:   report.Error,
		RuleUnnecessaryPlural:     report.Warning,
		RuleMarkupNoInterpolation: report.Warning,
		RuleMarkupNoNodes:         report.Warning,
		RuleRedundantAffix:        report.Warning,
		RuleKeyLength:             report.Warning,
	}
}

// CheckRuleNames rejects configured rule names that no rule answers to.
func CheckRuleNames(rules map[string]report.Severity) error {
	known := DefaultRules()
	for name := range rules {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown rule %q", name)
		}
	}
	return nil
}

func ruleSeverity(opts Options, name string) report.Severity {
	if sev, ok := opts.Rules[name]; ok {
		return sev
	}
	return DefaultRules()[name]
}

var placeholderPattern = regexp.MustCompile(`\{\d+\}`)

// runRules applies the lint rules over the aggregate of all parsed locale
// files and the usage table. Rules set to Off produce nothing.
func runRules(usages *scan.Result, files []*FileResult, opts Options) []report.Diagnostic {
	var diags []report.Diagnostic
	emit := func(rule string, at *scan.Usage, format string, args ...any) {
		sev := ruleSeverity(opts, rule)
		if sev == report.Off {
			return
		}
		d := report.Diagnostic{
			Rule:     rule,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		}
		if at != nil && len(at.Locations) > 0 {
			loc := at.Locations[0]
			d.File, d.Line, d.Col = loc.File, loc.Line, loc.Col
		}
		diags = append(diags, d)
	}

	// Only files that parsed and reconciled contribute values.
	var parsed []*FileResult
	for _, fr := range files {
		if fr.file != nil && !fr.LegacyMarker {
			parsed = append(parsed, fr)
		}
	}

	keys := make([]string, 0, len(usages.Usages))
	for k := range usages.Usages {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		u := usages.Usages[k]

		if u.Markup {
			if u.MaxArgs == 0 {
				emit(RuleMarkupNoInterpolation, u,
					"markup accessor used for %q but the text has no interpolation; a plain accessor suffices", key.Display(k))
			} else if u.PrimitiveOnly {
				emit(RuleMarkupNoNodes, u,
					"markup accessor used for %q with only primitive arguments at every call site", key.Display(k))
			}
		}

		// Only opaque '$' ids are exempt from the length check.
		if !key.IsOpaque(k) {
			if n := utf8.RuneCountInString(k); n > opts.MaxKeyLength {
				emit(RuleKeyLength, u, "key is %d characters (limit %d); consider a $-prefixed id", n, opts.MaxKeyLength)
			}
		}

		if u.Plural {
			checkUnnecessaryPlural(k, u, parsed, emit)
		} else {
			checkConstantTranslation(k, u, parsed, emit)
			checkRedundantAffix(k, u, parsed, emit)
		}
	}
	return diags
}

type emitFunc func(rule string, at *scan.Usage, format string, args ...any)

// checkConstantTranslation fires when two or more locales carry the same
// non-empty translation for a plain key. Identical text in every language
// means the string should not be a translation key at all.
func checkConstantTranslation(k string, u *scan.Usage, files []*FileResult, emit emitFunc) {
	var values []string
	for _, fr := range files {
		v, ok := fr.file.Get(k)
		if !ok || v.Kind() != catalog.KindString || v.Str() == "" {
			continue
		}
		values = append(values, v.Str())
	}
	if len(values) < 2 {
		return
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return
		}
	}
	emit(RuleConstantTranslation, u,
		"%q translates to %q in all %d locales; use the literal directly", key.Display(k), values[0], len(values))
}

// checkUnnecessaryPlural fires when every locale's record for a plural key
// collapses to the single "+2" form: the key never needed plural handling.
func checkUnnecessaryPlural(k string, u *scan.Usage, files []*FileResult, emit emitFunc) {
	seen := 0
	for _, fr := range files {
		v, ok := fr.file.Get(k)
		if !ok || v.Kind() != catalog.KindPlural {
			continue
		}
		seen++
		if !v.Plural().OnlyOther() {
			return
		}
	}
	if seen > 0 {
		emit(RuleUnnecessaryPlural, u,
			"%q uses only the \"+2\" form in every locale; a plain key with a count placeholder would do", key.Display(k))
	}
}

// checkRedundantAffix fires for single-placeholder keys whose literal
// prefix and suffix survive unchanged in every translation — the constant
// part belongs in code, not in the key.
func checkRedundantAffix(k string, u *scan.Usage, files []*FileResult, emit emitFunc) {
	base, _ := key.SplitVariant(k)
	locs := placeholderPattern.FindAllStringIndex(base, -1)
	if len(locs) != 1 {
		return
	}
	prefix := base[:locs[0][0]]
	suffix := base[locs[0][1]:]
	if prefix == "" && suffix == "" {
		return
	}

	seen := 0
	for _, fr := range files {
		v, ok := fr.file.Get(k)
		if !ok || v.Kind() != catalog.KindString || v.Str() == "" {
			continue
		}
		seen++
		s := v.Str()
		if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
			return
		}
	}
	if seen > 0 {
		emit(RuleRedundantAffix, u,
			"the text around the placeholder in %q is identical in every locale; move it out of the key", key.Display(k))
	}
}
