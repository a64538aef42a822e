package validate

import (
	"strings"
	"testing"

	"github.com/keyling/keyling/report"
)

func TestConstantTranslationRule(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("OK") }
`},
		map[string]string{
			"en.json": `{"OK": "OK"}`,
			"es.json": `{"OK": "OK"}`,
			"fr.json": `{"OK": "OK"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en"})

	got := byRule(res, RuleConstantTranslation)
	if len(got) != 1 {
		t.Fatalf("constant-translation diagnostics = %+v", got)
	}
	if got[0].Severity != report.Error {
		t.Fatalf("severity = %v", got[0].Severity)
	}
	if !strings.Contains(got[0].Message, `"OK"`) {
		t.Fatalf("message = %q", got[0].Message)
	}
	if !res.Failed {
		t.Fatal("error-severity rule did not fail the run")
	}
}

func TestConstantTranslationNotFiredWhenLocalesDiffer(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("Save") }
`},
		map[string]string{
			"en.json": `{"Save": "Save"}`,
			"es.json": `{"Save": "Guardar"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en"})
	if got := byRule(res, RuleConstantTranslation); len(got) != 0 {
		t.Fatalf("rule fired on differing translations: %+v", got)
	}
}

func TestRuleSeverityOverride(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("OK") }
`},
		map[string]string{
			"en.json": `{"OK": "OK"}`,
			"es.json": `{"OK": "OK"}`,
		})

	res := run(t, Options{
		SourceDir: src, LocalesDir: loc, DefaultLocale: "en",
		Rules: map[string]report.Severity{RuleConstantTranslation: report.Off},
	})
	if got := byRule(res, RuleConstantTranslation); len(got) != 0 {
		t.Fatalf("rule fired while off: %+v", got)
	}
	if res.Failed {
		t.Fatal("run failed with the only rule off")
	}
}

func TestUnnecessaryPluralRule(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { TrN(n, "# items selected") }
`},
		map[string]string{
			"es.json": `{"# items selected": {"+2": "# elementos"}}`,
			"fr.json": `{"# items selected": {"+2": "# éléments"}}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	got := byRule(res, RuleUnnecessaryPlural)
	if len(got) != 1 {
		t.Fatalf("unnecessary-plural diagnostics = %+v", got)
	}
	if got[0].Severity != report.Warning {
		t.Fatalf("severity = %v", got[0].Severity)
	}
}

func TestUnnecessaryPluralNotFiredWithRealForms(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { TrN(n, "# items selected") }
`},
		map[string]string{
			"es.json": `{"# items selected": {"one": "1 elemento", "+2": "# elementos"}}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	if got := byRule(res, RuleUnnecessaryPlural); len(got) != 0 {
		t.Fatalf("rule fired on a real plural: %+v", got)
	}
}

func TestMarkupRules(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	TrX("Press Enter to continue")
	TrX("Hi {1}", userName)
}
`},
		map[string]string{
			"es.json": `{"Press Enter to continue": "x", "Hi {1}": "Hola {1}"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})

	noInterp := byRule(res, RuleMarkupNoInterpolation)
	if len(noInterp) != 1 || !strings.Contains(noInterp[0].Message, "Press Enter") {
		t.Fatalf("markup-no-interpolation = %+v", noInterp)
	}
	if noInterp[0].Line == 0 {
		t.Fatal("diagnostic missing call-site position")
	}

	noNodes := byRule(res, RuleMarkupNoNodes)
	if len(noNodes) != 1 || !strings.Contains(noNodes[0].Message, "Hi {1}") {
		t.Fatalf("markup-no-nodes = %+v", noNodes)
	}
}

func TestMarkupNoNodesNotFiredWithCompositeArgs(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	TrX("Hi {1}", Bold{Text: name})
}
`},
		map[string]string{
			"es.json": `{"Hi {1}": "Hola {1}"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	if got := byRule(res, RuleMarkupNoNodes); len(got) != 0 {
		t.Fatalf("rule fired with a composite-literal argument: %+v", got)
	}
	if got := byRule(res, RuleMarkupNoInterpolation); len(got) != 0 {
		t.Fatalf("no-interpolation fired on an interpolated key: %+v", got)
	}
}

func TestRedundantAffixRule(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("Total: {1} items", n) }
`},
		map[string]string{
			"es.json": `{"Total: {1} items": "Total: {1} items"}`,
			"fr.json": `{"Total: {1} items": "Total: {1} items"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	if got := byRule(res, RuleRedundantAffix); len(got) != 1 {
		t.Fatalf("redundant-affix = %+v", got)
	}
}

func TestRedundantAffixNotFiredWhenTranslated(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("Total: {1} items", n) }
`},
		map[string]string{
			"es.json": `{"Total: {1} items": "Total: {1} elementos"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	if got := byRule(res, RuleRedundantAffix); len(got) != 0 {
		t.Fatalf("rule fired on a translated affix: %+v", got)
	}
}

func TestKeyLengthRule(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("long key text ", 3) // 42 chars, over a limit of 20
	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	Tr("` + long + `")
	Tr("$opaque.id.that.is.definitely.longer.than.the.limit")
}
`},
		map[string]string{
			"es.json": `{"` + long + `": "x", "$opaque.id.that.is.definitely.longer.than.the.limit": "y"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc, MaxKeyLength: 20})
	got := byRule(res, RuleKeyLength)
	if len(got) != 1 {
		t.Fatalf("key-length = %+v", got)
	}
	if strings.Contains(got[0].Message, "$opaque") {
		t.Fatal("opaque key not exempt from key-length")
	}
}

func TestKeyLengthRuleCoversPluralKeys(t *testing.T) {
	t.Parallel()

	long := "# " + strings.Repeat("pending invitations ", 2) // 42 chars, over a limit of 20
	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { TrN(n, "` + long + `") }
`},
		map[string]string{
			"es.json": `{"` + long + `": {"one": "1 x", "+2": "# x"}}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc, MaxKeyLength: 20})
	if got := byRule(res, RuleKeyLength); len(got) != 1 {
		t.Fatalf("key-length on plural key = %+v", got)
	}
}

func TestCheckRuleNames(t *testing.T) {
	t.Parallel()

	if err := CheckRuleNames(map[string]report.Severity{RuleKeyLength: report.Off}); err != nil {
		t.Fatalf("known rule rejected: %v", err)
	}
	if err := CheckRuleNames(map[string]report.Severity{"no-such-rule": report.Error}); err == nil {
		t.Fatal("unknown rule accepted")
	}
}
