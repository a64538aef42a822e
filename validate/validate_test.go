package validate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keyling/keyling/catalog"
	"github.com/keyling/keyling/report"
	"github.com/keyling/keyling/translate"
)

// writeTree lays out a source dir and a locales dir under a temp root.
// sources maps file name to Go source; locales maps file name to JSON.
func writeTree(t *testing.T, sources, locales map[string]string) (srcDir, locDir string) {
	t.Helper()
	root := t.TempDir()
	srcDir = filepath.Join(root, "app")
	locDir = filepath.Join(root, "locales")
	for _, d := range []string{srcDir, locDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	for name, src := range sources {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range locales {
		if err := os.WriteFile(filepath.Join(locDir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return srcDir, locDir
}

func run(t *testing.T, opts Options) *RunResult {
	t.Helper()
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func byRule(res *RunResult, rule string) []report.Diagnostic {
	var out []report.Diagnostic
	for _, d := range res.Diagnostics {
		if d.Rule == rule {
			out = append(out, d)
		}
	}
	return out
}

func TestRunCleanTree(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	Tr("Hello {1}", name)
	TrN(n, "# files")
}
`},
		map[string]string{
			"en.json": `{"Hello {1}": null, "# files": {"+2": null}}`,
			"es.json": `{"Hello {1}": "Hola {1}", "# files": {"one": "1 archivo", "+2": "# archivos"}}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en"})
	if res.Failed {
		t.Fatalf("clean tree failed: %+v", res.Diagnostics)
	}
	for _, fr := range res.Files {
		if !fr.State.UpToDate() {
			t.Fatalf("%s not up to date: state %b", fr.Path, fr.State)
		}
	}
}

func TestRunMissingAndExtra(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	Tr("Hello")
	Tr("Bye")
}
`},
		map[string]string{
			"es.json": `{"Hello": "Hola", "Old": "Viejo"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en"})
	if !res.Failed {
		t.Fatal("missing/extra did not fail the run")
	}

	fr := res.Files[0]
	if fr.State&StateMissing == 0 || fr.State&StateExtra == 0 {
		t.Fatalf("state = %b", fr.State)
	}
	if len(fr.MissingAbsent) != 1 || fr.MissingAbsent[0] != "Bye" {
		t.Fatalf("MissingAbsent = %v", fr.MissingAbsent)
	}
	if len(fr.Extra) != 1 || fr.Extra[0] != "Old" {
		t.Fatalf("Extra = %v", fr.Extra)
	}
}

func TestRunNullPendingOutsideDefault(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("Hello") }
`},
		map[string]string{
			"en.json": `{"Hello": null}`,
			"es.json": `{"Hello": null}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en"})

	for _, fr := range res.Files {
		switch fr.Locale {
		case "en":
			if fr.MissingCount() != 0 {
				t.Fatalf("default locale null counted missing: %+v", fr)
			}
		case "es":
			if len(fr.MissingPending) != 1 || fr.MissingPending[0] != "Hello" {
				t.Fatalf("es pending = %v", fr.MissingPending)
			}
		}
	}
}

func TestRunInvalidPluralShape(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	TrN(n, "# files")
	Tr("Hello")
}
`},
		map[string]string{
			"es.json": `{"# files": "not a record", "Hello": {"+2": "wat"}}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	fr := res.Files[0]
	if fr.State&StateInvalidPlural == 0 {
		t.Fatalf("state = %b", fr.State)
	}
	if len(fr.InvalidPlural) != 2 {
		t.Fatalf("InvalidPlural = %v", fr.InvalidPlural)
	}
}

func TestRunLegacyMarkerIsHardError(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("Hello") }
`},
		map[string]string{
			"es.json": `{"👇 missing start 👇": "", "Hello": "Hola"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	if !res.Failed {
		t.Fatal("legacy marker did not fail the run")
	}
	if !res.Files[0].LegacyMarker {
		t.Fatal("LegacyMarker not set")
	}
	if len(byRule(res, "legacy-marker")) != 1 {
		t.Fatalf("diagnostics = %+v", res.Diagnostics)
	}
}

func TestRunSpecialKeySelfEqual(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("$page.title") }
`},
		map[string]string{
			"es.json": `{"$page.title": "$page.title"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	if !res.Failed {
		t.Fatal("self-equal special key did not fail the run")
	}
	fr := res.Files[0]
	if fr.State&StateInvalidSpecial == 0 {
		t.Fatalf("state = %b", fr.State)
	}
}

func TestRunSchemaErrorDoesNotStopOtherFiles(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() { Tr("Hello") }
`},
		map[string]string{
			"aa.json": `{"broken": [1, 2]}`,
			"es.json": `{"Hello": "Hola"}`,
		})

	res := run(t, Options{SourceDir: src, LocalesDir: loc})
	if !res.Failed {
		t.Fatal("schema error did not fail the run")
	}
	if len(res.Files) != 2 {
		t.Fatalf("files = %d, want both processed", len(res.Files))
	}
	if res.Files[0].FormatErr == nil {
		t.Fatal("aa.json FormatErr not set")
	}
	if !res.Files[1].State.UpToDate() {
		t.Fatalf("es.json state = %b", res.Files[1].State)
	}
}

func TestFixInsertsMarkedBlockDeterministically(t *testing.T) {
	t.Parallel()

	sources := map[string]string{"ui.go": `package app

func labels() {
	Tr("Hello")
	Tr("Bye")
	TrN(n, "# files")
}
`}
	locales := map[string]string{
		"es.json": `{"Hello": "Hola", "Stale": "Rancio"}`,
	}
	src, loc := writeTree(t, sources, locales)
	opts := Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en", Fix: true}

	res := run(t, opts)
	if res.FixedFiles != 1 {
		t.Fatalf("FixedFiles = %d", res.FixedFiles)
	}

	path := filepath.Join(loc, "es.json")
	f, err := catalog.ParseFile(path)
	if err != nil {
		t.Fatalf("reparse fixed file: %v", err)
	}

	if start, end := f.MarkerState(); !start || !end {
		t.Fatalf("marker pair not written: start=%v end=%v", start, end)
	}
	if f.Has("Stale") {
		t.Fatal("extra key survived fix")
	}
	if v, ok := f.Get("Bye"); !ok || v.Kind() != catalog.KindEmpty {
		t.Fatalf("Bye = %#v, %v", v, ok)
	}
	v, ok := f.Get("# files")
	if !ok || v.Kind() != catalog.KindPlural {
		t.Fatalf("# files = %#v", v)
	}
	p := v.Plural()
	if p.Other == nil || *p.Other != "# x" || p.ManyLimit == nil || *p.ManyLimit != 50 {
		t.Fatalf("pinned plural record = %+v", p)
	}
	keys := f.Keys()
	if keys[len(keys)-1] != "Bye" && !f.Has(catalog.AnchorKey) {
		t.Fatal("anchor key not written")
	}

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Second fix run: pending keys stay where they are, nothing is
	// re-inserted, the file does not change by a single byte.
	res2 := run(t, opts)
	if res2.FixedFiles != 0 {
		t.Fatalf("second fix rewrote files: %d", res2.FixedFiles)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("fix not byte-deterministic:\n%s\nvs\n%s", first, second)
	}
	if res2.Failed {
		t.Fatalf("second fix run failed: %+v", res2.Diagnostics)
	}
}

func TestFixJoinsExistingMarkerBlock(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	Tr("Hello")
	Tr("Bye")
	Tr("New")
}
`},
		map[string]string{
			"es.json": `{"Hello": "Hola", "👇 missing start 👇": "", "Bye": null, "👆 missing end 👆": ""}`,
		})

	run(t, Options{SourceDir: src, LocalesDir: loc, Fix: true})

	data, err := os.ReadFile(filepath.Join(loc, "es.json"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if n := strings.Count(text, catalog.MarkerStart); n != 1 {
		t.Fatalf("start markers = %d, want exactly one pair", n)
	}
	if n := strings.Count(text, catalog.MarkerEnd); n != 1 {
		t.Fatalf("end markers = %d, want exactly one pair", n)
	}
	start := strings.Index(text, catalog.MarkerStart)
	end := strings.Index(text, catalog.MarkerEnd)
	at := strings.Index(text, `"New"`)
	if !(start < at && at < end) {
		t.Fatalf("new key not inside the existing marker block:\n%s", text)
	}
}

type fakeTranslator struct {
	answer map[string]catalog.Value
	err    error
	gotReq translate.Request
}

func (ft *fakeTranslator) Translate(_ context.Context, req translate.Request) (map[string]catalog.Value, error) {
	ft.gotReq = req
	return ft.answer, ft.err
}

func TestFixWithCompleteTranslationSkipsMarkers(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	Tr("Hello")
	Tr("Bye")
}
`},
		map[string]string{
			"es.json": `{"Hello": "Hola"}`,
		})

	ft := &fakeTranslator{answer: map[string]catalog.Value{
		"Bye": catalog.String("Adiós"),
	}}
	run(t, Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en", Fix: true, Translator: ft})

	f, err := catalog.ParseFile(filepath.Join(loc, "es.json"))
	if err != nil {
		t.Fatal(err)
	}
	if start, end := f.MarkerState(); start || end {
		t.Fatal("markers written despite complete translation")
	}
	if v, _ := f.Get("Bye"); v.Str() != "Adiós" {
		t.Fatalf("Bye = %#v", v)
	}
	if ft.gotReq.Locale != "es" {
		t.Fatalf("request locale = %q", ft.gotReq.Locale)
	}
}

func TestFixTranslatesPendingKeysInPlace(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	Tr("Hello")
	Tr("World")
}
`},
		map[string]string{
			"es.json": `{"Hello": null, "World": "Mundo"}`,
		})

	ft := &fakeTranslator{answer: map[string]catalog.Value{
		"Hello": catalog.String("Hola"),
	}}
	res := run(t, Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en", Fix: true, Translator: ft})
	if res.FixedFiles != 1 {
		t.Fatalf("FixedFiles = %d", res.FixedFiles)
	}

	var requested []string
	for _, k := range ft.gotReq.Keys {
		requested = append(requested, k.Name)
	}
	if len(requested) != 1 || requested[0] != "Hello" {
		t.Fatalf("translator asked for %v, want the null key", requested)
	}

	f, err := catalog.ParseFile(filepath.Join(loc, "es.json"))
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := f.Get("Hello"); v.Kind() != catalog.KindString || v.Str() != "Hola" {
		t.Fatalf("null key not translated in place: %#v", v)
	}
	// Translating in place never moves the key or introduces markers.
	if keys := f.Keys(); keys[0] != "Hello" || keys[1] != "World" {
		t.Fatalf("key order changed: %v", keys)
	}
	if start, end := f.MarkerState(); start || end {
		t.Fatal("markers written for an in-place translation")
	}
}

func TestFixWithPartialTranslationKeepsMarkers(t *testing.T) {
	t.Parallel()

	src, loc := writeTree(t,
		map[string]string{"ui.go": `package app

func labels() {
	Tr("Hello")
	Tr("Bye")
	Tr("Later")
}
`},
		map[string]string{
			"es.json": `{"Hello": "Hola"}`,
		})

	ft := &fakeTranslator{answer: map[string]catalog.Value{
		"Bye": catalog.String("Adiós"),
	}}
	run(t, Options{SourceDir: src, LocalesDir: loc, DefaultLocale: "en", Fix: true, Translator: ft})

	f, err := catalog.ParseFile(filepath.Join(loc, "es.json"))
	if err != nil {
		t.Fatal(err)
	}
	if start, end := f.MarkerState(); !start || !end {
		t.Fatal("markers missing despite unanswered keys")
	}
	if v, _ := f.Get("Bye"); v.Str() != "Adiós" {
		t.Fatalf("translated key not used: %#v", v)
	}
	if v, _ := f.Get("Later"); v.Kind() != catalog.KindEmpty {
		t.Fatalf("unanswered key = %#v", v)
	}
}

func TestInsertPos(t *testing.T) {
	t.Parallel()

	keys := []string{"Bye", "Hello {1}"}
	a := insertPos(keys, 7)
	b := insertPos(keys, 7)
	if a != b {
		t.Fatalf("not deterministic: %d vs %d", a, b)
	}
	if a < 0 || a >= 7 {
		t.Fatalf("pos out of range: %d", a)
	}
	if got := insertPos(keys, 0); got != 0 {
		t.Fatalf("empty file pos = %d", got)
	}
	if other := insertPos([]string{"Completely different"}, 7); other == a {
		// Not a hard guarantee, but these two sets do land apart.
		t.Logf("note: distinct key sets hashed to the same position %d", a)
	}
}
