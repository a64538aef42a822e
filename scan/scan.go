// Package scan extracts translation-accessor call sites from Go source.
//
// The scanner parses one file at a time and walks the AST for calls to the
// four recognized accessor forms, invocable either as a bare identifier or
// as a property of any object (covering namespace imports and method calls
// on a resolver):
//
//	Tr("Saved {1} files", n)          plain
//	TrN(count, "# unread")            counted plural
//	TrX("Press {1}", node)            markup-aware
//	TrNX(count, "# new {1}", badge)   markup-aware counted plural
//
// Each match records the derived key (the literal argument, using only its
// text and the interpolation count, never the argument values), the 1-based
// call-site location, and whether every interpolated expression is primitive
// (literals, identifiers, property access, calls, and primitive-operand
// binary/paren expressions) rather than a markup node.
package scan

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Form describes one recognized accessor shape.
type Form struct {
	// Plural accessors take the count as their first argument; the key
	// literal follows. The count expression itself is ignored.
	Plural bool
	// Markup accessors return structured fragments; their interpolation
	// arguments may be real nodes.
	Markup bool
}

// Accessors is the declarative call-form table consulted by the visitor:
// accessor name to form classification.
var Accessors = map[string]Form{
	"Tr":   {},
	"TrN":  {Plural: true},
	"TrX":  {Markup: true},
	"TrNX": {Plural: true, Markup: true},
}

// skipDirs are directory names never descended into during tree scans.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"testdata":     true,
	"dist":         true,
	"build":        true,
}

// Location is a 1-based source position.
type Location struct {
	File string
	Line int
	Col  int
}

// Usage aggregates every occurrence of one key across the scanned tree.
type Usage struct {
	Key string
	// Locations in first-occurrence order; the first entry is used for
	// diagnostics.
	Locations []Location
	// Plural and Markup are true when any occurrence used the
	// corresponding accessor form.
	Plural bool
	Markup bool
	// PrimitiveOnly is conjunctive across occurrences: a single markup
	// interpolation anywhere flips it for the whole key.
	PrimitiveOnly bool
	// MaxArgs is the largest interpolation-argument count observed.
	MaxArgs int
}

// Result holds the aggregated output of a scan: the four per-form key sets
// plus the usage map.
type Result struct {
	Plain        map[string]bool
	Plural       map[string]bool
	MarkupPlain  map[string]bool
	MarkupPlural map[string]bool
	Usages       map[string]*Usage
}

// NewResult returns an empty aggregation.
func NewResult() *Result {
	return &Result{
		Plain:        make(map[string]bool),
		Plural:       make(map[string]bool),
		MarkupPlain:  make(map[string]bool),
		MarkupPlural: make(map[string]bool),
		Usages:       make(map[string]*Usage),
	}
}

// StringKeys returns the keys required to hold plain-string values, sorted.
func (r *Result) StringKeys() []string {
	return sortedUnion(r.Plain, r.MarkupPlain)
}

// PluralKeys returns the keys required to hold plural records, sorted.
func (r *Result) PluralKeys() []string {
	return sortedUnion(r.Plural, r.MarkupPlural)
}

func sortedUnion(a, b map[string]bool) []string {
	out := make([]string, 0, len(a)+len(b))
	for k := range a {
		out = append(out, k)
	}
	for k := range b {
		if !a[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Tree scans every non-test .go file under dir in sorted path order, so
// diagnostic ordering across files is stable. Unparsable files are skipped
// with a note in the returned slice of warnings.
func Tree(dir string) (*Result, []string, error) {
	res := NewResult()
	var warnings []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, path+": "+err.Error())
			return nil
		}
		if err := File(path, src, res); err != nil {
			warnings = append(warnings, path+": "+err.Error())
		}
		return nil
	})
	if err != nil {
		return nil, warnings, err
	}
	return res, warnings, nil
}

// File scans one file's source text into res.
//
// Fast path: when the text contains none of the recognized accessor names,
// the file is skipped without parsing. The scanner runs over every file in a
// tree on every validation, and most files contain no translations.
func File(path string, src []byte, res *Result) error {
	if !mayContainAccessor(string(src)) {
		return nil
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return err
	}

	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}

		name, ok := accessorName(call.Fun)
		if !ok {
			return true
		}
		form, ok := Accessors[name]
		if !ok {
			return true
		}

		keyIdx := 0
		if form.Plural {
			keyIdx = 1 // skip the count argument
		}
		if keyIdx >= len(call.Args) {
			return true
		}
		k := stringFromExpr(call.Args[keyIdx])
		if k == "" {
			return true // not a literal key; nothing to extract
		}

		pos := fset.Position(call.Pos())
		record(res, k, form, Location{File: path, Line: pos.Line, Col: pos.Column}, call.Args[keyIdx+1:])
		return true
	})
	return nil
}

func mayContainAccessor(src string) bool {
	for name := range Accessors {
		if strings.Contains(src, name) {
			return true
		}
	}
	return false
}

// accessorName matches the two recognized callee shapes: a bare identifier,
// or a property access off any object.
func accessorName(fun ast.Expr) (string, bool) {
	switch fn := fun.(type) {
	case *ast.Ident:
		return fn.Name, true
	case *ast.SelectorExpr:
		return fn.Sel.Name, true
	}
	return "", false
}

func record(res *Result, k string, form Form, loc Location, args []ast.Expr) {
	switch {
	case form.Plural && form.Markup:
		res.MarkupPlural[k] = true
	case form.Plural:
		res.Plural[k] = true
	case form.Markup:
		res.MarkupPlain[k] = true
	default:
		res.Plain[k] = true
	}

	u := res.Usages[k]
	if u == nil {
		u = &Usage{Key: k, PrimitiveOnly: true}
		res.Usages[k] = u
	}
	u.Locations = append(u.Locations, loc)
	u.Plural = u.Plural || form.Plural
	u.Markup = u.Markup || form.Markup
	if len(args) > u.MaxArgs {
		u.MaxArgs = len(args)
	}
	for _, a := range args {
		if !isPrimitive(a) {
			u.PrimitiveOnly = false
		}
	}
}

// isPrimitive classifies an interpolation expression structurally. Literals,
// identifiers, property access, call expressions, and paren/binary
// expressions over primitives are primitive; composite literals, function
// literals and everything else count as markup nodes.
func isPrimitive(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.BasicLit:
		return true
	case *ast.Ident:
		return true
	case *ast.SelectorExpr:
		return true
	case *ast.CallExpr:
		return true
	case *ast.IndexExpr:
		return isPrimitive(x.X)
	case *ast.ParenExpr:
		return isPrimitive(x.X)
	case *ast.BinaryExpr:
		return isPrimitive(x.X) && isPrimitive(x.Y)
	case *ast.UnaryExpr:
		return isPrimitive(x.X)
	}
	return false
}

// stringFromExpr extracts a compile-time string from an expression: a string
// literal or a '+' concatenation of string literals. Anything else returns
// the empty string.
func stringFromExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			s, err := strconv.Unquote(e.Value)
			if err != nil {
				return ""
			}
			return s
		}
	case *ast.BinaryExpr:
		if e.Op == token.ADD {
			left := stringFromExpr(e.X)
			right := stringFromExpr(e.Y)
			if left != "" && right != "" {
				return left + right
			}
		}
	case *ast.ParenExpr:
		return stringFromExpr(e.X)
	}
	return ""
}
