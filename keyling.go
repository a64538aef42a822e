// Package keyling is the runtime half of a compile-time-assisted i18n
// system: application code embeds translatable strings as placeholder-bearing
// literals, the literal itself is the stable lookup key, and a Resolver
// resolves keys against an in-memory locale table, falling back to the
// source text when no translation exists.
//
// Four accessor forms cover the call shapes the companion scanner
// recognizes:
//
//	tr.Tr("Saved {1} files", n)          plain string
//	tr.TrN(count, "# unread messages")   counted plural
//	tr.TrX("Press {1} to quit", node)    markup-aware, returns a Fragment
//	tr.TrNX(count, "# new {1}", badge)   markup-aware counted plural
//
// A Resolver never blocks and never panics: every call returns a displayable
// result. Malformed or mismatched translations are logged through a
// swappable logger and degrade to the fallback text.
package keyling

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/keyling/keyling/catalog"
	"github.com/keyling/keyling/interp"
	"github.com/keyling/keyling/key"
)

// Ellipsis is what an opaque '$' key renders as when untranslated. Opaque
// ids stand in for long strings; their literal developer-facing text must
// never leak to end users.
const Ellipsis = "…"

// Table is an in-memory locale table: key to translation value. A table is
// treated as immutable once installed; locale switches install a fresh table
// via an atomic pointer swap, so a resolver call never observes a
// half-updated table.
type Table map[string]catalog.Value

// Fragment is a structured resolution result: an ordered sequence of text
// and node segments. Markup nodes interpolated into a translation survive as
// discrete segments rather than collapsing to their text rendering.
type Fragment []interp.Segment

// Text flattens the fragment to plain text.
func (f Fragment) Text() string { return interp.Text(f) }

// Resolver resolves translation keys against the currently installed locale
// table. The zero value is not usable; call New.
type Resolver struct {
	table  atomic.Pointer[Table]
	logger atomic.Pointer[zerolog.Logger]

	// warned deduplicates usage-site diagnostics per key and reason so a
	// hot loop with a broken translation logs once, not per frame.
	warned sync.Map
}

// New returns a Resolver with no table installed and a no-op logger.
func New() *Resolver {
	r := &Resolver{}
	nop := zerolog.Nop()
	r.logger.Store(&nop)
	return r
}

// SetTable atomically installs t as the current locale table. A nil table
// uninstalls translations; all lookups then fall back.
func (r *Resolver) SetTable(t Table) {
	if t == nil {
		r.table.Store(nil)
		return
	}
	r.table.Store(&t)
}

// SetLogger atomically installs the diagnostics logger.
func (r *Resolver) SetLogger(l zerolog.Logger) {
	r.logger.Store(&l)
}

// Reset uninstalls the table and clears diagnostic deduplication state.
// Intended for test isolation.
func (r *Resolver) Reset() {
	r.table.Store(nil)
	r.warned = sync.Map{}
}

// Tr resolves a plain-string usage.
func (r *Resolver) Tr(text string, args ...any) string {
	k := text
	fallback := interp.Plain(key.Display(k), args)

	v, ok := r.lookup(k)
	if !ok || v.Kind() == catalog.KindEmpty {
		return r.miss(k, fallback)
	}

	switch v.Kind() {
	case catalog.KindPlural:
		r.warnOnce(k, "plain-on-plural", "value is a plural record; use the plural accessor")
		return r.miss(k, fallback)
	default:
		out := interp.Plain(v.Str(), args)
		if out == "" {
			return r.miss(k, fallback)
		}
		return out
	}
}

// TrN resolves a counted-plural usage.
func (r *Resolver) TrN(count int, text string, args ...any) string {
	k := text
	fallback := catalog.SubstituteCount(interp.Plain(key.Display(k), args), count)

	v, ok := r.lookup(k)
	if !ok || v.Kind() == catalog.KindEmpty {
		return r.miss(k, fallback)
	}

	switch v.Kind() {
	case catalog.KindString:
		r.warnOnce(k, "plural-on-plain", "value is a plain string; use the plain accessor")
		return r.miss(k, fallback)
	default:
		form, formOK := v.Plural().Select(count)
		if !formOK {
			r.warnOnce(k, "no-plural-form", "no applicable plural form")
			return r.miss(k, fallback)
		}
		out := interp.Plain(form, args)
		if out == "" {
			return r.miss(k, fallback)
		}
		return out
	}
}

// TrX resolves a markup-aware plain usage, preserving node arguments as
// discrete fragment segments.
func (r *Resolver) TrX(text string, args ...any) Fragment {
	k := text

	v, ok := r.lookup(k)
	if !ok || v.Kind() == catalog.KindEmpty {
		return r.missX(k, key.Display(k), args)
	}

	switch v.Kind() {
	case catalog.KindPlural:
		r.warnOnce(k, "plain-on-plural", "value is a plural record; use the plural accessor")
		return r.missX(k, key.Display(k), args)
	default:
		out := interp.Structured(v.Str(), args)
		if len(out) == 0 {
			return r.missX(k, key.Display(k), args)
		}
		return out
	}
}

// TrNX resolves a markup-aware counted-plural usage.
func (r *Resolver) TrNX(count int, text string, args ...any) Fragment {
	k := text

	v, ok := r.lookup(k)
	if ok && v.Kind() == catalog.KindPlural {
		form, formOK := v.Plural().Select(count)
		if formOK {
			if out := interp.Structured(form, args); len(out) > 0 {
				return out
			}
		} else {
			r.warnOnce(k, "no-plural-form", "no applicable plural form")
		}
	} else if ok && v.Kind() == catalog.KindString {
		r.warnOnce(k, "plural-on-plain", "value is a plain string; use the plain accessor")
	}

	display := catalog.SubstituteCount(key.Display(k), count)
	return r.missX(k, display, args)
}

// lookup reads the current table. The second return is false when no table
// is installed or the key is absent.
func (r *Resolver) lookup(k string) (catalog.Value, bool) {
	tbl := r.table.Load()
	if tbl == nil {
		return catalog.Value{}, false
	}
	v, ok := (*tbl)[k]
	return v, ok
}

// miss applies the fallback rules for a failed plain-mode resolution. An
// opaque '$' key yields the ellipsis placeholder; everything else yields the
// literal fallback text. A variant key that is absent falls back to its own
// literal text, never to the base key's translation.
func (r *Resolver) miss(k, fallback string) string {
	if key.IsOpaque(k) {
		return Ellipsis
	}
	return fallback
}

func (r *Resolver) missX(k, display string, args []any) Fragment {
	if key.IsOpaque(k) {
		return Fragment{{Text: Ellipsis}}
	}
	return Fragment(interp.Structured(display, args))
}

func (r *Resolver) warnOnce(k, reason, msg string) {
	id := k + "\x00" + reason
	if _, loaded := r.warned.LoadOrStore(id, struct{}{}); loaded {
		return
	}
	r.logger.Load().Warn().
		Str("key", k).
		Str("reason", reason).
		Msg(msg)
}
