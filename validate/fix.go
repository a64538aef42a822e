package validate

import (
	"bytes"
	"context"
	"os"
	"sort"

	"github.com/keyling/keyling/catalog"
	"github.com/keyling/keyling/scan"
	"github.com/keyling/keyling/similarity"
	"github.com/keyling/keyling/translate"
)

// applyFix rewrites one locale file in place: extras are dropped, keys with
// invalid value shapes are deleted and re-queued as missing, and missing
// keys are inserted as a marker-bracketed block at a position derived from
// the missing set. Keys already present but awaiting translation keep their
// position; with a translator configured their null values are filled in
// place.
func applyFix(ctx context.Context, fr *FileResult, usages *scan.Result, opts Options) error {
	f := fr.file

	for _, k := range fr.Extra {
		f.Delete(k)
	}

	missing := append([]string(nil), fr.MissingAbsent...)
	for _, k := range fr.InvalidPlural {
		f.Delete(k)
		missing = append(missing, k)
	}
	sort.Strings(missing)

	// Pending keys sit in the file as explicit nulls. They are never
	// re-inserted or moved, but they still need values.
	var pending []string
	if opts.Translator != nil && !fr.Default {
		pending = fr.MissingPending
	}

	pluralSet := make(map[string]bool)
	for _, k := range usages.PluralKeys() {
		pluralSet[k] = true
	}

	var translated map[string]catalog.Value
	if len(missing)+len(pending) > 0 {
		translated = requestTranslations(ctx, fr, missing, pending, pluralSet, opts)
	}

	if len(missing) > 0 {
		values := make(map[string]catalog.Value, len(missing))
		complete := true
		for _, k := range missing {
			if v, ok := translated[k]; ok {
				values[k] = v
				continue
			}
			complete = false
			if pluralSet[k] {
				values[k] = staticPlural()
			} else {
				values[k] = catalog.Empty()
			}
		}

		// A fully-translated block needs no human follow-up, so the
		// markers stay out of the file.
		pos := insertPos(missing, f.Len())
		f.InsertBlock(pos, missing, values, !complete)
	}

	for _, k := range pending {
		if v, ok := translated[k]; ok {
			f.Set(k, v)
		}
	}

	f.EnsureAnchor()

	before, err := os.ReadFile(f.Path)
	if err != nil {
		return err
	}
	after := f.Marshal()
	if bytes.Equal(before, after) {
		return nil
	}
	if err := f.WriteFile(); err != nil {
		return err
	}
	fr.Fixed = true
	return nil
}

// requestTranslations asks the configured translator for the missing and
// pending keys in one request. The file's own translated pairs seed a
// similarity index whose nearest matches ride along as context. Returns nil
// when no translator applies or the call fails; the caller degrades to
// static placeholders.
func requestTranslations(ctx context.Context, fr *FileResult, missing, pending []string, pluralSet map[string]bool, opts Options) map[string]catalog.Value {
	// The default locale's values are the source literals themselves;
	// there is nothing to machine-translate.
	if opts.Translator == nil || fr.Default {
		return nil
	}

	ix := similarity.New(translatedPairs(fr))

	req := translate.Request{
		Locale:        fr.Locale,
		DefaultLocale: opts.DefaultLocale,
	}
	for _, group := range [][]string{missing, pending} {
		for _, k := range group {
			req.Keys = append(req.Keys, translate.Key{
				Name:    k,
				Plural:  pluralSet[k],
				Context: ix.Query(k, similarity.DefaultMaxResults),
			})
		}
	}

	got, err := opts.Translator.Translate(ctx, req)
	if err != nil {
		opts.Logger.Warn().Err(err).Str("locale", fr.Locale).Msg("machine translation failed, inserting placeholders")
		return nil
	}
	return got
}

// translatedPairs extracts the key/translation pairs already present in the
// file, usable as similarity context. Plural records contribute their "+2"
// form.
func translatedPairs(fr *FileResult) map[string]string {
	out := make(map[string]string)
	for _, k := range fr.file.Keys() {
		v, _ := fr.file.Get(k)
		switch v.Kind() {
		case catalog.KindString:
			if s := v.Str(); s != "" && s != k {
				out[k] = s
			}
		case catalog.KindPlural:
			if other := v.Plural().Other; other != nil {
				out[k] = *other
			}
		}
	}
	return out
}

// staticPlural is the pinned placeholder record for a freshly-discovered
// plural key. Deliberately wrong in every language so it cannot pass for a
// real translation.
func staticPlural() catalog.Value {
	zero := "No x"
	one := "1 x"
	other := "# x"
	many := "A lot of x"
	limit := 50
	return catalog.PluralValue(&catalog.Plural{
		Zero:      &zero,
		One:       &one,
		Other:     &other,
		Many:      &many,
		ManyLimit: &limit,
	})
}
