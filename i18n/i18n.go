// Package i18n provides internationalization for keyling's own user-facing
// strings.
//
// It wraps the gotext library behind simple T() and N() functions.
// Translations are embedded in the binary via //go:embed and loaded at
// startup via Init().
//
//	i18n.Init("") // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	fmt.Println(i18n.T("Validation passed"))
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the .po translation files, laid out as
// locales/{lang}/LC_MESSAGES/keyling.po.
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name.
const domain = "keyling"

var po *gotext.Locale

// Init initializes translation for lang. An empty lang auto-detects from
// the environment variables LANGUAGE, LC_ALL, LC_MESSAGES, LANG, in that
// order, matching GNU gettext behavior. Call once at startup.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates a string, returning the original unchanged when no
// translation is available.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms; the target language's plural
// formula picks the form.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage follows GNU gettext conventions:
// LANGUAGE > LC_ALL > LC_MESSAGES > LANG.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated list; take the first entry.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// Strip the encoding suffix ("ru_RU.UTF-8" -> "ru_RU").
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		// "C" and "POSIX" mean no translation.
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
