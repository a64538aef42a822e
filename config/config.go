// Package config — .keyling.yaml configuration file support.
//
// When a .keyling.yaml exists in the project root it is the sole source of
// truth for directories, rule severities, and the machine-translation
// provider. Command-line flags override individual fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keyling/keyling/report"
	"github.com/keyling/keyling/translate"
)

// FileName is the config file name looked up from the working directory.
const FileName = ".keyling.yaml"

// File is the top-level .keyling.yaml structure.
type File struct {
	// SourceDir is the Go source tree to scan (default ".").
	SourceDir string `yaml:"source_dir,omitempty"`
	// LocalesDir holds the per-locale JSON files (default "locales").
	LocalesDir string `yaml:"locales_dir,omitempty"`
	// DefaultLocale is the locale whose values are the source literals
	// (default "en").
	DefaultLocale string `yaml:"default_locale,omitempty"`
	// MaxKeyLength is the key-length rule threshold (default 80).
	MaxKeyLength int `yaml:"max_key_length,omitempty"`
	// Rules maps rule names to "off", "warning", or "error".
	Rules map[string]string `yaml:"rules,omitempty"`
	// Translator configures the optional AI provider used by fix mode.
	Translator *Translator `yaml:"translator,omitempty"`

	// Dir is the directory the file was loaded from; flag paths resolve
	// relative to it.
	Dir string `yaml:"-"`
}

// Translator is the provider block of .keyling.yaml. The API key is never
// stored here; it comes from the environment or the credential store.
type Translator struct {
	// Provider selects a built-in preset ("openai", "groq", "gemini",
	// "custom-openai"); URL and Format default from it.
	Provider string `yaml:"provider"`
	// URL overrides the preset endpoint. Gemini-style endpoints may carry
	// a {model} placeholder.
	URL string `yaml:"url,omitempty"`
	// Model is the model identifier sent to the provider.
	Model string `yaml:"model,omitempty"`
	// Format overrides the request shape: "openai-chat" or "gemini".
	Format string `yaml:"format,omitempty"`
	// Temperature for the completion request.
	Temperature float64 `yaml:"temperature,omitempty"`
	// ProxyURL routes requests through an HTTP(S) proxy.
	ProxyURL string `yaml:"proxy_url,omitempty"`
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	// MaxRetries is the retry count for rate-limit and server errors.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// preset is a built-in provider endpoint.
type preset struct {
	url    string
	model  string
	format translate.APIFormat
}

var presets = map[string]preset{
	"openai": {
		url:    "https://api.openai.com/v1/chat/completions",
		model:  "gpt-4o-mini",
		format: translate.FormatOpenAIChat,
	},
	"groq": {
		url:    "https://api.groq.com/openai/v1/chat/completions",
		model:  "llama-3.3-70b-versatile",
		format: translate.FormatOpenAIChat,
	},
	"gemini": {
		url:    "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent",
		model:  "gemini-2.0-flash",
		format: translate.FormatGemini,
	},
	// custom-openai requires an explicit url.
	"custom-openai": {
		format: translate.FormatOpenAIChat,
	},
}

// Load reads and validates the config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Dir = filepath.Dir(path)
	f.applyDefaults()

	if err := f.validate(path); err != nil {
		return nil, err
	}
	return &f, nil
}

// Find walks from dir toward the filesystem root looking for .keyling.yaml.
// A missing file is not an error; defaults apply.
func Find(dir string) (*File, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	f := &File{Dir: "."}
	f.applyDefaults()
	return f, nil
}

func (f *File) applyDefaults() {
	if f.SourceDir == "" {
		f.SourceDir = "."
	}
	if f.LocalesDir == "" {
		f.LocalesDir = "locales"
	}
	if f.DefaultLocale == "" {
		f.DefaultLocale = "en"
	}
}

func (f *File) validate(path string) error {
	if f.MaxKeyLength < 0 {
		return fmt.Errorf("%s: max_key_length must not be negative", path)
	}
	if _, err := f.RuleSeverities(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if t := f.Translator; t != nil {
		p, ok := presets[t.Provider]
		if !ok {
			return fmt.Errorf("%s: unknown translator provider %q", path, t.Provider)
		}
		if t.URL == "" && p.url == "" {
			return fmt.Errorf("%s: provider %q requires an explicit url", path, t.Provider)
		}
		if t.Format != "" && t.Format != "openai-chat" && t.Format != "gemini" {
			return fmt.Errorf("%s: unknown translator format %q", path, t.Format)
		}
	}
	return nil
}

// RuleSeverities parses the rules block into severities.
func (f *File) RuleSeverities() (map[string]report.Severity, error) {
	if len(f.Rules) == 0 {
		return nil, nil
	}
	out := make(map[string]report.Severity, len(f.Rules))
	for name, raw := range f.Rules {
		sev, err := report.ParseSeverity(raw)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		out[name] = sev
	}
	return out, nil
}

// Resolve returns a path relative to the config file's directory, absolute
// paths untouched.
func (f *File) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || f.Dir == "" {
		return path
	}
	return filepath.Join(f.Dir, path)
}

// Provider materializes the translator block into a provider, with the API
// key supplied by the caller. Returns the zero value and false when no
// translator is configured.
func (f *File) Provider(apiKey string) (translate.Provider, bool) {
	t := f.Translator
	if t == nil {
		return translate.Provider{}, false
	}
	p := presets[t.Provider]

	prov := translate.Provider{
		Name:        t.Provider,
		URL:         p.url,
		Model:       p.model,
		Format:      p.format,
		APIKey:      apiKey,
		Temperature: t.Temperature,
		ProxyURL:    t.ProxyURL,
		MaxRetries:  t.MaxRetries,
	}
	if t.URL != "" {
		prov.URL = t.URL
	}
	if t.Model != "" {
		prov.Model = t.Model
	}
	if t.Format == "gemini" {
		prov.Format = translate.FormatGemini
	} else if t.Format == "openai-chat" {
		prov.Format = translate.FormatOpenAIChat
	}
	if t.TimeoutSeconds > 0 {
		prov.Timeout = time.Duration(t.TimeoutSeconds) * time.Second
	}
	return prov, true
}
