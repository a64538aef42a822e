// keyling — compile-time-assisted translation key toolkit: scans Go sources
// for translation accessors, validates flat JSON locale files against them,
// and repairs the files in place, optionally with AI-supplied translations.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keyling/keyling/config"
	"github.com/keyling/keyling/i18n"
	"github.com/keyling/keyling/report"
	"github.com/keyling/keyling/settings"
	"github.com/keyling/keyling/translate"
	"github.com/keyling/keyling/validate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errValidationFailed distinguishes "the tree is not clean" (exit 1) from
// environment and usage errors (exit 2).
var errValidationFailed = errors.New("validation failed")

// Global flags, inherited by all subcommands.
var (
	flagConfig string
	flagColor  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "keyling",
		Short: "Translation key validator for Go sources using tagged-literal keys",
		Long: `keyling — translation key toolkit.

Scans a Go source tree for translation accessor calls (Tr, TrN, TrX, TrNX),
reconciles the discovered keys against flat JSON locale files, and reports
or repairs the differences.

Commands:
  check     Validate locale files against the source tree
  fix       Repair locale files in place (insert missing, drop extras)
  auth      Manage machine-translation provider API keys
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to .keyling.yaml (default: walk up from the working directory)")
	root.PersistentFlags().StringVar(&flagColor, "color", "auto", "Colorize output: auto, always, never")

	root.AddCommand(
		newCheckCmd(),
		newFixCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errValidationFailed) {
			os.Exit(1)
		}
		printer().Error("%v", err)
		os.Exit(2)
	}
}

func printer() *report.Printer {
	return report.NewPrinter(os.Stderr, flagColor)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("keyling version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// validateFlags are shared by check and fix.
type validateFlags struct {
	src           string
	locales       string
	defaultLocale string
	maxKeyLength  int
	rules         []string
}

func (vf *validateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&vf.src, "src", "", "Go source tree to scan (default from config, else \".\")")
	cmd.Flags().StringVar(&vf.locales, "locales", "", "Directory with per-locale JSON files (default from config, else \"locales\")")
	cmd.Flags().StringVar(&vf.defaultLocale, "default-locale", "", "Locale whose values are the source literals (default from config, else \"en\")")
	cmd.Flags().IntVar(&vf.maxKeyLength, "max-key-length", 0, "Key-length rule threshold (default from config, else 80)")
	cmd.Flags().StringArrayVar(&vf.rules, "rule", nil, "Override a rule severity, name=off|warning|error (repeatable)")
}

// options merges config file and flags into engine options; flags win.
func (vf *validateFlags) options() (validate.Options, *config.File, error) {
	var cf *config.File
	var err error
	if flagConfig != "" {
		cf, err = config.Load(flagConfig)
	} else {
		cf, err = config.Find(".")
	}
	if err != nil {
		return validate.Options{}, nil, err
	}

	opts := validate.Options{
		SourceDir:     cf.Resolve(cf.SourceDir),
		LocalesDir:    cf.Resolve(cf.LocalesDir),
		DefaultLocale: cf.DefaultLocale,
		MaxKeyLength:  cf.MaxKeyLength,
	}
	if opts.Rules, err = cf.RuleSeverities(); err != nil {
		return validate.Options{}, nil, err
	}

	if vf.src != "" {
		opts.SourceDir = vf.src
	}
	if vf.locales != "" {
		opts.LocalesDir = vf.locales
	}
	if vf.defaultLocale != "" {
		opts.DefaultLocale = vf.defaultLocale
	}
	if vf.maxKeyLength > 0 {
		opts.MaxKeyLength = vf.maxKeyLength
	}

	for _, spec := range vf.rules {
		name, raw, ok := strings.Cut(spec, "=")
		if !ok {
			return validate.Options{}, nil, fmt.Errorf("invalid --rule %q (want name=severity)", spec)
		}
		sev, err := report.ParseSeverity(raw)
		if err != nil {
			return validate.Options{}, nil, fmt.Errorf("--rule %q: %w", spec, err)
		}
		if opts.Rules == nil {
			opts.Rules = make(map[string]report.Severity)
		}
		opts.Rules[name] = sev
	}
	if err := validate.CheckRuleNames(opts.Rules); err != nil {
		return validate.Options{}, nil, err
	}

	opts.Logger = newLogger()
	return opts, cf, nil
}

func newLogger() zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(w).Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

func newCheckCmd() *cobra.Command {
	var vf validateFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate locale files against the source tree",
		Long: `Scan the source tree for translation accessor calls and verify that
every locale file carries exactly the keys the code uses, with values of
the right shape. Exits 1 when validation fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := vf.options()
			if err != nil {
				return err
			}
			res, err := validate.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return renderResult(res, opts)
		},
	}
	vf.register(cmd)
	return cmd
}

func newFixCmd() *cobra.Command {
	var vf validateFlags
	var noTranslate bool
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Repair locale files in place",
		Long: `Rewrite locale files to match the source tree: drop extra keys, delete
and re-queue keys with invalid value shapes, and insert missing keys as a
marker-bracketed block at a position derived from the missing set.

With a translator configured in .keyling.yaml, missing values are machine
translated; a fully translated block is inserted without markers. Without
one, plain keys get null and plural keys a placeholder record.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cf, err := vf.options()
			if err != nil {
				return err
			}
			opts.Fix = true

			if !noTranslate && cf.Translator != nil {
				apiKey, err := settings.APIKey(cf.Translator.Provider)
				if err != nil {
					return err
				}
				if prov, ok := cf.Provider(apiKey); ok {
					opts.Translator = translate.NewClient(prov)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := validate.Run(ctx, opts)
			if err != nil {
				return err
			}

			p := printer()
			if res.FixedFiles == 0 {
				p.Info("%s", i18n.T("Nothing to fix"))
			} else {
				p.Success(i18n.N("Fixed %d locale file", "Fixed %d locale files", res.FixedFiles), res.FixedFiles)
			}
			return renderResult(res, opts)
		},
	}
	vf.register(cmd)
	cmd.Flags().BoolVar(&noTranslate, "no-translate", false, "Insert placeholders even when a translator is configured")
	return cmd
}

func renderResult(res *validate.RunResult, opts validate.Options) error {
	p := printer()

	for _, w := range res.ScanWarnings {
		p.Warning("%s", w)
	}
	for _, d := range res.Diagnostics {
		p.Diag(d)
	}

	for _, fr := range res.Files {
		if fr.State.UpToDate() && fr.FormatErr == nil && !fr.LegacyMarker {
			name := fr.Locale
			if fr.DisplayName != "" {
				name = fmt.Sprintf("%s (%s)", fr.Locale, fr.DisplayName)
			}
			p.Info("%s: up to date", name)
		}
	}

	if res.Failed {
		p.Error("%s", i18n.T("Validation failed"))
		return errValidationFailed
	}
	p.Success("%s", i18n.T("Validation passed"))
	return nil
}

// ---------------------------------------------------------------------------
// auth (manage provider API keys)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage machine-translation provider API keys",
		Long: `Store, remove, and list provider API keys.

Keys live in $XDG_DATA_HOME/keyling/auth.json with owner-only permissions.
The ` + settings.EnvAPIKey + ` environment variable overrides the store.

Examples:
  keyling auth login --provider openai --api-key sk-...
  keyling auth logout --provider openai
  keyling auth list`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var provider, apiKey string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" || apiKey == "" {
				return errors.New("auth login requires --provider and --api-key")
			}
			if err := settings.SetAPIKey(provider, apiKey); err != nil {
				return err
			}
			printer().Success("stored API key for %s", provider)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name: openai, groq, gemini, custom-openai")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to store")
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove a stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				return errors.New("auth logout requires --provider")
			}
			if err := settings.DeleteAPIKey(provider); err != nil {
				return err
			}
			printer().Success("removed API key for %s", provider)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List providers with stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settings.Load()
			if err != nil {
				return err
			}
			if len(store) == 0 {
				printer().Info("no stored credentials")
				return nil
			}
			providers := make([]string, 0, len(store))
			for provider := range store {
				providers = append(providers, provider)
			}
			sort.Strings(providers)
			for _, provider := range providers {
				fmt.Println(provider)
			}
			return nil
		},
	}
}
