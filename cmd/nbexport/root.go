package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/nbexport/internal/app"
)

var (
	cfgFile string
	// flags holds parsed flag values; only flags the user set are copied over
	// the file and environment layers.
	flags  = app.DefaultConfig()
	noOpen bool
)

var rootCmd = &cobra.Command{
	Use:   "nbexport",
	Short: "Export NotebookLM chat content to Google Docs",
	Long: `nbexport attaches to a running Chrome over the DevTools protocol, reads the
chat content of a NotebookLM tab and turns it into a Google Doc.

Configuration is layered: flags, then environment (.env files included),
then the optional --config file, then defaults.`,
	Version:       app.BuildVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML or JSON config file")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Verbose logging")

	pf.StringVar(&flags.BrowserURL, "browser.url", flags.BrowserURL, "DevTools host:port or ws:// URL of a running Chrome")
	pf.BoolVar(&flags.BrowserLaunch, "browser.launch", false, "Launch a local Chrome instead of attaching")
	pf.BoolVar(&flags.BrowserHeadless, "browser.headless", false, "Run a launched Chrome headless")
	pf.StringVar(&flags.BrowserMatch, "browser.match", flags.BrowserMatch, "URL prefix used to pick the default tab")
	pf.StringVar(&flags.TabID, "tab", "", "Target tab id (see `nbexport tabs`)")
	pf.StringVar(&flags.NavigateURL, "url", "", "Open this URL in a new tab and target it")
	pf.StringVar(&flags.SnapshotPath, "snapshot", "", "Read from a saved HTML page instead of a browser")
	pf.DurationVar(&flags.ExtractTimeout, "extract.timeout", 0, "Deadline for each page extraction (0 waits indefinitely)")

	pf.StringVar(&flags.OAuthClientID, "oauth.clientID", "", "OAuth client id")
	pf.StringVar(&flags.OAuthClientSecret, "oauth.clientSecret", "", "OAuth client secret")
	pf.StringVar(&flags.TokenDir, "oauth.tokenDir", flags.TokenDir, "Directory of cached OAuth tokens")
	pf.StringVar(&flags.AccessToken, "oauth.accessToken", "", "Use this access token as is (skips OAuth)")

	pf.StringVar(&flags.DocsBase, "api.docsBase", "", "Docs API base URL")
	pf.StringVar(&flags.UploadBase, "api.driveUploadBase", "", "Drive upload base URL")
	pf.StringVar(&flags.WebBase, "api.docsWebBase", "", "Base URL of opened documents")
	pf.BoolVar(&flags.InsecureTLS, "api.insecureTLS", false, "Skip TLS verification (local stubs only)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		resolved = cfg
		return nil
	}

	rootCmd.AddCommand(exportCmd, extractCmd, tabsCmd, serveCmd, loginCmd, logoutCmd, versionCmd)
}

// resolved is the configuration for the running command.
var resolved app.Config

// flagCopies moves an explicitly set flag value into the resolved config.
var flagCopies = map[string]func(dst *app.Config){
	"verbose":             func(d *app.Config) { d.Verbose = flags.Verbose },
	"browser.url":         func(d *app.Config) { d.BrowserURL = flags.BrowserURL },
	"browser.launch":      func(d *app.Config) { d.BrowserLaunch = flags.BrowserLaunch },
	"browser.headless":    func(d *app.Config) { d.BrowserHeadless = flags.BrowserHeadless },
	"browser.match":       func(d *app.Config) { d.BrowserMatch = flags.BrowserMatch },
	"tab":                 func(d *app.Config) { d.TabID = flags.TabID },
	"url":                 func(d *app.Config) { d.NavigateURL = flags.NavigateURL },
	"snapshot":            func(d *app.Config) { d.SnapshotPath = flags.SnapshotPath },
	"extract.timeout":     func(d *app.Config) { d.ExtractTimeout = flags.ExtractTimeout },
	"oauth.clientID":      func(d *app.Config) { d.OAuthClientID = flags.OAuthClientID },
	"oauth.clientSecret":  func(d *app.Config) { d.OAuthClientSecret = flags.OAuthClientSecret },
	"oauth.tokenDir":      func(d *app.Config) { d.TokenDir = flags.TokenDir },
	"oauth.accessToken":   func(d *app.Config) { d.AccessToken = flags.AccessToken },
	"api.docsBase":        func(d *app.Config) { d.DocsBase = flags.DocsBase },
	"api.driveUploadBase": func(d *app.Config) { d.UploadBase = flags.UploadBase },
	"api.docsWebBase":     func(d *app.Config) { d.WebBase = flags.WebBase },
	"api.insecureTLS":     func(d *app.Config) { d.InsecureTLS = flags.InsecureTLS },
	"title":               func(d *app.Config) { d.Title = flags.Title },
	"structured":          func(d *app.Config) { d.Structured = flags.Structured },
	"selection":           func(d *app.Config) { d.Selection = flags.Selection },
	"sanitize":            func(d *app.Config) { d.Sanitize = flags.Sanitize },
	"no-open":             func(d *app.Config) { d.Open = !noOpen },
	"dry-run":             func(d *app.Config) { d.PreviewPath = flags.PreviewPath },
	"pdf":                 func(d *app.Config) { d.PDFPath = flags.PDFPath },
	"addr":                func(d *app.Config) { d.ServeAddr = flags.ServeAddr },
}

// resolveConfig layers defaults, config file, environment and explicit flags.
func resolveConfig(cmd *cobra.Command) (app.Config, error) {
	if err := app.LoadEnvFiles(app.DefaultEnvFiles...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}
	cfg := app.DefaultConfig()
	if cfgFile != "" {
		fc, err := app.LoadConfigFile(cfgFile)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	for name, cp := range flagCopies {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			cp(&cfg)
		}
	}
	if cfg.ExtractTimeout < 0 {
		return app.Config{}, fmt.Errorf("extract.timeout must not be negative, got %s", cfg.ExtractTimeout.Round(time.Millisecond))
	}
	return cfg, nil
}
