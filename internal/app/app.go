package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nbexport/internal/auth"
	"github.com/hyperifyio/nbexport/internal/browser"
	"github.com/hyperifyio/nbexport/internal/cache"
	"github.com/hyperifyio/nbexport/internal/exporter"
	"github.com/hyperifyio/nbexport/internal/extract"
	"github.com/hyperifyio/nbexport/internal/gdocs"
	"github.com/hyperifyio/nbexport/internal/relay"
)

// SnapshotTarget is the tab id under which a snapshot page is served.
const SnapshotTarget = "snapshot"

// ErrNoContent is returned when the page had nothing to export. The CLI maps
// it to exit code 2.
var ErrNoContent = exporter.ErrNoContent

// App wires configuration to the browser session, relay, token provider and
// document client.
type App struct {
	cfg     Config
	http    *http.Client
	session *browser.Session
	relay   *relay.Relay
	auth    *auth.Provider
	docs    *gdocs.Client
	tabs    relay.TabLister

	authOpen  func(string) error
	noBrowser bool
}

// Option customizes New, mainly for tests.
type Option func(*App)

// WithExtractor replaces the browser-backed extractor.
func WithExtractor(x extract.PageExtractor, tabs relay.TabLister) Option {
	return func(a *App) {
		a.relay.Extractor = x
		a.tabs = tabs
	}
}

// WithoutBrowser skips the browser connection, for commands that only need
// the token provider.
func WithoutBrowser() Option {
	return func(a *App) { a.noBrowser = true }
}

// WithOpenURL sets how the consent URL is shown during interactive sign-in.
func WithOpenURL(open func(string) error) Option {
	return func(a *App) { a.authOpen = open }
}

func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:   cfg,
		http:  newAPIHTTPClient(!cfg.InsecureTLS),
		relay: &relay.Relay{Timeout: cfg.ExtractTimeout},
	}
	for _, o := range opts {
		o(a)
	}

	a.auth = auth.New(auth.Options{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		AccessToken:  cfg.AccessToken,
		Cache:        &cache.TokenCache{Dir: cfg.TokenDir, StrictPerms: true},
		HTTPClient:   a.http,
		Interactive:  true,
		OpenURL:      a.authOpen,
	})
	a.docs = &gdocs.Client{
		HTTPClient: a.http,
		Tokens:     a.auth.TokenSource(ctx),
		DocsBase:   cfg.DocsBase,
		UploadBase: cfg.UploadBase,
		WebBase:    cfg.WebBase,
	}

	if a.relay.Extractor != nil || a.noBrowser {
		return a, nil
	}
	if strings.TrimSpace(cfg.SnapshotPath) != "" {
		snap, err := extract.LoadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		a.relay.Extractor = &extract.Static{Pages: map[string]extract.Snapshot{SnapshotTarget: snap}}
		a.tabs = staticTabs{{ID: SnapshotTarget, URL: "file://" + cfg.SnapshotPath}}
		log.Debug().Str("path", cfg.SnapshotPath).Msg("serving extractions from snapshot")
		return a, nil
	}

	s, err := browser.Connect(ctx, browser.Config{
		ControlURL: cfg.BrowserURL,
		Launch:     cfg.BrowserLaunch,
		Headless:   cfg.BrowserHeadless,
		Match:      cfg.BrowserMatch,
	})
	if err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	a.session = s
	a.relay.Extractor = s
	a.tabs = s
	return a, nil
}

// Close releases the browser session.
func (a *App) Close() {
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			log.Debug().Err(err).Msg("browser close")
		}
	}
}

// Target resolves the tab to work on: the configured tab id, a freshly
// navigated page, or the first tab matching the configured URL prefix.
func (a *App) Target(ctx context.Context) (string, error) {
	if a.cfg.TabID != "" {
		return a.cfg.TabID, nil
	}
	if a.session == nil {
		if a.tabs == nil {
			return "", errors.New(relay.MsgNoTarget)
		}
		tabs, err := a.tabs.Tabs(ctx)
		if err != nil {
			return "", err
		}
		if len(tabs) == 0 {
			return "", errors.New(relay.MsgNoTarget)
		}
		return tabs[0].ID, nil
	}
	if a.cfg.NavigateURL != "" {
		tab, err := a.session.Navigate(ctx, a.cfg.NavigateURL)
		if err != nil {
			return "", err
		}
		return tab.ID, nil
	}
	tab, err := a.session.DefaultTab(ctx)
	if err != nil {
		return "", err
	}
	return tab.ID, nil
}

// Export runs one export and reports progress through status.
func (a *App) Export(ctx context.Context, status func(string)) (exporter.Outcome, error) {
	target, err := a.Target(ctx)
	if err != nil {
		return exporter.Outcome{}, err
	}
	e := &exporter.Exporter{
		Tokens:  a.auth,
		Content: a.relay,
		Docs:    a.docs,
		Status:  status,
	}
	if a.session != nil {
		e.Opener = a.session
	}
	return e.Export(ctx, exporter.Options{
		Target:      target,
		Title:       a.cfg.Title,
		Structured:  a.cfg.Structured,
		Selection:   a.cfg.Selection,
		Sanitize:    a.cfg.Sanitize,
		Open:        a.cfg.Open,
		PreviewPath: a.cfg.PreviewPath,
		PDFPath:     a.cfg.PDFPath,
	})
}

// Extract runs one extraction mode through the relay.
func (a *App) Extract(ctx context.Context, mode extract.Mode) (extract.Result, error) {
	target, err := a.Target(ctx)
	if err != nil {
		return extract.Result{}, err
	}
	return a.relay.Handle(ctx, relay.Request{Type: mode.MessageType(), TabID: target}, relay.Sender{}), nil
}

// Tabs lists attachable tabs.
func (a *App) Tabs(ctx context.Context) ([]browser.Tab, error) {
	if a.tabs == nil {
		return nil, nil
	}
	return a.tabs.Tabs(ctx)
}

// Handler returns the relay HTTP surface.
func (a *App) Handler() http.Handler {
	return relay.Routes(a.relay, a.tabs)
}

// Serve runs the relay HTTP surface until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	return relay.Serve(ctx, a.cfg.ServeAddr, a.Handler())
}

// Login runs interactive consent and caches the token.
func (a *App) Login(ctx context.Context) error {
	tok, err := a.auth.Login(ctx)
	if err != nil {
		return err
	}
	log.Info().Time("expiry", tok.Expiry).Msg("signed in")
	return nil
}

// Logout forgets the cached token.
func (a *App) Logout(ctx context.Context) error {
	return a.auth.Logout(ctx)
}

// LogoutAll removes every cached token under oauth.tokenDir.
func (a *App) LogoutAll(ctx context.Context) (int, error) {
	return a.auth.LogoutAll(ctx)
}

type staticTabs []browser.Tab

func (s staticTabs) Tabs(context.Context) ([]browser.Tab, error) { return s, nil }
