// Package browser attaches to a Chrome instance over the DevTools protocol,
// resolves tabs, and runs the page extractors inside them.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"
)

// DefaultMatch is the URL prefix of the pages the exporter targets.
const DefaultMatch = "https://notebooklm.google.com/"

// ErrNoTab is returned when no attachable tab exists.
var ErrNoTab = errors.New("no matching tab")

// Config selects how the session reaches Chrome.
type Config struct {
	// ControlURL is a DevTools WebSocket URL ("ws://...") or the host:port of
	// a Chrome started with --remote-debugging-port. Empty with Launch=false
	// means "localhost:9222".
	ControlURL string
	// Launch starts a local Chrome instead of attaching to one.
	Launch   bool
	Headless bool
	// Match is the URL prefix used to pick the default tab.
	Match string
}

// Tab describes one attachable page target.
type Tab struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Session is a connected browser.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Connect attaches to (or launches) Chrome.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Match == "" {
		cfg.Match = DefaultMatch
	}
	s := &Session{cfg: cfg}

	var wsURL string
	switch {
	case cfg.Launch:
		l := launcher.New().Context(ctx).Headless(cfg.Headless)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		s.lnch = l
		wsURL = u
		log.Debug().Str("url", wsURL).Bool("headless", cfg.Headless).Msg("launched local chrome")
	case strings.HasPrefix(cfg.ControlURL, "ws://") || strings.HasPrefix(cfg.ControlURL, "wss://"):
		wsURL = cfg.ControlURL
	default:
		u, err := launcher.ResolveURL(cfg.ControlURL)
		if err != nil {
			return nil, fmt.Errorf("browser: resolve devtools url %q: %w", cfg.ControlURL, err)
		}
		wsURL = u
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b
	log.Debug().Str("url", wsURL).Msg("browser connected")
	return s, nil
}

// Close disconnects, and kills Chrome when the session launched it. An
// attached user browser is left running.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.browser != nil && s.lnch != nil {
		err = s.browser.Close()
	}
	s.browser = nil
	s.cleanup()
	return err
}

func (s *Session) cleanup() {
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

// Tabs lists page targets.
func (s *Session) Tabs(ctx context.Context) ([]Tab, error) {
	res, err := proto.TargetGetTargets{}.Call(s.browser.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("browser: list targets: %w", err)
	}
	tabs := make([]Tab, 0, len(res.TargetInfos))
	for _, info := range res.TargetInfos {
		if info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		tabs = append(tabs, Tab{ID: string(info.TargetID), URL: info.URL, Title: info.Title})
	}
	return tabs, nil
}

// DefaultTab picks the first tab whose URL starts with the configured
// match prefix.
func (s *Session) DefaultTab(ctx context.Context) (Tab, error) {
	tabs, err := s.Tabs(ctx)
	if err != nil {
		return Tab{}, err
	}
	for _, t := range tabs {
		if strings.HasPrefix(t.URL, s.cfg.Match) {
			return t, nil
		}
	}
	return Tab{}, fmt.Errorf("%w: no tab at %s", ErrNoTab, s.cfg.Match)
}

// Title returns the current title of a tab.
func (s *Session) Title(ctx context.Context, target string) (string, error) {
	tabs, err := s.Tabs(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range tabs {
		if t.ID == target {
			return t.Title, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoTab, target)
}

func (s *Session) page(ctx context.Context, target string) (*rod.Page, error) {
	p, err := s.browser.PageFromTarget(proto.TargetTargetID(target))
	if err != nil {
		return nil, fmt.Errorf("browser: attach tab %s: %w", target, err)
	}
	return p.Context(ctx), nil
}

// Open shows url in a new tab.
func (s *Session) Open(ctx context.Context, url string) error {
	if _, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url}); err != nil {
		return fmt.Errorf("browser: open %s: %w", url, err)
	}
	return nil
}

// Navigate opens url in a fresh stealth tab, waits for the load event and
// returns the new tab.
func (s *Session) Navigate(ctx context.Context, url string) (Tab, error) {
	p, err := stealth.Page(s.browser)
	if err != nil {
		return Tab{}, fmt.Errorf("browser: create tab: %w", err)
	}
	if err := p.Context(ctx).Navigate(url); err != nil {
		_ = p.Close()
		return Tab{}, fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.Context(ctx).WaitLoad(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("wait load failed")
	}
	tab := Tab{ID: string(p.TargetID), URL: url}
	if info, err := p.Info(); err == nil {
		tab.Title = info.Title
	}
	return tab, nil
}
