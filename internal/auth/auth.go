// Package auth obtains OAuth2 access tokens for the Google Docs and Drive APIs.
//
// Sources are tried in order: a static access token, a cached token (refreshed
// through its refresh token when expired), then interactive consent through a
// loopback redirect.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hyperifyio/nbexport/internal/cache"
)

const (
	ScopeDocuments = "https://www.googleapis.com/auth/documents"
	ScopeDriveFile = "https://www.googleapis.com/auth/drive.file"
)

// Scopes requested for every export.
var Scopes = []string{ScopeDocuments, ScopeDriveFile}

// ErrNoClient is returned when no static token is set and no OAuth client is
// configured to obtain one.
var ErrNoClient = errors.New("no OAuth client configured (set oauth.clientID or GOOGLE_ACCESS_TOKEN)")

// ErrInteractionRequired is returned when a consent flow would be needed but
// the provider is not allowed to start one.
var ErrInteractionRequired = errors.New("interactive sign-in required (run nbexport login)")

// Options configures a Provider.
type Options struct {
	ClientID     string
	ClientSecret string
	// AccessToken short-circuits every other source when set.
	AccessToken string
	Cache       *cache.TokenCache
	HTTPClient  *http.Client
	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
	// Interactive allows Token to fall back to the consent flow.
	Interactive bool
	// ListenAddr is the loopback address for the consent redirect.
	ListenAddr string
	// OpenURL presents the consent URL to the user. Nil prints it to stderr.
	OpenURL func(url string) error
}

// Provider hands out access tokens. It is safe for concurrent use; a token
// obtained once is reused until it expires.
type Provider struct {
	opts Options

	mu  sync.Mutex
	src oauth2.TokenSource
}

func New(opts Options) *Provider {
	if opts.Endpoint.AuthURL == "" && opts.Endpoint.TokenURL == "" {
		opts.Endpoint = google.Endpoint
	}
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}
	return &Provider{opts: opts}
}

func (p *Provider) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.opts.ClientID,
		ClientSecret: p.opts.ClientSecret,
		Endpoint:     p.opts.Endpoint,
		Scopes:       Scopes,
		RedirectURL:  redirectURL,
	}
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	if p.opts.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.opts.HTTPClient)
}

func (p *Provider) cacheKey() string {
	return cache.TokenKey(p.opts.ClientID, Scopes)
}

// Token returns a valid access token.
func (p *Provider) Token(ctx context.Context) (*oauth2.Token, error) {
	if s := strings.TrimSpace(p.opts.AccessToken); s != "" {
		return &oauth2.Token{AccessToken: s, TokenType: "Bearer"}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src != nil {
		tok, err := p.src.Token()
		if err == nil {
			return tok, nil
		}
		log.Debug().Err(err).Msg("token source failed; reacquiring")
		p.src = nil
	}

	if strings.TrimSpace(p.opts.ClientID) == "" {
		return nil, ErrNoClient
	}

	if tok, err := p.fromCache(ctx); err == nil {
		return tok, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("cached token unusable")
	}

	if !p.opts.Interactive {
		return nil, ErrInteractionRequired
	}
	tok, err := p.consent(ctx)
	if err != nil {
		return nil, err
	}
	p.adopt(ctx, tok)
	return tok, nil
}

// TokenSource adapts the provider to oauth2.TokenSource bound to ctx.
func (p *Provider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) { return p.Token(ctx) })
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

// Login always runs the consent flow and replaces any cached token.
func (p *Provider) Login(ctx context.Context) (*oauth2.Token, error) {
	if strings.TrimSpace(p.opts.ClientID) == "" {
		return nil, ErrNoClient
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	tok, err := p.consent(ctx)
	if err != nil {
		return nil, err
	}
	p.adopt(ctx, tok)
	return tok, nil
}

// Logout forgets the cached token.
func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	p.src = nil
	p.mu.Unlock()
	if p.opts.Cache == nil {
		return nil
	}
	return p.opts.Cache.Remove(ctx, p.cacheKey())
}

// LogoutAll forgets every cached token, whichever client saved it.
func (p *Provider) LogoutAll(ctx context.Context) (int, error) {
	p.mu.Lock()
	p.src = nil
	p.mu.Unlock()
	if p.opts.Cache == nil {
		return 0, nil
	}
	return p.opts.Cache.Clear(ctx)
}

func (p *Provider) fromCache(ctx context.Context) (*oauth2.Token, error) {
	if p.opts.Cache == nil {
		return nil, os.ErrNotExist
	}
	entry, err := p.opts.Cache.Load(ctx, p.cacheKey())
	if err != nil {
		return nil, err
	}
	src := p.oauthConfig("").TokenSource(p.clientContext(ctx), entry.Token)
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh cached token: %w", err)
	}
	if tok.AccessToken != entry.Token.AccessToken {
		p.save(ctx, tok)
	}
	p.src = oauth2.ReuseTokenSource(tok, src)
	log.Debug().Time("expiry", tok.Expiry).Msg("using cached token")
	return tok, nil
}

func (p *Provider) adopt(ctx context.Context, tok *oauth2.Token) {
	p.save(ctx, tok)
	src := p.oauthConfig("").TokenSource(p.clientContext(ctx), tok)
	p.src = oauth2.ReuseTokenSource(tok, src)
}

func (p *Provider) save(ctx context.Context, tok *oauth2.Token) {
	if p.opts.Cache == nil {
		return
	}
	entry := cache.TokenEntry{ClientID: p.opts.ClientID, Scopes: Scopes, Token: tok}
	if err := p.opts.Cache.Save(ctx, p.cacheKey(), entry); err != nil {
		log.Warn().Err(err).Msg("token cache save failed")
	}
}
