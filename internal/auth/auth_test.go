package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/hyperifyio/nbexport/internal/cache"
)

// fakeIdentity serves the token endpoint; auth codes are accepted only with a
// PKCE verifier.
func fakeIdentity(t *testing.T, refreshes *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "the-code" || r.Form.Get("code_verifier") == "" {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "fresh", "token_type": "Bearer", "refresh_token": "rt", "expires_in": 3600,
			})
		case "refresh_token":
			atomic.AddInt32(refreshes, 1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "refreshed", "token_type": "Bearer", "expires_in": 3600,
			})
		default:
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		}
	}))
}

// approve simulates the user approving consent by following the redirect.
func approve(code string) func(string) error {
	return func(raw string) error {
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		q := u.Query()
		if q.Get("code_challenge_method") != "S256" {
			return errors.New("missing PKCE challenge")
		}
		cb := q.Get("redirect_uri") + "?" + url.Values{"code": {code}, "state": {q.Get("state")}}.Encode()
		go func() {
			resp, err := http.Get(cb)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestToken_StaticTokenWins(t *testing.T) {
	p := New(Options{AccessToken: "static", ClientID: "id", Interactive: true})
	tok, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "static" {
		t.Fatalf("expected static token, got %q", tok.AccessToken)
	}
}

func TestToken_NoClient(t *testing.T) {
	p := New(Options{})
	if _, err := p.Token(context.Background()); !errors.Is(err, ErrNoClient) {
		t.Fatalf("expected ErrNoClient, got %v", err)
	}
}

func TestToken_NonInteractiveWithoutCache(t *testing.T) {
	p := New(Options{ClientID: "id", Cache: &cache.TokenCache{Dir: t.TempDir()}})
	if _, err := p.Token(context.Background()); !errors.Is(err, ErrInteractionRequired) {
		t.Fatalf("expected ErrInteractionRequired, got %v", err)
	}
}

func TestToken_ConsentFlowCachesToken(t *testing.T) {
	var refreshes int32
	srv := fakeIdentity(t, &refreshes)
	defer srv.Close()

	tc := &cache.TokenCache{Dir: t.TempDir(), StrictPerms: true}
	p := New(Options{
		ClientID:    "id",
		Cache:       tc,
		HTTPClient:  srv.Client(),
		Endpoint:    oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		Interactive: true,
		OpenURL:     approve("the-code"),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tok, err := p.Token(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "fresh" {
		t.Fatalf("expected fresh, got %q", tok.AccessToken)
	}
	entry, err := tc.Load(ctx, cache.TokenKey("id", Scopes))
	if err != nil {
		t.Fatalf("expected cached token: %v", err)
	}
	if entry.Token.RefreshToken != "rt" {
		t.Fatalf("expected refresh token cached, got %q", entry.Token.RefreshToken)
	}

	// A second provider picks the token up from the cache without consent.
	p2 := New(Options{ClientID: "id", Cache: tc, HTTPClient: srv.Client(),
		Endpoint: oauth2.Endpoint{TokenURL: srv.URL + "/token"}})
	tok2, err := p2.Token(ctx)
	if err != nil {
		t.Fatalf("cached token: %v", err)
	}
	if tok2.AccessToken != "fresh" || atomic.LoadInt32(&refreshes) != 0 {
		t.Fatalf("expected cached token without refresh, got %q (refreshes=%d)", tok2.AccessToken, refreshes)
	}
}

func TestToken_ExpiredCacheIsRefreshed(t *testing.T) {
	var refreshes int32
	srv := fakeIdentity(t, &refreshes)
	defer srv.Close()

	tc := &cache.TokenCache{Dir: t.TempDir()}
	key := cache.TokenKey("id", Scopes)
	old := &oauth2.Token{AccessToken: "old", RefreshToken: "rt", Expiry: time.Now().Add(-time.Hour)}
	if err := tc.Save(context.Background(), key, cache.TokenEntry{ClientID: "id", Token: old}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p := New(Options{ClientID: "id", Cache: tc, HTTPClient: srv.Client(),
		Endpoint: oauth2.Endpoint{TokenURL: srv.URL + "/token"}})
	tok, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "refreshed" || atomic.LoadInt32(&refreshes) != 1 {
		t.Fatalf("expected one refresh, got %q (refreshes=%d)", tok.AccessToken, refreshes)
	}
	entry, _ := tc.Load(context.Background(), key)
	if entry == nil || entry.Token.AccessToken != "refreshed" {
		t.Fatalf("expected refreshed token persisted")
	}
}

func TestLogin_StateMismatchFails(t *testing.T) {
	p := New(Options{
		ClientID:    "id",
		Endpoint:    oauth2.Endpoint{AuthURL: "http://127.0.0.1/auth", TokenURL: "http://127.0.0.1/token"},
		Interactive: true,
		OpenURL: func(raw string) error {
			u, _ := url.Parse(raw)
			cb := u.Query().Get("redirect_uri") + "?code=x&state=wrong"
			go func() {
				if resp, err := http.Get(cb); err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.Login(ctx); err == nil || err.Error() != "oauth state mismatch" {
		t.Fatalf("expected state mismatch, got %v", err)
	}
}

func TestLogout_RemovesCachedToken(t *testing.T) {
	tc := &cache.TokenCache{Dir: t.TempDir()}
	key := cache.TokenKey("id", Scopes)
	_ = tc.Save(context.Background(), key, cache.TokenEntry{Token: &oauth2.Token{AccessToken: "x"}})
	p := New(Options{ClientID: "id", Cache: tc})
	if err := p.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := p.Token(context.Background()); !errors.Is(err, ErrInteractionRequired) {
		t.Fatalf("expected ErrInteractionRequired after logout, got %v", err)
	}
}

func TestLogoutAll_ClearsEveryClient(t *testing.T) {
	tc := &cache.TokenCache{Dir: t.TempDir()}
	for _, id := range []string{"id", "other"} {
		_ = tc.Save(context.Background(), cache.TokenKey(id, Scopes), cache.TokenEntry{Token: &oauth2.Token{AccessToken: id}})
	}
	p := New(Options{ClientID: "id", Cache: tc})
	n, err := p.LogoutAll(context.Background())
	if err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tokens removed, got %d", n)
	}
	if _, err := tc.Load(context.Background(), cache.TokenKey("other", Scopes)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected other client's token gone, got %v", err)
	}
}
