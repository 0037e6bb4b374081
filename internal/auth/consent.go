package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const callbackPath = "/callback"

type callbackResult struct {
	code string
	err  error
}

// consent runs the authorization code flow with PKCE against a loopback
// redirect and exchanges the returned code.
func (p *Provider) consent(ctx context.Context) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", p.opts.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}
	redirect := "http://" + ln.Addr().String() + callbackPath
	cfg := p.oauthConfig(redirect)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = errors.New("oauth state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("authorization response has no code")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = w.Write([]byte("Signed in. You can close this tab.\n"))
		}
		select {
		case results <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Close() }()

	open := p.opts.OpenURL
	if open == nil {
		open = func(u string) error {
			_, err := fmt.Fprintf(os.Stderr, "Open this URL to authorize nbexport:\n\n  %s\n\n", u)
			return err
		}
	}
	log.Debug().Str("redirect", redirect).Msg("starting oauth consent")
	if err := open(authURL); err != nil {
		return nil, fmt.Errorf("open consent url: %w", err)
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := cfg.Exchange(p.clientContext(ctx), res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	log.Debug().Int("token_len", len(tok.AccessToken)).Msg("oauth consent complete")
	return tok, nil
}
