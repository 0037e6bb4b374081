package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nbexport/internal/browser"
)

// SenderHeader carries the caller's own tab id, the HTTP stand-in for the
// message sender's context.
const SenderHeader = "X-Sender-Tab"

// TabLister reports the tabs a caller may target.
type TabLister interface {
	Tabs(ctx context.Context) ([]browser.Tab, error)
}

// Routes exposes the relay protocol over HTTP:
//
//	POST /messages   {type, tabId} -> protocol response
//	GET  /tabs       attachable tabs
//	GET  /healthz
func Routes(r *Relay, tabs TabLister) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(requestLogger)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	mux.Post("/messages", func(w http.ResponseWriter, req *http.Request) {
		var msg Request
		if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid request body"})
			return
		}
		res := r.Handle(req.Context(), msg, Sender{TabID: req.Header.Get(SenderHeader)})
		status := http.StatusOK
		if !res.OK && res.Error == MsgUnknownRequest {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, res)
	})
	mux.Get("/tabs", func(w http.ResponseWriter, req *http.Request) {
		if tabs == nil {
			writeJSON(w, http.StatusOK, []browser.Tab{})
			return
		}
		list, err := tabs.Tabs(req.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
	return mux
}

// Serve runs the HTTP surface until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("relay listening")
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("relay request")
	})
}
