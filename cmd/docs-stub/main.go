// Command docs-stub fakes the Google Docs and Drive endpoints nbexport calls,
// for local end-to-end runs. Point api.docsBase, api.driveUploadBase and
// api.docsWebBase at it and use any GOOGLE_ACCESS_TOKEN.
package main

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nbexport/internal/docs"
)

type document struct {
	ID    string `json:"documentId"`
	Title string `json:"title"`
	// Body is the document text in UTF-16 code units, index 1 first.
	Body     []uint16 `json:"-"`
	Text     string   `json:"text"`
	HTML     string   `json:"html,omitempty"`
	Requests int      `json:"requests"`
}

type store struct {
	mu   sync.Mutex
	docs map[string]*document
}

func newStore() *store { return &store{docs: map[string]*document{}} }

func (s *store) add(title, html string) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &document{ID: uuid.NewString(), Title: title, HTML: html}
	s.docs[d.ID] = d
	return d
}

func (s *store) get(id string) (document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return document{}, false
	}
	out := *d
	out.Text = string(utf16.Decode(d.Body))
	return out, true
}

// apply runs insertText requests against the body; style requests are only
// range-checked.
func (s *store) apply(id string, reqs []docs.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	body := append([]uint16(nil), d.Body...)
	for i, r := range reqs {
		switch {
		case r.InsertText != nil:
			text := utf16.Encode([]rune(r.InsertText.Text))
			at := len(body)
			if r.InsertText.Location != nil {
				at = r.InsertText.Location.Index - docs.FirstBodyIndex
			}
			if at < 0 || at > len(body) {
				return fmt.Errorf("requests[%d]: index %d out of range", i, at+docs.FirstBodyIndex)
			}
			next := make([]uint16, 0, len(body)+len(text))
			next = append(next, body[:at]...)
			next = append(next, text...)
			body = append(next, body[at:]...)
		case r.UpdateTextStyle != nil:
			if err := checkRange(r.UpdateTextStyle.Range, len(body)); err != nil {
				return fmt.Errorf("requests[%d]: %w", i, err)
			}
		case r.UpdateParagraphStyle != nil:
			if err := checkRange(r.UpdateParagraphStyle.Range, len(body)); err != nil {
				return fmt.Errorf("requests[%d]: %w", i, err)
			}
		default:
			return fmt.Errorf("requests[%d]: unsupported request", i)
		}
	}
	// A batch lands whole or not at all.
	d.Body = body
	d.Requests += len(reqs)
	return nil
}

func checkRange(r docs.Range, bodyLen int) error {
	if r.StartIndex < docs.FirstBodyIndex || r.EndIndex <= r.StartIndex || r.EndIndex > bodyLen+docs.FirstBodyIndex {
		return fmt.Errorf("range [%d,%d) outside body of length %d", r.StartIndex, r.EndIndex, bodyLen)
	}
	return nil
}

func requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

func newHandler(s *store) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload/drive/v3/files", requireBearer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("uploadType") != "multipart" {
			writeError(w, http.StatusBadRequest, "uploadType=multipart required")
			return
		}
		mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mt != "multipart/related" {
			writeError(w, http.StatusBadRequest, "multipart/related body required")
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		var meta struct {
			Name     string `json:"name"`
			MimeType string `json:"mimeType"`
		}
		part, err := mr.NextPart()
		if err != nil || json.NewDecoder(part).Decode(&meta) != nil {
			writeError(w, http.StatusBadRequest, "metadata part missing")
			return
		}
		part, err = mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, "media part missing")
			return
		}
		media, _ := io.ReadAll(part)
		d := s.add(meta.Name, string(media))
		log.Info().Str("id", d.ID).Str("name", meta.Name).Int("bytes", len(media)).Msg("upload")
		writeJSON(w, http.StatusOK, map[string]string{"id": d.ID, "name": meta.Name, "mimeType": meta.MimeType})
	}))

	mux.HandleFunc("POST /v1/documents", requireBearer(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Title string `json:"title"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		d := s.add(in.Title, "")
		log.Info().Str("id", d.ID).Str("title", in.Title).Msg("create")
		writeJSON(w, http.StatusOK, map[string]string{"documentId": d.ID, "title": in.Title})
	}))

	// POST /v1/documents/{id}:batchUpdate and GET /v1/documents/{id}
	mux.HandleFunc("/v1/documents/{action}", requireBearer(func(w http.ResponseWriter, r *http.Request) {
		action := r.PathValue("action")
		if id, ok := strings.CutSuffix(action, ":batchUpdate"); ok && r.Method == http.MethodPost {
			var in struct {
				Requests []docs.Request `json:"requests"`
			}
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if err := s.apply(id, in.Requests); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Info().Str("id", id).Int("requests", len(in.Requests)).Msg("batchUpdate")
			writeJSON(w, http.StatusOK, map[string]any{"documentId": id, "replies": make([]struct{}, len(in.Requests))})
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		d, ok := s.get(action)
		if !ok {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, d)
	}))

	// Stands in for the editor page opened after an export.
	mux.HandleFunc("GET /document/d/{id}/edit", func(w http.ResponseWriter, r *http.Request) {
		d, ok := s.get(r.PathValue("id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if d.HTML != "" {
			fmt.Fprintf(w, "<!doctype html><title>%s</title>%s", html.EscapeString(d.Title), d.HTML)
			return
		}
		fmt.Fprintf(w, "<!doctype html><title>%s</title><pre>%s</pre>", html.EscapeString(d.Title), html.EscapeString(d.Text))
	})

	return mux
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8089"
	}
	log.Info().Str("addr", addr).Msg("docs-stub listening")
	srv := &http.Server{Addr: addr, Handler: newHandler(newStore()), ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("docs-stub")
	}
}
