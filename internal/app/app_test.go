package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nbexport/internal/extract"
)

const notebookPage = `<html><head><title>Research Notes</title></head><body>
<div class="chat-panel-content">
  <chat-message><div class="labs-tailwind-structural-element-view-v2"><span class="paragraph">Hello <b>there</b></span></div></chat-message>
</div></body></html>`

// fakeGoogle records uploads, creates and batch updates.
type fakeGoogle struct {
	mu      sync.Mutex
	uploads []string
	creates int
	batches int
}

func (f *fakeGoogle) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer static-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/upload/drive/v3/files":
			f.uploads = append(f.uploads, string(body))
			_, _ = w.Write([]byte(`{"id":"uploaded-1"}`))
		case "/v1/documents":
			f.creates++
			_, _ = w.Write([]byte(`{"documentId":"created-1"}`))
		case "/v1/documents/created-1:batchUpdate":
			f.batches++
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func snapshotConfig(t *testing.T, srvURL string) Config {
	t.Helper()
	p := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(p, []byte(notebookPage), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	cfg := DefaultConfig()
	cfg.SnapshotPath = p
	cfg.AccessToken = "static-token"
	cfg.TokenDir = t.TempDir()
	cfg.DocsBase = srvURL
	cfg.UploadBase = srvURL
	cfg.WebBase = "https://docs.example"
	return cfg
}

func TestApp_ExportFromSnapshot(t *testing.T) {
	g := &fakeGoogle{}
	srv := g.server(t)
	defer srv.Close()

	a, err := New(context.Background(), snapshotConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	var statuses []string
	out, err := a.Export(context.Background(), func(s string) { statuses = append(statuses, s) })
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.URL != "https://docs.example/document/d/uploaded-1/edit" {
		t.Fatalf("unexpected url %q", out.URL)
	}
	if out.Title != "Research Notes" {
		t.Fatalf("expected page title, got %q", out.Title)
	}
	if len(g.uploads) != 1 || !strings.Contains(g.uploads[0], "<b>there</b>") {
		t.Fatalf("expected one upload with chat html, got %v", g.uploads)
	}
	if !strings.Contains(g.uploads[0], `class="paragraph"`) {
		t.Fatalf("expected extracted markup uploaded unfiltered by default, got %v", g.uploads)
	}
	if statuses[len(statuses)-1] != "Done." {
		t.Fatalf("expected Done., got %v", statuses)
	}
}

func TestApp_StructuredExportFromSnapshot(t *testing.T) {
	g := &fakeGoogle{}
	srv := g.server(t)
	defer srv.Close()

	cfg := snapshotConfig(t, srv.URL)
	cfg.Structured = true
	cfg.Title = "Mine"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := a.Export(context.Background(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.DocumentID != "created-1" || out.Title != "Mine" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if g.creates != 1 || g.batches != 1 {
		t.Fatalf("expected one create and one batch update, got %d/%d", g.creates, g.batches)
	}
}

func TestApp_SelectionExportFromSnapshot(t *testing.T) {
	g := &fakeGoogle{}
	srv := g.server(t)
	defer srv.Close()

	cfg := snapshotConfig(t, srv.URL)
	cfg.Selection = true
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := a.Export(context.Background(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.Source != "selection" || out.Title != "Research Notes" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if g.creates != 1 || g.batches != 1 || len(g.uploads) != 0 {
		t.Fatalf("expected create and batch update without upload, got %d/%d/%d", g.creates, g.batches, len(g.uploads))
	}
}

func TestApp_ExtractAndServe(t *testing.T) {
	a, err := New(context.Background(), snapshotConfig(t, "http://unused"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := a.Extract(context.Background(), extract.ModeChatMessages)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !res.OK || len(res.Messages) != 1 {
		t.Fatalf("expected one message, got %+v", res)
	}

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()
	resp, err := http.Post(srv.URL+"/messages", "application/json", strings.NewReader(`{"type":"GET_EXPORT_HTML","tabId":"snapshot"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["source"] == nil {
		t.Fatalf("unexpected response %v", body)
	}

	tabs, err := a.Tabs(context.Background())
	if err != nil || len(tabs) != 1 || tabs[0].ID != SnapshotTarget {
		t.Fatalf("unexpected tabs %v (%v)", tabs, err)
	}
}

func TestApp_ServeLogsListenOnce(t *testing.T) {
	cfg := snapshotConfig(t, "http://unused")
	cfg.ServeAddr = "127.0.0.1:0"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Serve(ctx); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if n := strings.Count(buf.String(), "relay listening"); n != 1 {
		t.Fatalf("expected one listen line, got %d in %q", n, buf.String())
	}
}

func TestApp_MissingSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "nope.html")
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for missing snapshot")
	}
}

func TestVersionString(t *testing.T) {
	if !strings.Contains(VersionString(), BuildVersion) {
		t.Fatalf("expected version in %q", VersionString())
	}
}
