package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/hyperifyio/nbexport/internal/docs"
	"github.com/hyperifyio/nbexport/internal/gdocs"
)

func stubClient(t *testing.T) (*gdocs.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(newHandler(newStore()))
	return &gdocs.Client{
		HTTPClient: srv.Client(),
		Tokens:     oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "any"}),
		DocsBase:   srv.URL,
		UploadBase: srv.URL,
		WebBase:    srv.URL,
	}, srv
}

func fetchDoc(t *testing.T, srv *httptest.Server, id string) document {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/documents/"+id, nil)
	req.Header.Set("Authorization", "Bearer any")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("get doc: %v", err)
	}
	defer resp.Body.Close()
	var d document
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decode doc: %v", err)
	}
	return d
}

func TestStub_CompiledRequestsRebuildText(t *testing.T) {
	c, srv := stubClient(t)
	defer srv.Close()

	size := 14
	msgs := []docs.ChatMessage{
		{Runs: []docs.Run{{Text: "Héllo "}, {Text: "wörld 👋", Bold: true, FontSizePt: &size}}},
		{Runs: []docs.Run{{Text: ""}}},
		{Runs: []docs.Run{{Text: "Second"}}},
	}
	doc, err := c.CreateDocument(context.Background(), "T")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	reqs := docs.Compile(msgs)
	if err := c.BatchUpdate(context.Background(), doc.DocumentID, reqs); err != nil {
		t.Fatalf("batch update: %v", err)
	}
	got := fetchDoc(t, srv, doc.DocumentID)
	if want := "Héllo wörld 👋\n\nSecond\n"; got.Text != want {
		t.Fatalf("expected %q, got %q", want, got.Text)
	}
	if got.Requests != len(reqs) {
		t.Fatalf("expected %d applied requests, got %d", len(reqs), got.Requests)
	}
}

func TestStub_RejectsOutOfRangeStyle(t *testing.T) {
	c, srv := stubClient(t)
	defer srv.Close()
	doc, _ := c.CreateDocument(context.Background(), "T")
	bad := []docs.Request{{UpdateTextStyle: &docs.UpdateTextStyleRequest{
		Range: docs.Range{StartIndex: 1, EndIndex: 5}, TextStyle: docs.TextStyle{Bold: true}, Fields: "bold",
	}}}
	err := c.BatchUpdate(context.Background(), doc.DocumentID, bad)
	if err == nil {
		t.Fatalf("expected range error on empty document")
	}
}

func TestStub_UploadAndRequireBearer(t *testing.T) {
	c, srv := stubClient(t)
	defer srv.Close()
	f, err := c.UploadHTML(context.Background(), "Up", "<p>x</p>")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got := fetchDoc(t, srv, f.ID); got.Title != "Up" || got.HTML != "<p>x</p>" {
		t.Fatalf("unexpected stored doc %+v", got)
	}

	resp, err := http.Post(srv.URL+"/v1/documents", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer, got %d", resp.StatusCode)
	}
}

func TestStub_RejectedBatchLeavesDocumentUnchanged(t *testing.T) {
	c, srv := stubClient(t)
	defer srv.Close()
	doc, _ := c.CreateDocument(context.Background(), "T")
	if err := c.BatchUpdate(context.Background(), doc.DocumentID, []docs.Request{docs.InsertAt(1, "Keep\n")}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	batch := []docs.Request{
		docs.InsertAt(1, "Hello"),
		{UpdateTextStyle: &docs.UpdateTextStyleRequest{
			Range: docs.Range{StartIndex: 1, EndIndex: 99}, TextStyle: docs.TextStyle{Bold: true}, Fields: "bold",
		}},
	}
	if err := c.BatchUpdate(context.Background(), doc.DocumentID, batch); err == nil {
		t.Fatalf("expected out-of-range batch to fail")
	}
	got := fetchDoc(t, srv, doc.DocumentID)
	if got.Text != "Keep\n" {
		t.Fatalf("expected text unchanged after rejected batch, got %q", got.Text)
	}
	if got.Requests != 1 {
		t.Fatalf("expected 1 applied request, got %d", got.Requests)
	}
}

func TestStub_AppendTextGoesToEndOfBody(t *testing.T) {
	c, srv := stubClient(t)
	defer srv.Close()
	doc, _ := c.CreateDocument(context.Background(), "T")
	reqs := []docs.Request{docs.InsertAt(1, "first\n"), docs.AppendText("second\n")}
	if err := c.BatchUpdate(context.Background(), doc.DocumentID, reqs); err != nil {
		t.Fatalf("batch update: %v", err)
	}
	if got := fetchDoc(t, srv, doc.DocumentID).Text; got != "first\nsecond\n" {
		t.Fatalf("expected appended text at end, got %q", got)
	}
}
