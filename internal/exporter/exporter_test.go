package exporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/hyperifyio/nbexport/internal/docs"
	"github.com/hyperifyio/nbexport/internal/extract"
	"github.com/hyperifyio/nbexport/internal/gdocs"
)

type staticTokens struct{ err error }

func (s staticTokens) Token(context.Context) (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: "tok"}, nil
}

type fakeContent struct {
	html     extract.Result
	messages  extract.Result
	selection extract.Result
	block     chan struct{}
}

func (f *fakeContent) ExportHTML(ctx context.Context, target string) extract.Result {
	if f.block != nil {
		<-f.block
	}
	return f.html
}

func (f *fakeContent) ChatMessages(ctx context.Context, target string) extract.Result {
	return f.messages
}

func (f *fakeContent) SelectionOrBlock(ctx context.Context, target string) extract.Result {
	return f.selection
}

type fakeDocs struct {
	uploadTitle, uploadHTML string
	uploadErr               error
	created                 []string
	batches                 [][]docs.Request
}

func (f *fakeDocs) UploadHTML(_ context.Context, title, html string) (gdocs.File, error) {
	f.uploadTitle, f.uploadHTML = title, html
	if f.uploadErr != nil {
		return gdocs.File{}, f.uploadErr
	}
	return gdocs.File{ID: "file-1"}, nil
}

func (f *fakeDocs) CreateDocument(_ context.Context, title string) (gdocs.Document, error) {
	f.created = append(f.created, title)
	return gdocs.Document{DocumentID: "doc-1", Title: title}, nil
}

func (f *fakeDocs) BatchUpdate(_ context.Context, id string, reqs []docs.Request) error {
	f.batches = append(f.batches, reqs)
	return nil
}

func (f *fakeDocs) DocumentURL(id string) string { return "https://docs.example/document/d/" + id + "/edit" }

type recordOpener struct{ urls []string }

func (r *recordOpener) Open(_ context.Context, url string) error {
	r.urls = append(r.urls, url)
	return nil
}

func newExporter(content *fakeContent, d *fakeDocs) (*Exporter, *[]string, *recordOpener) {
	var statuses []string
	op := &recordOpener{}
	return &Exporter{
		Tokens:  staticTokens{},
		Content: content,
		Docs:    d,
		Opener:  op,
		Status:  func(s string) { statuses = append(statuses, s) },
	}, &statuses, op
}

func okHTML(html, title string) extract.Result {
	return extract.Result{Mode: extract.ModeExportHTML, OK: true, HTML: html, Source: "chat-panel", Title: title}
}

func TestExport_HTMLFlow(t *testing.T) {
	d := &fakeDocs{}
	e, statuses, op := newExporter(&fakeContent{html: okHTML("  <br><br/>\n<p>Hi</p>", "Notebook")}, d)

	out, err := e.Export(context.Background(), Options{Open: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if d.uploadHTML != "<p>Hi</p>" {
		t.Fatalf("expected leading breaks stripped, got %q", d.uploadHTML)
	}
	if d.uploadTitle != "Notebook" || out.Title != "Notebook" {
		t.Fatalf("expected page title, got %q", d.uploadTitle)
	}
	if len(op.urls) != 1 || op.urls[0] != "https://docs.example/document/d/file-1/edit" {
		t.Fatalf("unexpected opened urls %v", op.urls)
	}
	want := []string{StatusAuth, StatusCollect, StatusUpload, StatusOpening, StatusDone}
	if strings.Join(*statuses, "|") != strings.Join(want, "|") {
		t.Fatalf("expected statuses %v, got %v", want, *statuses)
	}
	if e.Busy() {
		t.Fatalf("expected busy flag released")
	}
}

func TestExport_NoContent(t *testing.T) {
	for _, res := range []extract.Result{
		extract.Failure(extract.ModeExportHTML, "No content found"),
		okHTML("", ""),
		okHTML("  <br>", ""),
	} {
		d := &fakeDocs{}
		e, statuses, _ := newExporter(&fakeContent{html: res}, d)
		_, err := e.Export(context.Background(), Options{})
		if !errors.Is(err, ErrNoContent) {
			t.Fatalf("expected ErrNoContent, got %v", err)
		}
		last := (*statuses)[len(*statuses)-1]
		if last != "Error: No content found to export." {
			t.Fatalf("unexpected final status %q", last)
		}
		if d.uploadHTML != "" {
			t.Fatalf("expected no upload")
		}
	}
}

func TestExport_UploadFailureStatus(t *testing.T) {
	d := &fakeDocs{uploadErr: &gdocs.APIError{Op: gdocs.OpUpload, StatusCode: 403, Body: "forbidden"}}
	e, statuses, op := newExporter(&fakeContent{html: okHTML("<p>x</p>", "")}, d)
	_, err := e.Export(context.Background(), Options{Open: true})
	if err == nil {
		t.Fatalf("expected error")
	}
	last := (*statuses)[len(*statuses)-1]
	if last != "Error: Upload failed: 403 forbidden" {
		t.Fatalf("unexpected final status %q", last)
	}
	if len(op.urls) != 0 {
		t.Fatalf("expected nothing opened")
	}
	if e.Busy() {
		t.Fatalf("expected busy flag released after failure")
	}
}

func TestExport_AuthFailurePropagatesVerbatim(t *testing.T) {
	e, statuses, _ := newExporter(&fakeContent{html: okHTML("<p>x</p>", "")}, &fakeDocs{})
	e.Tokens = staticTokens{err: errors.New("The user did not approve access.")}
	_, err := e.Export(context.Background(), Options{})
	if err == nil || err.Error() != "The user did not approve access." {
		t.Fatalf("expected verbatim auth error, got %v", err)
	}
	if last := (*statuses)[len(*statuses)-1]; last != "Error: The user did not approve access." {
		t.Fatalf("unexpected final status %q", last)
	}
}

func TestExport_TitlePrecedence(t *testing.T) {
	d := &fakeDocs{}
	e, _, _ := newExporter(&fakeContent{html: okHTML("<p>x</p>", "Page")}, d)
	if _, err := e.Export(context.Background(), Options{Title: "  Mine  "}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if d.uploadTitle != "Mine" {
		t.Fatalf("expected explicit title, got %q", d.uploadTitle)
	}
	if got := ResolveTitle(" ", " "); got != DefaultTitle {
		t.Fatalf("expected %q, got %q", DefaultTitle, got)
	}
}

func TestExport_BusyRejectsSecondExport(t *testing.T) {
	block := make(chan struct{})
	content := &fakeContent{html: okHTML("<p>x</p>", ""), block: block}
	e, _, _ := newExporter(content, &fakeDocs{})

	done := make(chan error, 1)
	go func() {
		_, err := e.Export(context.Background(), Options{})
		done <- err
	}()
	for !e.Busy() {
		runtime.Gosched()
	}
	if _, err := e.Export(context.Background(), Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
}

func TestExport_Structured(t *testing.T) {
	msgs := []docs.ChatMessage{{Runs: []docs.Run{{Text: "Hello", Bold: true}}}, {Runs: []docs.Run{{Text: "World"}}}}
	d := &fakeDocs{}
	e, statuses, _ := newExporter(&fakeContent{messages: extract.Result{Mode: extract.ModeChatMessages, OK: true, Messages: msgs}}, d)
	out, err := e.Export(context.Background(), Options{Structured: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(d.created) != 1 || d.created[0] != DefaultTitle {
		t.Fatalf("expected one document titled %q, got %v", DefaultTitle, d.created)
	}
	if len(d.batches) != 1 || len(d.batches[0]) != len(docs.Compile(msgs)) {
		t.Fatalf("expected one batch of compiled requests, got %v", d.batches)
	}
	if out.DocumentID != "doc-1" {
		t.Fatalf("expected doc-1, got %q", out.DocumentID)
	}
	if !strings.Contains(strings.Join(*statuses, "|"), StatusWrite) {
		t.Fatalf("expected write status, got %v", *statuses)
	}
}

func TestExport_StructuredEmptySkipsBatch(t *testing.T) {
	d := &fakeDocs{}
	e, _, _ := newExporter(&fakeContent{messages: extract.Result{Mode: extract.ModeChatMessages, OK: true}}, d)
	if _, err := e.Export(context.Background(), Options{Structured: true}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(d.created) != 1 || len(d.batches) != 0 {
		t.Fatalf("expected create without batch update, got created=%d batches=%d", len(d.created), len(d.batches))
	}
}

func TestExport_PreviewMarkdownSkipsUpload(t *testing.T) {
	d := &fakeDocs{}
	e, _, _ := newExporter(&fakeContent{html: okHTML("<p><strong>Hi</strong></p><script>x()</script>", "Notes")}, d)
	e.Tokens = staticTokens{err: errors.New("should not be called")}
	path := filepath.Join(t.TempDir(), "out.md")
	out, err := e.Export(context.Background(), Options{PreviewPath: path, Sanitize: true})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if !strings.HasPrefix(string(b), "# Notes\n") || !strings.Contains(string(b), "**Hi**") {
		t.Fatalf("unexpected preview %q", b)
	}
	if strings.Contains(string(b), "x()") {
		t.Fatalf("expected script removed by sanitizer, got %q", b)
	}
	if out.Preview != path || d.uploadHTML != "" {
		t.Fatalf("expected preview only, got %+v", out)
	}
}

func TestExport_PDF(t *testing.T) {
	msgs := []docs.ChatMessage{{Runs: []docs.Run{{Text: "Hello"}}}}
	content := &fakeContent{
		html:     okHTML("<p>Hello</p>", ""),
		messages: extract.Result{Mode: extract.ModeChatMessages, OK: true, Messages: msgs},
	}
	e, _, _ := newExporter(content, &fakeDocs{})
	pdfPath := filepath.Join(t.TempDir(), "chat.pdf")
	if _, err := e.Export(context.Background(), Options{PDFPath: pdfPath}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if info, err := os.Stat(pdfPath); err != nil || info.Size() == 0 {
		t.Fatalf("expected pdf written: %v", err)
	}
}

func TestExport_SelectionAppendsPlainText(t *testing.T) {
	d := &fakeDocs{}
	sel := extract.Result{Mode: extract.ModeSelectionOrBlock, OK: true, Value: "  picked text \n", Title: "Page"}
	e, statuses, _ := newExporter(&fakeContent{selection: sel}, d)

	out, err := e.Export(context.Background(), Options{Selection: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(d.created) != 1 || d.created[0] != "Page" || out.Source != "selection" {
		t.Fatalf("unexpected create %v / outcome %+v", d.created, out)
	}
	if len(d.batches) != 1 || len(d.batches[0]) != 1 {
		t.Fatalf("expected one single-request batch, got %v", d.batches)
	}
	ins := d.batches[0][0].InsertText
	if ins == nil || ins.Text != "picked text\n" || ins.EndOfSegmentLocation == nil || ins.Location != nil {
		t.Fatalf("expected end-of-body insert of trimmed text, got %+v", ins)
	}
	want := []string{StatusAuth, StatusCollect, StatusCreate, StatusWrite, StatusDone}
	if strings.Join(*statuses, "|") != strings.Join(want, "|") {
		t.Fatalf("expected statuses %v, got %v", want, *statuses)
	}
}

func TestExport_SelectionEmptyIsNoContent(t *testing.T) {
	d := &fakeDocs{}
	sel := extract.Result{Mode: extract.ModeSelectionOrBlock, OK: true, Value: "   "}
	e, _, _ := newExporter(&fakeContent{selection: sel}, d)
	if _, err := e.Export(context.Background(), Options{Selection: true}); !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if len(d.created) != 0 {
		t.Fatalf("expected no document created")
	}
}
