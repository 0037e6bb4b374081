// Package exporter builds a Google Doc from the chat content of a page.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/hyperifyio/nbexport/internal/docs"
	"github.com/hyperifyio/nbexport/internal/extract"
	"github.com/hyperifyio/nbexport/internal/gdocs"
	"github.com/hyperifyio/nbexport/internal/render"
)

// DefaultTitle is used when neither an explicit nor a page title is known.
const DefaultTitle = "Untitled"

var (
	// ErrNoContent means the page had nothing usable to export.
	ErrNoContent = errors.New("No content found to export.")
	// ErrBusy rejects an export started while another one is running.
	ErrBusy = errors.New("export already in progress")
)

// Status lines reported during an export.
const (
	StatusAuth      = "Requesting Google auth token..."
	StatusCollect   = "Collecting page content..."
	StatusUpload    = "Uploading as Google Doc..."
	StatusCreate    = "Creating Google Doc..."
	StatusWrite     = "Writing document content..."
	StatusOpening   = "Opening the new document..."
	StatusPreview   = "Writing preview..."
	StatusDone      = "Done."
	statusErrPrefix = "Error: "
)

var leadingBreaks = regexp.MustCompile(`(?i)^(\s|<br\s*/?>)+`)

// TokenProvider supplies OAuth access tokens.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// ContentSource runs extractions against a page. The relay satisfies it.
type ContentSource interface {
	ExportHTML(ctx context.Context, target string) extract.Result
	ChatMessages(ctx context.Context, target string) extract.Result
	SelectionOrBlock(ctx context.Context, target string) extract.Result
}

// DocsAPI is the remote document service.
type DocsAPI interface {
	UploadHTML(ctx context.Context, title, html string) (gdocs.File, error)
	CreateDocument(ctx context.Context, title string) (gdocs.Document, error)
	BatchUpdate(ctx context.Context, documentID string, reqs []docs.Request) error
	DocumentURL(id string) string
}

// Opener shows a URL to the user, usually in a new browser tab.
type Opener interface {
	Open(ctx context.Context, url string) error
}

type tokenInspector interface {
	TokenInfo(ctx context.Context, accessToken string) (gdocs.TokenInfo, error)
}

// Options select how one export runs.
type Options struct {
	// Target is the tab to read from.
	Target string
	// Title overrides the page title when non-blank.
	Title string
	// Structured builds the document from chat runs through batchUpdate
	// instead of uploading HTML.
	Structured bool
	// Selection builds a plain-text document from the selected text, or the
	// block under the caret.
	Selection bool
	// Sanitize filters export HTML before upload.
	Sanitize bool
	// Open shows the new document through the Opener.
	Open bool
	// PreviewPath, when set, writes a local preview instead of uploading:
	// Markdown, or the raw HTML when the path ends in .html/.htm.
	PreviewPath string
	// PDFPath additionally writes the chat transcript as a PDF.
	PDFPath string
}

// Outcome describes a finished export.
type Outcome struct {
	DocumentID string
	URL        string
	Title      string
	Source     string
	Preview    string
}

// Exporter runs exports one at a time.
type Exporter struct {
	Tokens  TokenProvider
	Content ContentSource
	Docs    DocsAPI
	Opener  Opener
	// Status receives progress lines. Nil discards them.
	Status func(string)

	busy atomic.Bool
}

func (e *Exporter) status(s string) {
	log.Debug().Str("status", s).Msg("export")
	if e.Status != nil {
		e.Status(s)
	}
}

// Busy reports whether an export is running.
func (e *Exporter) Busy() bool { return e.busy.Load() }

// Export runs one export. Any failure is also reported as an "Error: ..."
// status line; the busy flag is released in all cases.
func (e *Exporter) Export(ctx context.Context, opts Options) (Outcome, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer e.busy.Store(false)

	var (
		out Outcome
		err error
	)
	switch {
	case opts.PreviewPath != "":
		out, err = e.preview(ctx, opts)
	case opts.Selection:
		out, err = e.exportSelection(ctx, opts)
	case opts.Structured:
		out, err = e.exportStructured(ctx, opts)
	default:
		out, err = e.exportHTML(ctx, opts)
	}
	if err != nil {
		e.status(statusErrPrefix + err.Error())
		return out, err
	}
	e.status(StatusDone)
	return out, nil
}

func (e *Exporter) token(ctx context.Context) error {
	e.status(StatusAuth)
	tok, err := e.Tokens.Token(ctx)
	if err != nil {
		return err
	}
	log.Debug().Int("token_len", len(tok.AccessToken)).Msg("got access token")
	if ti, ok := e.Docs.(tokenInspector); ok && zerolog.GlobalLevel() <= zerolog.DebugLevel {
		if info, err := ti.TokenInfo(ctx, tok.AccessToken); err != nil {
			log.Debug().Err(err).Msg("tokeninfo failed")
		} else {
			log.Debug().Str("scope", info.Scope).Str("expires_in", info.ExpiresIn).Msg("tokeninfo")
		}
	}
	return nil
}

// collectHTML fetches export HTML and strips leading whitespace and breaks.
func (e *Exporter) collectHTML(ctx context.Context, opts Options) (extract.Result, string, error) {
	e.status(StatusCollect)
	res := e.Content.ExportHTML(ctx, opts.Target)
	if !res.OK || res.HTML == "" {
		log.Debug().Str("reason", res.Error).Msg("export html unavailable")
		return res, "", ErrNoContent
	}
	html := leadingBreaks.ReplaceAllString(res.HTML, "")
	if opts.Sanitize {
		html = render.Sanitize(html)
	}
	if strings.TrimSpace(html) == "" {
		return res, "", ErrNoContent
	}
	return res, html, nil
}

func (e *Exporter) exportHTML(ctx context.Context, opts Options) (Outcome, error) {
	if err := e.token(ctx); err != nil {
		return Outcome{}, err
	}
	res, html, err := e.collectHTML(ctx, opts)
	if err != nil {
		return Outcome{}, err
	}
	title := ResolveTitle(opts.Title, res.Title)
	if err := e.writePDF(ctx, opts, title); err != nil {
		return Outcome{}, err
	}

	e.status(StatusUpload)
	log.Debug().Int("html_len", len(html)).Str("source", res.Source).Msg("uploading html")
	f, err := e.Docs.UploadHTML(ctx, title, html)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{DocumentID: f.ID, URL: e.Docs.DocumentURL(f.ID), Title: title, Source: res.Source}
	return out, e.open(ctx, opts, out.URL)
}

func (e *Exporter) exportStructured(ctx context.Context, opts Options) (Outcome, error) {
	if err := e.token(ctx); err != nil {
		return Outcome{}, err
	}
	e.status(StatusCollect)
	res := e.Content.ChatMessages(ctx, opts.Target)
	if !res.OK {
		return Outcome{}, errors.New(res.Error)
	}
	title := ResolveTitle(opts.Title, res.Title)
	if opts.PDFPath != "" {
		if err := render.WriteTranscriptPDF(title, res.Messages, opts.PDFPath); err != nil {
			return Outcome{}, err
		}
	}
	reqs := docs.Compile(res.Messages)

	e.status(StatusCreate)
	doc, err := e.Docs.CreateDocument(ctx, title)
	if err != nil {
		return Outcome{}, err
	}
	if len(reqs) > 0 {
		e.status(StatusWrite)
		if err := e.Docs.BatchUpdate(ctx, doc.DocumentID, reqs); err != nil {
			return Outcome{}, err
		}
	} else {
		log.Debug().Msg("no instructions; skipping batch update")
	}
	out := Outcome{DocumentID: doc.DocumentID, URL: e.Docs.DocumentURL(doc.DocumentID), Title: title, Source: "chat-messages"}
	return out, e.open(ctx, opts, out.URL)
}

func (e *Exporter) exportSelection(ctx context.Context, opts Options) (Outcome, error) {
	if err := e.token(ctx); err != nil {
		return Outcome{}, err
	}
	e.status(StatusCollect)
	res := e.Content.SelectionOrBlock(ctx, opts.Target)
	if !res.OK {
		return Outcome{}, errors.New(res.Error)
	}
	text := strings.TrimSpace(res.Value)
	if text == "" {
		return Outcome{}, ErrNoContent
	}
	title := ResolveTitle(opts.Title, res.Title)

	e.status(StatusCreate)
	doc, err := e.Docs.CreateDocument(ctx, title)
	if err != nil {
		return Outcome{}, err
	}
	e.status(StatusWrite)
	if err := e.Docs.BatchUpdate(ctx, doc.DocumentID, []docs.Request{docs.AppendText(text + "\n")}); err != nil {
		return Outcome{}, err
	}
	out := Outcome{DocumentID: doc.DocumentID, URL: e.Docs.DocumentURL(doc.DocumentID), Title: title, Source: "selection"}
	return out, e.open(ctx, opts, out.URL)
}

func (e *Exporter) preview(ctx context.Context, opts Options) (Outcome, error) {
	res, html, err := e.collectHTML(ctx, opts)
	if err != nil {
		return Outcome{}, err
	}
	title := ResolveTitle(opts.Title, res.Title)
	if err := e.writePDF(ctx, opts, title); err != nil {
		return Outcome{}, err
	}
	e.status(StatusPreview)
	body := html
	switch strings.ToLower(filepath.Ext(opts.PreviewPath)) {
	case ".html", ".htm":
	default:
		md, err := render.NewMarkdown().Convert(html)
		if err != nil {
			return Outcome{}, err
		}
		body = "# " + title + "\n\n" + md
	}
	if err := os.WriteFile(opts.PreviewPath, []byte(body), 0o644); err != nil {
		return Outcome{}, fmt.Errorf("write preview: %w", err)
	}
	return Outcome{Title: title, Source: res.Source, Preview: opts.PreviewPath}, nil
}

func (e *Exporter) writePDF(ctx context.Context, opts Options, title string) error {
	if opts.PDFPath == "" {
		return nil
	}
	res := e.Content.ChatMessages(ctx, opts.Target)
	if !res.OK {
		return fmt.Errorf("pdf transcript: %s", res.Error)
	}
	return render.WriteTranscriptPDF(title, res.Messages, opts.PDFPath)
}

func (e *Exporter) open(ctx context.Context, opts Options, url string) error {
	if !opts.Open || e.Opener == nil {
		return nil
	}
	e.status(StatusOpening)
	if err := e.Opener.Open(ctx, url); err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	return nil
}

// ResolveTitle picks the explicit title, else the page title, else
// DefaultTitle. Both inputs are trimmed.
func ResolveTitle(explicit, page string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	if t := strings.TrimSpace(page); t != "" {
		return t
	}
	return DefaultTitle
}
