// Package gdocs is a small client for the Google Docs and Drive endpoints used
// to create documents from exported chat content.
package gdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultDocsBase   = "https://docs.googleapis.com"
	DefaultUploadBase = "https://www.googleapis.com"
	DefaultWebBase    = "https://docs.google.com"

	// GoogleDocMIME makes Drive convert an upload into a Google Doc.
	GoogleDocMIME = "application/vnd.google-apps.document"
)

// Operation names prefix every APIError message.
const (
	OpUpload = "Upload"
	OpCreate = "Create doc"
	OpWrite  = "Write doc"
)

// APIError reports a non-2xx response. Its message carries the status code and
// the raw response body.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

// Client calls the Docs and Drive APIs with bearer tokens from Tokens.
type Client struct {
	HTTPClient *http.Client
	Tokens     oauth2.TokenSource
	DocsBase   string
	UploadBase string
	WebBase    string
}

// File is the subset of a Drive file resource returned by an upload.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// Document is the subset of a Docs document resource returned on create.
type Document struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func base(v, def string) string {
	v = strings.TrimRight(strings.TrimSpace(v), "/")
	if v == "" {
		return def
	}
	return v
}

// DocumentURL is the browser URL for editing a document.
func (c *Client) DocumentURL(id string) string {
	return base(c.WebBase, DefaultWebBase) + "/document/d/" + url.PathEscape(id) + "/edit"
}

// do sends req with a bearer token and returns the body of a 2xx response.
// Other statuses become *APIError tagged with op.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	if c.Tokens == nil {
		return nil, errors.New("gdocs: no token source")
	}
	tok, err := c.Tokens.Token()
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.ToLower(op), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", strings.ToLower(op), err)
	}
	log.Debug().Str("op", op).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("api response")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, op string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", strings.ToLower(op), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req, op)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", strings.ToLower(op), err)
	}
	return nil
}
