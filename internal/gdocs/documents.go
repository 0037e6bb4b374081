package gdocs

import (
	"context"
	"errors"
	"net/url"

	"github.com/hyperifyio/nbexport/internal/docs"
)

// CreateDocument creates an empty document with the given title.
func (c *Client) CreateDocument(ctx context.Context, title string) (Document, error) {
	var doc Document
	endpoint := base(c.DocsBase, DefaultDocsBase) + "/v1/documents"
	if err := c.postJSON(ctx, endpoint, OpCreate, map[string]string{"title": title}, &doc); err != nil {
		return Document{}, err
	}
	if doc.DocumentID == "" {
		return Document{}, errors.New("create doc: response has no documentId")
	}
	return doc, nil
}

type batchUpdateRequest struct {
	Requests []docs.Request `json:"requests"`
}

// BatchUpdate applies all requests to the document in one call.
func (c *Client) BatchUpdate(ctx context.Context, documentID string, reqs []docs.Request) error {
	endpoint := base(c.DocsBase, DefaultDocsBase) + "/v1/documents/" + url.PathEscape(documentID) + ":batchUpdate"
	return c.postJSON(ctx, endpoint, OpWrite, batchUpdateRequest{Requests: reqs}, nil)
}
