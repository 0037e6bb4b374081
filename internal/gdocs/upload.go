package gdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/google/uuid"
)

type fileMetadata struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// NewBoundary returns a fresh multipart boundary.
func NewBoundary() string {
	return "nbexport-" + uuid.NewString()
}

// MultipartBody builds a multipart/related payload with a JSON metadata part
// followed by the HTML part. It returns the body and its Content-Type.
func MultipartBody(title, html, boundary string) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, "", fmt.Errorf("set boundary: %w", err)
	}

	meta, err := json.Marshal(fileMetadata{Name: title, MimeType: GoogleDocMIME})
	if err != nil {
		return nil, "", err
	}
	parts := []struct {
		contentType string
		data        []byte
	}{
		{"application/json; charset=UTF-8", meta},
		{"text/html; charset=UTF-8", []byte(html)},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "multipart/related; boundary=" + boundary, nil
}

// UploadHTML uploads html as a new Google Doc named title.
func (c *Client) UploadHTML(ctx context.Context, title, html string) (File, error) {
	body, contentType, err := MultipartBody(title, html, NewBoundary())
	if err != nil {
		return File{}, err
	}
	endpoint := base(c.UploadBase, DefaultUploadBase) + "/upload/drive/v3/files?uploadType=multipart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return File{}, err
	}
	req.Header.Set("Content-Type", contentType)
	raw, err := c.do(req, OpUpload)
	if err != nil {
		return File{}, err
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("decode upload response: %w", err)
	}
	if f.ID == "" {
		return File{}, errors.New("upload: response has no file id")
	}
	return f, nil
}
