package gdocs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// TokenInfo describes an access token as reported by the tokeninfo endpoint.
type TokenInfo struct {
	Scope     string `json:"scope"`
	ExpiresIn string `json:"expires_in"`
	Audience  string `json:"aud"`
}

// TokenInfo looks up the scopes granted to accessToken. It is diagnostic only.
func (c *Client) TokenInfo(ctx context.Context, accessToken string) (TokenInfo, error) {
	endpoint := base(c.UploadBase, DefaultUploadBase) + "/oauth2/v3/tokeninfo?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TokenInfo{}, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return TokenInfo{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK {
		return TokenInfo{}, fmt.Errorf("tokeninfo: %d %s", resp.StatusCode, body)
	}
	var info TokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return TokenInfo{}, fmt.Errorf("decode tokeninfo: %w", err)
	}
	return info, nil
}
