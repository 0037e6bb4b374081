package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenEntry is the on-disk form of a cached OAuth token.
type TokenEntry struct {
	ClientID string        `json:"client_id"`
	Scopes   []string      `json:"scopes"`
	Token    *oauth2.Token `json:"token"`
	SavedAt  time.Time     `json:"saved_at"`
}

const tokenSuffix = ".token.json"

// TokenCache stores OAuth tokens on disk as <key>.token.json where key is
// sha256(client id + scopes). Tokens are credentials, so files are always
// written 0600; StrictPerms additionally keeps the directory at 0700.
type TokenCache struct {
	Dir         string
	StrictPerms bool
}

// TokenKey builds the cache key for a client and scope set. Scope order does
// not matter.
func TokenKey(clientID string, scopes []string) string {
	s := append([]string(nil), scopes...)
	sort.Strings(s)
	h := sha256.Sum256([]byte(clientID + "\n\n" + strings.Join(s, " ")))
	return hex.EncodeToString(h[:])
}

func (c *TokenCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("token cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if c.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(c.Dir, perm); err != nil {
		return err
	}
	// tighten a directory that already existed
	if c.StrictPerms {
		if info, err := os.Stat(c.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(c.Dir, 0o700)
		}
	}
	return nil
}

func (c *TokenCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+tokenSuffix)
}

// Load returns the cached entry. A missing entry reports os.ErrNotExist.
func (c *TokenCache) Load(_ context.Context, key string) (*TokenEntry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return nil, err
	}
	var e TokenEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode token entry: %w", err)
	}
	if e.Token == nil {
		return nil, fmt.Errorf("token entry %s has no token: %w", key, os.ErrNotExist)
	}
	return &e, nil
}

// Save writes the entry atomically.
func (c *TokenCache) Save(_ context.Context, key string, e TokenEntry) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode token entry: %w", err)
	}
	tmp := c.pathFor(key) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return os.Rename(tmp, c.pathFor(key))
}

// Remove deletes a cached entry; removing a missing entry is not an error.
func (c *TokenCache) Remove(_ context.Context, key string) error {
	if c == nil || c.Dir == "" {
		return nil
	}
	err := os.Remove(c.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes every cached token entry in Dir and reports how many were
// removed. Other files in Dir are left alone.
func (c *TokenCache) Clear(_ context.Context) (int, error) {
	if c == nil || strings.TrimSpace(c.Dir) == "" {
		return 0, errors.New("token cache dir not set")
	}
	entries, err := os.ReadDir(c.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), tokenSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.Dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return n, err
		}
		n++
	}
	return n, nil
}
