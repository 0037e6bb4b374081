package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hyperifyio/nbexport/internal/browser"
)

// Defaults shared by flag definitions and the config file overlay.
const (
	DefaultBrowserURL = "127.0.0.1:9222"
	DefaultServeAddr  = "127.0.0.1:8765"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Browser
	BrowserURL      string
	BrowserLaunch   bool
	BrowserHeadless bool
	BrowserMatch    string
	// TabID pins the target tab; empty picks the first tab matching BrowserMatch.
	TabID string
	// NavigateURL opens this page in a new tab and targets it.
	NavigateURL string
	// SnapshotPath serves extractions from a saved HTML page instead of a browser.
	SnapshotPath string

	// OAuth
	OAuthClientID     string
	OAuthClientSecret string
	TokenDir          string
	AccessToken       string

	// API endpoints
	DocsBase    string
	UploadBase  string
	WebBase     string
	InsecureTLS bool

	// Export behavior
	Title       string
	Structured  bool
	Selection   bool
	Sanitize    bool
	Open        bool
	PreviewPath string
	PDFPath     string

	ExtractTimeout time.Duration
	ServeAddr      string
	Verbose        bool
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		BrowserURL:   DefaultBrowserURL,
		BrowserMatch: browser.DefaultMatch,
		TokenDir:     defaultTokenDir(),
		Open:         true,
		ServeAddr:    DefaultServeAddr,
	}
}

func defaultTokenDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "nbexport")
	}
	return ".nbexport"
}
