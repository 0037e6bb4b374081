package app

import (
	"os"
	"strings"
	"time"
)

// Environment variables read by ApplyEnvOverrides.
const (
	EnvBrowserURL      = "BROWSER_URL"
	EnvBrowserLaunch   = "BROWSER_LAUNCH"
	EnvBrowserHeadless = "BROWSER_HEADLESS"
	EnvBrowserMatch    = "BROWSER_MATCH"
	EnvBrowserTab      = "BROWSER_TAB"
	EnvClientID        = "GOOGLE_CLIENT_ID"
	EnvClientSecret    = "GOOGLE_CLIENT_SECRET"
	EnvAccessToken     = "GOOGLE_ACCESS_TOKEN"
	EnvTokenDir        = "TOKEN_DIR"
	EnvDocsBase        = "DOCS_API_BASE"
	EnvUploadBase      = "DRIVE_UPLOAD_BASE"
	EnvWebBase         = "DOCS_WEB_BASE"
	EnvInsecureTLS     = "API_INSECURE_TLS"
	EnvTitle           = "EXPORT_TITLE"
	EnvStructured      = "EXPORT_STRUCTURED"
	EnvSelection       = "EXPORT_SELECTION"
	EnvSanitize        = "EXPORT_SANITIZE"
	EnvOpen            = "EXPORT_OPEN"
	EnvExtractTimeout  = "EXTRACT_TIMEOUT"
	EnvServeAddr       = "SERVE_ADDR"
	EnvVerbose         = "VERBOSE"
)

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// values coming from a config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	strs := []struct {
		dst *string
		key string
	}{
		{&cfg.BrowserURL, EnvBrowserURL},
		{&cfg.BrowserMatch, EnvBrowserMatch},
		{&cfg.TabID, EnvBrowserTab},
		{&cfg.OAuthClientID, EnvClientID},
		{&cfg.OAuthClientSecret, EnvClientSecret},
		{&cfg.AccessToken, EnvAccessToken},
		{&cfg.TokenDir, EnvTokenDir},
		{&cfg.DocsBase, EnvDocsBase},
		{&cfg.UploadBase, EnvUploadBase},
		{&cfg.WebBase, EnvWebBase},
		{&cfg.Title, EnvTitle},
		{&cfg.ServeAddr, EnvServeAddr},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(os.Getenv(s.key)); v != "" {
			*s.dst = v
		}
	}

	if s := os.Getenv(EnvExtractTimeout); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= 0 {
			cfg.ExtractTimeout = d
		}
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.BrowserLaunch, EnvBrowserLaunch)
	setBool(&cfg.BrowserHeadless, EnvBrowserHeadless)
	setBool(&cfg.InsecureTLS, EnvInsecureTLS)
	setBool(&cfg.Structured, EnvStructured)
	setBool(&cfg.Selection, EnvSelection)
	setBool(&cfg.Sanitize, EnvSanitize)
	setBool(&cfg.Open, EnvOpen)
	setBool(&cfg.Verbose, EnvVerbose)
}
