package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/nbexport/internal/browser"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
	Browser struct {
		URL      string `yaml:"url" json:"url"`
		Launch   *bool  `yaml:"launch" json:"launch"`
		Headless *bool  `yaml:"headless" json:"headless"`
		Match    string `yaml:"match" json:"match"`
		Tab      string `yaml:"tab" json:"tab"`
	} `yaml:"browser" json:"browser"`

	OAuth struct {
		ClientID     string `yaml:"clientID" json:"clientID"`
		ClientSecret string `yaml:"clientSecret" json:"clientSecret"`
		TokenDir     string `yaml:"tokenDir" json:"tokenDir"`
		AccessToken  string `yaml:"accessToken" json:"accessToken"`
	} `yaml:"oauth" json:"oauth"`

	API struct {
		DocsBase        string `yaml:"docsBase" json:"docsBase"`
		DriveUploadBase string `yaml:"driveUploadBase" json:"driveUploadBase"`
		DocsWebBase     string `yaml:"docsWebBase" json:"docsWebBase"`
		InsecureTLS     bool   `yaml:"insecureTLS" json:"insecureTLS"`
	} `yaml:"api" json:"api"`

	Export struct {
		Title      string `yaml:"title" json:"title"`
		Structured bool   `yaml:"structured" json:"structured"`
		Selection  bool   `yaml:"selection" json:"selection"`
		Sanitize   *bool  `yaml:"sanitize" json:"sanitize"`
		Open       *bool  `yaml:"open" json:"open"`
	} `yaml:"export" json:"export"`

	Extract struct {
		Timeout Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"extract" json:"extract"`

	Serve struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"serve" json:"serve"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// Duration accepts Go duration strings ("30s") in YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.parse(n.Value)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// still hold their zero or default value. Flags are applied afterwards by the
// caller, so file values only replace defaults.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	def := DefaultConfig()

	if (cfg.BrowserURL == "" || cfg.BrowserURL == def.BrowserURL) && fc.Browser.URL != "" {
		cfg.BrowserURL = fc.Browser.URL
	}
	if fc.Browser.Launch != nil {
		cfg.BrowserLaunch = *fc.Browser.Launch
	}
	if fc.Browser.Headless != nil {
		cfg.BrowserHeadless = *fc.Browser.Headless
	}
	if (cfg.BrowserMatch == "" || cfg.BrowserMatch == browser.DefaultMatch) && fc.Browser.Match != "" {
		cfg.BrowserMatch = fc.Browser.Match
	}
	if cfg.TabID == "" && fc.Browser.Tab != "" {
		cfg.TabID = fc.Browser.Tab
	}

	if cfg.OAuthClientID == "" && fc.OAuth.ClientID != "" {
		cfg.OAuthClientID = fc.OAuth.ClientID
	}
	if cfg.OAuthClientSecret == "" && fc.OAuth.ClientSecret != "" {
		cfg.OAuthClientSecret = fc.OAuth.ClientSecret
	}
	if (cfg.TokenDir == "" || cfg.TokenDir == def.TokenDir) && fc.OAuth.TokenDir != "" {
		cfg.TokenDir = fc.OAuth.TokenDir
	}
	if cfg.AccessToken == "" && fc.OAuth.AccessToken != "" {
		cfg.AccessToken = fc.OAuth.AccessToken
	}

	if cfg.DocsBase == "" && fc.API.DocsBase != "" {
		cfg.DocsBase = fc.API.DocsBase
	}
	if cfg.UploadBase == "" && fc.API.DriveUploadBase != "" {
		cfg.UploadBase = fc.API.DriveUploadBase
	}
	if cfg.WebBase == "" && fc.API.DocsWebBase != "" {
		cfg.WebBase = fc.API.DocsWebBase
	}
	if !cfg.InsecureTLS && fc.API.InsecureTLS {
		cfg.InsecureTLS = true
	}

	if cfg.Title == "" && fc.Export.Title != "" {
		cfg.Title = fc.Export.Title
	}
	if !cfg.Structured && fc.Export.Structured {
		cfg.Structured = true
	}
	if !cfg.Selection && fc.Export.Selection {
		cfg.Selection = true
	}
	if fc.Export.Sanitize != nil {
		cfg.Sanitize = *fc.Export.Sanitize
	}
	if fc.Export.Open != nil {
		cfg.Open = *fc.Export.Open
	}

	if cfg.ExtractTimeout == 0 && fc.Extract.Timeout > 0 {
		cfg.ExtractTimeout = time.Duration(fc.Extract.Timeout)
	}
	if (cfg.ServeAddr == "" || cfg.ServeAddr == DefaultServeAddr) && fc.Serve.Addr != "" {
		cfg.ServeAddr = fc.Serve.Addr
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal validation of settings that would otherwise
// fail late in an export.
func ValidateConfig(cfg Config) error {
	if cfg.ExtractTimeout < 0 {
		return errors.New("config: extract.timeout must not be negative")
	}
	if cfg.BrowserLaunch && cfg.SnapshotPath != "" {
		return errors.New("config: browser.launch and a snapshot are mutually exclusive")
	}
	if cfg.PreviewPath == "" && trim(cfg.AccessToken) == "" && trim(cfg.OAuthClientID) == "" {
		return errors.New("config: oauth.clientID is required (or set GOOGLE_ACCESS_TOKEN)")
	}
	return nil
}

func trim(s string) string { return strings.TrimSpace(s) }
