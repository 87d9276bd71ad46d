package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	GitLab  GitLabConfig  `json:"gitlab"`
	Webex   WebexConfig   `json:"webex"`
	Logging LoggingConfig `json:"logging"`
	Pprof   PprofConfig   `json:"pprof,omitempty"`
}

// ServerConfig controls the inbound webhook listener.
type ServerConfig struct {
	Addr string `json:"addr,omitempty"` // default: "127.0.0.1:4001"

	// Server timeouts (Go duration strings).
	ReadTimeout     string `json:"read_timeout,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`
}

// GitLabConfig holds source-control API access plus the inbound webhook
// settings GitLab was configured with.
//
// WebhookToken is accepted so existing deployments don't break under the
// strict decoder, but inbound verification is not wired up; the app logs a
// warning at startup when it is set.
type GitLabConfig struct {
	Hostname    string `json:"hostname"`
	AccessToken string `json:"access_token"`

	WebhookPath  string `json:"webhook_path,omitempty"` // default: "/webhook"
	WebhookToken string `json:"webhook_token,omitempty"`

	// LookupTimeout bounds each enrichment API call (Go duration string).
	LookupTimeout string `json:"lookup_timeout,omitempty"` // default: "10s"
}

// WebexConfig holds chat delivery access.
type WebexConfig struct {
	AccessToken string `json:"access_token"`

	// WhoamiLink, when set, is appended to every outgoing message so
	// recipients can tell which bot is talking to them.
	WhoamiLink string `json:"whoami_link,omitempty"`

	// SendTimeout bounds each delivery call (Go duration string).
	SendTimeout string `json:"send_timeout,omitempty"` // default: "10s"
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Chat    LoggingChat `json:"chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingChat forwards warn+ log records to an operator over Webex.
type LoggingChat struct {
	Enabled    bool   `json:"enabled"`
	Recipient  string `json:"recipient"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// PprofConfig controls the optional pprof HTTP server.
type PprofConfig struct {
	Enabled              bool   `json:"enabled"`
	Address              string `json:"address,omitempty"` // default: "127.0.0.1:6060"
	BlockProfileRate     int    `json:"block_profile_rate,omitempty"`
	MutexProfileFraction int    `json:"mutex_profile_fraction,omitempty"`
}

// Validate checks the fields the app cannot run without. It is also used as
// the Watch() validator so a broken edit never replaces a good config.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.GitLab.Hostname) == "" {
		return fmt.Errorf("gitlab.hostname is required")
	}
	if strings.TrimSpace(c.GitLab.AccessToken) == "" {
		return fmt.Errorf("gitlab.access_token is required")
	}
	if strings.TrimSpace(c.Webex.AccessToken) == "" {
		return fmt.Errorf("webex.access_token is required")
	}
	for _, d := range []struct {
		path string
		raw  string
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"gitlab.lookup_timeout", c.GitLab.LookupTimeout},
		{"webex.send_timeout", c.Webex.SendTimeout},
	} {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}
	return nil
}

// WebhookPathOrDefault returns the configured webhook path, normalized with a
// leading slash.
func (c *Config) WebhookPathOrDefault() string {
	p := strings.TrimSpace(c.GitLab.WebhookPath)
	if p == "" {
		return "/webhook"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
