package config

import (
	"os"
	"strings"
)

// applyEnvOverrides layers REVBOT_-prefixed environment variables over the
// file config, mainly so secrets can stay out of the file in containerized
// deployments. Only leaf fields that make sense as env vars are mapped.
func applyEnvOverrides(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&cfg.Server.Addr, "REVBOT_SERVER_ADDR")
	set(&cfg.GitLab.Hostname, "REVBOT_GITLAB_HOSTNAME")
	set(&cfg.GitLab.AccessToken, "REVBOT_GITLAB_ACCESS_TOKEN")
	set(&cfg.GitLab.WebhookPath, "REVBOT_GITLAB_WEBHOOK_PATH")
	set(&cfg.GitLab.WebhookToken, "REVBOT_GITLAB_WEBHOOK_TOKEN")
	set(&cfg.Webex.AccessToken, "REVBOT_WEBEX_ACCESS_TOKEN")
	set(&cfg.Webex.WhoamiLink, "REVBOT_WEBEX_WHOAMI_LINK")
}
