package config

import (
	"strings"

	logx "revbot/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (tokens) are reported only as
// changed/set booleans, never as values.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Server != newCfg.Server {
		changed = append(changed, "server")
		attrs = append(attrs, logx.String("server.addr", strings.TrimSpace(newCfg.Server.Addr)))
	}

	if oldCfg.GitLab != newCfg.GitLab {
		changed = append(changed, "gitlab")
		attrs = append(attrs,
			logx.String("gitlab.hostname", strings.TrimSpace(newCfg.GitLab.Hostname)),
			logx.String("gitlab.webhook_path", newCfg.WebhookPathOrDefault()),
			logx.Bool("gitlab.token_changed", oldCfg.GitLab.AccessToken != newCfg.GitLab.AccessToken),
			logx.Bool("gitlab.webhook_token_set", strings.TrimSpace(newCfg.GitLab.WebhookToken) != ""),
		)
	}

	if oldCfg.Webex != newCfg.Webex {
		changed = append(changed, "webex")
		attrs = append(attrs,
			logx.Bool("webex.token_changed", oldCfg.Webex.AccessToken != newCfg.Webex.AccessToken),
			logx.Bool("webex.whoami_link_set", strings.TrimSpace(newCfg.Webex.WhoamiLink) != ""),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.chat_enabled", newCfg.Logging.Chat.Enabled),
		)
	}

	if oldCfg.Pprof != newCfg.Pprof {
		changed = append(changed, "pprof")
		attrs = append(attrs,
			logx.Bool("pprof.enabled", newCfg.Pprof.Enabled),
			logx.String("pprof.address", strings.TrimSpace(newCfg.Pprof.Address)),
		)
	}

	return changed, attrs
}
