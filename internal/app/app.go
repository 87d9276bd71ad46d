package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"revbot/internal/config"
	"revbot/internal/gitlab"
	"revbot/internal/observability/pprof"
	"revbot/internal/relay"
	"revbot/internal/runtime/supervisor"
	httptransport "revbot/internal/transport/http"
	"revbot/internal/webex"
	logx "revbot/pkg/logx"
)

// App owns the whole wiring: config manager, logging, outbound clients, the
// relay pipeline, and the inbound webhook server.
type App struct {
	mgr    *config.Manager
	logSvc *logx.Service
	log    logx.Logger
	sup    *supervisor.Supervisor

	gitlab *gitlab.Client
	webex  *webex.Client
	relay  *relay.Service
	httpd  *httptransport.Server
	pprof  *pprof.Service

	cfgCh chan *config.Config

	addrOverride string
}

type Option func(*App)

// WithListenAddr overrides server.addr from the config file. The CLI uses
// this for the --addr flag; it also wins over later file reloads.
func WithListenAddr(addr string) Option {
	return func(a *App) { a.addrOverride = strings.TrimSpace(addr) }
}

func New(cfgPath string, opts ...Option) (*App, error) {
	mgr := config.NewManager(cfgPath)
	mgr.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return cfg.Validate()
	})

	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(loggingConfig(cfg.Logging), nil)
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	wx := webex.New(webexConfig(cfg.Webex), log.With(logx.String("comp", "webex")))
	// The chat log sink delivers through the same Webex client.
	logSvc.SetChatSender(wx)

	gl, err := gitlab.NewClient(gitlabConfig(cfg.GitLab), log.With(logx.String("comp", "gitlab")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("gitlab client: %w", err)
	}

	a := &App{
		mgr:    mgr,
		logSvc: logSvc,
		log:    log,
		gitlab: gl,
		webex:  wx,
		pprof:  pprof.New(log),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.mgr.Get()

	if strings.TrimSpace(cfg.GitLab.WebhookToken) != "" {
		a.log.Warn("gitlab.webhook_token is set but inbound token verification is not implemented; the value is ignored")
	}

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	proc := relay.NewProcessor(a.gitlab, a.log.With(logx.String("comp", "relay")))
	a.relay = relay.NewService(proc, a.webex, a.sup, a.log.With(logx.String("comp", "relay")))

	srvCfg := serverConfig(cfg)
	if a.addrOverride != "" {
		srvCfg.Addr = a.addrOverride
	}
	a.httpd = httptransport.NewServer(srvCfg, a.relay, a.log.With(logx.String("comp", "http")))
	if err := a.httpd.Start(); err != nil {
		return fmt.Errorf("webhook server: %w", err)
	}

	a.pprof.Apply(ctx, pprofConfig(cfg.Pprof))

	// Hot reload: watch the file and re-apply what can change at runtime.
	a.cfgCh = a.mgr.Subscribe(1)
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.mgr.Watch(c)
	})
	a.sup.Go0("config.reload", func(c context.Context) {
		a.reloadLoop(c)
	})

	a.log.Info("started",
		logx.String("addr", a.httpd.Addr()),
		logx.String("webhook_path", cfg.WebhookPathOrDefault()),
		logx.String("gitlab", cfg.GitLab.Hostname),
	)
	return nil
}

// reloadLoop applies config updates published by the watcher. Logging and
// pprof take effect live; listener and credential changes need a restart and
// are only reported.
func (a *App) reloadLoop(ctx context.Context) {
	prev := a.mgr.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgCh:
			if !ok {
				return
			}
			sections, fields := config.SummarizeChange(prev, cfg)
			prev = cfg
			a.log.Info("config reloaded", append(fields, logx.Any("sections", sections))...)

			a.logSvc.Apply(loggingConfig(cfg.Logging))
			a.pprof.Apply(ctx, pprofConfig(cfg.Pprof))

			for _, sec := range sections {
				if sec == "server" || sec == "gitlab" || sec == "webex" {
					a.log.Warn("section changed but requires restart to take effect", logx.String("section", sec))
				}
			}
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.httpd != nil {
		if err := a.httpd.Stop(ctx); err != nil {
			a.log.Warn("webhook server shutdown error", logx.Err(err))
		}
	}
	a.pprof.Stop(ctx)

	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.cfgCh != nil {
		a.mgr.Unsubscribe(a.cfgCh)
		a.cfgCh = nil
	}
	_ = a.logSvc.Close()
	return err
}

// ---- config mapping ----

func loggingConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    c.Chat.Enabled,
			Recipient:  c.Chat.Recipient,
			MinLevel:   c.Chat.MinLevel,
			RatePerSec: c.Chat.RatePerSec,
		},
	}
}

func webexConfig(c config.WebexConfig) webex.Config {
	timeout, _ := config.ParseDurationOrDefault("webex.send_timeout", c.SendTimeout, 10*time.Second)
	return webex.Config{
		AccessToken: c.AccessToken,
		WhoamiLink:  c.WhoamiLink,
		SendTimeout: timeout,
	}
}

func gitlabConfig(c config.GitLabConfig) gitlab.ClientConfig {
	timeout, _ := config.ParseDurationOrDefault("gitlab.lookup_timeout", c.LookupTimeout, 10*time.Second)
	return gitlab.ClientConfig{
		Hostname:      c.Hostname,
		AccessToken:   c.AccessToken,
		LookupTimeout: timeout,
	}
}

func serverConfig(cfg *config.Config) httptransport.Config {
	readTimeout, _ := config.ParseDurationOrDefault("server.read_timeout", cfg.Server.ReadTimeout, 10*time.Second)
	shutdownTimeout, _ := config.ParseDurationOrDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout, 5*time.Second)
	return httptransport.Config{
		Addr:            cfg.Server.Addr,
		WebhookPath:     cfg.WebhookPathOrDefault(),
		ReadTimeout:     readTimeout,
		ShutdownTimeout: shutdownTimeout,
	}
}

func pprofConfig(c config.PprofConfig) pprof.Config {
	return pprof.Config{
		Enabled:              c.Enabled,
		Address:              c.Address,
		BlockProfileRate:     c.BlockProfileRate,
		MutexProfileFraction: c.MutexProfileFraction,
	}
}
