package httptransport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "revbot/pkg/logx"
)

// Dispatcher accepts one raw webhook delivery for asynchronous processing.
// relay.Service is the production implementation.
type Dispatcher interface {
	Dispatch(body []byte)
}

// maxBodyBytes caps inbound payloads; GitLab webhook bodies are far below
// this, anything bigger is junk.
const maxBodyBytes = 1 << 20

type Config struct {
	Addr        string
	WebhookPath string

	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:4001"
	}
	if c.WebhookPath == "" {
		c.WebhookPath = "/webhook"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

// Server is the inbound webhook listener. It acknowledges deliveries
// immediately; processing outcome never influences the response.
type Server struct {
	cfg        Config
	dispatcher Dispatcher
	log        logx.Logger

	srv  *http.Server
	ln   net.Listener
	addr string
}

func NewServer(cfg Config, dispatcher Dispatcher, log logx.Logger) *Server {
	cfg = cfg.withDefaults()
	s := &Server{cfg: cfg, dispatcher: dispatcher, log: log}
	s.srv = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.router(),
		ReadTimeout: cfg.ReadTimeout,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post(s.cfg.WebhookPath, s.handleWebhook)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// handleWebhook reads the body and hands it off. The sender always gets 200
// for a readable body, even when the payload later turns out to be
// unsupported; GitLab disables hooks that keep failing.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.log.Warn("failed reading webhook body", logx.Err(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	s.dispatcher.Dispatch(body)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start binds the listener and serves in the background. Binding errors are
// returned synchronously so a bad address fails startup instead of lingering.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.addr = ln.Addr().String()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("webhook server error", logx.String("addr", s.addr), logx.Err(err))
		}
	}()
	s.log.Info("webhook server listening",
		logx.String("addr", s.addr),
		logx.String("path", s.cfg.WebhookPath),
	)
	return nil
}

// Addr returns the bound address, useful when the config used port 0.
func (s *Server) Addr() string { return s.addr }

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
