package httptransport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	logx "revbot/pkg/logx"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (f *fakeDispatcher) Dispatch(body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, body)
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

func startTestServer(t *testing.T, cfg Config, d Dispatcher) *Server {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	srv := NewServer(cfg, d, logx.Nop())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv
}

func TestWebhookAcknowledgedAndDispatched(t *testing.T) {
	d := &fakeDispatcher{}
	srv := startTestServer(t, Config{WebhookPath: "/hooks/gitlab"}, d)

	payload := `{"object_kind":"merge_request"}`
	resp, err := http.Post(
		fmt.Sprintf("http://%s/hooks/gitlab", srv.Addr()),
		"application/json",
		strings.NewReader(payload),
	)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if d.count() != 1 {
		t.Fatalf("dispatched %d bodies, want 1", d.count())
	}
	d.mu.Lock()
	got := string(d.bodies[0])
	d.mu.Unlock()
	if got != payload {
		t.Fatalf("dispatched body = %q, want %q", got, payload)
	}
}

func TestWebhookUnsupportedPayloadStillGets200(t *testing.T) {
	d := &fakeDispatcher{}
	srv := startTestServer(t, Config{}, d)

	resp, err := http.Post(
		fmt.Sprintf("http://%s/webhook", srv.Addr()),
		"application/json",
		strings.NewReader("not json at all"),
	)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if d.count() != 1 {
		t.Fatalf("dispatched %d bodies, want 1", d.count())
	}
}

func TestHealthz(t *testing.T) {
	srv := startTestServer(t, Config{}, &fakeDispatcher{})

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", srv.Addr()))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := startTestServer(t, Config{}, &fakeDispatcher{})

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", srv.Addr()))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	d := &fakeDispatcher{}
	srv := startTestServer(t, Config{}, d)

	resp, err := http.Get(fmt.Sprintf("http://%s/webhook", srv.Addr()))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
	if d.count() != 0 {
		t.Fatalf("dispatched %d bodies, want 0", d.count())
	}
}
