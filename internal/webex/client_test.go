package webex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "revbot/pkg/logx"
)

type captured struct {
	auth        string
	contentType string
	body        map[string]string
}

func newFakeWebex(t *testing.T, status int, got *captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got.body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"msg-1"}`))
	}))
}

func TestSendMessage(t *testing.T) {
	var got captured
	srv := newFakeWebex(t, http.StatusOK, &got)
	defer srv.Close()

	c := New(Config{AccessToken: "tok", APIURL: srv.URL}, logx.Nop())
	if err := c.SendMessage(context.Background(), "b@x", "hello **there**"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if got.auth != "Bearer tok" {
		t.Errorf("auth = %q", got.auth)
	}
	if got.contentType != "application/json" {
		t.Errorf("content-type = %q", got.contentType)
	}
	if got.body["toPersonEmail"] != "b@x" {
		t.Errorf("toPersonEmail = %q", got.body["toPersonEmail"])
	}
	if got.body["markdown"] != "hello **there**" {
		t.Errorf("markdown = %q", got.body["markdown"])
	}
}

func TestSendMessageAppendsWhoami(t *testing.T) {
	var got captured
	srv := newFakeWebex(t, http.StatusOK, &got)
	defer srv.Close()

	c := New(Config{AccessToken: "tok", APIURL: srv.URL, WhoamiLink: "https://example.com/whoami"}, logx.Nop())
	if err := c.SendMessage(context.Background(), "b@x", "body"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if want := "body\n\nhttps://example.com/whoami"; got.body["markdown"] != want {
		t.Errorf("markdown = %q, want %q", got.body["markdown"], want)
	}
}

func TestSendMessageNon2xx(t *testing.T) {
	var got captured
	srv := newFakeWebex(t, http.StatusUnauthorized, &got)
	defer srv.Close()

	c := New(Config{AccessToken: "bad", APIURL: srv.URL}, logx.Nop())
	if err := c.SendMessage(context.Background(), "b@x", "body"); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSendMessageServerGone(t *testing.T) {
	var got captured
	srv := newFakeWebex(t, http.StatusOK, &got)
	srv.Close()

	c := New(Config{AccessToken: "tok", APIURL: srv.URL}, logx.Nop())
	if err := c.SendMessage(context.Background(), "b@x", "body"); err == nil {
		t.Fatal("expected transport error")
	}
}
