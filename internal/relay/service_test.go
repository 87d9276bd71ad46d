package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"revbot/internal/runtime/supervisor"
	logx "revbot/pkg/logx"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]bool
}

func (f *fakeSender) SendMessage(ctx context.Context, recipientEmail, markdown string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Message{RecipientEmail: recipientEmail, Markdown: markdown})
	if f.fail[recipientEmail] {
		return errors.New("delivery refused")
	}
	return nil
}

func (f *fakeSender) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func newTestService(t *testing.T, sender *fakeSender) (*Service, *supervisor.Supervisor) {
	t.Helper()
	sup := supervisor.New(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
	})
	proc := NewProcessor(&fakeSource{}, logx.Nop())
	return NewService(proc, sender, sup, logx.Nop()), sup
}

const assigneePayload = `{
  "object_kind": "merge_request",
  "object_attributes": {"iid": 3, "merge_status": "unchecked", "title": "Fail pipeline", "url": "https://x/mr/3"},
  "project": {"id": 1, "name": "mr-test", "path_with_namespace": "g/p", "web_url": "https://x/p"},
  "user": {"id": 9, "email": "acting@x", "name": "Acting", "username": "acting"},
  "changes": {
    "assignees": {
      "previous": [{"id": 1, "email": "a@x", "name": "A", "username": "a"}],
      "current": [
        {"id": 1, "email": "a@x", "name": "A", "username": "a"},
        {"id": 2, "email": "b@x", "name": "B", "username": "b"}
      ]
    }
  }
}`

func TestDispatchDeliversAssigneeMessage(t *testing.T) {
	sender := &fakeSender{}
	svc, sup := newTestService(t, sender)

	svc.Dispatch([]byte(assigneePayload))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1: %+v", len(msgs), msgs)
	}
	if msgs[0].RecipientEmail != "b@x" {
		t.Errorf("recipient = %q, want b@x", msgs[0].RecipientEmail)
	}
}

func TestDispatchDropsUnsupportedPayload(t *testing.T) {
	sender := &fakeSender{}
	svc, sup := newTestService(t, sender)

	svc.Dispatch([]byte(`{"object_kind": "issue"}`))
	svc.Dispatch([]byte(`not json at all`))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := sender.messages(); len(got) != 0 {
		t.Fatalf("sent %d messages, want 0", len(got))
	}
}

func TestSendAllContinuesPastFailure(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"first@x": true}}
	svc, _ := newTestService(t, sender)

	svc.sendAll(context.Background(), []Message{
		{RecipientEmail: "first@x", Markdown: "one"},
		{RecipientEmail: "second@x", Markdown: "two"},
	})

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("attempted %d sends, want 2", len(msgs))
	}
	if msgs[1].RecipientEmail != "second@x" {
		t.Errorf("second send = %q", msgs[1].RecipientEmail)
	}
}
