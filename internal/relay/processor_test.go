package relay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"revbot/internal/gitlab"
	logx "revbot/pkg/logx"
)

type fakeSource struct {
	pipeline    *gitlab.PipelineDetail
	pipelineErr error
	mr          *gitlab.MergeRequestDetail
	mrErr       error

	pipelineCalls int
	mrCalls       int
}

func (f *fakeSource) GetPipelineDetail(ctx context.Context, projectID, pipelineID int64) (*gitlab.PipelineDetail, error) {
	f.pipelineCalls++
	return f.pipeline, f.pipelineErr
}

func (f *fakeSource) GetMergeRequestDetail(ctx context.Context, projectID, mergeRequestIID int64) (*gitlab.MergeRequestDetail, error) {
	f.mrCalls++
	return f.mr, f.mrErr
}

func mergeRequestEvent(changes *gitlab.AssigneeChanges) *gitlab.MergeRequestEvent {
	ev := &gitlab.MergeRequestEvent{
		MergeRequest: gitlab.MergeRequestAttributes{
			IID:         3,
			MergeStatus: gitlab.MergeStatusUnchecked,
			Title:       "Fail pipeline",
			URL:         "https://x/mr/3",
		},
		Project: gitlab.Project{ID: 1, Name: "mr-test", WebURL: "https://x/p"},
		User:    gitlab.User{ID: 9, Email: "acting@x", Username: "acting"},
	}
	if changes != nil {
		ev.Changes = &gitlab.Changes{Assignees: changes}
	}
	return ev
}

func pipelineEvent(status gitlab.StatusState, linkedIID int64) *gitlab.PipelineEvent {
	ev := &gitlab.PipelineEvent{
		Pipeline: gitlab.PipelineAttributes{ID: 9, Ref: "main", Status: status},
		Project:  gitlab.Project{ID: 1, Name: "mr-test", WebURL: "https://x/p"},
		User:     gitlab.User{ID: 9, Email: "trigger@x", Username: "trigger"},
	}
	if linkedIID > 0 {
		ev.MergeRequest = &gitlab.MergeRequestAttributes{
			IID:         linkedIID,
			MergeStatus: gitlab.MergeStatusCanBeMerged,
			Title:       "Fix bug",
			URL:         "https://x/mr/3",
		}
	}
	return ev
}

func TestProcessMergeRequestNewAssignees(t *testing.T) {
	src := &fakeSource{}
	p := NewProcessor(src, logx.Nop())

	ev := mergeRequestEvent(&gitlab.AssigneeChanges{
		Current: []gitlab.User{
			{ID: 1, Email: "a@x", Username: "a"},
			{ID: 2, Email: "b@x", Username: "b"},
			{ID: 4, Email: "d@x", Username: "d"},
		},
		Previous: []gitlab.User{{ID: 1, Email: "a@x", Username: "a"}},
	})

	msgs := p.Process(context.Background(), ev)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2: %+v", len(msgs), msgs)
	}
	if msgs[0].RecipientEmail != "b@x" || msgs[1].RecipientEmail != "d@x" {
		t.Errorf("recipients = %q, %q", msgs[0].RecipientEmail, msgs[1].RecipientEmail)
	}
	for _, m := range msgs {
		if !strings.Contains(m.Markdown, "!3 Fail pipeline") {
			t.Errorf("body missing MR reference: %q", m.Markdown)
		}
		if !strings.Contains(m.Markdown, "@acting") {
			t.Errorf("body missing acting user: %q", m.Markdown)
		}
		if !strings.Contains(m.Markdown, "Added as assignee") {
			t.Errorf("body missing assignee tag: %q", m.Markdown)
		}
	}
	if src.pipelineCalls+src.mrCalls != 0 {
		t.Error("merge request processing must not call the API")
	}
}

func TestProcessMergeRequestNoChanges(t *testing.T) {
	p := NewProcessor(&fakeSource{}, logx.Nop())
	if msgs := p.Process(context.Background(), mergeRequestEvent(nil)); len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
}

func TestProcessPipelineRunning(t *testing.T) {
	src := &fakeSource{
		pipeline: &gitlab.PipelineDetail{Ref: "main", Status: gitlab.StatusRunning, WebURL: "https://x/p/9"},
		mr:       &gitlab.MergeRequestDetail{IID: 3, Title: "Fix bug", WebURL: "https://x/mr/3"},
	}
	p := NewProcessor(src, logx.Nop())

	msgs := p.Process(context.Background(), pipelineEvent(gitlab.StatusRunning, 3))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.RecipientEmail != "trigger@x" {
		t.Errorf("recipient = %q, want trigger@x", m.RecipientEmail)
	}
	for _, want := range []string{"Fix bug", "#9", "https://x/p/9", "⏳ Running"} {
		if !strings.Contains(m.Markdown, want) {
			t.Errorf("body missing %q: %q", want, m.Markdown)
		}
	}
	if src.pipelineCalls != 1 || src.mrCalls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", src.pipelineCalls, src.mrCalls)
	}
}

func TestProcessPipelineUnworthyStatuses(t *testing.T) {
	statuses := []gitlab.StatusState{
		gitlab.StatusCreated,
		gitlab.StatusWaitingForResource,
		gitlab.StatusPreparing,
		gitlab.StatusPending,
		gitlab.StatusCanceled,
		gitlab.StatusSkipped,
		gitlab.StatusManual,
		gitlab.StatusScheduled,
	}
	for _, st := range statuses {
		t.Run(string(st), func(t *testing.T) {
			src := &fakeSource{}
			p := NewProcessor(src, logx.Nop())
			if msgs := p.Process(context.Background(), pipelineEvent(st, 3)); len(msgs) != 0 {
				t.Fatalf("got %d messages, want 0", len(msgs))
			}
			if src.pipelineCalls+src.mrCalls != 0 {
				t.Error("no lookup should happen for unworthy statuses")
			}
		})
	}
}

func TestProcessPipelineWithoutMergeRequest(t *testing.T) {
	src := &fakeSource{}
	p := NewProcessor(src, logx.Nop())
	if msgs := p.Process(context.Background(), pipelineEvent(gitlab.StatusSuccess, 0)); len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
	if src.pipelineCalls+src.mrCalls != 0 {
		t.Error("enrichment must never run without a linked merge request")
	}
}

func TestProcessPipelineFirstLookupFails(t *testing.T) {
	src := &fakeSource{pipelineErr: errors.New("connection refused")}
	p := NewProcessor(src, logx.Nop())
	if msgs := p.Process(context.Background(), pipelineEvent(gitlab.StatusFailed, 3)); len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
	if src.mrCalls != 0 {
		t.Error("second lookup must not run after the first fails")
	}
}

func TestProcessPipelineSecondLookupFails(t *testing.T) {
	src := &fakeSource{
		pipeline: &gitlab.PipelineDetail{WebURL: "https://x/p/9"},
		mrErr:    errors.New("404 Not Found"),
	}
	p := NewProcessor(src, logx.Nop())
	if msgs := p.Process(context.Background(), pipelineEvent(gitlab.StatusSuccess, 3)); len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
	if src.pipelineCalls != 1 || src.mrCalls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", src.pipelineCalls, src.mrCalls)
	}
}
