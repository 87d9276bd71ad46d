package gitlab

import (
	"encoding/json"
	"errors"
)

// ErrUnsupportedWebhook is returned for any payload that is not a complete
// merge-request or pipeline webhook. Field-level decode detail is
// deliberately not preserved: the caller only logs and drops.
var ErrUnsupportedWebhook = errors.New("unsupported webhook")

// DecodeWebhook classifies raw payload bytes by the object_kind discriminator
// and decodes the matching variant. A missing or unknown discriminator, or a
// payload that does not satisfy the variant's required shape, collapses to
// ErrUnsupportedWebhook.
func DecodeWebhook(payload []byte) (Event, error) {
	var env struct {
		ObjectKind string `json:"object_kind"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ErrUnsupportedWebhook
	}

	switch env.ObjectKind {
	case KindMergeRequest:
		var ev MergeRequestEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, ErrUnsupportedWebhook
		}
		if !ev.complete() {
			return nil, ErrUnsupportedWebhook
		}
		return &ev, nil
	case KindPipeline:
		var ev PipelineEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, ErrUnsupportedWebhook
		}
		if !ev.complete() {
			return nil, ErrUnsupportedWebhook
		}
		return &ev, nil
	default:
		return nil, ErrUnsupportedWebhook
	}
}

// complete checks the fields encoding/json cannot enforce as required.
// Optional blocks (action, changes, assignees, merge_request, finished_at)
// are valid when absent.
func (e *MergeRequestEvent) complete() bool {
	mr := e.MergeRequest
	return mr.IID > 0 && mr.Title != "" && mr.URL != "" && mr.MergeStatus != "" &&
		e.Project.ID > 0 && e.User.ID > 0
}

func (e *PipelineEvent) complete() bool {
	p := e.Pipeline
	if p.ID <= 0 || p.Ref == "" || p.Status == "" {
		return false
	}
	if e.MergeRequest != nil && e.MergeRequest.IID <= 0 {
		return false
	}
	return e.Project.ID > 0 && e.User.ID > 0
}
