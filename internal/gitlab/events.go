package gitlab

import (
	"encoding/json"
	"fmt"
)

// StatusState is the closed set of pipeline states GitLab reports. Decoding
// an unknown state fails, so a payload from a newer GitLab never produces a
// half-understood event.
type StatusState string

const (
	StatusCreated            StatusState = "created"
	StatusWaitingForResource StatusState = "waiting_for_resource"
	StatusPreparing          StatusState = "preparing"
	StatusPending            StatusState = "pending"
	StatusRunning            StatusState = "running"
	StatusSuccess            StatusState = "success"
	StatusFailed             StatusState = "failed"
	StatusCanceled           StatusState = "canceled"
	StatusSkipped            StatusState = "skipped"
	StatusManual             StatusState = "manual"
	StatusScheduled          StatusState = "scheduled"
)

var validStatusStates = map[StatusState]bool{
	StatusCreated:            true,
	StatusWaitingForResource: true,
	StatusPreparing:          true,
	StatusPending:            true,
	StatusRunning:            true,
	StatusSuccess:            true,
	StatusFailed:             true,
	StatusCanceled:           true,
	StatusSkipped:            true,
	StatusManual:             true,
	StatusScheduled:          true,
}

func (s *StatusState) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st := StatusState(raw)
	if !validStatusStates[st] {
		return fmt.Errorf("unknown status state %q", raw)
	}
	*s = st
	return nil
}

// MergeStatus is carried through to messages but never branched on.
type MergeStatus string

const (
	MergeStatusUnchecked             MergeStatus = "unchecked"
	MergeStatusChecking              MergeStatus = "checking"
	MergeStatusCanBeMerged           MergeStatus = "can_be_merged"
	MergeStatusCannotBeMerged        MergeStatus = "cannot_be_merged"
	MergeStatusCannotBeMergedRecheck MergeStatus = "cannot_be_merged_recheck"
)

var validMergeStatuses = map[MergeStatus]bool{
	MergeStatusUnchecked:             true,
	MergeStatusChecking:              true,
	MergeStatusCanBeMerged:           true,
	MergeStatusCannotBeMerged:        true,
	MergeStatusCannotBeMergedRecheck: true,
}

func (s *MergeStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ms := MergeStatus(raw)
	if !validMergeStatuses[ms] {
		return fmt.Errorf("unknown merge status %q", raw)
	}
	*s = ms
	return nil
}

// User identity is the id; email/name/username are display data and never
// participate in equality. See NewAssignees.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type Project struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
}

type MergeRequestAttributes struct {
	Action      string      `json:"action,omitempty"`
	IID         int64       `json:"iid"`
	MergeStatus MergeStatus `json:"merge_status"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
}

type PipelineAttributes struct {
	ID         int64       `json:"id"`
	Ref        string      `json:"ref"`
	Status     StatusState `json:"status"`
	FinishedAt string      `json:"finished_at,omitempty"`
}

// AssigneeChanges is the before/after snapshot GitLab attaches when a merge
// request's assignee list changed.
type AssigneeChanges struct {
	Current  []User `json:"current"`
	Previous []User `json:"previous"`
}

// Changes wraps the per-field change records a merge-request webhook may
// carry; only assignee changes are of interest here.
type Changes struct {
	Assignees *AssigneeChanges `json:"assignees,omitempty"`
}

// Event is the closed union of webhook payloads revbot understands.
type Event interface {
	Kind() string
}

const (
	KindMergeRequest = "merge_request"
	KindPipeline     = "pipeline"
)

type MergeRequestEvent struct {
	MergeRequest MergeRequestAttributes `json:"object_attributes"`
	Project      Project                `json:"project"`
	User         User                   `json:"user"`
	Assignees    []User                 `json:"assignees,omitempty"`
	Changes      *Changes               `json:"changes,omitempty"`
}

func (*MergeRequestEvent) Kind() string { return KindMergeRequest }

// AssigneeChanges returns the assignee snapshot, or nil when the event
// carries no assignee change.
func (e *MergeRequestEvent) AssigneeChanges() *AssigneeChanges {
	if e.Changes == nil {
		return nil
	}
	return e.Changes.Assignees
}

type PipelineEvent struct {
	Pipeline     PipelineAttributes      `json:"object_attributes"`
	MergeRequest *MergeRequestAttributes `json:"merge_request,omitempty"`
	Project      Project                 `json:"project"`
	User         User                    `json:"user"`
}

func (*PipelineEvent) Kind() string { return KindPipeline }
