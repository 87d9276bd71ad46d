package relay

import (
	"context"

	"revbot/internal/gitlab"
	logx "revbot/pkg/logx"
)

// SourceControl is the narrow read-only capability the processor needs from
// the source-control API. gitlab.Client is the production implementation;
// tests use fakes.
type SourceControl interface {
	GetPipelineDetail(ctx context.Context, projectID, pipelineID int64) (*gitlab.PipelineDetail, error)
	GetMergeRequestDetail(ctx context.Context, projectID, mergeRequestIID int64) (*gitlab.MergeRequestDetail, error)
}

// Processor turns one decoded event into zero or more messages. It is a
// deterministic function of the event and the source-control responses, so it
// can be exercised without any scheduler or network.
type Processor struct {
	src SourceControl
	log logx.Logger
}

func NewProcessor(src SourceControl, log logx.Logger) *Processor {
	return &Processor{src: src, log: log}
}

// Process never fails: "nothing to send" is an empty result, and enrichment
// problems degrade to an empty result after logging. The worst outcome of any
// event is a silently dropped notification.
func (p *Processor) Process(ctx context.Context, ev gitlab.Event) []Message {
	switch ev := ev.(type) {
	case *gitlab.MergeRequestEvent:
		return p.processMergeRequest(ev)
	case *gitlab.PipelineEvent:
		return p.processPipeline(ctx, ev)
	default:
		return nil
	}
}

func (p *Processor) processMergeRequest(ev *gitlab.MergeRequestEvent) []Message {
	added := gitlab.NewAssignees(ev.AssigneeChanges())
	if len(added) == 0 {
		return nil
	}

	msgs := make([]Message, 0, len(added))
	for _, assignee := range added {
		msgs = append(msgs, assigneeMessage(ev, assignee))
	}
	p.log.Debug("composed assignee messages",
		logx.Int64("mr_iid", ev.MergeRequest.IID),
		logx.Int("count", len(msgs)),
	)
	return msgs
}

func (p *Processor) processPipeline(ctx context.Context, ev *gitlab.PipelineEvent) []Message {
	marker, worthy := statusMarkers[ev.Pipeline.Status]
	if !worthy {
		p.log.Debug("pipeline status not notification-worthy",
			logx.Int64("pipeline_id", ev.Pipeline.ID),
			logx.String("status", string(ev.Pipeline.Status)),
		)
		return nil
	}

	// Pipelines without a merge request attached are intentionally unreported,
	// and cheap to skip: no lookup ever happens for them.
	if ev.MergeRequest == nil {
		p.log.Debug("pipeline has no linked merge request; skipping",
			logx.Int64("pipeline_id", ev.Pipeline.ID),
		)
		return nil
	}

	// Two sequential lookups; the second is only meaningful after the first
	// succeeds. Either failure drops the event without propagating.
	pipeline, err := p.src.GetPipelineDetail(ctx, ev.Project.ID, ev.Pipeline.ID)
	if err != nil {
		lookupFailures.WithLabelValues("pipeline").Inc()
		p.log.Warn("pipeline detail lookup failed",
			logx.Int64("project_id", ev.Project.ID),
			logx.Int64("pipeline_id", ev.Pipeline.ID),
			logx.Err(err),
		)
		return nil
	}

	mr, err := p.src.GetMergeRequestDetail(ctx, ev.Project.ID, ev.MergeRequest.IID)
	if err != nil {
		lookupFailures.WithLabelValues("merge_request").Inc()
		p.log.Warn("merge request detail lookup failed",
			logx.Int64("project_id", ev.Project.ID),
			logx.Int64("mr_iid", ev.MergeRequest.IID),
			logx.Err(err),
		)
		return nil
	}

	return []Message{pipelineMessage(ev, mr, pipeline.WebURL, marker)}
}
