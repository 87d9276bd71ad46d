package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gl "github.com/xanzy/go-gitlab"

	logx "revbot/pkg/logx"
)

// PipelineDetail is the slice of the pipeline API resource the relay needs;
// webhook payloads omit the canonical web URL.
type PipelineDetail struct {
	Ref    string
	Status StatusState
	WebURL string
}

// MergeRequestDetail mirrors the merge-request API resource.
type MergeRequestDetail struct {
	ID             int64
	IID            int64
	Title          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Author         User
	Assignees      []User
	Reviewers      []User
	MergeStatus    string
	WorkInProgress bool
	WebURL         string
	Pipeline       *PipelineDetail
}

type ClientConfig struct {
	Hostname    string
	AccessToken string

	// LookupTimeout bounds each API call.
	LookupTimeout time.Duration
}

// Client is the production source-control collaborator. The relay depends on
// the narrow relay.SourceControl interface, so tests never touch this type.
type Client struct {
	gl      *gl.Client
	timeout time.Duration
	log     logx.Logger
}

func NewClient(cfg ClientConfig, log logx.Logger) (*Client, error) {
	host := strings.TrimSpace(cfg.Hostname)
	if host == "" {
		return nil, fmt.Errorf("gitlab: hostname is required")
	}
	baseURL := host
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}

	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	api, err := gl.NewClient(cfg.AccessToken,
		gl.WithBaseURL(baseURL),
		gl.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("gitlab: new client: %w", err)
	}

	return &Client{gl: api, timeout: timeout, log: log}, nil
}

func (c *Client) GetPipelineDetail(ctx context.Context, projectID, pipelineID int64) (*PipelineDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	p, _, err := c.gl.Pipelines.GetPipeline(int(projectID), int(pipelineID), gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get pipeline %d in project %d: %w", pipelineID, projectID, err)
	}
	c.log.Debug("fetched pipeline detail",
		logx.Int64("project_id", projectID),
		logx.Int64("pipeline_id", pipelineID),
		logx.String("web_url", p.WebURL),
	)
	return &PipelineDetail{
		Ref:    p.Ref,
		Status: StatusState(p.Status),
		WebURL: p.WebURL,
	}, nil
}

func (c *Client) GetMergeRequestDetail(ctx context.Context, projectID, mergeRequestIID int64) (*MergeRequestDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mr, _, err := c.gl.MergeRequests.GetMergeRequest(int(projectID), int(mergeRequestIID), nil, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get merge request !%d in project %d: %w", mergeRequestIID, projectID, err)
	}
	c.log.Debug("fetched merge request detail",
		logx.Int64("project_id", projectID),
		logx.Int64("mr_iid", mergeRequestIID),
		logx.String("web_url", mr.WebURL),
	)

	detail := &MergeRequestDetail{
		ID:             int64(mr.ID),
		IID:            int64(mr.IID),
		Title:          mr.Title,
		Author:         basicUser(mr.Author),
		MergeStatus:    mr.MergeStatus,
		WorkInProgress: mr.WorkInProgress,
		WebURL:         mr.WebURL,
	}
	if mr.CreatedAt != nil {
		detail.CreatedAt = *mr.CreatedAt
	}
	if mr.UpdatedAt != nil {
		detail.UpdatedAt = *mr.UpdatedAt
	}
	for _, a := range mr.Assignees {
		detail.Assignees = append(detail.Assignees, basicUser(a))
	}
	for _, r := range mr.Reviewers {
		detail.Reviewers = append(detail.Reviewers, basicUser(r))
	}
	if mr.Pipeline != nil {
		detail.Pipeline = &PipelineDetail{
			Ref:    mr.Pipeline.Ref,
			Status: StatusState(mr.Pipeline.Status),
			WebURL: mr.Pipeline.WebURL,
		}
	}
	return detail, nil
}

func basicUser(u *gl.BasicUser) User {
	if u == nil {
		return User{}
	}
	return User{
		ID:       int64(u.ID),
		Name:     u.Name,
		Username: u.Username,
	}
}
