package relay

import (
	"fmt"

	"revbot/internal/gitlab"
)

// Message is one outbound notification. It lives for a single delivery's
// processing and is never persisted.
type Message struct {
	RecipientEmail string
	Markdown       string
}

const (
	markerSuccess = "🌞 Success"
	markerFailed  = "⛈️ Failed"
	markerRunning = "⏳ Running"
)

// statusMarkers is the fixed partial table of notification-worthy pipeline
// states. Every other state deterministically produces no message.
var statusMarkers = map[gitlab.StatusState]string{
	gitlab.StatusSuccess: markerSuccess,
	gitlab.StatusFailed:  markerFailed,
	gitlab.StatusRunning: markerRunning,
}

func assigneeMessage(ev *gitlab.MergeRequestEvent, assignee gitlab.User) Message {
	mr := ev.MergeRequest
	body := fmt.Sprintf("[!%d %s](%s) ([%s](%s)) by @%s 🤩 Added as assignee",
		mr.IID, mr.Title, mr.URL,
		ev.Project.Name, ev.Project.WebURL,
		ev.User.Username)
	return Message{RecipientEmail: assignee.Email, Markdown: body}
}

func pipelineMessage(ev *gitlab.PipelineEvent, mr *gitlab.MergeRequestDetail, pipelineURL, marker string) Message {
	body := fmt.Sprintf("[!%d %s](%s) ([%s](%s)) [#%d](%s) %s",
		mr.IID, mr.Title, mr.WebURL,
		ev.Project.Name, ev.Project.WebURL,
		ev.Pipeline.ID, pipelineURL,
		marker)
	return Message{RecipientEmail: ev.User.Email, Markdown: body}
}
