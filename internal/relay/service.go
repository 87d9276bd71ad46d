package relay

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"revbot/internal/gitlab"
	"revbot/internal/runtime/supervisor"
	logx "revbot/pkg/logx"
)

var (
	webhooksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revbot_webhooks_received_total",
		Help: "Total number of decoded webhook deliveries.",
	}, []string{"kind"})

	webhooksUnsupported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revbot_webhooks_unsupported_total",
		Help: "Total number of webhook deliveries dropped as unsupported."})

	lookupFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revbot_lookup_failures_total",
		Help: "Total number of failed enrichment lookups.",
	}, []string{"lookup"})

	messagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revbot_messages_sent_total",
		Help: "Total number of messages delivered to Webex."})

	messageErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revbot_message_errors_total",
		Help: "Total number of failed Webex deliveries."})
)

func init() {
	prometheus.MustRegister(
		webhooksReceived,
		webhooksUnsupported,
		lookupFailures,
		messagesSent,
		messageErrors,
	)
}

// MessageSender is the narrow write-only capability the relay needs from the
// chat backend. webex.Client is the production implementation.
type MessageSender interface {
	SendMessage(ctx context.Context, recipientEmail, markdown string) error
}

// Service runs one delivery end to end: decode, process, send. Deliveries are
// independent units of work with no shared mutable state, so any number of
// them may run concurrently.
type Service struct {
	proc   *Processor
	sender MessageSender
	sup    *supervisor.Supervisor
	log    logx.Logger
}

func NewService(proc *Processor, sender MessageSender, sup *supervisor.Supervisor, log logx.Logger) *Service {
	return &Service{proc: proc, sender: sender, sup: sup, log: log}
}

// Dispatch hands one raw delivery to its own supervised task and returns
// immediately. The webhook sender never waits on processing or delivery.
func (s *Service) Dispatch(body []byte) {
	s.sup.Go0("delivery", func(ctx context.Context) {
		s.handle(ctx, body)
	})
}

func (s *Service) handle(ctx context.Context, body []byte) {
	ev, err := gitlab.DecodeWebhook(body)
	if err != nil {
		webhooksUnsupported.Inc()
		s.log.Warn("dropping webhook", logx.Err(err), logx.Int("bytes", len(body)))
		return
	}
	webhooksReceived.WithLabelValues(ev.Kind()).Inc()

	s.sendAll(ctx, s.proc.Process(ctx, ev))
}

// sendAll delivers sequentially; a failed send is logged and never blocks the
// rest of the batch.
func (s *Service) sendAll(ctx context.Context, msgs []Message) {
	for _, m := range msgs {
		if err := s.sender.SendMessage(ctx, m.RecipientEmail, m.Markdown); err != nil {
			messageErrors.Inc()
			s.log.Warn("message send failed",
				logx.String("recipient", m.RecipientEmail),
				logx.Err(err),
			)
			continue
		}
		messagesSent.Inc()
		s.log.Info("message sent", logx.String("recipient", m.RecipientEmail))
	}
}
