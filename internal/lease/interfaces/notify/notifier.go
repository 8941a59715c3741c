package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"lease-escrow/internal/eventing"
	"lease-escrow/internal/eventing/eventbus"
	"lease-escrow/internal/lease/application"
	"lease-escrow/internal/observability/metrics"
)

// ConsumerName identifies the notifier in the processed-events table.
const ConsumerName = "lease.notify.dispute"

const (
	eventRaised   = "dispute_raised"
	eventResolved = "dispute_resolved"
)

// Notifier turns dispute events into operator messages.
type Notifier struct {
	channel      Channel
	template     *Template
	logger       *zap.Logger
	clock        func() time.Time
	dedupeWindow time.Duration

	mu   sync.Mutex
	sent map[string]time.Time
}

// Option configures the notifier.
type Option func(*Notifier)

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock func() time.Time) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithDedupeWindow suppresses identical messages within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// NewNotifier constructs a dispute notifier.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("dispute notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:  channel,
		template: template,
		logger:   zap.NewNop(),
		clock:    func() time.Time { return time.Now().UTC() },
		sent:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Register subscribes the notifier to dispute events. When processed is set,
// redelivered events are skipped per event id.
func (n *Notifier) Register(bus eventbus.EventBus, processed eventing.ProcessedStore) {
	if n == nil || bus == nil {
		return
	}
	eventing.Subscribe(bus, eventbus.EventTypeOf[application.DisputeRaised](), ConsumerName, n.Handle, processed)
	eventing.Subscribe(bus, eventbus.EventTypeOf[application.DisputeResolved](), ConsumerName, n.Handle, processed)
}

// Handle renders and sends one event. Delivery failures are logged and
// counted but never fail the publisher.
func (n *Notifier) Handle(ctx context.Context, event any) error {
	data, ok := templateData(event)
	if !ok {
		return nil
	}
	if env, found := eventing.EnvelopeFromContext(ctx); found {
		data.CorrelationID = env.CorrelationID
	}
	content, err := n.template.Render(data)
	if err != nil {
		metrics.IncNotification(data.Event, metrics.ResultError)
		n.logger.Warn("render dispute notification", zap.String("agreement_id", data.AgreementID), zap.Error(err))
		return nil
	}
	if !n.shouldSend(content) {
		metrics.IncNotification(data.Event, "suppressed")
		return nil
	}
	if err := n.channel.Send(ctx, content); err != nil {
		metrics.IncNotification(data.Event, metrics.ResultError)
		n.logger.Warn("send dispute notification",
			zap.String("event", data.Event),
			zap.String("agreement_id", data.AgreementID),
			zap.Error(err),
		)
		return nil
	}
	n.markSent(content)
	metrics.IncNotification(data.Event, metrics.ResultSuccess)
	return nil
}

func templateData(event any) (TemplateData, bool) {
	switch e := event.(type) {
	case application.DisputeRaised:
		return TemplateData{
			Event:       eventRaised,
			EventLabel:  "Raised",
			AgreementID: e.AgreementID,
			PropertyID:  e.PropertyID,
			RaisedBy:    e.RaisedBy,
			Amount:      strconv.FormatInt(e.Stake, 10),
			OccurredAt:  e.OccurredAt.UTC().Format(time.RFC3339),
		}, true
	case application.DisputeResolved:
		outcome := "landlord keeps deposit"
		if e.FavorTenant {
			outcome = "deposit refunded to tenant"
		}
		return TemplateData{
			Event:       eventResolved,
			EventLabel:  "Resolved",
			AgreementID: e.AgreementID,
			Outcome:     outcome,
			Amount:      strconv.FormatInt(e.Deposit, 10),
			OccurredAt:  e.OccurredAt.UTC().Format(time.RFC3339),
		}, true
	case *application.DisputeRaised:
		if e == nil {
			return TemplateData{}, false
		}
		return templateData(*e)
	case *application.DisputeResolved:
		if e == nil {
			return TemplateData{}, false
		}
		return templateData(*e)
	default:
		return TemplateData{}, false
	}
}

func (n *Notifier) shouldSend(content string) bool {
	if n.dedupeWindow <= 0 {
		return true
	}
	n.mu.Lock()
	at, ok := n.sent[hashContent(content)]
	n.mu.Unlock()
	return !ok || n.clock().Sub(at) >= n.dedupeWindow
}

func (n *Notifier) markSent(content string) {
	if n.dedupeWindow <= 0 {
		return
	}
	now := n.clock()
	n.mu.Lock()
	n.sent[hashContent(content)] = now
	for key, at := range n.sent {
		if now.Sub(at) >= n.dedupeWindow {
			delete(n.sent, key)
		}
	}
	n.mu.Unlock()
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}
