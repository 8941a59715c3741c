package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lease-escrow/internal/eventing"
	"lease-escrow/internal/eventing/eventbus"
	"lease-escrow/internal/lease/application"
)

var raisedAt = time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)

type recordingChannel struct {
	mu       sync.Mutex
	contents []string
	err      error
}

func (r *recordingChannel) Send(_ context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.contents = append(r.contents, content)
	return nil
}

func (r *recordingChannel) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contents)
}

func (r *recordingChannel) Latest() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.contents) == 0 {
		return ""
	}
	return r.contents[len(r.contents)-1]
}

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	require.NoError(t, err)
	notifier, err := NewNotifier(channel, nil)
	require.NoError(t, err)

	bus := eventbus.NewInMemoryBus()
	notifier.Register(bus, nil)
	ctx := eventing.WithEnvelope(context.Background(), eventing.Envelope{EventID: "evt-1", CorrelationID: "req-42"})
	require.NoError(t, bus.Publish(ctx, application.DisputeRaised{
		AgreementID: "agr-7",
		PropertyID:  "prop-3",
		RaisedBy:    "landlord",
		Stake:       100,
		OccurredAt:  raisedAt,
	}))

	select {
	case payload := <-payloadCh:
		assert.Equal(t, "text", payload.MsgType)
		for _, expected := range []string{
			"[Dispute Raised]",
			"Agreement: agr-7",
			"Property: prop-3",
			"Raised By: landlord",
			"Amount: 100",
			"Time: 2026-02-03T09:30:00Z",
			"Correlation: req-42",
		} {
			assert.Contains(t, payload.Text.Content, expected)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for webhook payload")
	}
}

func TestWebhookChannelNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	require.NoError(t, err)
	assert.Error(t, channel.Send(context.Background(), "hello"), "502 must fail the send")

	_, err = NewWebhookChannel("")
	assert.Error(t, err)
}

func TestNotifierResolvedOutcome(t *testing.T) {
	channel := &recordingChannel{}
	notifier, err := NewNotifier(channel, nil)
	require.NoError(t, err)

	require.NoError(t, notifier.Handle(context.Background(), application.DisputeResolved{
		AgreementID: "agr-7",
		FavorTenant: true,
		DepositTo:   "tenant",
		Deposit:     2000,
		OccurredAt:  raisedAt,
	}))
	content := channel.Latest()
	assert.Contains(t, content, "[Dispute Resolved]")
	assert.Contains(t, content, "Outcome: deposit refunded to tenant")
	assert.NotContains(t, content, "Raised By:")
}

func TestNotifierIgnoresOtherEvents(t *testing.T) {
	channel := &recordingChannel{}
	notifier, err := NewNotifier(channel, nil)
	require.NoError(t, err)
	bus := eventbus.NewInMemoryBus()
	notifier.Register(bus, nil)

	require.NoError(t, bus.Publish(context.Background(), application.RentPaid{AgreementID: "agr-1", Amount: 1000}))
	assert.Zero(t, channel.Count())
}

func TestNotifierSendFailureDoesNotFailPublisher(t *testing.T) {
	channel := &recordingChannel{err: errors.New("webhook down")}
	notifier, err := NewNotifier(channel, nil)
	require.NoError(t, err)

	assert.NoError(t, notifier.Handle(context.Background(), application.DisputeRaised{AgreementID: "agr-2", OccurredAt: raisedAt}))
}

func TestNotifierDedupeWindow(t *testing.T) {
	now := raisedAt
	channel := &recordingChannel{}
	notifier, err := NewNotifier(channel, nil,
		WithClock(func() time.Time { return now }),
		WithDedupeWindow(10*time.Minute),
	)
	require.NoError(t, err)
	event := application.DisputeRaised{AgreementID: "agr-3", RaisedBy: "tenant", Stake: 100, OccurredAt: raisedAt}

	_ = notifier.Handle(context.Background(), event)
	now = now.Add(time.Minute)
	_ = notifier.Handle(context.Background(), event)
	assert.Equal(t, 1, channel.Count(), "duplicate inside window is suppressed")

	now = now.Add(10 * time.Minute)
	_ = notifier.Handle(context.Background(), event)
	assert.Equal(t, 2, channel.Count())
}

func TestNotifierSkipsProcessedEvents(t *testing.T) {
	channel := &recordingChannel{}
	notifier, err := NewNotifier(channel, nil)
	require.NoError(t, err)
	bus := eventbus.NewInMemoryBus()
	notifier.Register(bus, eventing.NewMemoryProcessedStore())

	ctx := eventing.WithEnvelope(context.Background(), eventing.Envelope{EventID: "evt-9", OccurredAt: raisedAt})
	event := application.DisputeRaised{AgreementID: "agr-4", OccurredAt: raisedAt}
	for i := 0; i < 2; i++ {
		require.NoError(t, bus.Publish(ctx, event))
	}
	assert.Equal(t, 1, channel.Count(), "redelivery is skipped")
}
