package leasemqtt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lease "lease-escrow/internal/lease/domain"
)

type call struct {
	caller     lease.Identity
	propertyID lease.PropertyID
	scores     lease.Scores
}

type fakeReporter struct {
	calls []call
	err   error
}

func (f *fakeReporter) UpdateConditionReport(_ context.Context, caller lease.Identity, propertyID lease.PropertyID, scores lease.Scores) (lease.MaintenanceSnapshot, error) {
	f.calls = append(f.calls, call{caller: caller, propertyID: propertyID, scores: scores})
	if f.err != nil {
		return lease.MaintenanceSnapshot{}, f.err
	}
	return lease.MaintenanceSnapshot{PropertyID: propertyID, Overall: scores.Overall()}, nil
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestHandle_StoresReportAsOperator(t *testing.T) {
	reporter := &fakeReporter{}
	consumer := NewConsumer(nil, reporter, "operator", Config{}, nil)

	err := consumer.Handle(context.Background(), "lease/properties/prop-7/condition",
		[]byte(`{"temperature":90,"plumbing":60,"security":75}`))
	require.NoError(t, err)
	require.Len(t, reporter.calls, 1)
	assert.Equal(t, lease.Identity("operator"), reporter.calls[0].caller)
	assert.Equal(t, lease.PropertyID(7), reporter.calls[0].propertyID)
	assert.Equal(t, lease.Scores{Temperature: 90, Plumbing: 60, Security: 75}, reporter.calls[0].scores)
}

func TestHandle_RejectsMalformedInput(t *testing.T) {
	reporter := &fakeReporter{}
	consumer := NewConsumer(nil, reporter, "operator", Config{}, nil)
	ctx := context.Background()

	err := consumer.Handle(ctx, "lease/devices/7/condition", []byte(`{}`))
	assert.ErrorIs(t, err, lease.ErrValidation)

	err = consumer.Handle(ctx, "lease/properties/7/condition", []byte(`not json`))
	assert.Error(t, err)

	err = consumer.Handle(ctx, "lease/properties/7/condition", []byte(`{"temperature":90}`))
	assert.ErrorIs(t, err, lease.ErrValidation)

	assert.Empty(t, reporter.calls)
}

func TestHandle_PropagatesServiceRejection(t *testing.T) {
	reporter := &fakeReporter{err: lease.ErrNotReporter}
	consumer := NewConsumer(nil, reporter, "gateway", Config{}, nil)

	err := consumer.Handle(context.Background(), "lease/properties/1/condition",
		[]byte(`{"temperature":1,"plumbing":2,"security":3}`))
	assert.True(t, errors.Is(err, lease.ErrUnauthorized))
}

func TestOnMessage_SwallowsErrors(t *testing.T) {
	reporter := &fakeReporter{}
	consumer := NewConsumer(nil, reporter, "operator", Config{}, nil)

	consumer.onMessage(nil, fakeMessage{topic: "lease/properties/3/condition", payload: []byte(`{"temperature":10,"plumbing":20,"security":30}`)})
	consumer.onMessage(nil, fakeMessage{topic: "bad", payload: nil})

	require.Len(t, reporter.calls, 1)
	assert.Equal(t, lease.PropertyID(3), reporter.calls[0].propertyID)
}

func TestStart_RequiresClient(t *testing.T) {
	consumer := NewConsumer(nil, &fakeReporter{}, "operator", Config{}, nil)
	assert.Error(t, consumer.Start(context.Background()))
}
