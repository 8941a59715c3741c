package leasemqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"lease-escrow/internal/eventing"
	lease "lease-escrow/internal/lease/domain"
	"lease-escrow/internal/observability/metrics"
)

// DefaultTopic matches lease/properties/{propertyID}/condition.
const DefaultTopic = "lease/properties/+/condition"

// Config holds broker settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// Connect dials the broker with auto-reconnect.
func Connect(cfg Config) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: broker is required")
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// ConditionReporter stores condition reports.
type ConditionReporter interface {
	UpdateConditionReport(ctx context.Context, caller lease.Identity, propertyID lease.PropertyID, scores lease.Scores) (lease.MaintenanceSnapshot, error)
}

// Consumer feeds condition reports published by property sensors into the
// lease service under the reporter identity.
type Consumer struct {
	client   mqtt.Client
	reporter ConditionReporter
	identity lease.Identity
	topic    string
	qos      byte
	timeout  time.Duration
	logger   *zap.Logger
}

// NewConsumer constructs a consumer. identity must be authorised to report,
// typically the platform operator.
func NewConsumer(client mqtt.Client, reporter ConditionReporter, identity lease.Identity, cfg Config, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &Consumer{
		client:   client,
		reporter: reporter,
		identity: identity,
		topic:    topic,
		qos:      cfg.QoS,
		timeout:  10 * time.Second,
		logger:   logger,
	}
}

// Start subscribes and blocks until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.client == nil {
		return errors.New("mqtt: nil client")
	}
	if token := c.client.Subscribe(c.topic, c.qos, c.onMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", c.topic, token.Error())
	}
	c.logger.Info("condition consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	if token := c.client.Unsubscribe(c.topic); token.Wait() && token.Error() != nil {
		c.logger.Warn("condition consumer unsubscribe failed", zap.Error(token.Error()))
	}
	c.logger.Info("condition consumer stopped")
	return nil
}

func (c *Consumer) onMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
		c.logger.Warn("condition report dropped", zap.String("topic", msg.Topic()), zap.Error(err))
	}
}

type conditionPayload struct {
	Temperature *int `json:"temperature"`
	Plumbing    *int `json:"plumbing"`
	Security    *int `json:"security"`
}

// Handle parses one message and stores the report.
func (c *Consumer) Handle(ctx context.Context, topic string, payload []byte) error {
	propertyID, err := propertyFromTopic(topic)
	if err != nil {
		metrics.IncConditionIngest("invalid")
		return err
	}
	var body conditionPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		metrics.IncConditionIngest("invalid")
		return fmt.Errorf("mqtt: decode payload: %w", err)
	}
	if body.Temperature == nil || body.Plumbing == nil || body.Security == nil {
		metrics.IncConditionIngest("invalid")
		return fmt.Errorf("%w: condition payload needs temperature, plumbing and security", lease.ErrValidation)
	}

	ctx = eventing.WithActor(ctx, string(c.identity))
	snapshot, err := c.reporter.UpdateConditionReport(ctx, c.identity, propertyID, lease.Scores{
		Temperature: *body.Temperature,
		Plumbing:    *body.Plumbing,
		Security:    *body.Security,
	})
	if err != nil {
		if lease.Class(err) != nil {
			metrics.IncConditionIngest("rejected")
		} else {
			metrics.IncConditionIngest(metrics.ResultError)
		}
		return err
	}
	metrics.IncConditionIngest(metrics.ResultSuccess)
	c.logger.Debug("condition report stored",
		zap.String("property_id", propertyID.String()),
		zap.Uint8("overall", snapshot.Overall),
	)
	return nil
}

// propertyFromTopic extracts the id from lease/properties/{id}/condition.
func propertyFromTopic(topic string) (lease.PropertyID, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[1] != "properties" || parts[3] != "condition" {
		return 0, fmt.Errorf("%w: unexpected topic %q", lease.ErrValidation, topic)
	}
	return lease.ParsePropertyID(parts[2])
}
