package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "lease_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	operationTotal   *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec

	fundsTotal *prometheus.CounterVec

	conditionIngestTotal *prometheus.CounterVec

	consumerLag *prometheus.GaugeVec

	outboxPublishTotal   *prometheus.CounterVec
	outboxPublishLatency *prometheus.HistogramVec
	outboxDispatchTotal  *prometheus.CounterVec
	outboxDispatchEvents *prometheus.CounterVec

	statementExportTotal   *prometheus.CounterVec
	statementExportLatency *prometheus.HistogramVec

	notifyTotal *prometheus.CounterVec
	payoutTotal *prometheus.CounterVec

	idempotencyReplays prometheus.Counter
)

// Init registers the lease metrics and, when db is set, the DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		operationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "operations_total",
				Help: "Total lease operations by name and result",
			},
			[]string{"op", "result"},
		)
		operationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "operation_latency_seconds",
				Help:    "Lease operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "result"},
		)

		fundsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "funds_moved_total",
				Help: "Committed value movements by ledger kind and direction",
			},
			[]string{"kind", "direction"},
		)

		conditionIngestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "condition_ingest_total",
				Help: "Condition reports received from the device feed by result",
			},
			[]string{"result"},
		)

		consumerLag = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "event_consumer_lag_seconds",
				Help: "Consumer processing lag in seconds",
			},
			[]string{"consumer"},
		)

		outboxPublishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_publish_total",
				Help: "Total outbox inserts by result",
			},
			[]string{"result"},
		)
		outboxPublishLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "outbox_publish_latency_seconds",
				Help:    "Outbox insert latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		outboxDispatchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_dispatch_total",
				Help: "Total outbox dispatch runs by result",
			},
			[]string{"result"},
		)
		outboxDispatchEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_dispatch_events_total",
				Help: "Dispatched outbox events by outcome",
			},
			[]string{"outcome"},
		)

		statementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total ledger statement exports by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Ledger statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		notifyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Outbound webhook notifications by event and result",
			},
			[]string{"event", "result"},
		)
		payoutTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payouts_total",
				Help: "Payment rail transfers by ledger kind and result",
			},
			[]string{"kind", "result"},
		)

		idempotencyReplays = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "idempotency_replays_total",
				Help: "Requests answered from the idempotency store",
			},
		)

		prometheus.MustRegister(
			operationTotal,
			operationLatency,
			fundsTotal,
			conditionIngestTotal,
			consumerLag,
			outboxPublishTotal,
			outboxPublishLatency,
			outboxDispatchTotal,
			outboxDispatchEvents,
			statementExportTotal,
			statementExportLatency,
			notifyTotal,
			payoutTotal,
			idempotencyReplays,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveOperation records a lease operation and its result class.
func ObserveOperation(op, result string, duration time.Duration) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if operationTotal != nil {
		operationTotal.WithLabelValues(op, result).Inc()
	}
	if operationLatency != nil {
		operationLatency.WithLabelValues(op, result).Observe(duration.Seconds())
	}
}

// AddFunds adds a committed value movement.
func AddFunds(kind, direction string, amount int64) {
	if amount <= 0 {
		return
	}
	if fundsTotal != nil {
		fundsTotal.WithLabelValues(kind, direction).Add(float64(amount))
	}
}

// IncConditionIngest counts a device feed message.
func IncConditionIngest(result string) {
	if result == "" {
		result = "unknown"
	}
	if conditionIngestTotal != nil {
		conditionIngestTotal.WithLabelValues(result).Inc()
	}
}

// ObserveConsumerLag sets consumer lag in seconds.
func ObserveConsumerLag(consumer string, lag time.Duration) {
	if consumer == "" {
		consumer = "unknown"
	}
	if lag < 0 {
		lag = 0
	}
	if consumerLag != nil {
		consumerLag.WithLabelValues(consumer).Set(lag.Seconds())
	}
}

// ObserveOutboxPublish records an outbox insert.
func ObserveOutboxPublish(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if outboxPublishTotal != nil {
		outboxPublishTotal.WithLabelValues(result).Inc()
	}
	if outboxPublishLatency != nil {
		outboxPublishLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveOutboxDispatch records a dispatch run and its per-event outcomes.
func ObserveOutboxDispatch(result string, _ time.Duration, sent, failed, dlq int) {
	if result == "" {
		result = resultSuccess
	}
	if outboxDispatchTotal != nil {
		outboxDispatchTotal.WithLabelValues(result).Inc()
	}
	if outboxDispatchEvents == nil {
		return
	}
	if sent > 0 {
		outboxDispatchEvents.WithLabelValues("sent").Add(float64(sent))
	}
	if failed > 0 {
		outboxDispatchEvents.WithLabelValues("failed").Add(float64(failed))
	}
	if dlq > 0 {
		outboxDispatchEvents.WithLabelValues("dlq").Add(float64(dlq))
	}
}

// ObserveStatementExport records export latency and result.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if statementExportTotal != nil {
		statementExportTotal.WithLabelValues(format, result).Inc()
	}
	if statementExportLatency != nil {
		statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncNotification counts a webhook delivery attempt.
func IncNotification(event, result string) {
	if event == "" {
		event = "unknown"
	}
	if notifyTotal != nil {
		notifyTotal.WithLabelValues(event, result).Inc()
	}
}

// IncPayout counts a payment rail transfer.
func IncPayout(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if payoutTotal != nil {
		payoutTotal.WithLabelValues(kind, result).Inc()
	}
}

// IncIdempotencyReplay counts a replayed response.
func IncIdempotencyReplay() {
	if idempotencyReplays != nil {
		idempotencyReplays.Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
