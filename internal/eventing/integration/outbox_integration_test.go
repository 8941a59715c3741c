package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"lease-escrow/internal/eventing"
	"lease-escrow/internal/eventing/eventbus"
	eventingrepo "lease-escrow/internal/eventing/infrastructure/postgres"
	"lease-escrow/internal/lease/application"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if !tableExists(db, "event_outbox") ||
		!tableExists(db, "processed_events") ||
		!tableExists(db, "dead_letter_events") {
		t.Skip("missing tables; run migrations")
	}
	ctx := context.Background()
	_, _ = db.ExecContext(ctx, "DELETE FROM processed_events")
	_, _ = db.ExecContext(ctx, "DELETE FROM dead_letter_events")
	_, _ = db.ExecContext(ctx, "DELETE FROM event_outbox")
	return db
}

func TestOutbox_IdempotentConsumer(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	bus := eventbus.NewInMemoryBus()
	outbox := eventingrepo.NewOutboxStore(db)
	dispatcher := eventing.NewDispatcher(bus, outbox, eventing.NewRegistry(application.Events()...), eventingrepo.NewDLQStore(db))
	publisher := eventing.NewPublisher(outbox, bus, nil)

	count := 0
	eventing.Subscribe(bus, eventbus.EventTypeOf[application.RentReleased](), "statement-indexer", func(ctx context.Context, event any) error {
		count++
		return nil
	}, eventingrepo.NewProcessedStore(db))

	ctx = eventing.WithEventID(ctx, "evt-dup-001")
	payload := application.RentReleased{
		AgreementID: "agr-1",
		Landlord:    "landlord-1",
		Gross:       1000,
		Fee:         30,
		Paid:        970,
		OccurredAt:  time.Date(2026, time.January, 25, 11, 0, 0, 0, time.UTC),
	}
	if err := publisher.Publish(ctx, payload); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	if err := publisher.Publish(ctx, payload); err != nil {
		t.Fatalf("publish duplicate: %v", err)
	}
	if _, err := dispatcher.Dispatch(ctx, 10); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected handler once, got %d", count)
	}
}

func TestOutbox_DLQOnFailure(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	bus := eventbus.NewInMemoryBus()
	outbox := eventingrepo.NewOutboxStore(db)
	dispatcher := eventing.NewDispatcher(bus, outbox, eventing.NewRegistry(application.Events()...), eventingrepo.NewDLQStore(db))

	eventing.Subscribe(bus, eventbus.EventTypeOf[application.DisputeRaised](), "dispute-webhook", func(ctx context.Context, event any) error {
		return errors.New("boom")
	}, eventingrepo.NewProcessedStore(db))

	payload := application.DisputeRaised{
		AgreementID: "agr-2",
		PropertyID:  "prop-1",
		RaisedBy:    "tenant-1",
		Stake:       100,
		OccurredAt:  time.Date(2026, time.January, 25, 13, 0, 0, 0, time.UTC),
	}
	if err := eventing.NewPublisher(outbox, nil, nil).Publish(ctx, payload); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	_, _ = dispatcher.Dispatch(ctx, 10)

	var dlqCount int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dead_letter_events").Scan(&dlqCount); err != nil {
		t.Fatalf("count dlq: %v", err)
	}
	if dlqCount != 1 {
		t.Fatalf("expected 1 dlq record, got %d", dlqCount)
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
