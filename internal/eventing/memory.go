package eventing

import (
	"context"
	"sync"
	"time"
)

// MemoryOutbox is an in-process outbox used when no database is configured.
type MemoryOutbox struct {
	mu      sync.Mutex
	records []memoryRecord
}

type memoryRecord struct {
	id       string
	env      Envelope
	status   string
	attempts int
}

// NewMemoryOutbox constructs an empty outbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

// Insert appends a pending record. Inserting an event id twice is a no-op.
func (o *MemoryOutbox) Insert(_ context.Context, env Envelope) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, record := range o.records {
		if record.env.EventID == env.EventID {
			return record.id, nil
		}
	}
	id := NewEventID()
	o.records = append(o.records, memoryRecord{id: id, env: env, status: "pending"})
	return id, nil
}

// ListPending returns pending records oldest first.
func (o *MemoryOutbox) ListPending(_ context.Context, limit int) ([]OutboxRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var result []OutboxRecord
	for _, record := range o.records {
		if record.status != "pending" {
			continue
		}
		result = append(result, OutboxRecord{ID: record.id, Envelope: record.env})
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// MarkSent marks a record as delivered.
func (o *MemoryOutbox) MarkSent(_ context.Context, id string) error {
	o.setStatus(id, "sent")
	return nil
}

// MarkFailed marks a record as failed.
func (o *MemoryOutbox) MarkFailed(_ context.Context, id string) error {
	o.setStatus(id, "failed")
	return nil
}

// Pending counts records awaiting delivery.
func (o *MemoryOutbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, record := range o.records {
		if record.status == "pending" {
			n++
		}
	}
	return n
}

func (o *MemoryOutbox) setStatus(id, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.records {
		if o.records[i].id == id {
			o.records[i].status = status
			if status == "failed" {
				o.records[i].attempts++
			}
			return
		}
	}
}

// MemoryProcessedStore tracks processed events per consumer.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryProcessedStore constructs an empty store.
func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: make(map[string]time.Time)}
}

func (s *MemoryProcessedStore) HasProcessed(_ context.Context, eventID, consumerName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[consumerName+"/"+eventID]
	return ok, nil
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, eventID, consumerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[consumerName+"/"+eventID] = time.Now().UTC()
	return nil
}

// MemoryDLQ keeps dead letters in memory.
type MemoryDLQ struct {
	mu      sync.Mutex
	letters []DeadLetter
}

// DeadLetter is an event that could not be delivered.
type DeadLetter struct {
	Envelope Envelope
	Error    string
}

func (d *MemoryDLQ) RecordFailure(_ context.Context, env Envelope, err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	letter := DeadLetter{Envelope: env}
	if err != nil {
		letter.Error = err.Error()
	}
	d.letters = append(d.letters, letter)
	return nil
}

// Letters returns a copy of the recorded failures.
func (d *MemoryDLQ) Letters() []DeadLetter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DeadLetter(nil), d.letters...)
}
