package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"lease-escrow/internal/lease/application"
	lease "lease-escrow/internal/lease/domain"
)

// EventSink receives the events of a committed unit of work in emission order.
type EventSink interface {
	Deliver(ctx context.Context, events []any) error
}

// Receiver is called when the vault pays an identity. Returning an error rejects
// the transfer and fails the paying unit of work. ctx carries that unit, so a
// receiver that calls back into the service joins it.
type Receiver func(ctx context.Context, amount int64, memo lease.Memo) error

// Store is an in-process substrate. Units of work run one at a time against a
// private copy of the state that replaces the live state only on success.
type Store struct {
	mu    sync.Mutex
	state *state

	receiversMu sync.RWMutex
	receivers   map[lease.Identity]Receiver

	sink   EventSink
	clock  func() time.Time
	logger *zap.Logger
}

// Option configures the store.
type Option func(*Store)

// WithAllocator seeds the id sequences.
func WithAllocator(ids lease.Allocator) Option {
	return func(s *Store) {
		s.state.ids = ids.Clone()
	}
}

// WithEventSink sets where committed events are delivered.
func WithEventSink(sink EventSink) Option {
	return func(s *Store) {
		s.sink = sink
	}
}

// WithClock sets the ledger time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore constructs a store with the given initial platform parameters.
func NewStore(platform lease.Platform, opts ...Option) (*Store, error) {
	if err := platform.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		state:     newState(platform),
		receivers: make(map[lease.Identity]Receiver),
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterReceiver installs the transfer hook for id. A nil receiver removes it.
func (s *Store) RegisterReceiver(id lease.Identity, receiver Receiver) {
	s.receiversMu.Lock()
	defer s.receiversMu.Unlock()
	if receiver == nil {
		delete(s.receivers, id)
		return
	}
	s.receivers[id] = receiver
}

func (s *Store) receiver(id lease.Identity) Receiver {
	s.receiversMu.RLock()
	defer s.receiversMu.RUnlock()
	return s.receivers[id]
}

type txKey struct{}

// Atomic runs fn as one unit of work. A call whose ctx already carries a unit of
// this store joins it; a failed joined call rolls back only its own changes.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx application.Tx) error) error {
	if fn == nil {
		return errors.New("memory store: nil unit of work")
	}
	if tx, ok := ctx.Value(txKey{}).(*unitTx); ok && tx.store == s {
		savepoint := tx.state.clone()
		if err := fn(ctx, tx); err != nil {
			tx.state = savepoint
			return err
		}
		return nil
	}

	s.mu.Lock()
	tx := &unitTx{store: s, state: s.state.clone()}
	err := fn(context.WithValue(ctx, txKey{}, tx), tx)
	var events []any
	if err == nil {
		events = tx.state.events
		tx.state.events = nil
		s.state = tx.state
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.sink != nil && len(events) > 0 {
		if err := s.sink.Deliver(ctx, events); err != nil {
			s.logger.Warn("event delivery failed", zap.Int("events", len(events)), zap.Error(err))
		}
	}
	return nil
}

// Custody is the value currently held by the platform.
func (s *Store) Custody() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.custody
}

// Balance is the net value the vault has paid to id minus what it collected from id.
func (s *Store) Balance(id lease.Identity) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var balance int64
	for _, entry := range s.state.ledger {
		if entry.Party != id {
			continue
		}
		if entry.Direction == lease.DirectionOut {
			balance += entry.Amount
		} else {
			balance -= entry.Amount
		}
	}
	return balance
}

type unitTx struct {
	store *Store
	state *state
}

func (t *unitTx) Properties() application.PropertyRepository { return propertyRepo{t} }
func (t *unitTx) Agreements() application.AgreementRepository { return agreementRepo{t} }
func (t *unitTx) Escrow() application.EscrowRepository { return escrowRepo{t} }
func (t *unitTx) Conditions() application.ConditionRepository { return conditionRepo{t} }
func (t *unitTx) Maintenance() application.MaintenanceRepository { return maintenanceRepo{t} }
func (t *unitTx) Platform() application.PlatformRepository { return platformRepo{t} }
func (t *unitTx) Vault() application.Vault { return vault{t} }

func (t *unitTx) Emit(event any) {
	if event == nil {
		return
	}
	t.state.events = append(t.state.events, event)
}
