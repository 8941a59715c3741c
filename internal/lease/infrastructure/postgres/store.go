package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lease-escrow/internal/eventing"
	eventingrepo "lease-escrow/internal/eventing/infrastructure/postgres"
	"lease-escrow/internal/lease/application"
	lease "lease-escrow/internal/lease/domain"
)

// Transfer delivers one committed payout to an external account. entry.ID is
// stable across redeliveries and serves as the rail's idempotency reference.
type Transfer func(ctx context.Context, entry lease.LedgerEntry) error

// Store is the Postgres substrate. Each unit of work is one transaction; rows
// read inside it are locked until commit. Emitted events are written to the
// outbox in the same transaction and dispatched after commit.
type Store struct {
	db         *sql.DB
	dispatcher *eventing.Dispatcher
	transfer   Transfer
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithDispatcher dispatches the outbox after every commit.
func WithDispatcher(dispatcher *eventing.Dispatcher) Option {
	return func(s *Store) {
		s.dispatcher = dispatcher
	}
}

// WithTransfer sets the external payout rail. Payouts are queued in the unit
// that books them and delivered once it commits.
func WithTransfer(transfer Transfer) Option {
	return func(s *Store) {
		s.transfer = transfer
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

// WithClock sets the ledger time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore constructs a store.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("lease store: nil db")
	}
	s := &Store{
		db:     db,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsurePlatform seeds the platform row on first start. An existing row is kept.
func (s *Store) EnsurePlatform(ctx context.Context, platform lease.Platform) error {
	if err := platform.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO platform_state (id, operator, fee_percent, dispute_deposit, fee_pool, held_stakes, custody)
VALUES (1, $1, $2, $3, 0, 0, 0)
ON CONFLICT (id) DO NOTHING`, string(platform.Operator), int(platform.FeePercent), platform.DisputeDeposit)
	return err
}

type txKey struct{}

// Atomic runs fn in a transaction. A call whose ctx already carries a unit of
// this store joins it under a savepoint, so its failure undoes only its own work.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx application.Tx) error) error {
	if fn == nil {
		return errors.New("lease store: nil unit of work")
	}
	if unit, ok := ctx.Value(txKey{}).(*unitTx); ok && unit.store == s {
		return unit.nested(ctx, fn)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	unit := &unitTx{store: s, tx: sqlTx}
	txCtx := context.WithValue(ctx, txKey{}, unit)
	if err := fn(txCtx, unit); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := unit.flushEvents(txCtx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return err
	}

	if s.dispatcher != nil && len(unit.events) > 0 {
		if _, err := s.dispatcher.Dispatch(ctx, len(unit.events)); err != nil {
			s.logger.Warn("outbox dispatch failed", zap.Int("events", len(unit.events)), zap.Error(err))
		}
	}
	if s.transfer != nil && unit.payouts > 0 {
		if _, err := s.DeliverPayouts(ctx, unit.payouts); err != nil {
			s.logger.Warn("payout delivery deferred", zap.Int("payouts", unit.payouts), zap.Error(err))
		}
	}
	return nil
}

type unitTx struct {
	store   *Store
	tx      *sql.Tx
	depth   int
	events  []any
	payouts int
}

func (u *unitTx) nested(ctx context.Context, fn func(ctx context.Context, tx application.Tx) error) error {
	u.depth++
	name := fmt.Sprintf("lease_sp_%d", u.depth)
	defer func() { u.depth-- }()

	if _, err := u.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}
	mark, queued := len(u.events), u.payouts
	if err := fn(ctx, u); err != nil {
		u.events = u.events[:mark]
		u.payouts = queued
		if _, rbErr := u.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	_, err := u.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

func (u *unitTx) flushEvents(ctx context.Context) error {
	if len(u.events) == 0 {
		return nil
	}
	publisher := eventing.NewPublisher(eventingrepo.NewOutboxStore(u.tx), nil, u.store.logger)
	for _, event := range u.events {
		if err := publisher.Publish(ctx, event); err != nil {
			return fmt.Errorf("lease store: outbox: %w", err)
		}
	}
	return nil
}

func (u *unitTx) Properties() application.PropertyRepository { return propertyRepo{u.tx} }

func (u *unitTx) Agreements() application.AgreementRepository { return agreementRepo{u.tx} }

func (u *unitTx) Escrow() application.EscrowRepository { return escrowRepo{u.tx} }

func (u *unitTx) Conditions() application.ConditionRepository { return conditionRepo{u.tx} }

func (u *unitTx) Maintenance() application.MaintenanceRepository { return maintenanceRepo{u.tx} }

func (u *unitTx) Platform() application.PlatformRepository { return platformRepo{u.tx} }

func (u *unitTx) Vault() application.Vault { return vault{unit: u} }

func (u *unitTx) Emit(event any) {
	if event != nil {
		u.events = append(u.events, event)
	}
}
