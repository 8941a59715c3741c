package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	lease "lease-escrow/internal/lease/domain"
	"lease-escrow/internal/observability/metrics"
)

// Service implements the lease lifecycle, escrow, oracle, maintenance and dispute
// operations on top of a Store.
type Service struct {
	store           Store
	clock           Clock
	logger          *zap.Logger
	rentInterval    time.Duration
	freshnessWindow time.Duration
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPolicy applies the rent interval and freshness window of cfg.
func WithPolicy(cfg Config) Option {
	return func(s *Service) {
		if cfg.RentInterval > 0 {
			s.rentInterval = cfg.RentInterval
		}
		if cfg.FreshnessWindow > 0 {
			s.freshnessWindow = cfg.FreshnessWindow
		}
	}
}

// NewService constructs the service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lease service: nil store")
	}
	s := &Service{
		store:           store,
		clock:           SystemClock{},
		logger:          zap.NewNop(),
		rentInterval:    DefaultRentInterval,
		freshnessWindow: DefaultFreshnessWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// unit is the per-operation view of a unit of work.
type unit struct {
	tx    Tx
	now   time.Time
	flows []flow
}

type flow struct {
	kind      lease.EntryKind
	direction lease.Direction
	amount    int64
}

func (u *unit) collect(ctx context.Context, from lease.Identity, amount int64, memo lease.Memo) error {
	if amount == 0 {
		return nil
	}
	if err := u.tx.Vault().Collect(ctx, from, amount, memo); err != nil {
		return err
	}
	u.flows = append(u.flows, flow{kind: memo.Kind, direction: lease.DirectionIn, amount: amount})
	return nil
}

// pay must only be called after the bookkeeping it settles has been saved.
func (u *unit) pay(ctx context.Context, to lease.Identity, amount int64, memo lease.Memo) error {
	if amount == 0 {
		return nil
	}
	if err := u.tx.Vault().Pay(ctx, to, amount, memo); err != nil {
		return err
	}
	u.flows = append(u.flows, flow{kind: memo.Kind, direction: lease.DirectionOut, amount: amount})
	return nil
}

func (u *unit) platform(ctx context.Context) (lease.Platform, error) {
	return u.tx.Platform().Get(ctx)
}

// run executes fn as one unit of work and records its outcome.
func (s *Service) run(ctx context.Context, op string, caller lease.Identity, fn func(ctx context.Context, u *unit) error) error {
	start := time.Now()
	var committed *unit
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		u := &unit{tx: tx, now: s.clock.Now()}
		if err := fn(ctx, u); err != nil {
			return err
		}
		committed = u
		return nil
	})
	s.observe(op, caller, err, time.Since(start), committed)
	return err
}

// view runs a read-only unit without metrics.
func (s *Service) view(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.store.Atomic(ctx, fn)
}

func (s *Service) observe(op string, caller lease.Identity, err error, elapsed time.Duration, committed *unit) {
	if err != nil {
		class := resultLabel(err)
		metrics.ObserveOperation(op, class, elapsed)
		if class == "error" {
			s.logger.Error("lease operation failed", zap.String("op", op), zap.String("caller", string(caller)), zap.Error(err))
			return
		}
		s.logger.Info("lease operation rejected", zap.String("op", op), zap.String("caller", string(caller)), zap.String("class", class), zap.Error(err))
		return
	}
	metrics.ObserveOperation(op, "success", elapsed)
	if committed == nil {
		return
	}
	for _, f := range committed.flows {
		metrics.AddFunds(string(f.kind), string(f.direction), f.amount)
	}
	s.logger.Debug("lease operation committed", zap.String("op", op), zap.String("caller", string(caller)), zap.Int("flows", len(committed.flows)))
}

func resultLabel(err error) string {
	switch lease.Class(err) {
	case lease.ErrValidation:
		return "validation"
	case lease.ErrUnauthorized:
		return "unauthorized"
	case lease.ErrPrecondition:
		return "precondition"
	case lease.ErrConflict:
		return "conflict"
	case lease.ErrNotFound:
		return "not_found"
	}
	return "error"
}

func operatorOf(platform lease.Platform) lease.Parties {
	return lease.Parties{Operator: platform.Operator}
}
