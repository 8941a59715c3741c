package application

import (
	"context"
	"time"

	lease "lease-escrow/internal/lease/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Store runs units of work atomically. A unit either commits every mutation,
// payout and emitted event, or none of them. Calling Atomic with a context that
// already carries a unit of the same store joins that unit.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the substrate inside one unit of work.
type Tx interface {
	Properties() PropertyRepository
	Agreements() AgreementRepository
	Escrow() EscrowRepository
	Conditions() ConditionRepository
	Maintenance() MaintenanceRepository
	Platform() PlatformRepository
	Vault() Vault
	// Emit appends a notification that is published only if the unit commits.
	Emit(event any)
}

// PropertyRepository owns property records.
type PropertyRepository interface {
	NextID(ctx context.Context) (lease.PropertyID, error)
	// Get returns lease.ErrPropertyNotFound when the id is unknown.
	Get(ctx context.Context, id lease.PropertyID) (lease.Property, error)
	Save(ctx context.Context, property lease.Property) error
	ListByLandlord(ctx context.Context, landlord lease.Identity) ([]lease.Property, error)
}

// AgreementRepository owns rental agreements.
type AgreementRepository interface {
	NextID(ctx context.Context) (lease.AgreementID, error)
	// Get returns lease.ErrAgreementNotFound when the id is unknown.
	Get(ctx context.Context, id lease.AgreementID) (lease.RentalAgreement, error)
	Save(ctx context.Context, agreement lease.RentalAgreement) error
	ListByTenant(ctx context.Context, tenant lease.Identity) ([]lease.RentalAgreement, error)
}

// EscrowRepository owns escrow accounts. Get returns a zero account for an
// agreement that never accrued rent.
type EscrowRepository interface {
	Get(ctx context.Context, id lease.AgreementID) (lease.EscrowAccount, error)
	Save(ctx context.Context, account lease.EscrowAccount) error
}

// ConditionRepository owns the latest condition snapshot per property.
type ConditionRepository interface {
	Get(ctx context.Context, id lease.PropertyID) (lease.MaintenanceSnapshot, bool, error)
	Save(ctx context.Context, snapshot lease.MaintenanceSnapshot) error
}

// MaintenanceRepository owns the per-property maintenance logs.
type MaintenanceRepository interface {
	// Append assigns the next position in the property's log.
	Append(ctx context.Context, request lease.MaintenanceRequest) (lease.RequestID, error)
	// Get returns lease.ErrRequestNotFound when the position is unknown.
	Get(ctx context.Context, propertyID lease.PropertyID, id lease.RequestID) (lease.MaintenanceRequest, error)
	Save(ctx context.Context, request lease.MaintenanceRequest) error
	List(ctx context.Context, propertyID lease.PropertyID) ([]lease.MaintenanceRequest, error)
}

// PlatformRepository owns the platform parameters and funds.
type PlatformRepository interface {
	Get(ctx context.Context) (lease.Platform, error)
	Save(ctx context.Context, platform lease.Platform) error
}

// Vault is the value-transfer substrate. Collect books the payment attached to a
// call into custody; Pay moves value out of custody to a party. A failed Pay must
// fail the enclosing unit of work.
type Vault interface {
	Collect(ctx context.Context, from lease.Identity, amount int64, memo lease.Memo) error
	Pay(ctx context.Context, to lease.Identity, amount int64, memo lease.Memo) error
	Entries(ctx context.Context, party lease.Identity) ([]lease.LedgerEntry, error)
}
