package lease

import "time"

// DisputeStatus is the dispute sub-state of an agreement.
type DisputeStatus string

const (
	DisputeNone     DisputeStatus = "none"
	DisputePending  DisputeStatus = "pending"
	DisputeResolved DisputeStatus = "resolved"
)

// RentalAgreement is a lease between a tenant and the landlord of a property.
// Landlord and terms are copied from the property at creation and never re-read.
type RentalAgreement struct {
	ID              AgreementID   `json:"id"`
	PropertyID      PropertyID    `json:"property_id"`
	Tenant          Identity      `json:"tenant"`
	Landlord        Identity      `json:"landlord"`
	MonthlyRent     int64         `json:"monthly_rent"`
	SecurityDeposit int64         `json:"security_deposit"`
	StartDate       time.Time     `json:"start_date"`
	EndDate         time.Time     `json:"end_date"`
	LastRentPayment time.Time     `json:"last_rent_payment"`
	TotalPaidRent   int64         `json:"total_paid_rent"`
	Active          bool          `json:"active"`
	DisputeStatus   DisputeStatus `json:"dispute_status"`
	DisputeRaisedBy Identity      `json:"dispute_raised_by,omitempty"`
	DisputeStake    int64         `json:"dispute_stake,omitempty"`
	DepositSettled  bool          `json:"deposit_settled"`
	CreatedAt       time.Time     `json:"created_at"`
	TerminatedAt    time.Time     `json:"terminated_at,omitempty"`
}

// ValidateTerm checks the requested lease term against now.
func ValidateTerm(start, end, now time.Time) error {
	if start.Before(now) {
		return ErrStartInPast
	}
	if !end.After(start) {
		return ErrEndBeforeStart
	}
	return nil
}

// NewAgreement snapshots the property terms into an active agreement whose first
// month is paid at now.
func NewAgreement(id AgreementID, property Property, tenant Identity, start, end, now time.Time) RentalAgreement {
	return RentalAgreement{
		ID:              id,
		PropertyID:      property.ID,
		Tenant:          tenant,
		Landlord:        property.Landlord,
		MonthlyRent:     property.MonthlyRent,
		SecurityDeposit: property.SecurityDeposit,
		StartDate:       start,
		EndDate:         end,
		LastRentPayment: now,
		TotalPaidRent:   property.MonthlyRent,
		Active:          true,
		DisputeStatus:   DisputeNone,
		CreatedAt:       now,
	}
}

// Parties returns the relationship holders of the agreement.
func (a RentalAgreement) Parties(operator Identity) Parties {
	return Parties{Tenant: a.Tenant, Landlord: a.Landlord, Operator: operator}
}

// Lapsed reports whether the term ended before now.
func (a RentalAgreement) Lapsed(now time.Time) bool {
	return now.After(a.EndDate)
}

// NextRentDue is the earliest time the next monthly payment is accepted.
func (a RentalAgreement) NextRentDue(interval time.Duration) time.Time {
	return a.LastRentPayment.Add(interval)
}

// CheckRentPayment validates a monthly payment attempt at now.
func (a RentalAgreement) CheckRentPayment(now time.Time, payment int64, interval time.Duration) error {
	if !a.Active {
		return ErrAgreementInactive
	}
	if a.Lapsed(now) {
		return ErrAgreementExpired
	}
	if payment < a.MonthlyRent {
		return ErrInsufficientPayment
	}
	if now.Before(a.NextRentDue(interval)) {
		return ErrRentNotDue
	}
	return nil
}

// RecordRent books one monthly payment at now.
func (a *RentalAgreement) RecordRent(now time.Time) {
	a.LastRentPayment = now
	a.TotalPaidRent += a.MonthlyRent
}

// Terminate closes the agreement. It reports whether the deposit must be paid to
// the tenant now; a pending dispute withholds it until resolution.
func (a *RentalAgreement) Terminate(now time.Time) (payDeposit bool) {
	a.Active = false
	a.TerminatedAt = now
	if a.DisputeStatus == DisputeNone && !a.DepositSettled {
		a.DepositSettled = true
		return true
	}
	return false
}

// CheckOpenDispute validates raising a dispute.
func (a RentalAgreement) CheckOpenDispute() error {
	if !a.Active {
		return ErrAgreementInactive
	}
	switch a.DisputeStatus {
	case DisputePending:
		return ErrDisputeOpen
	case DisputeResolved:
		return ErrDisputeClosed
	}
	return nil
}

// OpenDispute moves the dispute to pending with the held stake.
func (a *RentalAgreement) OpenDispute(raiser Identity, stake int64) {
	a.DisputeStatus = DisputePending
	a.DisputeRaisedBy = raiser
	a.DisputeStake = stake
}

// Ruling is the outcome of a resolved dispute.
type Ruling struct {
	DepositTo    Identity
	Deposit      int64
	StakeRefund  Identity
	Stake        int64
	StakeToPool  bool
	FavorsTenant bool
}

// ResolveDispute closes a pending dispute and settles the deposit toward the winner.
// The stake goes back to the raiser when the ruling favours them and to the fee pool
// otherwise.
func (a *RentalAgreement) ResolveDispute(favorTenant bool) (Ruling, error) {
	if a.DisputeStatus != DisputePending {
		return Ruling{}, ErrNoDisputePending
	}
	if a.DepositSettled {
		return Ruling{}, ErrNoDisputePending
	}
	winner := a.Landlord
	if favorTenant {
		winner = a.Tenant
	}
	ruling := Ruling{
		DepositTo:    winner,
		Deposit:      a.SecurityDeposit,
		Stake:        a.DisputeStake,
		FavorsTenant: favorTenant,
	}
	if a.DisputeRaisedBy == winner {
		ruling.StakeRefund = a.DisputeRaisedBy
	} else {
		ruling.StakeToPool = true
	}
	a.DisputeStatus = DisputeResolved
	a.DepositSettled = true
	a.DisputeStake = 0
	return ruling, nil
}
