package application

import "time"

// PropertyListed is emitted when a landlord lists a property.
type PropertyListed struct {
	PropertyID  string    `json:"property_id"`
	Landlord    string    `json:"landlord"`
	MonthlyRent int64     `json:"monthly_rent"`
	IoTEnabled  bool      `json:"iot_enabled"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// AgreementCreated is emitted when a tenant moves in.
type AgreementCreated struct {
	AgreementID string    `json:"agreement_id"`
	PropertyID  string    `json:"property_id"`
	Tenant      string    `json:"tenant"`
	Landlord    string    `json:"landlord"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Refunded    int64     `json:"refunded"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// RentPaid is emitted for each accepted monthly payment.
type RentPaid struct {
	AgreementID string    `json:"agreement_id"`
	Tenant      string    `json:"tenant"`
	Amount      int64     `json:"amount"`
	Refunded    int64     `json:"refunded"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// RentReleased is emitted when escrow is released to the landlord.
type RentReleased struct {
	AgreementID string    `json:"agreement_id"`
	Landlord    string    `json:"landlord"`
	Gross       int64     `json:"gross"`
	Fee         int64     `json:"fee"`
	Paid        int64     `json:"paid"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// AgreementTerminated is emitted when an agreement ends.
type AgreementTerminated struct {
	AgreementID     string    `json:"agreement_id"`
	TerminatedBy    string    `json:"terminated_by"`
	EscrowSettled   int64     `json:"escrow_settled"`
	DepositReturned int64     `json:"deposit_returned"`
	DepositWithheld bool      `json:"deposit_withheld"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ConditionReportUpdated is emitted for every accepted condition report.
type ConditionReportUpdated struct {
	PropertyID  string    `json:"property_id"`
	Temperature uint8     `json:"temperature"`
	Plumbing    uint8     `json:"plumbing"`
	Security    uint8     `json:"security"`
	Overall     uint8     `json:"overall"`
	ReportedBy  string    `json:"reported_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// MaintenanceRequested is emitted when a ticket is opened.
type MaintenanceRequested struct {
	PropertyID  string    `json:"property_id"`
	RequestID   uint64    `json:"request_id"`
	AgreementID string    `json:"agreement_id"`
	Requester   string    `json:"requester"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// MaintenanceCompleted is emitted when a ticket is resolved.
type MaintenanceCompleted struct {
	PropertyID string    `json:"property_id"`
	RequestID  uint64    `json:"request_id"`
	Cost       int64     `json:"cost"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DisputeRaised is emitted when a party opens a dispute.
type DisputeRaised struct {
	AgreementID string    `json:"agreement_id"`
	PropertyID  string    `json:"property_id"`
	RaisedBy    string    `json:"raised_by"`
	Stake       int64     `json:"stake"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// DisputeResolved is emitted when the operator rules on a dispute.
type DisputeResolved struct {
	AgreementID string    `json:"agreement_id"`
	FavorTenant bool      `json:"favor_tenant"`
	DepositTo   string    `json:"deposit_to"`
	Deposit     int64     `json:"deposit"`
	StakeRefund int64     `json:"stake_refund"`
	StakeToPool int64     `json:"stake_to_pool"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PlatformSettingsChanged is emitted when the operator changes a parameter.
type PlatformSettingsChanged struct {
	FeePercent     uint8     `json:"fee_percent"`
	DisputeDeposit int64     `json:"dispute_deposit"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PlatformFeesWithdrawn is emitted when the operator withdraws the fee pool.
type PlatformFeesWithdrawn struct {
	Operator   string    `json:"operator"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Events lists one sample of every notification type for registry wiring.
func Events() []any {
	return []any{
		PropertyListed{},
		AgreementCreated{},
		RentPaid{},
		RentReleased{},
		AgreementTerminated{},
		ConditionReportUpdated{},
		MaintenanceRequested{},
		MaintenanceCompleted{},
		DisputeRaised{},
		DisputeResolved{},
		PlatformSettingsChanged{},
		PlatformFeesWithdrawn{},
	}
}
