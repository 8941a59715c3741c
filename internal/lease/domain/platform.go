package lease

import "time"

// MaxFeePercent bounds the platform fee.
const MaxFeePercent = 10

// Platform is the operator-controlled parameter set and the platform's own funds.
type Platform struct {
	Operator       Identity `json:"operator"`
	FeePercent     uint8    `json:"fee_percent"`
	DisputeDeposit int64    `json:"dispute_deposit"`
	// FeePool is withdrawable by the operator.
	FeePool int64 `json:"fee_pool"`
	// HeldStakes are dispute stakes awaiting a ruling.
	HeldStakes int64 `json:"held_stakes"`
}

// Validate checks the parameter bounds.
func (p Platform) Validate() error {
	if err := p.Operator.Validate(); err != nil {
		return err
	}
	if err := ValidateFeePercent(int(p.FeePercent)); err != nil {
		return err
	}
	if p.DisputeDeposit <= 0 {
		return ErrInvalidDisputeAmount
	}
	return nil
}

// ValidateFeePercent bounds the fee to [0, MaxFeePercent].
func ValidateFeePercent(percent int) error {
	if percent < 0 || percent > MaxFeePercent {
		return ErrFeePercentTooHigh
	}
	return nil
}

// EntryKind classifies a ledger movement.
type EntryKind string

const (
	EntryMoveIn        EntryKind = "move_in"
	EntryRent          EntryKind = "rent"
	EntryDisputeStake  EntryKind = "dispute_stake"
	EntryRefund        EntryKind = "refund"
	EntryRentRelease   EntryKind = "rent_release"
	EntrySettlement    EntryKind = "escrow_settlement"
	EntryDepositReturn EntryKind = "deposit_return"
	EntryDepositAward  EntryKind = "deposit_award"
	EntryStakeRefund   EntryKind = "stake_refund"
	EntryFeeWithdrawal EntryKind = "fee_withdrawal"
)

// Direction of a ledger movement relative to the platform's custody.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Memo attributes a value movement.
type Memo struct {
	Kind        EntryKind
	AgreementID AgreementID
	PropertyID  PropertyID
}

// LedgerEntry records one value movement into or out of custody.
type LedgerEntry struct {
	ID          string      `json:"id"`
	Kind        EntryKind   `json:"kind"`
	Direction   Direction   `json:"direction"`
	Party       Identity    `json:"party"`
	AgreementID AgreementID `json:"agreement_id,omitempty"`
	PropertyID  PropertyID  `json:"property_id,omitempty"`
	Amount      int64       `json:"amount"`
	At          time.Time   `json:"at"`
}
