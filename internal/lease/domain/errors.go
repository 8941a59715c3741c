package lease

import "errors"

// Error classes. Every concrete lease error wraps exactly one of them.
var (
	// ErrValidation is the class of malformed or out-of-range input.
	ErrValidation = errors.New("lease: validation failed")
	// ErrUnauthorized is the class of callers lacking the required relationship.
	ErrUnauthorized = errors.New("lease: unauthorized")
	// ErrPrecondition is the class of state that is not in the required phase.
	ErrPrecondition = errors.New("lease: precondition failed")
	// ErrConflict is the class of operations colliding with an open process.
	ErrConflict = errors.New("lease: conflict")
	// ErrNotFound is the class of lookups for records that do not exist.
	ErrNotFound = errors.New("lease: not found")
)

// Error is a concrete lease error tagged with its class.
type Error struct {
	class error
	msg   string
}

func newError(class error, msg string) *Error {
	return &Error{class: class, msg: msg}
}

func (e *Error) Error() string { return "lease: " + e.msg }

// Unwrap exposes the class so errors.Is(err, ErrPrecondition) works.
func (e *Error) Unwrap() error { return e.class }

// Class returns the taxonomy sentinel of err, or nil when err is not a lease error.
func Class(err error) error {
	for _, class := range []error{ErrValidation, ErrUnauthorized, ErrPrecondition, ErrConflict, ErrNotFound} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

var (
	ErrEmptyIdentity        = newError(ErrValidation, "empty identity")
	ErrNonPositiveRent      = newError(ErrValidation, "monthly rent must be positive")
	ErrNonPositiveDeposit   = newError(ErrValidation, "security deposit must be positive")
	ErrScoreOutOfRange      = newError(ErrValidation, "score must be between 0 and 100")
	ErrStartInPast          = newError(ErrValidation, "start date is in the past")
	ErrEndBeforeStart       = newError(ErrValidation, "end date must be after start date")
	ErrNegativeAmount       = newError(ErrValidation, "negative amount")
	ErrAmountOverflow       = newError(ErrValidation, "amount overflow")
	ErrFeePercentTooHigh    = newError(ErrValidation, "fee percent above maximum")
	ErrInvalidDisputeAmount = newError(ErrValidation, "dispute deposit must be positive")
	ErrPropertyMismatch     = newError(ErrValidation, "agreement does not belong to property")

	ErrLandlordCannotRent = newError(ErrUnauthorized, "landlord cannot rent own property")
	ErrNotTenant          = newError(ErrUnauthorized, "caller is not the tenant")
	ErrNotLandlord        = newError(ErrUnauthorized, "caller is not the landlord")
	ErrNotParty           = newError(ErrUnauthorized, "caller is not a party to the agreement")
	ErrNotOperator        = newError(ErrUnauthorized, "caller is not the platform operator")
	ErrNotReporter        = newError(ErrUnauthorized, "caller may not report property condition")

	ErrPropertyUnavailable       = newError(ErrPrecondition, "property not available")
	ErrInsufficientPayment       = newError(ErrPrecondition, "insufficient payment")
	ErrAgreementInactive         = newError(ErrPrecondition, "agreement not active")
	ErrAgreementExpired          = newError(ErrPrecondition, "agreement term has ended")
	ErrRentNotDue                = newError(ErrPrecondition, "rent not yet due")
	ErrNothingToRelease          = newError(ErrPrecondition, "no rent accrued")
	ErrNoConditionReport         = newError(ErrPrecondition, "no condition report")
	ErrMaintenanceBelowThreshold = newError(ErrPrecondition, "maintenance score below threshold")
	ErrStaleConditionReport      = newError(ErrPrecondition, "condition report is stale")
	ErrNoDisputePending          = newError(ErrPrecondition, "no dispute pending")
	ErrDisputeClosed             = newError(ErrPrecondition, "dispute already resolved")
	ErrNoFeesAccrued             = newError(ErrPrecondition, "no platform fees accrued")

	ErrDisputeOpen     = newError(ErrConflict, "dispute already open")
	ErrAlreadyResolved = newError(ErrConflict, "maintenance request already resolved")

	ErrPropertyNotFound  = newError(ErrNotFound, "property not found")
	ErrAgreementNotFound = newError(ErrNotFound, "agreement not found")
	ErrRequestNotFound   = newError(ErrNotFound, "maintenance request not found")
)

// ErrInsufficientCustody is returned by a vault asked to pay out more than it holds.
// It indicates broken bookkeeping and always aborts the unit of work.
var ErrInsufficientCustody = errors.New("lease: insufficient custody")
