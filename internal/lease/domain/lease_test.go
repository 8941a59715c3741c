package lease

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFee(t *testing.T) {
	cases := []struct {
		gross   int64
		percent uint8
		fee     int64
	}{
		{gross: 1000, percent: 3, fee: 30},
		{gross: 999, percent: 3, fee: 29},
		{gross: 1, percent: 10, fee: 0},
		{gross: 1000, percent: 0, fee: 0},
		{gross: math.MaxInt64, percent: 10, fee: math.MaxInt64 / 10},
	}
	for _, tc := range cases {
		split := SplitFee(tc.gross, tc.percent)
		assert.Equal(t, tc.fee, split.Fee, "SplitFee(%d, %d)", tc.gross, tc.percent)
		assert.Equal(t, tc.gross, split.Fee+split.Landlord, "SplitFee(%d, %d) must conserve value", tc.gross, tc.percent)
	}
}

func TestAddAmounts(t *testing.T) {
	_, err := AddAmounts(math.MaxInt64, 1)
	assert.ErrorIs(t, err, ErrAmountOverflow)
	_, err = AddAmounts(-1, 1)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	sum, err := AddAmounts(2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum)
}

func TestAllocatorNamespacesAreIndependent(t *testing.T) {
	var ids Allocator
	assert.Equal(t, uint64(1), ids.Next(NamespaceProperty))
	assert.Equal(t, uint64(2), ids.Next(NamespaceProperty))
	assert.Equal(t, uint64(1), ids.Next(NamespaceAgreement))

	seeded := NewAllocator(map[Namespace]uint64{NamespaceAgreement: 5000})
	clone := seeded.Clone()
	assert.Equal(t, uint64(5000), seeded.Next(NamespaceAgreement))
	assert.Equal(t, uint64(5000), clone.Peek(NamespaceAgreement), "clone advanced with original")
}

func TestParseIDs(t *testing.T) {
	propertyID, err := ParsePropertyID("prop-7")
	require.NoError(t, err)
	assert.Equal(t, PropertyID(7), propertyID)

	agreementID, err := ParseAgreementID("12")
	require.NoError(t, err)
	assert.Equal(t, AgreementID(12), agreementID)

	for _, bad := range []string{"", "0", "agr-x", "-1"} {
		_, err := ParseAgreementID(bad)
		assert.ErrorIs(t, err, ErrValidation, "ParseAgreementID(%q)", bad)
	}
}

func TestAuthorize(t *testing.T) {
	parties := Parties{Tenant: "t", Landlord: "l", Operator: "op"}

	decision := Authorize("l", parties, ErrNotParty, RelTenant, RelLandlord)
	assert.True(t, decision.Allowed)
	assert.Equal(t, RelLandlord, decision.As)
	assert.NoError(t, decision.Err())

	decision = Authorize("x", parties, ErrNotTenant, RelTenant)
	assert.False(t, decision.Allowed)
	assert.ErrorIs(t, decision.Err(), ErrNotTenant)
	assert.ErrorIs(t, decision.Err(), ErrUnauthorized)

	assert.False(t, Authorize("", Parties{}, ErrNotOperator, RelOperator).Allowed,
		"empty caller must never match an unset relationship")
}

func TestConditionGate(t *testing.T) {
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	gate := ConditionGate{MinScore: 60, MaxAge: 7 * 24 * time.Hour}
	fresh := MaintenanceSnapshot{Overall: 60, UpdatedAt: now.Add(-7 * 24 * time.Hour)}

	assert.ErrorIs(t, gate.Check(MaintenanceSnapshot{}, false, now), ErrNoConditionReport)
	assert.NoError(t, gate.Check(fresh, true, now), "report exactly at the age limit is fresh")

	stale := fresh
	stale.UpdatedAt = stale.UpdatedAt.Add(-time.Second)
	assert.ErrorIs(t, gate.Check(stale, true, now), ErrStaleConditionReport)

	low := fresh
	low.Overall = 59
	assert.ErrorIs(t, gate.Check(low, true, now), ErrMaintenanceBelowThreshold)
}

func TestScoresOverallTruncates(t *testing.T) {
	assert.Equal(t, uint8(99), (Scores{Temperature: 100, Plumbing: 100, Security: 99}).Overall())
	assert.ErrorIs(t, (Scores{Plumbing: -1}).Validate(), ErrScoreOutOfRange)
}

func TestAgreementDisputeLifecycle(t *testing.T) {
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	property := Property{ID: 1, Landlord: "l", MonthlyRent: 1000, SecurityDeposit: 2000}
	agreement := NewAgreement(1, property, "t", now, now.Add(24*time.Hour), now)

	require.NoError(t, agreement.CheckOpenDispute())
	agreement.OpenDispute("l", 100)
	err := agreement.CheckOpenDispute()
	assert.ErrorIs(t, err, ErrDisputeOpen)
	assert.ErrorIs(t, err, ErrConflict)
	assert.False(t, agreement.Terminate(now), "deposit must be withheld while a dispute is pending")

	ruling, err := agreement.ResolveDispute(true)
	require.NoError(t, err)
	assert.Equal(t, Identity("t"), ruling.DepositTo)
	assert.Equal(t, int64(2000), ruling.Deposit)
	assert.True(t, ruling.StakeToPool)
	assert.Equal(t, int64(100), ruling.Stake)
	assert.True(t, agreement.DepositSettled)
	assert.Zero(t, agreement.DisputeStake)

	_, err = agreement.ResolveDispute(true)
	assert.ErrorIs(t, err, ErrNoDisputePending)
}

func TestMaintenanceRequestCompleteOnce(t *testing.T) {
	request := MaintenanceRequest{ID: 1}
	assert.ErrorIs(t, request.Complete(-5, time.Now()), ErrNegativeAmount)
	require.NoError(t, request.Complete(5, time.Now()))
	assert.ErrorIs(t, request.Complete(5, time.Now()), ErrAlreadyResolved)
}

func TestPlatformValidate(t *testing.T) {
	assert.ErrorIs(t, (Platform{Operator: "op", FeePercent: 11, DisputeDeposit: 1}).Validate(), ErrFeePercentTooHigh)
	assert.ErrorIs(t, (Platform{FeePercent: 3, DisputeDeposit: 1}).Validate(), ErrEmptyIdentity)
	assert.Equal(t, ErrPrecondition, Class(ErrRentNotDue))
	assert.Nil(t, Class(errors.New("other")), "foreign errors have no class")
}
