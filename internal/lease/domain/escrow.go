package lease

import (
	"math"
	"time"
)

// EscrowAccount holds the rent of one agreement until it is released.
type EscrowAccount struct {
	AgreementID   AgreementID `json:"agreement_id"`
	Accrued       int64       `json:"accrued"`
	Released      int64       `json:"released"`
	LastReleaseAt time.Time   `json:"last_release_at,omitempty"`
}

// Credit adds an accepted rent payment.
func (e *EscrowAccount) Credit(amount int64) error {
	sum, err := AddAmounts(e.Accrued, amount)
	if err != nil {
		return err
	}
	e.Accrued = sum
	return nil
}

// Drain zeroes the balance and returns what was held.
func (e *EscrowAccount) Drain(now time.Time) int64 {
	amount := e.Accrued
	e.Accrued = 0
	e.Released += amount
	if amount > 0 {
		e.LastReleaseAt = now
	}
	return amount
}

// FeeSplit is the division of a released balance.
type FeeSplit struct {
	Gross    int64 `json:"gross"`
	Fee      int64 `json:"fee"`
	Landlord int64 `json:"landlord"`
}

// SplitFee computes floor(gross*percent/100) without overflowing.
func SplitFee(gross int64, percent uint8) FeeSplit {
	p := int64(percent)
	fee := (gross/100)*p + (gross%100)*p/100
	return FeeSplit{Gross: gross, Fee: fee, Landlord: gross - fee}
}

// AddAmounts adds two non-negative amounts.
func AddAmounts(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeAmount
	}
	if a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
