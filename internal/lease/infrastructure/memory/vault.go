package memory

import (
	"context"
	"fmt"

	lease "lease-escrow/internal/lease/domain"
)

type vault struct{ tx *unitTx }

func (v vault) Collect(_ context.Context, from lease.Identity, amount int64, memo lease.Memo) error {
	if amount < 0 {
		return lease.ErrNegativeAmount
	}
	custody, err := lease.AddAmounts(v.tx.state.custody, amount)
	if err != nil {
		return err
	}
	v.tx.state.custody = custody
	v.record(from, lease.DirectionIn, amount, memo)
	return nil
}

// Pay books the transfer and then offers it to the payee's receiver, if any. A
// rejected transfer fails the unit, which discards the booking.
func (v vault) Pay(ctx context.Context, to lease.Identity, amount int64, memo lease.Memo) error {
	if amount < 0 {
		return lease.ErrNegativeAmount
	}
	if amount > v.tx.state.custody {
		return lease.ErrInsufficientCustody
	}
	v.tx.state.custody -= amount
	v.record(to, lease.DirectionOut, amount, memo)

	if receiver := v.tx.store.receiver(to); receiver != nil {
		if err := receiver(ctx, amount, memo); err != nil {
			return fmt.Errorf("memory vault: transfer to %s rejected: %w", to, err)
		}
	}
	return nil
}

// Entries returns the movements of party, or all movements when party is empty.
func (v vault) Entries(_ context.Context, party lease.Identity) ([]lease.LedgerEntry, error) {
	var result []lease.LedgerEntry
	for _, entry := range v.tx.state.ledger {
		if party == "" || entry.Party == party {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (v vault) record(party lease.Identity, direction lease.Direction, amount int64, memo lease.Memo) {
	v.tx.state.entrySeq++
	v.tx.state.ledger = append(v.tx.state.ledger, lease.LedgerEntry{
		ID:          fmt.Sprintf("led-%d", v.tx.state.entrySeq),
		Kind:        memo.Kind,
		Direction:   direction,
		Party:       party,
		AgreementID: memo.AgreementID,
		PropertyID:  memo.PropertyID,
		Amount:      amount,
		At:          v.tx.store.clock(),
	})
}
