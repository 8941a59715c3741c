package application

import (
	"context"

	lease "lease-escrow/internal/lease/domain"
)

// RaiseDispute opens a dispute on an active agreement. The caller stakes the
// platform dispute deposit; any excess is refunded. The stake is held until the
// operator rules.
func (s *Service) RaiseDispute(ctx context.Context, caller lease.Identity, id lease.AgreementID, deposit int64) error {
	return s.run(ctx, "raise_dispute", caller, func(ctx context.Context, u *unit) error {
		if deposit < 0 {
			return lease.ErrNegativeAmount
		}
		platform, err := u.platform(ctx)
		if err != nil {
			return err
		}
		if deposit < platform.DisputeDeposit {
			return lease.ErrInsufficientPayment
		}
		agreement, err := u.tx.Agreements().Get(ctx, id)
		if err != nil {
			return err
		}
		if !agreement.Active {
			return lease.ErrAgreementInactive
		}
		if err := lease.Authorize(caller, agreement.Parties(""), lease.ErrNotParty, lease.RelTenant, lease.RelLandlord).Err(); err != nil {
			return err
		}
		if err := agreement.CheckOpenDispute(); err != nil {
			return err
		}

		stake := platform.DisputeDeposit
		agreement.OpenDispute(caller, stake)
		if err := u.tx.Agreements().Save(ctx, agreement); err != nil {
			return err
		}
		held, err := lease.AddAmounts(platform.HeldStakes, stake)
		if err != nil {
			return err
		}
		platform.HeldStakes = held
		if err := u.tx.Platform().Save(ctx, platform); err != nil {
			return err
		}

		memo := lease.Memo{Kind: lease.EntryDisputeStake, AgreementID: id, PropertyID: agreement.PropertyID}
		if err := u.collect(ctx, caller, deposit, memo); err != nil {
			return err
		}
		memo.Kind = lease.EntryRefund
		if err := u.pay(ctx, caller, deposit-stake, memo); err != nil {
			return err
		}
		u.tx.Emit(DisputeRaised{
			AgreementID: id.String(),
			PropertyID:  agreement.PropertyID.String(),
			RaisedBy:    string(caller),
			Stake:       stake,
			OccurredAt:  u.now,
		})
		return nil
	})
}

// ResolveDispute rules on a pending dispute. The security deposit goes to the
// tenant when favorTenant is set and to the landlord otherwise. The agreement may
// already be terminated.
func (s *Service) ResolveDispute(ctx context.Context, caller lease.Identity, id lease.AgreementID, favorTenant bool) (lease.Ruling, error) {
	var ruling lease.Ruling
	err := s.run(ctx, "resolve_dispute", caller, func(ctx context.Context, u *unit) error {
		platform, err := u.platform(ctx)
		if err != nil {
			return err
		}
		if err := lease.Authorize(caller, operatorOf(platform), lease.ErrNotOperator, lease.RelOperator).Err(); err != nil {
			return err
		}
		agreement, err := u.tx.Agreements().Get(ctx, id)
		if err != nil {
			return err
		}

		ruling, err = agreement.ResolveDispute(favorTenant)
		if err != nil {
			return err
		}
		if err := u.tx.Agreements().Save(ctx, agreement); err != nil {
			return err
		}
		platform.HeldStakes -= ruling.Stake
		if ruling.StakeToPool {
			pool, err := lease.AddAmounts(platform.FeePool, ruling.Stake)
			if err != nil {
				return err
			}
			platform.FeePool = pool
		}
		if err := u.tx.Platform().Save(ctx, platform); err != nil {
			return err
		}

		kind := lease.EntryDepositAward
		if favorTenant && !agreement.Active {
			kind = lease.EntryDepositReturn
		}
		memo := lease.Memo{Kind: kind, AgreementID: id, PropertyID: agreement.PropertyID}
		if err := u.pay(ctx, ruling.DepositTo, ruling.Deposit, memo); err != nil {
			return err
		}
		event := DisputeResolved{
			AgreementID: id.String(),
			FavorTenant: favorTenant,
			DepositTo:   string(ruling.DepositTo),
			Deposit:     ruling.Deposit,
			OccurredAt:  u.now,
		}
		if ruling.StakeToPool {
			event.StakeToPool = ruling.Stake
		} else {
			memo.Kind = lease.EntryStakeRefund
			if err := u.pay(ctx, ruling.StakeRefund, ruling.Stake, memo); err != nil {
				return err
			}
			event.StakeRefund = ruling.Stake
		}
		u.tx.Emit(event)
		return nil
	})
	return ruling, err
}
