package application

import (
	"context"

	lease "lease-escrow/internal/lease/domain"
)

// ReleaseMonthlyRent pays the accrued escrow of an active agreement to its landlord
// minus the platform fee. It is permissionless. IoT-enabled properties need a fresh
// condition report at or above their threshold.
func (s *Service) ReleaseMonthlyRent(ctx context.Context, caller lease.Identity, id lease.AgreementID) (lease.FeeSplit, error) {
	var split lease.FeeSplit
	err := s.run(ctx, "release_rent", caller, func(ctx context.Context, u *unit) error {
		agreement, err := u.tx.Agreements().Get(ctx, id)
		if err != nil {
			return err
		}
		if !agreement.Active {
			return lease.ErrAgreementInactive
		}
		account, err := u.tx.Escrow().Get(ctx, id)
		if err != nil {
			return err
		}
		if account.Accrued == 0 {
			return lease.ErrNothingToRelease
		}
		property, err := u.tx.Properties().Get(ctx, agreement.PropertyID)
		if err != nil {
			return err
		}
		if property.IoTEnabled {
			snapshot, found, err := u.tx.Conditions().Get(ctx, property.ID)
			if err != nil {
				return err
			}
			gate := lease.ConditionGate{MinScore: property.MinMaintenanceScore, MaxAge: s.freshnessWindow}
			if err := gate.Check(snapshot, found, u.now); err != nil {
				return err
			}
		}
		platform, err := u.platform(ctx)
		if err != nil {
			return err
		}

		split = lease.SplitFee(account.Drain(u.now), platform.FeePercent)
		if err := u.tx.Escrow().Save(ctx, account); err != nil {
			return err
		}
		pool, err := lease.AddAmounts(platform.FeePool, split.Fee)
		if err != nil {
			return err
		}
		platform.FeePool = pool
		if err := u.tx.Platform().Save(ctx, platform); err != nil {
			return err
		}

		memo := lease.Memo{Kind: lease.EntryRentRelease, AgreementID: id, PropertyID: agreement.PropertyID}
		if err := u.pay(ctx, agreement.Landlord, split.Landlord, memo); err != nil {
			return err
		}
		u.tx.Emit(RentReleased{
			AgreementID: id.String(),
			Landlord:    string(agreement.Landlord),
			Gross:       split.Gross,
			Fee:         split.Fee,
			Paid:        split.Landlord,
			OccurredAt:  u.now,
		})
		return nil
	})
	return split, err
}
