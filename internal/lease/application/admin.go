package application

import (
	"context"

	lease "lease-escrow/internal/lease/domain"
)

// SetFeePercent changes the platform fee applied to future releases.
func (s *Service) SetFeePercent(ctx context.Context, caller lease.Identity, percent int) error {
	return s.run(ctx, "set_fee_percent", caller, func(ctx context.Context, u *unit) error {
		platform, err := s.operatorPlatform(ctx, u, caller)
		if err != nil {
			return err
		}
		if err := lease.ValidateFeePercent(percent); err != nil {
			return err
		}
		platform.FeePercent = uint8(percent)
		return s.savePlatformSettings(ctx, u, platform)
	})
}

// SetDisputeDeposit changes the stake required to raise future disputes.
func (s *Service) SetDisputeDeposit(ctx context.Context, caller lease.Identity, amount int64) error {
	return s.run(ctx, "set_dispute_deposit", caller, func(ctx context.Context, u *unit) error {
		platform, err := s.operatorPlatform(ctx, u, caller)
		if err != nil {
			return err
		}
		if amount <= 0 {
			return lease.ErrInvalidDisputeAmount
		}
		platform.DisputeDeposit = amount
		return s.savePlatformSettings(ctx, u, platform)
	})
}

// WithdrawPlatformFees pays the whole fee pool to the operator.
func (s *Service) WithdrawPlatformFees(ctx context.Context, caller lease.Identity) (int64, error) {
	var amount int64
	err := s.run(ctx, "withdraw_fees", caller, func(ctx context.Context, u *unit) error {
		platform, err := s.operatorPlatform(ctx, u, caller)
		if err != nil {
			return err
		}
		if platform.FeePool == 0 {
			return lease.ErrNoFeesAccrued
		}
		amount = platform.FeePool
		platform.FeePool = 0
		if err := u.tx.Platform().Save(ctx, platform); err != nil {
			return err
		}
		if err := u.pay(ctx, caller, amount, lease.Memo{Kind: lease.EntryFeeWithdrawal}); err != nil {
			return err
		}
		u.tx.Emit(PlatformFeesWithdrawn{Operator: string(caller), Amount: amount, OccurredAt: u.now})
		return nil
	})
	return amount, err
}

func (s *Service) operatorPlatform(ctx context.Context, u *unit, caller lease.Identity) (lease.Platform, error) {
	platform, err := u.platform(ctx)
	if err != nil {
		return lease.Platform{}, err
	}
	if err := lease.Authorize(caller, operatorOf(platform), lease.ErrNotOperator, lease.RelOperator).Err(); err != nil {
		return lease.Platform{}, err
	}
	return platform, nil
}

func (s *Service) savePlatformSettings(ctx context.Context, u *unit, platform lease.Platform) error {
	if err := u.tx.Platform().Save(ctx, platform); err != nil {
		return err
	}
	u.tx.Emit(PlatformSettingsChanged{
		FeePercent:     platform.FeePercent,
		DisputeDeposit: platform.DisputeDeposit,
		OccurredAt:     u.now,
	})
	return nil
}
