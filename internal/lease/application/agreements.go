package application

import (
	"context"
	"time"

	lease "lease-escrow/internal/lease/domain"
)

// CreateAgreementInput is a move-in request.
type CreateAgreementInput struct {
	PropertyID lease.PropertyID `json:"property_id"`
	StartDate  time.Time        `json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
}

// CreateAgreement lets an available property to tenant. payment must cover the
// first month plus the security deposit; any excess is refunded.
func (s *Service) CreateAgreement(ctx context.Context, tenant lease.Identity, in CreateAgreementInput, payment int64) (lease.AgreementID, error) {
	var id lease.AgreementID
	err := s.run(ctx, "create_agreement", tenant, func(ctx context.Context, u *unit) error {
		if err := tenant.Validate(); err != nil {
			return err
		}
		if payment < 0 {
			return lease.ErrNegativeAmount
		}
		property, err := u.tx.Properties().Get(ctx, in.PropertyID)
		if err != nil {
			return err
		}
		if err := lease.ValidateTerm(in.StartDate, in.EndDate, u.now); err != nil {
			return err
		}
		if property.Status != lease.PropertyAvailable {
			return lease.ErrPropertyUnavailable
		}
		if tenant == property.Landlord {
			return lease.ErrLandlordCannotRent
		}
		total := property.MoveInTotal()
		if payment < total {
			return lease.ErrInsufficientPayment
		}
		if property.IoTEnabled {
			snapshot, found, err := u.tx.Conditions().Get(ctx, property.ID)
			if err != nil {
				return err
			}
			gate := lease.ConditionGate{MinScore: property.MinMaintenanceScore}
			if err := gate.Check(snapshot, found, u.now); err != nil {
				return err
			}
		}

		next, err := u.tx.Agreements().NextID(ctx)
		if err != nil {
			return err
		}
		agreement := lease.NewAgreement(next, property, tenant, in.StartDate, in.EndDate, u.now)
		if err := u.tx.Agreements().Save(ctx, agreement); err != nil {
			return err
		}
		property.Status = lease.PropertyRented
		if err := u.tx.Properties().Save(ctx, property); err != nil {
			return err
		}
		account, err := u.tx.Escrow().Get(ctx, next)
		if err != nil {
			return err
		}
		if err := account.Credit(property.MonthlyRent); err != nil {
			return err
		}
		if err := u.tx.Escrow().Save(ctx, account); err != nil {
			return err
		}

		memo := lease.Memo{Kind: lease.EntryMoveIn, AgreementID: next, PropertyID: property.ID}
		if err := u.collect(ctx, tenant, payment, memo); err != nil {
			return err
		}
		memo.Kind = lease.EntryRefund
		if err := u.pay(ctx, tenant, payment-total, memo); err != nil {
			return err
		}
		u.tx.Emit(AgreementCreated{
			AgreementID: next.String(),
			PropertyID:  property.ID.String(),
			Tenant:      string(tenant),
			Landlord:    string(property.Landlord),
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			Refunded:    payment - total,
			OccurredAt:  u.now,
		})
		id = next
		return nil
	})
	return id, err
}

// PayMonthlyRent accepts one month of rent into escrow. Payments are spaced by at
// least the rent interval; any excess over the monthly rent is refunded.
func (s *Service) PayMonthlyRent(ctx context.Context, caller lease.Identity, id lease.AgreementID, payment int64) error {
	return s.run(ctx, "pay_rent", caller, func(ctx context.Context, u *unit) error {
		if payment < 0 {
			return lease.ErrNegativeAmount
		}
		agreement, err := u.tx.Agreements().Get(ctx, id)
		if err != nil {
			return err
		}
		if !agreement.Active {
			return lease.ErrAgreementInactive
		}
		if err := lease.Authorize(caller, agreement.Parties(""), lease.ErrNotTenant, lease.RelTenant).Err(); err != nil {
			return err
		}
		if err := agreement.CheckRentPayment(u.now, payment, s.rentInterval); err != nil {
			return err
		}

		agreement.RecordRent(u.now)
		if err := u.tx.Agreements().Save(ctx, agreement); err != nil {
			return err
		}
		account, err := u.tx.Escrow().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := account.Credit(agreement.MonthlyRent); err != nil {
			return err
		}
		if err := u.tx.Escrow().Save(ctx, account); err != nil {
			return err
		}

		memo := lease.Memo{Kind: lease.EntryRent, AgreementID: id, PropertyID: agreement.PropertyID}
		if err := u.collect(ctx, caller, payment, memo); err != nil {
			return err
		}
		memo.Kind = lease.EntryRefund
		if err := u.pay(ctx, caller, payment-agreement.MonthlyRent, memo); err != nil {
			return err
		}
		u.tx.Emit(RentPaid{
			AgreementID: id.String(),
			Tenant:      string(caller),
			Amount:      agreement.MonthlyRent,
			Refunded:    payment - agreement.MonthlyRent,
			OccurredAt:  u.now,
		})
		return nil
	})
}

// TerminationResult reports what a termination paid out.
type TerminationResult struct {
	EscrowSettled   int64 `json:"escrow_settled"`
	DepositReturned int64 `json:"deposit_returned"`
	DepositWithheld bool  `json:"deposit_withheld"`
}

// TerminateAgreement ends an active agreement. Either party may terminate at any
// time; once the term has lapsed anyone may. The escrow balance goes to the
// landlord in full and the deposit goes back to the tenant unless a dispute holds it.
func (s *Service) TerminateAgreement(ctx context.Context, caller lease.Identity, id lease.AgreementID) (TerminationResult, error) {
	var result TerminationResult
	err := s.run(ctx, "terminate_agreement", caller, func(ctx context.Context, u *unit) error {
		agreement, err := u.tx.Agreements().Get(ctx, id)
		if err != nil {
			return err
		}
		if !agreement.Active {
			return lease.ErrAgreementInactive
		}
		decision := lease.Authorize(caller, agreement.Parties(""), lease.ErrNotParty, lease.RelTenant, lease.RelLandlord)
		if !decision.Allowed && !agreement.Lapsed(u.now) {
			return decision.Err()
		}
		property, err := u.tx.Properties().Get(ctx, agreement.PropertyID)
		if err != nil {
			return err
		}

		payDeposit := agreement.Terminate(u.now)
		if err := u.tx.Agreements().Save(ctx, agreement); err != nil {
			return err
		}
		property.Status = lease.PropertyAvailable
		if err := u.tx.Properties().Save(ctx, property); err != nil {
			return err
		}
		account, err := u.tx.Escrow().Get(ctx, id)
		if err != nil {
			return err
		}
		settled := account.Drain(u.now)
		if err := u.tx.Escrow().Save(ctx, account); err != nil {
			return err
		}

		memo := lease.Memo{Kind: lease.EntrySettlement, AgreementID: id, PropertyID: agreement.PropertyID}
		if err := u.pay(ctx, agreement.Landlord, settled, memo); err != nil {
			return err
		}
		result = TerminationResult{EscrowSettled: settled, DepositWithheld: agreement.DisputeStatus == lease.DisputePending}
		if payDeposit {
			memo.Kind = lease.EntryDepositReturn
			if err := u.pay(ctx, agreement.Tenant, agreement.SecurityDeposit, memo); err != nil {
				return err
			}
			result.DepositReturned = agreement.SecurityDeposit
		}
		u.tx.Emit(AgreementTerminated{
			AgreementID:     id.String(),
			TerminatedBy:    string(caller),
			EscrowSettled:   settled,
			DepositReturned: result.DepositReturned,
			DepositWithheld: result.DepositWithheld,
			OccurredAt:      u.now,
		})
		return nil
	})
	return result, err
}
