package application

import (
	"context"

	lease "lease-escrow/internal/lease/domain"
)

// RequestMaintenance appends a ticket to the property's log on behalf of a party
// to an active agreement on that property.
func (s *Service) RequestMaintenance(ctx context.Context, caller lease.Identity, propertyID lease.PropertyID, agreementID lease.AgreementID, description string) (lease.RequestID, error) {
	var id lease.RequestID
	err := s.run(ctx, "request_maintenance", caller, func(ctx context.Context, u *unit) error {
		agreement, err := u.tx.Agreements().Get(ctx, agreementID)
		if err != nil {
			return err
		}
		if _, err := u.tx.Properties().Get(ctx, propertyID); err != nil {
			return err
		}
		if agreement.PropertyID != propertyID {
			return lease.ErrPropertyMismatch
		}
		if !agreement.Active {
			return lease.ErrAgreementInactive
		}
		if err := lease.Authorize(caller, agreement.Parties(""), lease.ErrNotParty, lease.RelTenant, lease.RelLandlord).Err(); err != nil {
			return err
		}

		request := lease.MaintenanceRequest{
			PropertyID:  propertyID,
			AgreementID: agreementID,
			Requester:   caller,
			Description: description,
			RequestedAt: u.now,
		}
		next, err := u.tx.Maintenance().Append(ctx, request)
		if err != nil {
			return err
		}
		u.tx.Emit(MaintenanceRequested{
			PropertyID:  propertyID.String(),
			RequestID:   uint64(next),
			AgreementID: agreementID.String(),
			Requester:   string(caller),
			Description: description,
			OccurredAt:  u.now,
		})
		id = next
		return nil
	})
	return id, err
}

// CompleteMaintenance resolves a ticket. Only the property's landlord may, and only once.
func (s *Service) CompleteMaintenance(ctx context.Context, caller lease.Identity, propertyID lease.PropertyID, requestID lease.RequestID, cost int64) error {
	return s.run(ctx, "complete_maintenance", caller, func(ctx context.Context, u *unit) error {
		property, err := u.tx.Properties().Get(ctx, propertyID)
		if err != nil {
			return err
		}
		if err := lease.Authorize(caller, lease.Parties{Landlord: property.Landlord}, lease.ErrNotLandlord, lease.RelLandlord).Err(); err != nil {
			return err
		}
		request, err := u.tx.Maintenance().Get(ctx, propertyID, requestID)
		if err != nil {
			return err
		}
		if err := request.Complete(cost, u.now); err != nil {
			return err
		}
		if err := u.tx.Maintenance().Save(ctx, request); err != nil {
			return err
		}
		u.tx.Emit(MaintenanceCompleted{
			PropertyID: propertyID.String(),
			RequestID:  uint64(requestID),
			Cost:       cost,
			OccurredAt: u.now,
		})
		return nil
	})
}
