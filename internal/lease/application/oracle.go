package application

import (
	"context"

	lease "lease-escrow/internal/lease/domain"
)

// UpdateConditionReport replaces the condition snapshot of a property. Only the
// landlord or the platform operator may report.
func (s *Service) UpdateConditionReport(ctx context.Context, caller lease.Identity, propertyID lease.PropertyID, scores lease.Scores) (lease.MaintenanceSnapshot, error) {
	var snapshot lease.MaintenanceSnapshot
	err := s.run(ctx, "update_condition", caller, func(ctx context.Context, u *unit) error {
		if err := scores.Validate(); err != nil {
			return err
		}
		property, err := u.tx.Properties().Get(ctx, propertyID)
		if err != nil {
			return err
		}
		platform, err := u.platform(ctx)
		if err != nil {
			return err
		}
		parties := lease.Parties{Landlord: property.Landlord, Operator: platform.Operator}
		if err := lease.Authorize(caller, parties, lease.ErrNotReporter, lease.RelLandlord, lease.RelOperator).Err(); err != nil {
			return err
		}

		snapshot = lease.NewSnapshot(propertyID, scores, caller, u.now)
		if err := u.tx.Conditions().Save(ctx, snapshot); err != nil {
			return err
		}
		u.tx.Emit(ConditionReportUpdated{
			PropertyID:  propertyID.String(),
			Temperature: snapshot.Temperature,
			Plumbing:    snapshot.Plumbing,
			Security:    snapshot.Security,
			Overall:     snapshot.Overall,
			ReportedBy:  string(caller),
			OccurredAt:  u.now,
		})
		return nil
	})
	return snapshot, err
}
