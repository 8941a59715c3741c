package application

import (
	"context"

	lease "lease-escrow/internal/lease/domain"
)

// ListPropertyInput describes a new listing.
type ListPropertyInput struct {
	Address             string `json:"address"`
	Description         string `json:"description"`
	MonthlyRent         int64  `json:"monthly_rent"`
	SecurityDeposit     int64  `json:"security_deposit"`
	MinMaintenanceScore int    `json:"min_maintenance_score"`
	IoTEnabled          bool   `json:"iot_enabled"`
}

// ListProperty registers a property owned by landlord. It starts available.
func (s *Service) ListProperty(ctx context.Context, landlord lease.Identity, in ListPropertyInput) (lease.PropertyID, error) {
	var id lease.PropertyID
	err := s.run(ctx, "list_property", landlord, func(ctx context.Context, u *unit) error {
		if err := landlord.Validate(); err != nil {
			return err
		}
		if err := lease.ValidateTerms(in.MonthlyRent, in.SecurityDeposit, in.MinMaintenanceScore); err != nil {
			return err
		}
		next, err := u.tx.Properties().NextID(ctx)
		if err != nil {
			return err
		}
		property := lease.Property{
			ID:                  next,
			Landlord:            landlord,
			Address:             in.Address,
			Description:         in.Description,
			MonthlyRent:         in.MonthlyRent,
			SecurityDeposit:     in.SecurityDeposit,
			Status:              lease.PropertyAvailable,
			MinMaintenanceScore: uint8(in.MinMaintenanceScore),
			IoTEnabled:          in.IoTEnabled,
			ListedAt:            u.now,
		}
		if err := u.tx.Properties().Save(ctx, property); err != nil {
			return err
		}
		u.tx.Emit(PropertyListed{
			PropertyID:  next.String(),
			Landlord:    string(landlord),
			MonthlyRent: in.MonthlyRent,
			IoTEnabled:  in.IoTEnabled,
			OccurredAt:  u.now,
		})
		id = next
		return nil
	})
	return id, err
}
