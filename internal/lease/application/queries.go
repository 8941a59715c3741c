package application

import (
	"context"

	lease "lease-escrow/internal/lease/domain"
)

// GetProperty returns a property.
func (s *Service) GetProperty(ctx context.Context, id lease.PropertyID) (lease.Property, error) {
	var property lease.Property
	err := s.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		property, err = tx.Properties().Get(ctx, id)
		return err
	})
	return property, err
}

// ListLandlordProperties returns the properties listed by landlord in id order.
func (s *Service) ListLandlordProperties(ctx context.Context, landlord lease.Identity) ([]lease.Property, error) {
	var properties []lease.Property
	err := s.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		properties, err = tx.Properties().ListByLandlord(ctx, landlord)
		return err
	})
	return properties, err
}

// GetAgreement returns an agreement.
func (s *Service) GetAgreement(ctx context.Context, id lease.AgreementID) (lease.RentalAgreement, error) {
	var agreement lease.RentalAgreement
	err := s.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		agreement, err = tx.Agreements().Get(ctx, id)
		return err
	})
	return agreement, err
}

// ListTenantAgreements returns every agreement the tenant ever signed.
func (s *Service) ListTenantAgreements(ctx context.Context, tenant lease.Identity) ([]lease.RentalAgreement, error) {
	var agreements []lease.RentalAgreement
	err := s.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		agreements, err = tx.Agreements().ListByTenant(ctx, tenant)
		return err
	})
	return agreements, err
}

// GetEscrow returns the escrow account of an existing agreement.
func (s *Service) GetEscrow(ctx context.Context, id lease.AgreementID) (lease.EscrowAccount, error) {
	var account lease.EscrowAccount
	err := s.view(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Agreements().Get(ctx, id); err != nil {
			return err
		}
		var err error
		account, err = tx.Escrow().Get(ctx, id)
		return err
	})
	return account, err
}

// GetConditionReport returns the latest snapshot of a property. found is false
// when no report was ever accepted.
func (s *Service) GetConditionReport(ctx context.Context, id lease.PropertyID) (snapshot lease.MaintenanceSnapshot, found bool, err error) {
	err = s.view(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Properties().Get(ctx, id); err != nil {
			return err
		}
		var err error
		snapshot, found, err = tx.Conditions().Get(ctx, id)
		return err
	})
	return snapshot, found, err
}

// ListMaintenance returns the maintenance log of a property in request order.
func (s *Service) ListMaintenance(ctx context.Context, id lease.PropertyID) ([]lease.MaintenanceRequest, error) {
	var requests []lease.MaintenanceRequest
	err := s.view(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Properties().Get(ctx, id); err != nil {
			return err
		}
		var err error
		requests, err = tx.Maintenance().List(ctx, id)
		return err
	})
	return requests, err
}

// GetPlatform returns the platform parameters and funds.
func (s *Service) GetPlatform(ctx context.Context) (lease.Platform, error) {
	var platform lease.Platform
	err := s.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		platform, err = tx.Platform().Get(ctx)
		return err
	})
	return platform, err
}

// ListLedger returns the value movements involving party, oldest first.
func (s *Service) ListLedger(ctx context.Context, party lease.Identity) ([]lease.LedgerEntry, error) {
	var entries []lease.LedgerEntry
	err := s.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		entries, err = tx.Vault().Entries(ctx, party)
		return err
	})
	return entries, err
}
