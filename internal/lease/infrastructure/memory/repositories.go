package memory

import (
	"context"
	"sort"

	lease "lease-escrow/internal/lease/domain"
)

type propertyRepo struct{ tx *unitTx }

func (r propertyRepo) NextID(context.Context) (lease.PropertyID, error) {
	return lease.PropertyID(r.tx.state.ids.Next(lease.NamespaceProperty)), nil
}

func (r propertyRepo) Get(_ context.Context, id lease.PropertyID) (lease.Property, error) {
	property, ok := r.tx.state.properties[id]
	if !ok {
		return lease.Property{}, lease.ErrPropertyNotFound
	}
	return property, nil
}

func (r propertyRepo) Save(_ context.Context, property lease.Property) error {
	r.tx.state.properties[property.ID] = property
	return nil
}

func (r propertyRepo) ListByLandlord(_ context.Context, landlord lease.Identity) ([]lease.Property, error) {
	var result []lease.Property
	for _, property := range r.tx.state.properties {
		if property.Landlord == landlord {
			result = append(result, property)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type agreementRepo struct{ tx *unitTx }

func (r agreementRepo) NextID(context.Context) (lease.AgreementID, error) {
	return lease.AgreementID(r.tx.state.ids.Next(lease.NamespaceAgreement)), nil
}

func (r agreementRepo) Get(_ context.Context, id lease.AgreementID) (lease.RentalAgreement, error) {
	agreement, ok := r.tx.state.agreements[id]
	if !ok {
		return lease.RentalAgreement{}, lease.ErrAgreementNotFound
	}
	return agreement, nil
}

func (r agreementRepo) Save(_ context.Context, agreement lease.RentalAgreement) error {
	r.tx.state.agreements[agreement.ID] = agreement
	return nil
}

func (r agreementRepo) ListByTenant(_ context.Context, tenant lease.Identity) ([]lease.RentalAgreement, error) {
	var result []lease.RentalAgreement
	for _, agreement := range r.tx.state.agreements {
		if agreement.Tenant == tenant {
			result = append(result, agreement)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type escrowRepo struct{ tx *unitTx }

func (r escrowRepo) Get(_ context.Context, id lease.AgreementID) (lease.EscrowAccount, error) {
	account, ok := r.tx.state.escrow[id]
	if !ok {
		return lease.EscrowAccount{AgreementID: id}, nil
	}
	return account, nil
}

func (r escrowRepo) Save(_ context.Context, account lease.EscrowAccount) error {
	r.tx.state.escrow[account.AgreementID] = account
	return nil
}

type conditionRepo struct{ tx *unitTx }

func (r conditionRepo) Get(_ context.Context, id lease.PropertyID) (lease.MaintenanceSnapshot, bool, error) {
	snapshot, ok := r.tx.state.conditions[id]
	return snapshot, ok, nil
}

func (r conditionRepo) Save(_ context.Context, snapshot lease.MaintenanceSnapshot) error {
	r.tx.state.conditions[snapshot.PropertyID] = snapshot
	return nil
}

type maintenanceRepo struct{ tx *unitTx }

func (r maintenanceRepo) Append(_ context.Context, request lease.MaintenanceRequest) (lease.RequestID, error) {
	log := r.tx.state.maintenance[request.PropertyID]
	request.ID = lease.RequestID(len(log) + 1)
	r.tx.state.maintenance[request.PropertyID] = append(log, request)
	return request.ID, nil
}

func (r maintenanceRepo) Get(_ context.Context, propertyID lease.PropertyID, id lease.RequestID) (lease.MaintenanceRequest, error) {
	log := r.tx.state.maintenance[propertyID]
	if id == 0 || int(id) > len(log) {
		return lease.MaintenanceRequest{}, lease.ErrRequestNotFound
	}
	return log[id-1], nil
}

func (r maintenanceRepo) Save(_ context.Context, request lease.MaintenanceRequest) error {
	log := r.tx.state.maintenance[request.PropertyID]
	if request.ID == 0 || int(request.ID) > len(log) {
		return lease.ErrRequestNotFound
	}
	log[request.ID-1] = request
	return nil
}

func (r maintenanceRepo) List(_ context.Context, propertyID lease.PropertyID) ([]lease.MaintenanceRequest, error) {
	return append([]lease.MaintenanceRequest(nil), r.tx.state.maintenance[propertyID]...), nil
}

type platformRepo struct{ tx *unitTx }

func (r platformRepo) Get(context.Context) (lease.Platform, error) {
	return r.tx.state.platform, nil
}

func (r platformRepo) Save(_ context.Context, platform lease.Platform) error {
	r.tx.state.platform = platform
	return nil
}
