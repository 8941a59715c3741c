package memory

import (
	"maps"

	lease "lease-escrow/internal/lease/domain"
)

type state struct {
	ids         lease.Allocator
	properties  map[lease.PropertyID]lease.Property
	agreements  map[lease.AgreementID]lease.RentalAgreement
	escrow      map[lease.AgreementID]lease.EscrowAccount
	conditions  map[lease.PropertyID]lease.MaintenanceSnapshot
	maintenance map[lease.PropertyID][]lease.MaintenanceRequest
	platform    lease.Platform

	custody  int64
	ledger   []lease.LedgerEntry
	entrySeq uint64

	// events emitted by the unit in progress.
	events []any
}

func newState(platform lease.Platform) *state {
	return &state{
		properties:  make(map[lease.PropertyID]lease.Property),
		agreements:  make(map[lease.AgreementID]lease.RentalAgreement),
		escrow:      make(map[lease.AgreementID]lease.EscrowAccount),
		conditions:  make(map[lease.PropertyID]lease.MaintenanceSnapshot),
		maintenance: make(map[lease.PropertyID][]lease.MaintenanceRequest),
		platform:    platform,
	}
}

// clone copies everything a unit of work can mutate. Records are values, so a
// shallow map copy suffices except for the per-property logs.
func (s *state) clone() *state {
	logs := make(map[lease.PropertyID][]lease.MaintenanceRequest, len(s.maintenance))
	for id, requests := range s.maintenance {
		logs[id] = append([]lease.MaintenanceRequest(nil), requests...)
	}
	return &state{
		ids:         s.ids.Clone(),
		properties:  maps.Clone(s.properties),
		agreements:  maps.Clone(s.agreements),
		escrow:      maps.Clone(s.escrow),
		conditions:  maps.Clone(s.conditions),
		maintenance: logs,
		platform:    s.platform,
		custody:     s.custody,
		ledger:      append([]lease.LedgerEntry(nil), s.ledger...),
		entrySeq:    s.entrySeq,
		events:      append([]any(nil), s.events...),
	}
}
