package lease

import "time"

// MaintenanceRequest is one ticket in a property's append-only maintenance log.
type MaintenanceRequest struct {
	ID          RequestID   `json:"id"`
	PropertyID  PropertyID  `json:"property_id"`
	AgreementID AgreementID `json:"agreement_id"`
	Requester   Identity    `json:"requester"`
	Description string      `json:"description"`
	RequestedAt time.Time   `json:"requested_at"`
	Resolved    bool        `json:"resolved"`
	Cost        int64       `json:"cost"`
	ResolvedAt  time.Time   `json:"resolved_at,omitempty"`
}

// Complete resolves the request once.
func (r *MaintenanceRequest) Complete(cost int64, now time.Time) error {
	if r.Resolved {
		return ErrAlreadyResolved
	}
	if cost < 0 {
		return ErrNegativeAmount
	}
	r.Resolved = true
	r.Cost = cost
	r.ResolvedAt = now
	return nil
}
