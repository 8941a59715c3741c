package lease

import "time"

// Scores are the three subsystem condition scores reported by the IoT pipeline.
type Scores struct {
	Temperature int `json:"temperature"`
	Plumbing    int `json:"plumbing"`
	Security    int `json:"security"`
}

// Validate checks each score is in [0, 100].
func (s Scores) Validate() error {
	for _, v := range []int{s.Temperature, s.Plumbing, s.Security} {
		if v < 0 || v > MaxScore {
			return ErrScoreOutOfRange
		}
	}
	return nil
}

// Overall is the truncated mean of the three scores.
func (s Scores) Overall() uint8 {
	return uint8((s.Temperature + s.Plumbing + s.Security) / 3)
}

// MaintenanceSnapshot is the latest condition report of a property.
type MaintenanceSnapshot struct {
	PropertyID  PropertyID `json:"property_id"`
	Temperature uint8      `json:"temperature"`
	Plumbing    uint8      `json:"plumbing"`
	Security    uint8      `json:"security"`
	Overall     uint8      `json:"overall"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ReportedBy  Identity   `json:"reported_by"`
}

// NewSnapshot builds a snapshot from validated scores.
func NewSnapshot(propertyID PropertyID, scores Scores, reporter Identity, now time.Time) MaintenanceSnapshot {
	return MaintenanceSnapshot{
		PropertyID:  propertyID,
		Temperature: uint8(scores.Temperature),
		Plumbing:    uint8(scores.Plumbing),
		Security:    uint8(scores.Security),
		Overall:     scores.Overall(),
		UpdatedAt:   now,
		ReportedBy:  reporter,
	}
}

// ConditionGate decides whether a property's condition allows letting or release.
// A missing report always blocks.
type ConditionGate struct {
	MinScore uint8
	// MaxAge is the freshness window; zero disables the age check.
	MaxAge time.Duration
}

// Check evaluates the gate against the snapshot at now.
func (g ConditionGate) Check(snapshot MaintenanceSnapshot, found bool, now time.Time) error {
	if !found {
		return ErrNoConditionReport
	}
	if snapshot.Overall < g.MinScore {
		return ErrMaintenanceBelowThreshold
	}
	if g.MaxAge > 0 && now.Sub(snapshot.UpdatedAt) > g.MaxAge {
		return ErrStaleConditionReport
	}
	return nil
}
