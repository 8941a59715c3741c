package lease

import "time"

// PropertyStatus is the availability of a property.
type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "available"
	PropertyRented    PropertyStatus = "rented"
	// PropertyUnderMaintenance is reserved. Nothing in this service moves a property
	// into or out of it; a property in this state simply cannot be let.
	PropertyUnderMaintenance PropertyStatus = "under_maintenance"
)

// MaxScore is the upper bound of every condition score.
const MaxScore = 100

// Property is a listed rental unit.
type Property struct {
	ID                  PropertyID     `json:"id"`
	Landlord            Identity       `json:"landlord"`
	Address             string         `json:"address"`
	Description         string         `json:"description"`
	MonthlyRent         int64          `json:"monthly_rent"`
	SecurityDeposit     int64          `json:"security_deposit"`
	Status              PropertyStatus `json:"status"`
	MinMaintenanceScore uint8          `json:"min_maintenance_score"`
	IoTEnabled          bool           `json:"iot_enabled"`
	ListedAt            time.Time      `json:"listed_at"`
}

// ValidateTerms checks listing terms.
func ValidateTerms(monthlyRent, securityDeposit int64, minScore int) error {
	if monthlyRent <= 0 {
		return ErrNonPositiveRent
	}
	if securityDeposit <= 0 {
		return ErrNonPositiveDeposit
	}
	if minScore < 0 || minScore > MaxScore {
		return ErrScoreOutOfRange
	}
	if _, err := AddAmounts(monthlyRent, securityDeposit); err != nil {
		return err
	}
	return nil
}

// MoveInTotal is the payment required to create an agreement.
func (p Property) MoveInTotal() int64 {
	return p.MonthlyRent + p.SecurityDeposit
}
