package lease

// Relationship is a role a caller can hold toward a resource.
type Relationship string

const (
	RelTenant   Relationship = "tenant"
	RelLandlord Relationship = "landlord"
	RelOperator Relationship = "operator"
)

// Parties are the identities holding relationships toward one resource.
type Parties struct {
	Tenant   Identity
	Landlord Identity
	Operator Identity
}

func (p Parties) holder(rel Relationship) Identity {
	switch rel {
	case RelTenant:
		return p.Tenant
	case RelLandlord:
		return p.Landlord
	case RelOperator:
		return p.Operator
	}
	return ""
}

// Decision is the tagged result of an authorization check.
type Decision struct {
	Caller  Identity
	Allowed bool
	// As is the first matching relationship when allowed.
	As     Relationship
	denial *Error
}

// Err returns nil when allowed and the denial error otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.denial == nil {
		return ErrNotParty
	}
	return d.denial
}

// Authorize checks that caller holds at least one of the required relationships
// toward the resource. denial is the error reported when it does not.
func Authorize(caller Identity, parties Parties, denial *Error, required ...Relationship) Decision {
	decision := Decision{Caller: caller, denial: denial}
	if caller.Validate() != nil {
		return decision
	}
	for _, rel := range required {
		if holder := parties.holder(rel); holder != "" && holder == caller {
			decision.Allowed = true
			decision.As = rel
			return decision
		}
	}
	return decision
}
