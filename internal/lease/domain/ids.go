package lease

import (
	"fmt"
	"strconv"
	"strings"
)

// Identity names an account: a landlord, a tenant or the platform operator.
type Identity string

// Validate rejects the empty identity.
func (id Identity) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrEmptyIdentity
	}
	return nil
}

// PropertyID identifies a property. It shares no number space with AgreementID.
type PropertyID uint64

func (id PropertyID) String() string { return "prop-" + strconv.FormatUint(uint64(id), 10) }

// AgreementID identifies a rental agreement.
type AgreementID uint64

func (id AgreementID) String() string { return "agr-" + strconv.FormatUint(uint64(id), 10) }

// RequestID is the 1-based position of a maintenance request in its property's log.
type RequestID uint64

// ParsePropertyID accepts "prop-7" or "7".
func ParsePropertyID(value string) (PropertyID, error) {
	n, err := parseID(value, "prop-")
	return PropertyID(n), err
}

// ParseAgreementID accepts "agr-7" or "7".
func ParseAgreementID(value string) (AgreementID, error) {
	n, err := parseID(value, "agr-")
	return AgreementID(n), err
}

// ParseRequestID accepts a positive integer.
func ParseRequestID(value string) (RequestID, error) {
	n, err := parseID(value, "")
	return RequestID(n), err
}

func parseID(value, prefix string) (uint64, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(value), prefix)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrValidation, value)
	}
	return n, nil
}

// Namespace separates identifier sequences.
type Namespace string

const (
	NamespaceProperty  Namespace = "property"
	NamespaceAgreement Namespace = "agreement"
)

// Allocator hands out monotonically increasing identifiers per namespace.
// The zero value starts every namespace at 1.
type Allocator struct {
	next map[Namespace]uint64
}

// NewAllocator returns an allocator whose namespaces start at the given values.
func NewAllocator(start map[Namespace]uint64) Allocator {
	a := Allocator{next: make(map[Namespace]uint64, len(start))}
	for ns, v := range start {
		if v > 0 {
			a.next[ns] = v
		}
	}
	return a
}

// Next returns the next id in ns.
func (a *Allocator) Next(ns Namespace) uint64 {
	if a.next == nil {
		a.next = make(map[Namespace]uint64)
	}
	id := a.next[ns]
	if id == 0 {
		id = 1
	}
	a.next[ns] = id + 1
	return id
}

// Peek returns the id Next would hand out without consuming it.
func (a Allocator) Peek(ns Namespace) uint64 {
	if id := a.next[ns]; id > 0 {
		return id
	}
	return 1
}

// Clone returns an independent copy.
func (a Allocator) Clone() Allocator {
	next := make(map[Namespace]uint64, len(a.next))
	for k, v := range a.next {
		next[k] = v
	}
	return Allocator{next: next}
}
