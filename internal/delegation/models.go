// Package delegation materializes act-on-behalf-of grants by evaluating
// delegation-provider laws through the rule engine and parsing their standard
// output contract.
package delegation

import "time"

// Subject types a delegation can point at.
const (
	SubjectTypeCitizen  = "CITIZEN"
	SubjectTypeBusiness = "BUSINESS"
	SubjectTypeUnknown  = "UNKNOWN"
)

// DiscoverableTag marks a law as a delegation provider.
const DiscoverableTag = "DELEGATION_PROVIDER"

// Delegation grants one subject the right to act on behalf of another. It is
// produced transiently from a law evaluation; validity is computed from the
// reference date, never stored.
type Delegation struct {
	SubjectID      string     `json:"subject_id"`
	SubjectType    string     `json:"subject_type"`
	SubjectName    string     `json:"subject_name"`
	DelegationType string     `json:"delegation_type"`
	Permissions    []string   `json:"permissions"`
	ValidFrom      time.Time  `json:"valid_from"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
}

// IsValid reports whether the grant covers the reference date. A zero
// ValidFrom means "since forever"; an absent ValidUntil means unbounded.
func (d Delegation) IsValid(reference time.Time) bool {
	if !d.ValidFrom.IsZero() && reference.Before(d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && reference.After(*d.ValidUntil) {
		return false
	}
	return true
}

// DelegationContext bundles everything a citizen may currently act on.
type DelegationContext struct {
	Delegations []Delegation `json:"delegations"`
	RetrievedAt time.Time    `json:"retrieved_at"`
}

// Valid returns the delegations covering the reference date.
func (c DelegationContext) Valid(reference time.Time) []Delegation {
	var out []Delegation
	for _, d := range c.Delegations {
		if d.IsValid(reference) {
			out = append(out, d)
		}
	}
	return out
}

// ForSubject returns the delegation for one subject id, if present and valid.
func (c DelegationContext) ForSubject(subjectID string, reference time.Time) (Delegation, bool) {
	for _, d := range c.Delegations {
		if d.SubjectID == subjectID && d.IsValid(reference) {
			return d, true
		}
	}
	return Delegation{}, false
}
