package sensitivity

import "machinelaw/internal/lawspec"

// Age brackets used instead of exact ages. Each bracket maps to a single
// representative age used only for threshold comparisons; the representative
// age must never be surfaced as a real age.
const (
	BracketMinor   = "0-17"
	BracketAdult   = "18-66"
	BracketPension = "67+"
)

// MinimalData is the low-sensitivity snapshot used for early elimination:
// an age bracket instead of a birth date, boolean flags instead of detailed
// records, a residence country instead of an address. Nil pointers mean the
// field could not be collected.
type MinimalData struct {
	AgeBracket       string
	HasPartner       *bool
	HasChildren      *bool
	IsEmployed       *bool
	ResidenceCountry string
}

// ApproxAge returns the bracket's representative age, or false when no
// bracket is known.
func (m MinimalData) ApproxAge() (int, bool) {
	return BracketRepresentativeAge(m.AgeBracket)
}

// BracketForAge converts an exact age to its privacy bracket.
func BracketForAge(age int) string {
	switch {
	case age < 18:
		return BracketMinor
	case age < 67:
		return BracketAdult
	default:
		return BracketPension
	}
}

// BracketRepresentativeAge converts a bracket back to the representative age
// used for min/max threshold checks.
func BracketRepresentativeAge(bracket string) (int, bool) {
	switch bracket {
	case BracketMinor:
		return 16, true
	case BracketAdult:
		return 35, true
	case BracketPension:
		return 70, true
	default:
		return 0, false
	}
}

// CanEliminateEarly reports whether a law is provably inapplicable given only
// minimal data. The four checks are independent; any single hit eliminates.
// This is a "prove ineligible" test and must never produce a false
// elimination: a law without minimization hints is never eliminated.
func (c *Classifier) CanEliminateEarly(spec *lawspec.Specification, data MinimalData) bool {
	hints := spec.Minimization
	if hints == nil {
		return false
	}

	if age, ok := data.ApproxAge(); ok {
		if hints.MinAge != nil && age < *hints.MinAge {
			return true
		}
		if hints.MaxAge != nil && age > *hints.MaxAge {
			return true
		}
	}

	if hints.RequiresPartner && data.HasPartner != nil && !*data.HasPartner {
		return true
	}
	if hints.RequiresChildren && data.HasChildren != nil && !*data.HasChildren {
		return true
	}

	return false
}
