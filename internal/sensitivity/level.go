// Package sensitivity classifies data fields on a 1-5 privacy scale and
// decides whether a law can be ruled out using only minimal data.
package sensitivity

// Level is the ordinal data sensitivity classification. Higher is more
// privacy sensitive. Once assigned for an evaluation it never changes.
type Level int

const (
	// Administrative covers dates, ids and boolean flags.
	Administrative Level = 1
	// Demographic covers age ranges and general categories.
	Demographic Level = 2
	// Ranges covers financial brackets and location areas.
	Ranges Level = 3
	// PersonalExact covers exact amounts and detailed attributes.
	PersonalExact Level = 4
	// Identifiers covers BSNs, addresses and exact income or assets.
	Identifiers Level = 5
)

func (l Level) String() string {
	switch l {
	case Administrative:
		return "ADMINISTRATIVE"
	case Demographic:
		return "DEMOGRAPHIC"
	case Ranges:
		return "RANGES"
	case PersonalExact:
		return "PERSONAL_EXACT"
	case Identifiers:
		return "IDENTIFIERS"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether l is within the 1-5 scale.
func (l Level) Valid() bool {
	return l >= Administrative && l <= Identifiers
}
