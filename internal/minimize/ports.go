// Package minimize implements the early-elimination filter: collect the least
// sensitive demographic snapshot that still lets provably inapplicable laws
// be ruled out before any full evaluation runs.
package minimize

import "context"

// DemographicsProvider serves the minimal-data fields from the population
// registers. Every method returns exactly one low-sensitivity fact; callers
// ask only for what the candidate laws actually filter on.
type DemographicsProvider interface {
	// AgeBracket returns the citizen's privacy bracket ("0-17", "18-66", "67+").
	AgeBracket(ctx context.Context, bsn string) (string, error)

	// HasPartner reports whether a formal partnership is registered.
	HasPartner(ctx context.Context, bsn string) (bool, error)

	// HasChildren reports whether any minor children are registered.
	HasChildren(ctx context.Context, bsn string) (bool, error)

	// IsEmployed reports whether an active employment relation exists.
	IsEmployed(ctx context.Context, bsn string) (bool, error)

	// ResidenceCountry returns the ISO country code of the registered
	// residence.
	ResidenceCountry(ctx context.Context, bsn string) (string, error)
}
