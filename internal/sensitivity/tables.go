package sensitivity

// FieldTable maps uppercased field names to explicit sensitivity levels.
type FieldTable map[string]Level

// PatternGroup maps substring tokens to a level. Groups are tried in slice
// order and the first group with a matching token wins, so classification
// stays deterministic even when a name matches several groups.
type PatternGroup struct {
	Tokens []string
	Level  Level
}

// DefaultFieldTable covers the well-known Dutch government field names.
func DefaultFieldTable() FieldTable {
	return FieldTable{
		// Identifiers and exact personal data.
		"BSN":                  Identifiers,
		"BURGERSERVICENUMMER":  Identifiers,
		"VERBLIJFSADRES":       Identifiers,
		"POSTADRES":            Identifiers,
		"EXACT_INKOMEN":        Identifiers,
		"VERMOGEN":             Identifiers,
		"PARTNER_BSN":          Identifiers,
		// Exact personal attributes.
		"GEBOORTEDATUM":         PersonalExact,
		"PARTNER_GEBOORTEDATUM": PersonalExact,
		"INKOMEN":               PersonalExact,
		"PARTNER_INKOMEN":       PersonalExact,
		"TOETSINGSINKOMEN":      PersonalExact,
		"GEZINSINKOMEN":         PersonalExact,
		"BEDRIJFSINKOMEN":       PersonalExact,
		// Ranges and location data.
		"WOONPLAATS":       Ranges,
		"INKOMEN_BRACKET":  Ranges,
		"VERMOGEN_BRACKET": Ranges,
		"WOONSITUATIE":     Ranges,
		"VERBLIJFSLAND":    Ranges,
		"NATIONALITEIT":    Ranges,
		// Demographics and general categories.
		"LEEFTIJD":         Demographic,
		"PARTNER_LEEFTIJD": Demographic,
		"LEEFTIJD_BRACKET": Demographic,
		"HUISHOUDGROOTTE":  Demographic,
		"AANTAL_KINDEREN":  Demographic,
		"PARTNERTYPE":      Demographic,
		// Administrative metadata and boolean flags.
		"HEEFT_PARTNER":    Administrative,
		"IS_VERZEKERD":     Administrative,
		"IS_GERECHTIGD":    Administrative,
		"CALCULATION_DATE": Administrative,
		"VALID_FROM":       Administrative,
		"REFERENCE_DATE":   Administrative,
	}
}

// DefaultPatternGroups returns the pattern groups in their fixed match order:
// identifier-like tokens first, administrative prefixes last.
func DefaultPatternGroups() []PatternGroup {
	return []PatternGroup{
		{Tokens: []string{"BSN", "NUMMER", "ID", "ADRES"}, Level: Identifiers},
		{Tokens: []string{"BEDRAG", "INKOMEN", "VERMOGEN", "KOSTEN"}, Level: PersonalExact},
		{Tokens: []string{"BRACKET", "RANGE", "CATEGORIE"}, Level: Ranges},
		{Tokens: []string{"LEEFTIJD", "AANTAL", "GROOTTE"}, Level: Demographic},
		{Tokens: []string{"HEEFT_", "IS_", "DATE", "FLAG"}, Level: Administrative},
	}
}
