package machine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"machinelaw/internal/lawspec"
	"machinelaw/internal/sensitivity"
)

// Source tables served by the profile store.
const (
	tablePersons     = "personen"
	tableRelations   = "relaties"
	tableChildren    = "kinderen"
	tableEmployments = "dienstverbanden"
)

// ProfileStore holds source records per table, matched on the select_on
// selectors of a bound source reference. It backs both the rule engine's
// source lookups and the minimal-data demographics for early elimination.
type ProfileStore struct {
	mu     sync.RWMutex
	tables map[string][]map[string]any
	now    func() time.Time
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		tables: make(map[string][]map[string]any),
		now:    time.Now,
	}
}

// AddRecord appends one record to a table. Records are matched in insertion
// order; the first full selector match wins.
func (p *ProfileStore) AddRecord(table string, record map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := make(map[string]any, len(record))
	for k, v := range record {
		copied[k] = v
	}
	p.tables[table] = append(p.tables[table], copied)
}

// Lookup resolves a bound source reference against the stored records.
func (p *ProfileStore) Lookup(_ context.Context, ref lawspec.SourceReference) (any, bool, error) {
	record, ok := p.findRecord(ref.Table, ref.SelectOn)
	if !ok {
		return nil, false, nil
	}
	value, ok := record[ref.Field]
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (p *ProfileStore) findRecord(table string, selectors []lawspec.SelectOnField) (map[string]any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, record := range p.tables[table] {
		if matchesSelectors(record, selectors) {
			return record, true
		}
	}
	return nil, false
}

func matchesSelectors(record map[string]any, selectors []lawspec.SelectOnField) bool {
	for _, sel := range selectors {
		value, ok := record[sel.Name]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", value) != sel.Value {
			return false
		}
	}
	return true
}

// lookupByBSN fetches one field from the record keyed on bsn.
func (p *ProfileStore) lookupByBSN(table, field, bsn string) (any, error) {
	record, ok := p.findRecord(table, []lawspec.SelectOnField{{Name: "bsn", Value: bsn}})
	if !ok {
		return nil, fmt.Errorf("no %s record for subject", table)
	}
	value, ok := record[field]
	if !ok {
		return nil, fmt.Errorf("%s record has no %s", table, field)
	}
	return value, nil
}

// AgeBracket derives the privacy bracket from the person's birth date. The
// exact date never leaves this method.
func (p *ProfileStore) AgeBracket(_ context.Context, bsn string) (string, error) {
	value, err := p.lookupByBSN(tablePersons, "geboortedatum", bsn)
	if err != nil {
		return "", err
	}
	birth, err := asDate(value)
	if err != nil {
		return "", fmt.Errorf("geboortedatum: %w", err)
	}

	reference := p.now().UTC()
	age := reference.Year() - birth.Year()
	if reference.Month() < birth.Month() ||
		(reference.Month() == birth.Month() && reference.Day() < birth.Day()) {
		age--
	}
	return sensitivity.BracketForAge(age), nil
}

// HasPartner reports a registered partnership of any type.
func (p *ProfileStore) HasPartner(_ context.Context, bsn string) (bool, error) {
	value, err := p.lookupByBSN(tableRelations, "partnerschap_type", bsn)
	if err != nil {
		return false, err
	}
	partnerType, _ := value.(string)
	return partnerType != "" && partnerType != "GEEN", nil
}

// HasChildren reports whether any child records exist for the subject.
func (p *ProfileStore) HasChildren(_ context.Context, bsn string) (bool, error) {
	value, err := p.lookupByBSN(tableChildren, "aantal_kinderen", bsn)
	if err != nil {
		return false, err
	}
	count, err := asInt(value)
	if err != nil {
		return false, fmt.Errorf("aantal_kinderen: %w", err)
	}
	return count > 0, nil
}

// IsEmployed reports an active employment relationship.
func (p *ProfileStore) IsEmployed(_ context.Context, bsn string) (bool, error) {
	value, err := p.lookupByBSN(tableEmployments, "heeft_dienstverband", bsn)
	if err != nil {
		return false, err
	}
	employed, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("heeft_dienstverband is not a boolean")
	}
	return employed, nil
}

// ResidenceCountry returns the country of residence, not the address.
func (p *ProfileStore) ResidenceCountry(_ context.Context, bsn string) (string, error) {
	value, err := p.lookupByBSN(tablePersons, "land_verblijf", bsn)
	if err != nil {
		return "", err
	}
	country, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("land_verblijf is not a string")
	}
	return country, nil
}

func asDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("not a date: %T", value)
	}
}

func asInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("not a number: %T", value)
	}
}
