package delegation

import (
	"fmt"
	"time"
)

// Output keys of the delegation-provider contract. All arrays are parallel to
// subject_ids; shorter arrays fall back to defaults for the missing tail.
const (
	keyHasDelegations = "heeft_delegaties"
	keySubjectIDs     = "subject_ids"
	keySubjectNames   = "subject_names"
	keySubjectTypes   = "subject_types"
	keyTypes          = "delegation_types"
	keyPermissions    = "permissions"
	keyValidFrom      = "valid_from_dates"
	keyValidUntil     = "valid_until_dates"
)

// parseDelegations reads the parallel-array contract out of a law's outputs.
// One Delegation per non-null subject id; index misalignment degrades to
// defaults, never to an error.
func parseDelegations(outputs map[string]any) []Delegation {
	ids := asList(outputs[keySubjectIDs])
	names := asList(outputs[keySubjectNames])
	types := asList(outputs[keySubjectTypes])
	kinds := asList(outputs[keyTypes])
	perms := asList(outputs[keyPermissions])
	froms := asList(outputs[keyValidFrom])
	untils := asList(outputs[keyValidUntil])

	var out []Delegation
	for i, rawID := range ids {
		if rawID == nil {
			continue
		}
		d := Delegation{
			SubjectID:      fmt.Sprintf("%v", rawID),
			SubjectName:    stringAt(names, i, SubjectTypeUnknown),
			SubjectType:    subjectType(stringAt(types, i, SubjectTypeUnknown)),
			DelegationType: stringAt(kinds, i, SubjectTypeUnknown),
			Permissions:    permissionsAt(perms, i),
		}
		if from, ok := dateAt(froms, i); ok {
			d.ValidFrom = from
		}
		if until, ok := dateAt(untils, i); ok {
			d.ValidUntil = &until
		}
		out = append(out, d)
	}
	return out
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

func stringAt(list []any, i int, fallback string) string {
	if i >= len(list) || list[i] == nil {
		return fallback
	}
	s, ok := list[i].(string)
	if !ok {
		return fallback
	}
	return s
}

func subjectType(s string) string {
	switch s {
	case SubjectTypeCitizen, SubjectTypeBusiness:
		return s
	default:
		return SubjectTypeUnknown
	}
}

// permissionsAt reads one subject's capability tags. A missing or malformed
// entry yields an empty list.
func permissionsAt(list []any, i int) []string {
	out := []string{}
	if i >= len(list) {
		return out
	}
	entry, ok := list[i].([]any)
	if !ok {
		return out
	}
	for _, p := range entry {
		if s, ok := p.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func dateAt(list []any, i int) (time.Time, bool) {
	if i >= len(list) {
		return time.Time{}, false
	}
	switch t := list[i].(type) {
	case time.Time:
		return t, true
	case string:
		d, err := time.Parse("2006-01-02", t)
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	default:
		return time.Time{}, false
	}
}
