package engine

import (
	"fmt"
	"time"
)

// asNumber coerces a value to float64 for comparisons. Integer values keep
// exact precision elsewhere; float coercion is only used to order operands.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}

// asCents coerces a value to int64, treating nil as zero. Absence of a
// sub-amount means "no amount from that source", not "unknown".
func asCents(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		// YAML and JSON round-trips may widen integers; only exact values
		// are accepted so monetary amounts never drift.
		if t == float64(int64(t)) {
			return int64(t), nil
		}
		return 0, fmt.Errorf("non-integer amount %v", t)
	default:
		return 0, fmt.Errorf("non-numeric operand %T", v)
	}
}

// valuesEqual compares scalars, letting int64 and float64 meet in the middle.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := asNumber(a); ok {
		if bf, ok := asNumber(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

// matchCondition applies op to an operand value. A nil operand never matches;
// incomparable values are a no-match, not an error, so laws with incomplete
// input degrade to "requirements not met" instead of crashing.
func matchCondition(operand any, op string, expected any) bool {
	if operand == nil {
		return false
	}
	switch op {
	case "eq":
		return valuesEqual(operand, expected)
	case "ne":
		return !valuesEqual(operand, expected)
	case "in":
		list, ok := expected.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if valuesEqual(operand, item) {
				return true
			}
		}
		return false
	case "lt", "lte", "gt", "gte":
		a, aok := asNumber(operand)
		b, bok := asNumber(expected)
		if !aok || !bok {
			return false
		}
		switch op {
		case "lt":
			return a < b
		case "lte":
			return a <= b
		case "gt":
			return a > b
		default:
			return a >= b
		}
	default:
		return false
	}
}

// asDate coerces a value to a calendar date. Strings must be ISO-8601 dates,
// the only date format crossing the engine boundary.
func asDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		d, err := time.Parse("2006-01-02", t)
		if err != nil {
			return time.Time{}, fmt.Errorf("not an ISO date: %q", t)
		}
		return d, nil
	default:
		return time.Time{}, fmt.Errorf("not a date: %T", v)
	}
}

// wholeYears computes age in whole elapsed years. A birthday falling exactly
// on the reference date counts as having occurred.
func wholeYears(birth, reference time.Time) int {
	years := reference.Year() - birth.Year()
	if reference.Month() < birth.Month() ||
		(reference.Month() == birth.Month() && reference.Day() < birth.Day()) {
		years--
	}
	return years
}
