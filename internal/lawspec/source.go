package lawspec

import "fmt"

// SourceReference points at an external data table and field, parameterised
// by selector key/value pairs. It is a pure value object; resolving it against
// live data is the data-source layer's responsibility.
type SourceReference struct {
	Table    string          `yaml:"table"`
	Field    string          `yaml:"field"`
	SelectOn []SelectOnField `yaml:"select_on"`
}

// SelectOnField describes one selector used to parameterise a source lookup.
// Value may be a placeholder such as "$BSN" that is bound at evaluation time.
type SelectOnField struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Value       string `yaml:"value"`
}

// SourceReferenceFromMap parses a specification fragment into a
// SourceReference. A missing select_on list yields an empty, non-nil slice so
// callers can always iterate it.
func SourceReferenceFromMap(data map[string]any) (SourceReference, error) {
	table, ok := data["table"].(string)
	if !ok || table == "" {
		return SourceReference{}, fmt.Errorf("source reference missing table")
	}
	field, ok := data["field"].(string)
	if !ok || field == "" {
		return SourceReference{}, fmt.Errorf("source reference missing field")
	}

	ref := SourceReference{Table: table, Field: field, SelectOn: []SelectOnField{}}

	raw, ok := data["select_on"]
	if !ok {
		return ref, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return SourceReference{}, fmt.Errorf("select_on is not a list")
	}
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return SourceReference{}, fmt.Errorf("select_on[%d] is not a mapping", i)
		}
		sel, err := selectOnFromMap(entry)
		if err != nil {
			return SourceReference{}, fmt.Errorf("select_on[%d]: %w", i, err)
		}
		ref.SelectOn = append(ref.SelectOn, sel)
	}
	return ref, nil
}

func selectOnFromMap(entry map[string]any) (SelectOnField, error) {
	var sel SelectOnField
	var ok bool
	if sel.Name, ok = entry["name"].(string); !ok {
		return sel, fmt.Errorf("missing name")
	}
	if sel.Description, ok = entry["description"].(string); !ok {
		return sel, fmt.Errorf("missing description")
	}
	if sel.Type, ok = entry["type"].(string); !ok {
		return sel, fmt.Errorf("missing type")
	}
	if sel.Value, ok = entry["value"].(string); !ok {
		return sel, fmt.Errorf("missing value")
	}
	return sel, nil
}

// Bind returns a copy of the reference with selector placeholders ("$NAME")
// replaced by the corresponding parameter values. Unknown placeholders are
// left untouched so the data-source layer can reject them explicitly.
func (r SourceReference) Bind(params map[string]any) SourceReference {
	bound := SourceReference{Table: r.Table, Field: r.Field, SelectOn: make([]SelectOnField, len(r.SelectOn))}
	copy(bound.SelectOn, r.SelectOn)
	for i, sel := range bound.SelectOn {
		if len(sel.Value) > 1 && sel.Value[0] == '$' {
			if v, ok := params[sel.Value[1:]]; ok {
				bound.SelectOn[i].Value = fmt.Sprintf("%v", v)
			}
		}
	}
	return bound
}
