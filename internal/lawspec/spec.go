// Package lawspec defines the declarative law specification model and its
// YAML loader. A specification is immutable after load; the engine evaluates
// decisions against it without mutating shared state.
package lawspec

import (
	"fmt"
	"time"
)

// Specification is a named, versioned, service-scoped declarative ruleset.
// Multiple versions of the same law coexist as distinct specifications keyed
// by their valid-from date.
type Specification struct {
	UUID         string            `yaml:"uuid"`
	Name         string            `yaml:"name"`
	Law          string            `yaml:"law"`
	Service      string            `yaml:"service"`
	Discoverable string            `yaml:"discoverable"`
	ValidFrom    time.Time         `yaml:"valid_from"`
	Minimization *DataMinimization `yaml:"data_minimization"`
	Properties   Properties        `yaml:"properties"`
	Imports      []Import          `yaml:"imports"`
	Decisions    []*Decision       `yaml:"decisions"`

	// imported specifications by namespace, linked by the loader.
	imported map[string]*Specification
}

// DataMinimization carries the hints used for early elimination. All fields
// are optional; a law without hints can never be eliminated early.
type DataMinimization struct {
	MinAge             *int `yaml:"min_age"`
	MaxAge             *int `yaml:"max_age"`
	RequiresPartner    bool `yaml:"requires_partner"`
	RequiresChildren   bool `yaml:"requires_children"`
	RequiresEmployment bool `yaml:"requires_employment"`
}

// Properties groups the declared data requirements of a law.
type Properties struct {
	Parameters []FieldSpec `yaml:"parameters"`
	Sources    []FieldSpec `yaml:"sources"`
	Input      []FieldSpec `yaml:"input"`
}

// FieldSpec declares a single parameter, source or input field.
type FieldSpec struct {
	Name            string           `yaml:"name"`
	Type            string           `yaml:"type"`
	Description     string           `yaml:"description"`
	Required        bool             `yaml:"required"`
	DataSensitivity *int             `yaml:"data_sensitivity"`
	SourceReference *SourceReference `yaml:"source_reference"`
}

// Import references another specification by namespace. The loader resolves
// the location relative to the importing file and links the parsed result.
type Import struct {
	Namespace string `yaml:"namespace"`
	Location  string `yaml:"location"`
}

// Decision is a single named computation within a specification. Its
// expression is a closed variant: exactly one of the expression kinds is set.
type Decision struct {
	ID         string
	Output     string
	Expression Expression
}

// Imported returns the linked specification for a namespace, if any.
func (s *Specification) Imported(namespace string) (*Specification, bool) {
	spec, ok := s.imported[namespace]
	return spec, ok
}

// DecisionByID returns the decision with the given id.
func (s *Specification) DecisionByID(id string) (*Decision, bool) {
	for _, d := range s.Decisions {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// DecisionByOutput returns the decision producing the given output variable.
func (s *Specification) DecisionByOutput(name string) (*Decision, bool) {
	for _, d := range s.Decisions {
		if d.Output == name {
			return d, true
		}
	}
	return nil, false
}

// InputByName returns the declared input or source field with the given name.
// Sources are checked after inputs so explicit inputs win on name clashes.
func (s *Specification) InputByName(name string) (FieldSpec, bool) {
	for _, f := range s.Properties.Input {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range s.Properties.Sources {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// ParameterByName returns the declared parameter with the given name.
func (s *Specification) ParameterByName(name string) (FieldSpec, bool) {
	for _, f := range s.Properties.Parameters {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// validate checks structural invariants that must hold after parsing.
func (s *Specification) validate() error {
	if s.Name == "" {
		return fmt.Errorf("specification has no name")
	}
	seen := make(map[string]struct{}, len(s.Decisions))
	for _, d := range s.Decisions {
		if d.ID == "" {
			return fmt.Errorf("%s: decision without id", s.Name)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%s: duplicate decision id %q", s.Name, d.ID)
		}
		seen[d.ID] = struct{}{}
		if err := d.Expression.validate(); err != nil {
			return fmt.Errorf("%s: decision %q: %w", s.Name, d.ID, err)
		}
	}
	return nil
}
