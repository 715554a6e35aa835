package lawspec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Expression is the closed set of decision expression kinds. Exactly one
// field is non-zero; the loader rejects anything else.
type Expression struct {
	// Literal returns its value verbatim. Monetary amounts are integer cents.
	Literal *Literal
	// Table is a decision table evaluated first-match-wins in rule order.
	Table *DecisionTable
	// Call invokes another decision, possibly in an imported specification.
	Call *Invocation
	// Sum adds the named operands; null operands count as zero.
	Sum []string
	// Age computes whole elapsed years between a birth date and the
	// reference date.
	Age *AgeExpression
}

// Literal wraps an arbitrary YAML value. Integers are normalised to int64 so
// monetary cents keep full precision.
type Literal struct {
	Value any
}

// UnmarshalYAML decodes any scalar, sequence or mapping node.
func (l *Literal) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	l.Value = NormalizeValue(v)
	return nil
}

// DecisionTable is an ordered list of rules. The first rule whose conditions
// all match wins; later rules may assume earlier ones excluded their cases.
type DecisionTable struct {
	Rules []TableRule `yaml:"rules"`
}

// TableRule pairs an ordered condition list with an output value.
type TableRule struct {
	When []Condition
	Then Literal
}

// Condition tests one named operand. Op is one of eq, ne, lt, lte, gt, gte,
// in. A condition against a null or absent operand evaluates to "no match",
// never to an error.
type Condition struct {
	Name  string
	Op    string
	Value any
}

// Invocation references another decision. Args maps the callee's parameter
// names to operand names resolved in the caller's context.
type Invocation struct {
	Decision  string            `yaml:"decision"`
	Namespace string            `yaml:"namespace"`
	Args      map[string]string `yaml:"args"`
}

// AgeExpression names the operands for the whole-years age computation. A
// birthday falling on the reference date counts as having occurred.
type AgeExpression struct {
	BirthDate     string `yaml:"birth_date"`
	ReferenceDate string `yaml:"reference_date"`
}

var conditionOps = map[string]struct{}{
	"eq": {}, "ne": {}, "lt": {}, "lte": {}, "gt": {}, "gte": {}, "in": {},
}

// UnmarshalYAML decodes a decision mapping with its expression keys flat on
// the node (value, table, call, sum, age).
func (d *Decision) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ID     string         `yaml:"id"`
		Output string         `yaml:"output"`
		Value  *Literal       `yaml:"value"`
		Table  *DecisionTable `yaml:"table"`
		Call   *Invocation    `yaml:"call"`
		Sum    []string       `yaml:"sum"`
		Age    *AgeExpression `yaml:"age"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	d.ID = raw.ID
	d.Output = raw.Output
	if d.Output == "" {
		d.Output = raw.ID
	}
	d.Expression = Expression{
		Literal: raw.Value,
		Table:   raw.Table,
		Call:    raw.Call,
		Sum:     raw.Sum,
		Age:     raw.Age,
	}
	return nil
}

// UnmarshalYAML decodes a rule, keeping the declared condition order. Mapping
// order matters for trace reproducibility, so conditions are read straight
// from the node contents rather than through a Go map.
func (r *TableRule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("rule is not a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		switch key {
		case "when":
			conds, err := decodeConditions(val)
			if err != nil {
				return err
			}
			r.When = conds
		case "then":
			if err := val.Decode(&r.Then); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown rule key %q", key)
		}
	}
	return nil
}

func decodeConditions(node *yaml.Node) ([]Condition, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("when is not a mapping")
	}
	conds := make([]Condition, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		val := node.Content[i+1]
		cond, err := decodeCondition(name, val)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", name, err)
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func decodeCondition(name string, node *yaml.Node) (Condition, error) {
	if node.Kind == yaml.MappingNode {
		if len(node.Content) != 2 {
			return Condition{}, fmt.Errorf("expected a single operator")
		}
		op := node.Content[0].Value
		if _, ok := conditionOps[op]; !ok {
			return Condition{}, fmt.Errorf("unknown operator %q", op)
		}
		var v any
		if err := node.Content[1].Decode(&v); err != nil {
			return Condition{}, err
		}
		return Condition{Name: name, Op: op, Value: NormalizeValue(v)}, nil
	}

	// Scalar or sequence shorthand for equality.
	var v any
	if err := node.Decode(&v); err != nil {
		return Condition{}, err
	}
	return Condition{Name: name, Op: "eq", Value: NormalizeValue(v)}, nil
}

// validate checks that exactly one expression kind is set.
func (e Expression) validate() error {
	n := 0
	if e.Literal != nil {
		n++
	}
	if e.Table != nil {
		n++
	}
	if e.Call != nil {
		n++
	}
	if len(e.Sum) > 0 {
		n++
	}
	if e.Age != nil {
		n++
	}
	switch n {
	case 0:
		return fmt.Errorf("no expression (expected one of value, table, call, sum, age)")
	case 1:
	default:
		return fmt.Errorf("multiple expressions on one decision")
	}
	if e.Call != nil && e.Call.Decision == "" {
		return fmt.Errorf("call without decision")
	}
	if e.Age != nil && e.Age.BirthDate == "" {
		return fmt.Errorf("age without birth_date operand")
	}
	if e.Table != nil && len(e.Table.Rules) == 0 {
		return fmt.Errorf("table without rules")
	}
	return nil
}

// NormalizeValue converts decoded YAML values to the engine's canonical
// representation: int64 for integers, recursively normalised containers.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint64:
		return int64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NormalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = NormalizeValue(e)
		}
		return out
	default:
		return v
	}
}
