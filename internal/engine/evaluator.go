// Package engine evaluates declarative law specifications. Each evaluation
// is a pure function of (specification, decision id, parameter bundle): no
// wall clock, randomness or cross-call state may influence the output, so
// repeated evaluation of identical inputs is byte-identical. The wider
// system leans on this for simulation reproducibility.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"machinelaw/internal/engine/metrics"
	"machinelaw/internal/lawspec"
)

// DataSource resolves a bound source reference into a value. Implementations
// report "not found" separately from lookup failures; the engine owns neither
// timeouts nor retries, a hanging lookup is the collaborator's failure mode.
type DataSource interface {
	Lookup(ctx context.Context, ref lawspec.SourceReference) (value any, found bool, err error)
}

// Evaluator evaluates decisions against loaded specifications. It holds no
// cross-call state; concurrent evaluations need no locking as long as the
// data source itself is safe for concurrent use.
type Evaluator struct {
	source  DataSource
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New constructs an evaluator. A nil source means all source lookups resolve
// as "not found"; metrics may be nil in tests; a nil logger discards.
func New(source DataSource, m *metrics.Metrics, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{source: source, metrics: m, logger: logger}
}

// Evaluate runs one named decision against a parameter bundle and returns its
// output together with the full trace. The result is owned by the caller.
func (e *Evaluator) Evaluate(ctx context.Context, spec *lawspec.Specification, decisionID string, params map[string]any) (*EvaluationResult, error) {
	decision, ok := spec.DecisionByID(decisionID)
	if !ok {
		return nil, fmt.Errorf("decision %q not found in %s", decisionID, spec.Name)
	}

	r := &run{
		ctx:     ctx,
		eval:    e,
		spec:    spec,
		params:  params,
		results: make(map[string]any),
		done:    make(map[string]bool),
	}

	root := newPathNode(NodeEvaluation, decision.ID, map[string]any{
		"decision_id": decision.ID,
		"law":         spec.Name,
		"service":     spec.Service,
	})

	value := r.evaluateDecision(decision, root)
	root.Result = value

	result := &EvaluationResult{
		Output:          map[string]any{},
		RequirementsMet: !r.missing,
		MissingRequired: r.missing,
		Errors:          r.errors,
		Path:            root,
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	if value != nil {
		result.Output[decision.Output] = value
	}
	return result, nil
}

// run carries the state of a single evaluation. It is never shared across
// calls; decision results are memoised only within the run.
type run struct {
	ctx     context.Context
	eval    *Evaluator
	spec    *lawspec.Specification
	params  map[string]any
	results map[string]any
	done    map[string]bool
	errors  []string
	missing bool
}

func (r *run) addError(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

// evaluateDecision evaluates one decision, memoised within this run, and
// appends its trace node to parent.
func (r *run) evaluateDecision(d *lawspec.Decision, parent *PathNode) any {
	if r.done[d.ID] {
		return r.results[d.ID]
	}

	node := newPathNode(NodeDecision, d.ID, map[string]any{"decision_id": d.ID})
	parent.addChild(node)

	value := r.evaluateExpression(d, node)
	node.Result = value

	r.done[d.ID] = true
	r.results[d.ID] = value
	if d.Output != d.ID {
		r.results[d.Output] = value
	}
	return value
}

func (r *run) evaluateExpression(d *lawspec.Decision, node *PathNode) any {
	expr := d.Expression
	switch {
	case expr.Literal != nil:
		child := newPathNode(NodeLiteral, d.Output, nil)
		child.Result = expr.Literal.Value
		node.addChild(child)
		return expr.Literal.Value

	case expr.Table != nil:
		return r.evaluateTable(d, expr.Table, node)

	case len(expr.Sum) > 0:
		return r.evaluateSum(d, expr.Sum, node)

	case expr.Age != nil:
		return r.evaluateAge(d, expr.Age, node)

	case expr.Call != nil:
		return r.evaluateCall(d, expr.Call, node)

	default:
		r.addError("decision %q has no expression", d.ID)
		return nil
	}
}

// evaluateTable walks the rules in declaration order and takes the output of
// the first rule whose conditions all match. Later rules may be written
// assuming earlier ones already excluded their cases, so first-match-wins is
// part of the contract, not an optimisation.
func (r *run) evaluateTable(d *lawspec.Decision, table *lawspec.DecisionTable, node *PathNode) any {
	for i, rule := range table.Rules {
		matched := true
		for _, cond := range rule.When {
			operand := r.resolveOperand(cond.Name, node)
			if !matchCondition(operand, cond.Op, cond.Value) {
				matched = false
				break
			}
		}
		if matched {
			child := newPathNode(NodeRule, fmt.Sprintf("%s[%d]", d.ID, i), map[string]any{
				"rule_index": i,
			})
			child.Result = rule.Then.Value
			node.addChild(child)
			return rule.Then.Value
		}
	}
	return nil
}

// evaluateSum adds operands as integer cents. Null or absent operands count
// as zero: absence of a sub-amount means "no amount from that source".
func (r *run) evaluateSum(d *lawspec.Decision, operands []string, node *PathNode) any {
	var total int64
	for _, name := range operands {
		v := r.resolveOperand(name, node)
		cents, err := asCents(v)
		if err != nil {
			r.addError("decision %q: operand %q: %v", d.ID, name, err)
			continue
		}
		total += cents
	}
	return total
}

func (r *run) evaluateAge(d *lawspec.Decision, age *lawspec.AgeExpression, node *PathNode) any {
	birthRaw := r.resolveOperand(age.BirthDate, node)
	if birthRaw == nil {
		r.missing = true
		return nil
	}
	birth, err := asDate(birthRaw)
	if err != nil {
		r.addError("decision %q: birth date: %v", d.ID, err)
		return nil
	}

	refName := age.ReferenceDate
	if refName == "" {
		refName = "reference_date"
	}
	refRaw := r.resolveOperand(refName, node)
	if refRaw == nil {
		r.missing = true
		return nil
	}
	reference, err := asDate(refRaw)
	if err != nil {
		r.addError("decision %q: reference date: %v", d.ID, err)
		return nil
	}

	return int64(wholeYears(birth, reference))
}

// evaluateCall resolves the referenced decision, in this specification or an
// imported one, and evaluates it with the mapped arguments. Results are not
// memoised across calls with different argument bindings.
func (r *run) evaluateCall(d *lawspec.Decision, call *lawspec.Invocation, node *PathNode) any {
	target := r.spec
	if call.Namespace != "" {
		imported, ok := r.spec.Imported(call.Namespace)
		if !ok {
			r.addError("decision %q: unresolved import %q", d.ID, call.Namespace)
			return nil
		}
		target = imported
	}

	callee, ok := target.DecisionByID(call.Decision)
	if !ok {
		r.addError("decision %q: calls unknown decision %q", d.ID, call.Decision)
		return nil
	}

	// Calls without arguments in the same specification share this run's
	// context; everything else evaluates in a fresh sub-run with only the
	// bound arguments visible.
	if call.Namespace == "" && len(call.Args) == 0 {
		return r.evaluateDecision(callee, node)
	}

	subParams := make(map[string]any, len(call.Args))
	for calleeName, operand := range call.Args {
		subParams[calleeName] = r.resolveOperand(operand, node)
	}

	sub := &run{
		ctx:     r.ctx,
		eval:    r.eval,
		spec:    target,
		params:  subParams,
		results: make(map[string]any),
		done:    make(map[string]bool),
	}
	value := sub.evaluateDecision(callee, node)

	r.errors = append(r.errors, sub.errors...)
	if sub.missing {
		r.missing = true
	}
	return value
}

// resolveOperand binds a name to a value: caller parameters first, then
// decision outputs (evaluated on demand - the loader guaranteed acyclicity),
// then declared inputs and sources through the data-source port. Unresolvable
// names yield nil; required ones additionally mark the run as missing input.
func (r *run) resolveOperand(name string, node *PathNode) any {
	if v, ok := r.params[name]; ok {
		return lawspec.NormalizeValue(v)
	}
	if r.done[name] {
		return r.results[name]
	}
	if v, ok := r.results[name]; ok {
		return v
	}
	if dep, ok := r.spec.DecisionByOutput(name); ok {
		return r.evaluateDecision(dep, node)
	}
	if dep, ok := r.spec.DecisionByID(name); ok {
		return r.evaluateDecision(dep, node)
	}

	field, ok := r.spec.InputByName(name)
	if !ok {
		return nil
	}
	if field.SourceReference == nil {
		if field.Required {
			r.missing = true
		}
		return nil
	}

	bound := field.SourceReference.Bind(r.params)
	child := newPathNode(NodeSource, name, map[string]any{
		"table": bound.Table,
		"field": bound.Field,
	})
	node.addChild(child)

	if r.eval.source == nil {
		if field.Required {
			r.missing = true
		}
		return nil
	}

	start := time.Now()
	value, found, err := r.eval.source.Lookup(r.ctx, bound)
	r.eval.metrics.ObserveSourceLatency(bound.Table, time.Since(start))
	if err != nil {
		r.addError("source %s.%s: %v", bound.Table, bound.Field, err)
		if field.Required {
			r.missing = true
		}
		return nil
	}
	if !found {
		if field.Required {
			r.missing = true
		}
		return nil
	}

	value = lawspec.NormalizeValue(value)
	child.Result = value
	r.results[name] = value
	return value
}
