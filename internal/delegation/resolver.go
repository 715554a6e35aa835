package delegation

import (
	"context"
	"log/slog"
	"time"

	"machinelaw/internal/engine"
	"machinelaw/internal/lawspec"
)

// contextTTL bounds how long a cached delegation context may serve before the
// provider laws are consulted again.
const contextTTL = 15 * time.Minute

// Catalog lists the specifications carrying a discoverability tag, as in
// force at the reference date.
type Catalog interface {
	DiscoverableSpecs(tag string, reference time.Time) []*lawspec.Specification
}

// ruleEvaluator is the slice of the rule engine the resolver needs.
type ruleEvaluator interface {
	Evaluate(ctx context.Context, spec *lawspec.Specification, decisionID string, params map[string]any) (*engine.EvaluationResult, error)
}

// ContextStore caches delegation contexts per citizen. Implementations key by
// a pseudonymized subject, never the raw BSN.
type ContextStore interface {
	Get(ctx context.Context, bsn string) (DelegationContext, bool, error)
	Set(ctx context.Context, bsn string, dc DelegationContext, ttl time.Duration) error
}

// Resolver discovers delegation-provider laws and materializes grants.
type Resolver struct {
	catalog   Catalog
	evaluator ruleEvaluator
	store     ContextStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewResolver wires a resolver. The store may be nil, disabling caching; a
// nil logger discards.
func NewResolver(catalog Catalog, evaluator ruleEvaluator, store ContextStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		catalog:   catalog,
		evaluator: evaluator,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// DelegationsForUser evaluates every delegation-provider law for one citizen.
// A failing provider law contributes zero delegations and never blocks the
// others.
func (r *Resolver) DelegationsForUser(ctx context.Context, bsn string, reference time.Time) []Delegation {
	var all []Delegation
	for _, spec := range r.catalog.DiscoverableSpecs(DiscoverableTag, reference) {
		grants, err := r.delegationsFromLaw(ctx, spec, bsn, reference)
		if err != nil {
			r.logger.WarnContext(ctx, "delegation provider law failed",
				"law", spec.Name,
				"service", spec.Service,
				"error", err,
			)
			continue
		}
		all = append(all, grants...)
	}
	return all
}

// delegationsFromLaw evaluates one provider law. The gate output decides
// whether the parallel arrays are read at all.
func (r *Resolver) delegationsFromLaw(ctx context.Context, spec *lawspec.Specification, bsn string, reference time.Time) ([]Delegation, error) {
	params := map[string]any{
		"BSN":            bsn,
		"reference_date": reference.Format("2006-01-02"),
	}

	outputs, err := r.providerOutputs(ctx, spec, params)
	if err != nil {
		return nil, err
	}
	if gate, _ := outputs[keyHasDelegations].(bool); !gate {
		return nil, nil
	}
	return parseDelegations(outputs), nil
}

// providerOutputs collects the contract outputs. Laws either expose the gate
// and arrays as separate decision outputs, or one decision whose result is a
// map carrying all keys.
func (r *Resolver) providerOutputs(ctx context.Context, spec *lawspec.Specification, params map[string]any) (map[string]any, error) {
	if gate, ok := spec.DecisionByOutput(keyHasDelegations); ok {
		outputs := map[string]any{}
		result, err := r.evaluator.Evaluate(ctx, spec, gate.ID, params)
		if err != nil {
			return nil, err
		}
		outputs[keyHasDelegations] = result.Output[keyHasDelegations]

		for _, key := range []string{
			keySubjectIDs, keySubjectNames, keySubjectTypes,
			keyTypes, keyPermissions, keyValidFrom, keyValidUntil,
		} {
			d, ok := spec.DecisionByOutput(key)
			if !ok {
				continue
			}
			result, err := r.evaluator.Evaluate(ctx, spec, d.ID, params)
			if err != nil {
				return nil, err
			}
			outputs[key] = result.Output[key]
		}
		return outputs, nil
	}

	// Map-shaped contract: a single decision returning all keys at once.
	if d, ok := spec.DecisionByOutput("delegaties"); ok {
		result, err := r.evaluator.Evaluate(ctx, spec, d.ID, params)
		if err != nil {
			return nil, err
		}
		if m, ok := result.Output["delegaties"].(map[string]any); ok {
			return m, nil
		}
	}
	return map[string]any{}, nil
}

// DelegationContextFor returns the citizen's delegation context, served from
// cache when fresh.
func (r *Resolver) DelegationContextFor(ctx context.Context, bsn string, reference time.Time) (DelegationContext, error) {
	if r.store != nil {
		cached, ok, err := r.store.Get(ctx, bsn)
		if err != nil {
			r.logger.WarnContext(ctx, "delegation context cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	dc := DelegationContext{
		Delegations: r.DelegationsForUser(ctx, bsn, reference),
		RetrievedAt: r.now().UTC(),
	}

	if r.store != nil {
		if err := r.store.Set(ctx, bsn, dc, contextTTL); err != nil {
			r.logger.WarnContext(ctx, "delegation context cache write failed", "error", err)
		}
	}
	return dc, nil
}

// CanActOnBehalf reports whether the citizen holds a currently valid grant
// for the subject.
func (r *Resolver) CanActOnBehalf(ctx context.Context, bsn, subjectID string, reference time.Time) (bool, error) {
	dc, err := r.DelegationContextFor(ctx, bsn, reference)
	if err != nil {
		return false, err
	}
	_, ok := dc.ForSubject(subjectID, reference)
	return ok, nil
}
