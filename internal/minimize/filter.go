package minimize

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"machinelaw/internal/lawspec"
	"machinelaw/internal/minimize/metrics"
	"machinelaw/internal/sensitivity"
	"machinelaw/internal/tracking"
)

const collectTimeout = 5 * time.Second

// Registers serving the minimal-data fields.
const (
	servicePersons    = "RvIG"
	serviceEmployment = "UWV"
)

// AccessRecorder receives one notification per classified field access.
// *tracking.Session satisfies it.
type AccessRecorder interface {
	RecordFieldAccess(field, service, law string, sensitivity int)
	RecordEarlyElimination(law, service, reason string)
}

// Filter collects minimal data and partitions candidate laws into survivors
// and early eliminations.
type Filter struct {
	provider   DemographicsProvider
	classifier *sensitivity.Classifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewFilter wires a filter to its demographics provider. Metrics may be nil
// in tests; a nil logger discards.
func NewFilter(provider DemographicsProvider, classifier *sensitivity.Classifier, m *metrics.Metrics, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Filter{
		provider:   provider,
		classifier: classifier,
		metrics:    m,
		logger:     logger,
	}
}

// MinimalData gathers the low-sensitivity snapshot in parallel. A failed
// field is logged and left unset, never fatal: elimination checks that need
// it simply do not fire, which errs on the side of evaluating the law.
func (f *Filter) MinimalData(ctx context.Context, bsn string, recorder AccessRecorder) sensitivity.MinimalData {
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	var data sensitivity.MinimalData

	g.Go(func() error {
		bracket, ok := collectField(ctx, f, "age_bracket", servicePersons, 2, recorder, func(ctx context.Context) (string, error) {
			return f.provider.AgeBracket(ctx, bsn)
		})
		if ok {
			data.AgeBracket = bracket
		}
		return nil
	})

	g.Go(func() error {
		hasPartner, ok := collectField(ctx, f, "has_partner", servicePersons, 1, recorder, func(ctx context.Context) (bool, error) {
			return f.provider.HasPartner(ctx, bsn)
		})
		if ok {
			data.HasPartner = &hasPartner
		}
		return nil
	})

	g.Go(func() error {
		hasChildren, ok := collectField(ctx, f, "has_children", servicePersons, 1, recorder, func(ctx context.Context) (bool, error) {
			return f.provider.HasChildren(ctx, bsn)
		})
		if ok {
			data.HasChildren = &hasChildren
		}
		return nil
	})

	g.Go(func() error {
		employed, ok := collectField(ctx, f, "is_employed", serviceEmployment, 2, recorder, func(ctx context.Context) (bool, error) {
			return f.provider.IsEmployed(ctx, bsn)
		})
		if ok {
			data.IsEmployed = &employed
		}
		return nil
	})

	g.Go(func() error {
		country, ok := collectField(ctx, f, "residence_country", servicePersons, 3, recorder, func(ctx context.Context) (string, error) {
			return f.provider.ResidenceCountry(ctx, bsn)
		})
		if ok {
			data.ResidenceCountry = country
		}
		return nil
	})

	// The goroutines never return errors; Wait only synchronises them. Each
	// closure writes a distinct field, so no locking is needed.
	_ = g.Wait()
	return data
}

// collect fetches one field, records the access on success and the failure on
// error.
func collectField[T any](ctx context.Context, f *Filter, field, service string, level int, recorder AccessRecorder, fetch func(context.Context) (T, error)) (T, bool) {
	start := time.Now()
	value, err := fetch(ctx)
	f.metrics.ObserveCollectLatency(field, time.Since(start))

	if err != nil {
		f.metrics.IncrementCollectFailure(field)
		f.logger.WarnContext(ctx, "minimal data field unavailable",
			"field", field,
			"service", service,
			"error", err,
		)
		var zero T
		return zero, false
	}

	if recorder != nil {
		recorder.RecordFieldAccess(field, service, "", level)
	}
	return value, true
}

// FilterResult partitions candidate laws, preserving input order within both
// halves.
type FilterResult struct {
	Applicable []*lawspec.Specification
	Eliminated []Elimination
}

// Elimination pairs an eliminated law with the filter that ruled it out.
type Elimination struct {
	Spec   *lawspec.Specification
	Reason string
}

// FilterApplicableLaws runs the early-elimination check over the candidates.
// A law is eliminated only when minimal data proves it inapplicable; unknown
// fields keep the law in play.
func (f *Filter) FilterApplicableLaws(ctx context.Context, candidates []*lawspec.Specification, data sensitivity.MinimalData, recorder AccessRecorder) FilterResult {
	result := FilterResult{}
	for _, spec := range candidates {
		if f.classifier.CanEliminateEarly(spec, data) {
			reason := eliminationReason(spec, data)
			result.Eliminated = append(result.Eliminated, Elimination{Spec: spec, Reason: reason})
			if recorder != nil {
				recorder.RecordEarlyElimination(spec.Name, spec.Service, reason)
			}
			f.metrics.IncrementOutcome(spec.Name, "eliminated")
			continue
		}
		result.Applicable = append(result.Applicable, spec)
		f.metrics.IncrementOutcome(spec.Name, "survived")
	}

	if total := len(candidates); total > 0 {
		f.logger.InfoContext(ctx, "early elimination filter applied",
			"candidates", total,
			"eliminated", len(result.Eliminated),
			"elimination_rate", float64(len(result.Eliminated))/float64(total)*100,
		)
	}
	return result
}

// eliminationReason labels which filter ruled the law out, checked in the
// same order the elimination test applies them.
func eliminationReason(spec *lawspec.Specification, data sensitivity.MinimalData) string {
	hints := spec.Minimization
	if hints == nil {
		return ""
	}
	if age, ok := data.ApproxAge(); ok {
		if hints.MinAge != nil && age < *hints.MinAge {
			return tracking.ReasonAgeFilter
		}
		if hints.MaxAge != nil && age > *hints.MaxAge {
			return tracking.ReasonAgeFilter
		}
	}
	if hints.RequiresPartner && data.HasPartner != nil && !*data.HasPartner {
		return tracking.ReasonPartnerFilter
	}
	if hints.RequiresChildren && data.HasChildren != nil && !*data.HasChildren {
		return tracking.ReasonChildrenFilter
	}
	return tracking.ReasonAgeFilter
}
