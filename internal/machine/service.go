package machine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"machinelaw/internal/audit"
	"machinelaw/internal/delegation"
	"machinelaw/internal/engine"
	enginemetrics "machinelaw/internal/engine/metrics"
	"machinelaw/internal/lawspec"
	"machinelaw/internal/minimize"
	"machinelaw/internal/sensitivity"
	"machinelaw/internal/tracking"
)

var tracer = otel.Tracer("machinelaw/machine")

// benefitOutput is the conventional primary output of a benefit law. Laws
// without it are evaluated through their first decision.
const benefitOutput = "is_gerechtigd"

// Service runs the full pipeline for one citizen: minimal-data collection,
// early elimination, evaluation of the surviving laws and the tracking and
// audit trail around them.
type Service struct {
	catalog    *Catalog
	classifier *sensitivity.Classifier
	filter     *minimize.Filter
	evaluator  *engine.Evaluator
	metrics    *enginemetrics.Metrics
	tracker    *tracking.Aggregator
	resolver   *delegation.Resolver
	hasher     *tracking.Pseudonymizer
	publisher  *audit.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the pipeline. Metrics may be nil in tests; a nil logger
// discards.
func NewService(
	catalog *Catalog,
	classifier *sensitivity.Classifier,
	filter *minimize.Filter,
	evaluator *engine.Evaluator,
	m *enginemetrics.Metrics,
	tracker *tracking.Aggregator,
	resolver *delegation.Resolver,
	hasher *tracking.Pseudonymizer,
	publisher *audit.Publisher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		catalog:    catalog,
		classifier: classifier,
		filter:     filter,
		evaluator:  evaluator,
		metrics:    m,
		tracker:    tracker,
		resolver:   resolver,
		hasher:     hasher,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// LawResult is the outcome of one full evaluation within a profile scan.
type LawResult struct {
	Law             string         `json:"law"`
	Service         string         `json:"service"`
	Output          map[string]any `json:"output"`
	RequirementsMet bool           `json:"requirements_met"`
	MissingRequired bool           `json:"missing_required"`
	Errors          []string       `json:"errors"`
}

// EliminatedLaw names a law ruled out on minimal data.
type EliminatedLaw struct {
	Law     string `json:"law"`
	Service string `json:"service"`
	Reason  string `json:"reason"`
}

// ScanResult bundles a profile scan: everything evaluated, everything
// eliminated and the session metrics of the round.
type ScanResult struct {
	SessionID  string                  `json:"session_id"`
	Results    []LawResult             `json:"results"`
	Eliminated []EliminatedLaw         `json:"eliminated"`
	Session    tracking.SessionMetrics `json:"session"`
}

// ProfileScan evaluates every in-force law for one citizen. Laws provably
// inapplicable on minimal data are eliminated without touching their full
// data requirements; the rest are evaluated in catalog order.
func (s *Service) ProfileScan(ctx context.Context, bsn string, reference time.Time) (*ScanResult, error) {
	ctx, span := tracer.Start(ctx, "machine.ProfileScan")
	defer span.End()

	session := s.tracker.StartSession(bsn)
	span.SetAttributes(attribute.String("session_id", session.ID()))

	data := s.filter.MinimalData(ctx, bsn, session)
	candidates := s.catalog.InForce(reference)
	filtered := s.filter.FilterApplicableLaws(ctx, candidates, data, session)

	result := &ScanResult{
		SessionID:  session.ID(),
		Results:    []LawResult{},
		Eliminated: []EliminatedLaw{},
	}

	subjectHash := s.hasher.Hash(bsn)
	for _, elim := range filtered.Eliminated {
		result.Eliminated = append(result.Eliminated, EliminatedLaw{
			Law:     elim.Spec.Name,
			Service: elim.Spec.Service,
			Reason:  elim.Reason,
		})
		s.emit(ctx, audit.Event{
			Action:      audit.ActionLawEliminated,
			SessionID:   session.ID(),
			SubjectHash: subjectHash,
			Law:         elim.Spec.Name,
			Service:     elim.Spec.Service,
			Reason:      elim.Reason,
		})
	}

	params := map[string]any{
		"BSN":            bsn,
		"reference_date": reference.Format("2006-01-02"),
	}
	for _, spec := range filtered.Applicable {
		lawResult := s.evaluateSpec(ctx, spec, "", params)
		score := s.classifier.LawScore(spec)
		session.RecordLawExecution(spec.Name, spec.Service, lawResult.RequirementsMet, int(score.Max), lawResult.duration)
		result.Results = append(result.Results, lawResult.LawResult)

		s.emit(ctx, audit.Event{
			Action:      audit.ActionLawEvaluated,
			SessionID:   session.ID(),
			SubjectHash: subjectHash,
			Law:         spec.Name,
			Service:     spec.Service,
			Details: map[string]string{
				"requirements_met": fmt.Sprintf("%t", lawResult.RequirementsMet),
			},
		})
	}

	metrics, err := session.End(ctx)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	result.Session = metrics

	s.emit(ctx, audit.Event{
		Action:      audit.ActionSessionEnded,
		SessionID:   metrics.SessionID,
		SubjectHash: subjectHash,
		Details: map[string]string{
			"laws_total":       fmt.Sprintf("%d", metrics.LawsTotal),
			"laws_eliminated":  fmt.Sprintf("%d", metrics.LawsEliminated),
			"elimination_rate": fmt.Sprintf("%.2f", metrics.EliminationRate),
		},
	})
	return result, nil
}

// EvaluateRequest asks for one law evaluation outside a profile scan.
type EvaluateRequest struct {
	Law       string
	Decision  string
	Reference time.Time
	Params    map[string]any
}

// EvaluateLaw evaluates a single law, optionally a specific decision. The
// zero reference time means "now".
func (s *Service) EvaluateLaw(ctx context.Context, req EvaluateRequest) (*engine.EvaluationResult, error) {
	ctx, span := tracer.Start(ctx, "machine.EvaluateLaw",
		trace.WithAttributes(attribute.String("law", req.Law)),
	)
	defer span.End()

	reference := req.Reference
	if reference.IsZero() {
		reference = s.now().UTC()
	}
	spec, ok := s.catalog.SpecByName(req.Law, reference)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLaw, req.Law)
	}

	decisionID := req.Decision
	if decisionID == "" {
		decision, err := primaryDecision(spec)
		if err != nil {
			return nil, err
		}
		decisionID = decision.ID
	}

	lawResult := s.evaluateSpec(ctx, spec, decisionID, req.Params)
	if lawResult.err != nil {
		return nil, lawResult.err
	}
	return lawResult.raw, nil
}

// evaluatedLaw carries one evaluation with its bookkeeping.
type evaluatedLaw struct {
	LawResult
	raw      *engine.EvaluationResult
	duration time.Duration
	err      error
}

func (s *Service) evaluateSpec(ctx context.Context, spec *lawspec.Specification, decisionID string, params map[string]any) evaluatedLaw {
	if decisionID == "" {
		decision, err := primaryDecision(spec)
		if err != nil {
			return evaluatedLaw{
				LawResult: LawResult{Law: spec.Name, Service: spec.Service, Errors: []string{err.Error()}},
				err:       err,
			}
		}
		decisionID = decision.ID
	}

	start := s.now()
	result, err := s.evaluator.Evaluate(ctx, spec, decisionID, params)
	duration := time.Since(start)
	s.metrics.ObserveEvaluateLatency(spec.Name, duration)

	if err != nil {
		s.metrics.IncrementOutcome(spec.Name, "error")
		s.logger.ErrorContext(ctx, "law evaluation failed",
			"law", spec.Name,
			"decision", decisionID,
			"error", err,
		)
		return evaluatedLaw{
			LawResult: LawResult{Law: spec.Name, Service: spec.Service, Errors: []string{err.Error()}},
			duration:  duration,
			err:       err,
		}
	}

	switch {
	case len(result.Errors) > 0:
		s.metrics.IncrementOutcome(spec.Name, "error")
	case result.MissingRequired:
		s.metrics.IncrementOutcome(spec.Name, "missing_required")
	default:
		s.metrics.IncrementOutcome(spec.Name, "ok")
	}

	return evaluatedLaw{
		LawResult: LawResult{
			Law:             spec.Name,
			Service:         spec.Service,
			Output:          result.Output,
			RequirementsMet: result.RequirementsMet,
			MissingRequired: result.MissingRequired,
			Errors:          result.Errors,
		},
		raw:      result,
		duration: duration,
	}
}

// primaryDecision picks the decision a benefit check evaluates: the
// conventional eligibility output when present, otherwise the first decision.
func primaryDecision(spec *lawspec.Specification) (*lawspec.Decision, error) {
	if d, ok := spec.DecisionByOutput(benefitOutput); ok {
		return d, nil
	}
	if len(spec.Decisions) > 0 {
		return spec.Decisions[0], nil
	}
	return nil, fmt.Errorf("law %s has no decisions", spec.Name)
}

// DelegationsFor returns the citizen's delegation context.
func (s *Service) DelegationsFor(ctx context.Context, bsn string, reference time.Time) (delegation.DelegationContext, error) {
	ctx, span := tracer.Start(ctx, "machine.DelegationsFor")
	defer span.End()

	dc, err := s.resolver.DelegationContextFor(ctx, bsn, reference)
	if err != nil {
		return delegation.DelegationContext{}, err
	}

	s.emit(ctx, audit.Event{
		Action:      audit.ActionDelegationResolved,
		SubjectHash: s.hasher.Hash(bsn),
		Details: map[string]string{
			"delegations": fmt.Sprintf("%d", len(dc.Delegations)),
		},
	})
	return dc, nil
}

// CanActOnBehalf reports whether the citizen may act for the subject.
func (s *Service) CanActOnBehalf(ctx context.Context, bsn, subjectID string, reference time.Time) (bool, error) {
	return s.resolver.CanActOnBehalf(ctx, bsn, subjectID, reference)
}

// LawInfo summarizes one catalog entry for listings.
type LawInfo struct {
	Name           string  `json:"name"`
	Law            string  `json:"law"`
	Service        string  `json:"service"`
	ValidFrom      string  `json:"valid_from"`
	Discoverable   string  `json:"discoverable,omitempty"`
	MaxSensitivity int     `json:"max_sensitivity"`
	AvgSensitivity float64 `json:"avg_sensitivity"`
	FieldCount     int     `json:"field_count"`
}

// Laws lists every loaded specification with its sensitivity score.
func (s *Service) Laws(_ context.Context) []LawInfo {
	specs := s.catalog.All()
	out := make([]LawInfo, 0, len(specs))
	for _, spec := range specs {
		score := s.classifier.LawScore(spec)
		out = append(out, LawInfo{
			Name:           spec.Name,
			Law:            spec.Law,
			Service:        spec.Service,
			ValidFrom:      spec.ValidFrom.Format("2006-01-02"),
			Discoverable:   spec.Discoverable,
			MaxSensitivity: int(score.Max),
			AvgSensitivity: score.Avg,
			FieldCount:     score.Count,
		})
	}
	return out
}

// MinimizationExport bundles current and historical minimization metrics.
func (s *Service) MinimizationExport(ctx context.Context, daysBack int) (map[string]any, error) {
	return s.tracker.Export(ctx, daysBack)
}

// emit hands an event to the audit pipeline. Failures are logged, never
// propagated; auditing must not break evaluations.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}
