package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"machinelaw/internal/tracking/metrics"
)

// Aggregator creates sessions and answers history queries. It is safe for
// concurrent use; each request gets its own Session handle.
type Aggregator struct {
	store   HistoryStore
	hasher  *Pseudonymizer
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.RWMutex
	last *SessionMetrics
}

// NewAggregator wires an aggregator to its history store. Metrics may be nil
// in tests; a nil logger discards.
func NewAggregator(store HistoryStore, hasher *Pseudonymizer, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{
		store:   store,
		hasher:  hasher,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// StartSession opens a tracking session for one citizen. The session id keeps
// a human-readable timestamp prefix; the suffix disambiguates sessions started
// within the same second.
func (a *Aggregator) StartSession(bsn string) *Session {
	started := a.now().UTC()
	return &Session{
		agg:      a,
		services: map[string]struct{}{},
		metrics: SessionMetrics{
			SessionID:               fmt.Sprintf("session_%s_%s", started.Format("20060102_150405"), uuid.NewString()[:8]),
			SubjectHash:             a.hasher.Hash(bsn),
			StartedAt:               started,
			EliminationReasons:      map[string]int{},
			FieldAccesses:           []FieldAccess{},
			UniqueServicesCalled:    []string{},
			SensitivityDistribution: map[int]int{},
		},
	}
}

// LastSession returns the most recently ended session, if any.
func (a *Aggregator) LastSession() (SessionMetrics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return SessionMetrics{}, false
	}
	return *a.last, true
}

// Session accumulates one citizen's evaluation round. Record methods are safe
// for concurrent use; End may be called once.
type Session struct {
	agg *Aggregator

	mu         sync.Mutex
	metrics    SessionMetrics
	executions []LawExecutionRecord
	services   map[string]struct{}
	sensSum    int
	sensCount  int
	ended      bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics.SessionID
}

// RecordEarlyElimination notes that a law was ruled out on minimal data. An
// empty reason defaults to the age filter, the most common eliminator.
func (s *Session) RecordEarlyElimination(law, service, reason string) {
	if reason == "" {
		reason = ReasonAgeFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.LawsTotal++
	s.metrics.LawsEliminated++
	s.metrics.EliminationReasons[reason]++
	s.executions = append(s.executions, LawExecutionRecord{
		SessionID:       s.metrics.SessionID,
		SubjectHash:     s.metrics.SubjectHash,
		Law:             law,
		Service:         service,
		EliminatedEarly: true,
		Reason:          reason,
		Timestamp:       s.agg.now().UTC(),
	})

	s.agg.metrics.IncrementElimination(reason)
}

// RecordLawExecution notes a full evaluation of a law that survived early
// elimination. The sensitivity is the law's maximum field score; it feeds the
// session's running maximum and services set.
func (s *Session) RecordLawExecution(law, service string, requirementsMet bool, sensitivity int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.LawsTotal++
	s.services[service] = struct{}{}
	if sensitivity > s.metrics.MaxSensitivityAccessed {
		s.metrics.MaxSensitivityAccessed = sensitivity
	}
	s.executions = append(s.executions, LawExecutionRecord{
		SessionID:       s.metrics.SessionID,
		SubjectHash:     s.metrics.SubjectHash,
		Law:             law,
		Service:         service,
		RequirementsMet: requirementsMet,
		Sensitivity:     sensitivity,
		Duration:        duration,
		Timestamp:       s.agg.now().UTC(),
	})
}

// RecordFieldAccess notes one access to a classified field.
func (s *Session) RecordFieldAccess(field, service, law string, sensitivity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.FieldAccesses = append(s.metrics.FieldAccesses, FieldAccess{
		Field:       field,
		Service:     service,
		Law:         law,
		Sensitivity: sensitivity,
		AccessedAt:  s.agg.now().UTC(),
	})
	s.services[service] = struct{}{}
	s.metrics.SensitivityDistribution[sensitivity]++
	s.sensSum += sensitivity
	s.sensCount++
	if sensitivity > s.metrics.MaxSensitivityAccessed {
		s.metrics.MaxSensitivityAccessed = sensitivity
	}

	s.agg.metrics.IncrementFieldAccess(sensitivity)
}

// End closes the session, derives the summary figures and persists both the
// session summary and the per-law records. A session with no laws or no field
// accesses has rate and average zero; there is no division in those cases.
func (s *Session) End(ctx context.Context) (SessionMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return s.metrics, fmt.Errorf("session %s already ended", s.metrics.SessionID)
	}
	s.ended = true

	s.metrics.EndedAt = s.agg.now().UTC()
	if s.metrics.LawsTotal > 0 {
		s.metrics.EliminationRate = float64(s.metrics.LawsEliminated) / float64(s.metrics.LawsTotal) * 100
	}
	if s.sensCount > 0 {
		s.metrics.AverageSensitivity = float64(s.sensSum) / float64(s.sensCount)
	}
	for service := range s.services {
		s.metrics.UniqueServicesCalled = append(s.metrics.UniqueServicesCalled, service)
	}
	sort.Strings(s.metrics.UniqueServicesCalled)

	if err := s.agg.store.SaveSession(ctx, s.metrics); err != nil {
		return s.metrics, fmt.Errorf("save session: %w", err)
	}
	if err := s.agg.store.SaveExecutions(ctx, s.executions); err != nil {
		return s.metrics, fmt.Errorf("save executions: %w", err)
	}

	s.agg.mu.Lock()
	snapshot := s.metrics
	s.agg.last = &snapshot
	s.agg.mu.Unlock()

	s.agg.metrics.ObserveSession(s.metrics.EliminationRate)
	s.agg.logger.Info("minimization session ended",
		"session_id", s.metrics.SessionID,
		"laws_total", s.metrics.LawsTotal,
		"laws_eliminated", s.metrics.LawsEliminated,
		"elimination_rate", s.metrics.EliminationRate,
	)
	return s.metrics, nil
}
