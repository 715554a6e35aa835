// Package tracking records what data each evaluation session touched and how
// much of it early elimination avoided. Everything stored here is keyed by a
// salted hash of the citizen's BSN; the raw number never reaches a store.
package tracking

import "time"

// Elimination reasons recorded per law.
const (
	ReasonAgeFilter      = "age_filter"
	ReasonPartnerFilter  = "partner_filter"
	ReasonChildrenFilter = "children_filter"
)

// FieldAccess is one recorded access to a classified field during a session.
type FieldAccess struct {
	Field       string    `json:"field"`
	Service     string    `json:"service"`
	Law         string    `json:"law,omitempty"`
	Sensitivity int       `json:"sensitivity"`
	AccessedAt  time.Time `json:"accessed_at"`
}

// SessionMetrics summarises one evaluation session for one citizen. The
// elimination rate is a percentage (0-100). The sensitivity distribution
// counts field accesses per level; the maximum also covers the scores of the
// laws that were fully evaluated.
type SessionMetrics struct {
	SessionID               string         `json:"session_id"`
	SubjectHash             string         `json:"subject_hash"`
	StartedAt               time.Time      `json:"started_at"`
	EndedAt                 time.Time      `json:"ended_at"`
	LawsTotal               int            `json:"laws_total"`
	LawsEliminated          int            `json:"laws_eliminated"`
	EliminationRate         float64        `json:"elimination_rate"`
	EliminationReasons      map[string]int `json:"elimination_reasons"`
	FieldAccesses           []FieldAccess  `json:"field_accesses"`
	MaxSensitivityAccessed  int            `json:"max_sensitivity_accessed"`
	AverageSensitivity      float64        `json:"average_sensitivity"`
	UniqueServicesCalled    []string       `json:"unique_services_called"`
	SensitivityDistribution map[int]int    `json:"sensitivity_distribution"`
}

// LawExecutionRecord is one law's outcome within a session: either an early
// elimination or a full evaluation.
type LawExecutionRecord struct {
	SessionID       string        `json:"session_id"`
	SubjectHash     string        `json:"subject_hash"`
	Law             string        `json:"law"`
	Service         string        `json:"service"`
	EliminatedEarly bool          `json:"eliminated_early"`
	Reason          string        `json:"reason,omitempty"`
	RequirementsMet bool          `json:"requirements_met"`
	Sensitivity     int           `json:"sensitivity"`
	Duration        time.Duration `json:"duration_ns"`
	Timestamp       time.Time     `json:"timestamp"`
}

// LawMetrics aggregates execution history per law. The elimination rate is a
// percentage, matching the session scale.
type LawMetrics struct {
	Law             string  `json:"law"`
	Service         string  `json:"service"`
	Executions      int     `json:"executions"`
	Eliminations    int     `json:"eliminations"`
	EliminationRate float64 `json:"elimination_rate"`
	AvgDuration     float64 `json:"avg_duration_ms"`
}

// HistoricalAnalysis compares elimination effectiveness over a look-back
// window. Trend is insufficient_data below two sessions; otherwise the second
// half of the window is compared against the first, with a five percentage
// point dead band before a trend is claimed.
type HistoricalAnalysis struct {
	DaysBack           int     `json:"days_back"`
	SessionCount       int     `json:"session_count"`
	AvgEliminationRate float64 `json:"avg_elimination_rate"`
	AvgMaxSensitivity  float64 `json:"avg_max_sensitivity"`
	AvgFieldsAccessed  float64 `json:"avg_fields_accessed"`
	FirstHalfRate      float64 `json:"first_half_rate"`
	SecondHalfRate     float64 `json:"second_half_rate"`
	Trend              string  `json:"trend"`
}

// Trend values.
const (
	TrendInsufficientData = "insufficient_data"
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
)
