package tracking

import (
	"context"
	"fmt"
	"time"
)

// trendDeadBand is the rate difference, in percentage points, below which no
// trend is claimed.
const trendDeadBand = 5.0

// Analyze compares elimination effectiveness across the look-back window.
func (a *Aggregator) Analyze(ctx context.Context, daysBack int) (HistoricalAnalysis, error) {
	cutoff := a.now().UTC().AddDate(0, 0, -daysBack)
	sessions, err := a.store.SessionsSince(ctx, cutoff)
	if err != nil {
		return HistoricalAnalysis{}, fmt.Errorf("load sessions: %w", err)
	}

	analysis := HistoricalAnalysis{
		DaysBack:     daysBack,
		SessionCount: len(sessions),
		Trend:        TrendInsufficientData,
	}
	if len(sessions) == 0 {
		return analysis, nil
	}

	analysis.AvgEliminationRate = avgRate(sessions)
	analysis.AvgMaxSensitivity = avgOver(sessions, func(s SessionMetrics) float64 {
		return float64(s.MaxSensitivityAccessed)
	})
	analysis.AvgFieldsAccessed = avgOver(sessions, func(s SessionMetrics) float64 {
		return float64(len(s.FieldAccesses))
	})
	if len(sessions) < 2 {
		return analysis, nil
	}

	// Sessions arrive oldest first; split the window in half and compare
	// average rates. Rates are percentages already.
	half := len(sessions) / 2
	analysis.FirstHalfRate = avgRate(sessions[:half])
	analysis.SecondHalfRate = avgRate(sessions[half:])

	diff := analysis.SecondHalfRate - analysis.FirstHalfRate
	switch {
	case diff > trendDeadBand:
		analysis.Trend = TrendImproving
	case diff < -trendDeadBand:
		analysis.Trend = TrendDeclining
	default:
		analysis.Trend = TrendStable
	}
	return analysis, nil
}

func avgRate(sessions []SessionMetrics) float64 {
	return avgOver(sessions, func(s SessionMetrics) float64 { return s.EliminationRate })
}

func avgOver(sessions []SessionMetrics, value func(SessionMetrics) float64) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sessions {
		sum += value(s)
	}
	return sum / float64(len(sessions))
}

// LawMetricsSince aggregates execution history per law.
func (a *Aggregator) LawMetricsSince(ctx context.Context, cutoff time.Time) (map[string]LawMetrics, error) {
	records, err := a.store.ExecutionsSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load executions: %w", err)
	}

	perLaw := make(map[string]LawMetrics)
	durations := make(map[string]time.Duration)
	evaluated := make(map[string]int)
	for _, r := range records {
		m := perLaw[r.Law]
		m.Law = r.Law
		m.Service = r.Service
		m.Executions++
		if r.EliminatedEarly {
			m.Eliminations++
		} else {
			durations[r.Law] += r.Duration
			evaluated[r.Law]++
		}
		perLaw[r.Law] = m
	}

	for law, m := range perLaw {
		m.EliminationRate = float64(m.Eliminations) / float64(m.Executions) * 100
		if n := evaluated[law]; n > 0 {
			m.AvgDuration = float64(durations[law].Milliseconds()) / float64(n)
		}
		perLaw[law] = m
	}
	return perLaw, nil
}

// Export bundles the current session, the raw history and the derived
// analyses into one JSON-marshallable document.
func (a *Aggregator) Export(ctx context.Context, daysBack int) (map[string]any, error) {
	cutoff := a.now().UTC().AddDate(0, 0, -daysBack)

	sessions, err := a.store.SessionsSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	executions, err := a.store.ExecutionsSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load executions: %w", err)
	}
	analysis, err := a.Analyze(ctx, daysBack)
	if err != nil {
		return nil, err
	}
	lawMetrics, err := a.LawMetricsSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	var current any
	if last, ok := a.LastSession(); ok {
		current = last
	}

	return map[string]any{
		"current_session":       current,
		"historical_sessions":   sessions,
		"law_execution_history": executions,
		"historical_analysis":   analysis,
		"law_metrics":           lawMetrics,
	}, nil
}
