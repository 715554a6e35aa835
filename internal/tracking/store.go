package tracking

import (
	"context"
	"time"
)

// HistoryStore persists finished sessions and per-law execution records.
// Implementations must be safe for concurrent use; the aggregator writes from
// request goroutines.
type HistoryStore interface {
	SaveSession(ctx context.Context, session SessionMetrics) error
	SaveExecutions(ctx context.Context, records []LawExecutionRecord) error

	// SessionsSince returns sessions that ended at or after the cutoff,
	// ordered oldest first.
	SessionsSince(ctx context.Context, cutoff time.Time) ([]SessionMetrics, error)

	// ExecutionsSince returns execution records at or after the cutoff,
	// ordered oldest first.
	ExecutionsSince(ctx context.Context, cutoff time.Time) ([]LawExecutionRecord, error)
}
