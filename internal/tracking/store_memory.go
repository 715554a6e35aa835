package tracking

import (
	"context"
	"sync"
	"time"
)

// InMemoryHistoryStore keeps session history in process memory. Used in tests
// and single-node deployments; history does not survive a restart.
type InMemoryHistoryStore struct {
	mu         sync.RWMutex
	sessions   []SessionMetrics
	executions []LawExecutionRecord
}

// NewInMemoryHistoryStore creates an empty in-memory history store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{}
}

func (s *InMemoryHistoryStore) SaveSession(_ context.Context, session SessionMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

func (s *InMemoryHistoryStore) SaveExecutions(_ context.Context, records []LawExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions = append(s.executions, records...)
	return nil
}

func (s *InMemoryHistoryStore) SessionsSince(_ context.Context, cutoff time.Time) ([]SessionMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []SessionMetrics
	for _, session := range s.sessions {
		if !session.EndedAt.Before(cutoff) {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *InMemoryHistoryStore) ExecutionsSince(_ context.Context, cutoff time.Time) ([]LawExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LawExecutionRecord
	for _, record := range s.executions {
		if !record.Timestamp.Before(cutoff) {
			out = append(out, record)
		}
	}
	return out, nil
}
