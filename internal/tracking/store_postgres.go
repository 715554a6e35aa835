package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresHistoryStore persists session history in PostgreSQL. Field accesses
// and elimination reasons are stored as JSONB alongside the scalar columns so
// the export endpoint can round-trip sessions without a second query.
type PostgresHistoryStore struct {
	db *sql.DB
}

// NewPostgresHistoryStore creates a history store backed by an open database.
// The caller owns the connection pool.
func NewPostgresHistoryStore(db *sql.DB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

// Migrate creates the history tables if they do not exist.
func (s *PostgresHistoryStore) Migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS minimization_sessions (
			session_id               TEXT PRIMARY KEY,
			subject_hash             TEXT NOT NULL,
			started_at               TIMESTAMPTZ NOT NULL,
			ended_at                 TIMESTAMPTZ NOT NULL,
			laws_total               INT NOT NULL,
			laws_eliminated          INT NOT NULL,
			elimination_rate         DOUBLE PRECISION NOT NULL,
			max_sensitivity          INT NOT NULL DEFAULT 0,
			average_sensitivity      DOUBLE PRECISION NOT NULL DEFAULT 0,
			elimination_reasons      JSONB NOT NULL,
			field_accesses           JSONB NOT NULL,
			unique_services          JSONB NOT NULL DEFAULT '[]',
			sensitivity_distribution JSONB NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_minimization_sessions_ended_at
			ON minimization_sessions (ended_at);

		CREATE TABLE IF NOT EXISTS law_executions (
			id               BIGSERIAL PRIMARY KEY,
			session_id       TEXT NOT NULL,
			subject_hash     TEXT NOT NULL,
			law              TEXT NOT NULL,
			service          TEXT NOT NULL,
			eliminated_early BOOLEAN NOT NULL,
			reason           TEXT NOT NULL DEFAULT '',
			requirements_met BOOLEAN NOT NULL,
			sensitivity      INT NOT NULL DEFAULT 0,
			duration_ns      BIGINT NOT NULL,
			timestamp        TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_law_executions_timestamp
			ON law_executions (timestamp);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate history schema: %w", err)
	}
	return nil
}

func (s *PostgresHistoryStore) SaveSession(ctx context.Context, session SessionMetrics) error {
	reasons, err := json.Marshal(session.EliminationReasons)
	if err != nil {
		return fmt.Errorf("marshal elimination reasons: %w", err)
	}
	accesses, err := json.Marshal(session.FieldAccesses)
	if err != nil {
		return fmt.Errorf("marshal field accesses: %w", err)
	}
	services, err := json.Marshal(session.UniqueServicesCalled)
	if err != nil {
		return fmt.Errorf("marshal unique services: %w", err)
	}
	distribution, err := json.Marshal(session.SensitivityDistribution)
	if err != nil {
		return fmt.Errorf("marshal sensitivity distribution: %w", err)
	}

	query := `
		INSERT INTO minimization_sessions (
			session_id, subject_hash, started_at, ended_at,
			laws_total, laws_eliminated, elimination_rate,
			max_sensitivity, average_sensitivity,
			elimination_reasons, field_accesses,
			unique_services, sensitivity_distribution
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		session.SessionID,
		session.SubjectHash,
		session.StartedAt,
		session.EndedAt,
		session.LawsTotal,
		session.LawsEliminated,
		session.EliminationRate,
		session.MaxSensitivityAccessed,
		session.AverageSensitivity,
		reasons,
		accesses,
		services,
		distribution,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresHistoryStore) SaveExecutions(ctx context.Context, records []LawExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO law_executions (
			session_id, subject_hash, law, service,
			eliminated_early, reason, requirements_met, sensitivity,
			duration_ns, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, query,
			r.SessionID,
			r.SubjectHash,
			r.Law,
			r.Service,
			r.EliminatedEarly,
			r.Reason,
			r.RequirementsMet,
			r.Sensitivity,
			int64(r.Duration),
			r.Timestamp,
		); err != nil {
			return fmt.Errorf("insert execution: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit executions: %w", err)
	}
	return nil
}

func (s *PostgresHistoryStore) SessionsSince(ctx context.Context, cutoff time.Time) ([]SessionMetrics, error) {
	query := `
		SELECT session_id, subject_hash, started_at, ended_at,
			   laws_total, laws_eliminated, elimination_rate,
			   max_sensitivity, average_sensitivity,
			   elimination_reasons, field_accesses,
			   unique_services, sensitivity_distribution
		FROM minimization_sessions
		WHERE ended_at >= $1
		ORDER BY ended_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionMetrics
	for rows.Next() {
		var (
			session      SessionMetrics
			reasons      []byte
			accesses     []byte
			services     []byte
			distribution []byte
		)
		if err := rows.Scan(
			&session.SessionID,
			&session.SubjectHash,
			&session.StartedAt,
			&session.EndedAt,
			&session.LawsTotal,
			&session.LawsEliminated,
			&session.EliminationRate,
			&session.MaxSensitivityAccessed,
			&session.AverageSensitivity,
			&reasons,
			&accesses,
			&services,
			&distribution,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal(reasons, &session.EliminationReasons); err != nil {
			return nil, fmt.Errorf("unmarshal elimination reasons: %w", err)
		}
		if err := json.Unmarshal(accesses, &session.FieldAccesses); err != nil {
			return nil, fmt.Errorf("unmarshal field accesses: %w", err)
		}
		if err := json.Unmarshal(services, &session.UniqueServicesCalled); err != nil {
			return nil, fmt.Errorf("unmarshal unique services: %w", err)
		}
		if err := json.Unmarshal(distribution, &session.SensitivityDistribution); err != nil {
			return nil, fmt.Errorf("unmarshal sensitivity distribution: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *PostgresHistoryStore) ExecutionsSince(ctx context.Context, cutoff time.Time) ([]LawExecutionRecord, error) {
	query := `
		SELECT session_id, subject_hash, law, service,
			   eliminated_early, reason, requirements_met, sensitivity,
			   duration_ns, timestamp
		FROM law_executions
		WHERE timestamp >= $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var records []LawExecutionRecord
	for rows.Next() {
		var (
			r        LawExecutionRecord
			duration int64
		)
		if err := rows.Scan(
			&r.SessionID,
			&r.SubjectHash,
			&r.Law,
			&r.Service,
			&r.EliminatedEarly,
			&r.Reason,
			&r.RequirementsMet,
			&r.Sensitivity,
			&duration,
			&r.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		r.Duration = time.Duration(duration)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return records, nil
}
