package audit

import "time"

// Actions emitted by the evaluation pipeline.
const (
	ActionLawEvaluated       = "law.evaluated"
	ActionLawEliminated      = "law.eliminated"
	ActionDelegationResolved = "delegation.resolved"
	ActionSessionEnded       = "session.ended"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. SubjectHash is the
// pseudonymized citizen identifier; raw BSNs never enter an event.
type Event struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Action      string            `json:"action"`
	SessionID   string            `json:"session_id,omitempty"`
	SubjectHash string            `json:"subject_hash,omitempty"`
	Law         string            `json:"law,omitempty"`
	Service     string            `json:"service,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}
