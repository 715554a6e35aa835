package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Sink receives audit events. Implementations are append-only.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It stamps identity and time and
// delegates persistence to the sink so tests can swap implementations easily.
type Publisher struct {
	sink Sink
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.sink.Append(ctx, event)
}
