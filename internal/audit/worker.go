package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and hands them to the sink,
// keeping event delivery off the request path. Delivery failures are logged
// and dropped; auditing must never take the evaluation pipeline down.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit event delivery failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
