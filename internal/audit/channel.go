package audit

import (
	"context"
	"log/slog"
)

// ChannelSink hands events to a worker through a buffered channel. A full
// buffer drops the event with a warning instead of blocking the request path.
type ChannelSink struct {
	ch     chan Event
	logger *slog.Logger
}

func NewChannelSink(buffer int, logger *slog.Logger) *ChannelSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChannelSink{
		ch:     make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the receive side for a Worker.
func (s *ChannelSink) Inbox() <-chan Event {
	return s.ch
}

func (s *ChannelSink) Append(ctx context.Context, event Event) error {
	select {
	case s.ch <- event:
	default:
		s.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
		)
	}
	return nil
}
