package audit

import (
	"log/slog"
	"time"
)

// Dropped is implemented by the metrics package; the publisher reports events
// it had to discard because the buffer was full.
type Dropped interface {
	Inc()
}

// Publisher hands events to the background worker without blocking request
// handling. A full buffer drops the event rather than stalling a booking.
type Publisher struct {
	inbox   chan<- Event
	logger  *slog.Logger
	dropped Dropped
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger, dropped Dropped) *Publisher {
	return &Publisher{inbox: inbox, logger: logger, dropped: dropped}
}

// Emit queues an event for persistence. Never blocks.
func (p *Publisher) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		if p.dropped != nil {
			p.dropped.Inc()
		}
		p.logger.Warn("audit buffer full, event dropped",
			"action", event.Action,
			"entity", event.Entity,
			"entity_id", event.EntityID,
		)
	}
}
