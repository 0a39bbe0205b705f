// Package logsink ships audit events to a log ingestion service.
package logsink

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
)

// Event is one log line.
type Event struct {
	Timestamp time.Time
	Message   string
}

// Sink accepts batches of events for a named stream.
type Sink interface {
	PutEvents(ctx context.Context, stream string, events []Event) error
}

// SlogSink writes events to the operational logger. It is the default when no
// external ingestion service is configured.
type SlogSink struct {
	logger logging.Logger
}

var _ Sink = (*SlogSink)(nil)

func NewSlogSink(logger logging.Logger) *SlogSink {
	return &SlogSink{logger: logger.With("module", "logsink")}
}

func (s *SlogSink) PutEvents(ctx context.Context, stream string, events []Event) error {
	for _, e := range events {
		s.logger.Info(ctx, e.Message, "stream", stream, "event_time", e.Timestamp)
	}
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) PutEvents(context.Context, string, []Event) error { return nil }
