// Package notify delivers user-facing events. The default sink writes them to the structured log.
package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

var _ service.NotificationSink = (*LogSink)(nil)

// LogSink writes events to a slog.Logger. Event ids come from a counter owned by the sink.
type LogSink struct {
	logger *slog.Logger
	now    func() time.Time
	nextID atomic.Int64
}

// NewLogSink creates a sink writing to logger, or to the default logger when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, now: time.Now}
}

// Notify logs the event after assigning its id and creation time.
func (s *LogSink) Notify(ctx context.Context, event model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event.ID = s.nextID.Add(1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	s.logger.InfoContext(ctx, event.Title,
		"event_id", event.ID,
		"type", event.Type,
		"body", event.Body,
		"created_at", event.CreatedAt)
	return nil
}

// Sent returns how many events the sink has delivered.
func (s *LogSink) Sent() int64 {
	return s.nextID.Load()
}

// Send delivers an event through sink, logging instead of returning failures.
func Send(ctx context.Context, sink service.NotificationSink, event model.Event) {
	if sink == nil {
		return
	}
	if err := sink.Notify(ctx, event); err != nil {
		slog.Warn("Failed to deliver notification", "type", event.Type, "title", event.Title, "error", err)
	}
}
