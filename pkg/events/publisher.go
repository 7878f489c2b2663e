package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/comms-transport/pkg/errmodel"
	"github.com/morezero/comms-transport/pkg/transport"
)

const publisherLogPrefix = "events:publisher"

// EventPublisher is the interface for publishing error events.
type EventPublisher interface {
	PublishError(ctx context.Context, event *ErrorEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for services running without events).
type NoOpPublisher struct{}

// PublishError is a no-op.
func (p *NoOpPublisher) PublishError(_ context.Context, _ *ErrorEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *ErrorEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *ErrorEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishError calls the callback.
func (p *CallbackPublisher) PublishError(ctx context.Context, event *ErrorEvent) error {
	return p.callback(ctx, event)
}

// Sink adapts pub to a transport.ErrorSink that stamps events with service and the current time.
// Publish failures are logged, never returned to the handler.
func Sink(pub EventPublisher, service string) transport.ErrorSink {
	return func(ctx context.Context, subject string, reply *errmodel.ErrorReply) {
		event := &ErrorEvent{
			Subject:   subject,
			Service:   service,
			Reply:     reply,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := pub.PublishError(ctx, event); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish error event for %s: %v", publisherLogPrefix, subject, err))
		}
	}
}
