package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/comms-transport/pkg/codec"
	"github.com/morezero/comms-transport/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// Subject overrides the base error event subject (e.g. from ERROR_EVENT_SUBJECT).
	Subject string
}

// CommsPublisher publishes error events to COMMS subjects.
type CommsPublisher struct {
	nc      *comms.Conn
	subject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	subject := commsutil.SubjectErrorEvents
	if opts != nil && opts.Subject != "" {
		subject = opts.Subject
	}
	return &CommsPublisher{nc: nc, subject: subject}
}

// PublishError publishes an ErrorEvent to the base subject and, when the event names its
// service, to the per-service subject.
func (p *CommsPublisher) PublishError(_ context.Context, event *ErrorEvent) error {
	subjects := []string{p.subject}
	if event.Service != "" {
		subjects = append(subjects, commsutil.BuildErrorSubject(p.subject, event.Service))
	}

	for _, subject := range subjects {
		msg, err := commsutil.EncodeMsg(subject, codec.JSON[*ErrorEvent]{}, event, nil)
		if err != nil {
			return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
		}
		if err := p.nc.PublishMsg(msg); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, subject, err))
			return err
		}
	}

	slog.Debug(fmt.Sprintf("%s - Published error event for %s", commsPublisherLogPrefix, event.Subject))
	return nil
}
