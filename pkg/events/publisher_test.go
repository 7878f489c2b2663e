package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/morezero/comms-transport/pkg/errmodel"
)

func sampleReply() *errmodel.ErrorReply {
	return &errmodel.ErrorReply{
		Code:    400,
		Message: "No chat title provided.",
		Status:  int32(errmodel.StatusInvalidArgument),
		Details: []errmodel.ErrorDetailsReply{{
			Reason:   "CHAT_TITLE_EMPTY",
			Domain:   "runtiva.com",
			Metadata: []errmodel.MetaData{{Key: "service", Value: "chat-persist.runtiva.com"}},
		}},
	}
}

func TestNoOpPublisher(t *testing.T) {
	pub := &NoOpPublisher{}
	err := pub.PublishError(context.Background(), &ErrorEvent{Subject: "chat.chatgroup.command.create", Reply: sampleReply()})
	if err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var captured *ErrorEvent

	pub := NewCallbackPublisher(func(_ context.Context, event *ErrorEvent) error {
		captured = event
		return nil
	})

	err := pub.PublishError(context.Background(), &ErrorEvent{
		Subject:   "chat.chatgroup.command.create",
		Service:   "chat-persist.runtiva.com",
		Reply:     sampleReply(),
		Timestamp: "2025-01-01T00:00:00Z",
	})
	if err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
	if captured == nil {
		t.Fatal("events:publisher_test - expected callback to be called")
	}
	if captured.Reply.Code != 400 {
		t.Errorf("events:publisher_test - expected code 400, got %d", captured.Reply.Code)
	}
}

func TestSink(t *testing.T) {
	var captured *ErrorEvent
	sink := Sink(NewCallbackPublisher(func(_ context.Context, event *ErrorEvent) error {
		captured = event
		return nil
	}), "chat-persist.runtiva.com")

	before := time.Now().UTC().Add(-time.Second)
	sink(context.Background(), "chat.chatgroup.command.create", sampleReply())

	if captured == nil {
		t.Fatal("events:publisher_test - expected event")
	}
	if captured.Service != "chat-persist.runtiva.com" || captured.Subject != "chat.chatgroup.command.create" {
		t.Errorf("events:publisher_test - event = %+v", captured)
	}
	ts, err := time.Parse(time.RFC3339Nano, captured.Timestamp)
	if err != nil || ts.Before(before) {
		t.Errorf("events:publisher_test - timestamp = %q, %v", captured.Timestamp, err)
	}
}

func TestSink_SwallowsPublishErrors(t *testing.T) {
	calls := 0
	sink := Sink(NewCallbackPublisher(func(context.Context, *ErrorEvent) error {
		calls++
		return errors.New("broker down")
	}), "svc")

	sink(context.Background(), "a.b", sampleReply())
	if calls != 1 {
		t.Errorf("events:publisher_test - calls = %d, want 1", calls)
	}
}
