package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishInvokesHandlersInSubscriptionOrder(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var order []string
	dispatcher.Subscribe(EventCheckCreated, func(context.Context, Event) error {
		order = append(order, "first")
		return nil
	})
	dispatcher.Subscribe(EventCheckCreated, func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventCheckCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
}

func TestPublishRunsAllHandlersDespiteFailures(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	failure := errors.New("boom")
	ran := false
	dispatcher.Subscribe(EventTimerReset, func(context.Context, Event) error {
		return failure
	})
	dispatcher.Subscribe(EventTimerReset, func(context.Context, Event) error {
		ran = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTimerReset})
	if !errors.Is(err, failure) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if !ran {
		t.Fatal("later handler skipped after an earlier failure")
	}
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	if err := dispatcher.Publish(context.Background(), Event{Type: EventCheckCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
