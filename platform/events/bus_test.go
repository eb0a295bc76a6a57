package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPublishAsyncDelivers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	received := make(chan string, 2)

	handler := HandlerFunc(func(_ context.Context, event Event) error {
		defer wg.Done()
		received <- event.EventName()
		return nil
	})
	bus.Subscribe("lead.created", handler)
	bus.Subscribe("lead.created", handler)

	bus.Publish(context.Background(), NewBaseEvent("lead.created"))

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers never ran")
	}

	close(received)
	for name := range received {
		if name != "lead.created" {
			t.Fatalf("unexpected event name: %q", name)
		}
	}
}

func TestPublishOnlyMatchingSubscribers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	wrong := make(chan struct{}, 1)
	bus.Subscribe("turn.completed", HandlerFunc(func(context.Context, Event) error {
		wrong <- struct{}{}
		return nil
	}))

	bus.Publish(context.Background(), NewBaseEvent("lead.created"))

	select {
	case <-wrong:
		t.Fatal("handler for another event name ran")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishSyncReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(nil)

	first := errors.New("first")
	ran := 0
	bus.Subscribe("stage.advanced", HandlerFunc(func(context.Context, Event) error {
		ran++
		return first
	}))
	bus.Subscribe("stage.advanced", HandlerFunc(func(context.Context, Event) error {
		ran++
		return errors.New("second")
	}))

	err := bus.PublishSync(context.Background(), NewBaseEvent("stage.advanced"))
	if !errors.Is(err, first) {
		t.Fatalf("unexpected error: %v", err)
	}
	// A failing handler must not stop the rest.
	if ran != 2 {
		t.Fatalf("handler count: %d", ran)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Publish(context.Background(), NewBaseEvent("nobody.listens"))
	if err := bus.PublishSync(context.Background(), NewBaseEvent("nobody.listens")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
