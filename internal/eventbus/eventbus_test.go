package eventbus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewChannelEventBus(WithWorkerCount(1))
	defer bus.Close()

	received := make(chan Event, 1)
	if _, err := bus.Subscribe([]EventType{EventAnalysisSuccess}, func(ctx context.Context, e Event) error {
		received <- e
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	event := NewEvent(EventAnalysisSuccess, "PROJ", "test", nil).WithMetadata("run_id", "r1")
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Type() != EventAnalysisSuccess {
			t.Errorf("event type = %s", got.Type())
		}
		if got.Payload() != "PROJ" {
			t.Errorf("payload = %v", got.Payload())
		}
		if got.Metadata()["run_id"] != "r1" {
			t.Errorf("metadata = %v", got.Metadata())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestSubscribeTypeFiltering(t *testing.T) {
	bus := NewChannelEventBus(WithWorkerCount(1))
	defer bus.Close()

	var count int64
	if _, err := bus.Subscribe([]EventType{EventEtaFailure}, func(ctx context.Context, e Event) error {
		atomic.AddInt64(&count, 1)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	done := make(chan struct{})
	if _, err := bus.SubscribeAll(func(ctx context.Context, e Event) error {
		if e.Type() == EventEtaSuccess {
			close(done)
		}
		return nil
	}); err != nil {
		t.Fatalf("SubscribeAll failed: %v", err)
	}

	// Not EventEtaFailure; only the catch-all should see it.
	if err := bus.Publish(context.Background(), NewEvent(EventEtaSuccess, nil, "test", nil)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	<-done
	if atomic.LoadInt64(&count) != 0 {
		t.Error("typed subscriber received a foreign event type")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewChannelEventBus(WithWorkerCount(1))
	defer bus.Close()

	var count int64
	id, err := bus.SubscribeAll(func(ctx context.Context, e Event) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeAll failed: %v", err)
	}

	if err := bus.Publish(context.Background(), NewEvent(EventScheduleStarted, nil, "test", nil)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	waitFor(t, func() bool { return atomic.LoadInt64(&count) == 1 })

	if err := bus.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := bus.Publish(context.Background(), NewEvent(EventScheduleStarted, nil, "test", nil)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt64(&count) != 1 {
		t.Errorf("unsubscribed handler still invoked, count = %d", count)
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewChannelEventBus()
	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := bus.Publish(context.Background(), NewEvent(EventBacklogSyncStarted, nil, "test", nil)); err == nil {
		t.Error("expected an error publishing to a closed bus")
	}
	// Close is idempotent.
	if err := bus.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	bus := NewChannelEventBus()
	defer bus.Close()

	if _, err := bus.Subscribe(nil, func(ctx context.Context, e Event) error { return nil }); err == nil {
		t.Error("expected an error for empty event type list")
	}
	if _, err := bus.Subscribe([]EventType{EventAnalysisStarted}, nil); err == nil {
		t.Error("expected an error for nil handler")
	}
	if _, err := bus.SubscribeAll(nil); err == nil {
		t.Error("expected an error for nil handler")
	}
}
