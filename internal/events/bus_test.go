package events

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	bus.Publish(HeartbeatReceived{
		ChargePointID: "CP001",
		Timestamp:     time.Now().UTC(),
	})

	select {
	case env := <-sub.C:
		if env.Type != "heartbeat_received" {
			t.Errorf("expected type heartbeat_received, got %s", env.Type)
		}
		if env.ID == "" {
			t.Error("expected envelope id to be set")
		}
		if env.Data.ChargePoint() != "CP001" {
			t.Errorf("expected charge point CP001, got %s", env.Data.ChargePoint())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	// must not block or panic
	bus.Publish(HeartbeatReceived{ChargePointID: "CP001", Timestamp: time.Now().UTC()})
}

func TestBusSubscriberCount(t *testing.T) {
	bus := NewBus(zap.NewNop())
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}

	sub1 := bus.Subscribe()
	sub2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	sub1.Unsubscribe()
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}
	sub2.Unsubscribe()
}

func TestBusSlowSubscriberDropsEvents(t *testing.T) {
	bus := NewBusWithCapacity(2, zap.NewNop())
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		bus.Publish(HeartbeatReceived{ChargePointID: "CP001", Timestamp: time.Now().UTC()})
	}

	if got := sub.Dropped(); got != 3 {
		t.Errorf("expected 3 dropped events, got %d", got)
	}
	if len(sub.C) != 2 {
		t.Errorf("expected 2 buffered events, got %d", len(sub.C))
	}
}

func TestBusConcurrentPublishersOnFullBuffer(t *testing.T) {
	bus := NewBusWithCapacity(1, zap.NewNop())
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	// fill the buffer so every concurrent publish takes the drop path
	bus.Publish(HeartbeatReceived{ChargePointID: "CP001", Timestamp: time.Now().UTC()})

	const publishers = 8
	var wg sync.WaitGroup
	wg.Add(publishers)
	for i := 0; i < publishers; i++ {
		go func() {
			defer wg.Done()
			bus.Publish(HeartbeatReceived{ChargePointID: "CP001", Timestamp: time.Now().UTC()})
		}()
	}
	wg.Wait()

	if got := sub.Dropped(); got != publishers {
		t.Errorf("expected %d dropped events, got %d", publishers, got)
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus(zap.NewNop())
	sub := bus.Subscribe()

	bus.Close()

	if _, ok := <-sub.C; ok {
		t.Error("expected subscriber channel to be closed")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", bus.SubscriberCount())
	}

	// double close and publish after close are no-ops
	bus.Close()
	bus.Publish(HeartbeatReceived{ChargePointID: "CP001", Timestamp: time.Now().UTC()})
}

func TestUnsubscribeTwice(t *testing.T) {
	bus := NewBus(zap.NewNop())
	sub := bus.Subscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()
}
