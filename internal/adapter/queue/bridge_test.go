package queue

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/mocks"
)

func TestBridgePublishesEnvelopes(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	mq := mocks.NewMockMessageQueue()
	bridge := NewBridge(bus, mq, zap.NewNop())
	go bridge.Run()

	bus.Publish(events.TransactionStarted{
		ChargePointID: "CP-001",
		ConnectorID:   1,
		TransactionID: 42,
		IdTag:         "TAG-1",
		Timestamp:     time.Now().UTC(),
	})

	subject := "csms.events.transaction_started"
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(mq.GetPublishedMessages(subject)) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	bridge.Stop()

	msgs := mq.GetPublishedMessages(subject)
	if len(msgs) != 1 {
		t.Fatalf("published = %d, want 1", len(msgs))
	}
	var env struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			TransactionID int `json:"transaction_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msgs[0], &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "transaction_started" || env.Data.TransactionID != 42 {
		t.Errorf("envelope = %+v, want transaction_started with tx 42", env)
	}
	if env.ID == "" {
		t.Error("envelope id is empty")
	}
}

func TestBridgeStopDetaches(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	mq := mocks.NewMockMessageQueue()
	bridge := NewBridge(bus, mq, zap.NewNop())
	go bridge.Run()

	bridge.Stop()
	bus.Publish(events.HeartbeatReceived{ChargePointID: "CP-001", Timestamp: time.Now().UTC()})

	time.Sleep(20 * time.Millisecond)
	if n := len(mq.GetPublishedMessages("csms.events.heartbeat_received")); n != 0 {
		t.Errorf("published after Stop = %d, want 0", n)
	}
}
