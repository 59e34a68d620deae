package ocpp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp"
	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp/v16"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/mocks"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
	"github.com/seu-repo/ocpp-central/internal/service/command"
	"github.com/seu-repo/ocpp-central/internal/service/session"
)

type openAuth struct{}

func (openAuth) VerifyPassword(ctx context.Context, chargePointID, password string) bool {
	return true
}

type noopDisconnector struct{}

func (noopDisconnector) MarkDisconnected(ctx context.Context, chargePointID string) {}

func newTestServer(t *testing.T) (*httptest.Server, *session.Registry, *events.Bus) {
	t.Helper()
	logger := zap.NewNop()
	bus := events.NewBus(logger)
	registry := session.NewRegistry(logger)
	sender := command.NewSender(registry, logger)

	svc := chargepoint.NewService(mocks.NewMockRepositoryProvider(), bus, mocks.NewMockCache(), &mocks.MockBillingService{}, &mocks.MockPasswordHasher{}, logger)

	adapters := ocpp.NewAdapterRegistry()
	adapters.Register(v16.NewAdapter(svc, logger))

	srv := ocpp.NewServer(registry, adapters, sender, openAuth{}, noopDisconnector{}, bus, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, registry, bus
}

func dial(t *testing.T, ts *httptest.Server, chargePointID, subprotocol string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ocpp/" + chargePointID
	dialer := websocket.Dialer{Subprotocols: []string{subprotocol}}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestBootNotificationRoundTrip(t *testing.T) {
	// Arrange
	ts, registry, _ := newTestServer(t)
	ws := dial(t, ts, "CP001", "ocpp1.6")

	// Act
	call := `[2,"msg-1","BootNotification",{"chargePointVendor":"VendorX","chargePointModel":"ModelY"}]`
	if err := ws.WriteMessage(websocket.TextMessage, []byte(call)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, reply, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	// Assert
	var elems []json.RawMessage
	if err := json.Unmarshal(reply, &elems); err != nil || len(elems) != 3 {
		t.Fatalf("expected 3-element CallResult, got %s", reply)
	}
	var conf struct {
		Status   string `json:"status"`
		Interval int    `json:"interval"`
	}
	if err := json.Unmarshal(elems[2], &conf); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if conf.Status != "Accepted" {
		t.Errorf("expected Accepted, got %s", conf.Status)
	}
	if conf.Interval != chargepoint.DefaultHeartbeatInterval {
		t.Errorf("expected interval %d, got %d", chargepoint.DefaultHeartbeatInterval, conf.Interval)
	}
	if !registry.IsConnected("CP001") {
		t.Error("expected CP001 to be registered")
	}
}

func TestUnknownActionRepliesNotImplemented(t *testing.T) {
	ts, _, _ := newTestServer(t)
	ws := dial(t, ts, "CP001", "ocpp1.6")

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`[2,"msg-2","FluxCapacitor",{}]`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, reply, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(reply, &elems); err != nil || len(elems) != 5 {
		t.Fatalf("expected CallError, got %s", reply)
	}
	var code string
	json.Unmarshal(elems[2], &code)
	if code != "NotImplemented" {
		t.Errorf("expected NotImplemented, got %s", code)
	}
}

func TestMalformedFrameRepliesFormationViolation(t *testing.T) {
	ts, _, _ := newTestServer(t)
	ws := dial(t, ts, "CP001", "ocpp1.6")

	// recoverable unique id, bad message type
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`[99,"msg-3"]`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, reply, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(reply, &elems); err != nil || len(elems) != 5 {
		t.Fatalf("expected CallError, got %s", reply)
	}
	var id, code string
	json.Unmarshal(elems[1], &id)
	json.Unmarshal(elems[2], &code)
	if id != "msg-3" || code != "FormationViolation" {
		t.Errorf("expected FormationViolation for msg-3, got %s / %s", id, code)
	}
}

func TestUnrecoverableFramePublishesErrorEvent(t *testing.T) {
	ts, _, bus := newTestServer(t)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()
	ws := dial(t, ts, "CP001", "ocpp1.6")

	// not an array: no uniqueId to reply to, so the frame is dropped
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"oops":true}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-sub.C:
			if env.Type != "error" {
				continue
			}
			occurred, ok := env.Data.(events.ErrorOccurred)
			if !ok {
				t.Fatalf("unexpected event data %T", env.Data)
			}
			if occurred.ChargePointID != "CP001" || occurred.ErrorType != "FormationViolation" {
				t.Errorf("unexpected error event: %+v", occurred)
			}
			return
		case <-deadline:
			t.Fatal("expected error event for unparseable frame")
		}
	}
}

func TestNoMutualSubprotocolRejected(t *testing.T) {
	ts, _, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ocpp/CP001"
	dialer := websocket.Dialer{Subprotocols: []string{"ocpp2.0.1"}}
	_, resp, err := dialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %+v", resp)
	}
}

func TestMissingChargePointIDRejected(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ocpp/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDisconnectPublishesEvent(t *testing.T) {
	ts, registry, bus := newTestServer(t)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	ws := dial(t, ts, "CP001", "ocpp1.6")
	ws.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-sub.C:
			if env.Type == "charge_point_disconnected" {
				if registry.IsConnected("CP001") {
					t.Error("expected CP001 to be unregistered")
				}
				return
			}
		case <-deadline:
			t.Fatal("expected charge_point_disconnected event")
		}
	}
}
