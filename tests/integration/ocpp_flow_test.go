package integration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/cache"
	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp"
	ocppv16 "github.com/seu-repo/ocpp-central/internal/adapter/ocpp/v16"
	"github.com/seu-repo/ocpp-central/internal/adapter/storage/memory"
	"github.com/seu-repo/ocpp-central/internal/auth"
	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/ports"
	"github.com/seu-repo/ocpp-central/internal/service/billing"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
	"github.com/seu-repo/ocpp-central/internal/service/command"
	"github.com/seu-repo/ocpp-central/internal/service/session"
)

// newCentralSystem wires the full inbound stack against in-memory storage
// so a complete charging session can run over a real WebSocket.
func newCentralSystem(t *testing.T) (*httptest.Server, ports.RepositoryProvider) {
	t.Helper()
	logger := zap.NewNop()

	repos := memory.NewProvider()
	idTagCache := cache.NewLocalCache(time.Minute, logger)
	t.Cleanup(func() { idTagCache.Close() })

	bus := events.NewBus(logger)
	t.Cleanup(bus.Close)

	billingService := billing.NewService(repos.Tariffs(), repos.Billing(), bus, logger)
	svc := chargepoint.NewService(repos, bus, idTagCache, billingService, auth.NewBcryptHasher(), logger)

	registry := session.NewRegistry(logger)
	sender := command.NewSender(registry, logger)

	adapters := ocpp.NewAdapterRegistry()
	adapters.Register(ocppv16.NewAdapter(svc, logger))

	srv := ocpp.NewServer(registry, adapters, sender, svc, svc, bus, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, repos
}

// roundTrip sends one Call and decodes its CallResult payload into result.
func roundTrip(t *testing.T, ws *websocket.Conn, id, action string, payload, result any) {
	t.Helper()
	data, err := json.Marshal([]any{2, id, action, payload})
	if err != nil {
		t.Fatalf("marshal %s: %v", action, err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write %s: %v", action, err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, reply, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read %s reply: %v", action, err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(reply, &elems); err != nil || len(elems) != 3 {
		t.Fatalf("%s: expected CallResult, got %s", action, reply)
	}
	if result != nil {
		if err := json.Unmarshal(elems[2], result); err != nil {
			t.Fatalf("%s: bad payload %s: %v", action, elems[2], err)
		}
	}
}

func TestChargingSessionEndToEnd(t *testing.T) {
	ts, repos := newCentralSystem(t)
	ctx := context.Background()

	if err := repos.IdTags().Save(ctx, domain.NewIdTag("TAG001")); err != nil {
		t.Fatalf("seed id tag: %v", err)
	}
	if err := repos.Tariffs().Save(ctx, &domain.Tariff{
		Name:        "Standard",
		TariffType:  domain.TariffPerKwh,
		PricePerKwh: 150,
		Currency:    "EUR",
		IsActive:    true,
		IsDefault:   true,
	}); err != nil {
		t.Fatalf("seed tariff: %v", err)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ocpp/CP001"
	dialer := websocket.Dialer{Subprotocols: []string{"ocpp1.6"}}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	var boot struct {
		Status   string `json:"status"`
		Interval int    `json:"interval"`
	}
	roundTrip(t, ws, "m1", "BootNotification", map[string]any{
		"chargePointVendor": "SimuVolt",
		"chargePointModel":  "SV-AC22",
	}, &boot)
	if boot.Status != "Accepted" {
		t.Fatalf("boot rejected: %s", boot.Status)
	}

	roundTrip(t, ws, "m2", "StatusNotification", map[string]any{
		"connectorId": 1,
		"status":      "Available",
		"errorCode":   "NoError",
	}, nil)

	var authConf struct {
		IdTagInfo struct {
			Status string `json:"status"`
		} `json:"idTagInfo"`
	}
	roundTrip(t, ws, "m3", "Authorize", map[string]any{"idTag": "TAG001"}, &authConf)
	if authConf.IdTagInfo.Status != "Accepted" {
		t.Fatalf("authorization rejected: %s", authConf.IdTagInfo.Status)
	}

	var start struct {
		TransactionID int `json:"transactionId"`
		IdTagInfo     struct {
			Status string `json:"status"`
		} `json:"idTagInfo"`
	}
	roundTrip(t, ws, "m4", "StartTransaction", map[string]any{
		"connectorId": 1,
		"idTag":       "TAG001",
		"meterStart":  1000,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, &start)
	if start.IdTagInfo.Status != "Accepted" || start.TransactionID == 0 {
		t.Fatalf("start rejected: %+v", start)
	}

	roundTrip(t, ws, "m5", "MeterValues", map[string]any{
		"connectorId":   1,
		"transactionId": start.TransactionID,
		"meterValue": []map[string]any{{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"sampledValue": []map[string]any{{
				"value":     "2000",
				"measurand": "Energy.Active.Import.Register",
				"unit":      "Wh",
			}},
		}},
	}, nil)

	active, err := repos.Transactions().FindActiveByConnector(ctx, "CP001", 1)
	if err != nil || active == nil {
		t.Fatalf("expected active transaction: %v", err)
	}
	if active.LastMeterValue == nil || *active.LastMeterValue != 2000 {
		t.Errorf("expected live meter 2000, got %+v", active.LastMeterValue)
	}

	roundTrip(t, ws, "m6", "StopTransaction", map[string]any{
		"transactionId": start.TransactionID,
		"meterStop":     3500,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"reason":        "Local",
	}, nil)

	stopped, err := repos.Transactions().FindByID(ctx, start.TransactionID)
	if err != nil {
		t.Fatalf("load stopped transaction: %v", err)
	}
	if stopped.Status != domain.TransactionStatusCompleted {
		t.Errorf("expected Completed, got %s", stopped.Status)
	}
	if stopped.EnergyConsumedWh() != 2500 {
		t.Errorf("expected 2500 Wh, got %d", stopped.EnergyConsumedWh())
	}

	// 2.5 kWh at 150 minor units per kWh
	bill, err := repos.Billing().FindByTransactionID(ctx, start.TransactionID)
	if err != nil {
		t.Fatalf("load billing: %v", err)
	}
	if bill.TotalCost != 375 {
		t.Errorf("expected total 375, got %d", bill.TotalCost)
	}

	cp, err := repos.ChargePoints().FindByID(ctx, "CP001")
	if err != nil {
		t.Fatalf("load charge point: %v", err)
	}
	if cp.Vendor != "SimuVolt" {
		t.Errorf("expected boot data persisted, got vendor %q", cp.Vendor)
	}
}

func TestBasicAuthEnforcedWhenPasswordSet(t *testing.T) {
	ts, repos := newCentralSystem(t)
	ctx := context.Background()

	hasher := auth.NewBcryptHasher()
	hash, err := hasher.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := repos.ChargePoints().Save(ctx, &domain.ChargePoint{
		ID:           "CP002",
		Status:       domain.ChargePointStatusOffline,
		PasswordHash: hash,
	}); err != nil {
		t.Fatalf("seed charge point: %v", err)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ocpp/CP002"

	dialer := websocket.Dialer{Subprotocols: []string{"ocpp1.6"}}
	if _, resp, err := dialer.Dial(url, nil); err == nil {
		t.Fatal("expected dial without credentials to fail")
	} else if resp == nil || resp.StatusCode != 401 {
		t.Errorf("expected 401, got %+v", resp)
	}

	header := http.Header{}
	creds := base64.StdEncoding.EncodeToString([]byte("CP002:s3cret"))
	header.Set("Authorization", "Basic "+creds)
	ws, _, err := dialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial with credentials: %v", err)
	}
	ws.Close()
}
