package v201

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/mocks"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
	"github.com/seu-repo/ocpp-central/internal/service/report"
)

func newTestAdapter() (*Adapter, *mocks.MockRepositoryProvider, *report.Store) {
	repos := mocks.NewMockRepositoryProvider()
	bus := events.NewBus(zap.NewNop())
	svc := chargepoint.NewService(repos, bus, mocks.NewMockCache(), &mocks.MockBillingService{}, &mocks.MockPasswordHasher{}, zap.NewNop())
	reports := report.NewStore(zap.NewNop())
	return NewAdapter(domain.OcppV201, svc, reports, zap.NewNop()), repos, reports
}

func TestBootNotificationNestedStation(t *testing.T) {
	// Arrange
	adapter, repos, _ := newTestAdapter()
	var saved *domain.ChargePoint
	repos.ChargePointRepo.SaveFunc = func(ctx context.Context, cp *domain.ChargePoint) error {
		saved = cp
		return nil
	}

	// Act
	payload := `{"reason":"PowerUp","chargingStation":{"model":"ModelZ","vendorName":"VendorX","serialNumber":"SN1","modem":{"iccid":"89001","imsi":"310150"}}}`
	result, err := adapter.Handle(context.Background(), "CP001", "BootNotification", json.RawMessage(payload))

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conf := result.(bootNotificationConf)
	if conf.Status != "Accepted" || conf.Interval != chargepoint.DefaultHeartbeatInterval {
		t.Errorf("unexpected reply: %+v", conf)
	}
	if saved == nil || saved.Vendor != "VendorX" || saved.Iccid != "89001" {
		t.Errorf("expected station persisted with modem data, got %+v", saved)
	}
	if saved.OcppVersion == nil || *saved.OcppVersion != domain.OcppV201 {
		t.Error("expected ocpp version 2.0.1 recorded")
	}
}

func TestStatusNotificationOccupiedMapsToCharging(t *testing.T) {
	adapter, repos, _ := newTestAdapter()
	var connector *domain.Connector
	repos.ChargePointRepo.UpdateConnectorStatusFunc = func(ctx context.Context, id string, c *domain.Connector) error {
		connector = c
		return nil
	}

	payload := `{"timestamp":"2026-08-24T10:00:00Z","connectorStatus":"Occupied","evseId":2,"connectorId":1}`
	if _, err := adapter.Handle(context.Background(), "CP001", "StatusNotification", json.RawMessage(payload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if connector == nil || connector.ConnectorID != 2 {
		t.Fatalf("expected evse 2 updated, got %+v", connector)
	}
	if connector.Status != domain.ConnectorStatusCharging {
		t.Errorf("expected Charging, got %s", connector.Status)
	}
}

func TestAuthorizeIdToken(t *testing.T) {
	adapter, repos, _ := newTestAdapter()
	repos.IdTagRepo.FindByTagFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return domain.NewIdTag(tag), nil
	}

	result, err := adapter.Handle(context.Background(), "CP001", "Authorize",
		json.RawMessage(`{"idToken":{"idToken":"TAG001","type":"ISO14443"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply := result.(map[string]interface{})
	info := reply["idTokenInfo"].(idTokenInfo)
	if info.Status != "Accepted" {
		t.Errorf("expected Accepted, got %s", info.Status)
	}
}

func TestTransactionEventStartedCreatesTransaction(t *testing.T) {
	// Arrange
	adapter, repos, _ := newTestAdapter()
	repos.IdTagRepo.FindByTagFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return domain.NewIdTag(tag), nil
	}
	var saved *domain.Transaction
	repos.TransactionRepo.SaveFunc = func(ctx context.Context, tx *domain.Transaction) error {
		tx.ID = 1
		saved = tx
		return nil
	}

	// Act
	payload := `{"eventType":"Started","timestamp":"2026-08-24T10:00:00Z","seqNo":0,
		"transactionInfo":{"transactionId":"TX-abc"},
		"evse":{"id":1,"connectorId":1},
		"idToken":{"idToken":"TAG001","type":"ISO14443"},
		"meterValue":[{"timestamp":"2026-08-24T10:00:00Z","sampledValue":[{"value":1000,"measurand":"Energy.Active.Import.Register"}]}]}`
	result, err := adapter.Handle(context.Background(), "CP001", "TransactionEvent", json.RawMessage(payload))

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conf := result.(transactionEventConf)
	if conf.IdTokenInfo == nil || conf.IdTokenInfo.Status != "Accepted" {
		t.Errorf("expected Accepted idTokenInfo, got %+v", conf)
	}
	if saved == nil {
		t.Fatal("expected transaction saved")
	}
	if saved.OcppTransactionID != "TX-abc" {
		t.Errorf("expected wire id TX-abc, got %s", saved.OcppTransactionID)
	}
	if saved.MeterStart != 1000 {
		t.Errorf("expected meter start 1000, got %d", saved.MeterStart)
	}
}

func TestTransactionEventUpdatedAppliesMeter(t *testing.T) {
	// Arrange
	adapter, repos, _ := newTestAdapter()
	active := &domain.Transaction{
		ID:                1,
		ChargePointID:     "CP001",
		OcppTransactionID: "TX-abc",
		StartedAt:         time.Now().UTC(),
		Status:            domain.TransactionStatusActive,
	}
	repos.TransactionRepo.FindByOcppIDFunc = func(ctx context.Context, id string) (*domain.Transaction, error) {
		return active, nil
	}
	repos.TransactionRepo.FindByIDFunc = func(ctx context.Context, id int) (*domain.Transaction, error) {
		return active, nil
	}
	var updated *domain.Transaction
	repos.TransactionRepo.UpdateFunc = func(ctx context.Context, tx *domain.Transaction) error {
		updated = tx
		return nil
	}

	// Act
	payload := `{"eventType":"Updated","timestamp":"2026-08-24T10:10:00Z","seqNo":1,
		"transactionInfo":{"transactionId":"TX-abc"},
		"meterValue":[{"timestamp":"2026-08-24T10:10:00Z","sampledValue":[{"value":2.5,"measurand":"Energy.Active.Import.Register","unitOfMeasure":{"unit":"kWh"}}]}]}`
	if _, err := adapter.Handle(context.Background(), "CP001", "TransactionEvent", json.RawMessage(payload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Assert
	if updated == nil || updated.LastMeterValue == nil || *updated.LastMeterValue != 2500 {
		t.Errorf("expected 2500 Wh, got %+v", updated)
	}
}

func TestTransactionEventEndedStopsAndBills(t *testing.T) {
	// Arrange
	adapter, repos, _ := newTestAdapter()
	active := &domain.Transaction{
		ID:                1,
		ChargePointID:     "CP001",
		OcppTransactionID: "TX-abc",
		MeterStart:        0,
		StartedAt:         time.Now().UTC().Add(-time.Hour),
		Status:            domain.TransactionStatusActive,
	}
	repos.TransactionRepo.FindByOcppIDFunc = func(ctx context.Context, id string) (*domain.Transaction, error) {
		return active, nil
	}
	repos.TransactionRepo.FindByIDFunc = func(ctx context.Context, id int) (*domain.Transaction, error) {
		return active, nil
	}
	repos.BillingRepo.FindByTransactionIDFunc = func(ctx context.Context, txID int) (*domain.TransactionBilling, error) {
		return &domain.TransactionBilling{TransactionID: txID, TotalCost: 5700, Currency: "UZS"}, nil
	}

	// Act
	payload := `{"eventType":"Ended","timestamp":"2026-08-24T11:00:00Z","seqNo":5,
		"transactionInfo":{"transactionId":"TX-abc","stoppedReason":"EVDisconnected"},
		"meterValue":[{"timestamp":"2026-08-24T11:00:00Z","sampledValue":[{"value":10000,"measurand":"Energy.Active.Import.Register"}]}]}`
	result, err := adapter.Handle(context.Background(), "CP001", "TransactionEvent", json.RawMessage(payload))

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active.Status != domain.TransactionStatusCompleted {
		t.Errorf("expected Completed, got %s", active.Status)
	}
	conf := result.(transactionEventConf)
	if conf.TotalCost == nil || *conf.TotalCost != 57.0 {
		t.Errorf("expected totalCost 57.0, got %v", conf.TotalCost)
	}
}

func TestNotifyReportAggregates(t *testing.T) {
	adapter, _, reports := newTestAdapter()

	part1 := `{"requestId":3,"generatedAt":"2026-08-24T10:00:00Z","tbc":true,"seqNo":0,"reportData":[{"component":{"name":"EVSE"}}]}`
	part2 := `{"requestId":3,"generatedAt":"2026-08-24T10:00:01Z","tbc":false,"seqNo":1,"reportData":[{"component":{"name":"Connector"}}]}`
	if _, err := adapter.Handle(context.Background(), "CP001", "NotifyReport", json.RawMessage(part1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := adapter.Handle(context.Background(), "CP001", "NotifyReport", json.RawMessage(part2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rep, ok := reports.GetLatest("CP001")
	if !ok {
		t.Fatal("expected a completed report")
	}
	if rep.RequestID != 3 || rep.PartsReceived != 2 || !rep.Complete {
		t.Errorf("unexpected report: %+v", rep)
	}
}

func TestNotificationActionsAcknowledged(t *testing.T) {
	adapter, _, _ := newTestAdapter()
	for _, action := range []string{"FirmwareStatusNotification", "LogStatusNotification", "NotifyEvent", "SecurityEventNotification"} {
		result, err := adapter.Handle(context.Background(), "CP001", action, json.RawMessage(`{}`))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", action, err)
		}
		if _, ok := result.(map[string]interface{}); !ok {
			t.Errorf("%s: unexpected result type %T", action, result)
		}
	}
}
