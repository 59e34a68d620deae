package v16

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp"
	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/mocks"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
)

func newTestAdapter() (*Adapter, *mocks.MockRepositoryProvider) {
	repos := mocks.NewMockRepositoryProvider()
	bus := events.NewBus(zap.NewNop())
	svc := chargepoint.NewService(repos, bus, mocks.NewMockCache(), &mocks.MockBillingService{}, &mocks.MockPasswordHasher{}, zap.NewNop())
	return NewAdapter(svc, zap.NewNop()), repos
}

func TestBootNotificationReply(t *testing.T) {
	// Arrange
	adapter, repos := newTestAdapter()
	var saved *domain.ChargePoint
	repos.ChargePointRepo.SaveFunc = func(ctx context.Context, cp *domain.ChargePoint) error {
		saved = cp
		return nil
	}

	// Act
	result, err := adapter.Handle(context.Background(), "CP001", "BootNotification",
		json.RawMessage(`{"chargePointVendor":"VendorX","chargePointModel":"ModelY","firmwareVersion":"1.2.3"}`))

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conf, ok := result.(bootNotificationConf)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if conf.Status != "Accepted" || conf.Interval != chargepoint.DefaultHeartbeatInterval {
		t.Errorf("unexpected reply: %+v", conf)
	}
	if _, err := time.Parse(time.RFC3339, conf.CurrentTime); err != nil {
		t.Errorf("currentTime not RFC3339: %s", conf.CurrentTime)
	}
	if saved == nil || saved.FirmwareVersion != "1.2.3" {
		t.Error("expected charge point persisted with firmware version")
	}
}

func TestHeartbeatReply(t *testing.T) {
	adapter, _ := newTestAdapter()

	result, err := adapter.Handle(context.Background(), "CP001", "Heartbeat", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply, ok := result.(map[string]string)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if _, err := time.Parse(time.RFC3339, reply["currentTime"]); err != nil {
		t.Errorf("currentTime not RFC3339: %s", reply["currentTime"])
	}
}

func TestAuthorizeUnknownTag(t *testing.T) {
	adapter, _ := newTestAdapter()

	result, err := adapter.Handle(context.Background(), "CP001", "Authorize",
		json.RawMessage(`{"idTag":"NOPE"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply := result.(map[string]interface{})
	info := reply["idTagInfo"].(idTagInfo)
	if info.Status != "Invalid" {
		t.Errorf("expected Invalid, got %s", info.Status)
	}
}

func TestStartTransactionAcceptedTag(t *testing.T) {
	// Arrange
	adapter, repos := newTestAdapter()
	repos.IdTagRepo.FindByTagFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return domain.NewIdTag(tag), nil
	}

	// Act
	result, err := adapter.Handle(context.Background(), "CP001", "StartTransaction",
		json.RawMessage(`{"connectorId":1,"idTag":"TAG001","meterStart":100,"timestamp":"2026-08-24T10:00:00Z"}`))

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conf := result.(startTransactionConf)
	if conf.TransactionID != 1 {
		t.Errorf("expected transaction id 1, got %d", conf.TransactionID)
	}
	if conf.IdTagInfo.Status != "Accepted" {
		t.Errorf("expected Accepted, got %s", conf.IdTagInfo.Status)
	}
}

func TestStartTransactionInvalidTagZeroID(t *testing.T) {
	adapter, _ := newTestAdapter()

	result, err := adapter.Handle(context.Background(), "CP001", "StartTransaction",
		json.RawMessage(`{"connectorId":1,"idTag":"NOPE","meterStart":0,"timestamp":"2026-08-24T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conf := result.(startTransactionConf)
	if conf.TransactionID != 0 || conf.IdTagInfo.Status != "Invalid" {
		t.Errorf("expected tx 0 / Invalid, got %+v", conf)
	}
}

func TestStopTransactionAcknowledgesUnknownTx(t *testing.T) {
	// the station already stopped; it must not retry forever
	adapter, _ := newTestAdapter()

	result, err := adapter.Handle(context.Background(), "CP001", "StopTransaction",
		json.RawMessage(`{"transactionId":42,"meterStop":500,"timestamp":"2026-08-24T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.(map[string]interface{}); !ok {
		t.Fatalf("unexpected result type %T", result)
	}
}

func TestMeterValuesUpdatesTransaction(t *testing.T) {
	// Arrange
	adapter, repos := newTestAdapter()
	active := &domain.Transaction{
		ID:            7,
		ChargePointID: "CP001",
		MeterStart:    0,
		StartedAt:     time.Now().UTC(),
		Status:        domain.TransactionStatusActive,
	}
	repos.TransactionRepo.FindByIDFunc = func(ctx context.Context, id int) (*domain.Transaction, error) {
		return active, nil
	}
	var updated *domain.Transaction
	repos.TransactionRepo.UpdateFunc = func(ctx context.Context, tx *domain.Transaction) error {
		updated = tx
		return nil
	}

	// Act: energy in kWh plus power and SoC measurands
	payload := `{"connectorId":1,"transactionId":7,"meterValue":[{"timestamp":"2026-08-24T10:05:00Z","sampledValue":[
		{"value":"5.5","measurand":"Energy.Active.Import.Register","unit":"kWh"},
		{"value":"7.2","measurand":"Power.Active.Import","unit":"kW"},
		{"value":"64","measurand":"SoC"}]}]}`
	_, err := adapter.Handle(context.Background(), "CP001", "MeterValues", json.RawMessage(payload))

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("expected transaction update")
	}
	if updated.LastMeterValue == nil || *updated.LastMeterValue != 5500 {
		t.Errorf("expected 5500 Wh, got %v", updated.LastMeterValue)
	}
	if updated.CurrentPowerW == nil || *updated.CurrentPowerW != 7200 {
		t.Errorf("expected 7200 W, got %v", updated.CurrentPowerW)
	}
	if updated.CurrentSoc == nil || *updated.CurrentSoc != 64 {
		t.Errorf("expected SoC 64, got %v", updated.CurrentSoc)
	}
}

func TestDataTransferAcceptedAndPublished(t *testing.T) {
	repos := mocks.NewMockRepositoryProvider()
	bus := events.NewBus(zap.NewNop())
	svc := chargepoint.NewService(repos, bus, mocks.NewMockCache(), &mocks.MockBillingService{}, &mocks.MockPasswordHasher{}, zap.NewNop())
	adapter := NewAdapter(svc, zap.NewNop())
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	result, err := adapter.Handle(context.Background(), "CP001", "DataTransfer",
		json.RawMessage(`{"vendorId":"acme","messageId":"ping","data":{"k":1}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply := result.(map[string]string)
	if reply["status"] != "Accepted" {
		t.Errorf("expected Accepted, got %s", reply["status"])
	}

	select {
	case env := <-sub.C:
		transfer, ok := env.Data.(events.DataTransferReceived)
		if !ok {
			t.Fatalf("unexpected event %s", env.Type)
		}
		if transfer.VendorID != "acme" || transfer.MessageID != "ping" {
			t.Errorf("unexpected event payload: %+v", transfer)
		}
		if string(transfer.Data) != `{"k":1}` {
			t.Errorf("expected raw data preserved, got %s", transfer.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected data_transfer_received event")
	}
}

func TestUnknownActionError(t *testing.T) {
	adapter, _ := newTestAdapter()

	_, err := adapter.Handle(context.Background(), "CP001", "FluxCapacitor", json.RawMessage(`{}`))
	var unknown *ocpp.UnknownActionError
	if !errors.As(err, &unknown) || unknown.Action != "FluxCapacitor" {
		t.Errorf("expected UnknownActionError, got %v", err)
	}
}

func TestExtractSampleDefaultMeasurandIsEnergy(t *testing.T) {
	sample := extractSample([]sampledValue{{Value: "1234"}})
	if sample.EnergyWh == nil || *sample.EnergyWh != 1234 {
		t.Errorf("expected 1234 Wh, got %v", sample.EnergyWh)
	}
}
