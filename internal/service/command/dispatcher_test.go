package command

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp/ocppj"
	"github.com/seu-repo/ocpp-central/internal/domain"
)

func newTestDispatcher(dir *fakeDirectory) *Dispatcher {
	sender := NewSender(dir, zap.NewNop()).WithTimeout(time.Second)
	return NewDispatcher(sender, dir, zap.NewNop())
}

// answer waits for the next outbound frame and replies with the payload.
func answer(t *testing.T, dir *fakeDirectory, d *Dispatcher, chargePointID, payload string) {
	t.Helper()
	go func() {
		deadline := time.After(time.Second)
		for {
			dir.mu.Lock()
			n := len(dir.sent)
			dir.mu.Unlock()
			if n > 0 {
				frame := dir.lastFrame(t)
				d.Sender().HandleResponse(chargePointID, frame.UniqueID, json.RawMessage(payload))
				return
			}
			select {
			case <-deadline:
				return
			case <-time.After(time.Millisecond):
			}
		}
	}()
}

func TestRemoteStartV16(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV16)
	d := newTestDispatcher(dir)

	connector := 1
	answer(t, dir, d, "CP1", `{"status":"Accepted"}`)

	status, err := d.RemoteStart(context.Background(), "CP1", "T1", &connector)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != "Accepted" {
		t.Errorf("expected Accepted, got %s", status)
	}

	frame := dir.lastFrame(t)
	if frame.Action != "RemoteStartTransaction" {
		t.Errorf("expected RemoteStartTransaction, got %s", frame.Action)
	}
	var body struct {
		IdTag       string `json:"idTag"`
		ConnectorID int    `json:"connectorId"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if body.IdTag != "T1" || body.ConnectorID != 1 {
		t.Errorf("expected idTag=T1 connectorId=1, got %+v", body)
	}
}

func TestRemoteStartV201MapsConnectorToEvse(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV201)
	d := newTestDispatcher(dir)

	connector := 1
	answer(t, dir, d, "CP1", `{"status":"Accepted"}`)

	if _, err := d.RemoteStart(context.Background(), "CP1", "T1", &connector); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	frame := dir.lastFrame(t)
	if frame.Action != "RequestStartTransaction" {
		t.Errorf("expected RequestStartTransaction, got %s", frame.Action)
	}
	var body struct {
		IdToken struct {
			IdToken string `json:"idToken"`
		} `json:"idToken"`
		EvseID        int   `json:"evseId"`
		RemoteStartID int64 `json:"remoteStartId"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if body.IdToken.IdToken != "T1" || body.EvseID != 1 {
		t.Errorf("expected idToken=T1 evseId=1, got %+v", body)
	}
	if body.RemoteStartID == 0 {
		t.Error("expected remoteStartId to be set")
	}
}

func TestRemoteStopV201StringifiesTransactionID(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV201)
	d := newTestDispatcher(dir)

	answer(t, dir, d, "CP1", `{"status":"Accepted"}`)

	if _, err := d.RemoteStop(context.Background(), "CP1", 42); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	frame := dir.lastFrame(t)
	if frame.Action != "RequestStopTransaction" {
		t.Errorf("expected RequestStopTransaction, got %s", frame.Action)
	}
	var body struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if body.TransactionID != "42" {
		t.Errorf("expected transactionId \"42\", got %q", body.TransactionID)
	}
}

func TestResetKindMapping(t *testing.T) {
	cases := []struct {
		version domain.OcppVersion
		kind    ResetKind
		want    string
	}{
		{domain.OcppV16, ResetSoft, "Soft"},
		{domain.OcppV16, ResetHard, "Hard"},
		{domain.OcppV201, ResetSoft, "OnIdle"},
		{domain.OcppV201, ResetHard, "Immediate"},
	}

	for _, tc := range cases {
		dir := newFakeDirectory()
		dir.connect("CP1", tc.version)
		d := newTestDispatcher(dir)

		answer(t, dir, d, "CP1", `{"status":"Accepted"}`)
		if _, err := d.Reset(context.Background(), "CP1", tc.kind); err != nil {
			t.Fatalf("reset failed: %v", err)
		}

		frame := dir.lastFrame(t)
		var body struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame.Payload, &body); err != nil {
			t.Fatalf("payload unmarshal failed: %v", err)
		}
		if body.Type != tc.want {
			t.Errorf("version %s kind %s: expected type %s, got %s", tc.version, tc.kind, tc.want, body.Type)
		}
	}
}

func TestChangeConfigurationUnsupportedAtV201(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV201)
	d := newTestDispatcher(dir)

	_, err := d.ChangeConfiguration(context.Background(), "CP1", "HeartbeatInterval", "300")
	if commandKind(t, err) != KindUnsupportedVersion {
		t.Fatalf("expected UnsupportedVersion, got %v", err)
	}

	// no frame must hit the wire
	dir.mu.Lock()
	sent := len(dir.sent)
	dir.mu.Unlock()
	if sent != 0 {
		t.Errorf("expected no frame sent, got %d", sent)
	}
}

func TestSetVariablesUnsupportedAtV16(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV16)
	d := newTestDispatcher(dir)

	_, err := d.SetVariables(context.Background(), "CP1", []SetVariableInput{{Component: "OCPPCommCtrlr", Variable: "HeartbeatInterval", Value: "300"}})
	if commandKind(t, err) != KindUnsupportedVersion {
		t.Errorf("expected UnsupportedVersion, got %v", err)
	}
}

func TestUnlockConnectorV201AddressesEvse(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV201)
	d := newTestDispatcher(dir)

	answer(t, dir, d, "CP1", `{"status":"Unlocked"}`)

	status, err := d.UnlockConnector(context.Background(), "CP1", 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != "Unlocked" {
		t.Errorf("expected Unlocked, got %s", status)
	}

	frame := dir.lastFrame(t)
	var body struct {
		EvseID      int `json:"evseId"`
		ConnectorID int `json:"connectorId"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if body.EvseID != 2 || body.ConnectorID != 1 {
		t.Errorf("expected evseId=2 connectorId=1, got %+v", body)
	}
}

func TestDispatcherNotConnected(t *testing.T) {
	d := newTestDispatcher(newFakeDirectory())
	_, err := d.RemoteStart(context.Background(), "ghost", "T1", nil)
	if commandKind(t, err) != KindNotConnected {
		t.Errorf("expected NotConnected, got %v", err)
	}
}

func TestGetBaseReportV16Unsupported(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV16)
	d := newTestDispatcher(dir)

	_, err := d.GetBaseReport(context.Background(), "CP1", 7)
	if commandKind(t, err) != KindUnsupportedVersion {
		t.Errorf("expected UnsupportedVersion, got %v", err)
	}
}

func TestGetLocalListVersionParsesBothSchemas(t *testing.T) {
	for _, tc := range []struct {
		version domain.OcppVersion
		reply   string
	}{
		{domain.OcppV16, `{"listVersion":3}`},
		{domain.OcppV201, `{"versionNumber":3}`},
	} {
		dir := newFakeDirectory()
		dir.connect("CP1", tc.version)
		d := newTestDispatcher(dir)

		answer(t, dir, d, "CP1", tc.reply)
		got, err := d.GetLocalListVersion(context.Background(), "CP1")
		if err != nil {
			t.Fatalf("version %s: %v", tc.version, err)
		}
		if got != 3 {
			t.Errorf("version %s: expected 3, got %d", tc.version, got)
		}
	}
}

func TestGetCompositeScheduleMapsConnectorToEvse(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV201)
	d := newTestDispatcher(dir)

	answer(t, dir, d, "CP1", `{"status":"Accepted","schedule":{}}`)

	if _, err := d.GetCompositeSchedule(context.Background(), "CP1", 2, 3600, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	frame := dir.lastFrame(t)
	if frame.Action != "GetCompositeSchedule" {
		t.Errorf("expected GetCompositeSchedule, got %s", frame.Action)
	}
	var body struct {
		EvseID   int `json:"evseId"`
		Duration int `json:"duration"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if body.EvseID != 2 || body.Duration != 3600 {
		t.Errorf("expected evseId=2 duration=3600, got %+v", body)
	}
}

func TestUpdateFirmwareV16TreatsEmptyReplyAsAccepted(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV16)
	d := newTestDispatcher(dir)

	answer(t, dir, d, "CP1", `{}`)

	status, err := d.UpdateFirmware(context.Background(), "CP1", UpdateFirmwareInput{
		Location:     "ftp://firmware.example/v2.bin",
		RetrieveDate: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != "Accepted" {
		t.Errorf("expected Accepted, got %s", status)
	}

	frame := dir.lastFrame(t)
	if frame.Action != "UpdateFirmware" {
		t.Errorf("expected UpdateFirmware, got %s", frame.Action)
	}
	var body struct {
		Location     string `json:"location"`
		RetrieveDate string `json:"retrieveDate"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if body.Location != "ftp://firmware.example/v2.bin" || body.RetrieveDate == "" {
		t.Errorf("unexpected payload %+v", body)
	}
}

func TestUpdateFirmwareV201WrapsFirmwareObject(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV201)
	d := newTestDispatcher(dir)

	answer(t, dir, d, "CP1", `{"status":"Accepted"}`)

	if _, err := d.UpdateFirmware(context.Background(), "CP1", UpdateFirmwareInput{
		Location:     "https://firmware.example/v2.bin",
		RetrieveDate: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	frame := dir.lastFrame(t)
	var body struct {
		RequestID int64 `json:"requestId"`
		Firmware  struct {
			Location         string `json:"location"`
			RetrieveDateTime string `json:"retrieveDateTime"`
		} `json:"firmware"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if body.RequestID == 0 {
		t.Error("expected requestId to be set")
	}
	if body.Firmware.Location != "https://firmware.example/v2.bin" || body.Firmware.RetrieveDateTime == "" {
		t.Errorf("unexpected firmware body %+v", body.Firmware)
	}
}

func TestGetDiagnosticsV201Unsupported(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV201)
	d := newTestDispatcher(dir)

	_, err := d.GetDiagnostics(context.Background(), "CP1", GetDiagnosticsInput{Location: "ftp://logs.example"})
	if commandKind(t, err) != KindUnsupportedVersion {
		t.Errorf("expected UnsupportedVersion, got %v", err)
	}
}

func TestGetDiagnosticsReturnsFileName(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV16)
	d := newTestDispatcher(dir)

	answer(t, dir, d, "CP1", `{"fileName":"diag-2024.tar.gz"}`)

	fileName, err := d.GetDiagnostics(context.Background(), "CP1", GetDiagnosticsInput{Location: "ftp://logs.example"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if fileName != "diag-2024.tar.gz" {
		t.Errorf("expected diag-2024.tar.gz, got %q", fileName)
	}
}

func TestGetLogV16Unsupported(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV16)
	d := newTestDispatcher(dir)

	_, err := d.GetLog(context.Background(), "CP1", GetLogInput{Location: "https://logs.example", RequestID: 1})
	if commandKind(t, err) != KindUnsupportedVersion {
		t.Errorf("expected UnsupportedVersion, got %v", err)
	}
}

func TestGetLogDefaultsToDiagnosticsLog(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV201)
	d := newTestDispatcher(dir)

	answer(t, dir, d, "CP1", `{"status":"Accepted"}`)

	if _, err := d.GetLog(context.Background(), "CP1", GetLogInput{Location: "https://logs.example", RequestID: 9}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	frame := dir.lastFrame(t)
	var body struct {
		LogType   string `json:"logType"`
		RequestID int    `json:"requestId"`
		Log       struct {
			RemoteLocation string `json:"remoteLocation"`
		} `json:"log"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if body.LogType != "DiagnosticsLog" || body.RequestID != 9 || body.Log.RemoteLocation != "https://logs.example" {
		t.Errorf("unexpected payload %+v", body)
	}
}

func TestCallErrorPropagatesVerbatim(t *testing.T) {
	dir := newFakeDirectory()
	dir.connect("CP1", domain.OcppV16)
	d := newTestDispatcher(dir)

	go func() {
		deadline := time.After(time.Second)
		for {
			dir.mu.Lock()
			n := len(dir.sent)
			dir.mu.Unlock()
			if n > 0 {
				frame, _ := ocppj.Parse(dir.sent[0])
				d.Sender().HandleError("CP1", frame.UniqueID, "InternalError", "boom")
				return
			}
			select {
			case <-deadline:
				return
			case <-time.After(time.Millisecond):
			}
		}
	}()

	_, err := d.Reset(context.Background(), "CP1", ResetSoft)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Kind != KindCallError {
		t.Fatalf("expected CallError, got %v", err)
	}
	if cmdErr.Code != "InternalError" || cmdErr.Description != "boom" {
		t.Errorf("expected code/description passed through, got %+v", cmdErr)
	}
}
