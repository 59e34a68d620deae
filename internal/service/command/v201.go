package command

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"
)

// Payload builders for OCPP 2.0.1 / 2.1 actions. Field names follow the
// 2.0.1 JSON schema; 2.1 accepts the same payloads for these actions.

var remoteStartSeq atomic.Int64

type idToken struct {
	IdToken string `json:"idToken"`
	Type    string `json:"type"`
}

func newIdToken(tag string) idToken {
	return idToken{IdToken: tag, Type: "ISO14443"}
}

func v201RemoteStart(idTag string, connectorID *int) (string, json.RawMessage) {
	body := struct {
		IdToken       idToken `json:"idToken"`
		RemoteStartID int64   `json:"remoteStartId"`
		EvseID        *int    `json:"evseId,omitempty"`
	}{newIdToken(idTag), remoteStartSeq.Add(1), connectorID}
	return "RequestStartTransaction", mustMarshal(body)
}

func v201RemoteStop(transactionID int) (string, json.RawMessage) {
	// 2.0.1 transaction ids are strings on the wire
	body := struct {
		TransactionID string `json:"transactionId"`
	}{strconv.Itoa(transactionID)}
	return "RequestStopTransaction", mustMarshal(body)
}

func v201Reset(kind ResetKind) (string, json.RawMessage) {
	resetType := "OnIdle"
	if kind == ResetHard {
		resetType = "Immediate"
	}
	body := struct {
		Type string `json:"type"`
	}{resetType}
	return "Reset", mustMarshal(body)
}

func v201ChangeAvailability(connectorID int, availability AvailabilityType) (string, json.RawMessage) {
	status := "Operative"
	if availability == AvailabilityInoperative {
		status = "Inoperative"
	}
	type evse struct {
		ID int `json:"id"`
	}
	body := struct {
		OperationalStatus string `json:"operationalStatus"`
		Evse              *evse  `json:"evse,omitempty"`
	}{OperationalStatus: status}
	if connectorID > 0 {
		body.Evse = &evse{ID: connectorID}
	}
	return "ChangeAvailability", mustMarshal(body)
}

func v201SetVariables(vars []SetVariableInput) (string, json.RawMessage) {
	type component struct {
		Name string `json:"name"`
	}
	type variable struct {
		Name string `json:"name"`
	}
	type setVariableData struct {
		AttributeValue string    `json:"attributeValue"`
		Component      component `json:"component"`
		Variable       variable  `json:"variable"`
	}
	data := make([]setVariableData, 0, len(vars))
	for _, v := range vars {
		data = append(data, setVariableData{
			AttributeValue: v.Value,
			Component:      component{Name: v.Component},
			Variable:       variable{Name: v.Variable},
		})
	}
	body := struct {
		SetVariableData []setVariableData `json:"setVariableData"`
	}{data}
	return "SetVariables", mustMarshal(body)
}

func v201GetVariables(vars []GetVariableInput) (string, json.RawMessage) {
	type component struct {
		Name string `json:"name"`
	}
	type variable struct {
		Name string `json:"name"`
	}
	type getVariableData struct {
		Component component `json:"component"`
		Variable  variable  `json:"variable"`
	}
	data := make([]getVariableData, 0, len(vars))
	for _, v := range vars {
		data = append(data, getVariableData{
			Component: component{Name: v.Component},
			Variable:  variable{Name: v.Variable},
		})
	}
	body := struct {
		GetVariableData []getVariableData `json:"getVariableData"`
	}{data}
	return "GetVariables", mustMarshal(body)
}

func v201DataTransfer(in DataTransferInput) (string, json.RawMessage) {
	body := struct {
		VendorID  string  `json:"vendorId"`
		MessageID *string `json:"messageId,omitempty"`
		Data      *string `json:"data,omitempty"`
	}{in.VendorID, in.MessageID, in.Data}
	return "DataTransfer", mustMarshal(body)
}

func v201TriggerMessage(requested string, connectorID *int) (string, json.RawMessage) {
	type evse struct {
		ID int `json:"id"`
	}
	body := struct {
		RequestedMessage string `json:"requestedMessage"`
		Evse             *evse  `json:"evse,omitempty"`
	}{RequestedMessage: requested}
	if connectorID != nil {
		body.Evse = &evse{ID: *connectorID}
	}
	return "TriggerMessage", mustMarshal(body)
}

func v201UnlockConnector(connectorID int) (string, json.RawMessage) {
	// the 1.6 connector id addresses the EVSE; the connector within the
	// EVSE is always 1 for the stations this system manages
	body := struct {
		EvseID      int `json:"evseId"`
		ConnectorID int `json:"connectorId"`
	}{connectorID, 1}
	return "UnlockConnector", mustMarshal(body)
}

func v201ReserveNow(in ReserveNowInput) (string, json.RawMessage) {
	body := struct {
		ID             int     `json:"id"`
		ExpiryDateTime string  `json:"expiryDateTime"`
		IdToken        idToken `json:"idToken"`
		EvseID         *int    `json:"evseId,omitempty"`
	}{ID: in.ReservationID, ExpiryDateTime: in.ExpiryDate.UTC().Format(time.RFC3339), IdToken: newIdToken(in.IdTag)}
	if in.ConnectorID > 0 {
		evseID := in.ConnectorID
		body.EvseID = &evseID
	}
	return "ReserveNow", mustMarshal(body)
}

func v201CancelReservation(reservationID int) (string, json.RawMessage) {
	body := struct {
		ReservationID int `json:"reservationId"`
	}{reservationID}
	return "CancelReservation", mustMarshal(body)
}

func v201SendLocalList(version int, updateType string, entries []LocalListEntry) (string, json.RawMessage) {
	type idTokenInfo struct {
		Status string `json:"status"`
	}
	type authEntry struct {
		IdToken     idToken     `json:"idToken"`
		IdTokenInfo idTokenInfo `json:"idTokenInfo"`
	}
	list := make([]authEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, authEntry{
			IdToken:     newIdToken(e.IdTag),
			IdTokenInfo: idTokenInfo{Status: e.Status},
		})
	}
	body := struct {
		VersionNumber          int         `json:"versionNumber"`
		UpdateType             string      `json:"updateType"`
		LocalAuthorizationList []authEntry `json:"localAuthorizationList"`
	}{version, updateType, list}
	return "SendLocalList", mustMarshal(body)
}

func v201SetChargingProfile(connectorID int, profile json.RawMessage) (string, json.RawMessage) {
	body := struct {
		EvseID          int             `json:"evseId"`
		ChargingProfile json.RawMessage `json:"chargingProfile"`
	}{connectorID, profile}
	return "SetChargingProfile", mustMarshal(body)
}

func v201ClearChargingProfile(profileID *int) (string, json.RawMessage) {
	body := struct {
		ChargingProfileID *int `json:"chargingProfileId,omitempty"`
	}{profileID}
	return "ClearChargingProfile", mustMarshal(body)
}

func v201GetBaseReport(requestID int) (string, json.RawMessage) {
	body := struct {
		RequestID  int    `json:"requestId"`
		ReportBase string `json:"reportBase"`
	}{requestID, "FullInventory"}
	return "GetBaseReport", mustMarshal(body)
}

func v201GetCompositeSchedule(connectorID, duration int, chargingRateUnit *string) (string, json.RawMessage) {
	body := struct {
		EvseID           int     `json:"evseId"`
		Duration         int     `json:"duration"`
		ChargingRateUnit *string `json:"chargingRateUnit,omitempty"`
	}{connectorID, duration, chargingRateUnit}
	return "GetCompositeSchedule", mustMarshal(body)
}

var firmwareRequestSeq atomic.Int64

func v201UpdateFirmware(in UpdateFirmwareInput) (string, json.RawMessage) {
	type firmware struct {
		Location         string `json:"location"`
		RetrieveDateTime string `json:"retrieveDateTime"`
	}
	body := struct {
		RequestID     int64    `json:"requestId"`
		Retries       *int     `json:"retries,omitempty"`
		RetryInterval *int     `json:"retryInterval,omitempty"`
		Firmware      firmware `json:"firmware"`
	}{
		RequestID:     firmwareRequestSeq.Add(1),
		Retries:       in.Retries,
		RetryInterval: in.RetryInterval,
		Firmware: firmware{
			Location:         in.Location,
			RetrieveDateTime: in.RetrieveDate.UTC().Format(time.RFC3339),
		},
	}
	return "UpdateFirmware", mustMarshal(body)
}

func v201GetLog(in GetLogInput) (string, json.RawMessage) {
	logType := in.LogType
	if logType == "" {
		logType = "DiagnosticsLog"
	}
	type logParameters struct {
		RemoteLocation  string  `json:"remoteLocation"`
		OldestTimestamp *string `json:"oldestTimestamp,omitempty"`
		LatestTimestamp *string `json:"latestTimestamp,omitempty"`
	}
	params := logParameters{RemoteLocation: in.Location}
	if in.StartTime != nil {
		s := in.StartTime.UTC().Format(time.RFC3339)
		params.OldestTimestamp = &s
	}
	if in.StopTime != nil {
		s := in.StopTime.UTC().Format(time.RFC3339)
		params.LatestTimestamp = &s
	}
	body := struct {
		LogType   string        `json:"logType"`
		RequestID int           `json:"requestId"`
		Log       logParameters `json:"log"`
	}{logType, in.RequestID, params}
	return "GetLog", mustMarshal(body)
}
