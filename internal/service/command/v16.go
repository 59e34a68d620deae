package command

import (
	"encoding/json"
	"time"
)

// Payload builders for OCPP 1.6 actions. Field names follow the 1.6 JSON
// schema exactly.

func v16RemoteStart(idTag string, connectorID *int) (string, json.RawMessage) {
	body := struct {
		IdTag       string `json:"idTag"`
		ConnectorID *int   `json:"connectorId,omitempty"`
	}{idTag, connectorID}
	return "RemoteStartTransaction", mustMarshal(body)
}

func v16RemoteStop(transactionID int) (string, json.RawMessage) {
	body := struct {
		TransactionID int `json:"transactionId"`
	}{transactionID}
	return "RemoteStopTransaction", mustMarshal(body)
}

func v16Reset(kind ResetKind) (string, json.RawMessage) {
	body := struct {
		Type string `json:"type"`
	}{string(kind)}
	return "Reset", mustMarshal(body)
}

func v16ChangeAvailability(connectorID int, availability AvailabilityType) (string, json.RawMessage) {
	body := struct {
		ConnectorID int    `json:"connectorId"`
		Type        string `json:"type"`
	}{connectorID, string(availability)}
	return "ChangeAvailability", mustMarshal(body)
}

func v16ChangeConfiguration(key, value string) (string, json.RawMessage) {
	body := struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}{key, value}
	return "ChangeConfiguration", mustMarshal(body)
}

func v16GetConfiguration(keys []string) (string, json.RawMessage) {
	body := struct {
		Key []string `json:"key,omitempty"`
	}{keys}
	return "GetConfiguration", mustMarshal(body)
}

func v16DataTransfer(in DataTransferInput) (string, json.RawMessage) {
	body := struct {
		VendorID  string  `json:"vendorId"`
		MessageID *string `json:"messageId,omitempty"`
		Data      *string `json:"data,omitempty"`
	}{in.VendorID, in.MessageID, in.Data}
	return "DataTransfer", mustMarshal(body)
}

func v16TriggerMessage(requested string, connectorID *int) (string, json.RawMessage) {
	body := struct {
		RequestedMessage string `json:"requestedMessage"`
		ConnectorID      *int   `json:"connectorId,omitempty"`
	}{requested, connectorID}
	return "TriggerMessage", mustMarshal(body)
}

func v16UnlockConnector(connectorID int) (string, json.RawMessage) {
	body := struct {
		ConnectorID int `json:"connectorId"`
	}{connectorID}
	return "UnlockConnector", mustMarshal(body)
}

func v16ReserveNow(in ReserveNowInput) (string, json.RawMessage) {
	body := struct {
		ConnectorID   int     `json:"connectorId"`
		ExpiryDate    string  `json:"expiryDate"`
		IdTag         string  `json:"idTag"`
		ParentIdTag   *string `json:"parentIdTag,omitempty"`
		ReservationID int     `json:"reservationId"`
	}{in.ConnectorID, in.ExpiryDate.UTC().Format(time.RFC3339), in.IdTag, in.ParentIdTag, in.ReservationID}
	return "ReserveNow", mustMarshal(body)
}

func v16CancelReservation(reservationID int) (string, json.RawMessage) {
	body := struct {
		ReservationID int `json:"reservationId"`
	}{reservationID}
	return "CancelReservation", mustMarshal(body)
}

func v16SendLocalList(version int, updateType string, entries []LocalListEntry) (string, json.RawMessage) {
	type idTagInfo struct {
		Status      string  `json:"status"`
		ExpiryDate  *string `json:"expiryDate,omitempty"`
		ParentIdTag *string `json:"parentIdTag,omitempty"`
	}
	type authEntry struct {
		IdTag     string    `json:"idTag"`
		IdTagInfo idTagInfo `json:"idTagInfo"`
	}
	list := make([]authEntry, 0, len(entries))
	for _, e := range entries {
		info := idTagInfo{Status: e.Status, ParentIdTag: e.ParentIdTag}
		if e.ExpiryDate != nil {
			s := e.ExpiryDate.UTC().Format(time.RFC3339)
			info.ExpiryDate = &s
		}
		list = append(list, authEntry{IdTag: e.IdTag, IdTagInfo: info})
	}
	body := struct {
		ListVersion            int         `json:"listVersion"`
		UpdateType             string      `json:"updateType"`
		LocalAuthorizationList []authEntry `json:"localAuthorizationList"`
	}{version, updateType, list}
	return "SendLocalList", mustMarshal(body)
}

func v16SetChargingProfile(connectorID int, profile json.RawMessage) (string, json.RawMessage) {
	body := struct {
		ConnectorID        int             `json:"connectorId"`
		CsChargingProfiles json.RawMessage `json:"csChargingProfiles"`
	}{connectorID, profile}
	return "SetChargingProfile", mustMarshal(body)
}

func v16ClearChargingProfile(profileID *int) (string, json.RawMessage) {
	body := struct {
		ID *int `json:"id,omitempty"`
	}{profileID}
	return "ClearChargingProfile", mustMarshal(body)
}

func v16GetCompositeSchedule(connectorID, duration int, chargingRateUnit *string) (string, json.RawMessage) {
	body := struct {
		ConnectorID      int     `json:"connectorId"`
		Duration         int     `json:"duration"`
		ChargingRateUnit *string `json:"chargingRateUnit,omitempty"`
	}{connectorID, duration, chargingRateUnit}
	return "GetCompositeSchedule", mustMarshal(body)
}

func v16UpdateFirmware(in UpdateFirmwareInput) (string, json.RawMessage) {
	body := struct {
		Location      string `json:"location"`
		RetrieveDate  string `json:"retrieveDate"`
		Retries       *int   `json:"retries,omitempty"`
		RetryInterval *int   `json:"retryInterval,omitempty"`
	}{in.Location, in.RetrieveDate.UTC().Format(time.RFC3339), in.Retries, in.RetryInterval}
	return "UpdateFirmware", mustMarshal(body)
}

func v16GetDiagnostics(in GetDiagnosticsInput) (string, json.RawMessage) {
	body := struct {
		Location  string  `json:"location"`
		StartTime *string `json:"startTime,omitempty"`
		StopTime  *string `json:"stopTime,omitempty"`
		Retries   *int    `json:"retries,omitempty"`
	}{Location: in.Location, Retries: in.Retries}
	if in.StartTime != nil {
		s := in.StartTime.UTC().Format(time.RFC3339)
		body.StartTime = &s
	}
	if in.StopTime != nil {
		s := in.StopTime.UTC().Format(time.RFC3339)
		body.StopTime = &s
	}
	return "GetDiagnostics", mustMarshal(body)
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// builders only marshal plain structs; this cannot fail at runtime
		panic(err)
	}
	return data
}
