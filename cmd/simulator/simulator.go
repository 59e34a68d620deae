package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SimulatorConfig holds the simulated station's identity and wiring.
type SimulatorConfig struct {
	ServerURL       string
	ChargePointID   string
	Password        string
	Vendor          string
	Model           string
	SerialNumber    string
	FirmwareVersion string
	ConnectorCount  int
	IdTag           string
}

// ConnectorState tracks one connector of the simulated station.
type ConnectorState struct {
	ID            int
	Status        string
	MeterWh       int
	TransactionID int
}

// Simulator speaks OCPP 1.6 over WebSocket against the central system. It
// answers central-initiated calls and can run scripted charging sessions.
type Simulator struct {
	config *SimulatorConfig
	conn   *websocket.Conn
	log    *zap.Logger

	mu                sync.Mutex
	connectors        []ConnectorState
	configKeys        map[string]string
	heartbeatInterval int
	messageID         int
	pending           map[string]chan json.RawMessage

	writeMu  sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSimulator(config *SimulatorConfig, log *zap.Logger) *Simulator {
	connectors := make([]ConnectorState, config.ConnectorCount)
	for i := range connectors {
		connectors[i] = ConnectorState{ID: i + 1, Status: "Available"}
	}
	return &Simulator{
		config:     config,
		log:        log,
		connectors: connectors,
		configKeys: map[string]string{
			"HeartbeatInterval":        "300",
			"MeterValueSampleInterval": "10",
			"NumberOfConnectors":       strconv.Itoa(config.ConnectorCount),
		},
		heartbeatInterval: 300,
		pending:           make(map[string]chan json.RawMessage),
		stopChan:          make(chan struct{}),
	}
}

// Connect dials the central system, boots, and starts the heartbeat and
// status loops.
func (s *Simulator) Connect() error {
	url := strings.TrimSuffix(s.config.ServerURL, "/") + "/" + s.config.ChargePointID

	header := http.Header{}
	if s.config.Password != "" {
		creds := s.config.ChargePointID + ":" + s.config.Password
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	}

	dialer := websocket.Dialer{Subprotocols: []string{"ocpp1.6"}}
	conn, _, err := dialer.Dial(url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	s.conn = conn
	s.log.Info("Connected", zap.String("url", url), zap.String("subprotocol", conn.Subprotocol()))

	s.wg.Add(1)
	go s.readLoop()

	var boot struct {
		Status      string `json:"status"`
		CurrentTime string `json:"currentTime"`
		Interval    int    `json:"interval"`
	}
	if err := s.call("BootNotification", map[string]any{
		"chargePointVendor":       s.config.Vendor,
		"chargePointModel":        s.config.Model,
		"chargePointSerialNumber": s.config.SerialNumber,
		"firmwareVersion":         s.config.FirmwareVersion,
	}, &boot); err != nil {
		return fmt.Errorf("boot notification: %w", err)
	}
	s.log.Info("Booted", zap.String("status", boot.Status), zap.Int("interval", boot.Interval))
	if boot.Interval > 0 {
		s.mu.Lock()
		s.heartbeatInterval = boot.Interval
		s.mu.Unlock()
	}

	for i := range s.connectors {
		s.sendStatusNotification(s.connectors[i].ID, "Available", "NoError")
	}

	s.wg.Add(1)
	go s.heartbeatLoop()
	return nil
}

// Stop closes the connection and waits for the loops to exit.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.conn != nil {
		s.conn.Close()
	}
	s.wg.Wait()
}

// StartCharging authorizes the configured tag and opens a transaction on the
// given connector, then samples meter values until StopCharging.
func (s *Simulator) StartCharging(connectorID int) error {
	conn := s.connector(connectorID)
	if conn == nil {
		return fmt.Errorf("no connector %d", connectorID)
	}

	var auth struct {
		IdTagInfo struct {
			Status string `json:"status"`
		} `json:"idTagInfo"`
	}
	if err := s.call("Authorize", map[string]any{"idTag": s.config.IdTag}, &auth); err != nil {
		return err
	}
	if auth.IdTagInfo.Status != "Accepted" {
		return fmt.Errorf("authorization rejected: %s", auth.IdTagInfo.Status)
	}

	var start struct {
		TransactionID int `json:"transactionId"`
		IdTagInfo     struct {
			Status string `json:"status"`
		} `json:"idTagInfo"`
	}
	if err := s.call("StartTransaction", map[string]any{
		"connectorId": connectorID,
		"idTag":       s.config.IdTag,
		"meterStart":  conn.MeterWh,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, &start); err != nil {
		return err
	}
	if start.IdTagInfo.Status != "Accepted" {
		return fmt.Errorf("transaction rejected: %s", start.IdTagInfo.Status)
	}

	s.mu.Lock()
	conn.TransactionID = start.TransactionID
	conn.Status = "Charging"
	s.mu.Unlock()
	s.sendStatusNotification(connectorID, "Charging", "NoError")
	s.log.Info("Transaction started",
		zap.Int("connector", connectorID),
		zap.Int("transaction_id", start.TransactionID))

	s.wg.Add(1)
	go s.meterLoop(connectorID)
	return nil
}

// StopCharging closes the active transaction on the connector.
func (s *Simulator) StopCharging(connectorID int, reason string) error {
	conn := s.connector(connectorID)
	if conn == nil || conn.TransactionID == 0 {
		return fmt.Errorf("no active transaction on connector %d", connectorID)
	}

	s.mu.Lock()
	txID := conn.TransactionID
	meterStop := conn.MeterWh
	conn.TransactionID = 0
	conn.Status = "Available"
	s.mu.Unlock()

	payload := map[string]any{
		"transactionId": txID,
		"meterStop":     meterStop,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"idTag":         s.config.IdTag,
	}
	if reason != "" {
		payload["reason"] = reason
	}
	var stop struct{}
	if err := s.call("StopTransaction", payload, &stop); err != nil {
		return err
	}
	s.sendStatusNotification(connectorID, "Available", "NoError")
	s.log.Info("Transaction stopped", zap.Int("transaction_id", txID), zap.Int("meter_stop", meterStop))
	return nil
}

func (s *Simulator) heartbeatLoop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		interval := time.Duration(s.heartbeatInterval) * time.Second
		s.mu.Unlock()

		select {
		case <-s.stopChan:
			return
		case <-time.After(interval):
			var resp struct {
				CurrentTime string `json:"currentTime"`
			}
			if err := s.call("Heartbeat", map[string]any{}, &resp); err != nil {
				s.log.Warn("Heartbeat failed", zap.Error(err))
				return
			}
		}
	}
}

// meterLoop samples 7.4 kW worth of energy every ten seconds while the
// connector's transaction is open.
func (s *Simulator) meterLoop(connectorID int) {
	defer s.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			conn := s.connector(connectorID)
			s.mu.Lock()
			if conn == nil || conn.TransactionID == 0 {
				s.mu.Unlock()
				return
			}
			conn.MeterWh += 21 // 7.4 kW for 10s
			txID := conn.TransactionID
			meter := conn.MeterWh
			s.mu.Unlock()

			var resp struct{}
			err := s.call("MeterValues", map[string]any{
				"connectorId":   connectorID,
				"transactionId": txID,
				"meterValue": []map[string]any{{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
					"sampledValue": []map[string]any{{
						"value":     strconv.Itoa(meter),
						"measurand": "Energy.Active.Import.Register",
						"unit":      "Wh",
					}},
				}},
			}, &resp)
			if err != nil {
				s.log.Warn("MeterValues failed", zap.Error(err))
			}
		}
	}
}

func (s *Simulator) sendStatusNotification(connectorID int, status, errorCode string) {
	var resp struct{}
	err := s.call("StatusNotification", map[string]any{
		"connectorId": connectorID,
		"status":      status,
		"errorCode":   errorCode,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, &resp)
	if err != nil {
		s.log.Warn("StatusNotification failed", zap.Error(err))
	}
}

// call sends an OCPP Call and blocks for its CallResult.
func (s *Simulator) call(action string, payload any, result any) error {
	s.mu.Lock()
	s.messageID++
	id := fmt.Sprintf("sim-%d", s.messageID)
	ch := make(chan json.RawMessage, 1)
	s.pending[id] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.writeFrame([]any{2, id, action, payload}); err != nil {
		return err
	}

	select {
	case raw := <-ch:
		if result == nil {
			return nil
		}
		return json.Unmarshal(raw, result)
	case <-time.After(30 * time.Second):
		return fmt.Errorf("%s: timeout waiting for response", action)
	case <-s.stopChan:
		return fmt.Errorf("%s: simulator stopped", action)
	}
}

func (s *Simulator) writeFrame(frame []any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Simulator) readLoop() {
	defer s.wg.Done()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopChan:
			default:
				s.log.Warn("Connection closed", zap.Error(err))
			}
			return
		}

		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil || len(raw) < 3 {
			s.log.Warn("Unparseable frame", zap.ByteString("data", data))
			continue
		}
		var msgType int
		var id string
		json.Unmarshal(raw[0], &msgType)
		json.Unmarshal(raw[1], &id)

		switch msgType {
		case 2: // Call from the central system
			var action string
			json.Unmarshal(raw[2], &action)
			var payload json.RawMessage
			if len(raw) > 3 {
				payload = raw[3]
			}
			s.handleCall(id, action, payload)
		case 3: // CallResult
			s.mu.Lock()
			ch, ok := s.pending[id]
			s.mu.Unlock()
			if ok {
				ch <- raw[2]
			}
		case 4: // CallError
			var code string
			json.Unmarshal(raw[2], &code)
			s.log.Warn("CallError received", zap.String("id", id), zap.String("code", code))
			s.mu.Lock()
			ch, ok := s.pending[id]
			s.mu.Unlock()
			if ok {
				ch <- json.RawMessage(`{}`)
			}
		}
	}
}

// handleCall answers central-initiated operations. Unknown actions get a
// NotImplemented CallError.
func (s *Simulator) handleCall(id, action string, payload json.RawMessage) {
	s.log.Info("Call received", zap.String("action", action))

	reply := func(result any) {
		data, _ := json.Marshal(result)
		if err := s.writeFrame([]any{3, id, json.RawMessage(data)}); err != nil {
			s.log.Warn("Reply failed", zap.String("action", action), zap.Error(err))
		}
	}

	switch action {
	case "RemoteStartTransaction":
		var req struct {
			ConnectorID *int   `json:"connectorId"`
			IdTag       string `json:"idTag"`
		}
		json.Unmarshal(payload, &req)
		connectorID := 1
		if req.ConnectorID != nil {
			connectorID = *req.ConnectorID
		}
		reply(map[string]string{"status": "Accepted"})
		go func() {
			if err := s.StartCharging(connectorID); err != nil {
				s.log.Warn("Remote start failed", zap.Error(err))
			}
		}()

	case "RemoteStopTransaction":
		var req struct {
			TransactionID int `json:"transactionId"`
		}
		json.Unmarshal(payload, &req)
		target := 0
		s.mu.Lock()
		for i := range s.connectors {
			if s.connectors[i].TransactionID == req.TransactionID {
				target = s.connectors[i].ID
			}
		}
		s.mu.Unlock()
		if target == 0 {
			reply(map[string]string{"status": "Rejected"})
			return
		}
		reply(map[string]string{"status": "Accepted"})
		go func() {
			if err := s.StopCharging(target, "Remote"); err != nil {
				s.log.Warn("Remote stop failed", zap.Error(err))
			}
		}()

	case "Reset":
		reply(map[string]string{"status": "Accepted"})
		s.log.Info("Reset requested, reconnect manually")

	case "ChangeAvailability":
		var req struct {
			ConnectorID int    `json:"connectorId"`
			Type        string `json:"type"`
		}
		json.Unmarshal(payload, &req)
		status := "Available"
		if req.Type == "Inoperative" {
			status = "Unavailable"
		}
		reply(map[string]string{"status": "Accepted"})
		if conn := s.connector(req.ConnectorID); conn != nil {
			s.mu.Lock()
			conn.Status = status
			s.mu.Unlock()
			s.sendStatusNotification(req.ConnectorID, status, "NoError")
		}

	case "GetConfiguration":
		var req struct {
			Key []string `json:"key"`
		}
		json.Unmarshal(payload, &req)
		s.mu.Lock()
		keys := req.Key
		if len(keys) == 0 {
			for k := range s.configKeys {
				keys = append(keys, k)
			}
		}
		var known []map[string]any
		var unknown []string
		for _, k := range keys {
			if v, ok := s.configKeys[k]; ok {
				known = append(known, map[string]any{"key": k, "readonly": false, "value": v})
			} else {
				unknown = append(unknown, k)
			}
		}
		s.mu.Unlock()
		reply(map[string]any{"configurationKey": known, "unknownKey": unknown})

	case "ChangeConfiguration":
		var req struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		json.Unmarshal(payload, &req)
		s.mu.Lock()
		s.configKeys[req.Key] = req.Value
		if req.Key == "HeartbeatInterval" {
			if v, err := strconv.Atoi(req.Value); err == nil && v > 0 {
				s.heartbeatInterval = v
			}
		}
		s.mu.Unlock()
		reply(map[string]string{"status": "Accepted"})

	case "UnlockConnector":
		reply(map[string]string{"status": "Unlocked"})

	case "ClearCache", "SendLocalList", "CancelReservation":
		reply(map[string]string{"status": "Accepted"})

	case "GetLocalListVersion":
		reply(map[string]int{"listVersion": 0})

	case "ReserveNow":
		var req struct {
			ConnectorID int `json:"connectorId"`
		}
		json.Unmarshal(payload, &req)
		reply(map[string]string{"status": "Accepted"})
		if req.ConnectorID > 0 {
			s.sendStatusNotification(req.ConnectorID, "Reserved", "NoError")
		}

	case "TriggerMessage":
		var req struct {
			RequestedMessage string `json:"requestedMessage"`
			ConnectorID      *int   `json:"connectorId"`
		}
		json.Unmarshal(payload, &req)
		reply(map[string]string{"status": "Accepted"})
		go s.handleTrigger(req.RequestedMessage, req.ConnectorID)

	case "DataTransfer":
		reply(map[string]string{"status": "Accepted"})

	default:
		frame := []any{4, id, "NotImplemented", action, map[string]any{}}
		if err := s.writeFrame(frame); err != nil {
			s.log.Warn("CallError reply failed", zap.Error(err))
		}
	}
}

func (s *Simulator) handleTrigger(message string, connectorID *int) {
	switch message {
	case "Heartbeat":
		var resp struct{}
		s.call("Heartbeat", map[string]any{}, &resp)
	case "StatusNotification":
		s.mu.Lock()
		states := make([]ConnectorState, len(s.connectors))
		copy(states, s.connectors)
		s.mu.Unlock()
		for _, conn := range states {
			if connectorID == nil || conn.ID == *connectorID {
				s.sendStatusNotification(conn.ID, conn.Status, "NoError")
			}
		}
	case "BootNotification":
		var resp struct{}
		s.call("BootNotification", map[string]any{
			"chargePointVendor": s.config.Vendor,
			"chargePointModel":  s.config.Model,
		}, &resp)
	}
}

func (s *Simulator) connector(id int) *ConnectorState {
	for i := range s.connectors {
		if s.connectors[i].ID == id {
			return &s.connectors[i]
		}
	}
	return nil
}

// RunInteractive reads commands from stdin until quit or EOF.
func (s *Simulator) RunInteractive() {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "start":
			connector := 1
			if len(fields) > 1 {
				connector, _ = strconv.Atoi(fields[1])
			}
			err = s.StartCharging(connector)
		case "stop":
			connector := 1
			if len(fields) > 1 {
				connector, _ = strconv.Atoi(fields[1])
			}
			err = s.StopCharging(connector, "Local")
		case "status":
			if len(fields) < 3 {
				fmt.Println("usage: status <connector> <Available|Charging|Faulted|Unavailable>")
				continue
			}
			connector, _ := strconv.Atoi(fields[1])
			s.sendStatusNotification(connector, fields[2], "NoError")
		case "heartbeat":
			var resp struct {
				CurrentTime string `json:"currentTime"`
			}
			if err = s.call("Heartbeat", map[string]any{}, &resp); err == nil {
				fmt.Println("server time:", resp.CurrentTime)
			}
		case "fault":
			connector := 1
			if len(fields) > 1 {
				connector, _ = strconv.Atoi(fields[1])
			}
			s.sendStatusNotification(connector, "Faulted", "OtherError")
		case "quit", "exit":
			s.Stop()
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}
