package report

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Report is the aggregated result of a GetBaseReport request: the
// concatenated NotifyReport parts for one (station, requestId) pair.
type Report struct {
	ChargePointID string          `json:"charge_point_id"`
	RequestID     int             `json:"request_id"`
	Data          json.RawMessage `json:"data"`
	PartsReceived int             `json:"parts_received"`
	Complete      bool            `json:"complete"`
	StartedAt     time.Time       `json:"started_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type reportKey struct {
	chargePointID string
	requestID     int
}

// Store collects NotifyReport parts in memory. Reports arrive in parts
// flagged with tbc (to-be-continued); a part without the flag closes the
// report and makes it the station's latest.
type Store struct {
	mu      sync.Mutex
	reports map[reportKey]*Report
	latest  map[string]int
	logger  *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{
		reports: make(map[reportKey]*Report),
		latest:  make(map[string]int),
		logger:  logger,
	}
}

// Init registers an expected report after GetBaseReport was accepted.
// Re-initializing an id discards any previously collected parts.
func (s *Store) Init(chargePointID string, requestID int) {
	now := time.Now().UTC()
	s.mu.Lock()
	s.reports[reportKey{chargePointID, requestID}] = &Report{
		ChargePointID: chargePointID,
		RequestID:     requestID,
		Data:          json.RawMessage("[]"),
		StartedAt:     now,
		UpdatedAt:     now,
	}
	s.mu.Unlock()
}

// Append merges one NotifyReport part. Parts for an id that was never
// initialized open a report implicitly, so restarts of the central system
// do not lose in-flight reports.
func (s *Store) Append(chargePointID string, requestID int, reportData json.RawMessage, tbc bool) {
	now := time.Now().UTC()
	key := reportKey{chargePointID, requestID}

	s.mu.Lock()
	defer s.mu.Unlock()

	rep, ok := s.reports[key]
	if !ok {
		rep = &Report{
			ChargePointID: chargePointID,
			RequestID:     requestID,
			Data:          json.RawMessage("[]"),
			StartedAt:     now,
		}
		s.reports[key] = rep
	}
	if rep.Complete {
		s.logger.Warn("report part after completion, ignored",
			zap.String("charge_point_id", chargePointID),
			zap.Int("request_id", requestID))
		return
	}

	rep.Data = appendPart(rep.Data, reportData)
	rep.PartsReceived++
	rep.UpdatedAt = now

	if !tbc {
		rep.Complete = true
		s.latest[chargePointID] = requestID
		s.logger.Info("device report complete",
			zap.String("charge_point_id", chargePointID),
			zap.Int("request_id", requestID),
			zap.Int("parts", rep.PartsReceived))
	}
}

// Get returns the report for a specific request id.
func (s *Store) Get(chargePointID string, requestID int) (*Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reports[reportKey{chargePointID, requestID}]
	if !ok {
		return nil, false
	}
	cp := *rep
	return &cp, true
}

// GetLatest returns the most recently completed report for a station.
func (s *Store) GetLatest(chargePointID string) (*Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requestID, ok := s.latest[chargePointID]
	if !ok {
		return nil, false
	}
	rep, ok := s.reports[reportKey{chargePointID, requestID}]
	if !ok {
		return nil, false
	}
	cp := *rep
	return &cp, true
}

// Drop removes all reports collected for a station.
func (s *Store) Drop(chargePointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.reports {
		if key.chargePointID == chargePointID {
			delete(s.reports, key)
		}
	}
	delete(s.latest, chargePointID)
}

// appendPart concatenates two JSON arrays; non-array parts are wrapped.
func appendPart(existing, part json.RawMessage) json.RawMessage {
	var acc []json.RawMessage
	if err := json.Unmarshal(existing, &acc); err != nil {
		acc = nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(part, &items); err != nil {
		// a single object part counts as one item
		items = []json.RawMessage{part}
	}
	acc = append(acc, items...)

	out, err := json.Marshal(acc)
	if err != nil {
		return existing
	}
	return out
}
