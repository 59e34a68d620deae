package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp/ocppj"
	"github.com/seu-repo/ocpp-central/internal/domain"
)

// DefaultTimeout bounds how long a caller waits for a charge point reply.
const DefaultTimeout = 30 * time.Second

// SessionDirectory is the slice of the session registry the sender needs.
type SessionDirectory interface {
	SendTo(chargePointID string, text []byte) error
	Version(chargePointID string) (domain.OcppVersion, bool)
	IsConnected(chargePointID string) bool
}

type pendingKey struct {
	chargePointID string
	uniqueID      string
}

type reply struct {
	payload     json.RawMessage
	errCode     string
	errDesc     string
	isCallError bool
}

type pendingEntry struct {
	action string
	ch     chan reply
}

// Sender owns the pending-request table correlating outbound Calls with
// inbound CallResult/CallError frames.
type Sender struct {
	directory SessionDirectory
	timeout   time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[pendingKey]*pendingEntry
	counter atomic.Int64
}

func NewSender(directory SessionDirectory, logger *zap.Logger) *Sender {
	return &Sender{
		directory: directory,
		timeout:   DefaultTimeout,
		logger:    logger,
		pending:   make(map[pendingKey]*pendingEntry),
	}
}

// WithTimeout overrides the reply timeout, mainly for tests.
func (s *Sender) WithTimeout(d time.Duration) *Sender {
	s.timeout = d
	return s
}

func (s *Sender) nextUniqueID() string {
	return fmt.Sprintf("CS-%d", s.counter.Add(1))
}

// SendCommand serializes a Call, hands it to the session's send channel and
// awaits the correlated reply.
func (s *Sender) SendCommand(ctx context.Context, chargePointID, action string, payload json.RawMessage) (json.RawMessage, error) {
	if !s.directory.IsConnected(chargePointID) {
		return nil, notConnected(chargePointID)
	}

	uniqueID := s.nextUniqueID()
	text, err := ocppj.Serialize(ocppj.NewCall(uniqueID, action, payload))
	if err != nil {
		return nil, invalidResponse(chargePointID, err.Error())
	}

	key := pendingKey{chargePointID, uniqueID}
	entry := &pendingEntry{action: action, ch: make(chan reply, 1)}

	s.mu.Lock()
	s.pending[key] = entry
	s.mu.Unlock()

	if err := s.directory.SendTo(chargePointID, text); err != nil {
		s.remove(key)
		s.logger.Warn("command send failed",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", action),
			zap.Error(err))
		return nil, notConnected(chargePointID)
	}

	s.logger.Debug("command sent",
		zap.String("charge_point_id", chargePointID),
		zap.String("action", action),
		zap.String("unique_id", uniqueID))

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case rep, ok := <-entry.ch:
		if !ok {
			return nil, invalidResponse(chargePointID, "channel closed")
		}
		if rep.isCallError {
			if rep.errCode == "NotConnected" {
				return nil, notConnected(chargePointID)
			}
			return nil, callError(chargePointID, rep.errCode, rep.errDesc)
		}
		return rep.payload, nil
	case <-timer.C:
		s.remove(key)
		return nil, timeoutError(chargePointID)
	case <-ctx.Done():
		s.remove(key)
		return nil, invalidResponse(chargePointID, ctx.Err().Error())
	}
}

// HandleResponse completes the pending request matching an inbound
// CallResult. Unmatched replies are logged and dropped.
func (s *Sender) HandleResponse(chargePointID, uniqueID string, payload json.RawMessage) {
	entry, ok := s.take(pendingKey{chargePointID, uniqueID})
	if !ok {
		s.logger.Warn("call result without pending request",
			zap.String("charge_point_id", chargePointID),
			zap.String("unique_id", uniqueID))
		return
	}
	entry.ch <- reply{payload: payload}
}

// HandleError completes the pending request matching an inbound CallError.
func (s *Sender) HandleError(chargePointID, uniqueID, code, description string) {
	entry, ok := s.take(pendingKey{chargePointID, uniqueID})
	if !ok {
		s.logger.Warn("call error without pending request",
			zap.String("charge_point_id", chargePointID),
			zap.String("unique_id", uniqueID),
			zap.String("code", code))
		return
	}
	entry.ch <- reply{errCode: code, errDesc: description, isCallError: true}
}

// CleanupChargePoint fails every pending request for a disconnected charge
// point with NotConnected so no caller hangs.
func (s *Sender) CleanupChargePoint(chargePointID string) {
	s.mu.Lock()
	var entries []*pendingEntry
	for key, entry := range s.pending {
		if key.chargePointID == chargePointID {
			entries = append(entries, entry)
			delete(s.pending, key)
		}
	}
	s.mu.Unlock()

	for _, entry := range entries {
		entry.ch <- reply{errCode: "NotConnected", errDesc: "connection dropped", isCallError: true}
	}
	if len(entries) > 0 {
		s.logger.Info("pending commands cancelled on disconnect",
			zap.String("charge_point_id", chargePointID),
			zap.Int("count", len(entries)))
	}
}

// PendingCount reports outstanding requests, mainly for tests and stats.
func (s *Sender) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Sender) take(key pendingKey) (*pendingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	return entry, ok
}

func (s *Sender) remove(key pendingKey) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}
