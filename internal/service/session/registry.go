package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

// reconnectDebounce is the minimum interval between reconnections from the
// same charge point.
const reconnectDebounce = 5 * time.Second

// RegisterOutcome reports what happened during registration.
type RegisterOutcome struct {
	Connection *Connection
	// Evicted is the prior session replaced by this registration, if any.
	Evicted *Connection
	// Debounced is set when the reconnect came too fast; Connection is nil
	// and the caller should reject the upgrade.
	Debounced        bool
	SecondsRemaining int64
}

// Registry is a thread-safe map of charge point id to live Connection.
// At most one Connection exists per id at any time.
type Registry struct {
	mu             sync.RWMutex
	sessions       map[string]*Connection
	lastDisconnect map[string]time.Time
	nextID         atomic.Int64
	logger         *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions:       make(map[string]*Connection),
		lastDisconnect: make(map[string]time.Time),
		logger:         logger,
	}
}

// Register inserts a new Connection for the charge point, evicting any
// prior session. Reconnects within the debounce window are rejected.
func (r *Registry) Register(chargePointID string, version domain.OcppVersion) RegisterOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lastDC, ok := r.lastDisconnect[chargePointID]; ok {
		elapsed := time.Since(lastDC)
		if elapsed < reconnectDebounce {
			remaining := int64((reconnectDebounce - elapsed).Seconds()) + 1
			r.logger.Warn("reconnection too fast, debouncing",
				zap.String("charge_point_id", chargePointID),
				zap.Duration("elapsed", elapsed))
			return RegisterOutcome{Debounced: true, SecondsRemaining: remaining}
		}
	}

	var evicted *Connection
	if old, ok := r.sessions[chargePointID]; ok {
		r.logger.Warn("evicting stale session, new connection replaces old",
			zap.String("charge_point_id", chargePointID),
			zap.String("old_version", string(old.Version)),
			zap.Time("connected_since", old.ConnectedAt))
		// closing the send channel makes the old writer goroutine exit
		old.close()
		delete(r.sessions, chargePointID)
		evicted = old
	}

	conn := newConnection(r.nextID.Add(1), chargePointID, version)
	r.sessions[chargePointID] = conn
	delete(r.lastDisconnect, chargePointID)

	connectedStations.Set(float64(len(r.sessions)))
	r.logger.Info("charge point session registered",
		zap.String("charge_point_id", chargePointID),
		zap.String("ocpp_version", string(version)),
		zap.Int64("connection_id", conn.ID))

	return RegisterOutcome{Connection: conn, Evicted: evicted}
}

// Unregister removes the given connection. The pointer check means a stale
// reader goroutine cannot unregister the session that evicted it.
func (r *Registry) Unregister(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[conn.ChargePointID]
	if !ok || current != conn {
		r.logger.Debug("unregister skipped, session already replaced",
			zap.String("charge_point_id", conn.ChargePointID))
		conn.close()
		return
	}

	delete(r.sessions, conn.ChargePointID)
	r.lastDisconnect[conn.ChargePointID] = time.Now().UTC()
	conn.close()

	connectedStations.Set(float64(len(r.sessions)))
	r.logger.Info("charge point session unregistered",
		zap.String("charge_point_id", conn.ChargePointID))
}

// Discard removes a connection that never carried traffic, such as a failed
// websocket upgrade. Unlike Unregister it does not arm the reconnect
// debounce, so the charge point may retry immediately.
func (r *Registry) Discard(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[conn.ChargePointID]; ok && current == conn {
		delete(r.sessions, conn.ChargePointID)
		connectedStations.Set(float64(len(r.sessions)))
	}
	conn.close()
}

// SendTo queues text on the charge point's connection.
func (r *Registry) SendTo(chargePointID string, text []byte) error {
	r.mu.RLock()
	conn, ok := r.sessions[chargePointID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("charge point %s not connected", chargePointID)
	}
	return conn.Send(text)
}

// Touch refreshes the activity timestamp for a charge point.
func (r *Registry) Touch(chargePointID string) {
	r.mu.RLock()
	conn, ok := r.sessions[chargePointID]
	r.mu.RUnlock()
	if ok {
		conn.Touch()
	}
}

func (r *Registry) IsConnected(chargePointID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[chargePointID]
	return ok
}

func (r *Registry) ConnectedIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Version returns the negotiated OCPP version for a connected charge point.
func (r *Registry) Version(chargePointID string) (domain.OcppVersion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.sessions[chargePointID]
	if !ok {
		return "", false
	}
	return conn.Version, true
}

// Broadcast queues text on every connection, logging per-connection failures.
func (r *Registry) Broadcast(text []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, conn := range r.sessions {
		if err := conn.Send(text); err != nil {
			r.logger.Warn("broadcast to charge point failed",
				zap.String("charge_point_id", id),
				zap.Error(err))
		}
	}
}

// CloseAll closes every live session's send channel so the per-connection
// writer goroutines exit and their sockets close. Used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, conn := range r.sessions {
		conn.close()
		delete(r.sessions, id)
	}
	connectedStations.Set(0)
	r.logger.Info("all charge point sessions closed")
}

// LastActivity returns the last inbound activity for a charge point.
func (r *Registry) LastActivity(chargePointID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.sessions[chargePointID]
	if !ok {
		return time.Time{}, false
	}
	return conn.LastActivity(), true
}
