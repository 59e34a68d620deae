package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

// HeartbeatConfig controls the staleness thresholds of the monitor.
type HeartbeatConfig struct {
	CheckInterval        time.Duration
	OfflineThreshold     time.Duration
	UnavailableThreshold time.Duration
}

func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		CheckInterval:        60 * time.Second,
		OfflineThreshold:     180 * time.Second,
		UnavailableThreshold: 600 * time.Second,
	}
}

// SessionLookup is the slice of the session registry the monitor needs.
type SessionLookup interface {
	IsConnected(chargePointID string) bool
	ConnectedIDs() []string
}

// HeartbeatStatus is one station's liveness as seen by the monitor.
type HeartbeatStatus struct {
	ChargePointID         string                   `json:"charge_point_id"`
	LastHeartbeat         *time.Time               `json:"last_heartbeat,omitempty"`
	IsConnected           bool                     `json:"is_connected"`
	Status                domain.ChargePointStatus `json:"status"`
	SecondsSinceHeartbeat *int64                   `json:"seconds_since_heartbeat,omitempty"`
}

// ConnectionStats aggregates station liveness for the monitoring API.
type ConnectionStats struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Stale   int `json:"stale"`
}

// HeartbeatMonitor flips stations to Offline/Unavailable when their
// heartbeats stop, reconciling the database with the live session registry.
type HeartbeatMonitor struct {
	chargePoints ports.ChargePointRepository
	sessions     SessionLookup
	bus          *events.Bus
	config       HeartbeatConfig
	logger       *zap.Logger
}

func NewHeartbeatMonitor(chargePoints ports.ChargePointRepository, sessions SessionLookup, bus *events.Bus, logger *zap.Logger) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		chargePoints: chargePoints,
		sessions:     sessions,
		bus:          bus,
		config:       DefaultHeartbeatConfig(),
		logger:       logger,
	}
}

// WithConfig overrides the default thresholds.
func (m *HeartbeatMonitor) WithConfig(config HeartbeatConfig) *HeartbeatMonitor {
	if config.CheckInterval > 0 {
		m.config.CheckInterval = config.CheckInterval
	}
	if config.OfflineThreshold > 0 {
		m.config.OfflineThreshold = config.OfflineThreshold
	}
	if config.UnavailableThreshold > 0 {
		m.config.UnavailableThreshold = config.UnavailableThreshold
	}
	return m
}

// Run loops until the context is cancelled. Call it in its own goroutine.
func (m *HeartbeatMonitor) Run(ctx context.Context) {
	m.logger.Info("heartbeat monitor started",
		zap.Duration("check_interval", m.config.CheckInterval),
		zap.Duration("offline_threshold", m.config.OfflineThreshold))

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.CheckOnce(ctx); err != nil {
				m.logger.Warn("heartbeat check failed", zap.Error(err))
			}
		case <-ctx.Done():
			m.logger.Info("heartbeat monitor stopped")
			return
		}
	}
}

// CheckOnce runs a single reconciliation pass.
func (m *HeartbeatMonitor) CheckOnce(ctx context.Context) error {
	stations, err := m.chargePoints.FindAll(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	for i := range stations {
		cp := &stations[i]
		newStatus := m.classify(cp, now)
		if newStatus == cp.Status {
			continue
		}

		m.logger.Info("station status changed",
			zap.String("charge_point_id", cp.ID),
			zap.String("from", string(cp.Status)),
			zap.String("to", string(newStatus)))

		if err := m.chargePoints.UpdateStatus(ctx, cp.ID, newStatus); err != nil {
			m.logger.Warn("status update failed",
				zap.String("charge_point_id", cp.ID),
				zap.Error(err))
			continue
		}

		m.bus.Publish(events.ChargePointStatusChanged{
			ChargePointID: cp.ID,
			OldStatus:     string(cp.Status),
			NewStatus:     string(newStatus),
			Timestamp:     now,
		})
	}
	return nil
}

// classify decides a station's status from its socket state and heartbeat
// age. An open socket keeps a station Online unless heartbeats stalled past
// the unavailable threshold.
func (m *HeartbeatMonitor) classify(cp *domain.ChargePoint, now time.Time) domain.ChargePointStatus {
	connected := m.sessions.IsConnected(cp.ID)

	if connected {
		if cp.LastHeartbeat != nil && now.Sub(*cp.LastHeartbeat) > m.config.UnavailableThreshold {
			return domain.ChargePointStatusUnavailable
		}
		return domain.ChargePointStatusOnline
	}

	if cp.LastHeartbeat == nil {
		return domain.ChargePointStatusUnknown
	}
	if now.Sub(*cp.LastHeartbeat) > m.config.UnavailableThreshold {
		return domain.ChargePointStatusUnavailable
	}
	return domain.ChargePointStatusOffline
}

// GetAllStatuses reports liveness for every known station.
func (m *HeartbeatMonitor) GetAllStatuses(ctx context.Context) ([]HeartbeatStatus, error) {
	stations, err := m.chargePoints.FindAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	statuses := make([]HeartbeatStatus, 0, len(stations))
	for i := range stations {
		statuses = append(statuses, m.statusOf(&stations[i], now))
	}
	return statuses, nil
}

// GetStatus reports liveness for one station.
func (m *HeartbeatMonitor) GetStatus(ctx context.Context, chargePointID string) (*HeartbeatStatus, error) {
	cp, err := m.chargePoints.FindByID(ctx, chargePointID)
	if err != nil {
		return nil, err
	}
	status := m.statusOf(cp, time.Now().UTC())
	return &status, nil
}

func (m *HeartbeatMonitor) statusOf(cp *domain.ChargePoint, now time.Time) HeartbeatStatus {
	status := HeartbeatStatus{
		ChargePointID: cp.ID,
		LastHeartbeat: cp.LastHeartbeat,
		IsConnected:   m.sessions.IsConnected(cp.ID),
		Status:        cp.Status,
	}
	if cp.LastHeartbeat != nil {
		secs := int64(now.Sub(*cp.LastHeartbeat).Seconds())
		status.SecondsSinceHeartbeat = &secs
	}
	return status
}

// GetOnlineChargePoints lists the stations with an open session.
func (m *HeartbeatMonitor) GetOnlineChargePoints() []string {
	return m.sessions.ConnectedIDs()
}

// GetConnectionStats counts stations by liveness. Stations whose heartbeat
// is older than the offline threshold (or who never sent one) count as
// stale regardless of socket state.
func (m *HeartbeatMonitor) GetConnectionStats(ctx context.Context) (ConnectionStats, error) {
	stations, err := m.chargePoints.FindAll(ctx, nil)
	if err != nil {
		return ConnectionStats{}, err
	}
	now := time.Now().UTC()

	stats := ConnectionStats{Total: len(stations)}
	for i := range stations {
		cp := &stations[i]
		if m.sessions.IsConnected(cp.ID) {
			stats.Online++
		} else {
			stats.Offline++
		}
		if cp.LastHeartbeat == nil || now.Sub(*cp.LastHeartbeat) > m.config.OfflineThreshold {
			stats.Stale++
		}
	}
	return stats, nil
}
