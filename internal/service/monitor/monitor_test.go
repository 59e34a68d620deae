package monitor

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/mocks"
)

type fakeSessions struct {
	connected map[string]bool
}

func (f *fakeSessions) IsConnected(id string) bool { return f.connected[id] }

func (f *fakeSessions) ConnectedIDs() []string {
	var ids []string
	for id, on := range f.connected {
		if on {
			ids = append(ids, id)
		}
	}
	return ids
}

func stationWithHeartbeat(id string, status domain.ChargePointStatus, age time.Duration) domain.ChargePoint {
	hb := time.Now().UTC().Add(-age)
	return domain.ChargePoint{ID: id, Status: status, LastHeartbeat: &hb}
}

func TestCheckOnceMarksDisconnectedStationOffline(t *testing.T) {
	// Arrange: station Online in the database, socket gone, heartbeat 4 min old
	repo := &mocks.MockChargePointRepository{
		FindAllFunc: func(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
			return []domain.ChargePoint{stationWithHeartbeat("CP001", domain.ChargePointStatusOnline, 4*time.Minute)}, nil
		},
	}
	var updated domain.ChargePointStatus
	repo.UpdateStatusFunc = func(ctx context.Context, id string, status domain.ChargePointStatus) error {
		updated = status
		return nil
	}
	bus := events.NewBus(zap.NewNop())
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	m := NewHeartbeatMonitor(repo, &fakeSessions{connected: map[string]bool{}}, bus, zap.NewNop())

	// Act
	if err := m.CheckOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Assert
	if updated != domain.ChargePointStatusOffline {
		t.Errorf("expected Offline, got %s", updated)
	}
	select {
	case env := <-sub.C:
		if env.Type != "charge_point_status_changed" {
			t.Errorf("expected status change event, got %s", env.Type)
		}
	default:
		t.Error("expected a status change event")
	}
}

func TestCheckOnceStuckStationUnavailable(t *testing.T) {
	// socket open but no heartbeat for 11 minutes
	repo := &mocks.MockChargePointRepository{
		FindAllFunc: func(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
			return []domain.ChargePoint{stationWithHeartbeat("CP001", domain.ChargePointStatusOnline, 11*time.Minute)}, nil
		},
	}
	var updated domain.ChargePointStatus
	repo.UpdateStatusFunc = func(ctx context.Context, id string, status domain.ChargePointStatus) error {
		updated = status
		return nil
	}
	m := NewHeartbeatMonitor(repo, &fakeSessions{connected: map[string]bool{"CP001": true}}, events.NewBus(zap.NewNop()), zap.NewNop())

	if err := m.CheckOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != domain.ChargePointStatusUnavailable {
		t.Errorf("expected Unavailable, got %s", updated)
	}
}

func TestCheckOnceHealthyStationUntouched(t *testing.T) {
	repo := &mocks.MockChargePointRepository{
		FindAllFunc: func(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
			return []domain.ChargePoint{stationWithHeartbeat("CP001", domain.ChargePointStatusOnline, 30*time.Second)}, nil
		},
	}
	updates := 0
	repo.UpdateStatusFunc = func(ctx context.Context, id string, status domain.ChargePointStatus) error {
		updates++
		return nil
	}
	m := NewHeartbeatMonitor(repo, &fakeSessions{connected: map[string]bool{"CP001": true}}, events.NewBus(zap.NewNop()), zap.NewNop())

	if err := m.CheckOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updates != 0 {
		t.Errorf("expected no status update, got %d", updates)
	}
}

func TestCheckOnceNeverConnectedIsUnknown(t *testing.T) {
	repo := &mocks.MockChargePointRepository{
		FindAllFunc: func(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
			return []domain.ChargePoint{{ID: "CP001", Status: domain.ChargePointStatusOffline}}, nil
		},
	}
	var updated domain.ChargePointStatus
	repo.UpdateStatusFunc = func(ctx context.Context, id string, status domain.ChargePointStatus) error {
		updated = status
		return nil
	}
	m := NewHeartbeatMonitor(repo, &fakeSessions{connected: map[string]bool{}}, events.NewBus(zap.NewNop()), zap.NewNop())

	if err := m.CheckOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != domain.ChargePointStatusUnknown {
		t.Errorf("expected Unknown, got %s", updated)
	}
}

func TestGetConnectionStats(t *testing.T) {
	// Arrange: one connected and fresh, one disconnected and stale
	repo := &mocks.MockChargePointRepository{
		FindAllFunc: func(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
			return []domain.ChargePoint{
				stationWithHeartbeat("CP001", domain.ChargePointStatusOnline, 30*time.Second),
				stationWithHeartbeat("CP002", domain.ChargePointStatusOffline, 10*time.Minute),
			}, nil
		},
	}
	m := NewHeartbeatMonitor(repo, &fakeSessions{connected: map[string]bool{"CP001": true}}, events.NewBus(zap.NewNop()), zap.NewNop())

	// Act
	stats, err := m.GetConnectionStats(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 2 || stats.Online != 1 || stats.Offline != 1 || stats.Stale != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGetAllStatusesReportsHeartbeatAge(t *testing.T) {
	repo := &mocks.MockChargePointRepository{
		FindAllFunc: func(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
			return []domain.ChargePoint{stationWithHeartbeat("CP001", domain.ChargePointStatusOnline, 2*time.Minute)}, nil
		},
	}
	m := NewHeartbeatMonitor(repo, &fakeSessions{connected: map[string]bool{"CP001": true}}, events.NewBus(zap.NewNop()), zap.NewNop())

	statuses, err := m.GetAllStatuses(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	s := statuses[0]
	if !s.IsConnected {
		t.Error("expected connected")
	}
	if s.SecondsSinceHeartbeat == nil || *s.SecondsSinceHeartbeat < 115 || *s.SecondsSinceHeartbeat > 125 {
		t.Errorf("unexpected heartbeat age: %v", s.SecondsSinceHeartbeat)
	}
}

func TestExpireOnceMarksOverdueReservations(t *testing.T) {
	// Arrange
	expiry := time.Now().UTC().Add(-time.Minute)
	overdue := domain.Reservation{
		ID:            5,
		ChargePointID: "CP001",
		ConnectorID:   1,
		IdTag:         "TAG001",
		ExpiryDate:    expiry,
		Status:        domain.ReservationStatusAccepted,
	}
	repo := &mocks.MockReservationRepository{
		FindOverdueFunc: func(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
			return []domain.Reservation{overdue}, nil
		},
	}
	var updated *domain.Reservation
	repo.UpdateFunc = func(ctx context.Context, r *domain.Reservation) error {
		updated = r
		return nil
	}
	bus := events.NewBus(zap.NewNop())
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	task := NewReservationExpiry(repo, bus, zap.NewNop())

	// Act
	if err := task.ExpireOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Assert
	if updated == nil || updated.Status != domain.ReservationStatusExpired {
		t.Errorf("expected reservation marked Expired, got %+v", updated)
	}
	select {
	case env := <-sub.C:
		if env.Type != "reservation_expired" {
			t.Errorf("expected reservation_expired event, got %s", env.Type)
		}
	default:
		t.Error("expected reservation_expired event")
	}
}

func TestExpireOnceNoOverdueNoop(t *testing.T) {
	repo := &mocks.MockReservationRepository{}
	updates := 0
	repo.UpdateFunc = func(ctx context.Context, r *domain.Reservation) error {
		updates++
		return nil
	}
	task := NewReservationExpiry(repo, events.NewBus(zap.NewNop()), zap.NewNop())

	if err := task.ExpireOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updates != 0 {
		t.Errorf("expected no updates, got %d", updates)
	}
}
