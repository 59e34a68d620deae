package memory

import (
	"context"
	"sync"
	"time"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

type ChargePointRepository struct {
	mu     sync.RWMutex
	points map[string]domain.ChargePoint
}

func NewChargePointRepository() *ChargePointRepository {
	return &ChargePointRepository{points: make(map[string]domain.ChargePoint)}
}

func (r *ChargePointRepository) Save(ctx context.Context, cp *domain.ChargePoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *cp
	stored.Connectors = append([]domain.Connector(nil), cp.Connectors...)
	r.points[cp.ID] = stored
	return nil
}

func (r *ChargePointRepository) FindByID(ctx context.Context, id string) (*domain.ChargePoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp, ok := r.points[id]
	if !ok {
		return nil, domain.NotFoundError("charge point", "id", id)
	}
	out := cp
	out.Connectors = append([]domain.Connector(nil), cp.Connectors...)
	return &out, nil
}

func (r *ChargePointRepository) FindAll(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ChargePoint
	for _, cp := range r.points {
		if status, ok := filter["status"]; ok && cp.Status != status.(domain.ChargePointStatus) {
			continue
		}
		if vendor, ok := filter["vendor"]; ok && cp.Vendor != vendor.(string) {
			continue
		}
		copied := cp
		copied.Connectors = append([]domain.Connector(nil), cp.Connectors...)
		out = append(out, copied)
	}
	return out, nil
}

func (r *ChargePointRepository) UpdateStatus(ctx context.Context, id string, status domain.ChargePointStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.points[id]
	if !ok {
		return domain.NotFoundError("charge point", "id", id)
	}
	cp.Status = status
	cp.UpdatedAt = time.Now().UTC()
	r.points[id] = cp
	return nil
}

func (r *ChargePointRepository) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.points[id]
	if !ok {
		return domain.NotFoundError("charge point", "id", id)
	}
	cp.LastHeartbeat = &at
	r.points[id] = cp
	return nil
}

func (r *ChargePointRepository) UpdateConnectorStatus(ctx context.Context, id string, connector *domain.Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.points[id]
	if !ok {
		return domain.NotFoundError("charge point", "id", id)
	}
	connector.ChargePointID = id
	for i := range cp.Connectors {
		if cp.Connectors[i].ConnectorID == connector.ConnectorID {
			cp.Connectors[i] = *connector
			r.points[id] = cp
			return nil
		}
	}
	cp.Connectors = append(cp.Connectors, *connector)
	r.points[id] = cp
	return nil
}

func (r *ChargePointRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.points[id]; !ok {
		return domain.NotFoundError("charge point", "id", id)
	}
	delete(r.points, id)
	return nil
}
