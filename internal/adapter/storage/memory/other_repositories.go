package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

type IdTagRepository struct {
	mu   sync.RWMutex
	tags map[string]domain.IdTag
}

func NewIdTagRepository() *IdTagRepository {
	return &IdTagRepository{tags: make(map[string]domain.IdTag)}
}

func (r *IdTagRepository) Save(ctx context.Context, tag *domain.IdTag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[tag.IdTag] = *tag
	return nil
}

func (r *IdTagRepository) FindByTag(ctx context.Context, tag string) (*domain.IdTag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tags[tag]
	if !ok {
		return nil, domain.NotFoundError("id tag", "id_tag", tag)
	}
	return &t, nil
}

func (r *IdTagRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.IdTag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	var all []domain.IdTag
	for _, t := range r.tags {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].IdTag < all[j].IdTag })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *IdTagRepository) Update(ctx context.Context, tag *domain.IdTag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tags[tag.IdTag]; !ok {
		return domain.NotFoundError("id tag", "id_tag", tag.IdTag)
	}
	r.tags[tag.IdTag] = *tag
	return nil
}

func (r *IdTagRepository) Delete(ctx context.Context, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tags[tag]; !ok {
		return domain.NotFoundError("id tag", "id_tag", tag)
	}
	delete(r.tags, tag)
	return nil
}

func (r *IdTagRepository) TouchLastUsed(ctx context.Context, tag string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tags[tag]
	if !ok {
		return domain.NotFoundError("id tag", "id_tag", tag)
	}
	t.LastUsedAt = &at
	r.tags[tag] = t
	return nil
}

type ReservationRepository struct {
	mu           sync.RWMutex
	nextID       int
	reservations map[int]domain.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{reservations: make(map[int]domain.Reservation)}
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reservation.ID == 0 {
		r.nextID++
		reservation.ID = r.nextID
	} else if reservation.ID > r.nextID {
		r.nextID = reservation.ID
	}
	r.reservations[reservation.ID] = *reservation
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, domain.NotFoundError("reservation", "id", id)
	}
	return &res, nil
}

func (r *ReservationRepository) FindActiveByChargePoint(ctx context.Context, chargePointID string) ([]domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Reservation
	for _, res := range r.reservations {
		if res.ChargePointID == chargePointID && res.IsActive() {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ReservationRepository) FindActiveByConnector(ctx context.Context, chargePointID string, connectorID int) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.reservations {
		if res.ChargePointID == chargePointID && res.ConnectorID == connectorID && res.IsActive() {
			copied := res
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *ReservationRepository) FindOverdue(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Reservation
	for _, res := range r.reservations {
		if res.IsOverdue(now) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ReservationRepository) Update(ctx context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reservations[reservation.ID]; !ok {
		return domain.NotFoundError("reservation", "id", reservation.ID)
	}
	r.reservations[reservation.ID] = *reservation
	return nil
}

type TariffRepository struct {
	mu      sync.RWMutex
	nextID  int
	tariffs map[int]domain.Tariff
}

func NewTariffRepository() *TariffRepository {
	return &TariffRepository{tariffs: make(map[int]domain.Tariff)}
}

func (r *TariffRepository) Save(ctx context.Context, tariff *domain.Tariff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tariff.ID == 0 {
		r.nextID++
		tariff.ID = r.nextID
	} else if tariff.ID > r.nextID {
		r.nextID = tariff.ID
	}
	r.tariffs[tariff.ID] = *tariff
	return nil
}

func (r *TariffRepository) FindByID(ctx context.Context, id int) (*domain.Tariff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tariffs[id]
	if !ok {
		return nil, domain.NotFoundError("tariff", "id", id)
	}
	return &t, nil
}

func (r *TariffRepository) FindDefault(ctx context.Context) (*domain.Tariff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tariffs {
		if t.IsDefault && t.IsActive {
			copied := t
			return &copied, nil
		}
	}
	return nil, domain.NotFoundError("tariff", "is_default", true)
}

func (r *TariffRepository) FindAll(ctx context.Context, activeOnly bool) ([]domain.Tariff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Tariff
	for _, t := range r.tariffs {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TariffRepository) Update(ctx context.Context, tariff *domain.Tariff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tariffs[tariff.ID]; !ok {
		return domain.NotFoundError("tariff", "id", tariff.ID)
	}
	r.tariffs[tariff.ID] = *tariff
	return nil
}

func (r *TariffRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tariffs[id]; !ok {
		return domain.NotFoundError("tariff", "id", id)
	}
	delete(r.tariffs, id)
	return nil
}

type BillingRepository struct {
	mu      sync.RWMutex
	nextID  int
	records map[int]domain.TransactionBilling
}

func NewBillingRepository() *BillingRepository {
	return &BillingRepository{records: make(map[int]domain.TransactionBilling)}
}

func (r *BillingRepository) Save(ctx context.Context, billing *domain.TransactionBilling) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if billing.ID == 0 {
		r.nextID++
		billing.ID = r.nextID
	}
	r.records[billing.ID] = *billing
	return nil
}

func (r *BillingRepository) FindByTransactionID(ctx context.Context, transactionID int) (*domain.TransactionBilling, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.TransactionID == transactionID {
			copied := rec
			return &copied, nil
		}
	}
	return nil, domain.NotFoundError("billing record", "transaction_id", transactionID)
}

func (r *BillingRepository) UpdateStatus(ctx context.Context, id int, status domain.BillingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.NotFoundError("billing record", "id", id)
	}
	rec.Status = status
	r.records[id] = rec
	return nil
}

type ChargingProfileRepository struct {
	mu       sync.RWMutex
	nextID   int
	profiles map[int]domain.ChargingProfile
}

func NewChargingProfileRepository() *ChargingProfileRepository {
	return &ChargingProfileRepository{profiles: make(map[int]domain.ChargingProfile)}
}

func (r *ChargingProfileRepository) Save(ctx context.Context, profile *domain.ChargingProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile.ID == 0 {
		r.nextID++
		profile.ID = r.nextID
	}
	r.profiles[profile.ID] = *profile
	return nil
}

func (r *ChargingProfileRepository) FindByChargePoint(ctx context.Context, chargePointID string, activeOnly bool) ([]domain.ChargingProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ChargingProfile
	for _, p := range r.profiles {
		if p.ChargePointID != chargePointID {
			continue
		}
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StackLevel > out[j].StackLevel })
	return out, nil
}

func (r *ChargingProfileRepository) DeactivateByProfileID(ctx context.Context, chargePointID string, profileID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.profiles {
		if p.ChargePointID == chargePointID && p.ProfileID == profileID {
			p.IsActive = false
			r.profiles[id] = p
		}
	}
	return nil
}

func (r *ChargingProfileRepository) DeactivateAll(ctx context.Context, chargePointID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.profiles {
		if p.ChargePointID == chargePointID {
			p.IsActive = false
			r.profiles[id] = p
		}
	}
	return nil
}
