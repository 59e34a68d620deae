package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

// MockChargePointRepository is a mock implementation of ChargePointRepository
type MockChargePointRepository struct {
	SaveFunc                  func(ctx context.Context, cp *domain.ChargePoint) error
	FindByIDFunc              func(ctx context.Context, id string) (*domain.ChargePoint, error)
	FindAllFunc               func(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error)
	UpdateStatusFunc          func(ctx context.Context, id string, status domain.ChargePointStatus) error
	UpdateHeartbeatFunc       func(ctx context.Context, id string, at time.Time) error
	UpdateConnectorStatusFunc func(ctx context.Context, id string, connector *domain.Connector) error
	DeleteFunc                func(ctx context.Context, id string) error
}

func (m *MockChargePointRepository) Save(ctx context.Context, cp *domain.ChargePoint) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, cp)
	}
	return nil
}

func (m *MockChargePointRepository) FindByID(ctx context.Context, id string) (*domain.ChargePoint, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.NotFoundError("charge point", "id", id)
}

func (m *MockChargePointRepository) FindAll(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx, filter)
	}
	return []domain.ChargePoint{}, nil
}

func (m *MockChargePointRepository) UpdateStatus(ctx context.Context, id string, status domain.ChargePointStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockChargePointRepository) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	if m.UpdateHeartbeatFunc != nil {
		return m.UpdateHeartbeatFunc(ctx, id, at)
	}
	return nil
}

func (m *MockChargePointRepository) UpdateConnectorStatus(ctx context.Context, id string, connector *domain.Connector) error {
	if m.UpdateConnectorStatusFunc != nil {
		return m.UpdateConnectorStatusFunc(ctx, id, connector)
	}
	return nil
}

func (m *MockChargePointRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mu     sync.Mutex
	nextID int

	SaveFunc                    func(ctx context.Context, tx *domain.Transaction) error
	FindByIDFunc                func(ctx context.Context, id int) (*domain.Transaction, error)
	FindByOcppIDFunc            func(ctx context.Context, ocppID string) (*domain.Transaction, error)
	FindActiveByChargePointFunc func(ctx context.Context, chargePointID string) ([]domain.Transaction, error)
	FindActiveByConnectorFunc   func(ctx context.Context, chargePointID string, connectorID int) (*domain.Transaction, error)
	FindActiveByIdTagFunc       func(ctx context.Context, idTag string) ([]domain.Transaction, error)
	FindByChargePointFunc       func(ctx context.Context, chargePointID string, limit, offset int) ([]domain.Transaction, error)
	UpdateFunc                  func(ctx context.Context, tx *domain.Transaction) error
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx)
	}
	// assign ids the way the database would
	m.mu.Lock()
	m.nextID++
	tx.ID = m.nextID
	m.mu.Unlock()
	return nil
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id int) (*domain.Transaction, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.NotFoundError("transaction", "id", id)
}

func (m *MockTransactionRepository) FindByOcppID(ctx context.Context, ocppID string) (*domain.Transaction, error) {
	if m.FindByOcppIDFunc != nil {
		return m.FindByOcppIDFunc(ctx, ocppID)
	}
	return nil, domain.NotFoundError("transaction", "ocpp_transaction_id", ocppID)
}

func (m *MockTransactionRepository) FindActiveByChargePoint(ctx context.Context, chargePointID string) ([]domain.Transaction, error) {
	if m.FindActiveByChargePointFunc != nil {
		return m.FindActiveByChargePointFunc(ctx, chargePointID)
	}
	return []domain.Transaction{}, nil
}

func (m *MockTransactionRepository) FindActiveByConnector(ctx context.Context, chargePointID string, connectorID int) (*domain.Transaction, error) {
	if m.FindActiveByConnectorFunc != nil {
		return m.FindActiveByConnectorFunc(ctx, chargePointID, connectorID)
	}
	return nil, nil
}

func (m *MockTransactionRepository) FindActiveByIdTag(ctx context.Context, idTag string) ([]domain.Transaction, error) {
	if m.FindActiveByIdTagFunc != nil {
		return m.FindActiveByIdTagFunc(ctx, idTag)
	}
	return []domain.Transaction{}, nil
}

func (m *MockTransactionRepository) FindByChargePoint(ctx context.Context, chargePointID string, limit, offset int) ([]domain.Transaction, error) {
	if m.FindByChargePointFunc != nil {
		return m.FindByChargePointFunc(ctx, chargePointID, limit, offset)
	}
	return []domain.Transaction{}, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx)
	}
	return nil
}

// MockIdTagRepository is a mock implementation of IdTagRepository
type MockIdTagRepository struct {
	SaveFunc          func(ctx context.Context, tag *domain.IdTag) error
	FindByTagFunc     func(ctx context.Context, tag string) (*domain.IdTag, error)
	FindAllFunc       func(ctx context.Context, limit, offset int) ([]domain.IdTag, error)
	UpdateFunc        func(ctx context.Context, tag *domain.IdTag) error
	DeleteFunc        func(ctx context.Context, tag string) error
	TouchLastUsedFunc func(ctx context.Context, tag string, at time.Time) error
}

func (m *MockIdTagRepository) Save(ctx context.Context, tag *domain.IdTag) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tag)
	}
	return nil
}

func (m *MockIdTagRepository) FindByTag(ctx context.Context, tag string) (*domain.IdTag, error) {
	if m.FindByTagFunc != nil {
		return m.FindByTagFunc(ctx, tag)
	}
	return nil, domain.NotFoundError("id tag", "id_tag", tag)
}

func (m *MockIdTagRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.IdTag, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx, limit, offset)
	}
	return []domain.IdTag{}, nil
}

func (m *MockIdTagRepository) Update(ctx context.Context, tag *domain.IdTag) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tag)
	}
	return nil
}

func (m *MockIdTagRepository) Delete(ctx context.Context, tag string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tag)
	}
	return nil
}

func (m *MockIdTagRepository) TouchLastUsed(ctx context.Context, tag string, at time.Time) error {
	if m.TouchLastUsedFunc != nil {
		return m.TouchLastUsedFunc(ctx, tag, at)
	}
	return nil
}

// MockReservationRepository is a mock implementation of ReservationRepository
type MockReservationRepository struct {
	SaveFunc                    func(ctx context.Context, reservation *domain.Reservation) error
	FindByIDFunc                func(ctx context.Context, id int) (*domain.Reservation, error)
	FindActiveByChargePointFunc func(ctx context.Context, chargePointID string) ([]domain.Reservation, error)
	FindActiveByConnectorFunc   func(ctx context.Context, chargePointID string, connectorID int) (*domain.Reservation, error)
	FindOverdueFunc             func(ctx context.Context, now time.Time) ([]domain.Reservation, error)
	UpdateFunc                  func(ctx context.Context, reservation *domain.Reservation) error
}

func (m *MockReservationRepository) Save(ctx context.Context, reservation *domain.Reservation) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, reservation)
	}
	return nil
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.NotFoundError("reservation", "id", id)
}

func (m *MockReservationRepository) FindActiveByChargePoint(ctx context.Context, chargePointID string) ([]domain.Reservation, error) {
	if m.FindActiveByChargePointFunc != nil {
		return m.FindActiveByChargePointFunc(ctx, chargePointID)
	}
	return []domain.Reservation{}, nil
}

func (m *MockReservationRepository) FindActiveByConnector(ctx context.Context, chargePointID string, connectorID int) (*domain.Reservation, error) {
	if m.FindActiveByConnectorFunc != nil {
		return m.FindActiveByConnectorFunc(ctx, chargePointID, connectorID)
	}
	return nil, nil
}

func (m *MockReservationRepository) FindOverdue(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	if m.FindOverdueFunc != nil {
		return m.FindOverdueFunc(ctx, now)
	}
	return []domain.Reservation{}, nil
}

func (m *MockReservationRepository) Update(ctx context.Context, reservation *domain.Reservation) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, reservation)
	}
	return nil
}

// MockTariffRepository is a mock implementation of TariffRepository
type MockTariffRepository struct {
	SaveFunc        func(ctx context.Context, tariff *domain.Tariff) error
	FindByIDFunc    func(ctx context.Context, id int) (*domain.Tariff, error)
	FindDefaultFunc func(ctx context.Context) (*domain.Tariff, error)
	FindAllFunc     func(ctx context.Context, activeOnly bool) ([]domain.Tariff, error)
	UpdateFunc      func(ctx context.Context, tariff *domain.Tariff) error
	DeleteFunc      func(ctx context.Context, id int) error
}

func (m *MockTariffRepository) Save(ctx context.Context, tariff *domain.Tariff) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tariff)
	}
	return nil
}

func (m *MockTariffRepository) FindByID(ctx context.Context, id int) (*domain.Tariff, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.NotFoundError("tariff", "id", id)
}

func (m *MockTariffRepository) FindDefault(ctx context.Context) (*domain.Tariff, error) {
	if m.FindDefaultFunc != nil {
		return m.FindDefaultFunc(ctx)
	}
	return nil, domain.NotFoundError("tariff", "is_default", true)
}

func (m *MockTariffRepository) FindAll(ctx context.Context, activeOnly bool) ([]domain.Tariff, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx, activeOnly)
	}
	return []domain.Tariff{}, nil
}

func (m *MockTariffRepository) Update(ctx context.Context, tariff *domain.Tariff) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tariff)
	}
	return nil
}

func (m *MockTariffRepository) Delete(ctx context.Context, id int) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockBillingRepository is a mock implementation of BillingRepository
type MockBillingRepository struct {
	SaveFunc                func(ctx context.Context, billing *domain.TransactionBilling) error
	FindByTransactionIDFunc func(ctx context.Context, transactionID int) (*domain.TransactionBilling, error)
	UpdateStatusFunc        func(ctx context.Context, id int, status domain.BillingStatus) error
}

func (m *MockBillingRepository) Save(ctx context.Context, billing *domain.TransactionBilling) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, billing)
	}
	return nil
}

func (m *MockBillingRepository) FindByTransactionID(ctx context.Context, transactionID int) (*domain.TransactionBilling, error) {
	if m.FindByTransactionIDFunc != nil {
		return m.FindByTransactionIDFunc(ctx, transactionID)
	}
	return nil, domain.NotFoundError("billing", "transaction_id", transactionID)
}

func (m *MockBillingRepository) UpdateStatus(ctx context.Context, id int, status domain.BillingStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

// MockChargingProfileRepository is a mock implementation of ChargingProfileRepository
type MockChargingProfileRepository struct {
	SaveFunc                  func(ctx context.Context, profile *domain.ChargingProfile) error
	FindByChargePointFunc     func(ctx context.Context, chargePointID string, activeOnly bool) ([]domain.ChargingProfile, error)
	DeactivateByProfileIDFunc func(ctx context.Context, chargePointID string, profileID int) error
	DeactivateAllFunc         func(ctx context.Context, chargePointID string) error
}

func (m *MockChargingProfileRepository) Save(ctx context.Context, profile *domain.ChargingProfile) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, profile)
	}
	return nil
}

func (m *MockChargingProfileRepository) FindByChargePoint(ctx context.Context, chargePointID string, activeOnly bool) ([]domain.ChargingProfile, error) {
	if m.FindByChargePointFunc != nil {
		return m.FindByChargePointFunc(ctx, chargePointID, activeOnly)
	}
	return []domain.ChargingProfile{}, nil
}

func (m *MockChargingProfileRepository) DeactivateByProfileID(ctx context.Context, chargePointID string, profileID int) error {
	if m.DeactivateByProfileIDFunc != nil {
		return m.DeactivateByProfileIDFunc(ctx, chargePointID, profileID)
	}
	return nil
}

func (m *MockChargingProfileRepository) DeactivateAll(ctx context.Context, chargePointID string) error {
	if m.DeactivateAllFunc != nil {
		return m.DeactivateAllFunc(ctx, chargePointID)
	}
	return nil
}

// MockRepositoryProvider bundles the repository mocks.
type MockRepositoryProvider struct {
	ChargePointRepo     *MockChargePointRepository
	TransactionRepo     *MockTransactionRepository
	IdTagRepo           *MockIdTagRepository
	ReservationRepo     *MockReservationRepository
	TariffRepo          *MockTariffRepository
	BillingRepo         *MockBillingRepository
	ChargingProfileRepo *MockChargingProfileRepository
}

func NewMockRepositoryProvider() *MockRepositoryProvider {
	return &MockRepositoryProvider{
		ChargePointRepo:     &MockChargePointRepository{},
		TransactionRepo:     &MockTransactionRepository{},
		IdTagRepo:           &MockIdTagRepository{},
		ReservationRepo:     &MockReservationRepository{},
		TariffRepo:          &MockTariffRepository{},
		BillingRepo:         &MockBillingRepository{},
		ChargingProfileRepo: &MockChargingProfileRepository{},
	}
}

func (p *MockRepositoryProvider) ChargePoints() ports.ChargePointRepository { return p.ChargePointRepo }
func (p *MockRepositoryProvider) Transactions() ports.TransactionRepository { return p.TransactionRepo }
func (p *MockRepositoryProvider) IdTags() ports.IdTagRepository             { return p.IdTagRepo }
func (p *MockRepositoryProvider) Reservations() ports.ReservationRepository { return p.ReservationRepo }
func (p *MockRepositoryProvider) Tariffs() ports.TariffRepository           { return p.TariffRepo }
func (p *MockRepositoryProvider) Billing() ports.BillingRepository          { return p.BillingRepo }
func (p *MockRepositoryProvider) ChargingProfiles() ports.ChargingProfileRepository {
	return p.ChargingProfileRepo
}
