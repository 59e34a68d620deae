package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

// MockPasswordHasher is a mock implementation of PasswordHasher interface
type MockPasswordHasher struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hash, password string) bool
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *MockPasswordHasher) Verify(hash, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hash, password)
	}
	return hash == "hashed:"+password
}

// MockBillingService is a mock implementation of BillingService interface
type MockBillingService struct {
	BillTransactionFunc func(ctx context.Context, tx *domain.Transaction) (*domain.TransactionBilling, error)
	CostBreakdownFunc   func(ctx context.Context, tx *domain.Transaction) (*domain.CostBreakdown, error)
}

func (m *MockBillingService) BillTransaction(ctx context.Context, tx *domain.Transaction) (*domain.TransactionBilling, error) {
	if m.BillTransactionFunc != nil {
		return m.BillTransactionFunc(ctx, tx)
	}
	return &domain.TransactionBilling{TransactionID: tx.ID, Status: domain.BillingStatusCalculated}, nil
}

func (m *MockBillingService) CostBreakdown(ctx context.Context, tx *domain.Transaction) (*domain.CostBreakdown, error) {
	if m.CostBreakdownFunc != nil {
		return m.CostBreakdownFunc(ctx, tx)
	}
	return &domain.CostBreakdown{Currency: "UZS"}, nil
}

// MockRemoteStopper records remote stop requests issued by meter limit
// enforcement.
type MockRemoteStopper struct {
	mu            sync.Mutex
	Stopped       []StopRequest
	RemoteStopFunc func(ctx context.Context, chargePointID string, transactionID int) (string, error)
}

// StopRequest is one recorded RemoteStop call.
type StopRequest struct {
	ChargePointID string
	TransactionID int
}

func (m *MockRemoteStopper) RemoteStop(ctx context.Context, chargePointID string, transactionID int) (string, error) {
	m.mu.Lock()
	m.Stopped = append(m.Stopped, StopRequest{ChargePointID: chargePointID, TransactionID: transactionID})
	m.mu.Unlock()
	if m.RemoteStopFunc != nil {
		return m.RemoteStopFunc(ctx, chargePointID, transactionID)
	}
	return "Accepted", nil
}

// StopCount returns how many remote stops were requested.
func (m *MockRemoteStopper) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Stopped)
}
