package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

type TransactionRepository struct {
	mu     sync.RWMutex
	nextID int
	txs    map[int]domain.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{txs: make(map[int]domain.Transaction)}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.ID == 0 {
		r.nextID++
		tx.ID = r.nextID
	} else if tx.ID > r.nextID {
		r.nextID = tx.ID
	}
	r.txs[tx.ID] = *tx
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, domain.NotFoundError("transaction", "id", id)
	}
	return &tx, nil
}

func (r *TransactionRepository) FindByOcppID(ctx context.Context, ocppID string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *domain.Transaction
	for id := range r.txs {
		tx := r.txs[id]
		if ocppID != "" && tx.OcppTransactionID == ocppID {
			if found == nil || tx.ID > found.ID {
				copied := tx
				found = &copied
			}
		}
	}
	if found == nil {
		return nil, domain.NotFoundError("transaction", "ocpp_transaction_id", ocppID)
	}
	return found, nil
}

func (r *TransactionRepository) FindActiveByChargePoint(ctx context.Context, chargePointID string) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range r.txs {
		if tx.ChargePointID == chargePointID && tx.Status == domain.TransactionStatusActive {
			out = append(out, tx)
		}
	}
	sortByID(out)
	return out, nil
}

func (r *TransactionRepository) FindActiveByConnector(ctx context.Context, chargePointID string, connectorID int) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tx := range r.txs {
		if tx.ChargePointID == chargePointID && tx.ConnectorID == connectorID &&
			tx.Status == domain.TransactionStatusActive {
			copied := tx
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *TransactionRepository) FindActiveByIdTag(ctx context.Context, idTag string) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range r.txs {
		if tx.IdTag == idTag && tx.Status == domain.TransactionStatusActive {
			out = append(out, tx)
		}
	}
	sortByID(out)
	return out, nil
}

func (r *TransactionRepository) FindByChargePoint(ctx context.Context, chargePointID string, limit, offset int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var all []domain.Transaction
	for _, tx := range r.txs {
		if tx.ChargePointID == chargePointID {
			all = append(all, tx)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.txs[tx.ID]; !ok {
		return domain.NotFoundError("transaction", "id", tx.ID)
	}
	r.txs[tx.ID] = *tx
	return nil
}

func sortByID(txs []domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })
}
