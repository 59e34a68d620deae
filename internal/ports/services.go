package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

// Cache abstracts the read-through cache used for hot lookups (id tags,
// station state).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// MessageQueue publishes domain events to external consumers.
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// PasswordHasher hashes and verifies charge point Basic-Auth credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// InboundAdapter handles station-originated OCPP calls for one protocol
// version. Handle returns the response payload for a CallResult, or an
// error mapped to a CallError by the server loop.
type InboundAdapter interface {
	Version() domain.OcppVersion
	Handle(ctx context.Context, chargePointID, action string, payload json.RawMessage) (interface{}, error)
}

// AdapterRegistry resolves the inbound adapter for a negotiated version.
type AdapterRegistry interface {
	Adapter(version domain.OcppVersion) (InboundAdapter, bool)
}

// AuthorizationService validates id tags for Authorize and transaction
// start flows.
type AuthorizationService interface {
	Authorize(ctx context.Context, idTag string) (domain.AuthorizationStatus, error)
}

// BillingService produces billing records for completed transactions.
type BillingService interface {
	BillTransaction(ctx context.Context, tx *domain.Transaction) (*domain.TransactionBilling, error)
	CostBreakdown(ctx context.Context, tx *domain.Transaction) (*domain.CostBreakdown, error)
}
