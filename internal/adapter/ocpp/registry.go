package ocpp

import (
	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

// AdapterRegistry maps negotiated versions to inbound adapters. Registering
// an adapter also makes its version negotiable.
type AdapterRegistry struct {
	adapters map[domain.OcppVersion]ports.InboundAdapter
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[domain.OcppVersion]ports.InboundAdapter)}
}

// Register adds an adapter for its declared version.
func (r *AdapterRegistry) Register(adapter ports.InboundAdapter) {
	r.adapters[adapter.Version()] = adapter
}

// Adapter resolves the adapter for a negotiated version.
func (r *AdapterRegistry) Adapter(version domain.OcppVersion) (ports.InboundAdapter, bool) {
	adapter, ok := r.adapters[version]
	return adapter, ok
}

// Versions lists the registered versions, for negotiator construction.
func (r *AdapterRegistry) Versions() []domain.OcppVersion {
	versions := make([]domain.OcppVersion, 0, len(r.adapters))
	for v := range r.adapters {
		versions = append(versions, v)
	}
	return versions
}
