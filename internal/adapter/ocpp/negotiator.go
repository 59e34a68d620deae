package ocpp

import (
	"strings"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

// versionPreference orders versions newest first for negotiation.
var versionPreference = []domain.OcppVersion{domain.OcppV21, domain.OcppV201, domain.OcppV16}

// Negotiator picks the OCPP version for an incoming WebSocket upgrade from
// the Sec-WebSocket-Protocol header.
type Negotiator struct {
	supported map[domain.OcppVersion]bool
}

// NewNegotiator builds a negotiator accepting the given versions. With no
// versions it accepts all known ones.
func NewNegotiator(versions ...domain.OcppVersion) *Negotiator {
	supported := make(map[domain.OcppVersion]bool)
	if len(versions) == 0 {
		versions = versionPreference
	}
	for _, v := range versions {
		supported[v] = true
	}
	return &Negotiator{supported: supported}
}

// Negotiate parses a comma-separated subprotocol header and returns the
// highest mutually supported version plus the subprotocol to echo back.
// ok is false when no offered subprotocol is supported.
func (n *Negotiator) Negotiate(header string) (domain.OcppVersion, string, bool) {
	offered := make(map[domain.OcppVersion]bool)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, ok := domain.VersionFromSubprotocol(part); ok {
			offered[v] = true
		}
	}

	for _, v := range versionPreference {
		if offered[v] && n.supported[v] {
			return v, v.Subprotocol(), true
		}
	}
	return "", "", false
}

// Supported reports whether the negotiator accepts the given version.
func (n *Negotiator) Supported(v domain.OcppVersion) bool {
	return n.supported[v]
}
