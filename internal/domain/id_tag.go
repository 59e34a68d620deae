package domain

import (
	"time"
)

// AuthorizationStatus is the OCPP 1.6 id tag status reported to stations.
type AuthorizationStatus string

const (
	AuthorizationAccepted     AuthorizationStatus = "Accepted"
	AuthorizationBlocked      AuthorizationStatus = "Blocked"
	AuthorizationExpired      AuthorizationStatus = "Expired"
	AuthorizationInvalid      AuthorizationStatus = "Invalid"
	AuthorizationConcurrentTx AuthorizationStatus = "ConcurrentTx"
)

// ParseAuthorizationStatus maps a free-form string to a status, defaulting
// to Invalid for anything unrecognised.
func ParseAuthorizationStatus(s string) AuthorizationStatus {
	switch s {
	case "Accepted", "accepted":
		return AuthorizationAccepted
	case "Blocked", "blocked":
		return AuthorizationBlocked
	case "Expired", "expired":
		return AuthorizationExpired
	case "ConcurrentTx", "concurrenttx":
		return AuthorizationConcurrentTx
	default:
		return AuthorizationInvalid
	}
}

// IdTag is an RFID card or other authorization token.
type IdTag struct {
	IdTag                 string              `json:"id_tag" gorm:"primaryKey;column:id_tag"`
	ParentIdTag           *string             `json:"parent_id_tag,omitempty"`
	Status                AuthorizationStatus `json:"status"`
	UserID                *string             `json:"user_id,omitempty"`
	Name                  *string             `json:"name,omitempty"`
	ExpiryDate            *time.Time          `json:"expiry_date,omitempty"`
	MaxActiveTransactions *int                `json:"max_active_transactions,omitempty"`
	IsActive              bool                `json:"is_active"`
	LastUsedAt            *time.Time          `json:"last_used_at,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// NewIdTag creates an active, accepted tag.
func NewIdTag(tag string) *IdTag {
	now := time.Now().UTC()
	return &IdTag{
		IdTag:     tag,
		Status:    AuthorizationAccepted,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsValid reports whether the tag may authorize a session right now.
func (t *IdTag) IsValid(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	if t.Status != AuthorizationAccepted {
		return false
	}
	if t.ExpiryDate != nil && now.After(*t.ExpiryDate) {
		return false
	}
	return true
}

// AuthStatus is the status sent back in Authorize / StartTransaction
// responses. Inactive tags report Invalid, expired tags report Expired,
// everything else reports the stored status.
func (t *IdTag) AuthStatus(now time.Time) AuthorizationStatus {
	if !t.IsActive {
		return AuthorizationInvalid
	}
	if t.ExpiryDate != nil && now.After(*t.ExpiryDate) {
		return AuthorizationExpired
	}
	return t.Status
}
