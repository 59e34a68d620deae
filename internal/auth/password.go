// Package auth implements credential hashing for charge point Basic-Auth.
package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/seu-repo/ocpp-central/internal/ports"
)

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() ports.PasswordHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
