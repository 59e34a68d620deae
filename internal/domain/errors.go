package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. The REST layer maps these to
// 404/409/400 respectively.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation")
)

func NotFoundError(entity, field string, value interface{}) error {
	return fmt.Errorf("%s with %s=%v: %w", entity, field, value, ErrNotFound)
}

func ConflictError(detail string) error {
	return fmt.Errorf("%s: %w", detail, ErrConflict)
}

func ValidationError(detail string) error {
	return fmt.Errorf("%s: %w", detail, ErrValidation)
}
