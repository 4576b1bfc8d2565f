package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/finboard/pkg/domain"
	"gorm.io/gorm"
)

// MapGormErrorToDomain converts GORM errors to domain errors.
// Traverses the error chain to find GORM errors and maps them to domain
// errors; anything unrecognised becomes a *domain.TransportError.
func MapGormErrorToDomain(op string, err error) error {
	if err == nil {
		return nil
	}

	currentErr := err
	for currentErr != nil {
		switch {
		case errors.Is(currentErr, gorm.ErrDuplicatedKey):
			return domain.ErrAlreadyExists
		case errors.Is(currentErr, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		}
		currentErr = errors.Unwrap(currentErr)
	}

	// Cancellation belongs to the caller, not to the store.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewTransportError(op, err)
}

// WrapError wraps a GORM operation and automatically maps errors.
//
// Usage:
//
//	err := WrapError("create user", func() error {
//	    return r.db.WithContext(ctx).Create(user).Error
//	})
func WrapError(op string, fn func() error) error {
	return MapGormErrorToDomain(op, fn())
}

// NotFoundAs replaces a generic not-found error with a specific one.
func NotFoundAs(err, specific error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return specific
	}
	return err
}
