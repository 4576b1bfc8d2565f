package domain

import (
	"errors"
	"fmt"
)

// Common domain errors. Specific errors below wrap one of these so callers
// can classify a failure with errors.Is.
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when there is no authenticated identity
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a user is not allowed to perform an action
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when the current state does not allow the operation
	ErrConflict = errors.New("conflict")
	// ErrTransport is matched by every backing-store or network failure
	ErrTransport = errors.New("transport failure")
)

var (
	ErrInvalidKind         = fmt.Errorf("%w: unknown account kind", ErrValidation)
	ErrInvalidDirection    = fmt.Errorf("%w: direction must be credit or debit", ErrValidation)
	ErrAmountNotPositive   = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrAmountPrecision     = fmt.Errorf("%w: amount must have at most 2 decimal places", ErrValidation)
	ErrAmountTooLarge      = fmt.Errorf("%w: amount must be below 10^16", ErrValidation)
	ErrDescriptionRequired = fmt.Errorf("%w: description is required", ErrValidation)
	ErrAccountNumberEmpty  = fmt.Errorf("%w: account number is required", ErrValidation)
	ErrInvalidTheme        = fmt.Errorf("%w: theme must be one of system, light, dark", ErrValidation)
	ErrInvalidCurrency     = fmt.Errorf("%w: currency must be a 3-letter ISO code", ErrValidation)
	ErrNegativeThreshold   = fmt.Errorf("%w: thresholds cannot be negative", ErrValidation)
	ErrInvalidEmail        = fmt.Errorf("%w: invalid email address", ErrValidation)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	ErrCurrentPasswordReq  = fmt.Errorf("%w: current password is required", ErrValidation)
	ErrNewPasswordRequired = fmt.Errorf("%w: new password is required", ErrValidation)
	ErrPasswordMismatch    = fmt.Errorf("%w: passwords do not match", ErrValidation)

	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrSettingsNotFound    = fmt.Errorf("settings %w", ErrNotFound)
	ErrProfileNotFound     = fmt.Errorf("profile %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)

	ErrDuplicateAccount = fmt.Errorf("%w: an active account with this kind and number is already linked", ErrAlreadyExists)
	ErrEmailTaken       = fmt.Errorf("%w: email is already registered", ErrAlreadyExists)

	ErrAmbiguousAccount = fmt.Errorf("%w: more than one active account of this kind", ErrConflict)
	ErrSaveInProgress   = fmt.Errorf("%w: a save for this settings group is already in progress", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrSessionExpired     = fmt.Errorf("%w: session is no longer active", ErrUnauthorized)
)

// TransportError wraps a failure of the backing store or of the network.
type TransportError struct {
	Op  string
	Err error
}

// NewTransportError wraps err unless it is nil or already a transport error.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrTransport as a match so callers do not need errors.As.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
