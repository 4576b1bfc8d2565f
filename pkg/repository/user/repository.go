package user

import (
	"context"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/google/uuid"
)

// Repository defines the interface for identity data access operations.
type Repository interface {
	// Create returns domain.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
