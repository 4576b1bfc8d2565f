package settings

import (
	"context"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/google/uuid"
)

// Repository defines the interface for settings and profile data access.
// Every update method touches only the columns of its own group.
type Repository interface {
	// Get returns domain.ErrNotFound when the owner has no settings row yet.
	Get(ctx context.Context, ownerID uuid.UUID) (*domain.Settings, error)

	// Create returns domain.ErrAlreadyExists when the owner already has a row.
	Create(ctx context.Context, s *domain.Settings) error

	UpdatePreferences(ctx context.Context, ownerID uuid.UUID, update dto.PreferencesUpdate) error
	UpdateNotifications(ctx context.Context, ownerID uuid.UUID, update dto.NotificationsUpdate) error

	// GetProfile returns domain.ErrNotFound when no profile was saved yet.
	GetProfile(ctx context.Context, ownerID uuid.UUID) (*domain.Profile, error)

	// SaveProfile inserts or replaces the owner's profile.
	SaveProfile(ctx context.Context, p *domain.Profile) error
}
