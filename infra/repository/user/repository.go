package user

import (
	"context"
	"time"

	infrarepo "github.com/amirasaad/finboard/infra/repository"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/repository/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// New creates a user repository using the provided *gorm.DB.
func New(db *gorm.DB) user.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *domain.User) error {
	m := User{
		ID:           u.ID,
		Email:        domain.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	return infrarepo.WrapError("create user", func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, "get user", "id = ?", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "get user by email", "email = ?", domain.NormalizeEmail(email))
}

func (r *repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	var affected int64
	err := infrarepo.WrapError("update password", func() error {
		res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    time.Now().UTC(),
		})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repository) first(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var m User
	err := infrarepo.WrapError(op, func() error {
		return r.db.WithContext(ctx).Where(query, arg).First(&m).Error
	})
	if err != nil {
		return nil, infrarepo.NotFoundAs(err, domain.ErrUserNotFound)
	}
	return &domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}, nil
}
