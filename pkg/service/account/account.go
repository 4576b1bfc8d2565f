// Package account links and unlinks institution accounts for a user.
package account

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/domain/events"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/google/uuid"
)

// Service provides account linking operations.
type Service struct {
	uow    repository.UnitOfWork
	bus    eventbus.Bus
	logger *slog.Logger
	now    func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithRand sets the random source used by SeedSamples.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rand = r }
}

// NewService creates a new Service with the provided dependencies.
func NewService(uow repository.UnitOfWork, bus eventbus.Bus, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		uow:    uow,
		bus:    bus,
		logger: logger.With("service", "account"),
		now:    time.Now,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Link links a new account. At most one active account may exist per owner,
// kind and number; a previously unlinked one can be linked again.
func (s *Service) Link(ctx context.Context, in dto.AccountLink) (a *domain.Account, err error) {
	log := s.logger.With("op", "Link", "owner", in.OwnerID, "kind", in.Kind)
	log.Info("Linking account")
	defer func() {
		if err != nil {
			log.Warn("Account link failed", "error", err)
			return
		}
		log.Info("Account linked", "account_id", a.ID)
	}()

	a, err = domain.NewAccount(in.OwnerID, in.Kind, in.AccountNumber)
	if err != nil {
		return nil, err
	}
	a.Name = strings.TrimSpace(in.Name)
	switch a.Kind {
	case domain.KindCoop:
		a.Branch = strings.TrimSpace(in.Branch)
	case domain.KindSBM:
		a.Subtype = strings.TrimSpace(in.Subtype)
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo := uow.AccountRepository()
		_, err := repo.FindActiveByNumber(ctx, a.OwnerID, a.Kind, a.AccountNumber)
		switch {
		case err == nil:
			return domain.ErrDuplicateAccount
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return repo.Create(ctx, a)
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.ErrDuplicateAccount
	}
	if err != nil {
		return nil, err
	}
	s.emitLinked(ctx, a)
	return a, nil
}

// Unlink deactivates one of the owner's accounts. Unlinking an inactive
// account is a no-op.
func (s *Service) Unlink(ctx context.Context, owner, id uuid.UUID) error {
	var acct *domain.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		if acct, err = s.owned(ctx, uow, owner, id); err != nil {
			return err
		}
		if !acct.IsActive {
			return nil
		}
		inactive := false
		return uow.AccountRepository().Update(ctx, id, dto.AccountUpdate{IsActive: &inactive})
	})
	if err != nil {
		s.logger.Warn("Account unlink failed", "owner", owner, "account_id", id, "error", err)
		return err
	}
	if !acct.IsActive {
		return nil
	}
	evt := events.AccountUnlinked{OwnerID: owner, AccountID: id, Kind: acct.Kind, At: s.now().UTC()}
	if err := s.bus.Emit(ctx, evt); err != nil {
		s.logger.Error("Account listener failed", "event", evt.Type(), "account_id", id, "error", err)
	}
	s.logger.Info("Account unlinked", "owner", owner, "account_id", id)
	return nil
}

// List returns the owner's accounts, oldest first.
func (s *Service) List(ctx context.Context, owner uuid.UUID, includeInactive bool) ([]*domain.Account, error) {
	var accts []*domain.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		accts, err = uow.AccountRepository().ListByOwner(ctx, owner, !includeInactive)
		return err
	})
	return accts, err
}

// Get returns one of the owner's accounts.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*domain.Account, error) {
	var acct *domain.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		acct, err = s.owned(ctx, uow, owner, id)
		return err
	})
	return acct, err
}

func (s *Service) owned(ctx context.Context, uow repository.UnitOfWork, owner, id uuid.UUID) (*domain.Account, error) {
	acct, err := uow.AccountRepository().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acct.OwnedBy(owner) {
		return nil, domain.ErrAccountNotFound
	}
	return acct, nil
}

func (s *Service) emitLinked(ctx context.Context, a *domain.Account) {
	evt := events.AccountLinked{OwnerID: a.OwnerID, AccountID: a.ID, Kind: a.Kind, At: s.now().UTC()}
	if err := s.bus.Emit(ctx, evt); err != nil {
		s.logger.Error("Account listener failed", "event", evt.Type(), "account_id", a.ID, "error", err)
	}
}
