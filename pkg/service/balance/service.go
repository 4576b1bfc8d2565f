// Package balance derives account balances from the ledger and aggregates
// them per institution kind.
package balance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/domain/events"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Cache keeps derived balances between requests.
type Cache interface {
	Get(ctx context.Context, owner uuid.UUID, kind domain.Kind) (*domain.Balance, bool, error)
	Set(ctx context.Context, owner uuid.UUID, kind domain.Kind, b *domain.Balance, ttl time.Duration) error
	InvalidateOwner(ctx context.Context, owner uuid.UUID) error
}

// Service resolves the balance of an owner's account of a given kind.
type Service struct {
	uow      repository.UnitOfWork
	cache    Cache
	ttl      time.Duration
	currency string
	logger   *slog.Logger
	group    singleflight.Group

	// generations counts invalidations per owner. A load only keeps its
	// cache entry if no invalidation happened while it ran.
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewService(uow repository.UnitOfWork, cache Cache, ttl time.Duration, currency string, logger *slog.Logger) *Service {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &Service{
		uow:         uow,
		cache:       cache,
		ttl:         ttl,
		currency:    currency,
		logger:      logger.With("service", "balance"),
		generations: make(map[uuid.UUID]uint64),
	}
}

func loadKey(owner uuid.UUID, kind domain.Kind) string {
	return owner.String() + ":" + string(kind)
}

func (s *Service) generation(owner uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[owner]
}

// Get returns the balance of owner's single active account of kind.
func (s *Service) Get(ctx context.Context, owner uuid.UUID, kind domain.Kind) (*domain.Balance, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}
	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, owner, kind)
		if err != nil {
			s.logger.Warn("Balance cache read failed", "owner", owner, "kind", kind, "error", err)
		} else if ok {
			return b, nil
		}
	}

	v, err, shared := s.group.Do(loadKey(owner, kind), func() (any, error) {
		return s.load(ctx, owner, kind)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Balance load shared", "owner", owner, "kind", kind)
	}
	cp := *v.(*domain.Balance)
	return &cp, nil
}

func (s *Service) load(ctx context.Context, owner uuid.UUID, kind domain.Kind) (*domain.Balance, error) {
	gen := s.generation(owner)
	var b *domain.Balance
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accts, err := uow.AccountRepository().FindActive(ctx, owner, kind)
		if err != nil {
			return err
		}
		switch len(accts) {
		case 0:
			return domain.ErrAccountNotFound
		case 1:
		default:
			return domain.ErrAmbiguousAccount
		}
		summary, err := uow.TransactionRepository().Summarize(ctx, accts[0].ID)
		if err != nil {
			return err
		}
		b = domain.NewBalance(accts[0], summary, s.currency)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.ttl > 0 && s.generation(owner) == gen {
		if err := s.cache.Set(ctx, owner, kind, b, s.ttl); err != nil {
			s.logger.Warn("Balance cache write failed", "owner", owner, "kind", kind, "error", err)
		}
		// An invalidation that raced the write may have run before it.
		if s.generation(owner) != gen {
			if err := s.cache.InvalidateOwner(ctx, owner); err != nil {
				s.logger.Warn("Balance cache invalidation failed", "owner", owner, "error", err)
			}
		}
	}
	return b, nil
}

// Invalidate drops every cached balance of owner. Loads already in flight
// do not repopulate the cache with what they read.
func (s *Service) Invalidate(ctx context.Context, owner uuid.UUID) error {
	s.mu.Lock()
	s.generations[owner]++
	s.mu.Unlock()
	for _, k := range domain.Kinds() {
		s.group.Forget(loadKey(owner, k))
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateOwner(ctx, owner)
}

// ForOwner binds the service to owner as a Fetcher.
func (s *Service) ForOwner(owner uuid.UUID) Fetcher {
	return FetcherFunc(func(ctx context.Context, kind domain.Kind) (*domain.Balance, error) {
		return s.Get(ctx, owner, kind)
	})
}

// Subscribe invalidates cached balances whenever the owner's ledger or
// linked accounts change. The returned func removes the subscriptions.
func (s *Service) Subscribe(bus eventbus.Bus) func() {
	invalidate := func(ctx context.Context, owner uuid.UUID) error {
		if err := s.Invalidate(ctx, owner); err != nil {
			s.logger.Warn("Balance cache invalidation failed", "owner", owner, "error", err)
			return err
		}
		return nil
	}
	unsubs := []func(){
		bus.Register(events.TypeTransactionChanged, func(ctx context.Context, e eventbus.Event) error {
			if evt, ok := events.As[events.TransactionChanged](e); ok {
				return invalidate(ctx, evt.OwnerID)
			}
			return nil
		}),
		bus.Register(events.TypeAccountLinked, func(ctx context.Context, e eventbus.Event) error {
			if evt, ok := events.As[events.AccountLinked](e); ok {
				return invalidate(ctx, evt.OwnerID)
			}
			return nil
		}),
		bus.Register(events.TypeAccountUnlinked, func(ctx context.Context, e eventbus.Event) error {
			if evt, ok := events.As[events.AccountUnlinked](e); ok {
				return invalidate(ctx, evt.OwnerID)
			}
			return nil
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
