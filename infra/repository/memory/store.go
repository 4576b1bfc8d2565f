// Package memory implements the repository interfaces on in-process maps.
// It backs tests and single-node development runs.
package memory

import (
	"context"
	"sync"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/amirasaad/finboard/pkg/repository/account"
	"github.com/amirasaad/finboard/pkg/repository/settings"
	"github.com/amirasaad/finboard/pkg/repository/transaction"
	"github.com/amirasaad/finboard/pkg/repository/user"
	"github.com/google/uuid"
)

// Store holds every in-memory table behind one lock.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*domain.User
	accounts     map[uuid.UUID]*domain.Account
	transactions map[uuid.UUID]*domain.Transaction
	settings     map[uuid.UUID]*domain.Settings
	profiles     map[uuid.UUID]*domain.Profile
	seq          int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*domain.User),
		accounts:     make(map[uuid.UUID]*domain.Account),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		settings:     make(map[uuid.UUID]*domain.Settings),
		profiles:     make(map[uuid.UUID]*domain.Profile),
	}
}

// UoW serialises Do calls over a Store. Writes made before fn fails are
// not rolled back.
type UoW struct {
	store *Store
	txMu  *sync.Mutex
	inTx  bool
}

// NewUoW creates a unit of work over store.
func NewUoW(store *Store) *UoW {
	return &UoW{store: store, txMu: &sync.Mutex{}}
}

// Do runs fn while holding the unit-of-work lock. Nested calls reuse the
// outer boundary.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.inTx {
		return fn(u)
	}
	u.txMu.Lock()
	defer u.txMu.Unlock()
	return fn(&UoW{store: u.store, txMu: u.txMu, inTx: true})
}

func (u *UoW) AccountRepository() account.Repository {
	return &accountRepository{store: u.store}
}

func (u *UoW) TransactionRepository() transaction.Repository {
	return &transactionRepository{store: u.store}
}

func (u *UoW) SettingsRepository() settings.Repository {
	return &settingsRepository{store: u.store}
}

func (u *UoW) UserRepository() user.Repository {
	return &userRepository{store: u.store}
}

var _ repository.UnitOfWork = (*UoW)(nil)
