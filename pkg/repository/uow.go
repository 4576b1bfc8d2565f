package repository

import (
	"context"

	"github.com/amirasaad/finboard/pkg/repository/account"
	"github.com/amirasaad/finboard/pkg/repository/settings"
	"github.com/amirasaad/finboard/pkg/repository/transaction"
	"github.com/amirasaad/finboard/pkg/repository/user"
)

// UnitOfWork provides a transaction boundary and repository access in one
// abstraction. Repositories obtained from the uow passed to fn share its
// session.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	AccountRepository() account.Repository
	TransactionRepository() transaction.Repository
	SettingsRepository() settings.Repository
	UserRepository() user.Repository
}
