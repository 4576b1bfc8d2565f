package infra

import (
	"context"

	infraaccount "github.com/amirasaad/finboard/infra/repository/account"
	infrasettings "github.com/amirasaad/finboard/infra/repository/settings"
	infratransaction "github.com/amirasaad/finboard/infra/repository/transaction"
	infrauser "github.com/amirasaad/finboard/infra/repository/user"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/amirasaad/finboard/pkg/repository/account"
	"github.com/amirasaad/finboard/pkg/repository/settings"
	"github.com/amirasaad/finboard/pkg/repository/transaction"
	"github.com/amirasaad/finboard/pkg/repository/user"
	"gorm.io/gorm"
)

// UoW implements repository.UnitOfWork over GORM. Repositories taken from
// the uow handed to Do share its database transaction.
type UoW struct {
	db   *gorm.DB
	inTx bool
}

// NewGormUoW creates a unit of work over db.
func NewGormUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn in a database transaction, committing when fn returns nil and
// rolling back otherwise. Nested calls join the outer transaction.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.inTx {
		return fn(u)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: tx, inTx: true})
	})
}

func (u *UoW) AccountRepository() account.Repository {
	return infraaccount.New(u.db)
}

func (u *UoW) TransactionRepository() transaction.Repository {
	return infratransaction.New(u.db)
}

func (u *UoW) SettingsRepository() settings.Repository {
	return infrasettings.New(u.db)
}

func (u *UoW) UserRepository() user.Repository {
	return infrauser.New(u.db)
}

var _ repository.UnitOfWork = (*UoW)(nil)
