package infra

import (
	"errors"
	"fmt"

	infraaccount "github.com/amirasaad/finboard/infra/repository/account"
	infrasettings "github.com/amirasaad/finboard/infra/repository/settings"
	infratransaction "github.com/amirasaad/finboard/infra/repository/transaction"
	infrauser "github.com/amirasaad/finboard/infra/repository/user"
	"github.com/amirasaad/finboard/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDBConnection opens the configured database. Postgres is the
// production driver; sqlite serves local runs and tests.
func NewDBConnection(cnf *config.DB, appEnv string) (*gorm.DB, error) {
	if cnf.Url == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	var dialector gorm.Dialector
	switch cnf.Driver {
	case "postgres", "":
		dialector = postgres.Open(cnf.Url)
	case "sqlite":
		dialector = sqlite.Open(cnf.Url)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cnf.Driver)
	}

	logMode := logger.Silent
	if appEnv == "development" {
		logMode = logger.Info
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	if cnf.Driver == "sqlite" {
		// One writer keeps in-memory databases shared across the pool.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cnf.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cnf.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cnf.ConnMaxLifetime)

	if cnf.AutoMigrate {
		if err := AutoMigrate(connection); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return connection, nil
}

// AutoMigrate creates the schema from the GORM models. Postgres
// deployments use the versioned migrations in RunMigrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&infrauser.User{},
		&infraaccount.Account{},
		&infratransaction.Transaction{},
		&infrasettings.Settings{},
		&infrasettings.Profile{},
	)
}
