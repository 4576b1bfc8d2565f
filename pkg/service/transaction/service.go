// Package transaction provides the owner-scoped transaction feed: listing,
// posting, amending and deleting transactions of linked accounts.
package transaction

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/domain/events"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/google/uuid"
)

// exportPageSize is the page size ListAll walks the feed with.
const exportPageSize = 100

type Service struct {
	uow    repository.UnitOfWork
	bus    eventbus.Bus
	logger *slog.Logger
	now    func() time.Time
}

func New(uow repository.UnitOfWork, bus eventbus.Bus, logger *slog.Logger) *Service {
	return &Service{
		uow:    uow,
		bus:    bus,
		logger: logger.With("service", "transaction"),
		now:    time.Now,
	}
}

// List returns one page of the owner's transactions that match filter.
// An owner without active accounts gets an empty page.
func (s *Service) List(
	ctx context.Context,
	owner uuid.UUID,
	filter domain.TransactionFilter,
	page, pageSize int,
) (*domain.TransactionPage, error) {
	var result *domain.TransactionPage
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accts, err := uow.AccountRepository().ListByOwner(ctx, owner, true)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(accts))
		for _, a := range accts {
			ids = append(ids, a.ID)
		}
		result, err = uow.TransactionRepository().List(ctx, ids, filter, page, pageSize)
		return err
	})
	if err != nil {
		s.logger.Error("Listing transactions failed", "owner", owner, "error", err)
		return nil, err
	}
	return result, nil
}

// ListAll returns every transaction matching filter, in feed order.
func (s *Service) ListAll(ctx context.Context, owner uuid.UUID, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var all []*domain.Transaction
	for page := 1; ; page++ {
		res, err := s.List(ctx, owner, filter, page, exportPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if len(res.Items) < exportPageSize || int64(len(all)) >= res.TotalCount {
			break
		}
	}
	if all == nil {
		all = []*domain.Transaction{}
	}
	return all, nil
}

// Get returns nil and no error when the transaction does not exist or
// belongs to someone else.
func (s *Service) Get(ctx context.Context, owner uuid.UUID, id uuid.UUID) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		tx, err = s.owned(ctx, uow, owner, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// owned loads the transaction and checks that its account belongs to owner.
func (s *Service) owned(ctx context.Context, uow repository.UnitOfWork, owner, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := uow.TransactionRepository().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	acct, err := uow.AccountRepository().Get(ctx, tx.AccountID)
	if err != nil {
		return nil, err
	}
	if !acct.OwnedBy(owner) {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

// Create posts a transaction against one of the owner's active accounts.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in dto.TransactionCreate) (tx *domain.Transaction, err error) {
	log := s.logger.With("op", "Create", "owner", owner, "account_id", in.AccountID)
	log.Info("Creating transaction")
	defer func() {
		if err != nil {
			log.Warn("Transaction create failed", "error", err)
			return
		}
		log.Info("Transaction created", "transaction_id", tx.ID)
	}()

	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, domain.ErrDescriptionRequired
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.Direction.Valid() {
		return nil, domain.ErrInvalidDirection
	}

	now := s.now().UTC()
	date := now
	if in.Date != nil {
		date = in.Date.UTC()
	}
	status := in.Status
	if status == "" {
		status = domain.StatusCompleted
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		acct, err := uow.AccountRepository().Get(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if !acct.OwnedBy(owner) || !acct.IsActive {
			return domain.ErrAccountNotFound
		}
		tx = &domain.Transaction{
			ID:          uuid.New(),
			AccountID:   acct.ID,
			Kind:        acct.Kind,
			Date:        date,
			Description: in.Description,
			Amount:      in.Amount,
			Direction:   in.Direction,
			Category:    in.Category,
			Reference:   in.Reference,
			Status:      status,
			Metadata:    in.Metadata,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return uow.TransactionRepository().Create(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.OpCreated, owner, tx)
	return tx, nil
}

// Update amends the mutable fields of one of the owner's transactions.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, upd dto.TransactionUpdate) (tx *domain.Transaction, err error) {
	log := s.logger.With("op", "Update", "owner", owner, "transaction_id", id)
	defer func() {
		if err != nil {
			log.Warn("Transaction update failed", "error", err)
		}
	}()

	if upd.Description != nil {
		d := strings.TrimSpace(*upd.Description)
		if d == "" {
			return nil, domain.ErrDescriptionRequired
		}
		upd.Description = &d
	}
	if upd.Amount != nil {
		if err := domain.ValidateAmount(*upd.Amount); err != nil {
			return nil, err
		}
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		if _, err := s.owned(ctx, uow, owner, id); err != nil {
			return notFound(err)
		}
		if !upd.IsEmpty() {
			if err := uow.TransactionRepository().Update(ctx, id, upd); err != nil {
				return err
			}
		}
		var err error
		tx, err = uow.TransactionRepository().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !upd.IsEmpty() {
		s.emit(ctx, events.OpUpdated, owner, tx)
		log.Info("Transaction updated")
	}
	return tx, nil
}

// Delete removes one of the owner's transactions.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	var tx *domain.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		if tx, err = s.owned(ctx, uow, owner, id); err != nil {
			return notFound(err)
		}
		return uow.TransactionRepository().Delete(ctx, id)
	})
	if err != nil {
		s.logger.Warn("Transaction delete failed", "owner", owner, "transaction_id", id, "error", err)
		return err
	}
	s.emit(ctx, events.OpDeleted, owner, tx)
	s.logger.Info("Transaction deleted", "owner", owner, "transaction_id", id)
	return nil
}

// notFound reports any missing record behind a transaction as the
// transaction itself missing.
func notFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrTransactionNotFound
	}
	return err
}

func (s *Service) emit(ctx context.Context, op events.Op, owner uuid.UUID, tx *domain.Transaction) {
	evt := events.TransactionChanged{
		Op:            op,
		OwnerID:       owner,
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
		Direction:     tx.Direction,
		At:            s.now().UTC(),
	}
	if err := s.bus.Emit(ctx, evt); err != nil {
		s.logger.Error("Transaction listener failed", "op", op, "transaction_id", tx.ID, "error", err)
	}
}
