package account

import (
	"context"
	"fmt"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type sampleProfile struct {
	name        string
	minOpening  int64
	openingSpan int64
	categories  []string
	credits     []string
	debits      []string
}

var sampleProfiles = map[domain.Kind]sampleProfile{
	domain.KindMpesa: {
		name:        "M-Pesa Sample",
		minOpening:  5000,
		openingSpan: 10000,
		categories:  []string{"Shopping", "Transport", "Food", "Entertainment", "Bills"},
		credits:     []string{"Received from", "Deposit from", "Refund from", "Payment from"},
		debits:      []string{"Payment to", "Sent to", "Purchase at", "Bill payment to"},
	},
	domain.KindSBM: {
		name:        "SBM Sample",
		minOpening:  25000,
		openingSpan: 50000,
		categories:  []string{"Salary", "Rent", "Utilities", "Insurance", "Savings"},
		credits:     []string{"Deposit", "Salary payment", "Interest earned", "Refund", "Transfer from"},
		debits:      []string{"Withdrawal", "Monthly rent", "Bill payment", "Transfer to", "Service fee"},
	},
	domain.KindCoop: {
		name:        "Co-op Sample",
		minOpening:  10000,
		openingSpan: 20000,
		categories:  []string{"Groceries", "Healthcare", "Education", "Travel", "Investments"},
		credits:     []string{"Deposit", "Interest", "Dividend", "Transfer in", "Loan disbursement"},
		debits:      []string{"Withdrawal", "Standing order", "Loan repayment", "ATM withdrawal", "Service charge"},
	},
}

var (
	sampleShops = []string{"Carrefour", "Naivas", "Quickmart", "Artcaffe", "Java House"}
	sampleNames = []string{"John", "Jane", "Michael", "Sarah", "David"}
)

const (
	openingBalance    = "Opening balance"
	sampleHistoryDays = 30
)

// SeedSamples links one sample account per kind, each with an opening
// balance and a few weeks of random activity. It does nothing and returns
// false when the owner already has accounts.
func (s *Service) SeedSamples(ctx context.Context, owner uuid.UUID) (seeded bool, err error) {
	log := s.logger.With("op", "SeedSamples", "owner", owner)
	var linked []*domain.Account
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		existing, err := uow.AccountRepository().ListByOwner(ctx, owner, false)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}

		s.randMu.Lock()
		defer s.randMu.Unlock()
		now := s.now().UTC()
		for _, kind := range domain.Kinds() {
			acct, txs := s.sampleAccount(owner, kind, now)
			if err := uow.AccountRepository().Create(ctx, acct); err != nil {
				return err
			}
			for _, tx := range txs {
				if err := uow.TransactionRepository().Create(ctx, tx); err != nil {
					return err
				}
			}
			linked = append(linked, acct)
		}
		return nil
	})
	if err != nil {
		log.Error("Seeding sample accounts failed", "error", err)
		return false, err
	}
	if len(linked) == 0 {
		log.Debug("Owner already has accounts, skipping samples")
		return false, nil
	}
	for _, a := range linked {
		s.emitLinked(ctx, a)
	}
	log.Info("Sample accounts seeded", "accounts", len(linked))
	return true, nil
}

// sampleAccount builds an account of kind with its opening credit and
// random history. The caller holds randMu.
func (s *Service) sampleAccount(owner uuid.UUID, kind domain.Kind, now time.Time) (*domain.Account, []*domain.Transaction) {
	p := sampleProfiles[kind]
	r := s.rand

	var number string
	if kind == domain.KindMpesa {
		number = fmt.Sprintf("254%d", 700000000+r.Int63n(99999999))
	} else {
		number = fmt.Sprintf("%d", 10000000+r.Int63n(90000000))
	}
	acct := &domain.Account{
		ID:            uuid.New(),
		OwnerID:       owner,
		Kind:          kind,
		AccountNumber: number,
		Name:          p.name,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch kind {
	case domain.KindSBM:
		acct.Subtype = "Savings"
	case domain.KindCoop:
		acct.Branch = "Main Branch"
	}

	opened := now.AddDate(0, 0, -sampleHistoryDays)
	txs := []*domain.Transaction{s.sampleTx(acct, opened, openingBalance, openingBalance,
		decimal.NewFromInt(p.minOpening+r.Int63n(p.openingSpan+1)), domain.Credit, now)}

	n := 5 + r.Intn(6)
	for range n {
		date := now.AddDate(0, 0, -r.Intn(sampleHistoryDays))
		category := p.categories[r.Intn(len(p.categories))]
		var (
			dir  domain.Direction
			desc string
			amt  int64
		)
		if r.Float64() < 0.7 {
			dir = domain.Debit
			desc = p.debits[r.Intn(len(p.debits))] + " "
			if kind == domain.KindMpesa {
				desc += sampleShops[r.Intn(len(sampleShops))]
			} else {
				desc += category + " payment"
			}
			amt = 100 + r.Int63n(5000)
		} else {
			dir = domain.Credit
			desc = p.credits[r.Intn(len(p.credits))] + " " + sampleNames[r.Intn(len(sampleNames))]
			amt = 500 + r.Int63n(15000)
		}
		txs = append(txs, s.sampleTx(acct, date, desc, category, decimal.NewFromInt(amt), dir, now))
	}
	return acct, txs
}

func (s *Service) sampleTx(
	acct *domain.Account,
	date time.Time,
	desc, category string,
	amount decimal.Decimal,
	dir domain.Direction,
	now time.Time,
) *domain.Transaction {
	return &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   acct.ID,
		Kind:        acct.Kind,
		Date:        date,
		Description: desc,
		Amount:      amount,
		Direction:   dir,
		Category:    category,
		Reference:   fmt.Sprintf("REF%d", s.rand.Intn(1000000)),
		Status:      domain.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
