// Package repotest is a behavioural suite every repository.UnitOfWork
// implementation must pass.
package repotest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Suite runs the shared repository checks against the unit of work built
// by NewUoW, which is called once per test.
type Suite struct {
	suite.Suite
	NewUoW func() repository.UnitOfWork

	ctx   context.Context
	uow   repository.UnitOfWork
	owner uuid.UUID
	base  time.Time
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.uow = s.NewUoW()
	s.owner = uuid.New()
	s.base = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) newAccount(kind domain.Kind, number string) *domain.Account {
	acct, err := domain.NewAccount(s.owner, kind, number)
	s.Require().NoError(err)
	s.Require().NoError(s.uow.AccountRepository().Create(s.ctx, acct))
	return acct
}

func (s *Suite) newTx(acct *domain.Account, date time.Time, amount string, dir domain.Direction, desc string) *domain.Transaction {
	tx := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   acct.ID,
		Kind:        acct.Kind,
		Date:        date,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Direction:   dir,
		Status:      domain.StatusCompleted,
		CreatedAt:   s.base,
		UpdatedAt:   s.base,
	}
	s.Require().NoError(s.uow.TransactionRepository().Create(s.ctx, tx))
	return tx
}

func ids(items []*domain.Transaction) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, tx := range items {
		out = append(out, tx.ID)
	}
	return out
}

func (s *Suite) TestAccount_CreateAndGet() {
	acct := s.newAccount(domain.KindMpesa, "254700000001")

	got, err := s.uow.AccountRepository().Get(s.ctx, acct.ID)
	s.Require().NoError(err)
	s.Equal(acct.ID, got.ID)
	s.Equal(domain.KindMpesa, got.Kind)
	s.Equal("254700000001", got.AccountNumber)
	s.True(got.IsActive)

	_, err = s.uow.AccountRepository().Get(s.ctx, uuid.New())
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestAccount_DuplicateActiveNumberRejected() {
	s.newAccount(domain.KindSBM, "SBM-1")

	dup, err := domain.NewAccount(s.owner, domain.KindSBM, "SBM-1")
	s.Require().NoError(err)
	err = s.uow.AccountRepository().Create(s.ctx, dup)
	s.ErrorIs(err, domain.ErrAlreadyExists)

	other, err := domain.NewAccount(s.owner, domain.KindCoop, "SBM-1")
	s.Require().NoError(err)
	s.NoError(s.uow.AccountRepository().Create(s.ctx, other), "same number under another kind is allowed")

	foreign, err := domain.NewAccount(uuid.New(), domain.KindSBM, "SBM-1")
	s.Require().NoError(err)
	s.NoError(s.uow.AccountRepository().Create(s.ctx, foreign), "same number for another owner is allowed")
}

func (s *Suite) TestAccount_RelinkAfterDeactivation() {
	repo := s.uow.AccountRepository()
	first := s.newAccount(domain.KindCoop, "COOP-9")

	inactive := false
	s.Require().NoError(repo.Update(s.ctx, first.ID, dto.AccountUpdate{IsActive: &inactive}))

	second := s.newAccount(domain.KindCoop, "COOP-9")

	active := true
	err := repo.Update(s.ctx, first.ID, dto.AccountUpdate{IsActive: &active})
	s.ErrorIs(err, domain.ErrAlreadyExists, "reactivating would create a second active duplicate")

	found, err := repo.FindActiveByNumber(s.ctx, s.owner, domain.KindCoop, "COOP-9")
	s.Require().NoError(err)
	s.Equal(second.ID, found.ID)
}

func (s *Suite) TestAccount_ListsAndFinds() {
	repo := s.uow.AccountRepository()
	a := s.newAccount(domain.KindMpesa, "A")
	b := s.newAccount(domain.KindMpesa, "B")
	c := s.newAccount(domain.KindSBM, "C")
	s.newAccount(domain.KindSBM, "D")

	inactive := false
	s.Require().NoError(repo.Update(s.ctx, c.ID, dto.AccountUpdate{IsActive: &inactive}))

	all, err := repo.ListByOwner(s.ctx, s.owner, false)
	s.Require().NoError(err)
	s.Len(all, 4)

	active, err := repo.ListByOwner(s.ctx, s.owner, true)
	s.Require().NoError(err)
	s.Len(active, 3)

	mpesa, err := repo.FindActive(s.ctx, s.owner, domain.KindMpesa)
	s.Require().NoError(err)
	s.Require().Len(mpesa, 2)
	s.ElementsMatch([]uuid.UUID{a.ID, b.ID}, []uuid.UUID{mpesa[0].ID, mpesa[1].ID})

	none, err := repo.FindActive(s.ctx, uuid.New(), domain.KindMpesa)
	s.Require().NoError(err)
	s.Empty(none)

	_, err = repo.FindActiveByNumber(s.ctx, s.owner, domain.KindSBM, "C")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestAccount_UpdateFields() {
	repo := s.uow.AccountRepository()
	acct := s.newAccount(domain.KindCoop, "COOP-1")

	name, branch := "Household", "Main Branch"
	s.Require().NoError(repo.Update(s.ctx, acct.ID, dto.AccountUpdate{Name: &name, Branch: &branch}))

	got, err := repo.Get(s.ctx, acct.ID)
	s.Require().NoError(err)
	s.Equal("Household", got.Name)
	s.Equal("Main Branch", got.Branch)

	err = repo.Update(s.ctx, uuid.New(), dto.AccountUpdate{Name: &name})
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestTransaction_CreateAssignsIncreasingSeq() {
	acct := s.newAccount(domain.KindMpesa, "M1")
	first := s.newTx(acct, s.base, "10", domain.Credit, "one")
	second := s.newTx(acct, s.base, "10", domain.Credit, "two")

	s.Positive(first.Seq)
	s.Greater(second.Seq, first.Seq)

	got, err := s.uow.TransactionRepository().Get(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(second.Seq, got.Seq)
	s.Equal(domain.KindMpesa, got.Kind)
	s.True(decimal.NewFromInt(10).Equal(got.Amount))
	s.True(s.base.Equal(got.Date))
}

func (s *Suite) TestTransaction_GetMissing() {
	_, err := s.uow.TransactionRepository().Get(s.ctx, uuid.New())
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestTransaction_OrderDateDescThenInsertion() {
	acct := s.newAccount(domain.KindMpesa, "M1")
	older := s.newTx(acct, s.base.Add(-48*time.Hour), "1", domain.Debit, "older")
	tieA := s.newTx(acct, s.base, "2", domain.Debit, "tie a")
	newest := s.newTx(acct, s.base.Add(time.Hour), "3", domain.Credit, "newest")
	tieB := s.newTx(acct, s.base, "4", domain.Credit, "tie b")

	page, err := s.uow.TransactionRepository().List(s.ctx, []uuid.UUID{acct.ID}, domain.TransactionFilter{}, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(4), page.TotalCount)
	s.Equal([]uuid.UUID{newest.ID, tieA.ID, tieB.ID, older.ID}, ids(page.Items))
}

func (s *Suite) TestTransaction_Pagination() {
	acct := s.newAccount(domain.KindSBM, "S1")
	created := make([]*domain.Transaction, 0, 45)
	for i := range 45 {
		created = append(created, s.newTx(acct, s.base.Add(-time.Duration(i)*time.Hour), "5", domain.Debit, fmt.Sprintf("tx %02d", i)))
	}

	page, err := s.uow.TransactionRepository().List(s.ctx, []uuid.UUID{acct.ID}, domain.TransactionFilter{}, 2, 20)
	s.Require().NoError(err)
	s.Equal(int64(45), page.TotalCount)
	s.Equal(ids(created[20:40]), ids(page.Items))

	last, err := s.uow.TransactionRepository().List(s.ctx, []uuid.UUID{acct.ID}, domain.TransactionFilter{}, 3, 20)
	s.Require().NoError(err)
	s.Len(last.Items, 5)

	beyond, err := s.uow.TransactionRepository().List(s.ctx, []uuid.UUID{acct.ID}, domain.TransactionFilter{}, 9, 20)
	s.Require().NoError(err)
	s.Empty(beyond.Items)
	s.Equal(int64(45), beyond.TotalCount)

	defaults, err := s.uow.TransactionRepository().List(s.ctx, []uuid.UUID{acct.ID}, domain.TransactionFilter{}, 0, 0)
	s.Require().NoError(err)
	s.Len(defaults.Items, domain.DefaultPageSize)
}

func (s *Suite) TestTransaction_PageOffsetOverflow() {
	acct := s.newAccount(domain.KindMpesa, "M9")
	for i := range 3 {
		s.newTx(acct, s.base.Add(-time.Duration(i)*time.Minute), "5", domain.Debit, fmt.Sprintf("tx %d", i))
	}

	for _, pageSize := range []int{20, math.MaxInt} {
		page, err := s.uow.TransactionRepository().List(s.ctx, []uuid.UUID{acct.ID}, domain.TransactionFilter{}, math.MaxInt/pageSize+2, pageSize)
		s.Require().NoError(err)
		s.Empty(page.Items, "page size %d", pageSize)
		s.Equal(int64(3), page.TotalCount)
	}

	all, err := s.uow.TransactionRepository().List(s.ctx, []uuid.UUID{acct.ID}, domain.TransactionFilter{}, 1, math.MaxInt)
	s.Require().NoError(err)
	s.Len(all.Items, 3)
}

func (s *Suite) TestTransaction_NoAccountsYieldsEmpty() {
	acct := s.newAccount(domain.KindSBM, "S1")
	s.newTx(acct, s.base, "5", domain.Debit, "x")

	page, err := s.uow.TransactionRepository().List(s.ctx, nil, domain.TransactionFilter{}, 1, 20)
	s.Require().NoError(err)
	s.Empty(page.Items)
	s.NotNil(page.Items)
	s.Zero(page.TotalCount)
}

func (s *Suite) TestTransaction_Filters() {
	mpesa := s.newAccount(domain.KindMpesa, "M1")
	coop := s.newAccount(domain.KindCoop, "C1")

	salary := s.newTx(mpesa, s.base.Add(-72*time.Hour), "50000", domain.Credit, "Salary March")
	shop := s.newTx(mpesa, s.base.Add(-24*time.Hour), "1200.50", domain.Debit, "Naivas Supermarket")
	rent := s.newTx(coop, s.base, "25000", domain.Debit, "Rent payment")
	pct := s.newTx(coop, s.base.Add(time.Hour), "100", domain.Debit, "Fee 100%_off")

	cat := "Shopping"
	s.Require().NoError(s.uow.TransactionRepository().Update(s.ctx, shop.ID, dto.TransactionUpdate{Category: &cat}))
	pending := "pending"
	s.Require().NoError(s.uow.TransactionRepository().Update(s.ctx, rent.ID, dto.TransactionUpdate{Status: &pending}))

	accounts := []uuid.UUID{mpesa.ID, coop.ID}
	start := s.base.Add(-24 * time.Hour)
	end := s.base
	minAmount := decimal.RequireFromString("1200.50")
	maxAmount := decimal.NewFromInt(25000)

	tests := []struct {
		name   string
		filter domain.TransactionFilter
		want   []uuid.UUID
	}{
		{"no filter", domain.TransactionFilter{}, []uuid.UUID{pct.ID, rent.ID, shop.ID, salary.ID}},
		{"date range inclusive", domain.TransactionFilter{StartDate: &start, EndDate: &end}, []uuid.UUID{rent.ID, shop.ID}},
		{"amount range inclusive", domain.TransactionFilter{MinAmount: &minAmount, MaxAmount: &maxAmount}, []uuid.UUID{rent.ID, shop.ID}},
		{"direction", domain.TransactionFilter{Directions: []domain.Direction{domain.Credit}}, []uuid.UUID{salary.ID}},
		{"category", domain.TransactionFilter{Categories: []string{"Shopping", "Bills"}}, []uuid.UUID{shop.ID}},
		{"status", domain.TransactionFilter{Status: "pending"}, []uuid.UUID{rent.ID}},
		{"search case-insensitive", domain.TransactionFilter{Search: "NAIVAS"}, []uuid.UUID{shop.ID}},
		{"search is literal", domain.TransactionFilter{Search: "100%_"}, []uuid.UUID{pct.ID}},
		{"search wildcard chars match nothing else", domain.TransactionFilter{Search: "%"}, []uuid.UUID{pct.ID}},
		{"kinds", domain.TransactionFilter{Kinds: []domain.Kind{domain.KindCoop}}, []uuid.UUID{pct.ID, rent.ID}},
		{"account id", domain.TransactionFilter{AccountID: &mpesa.ID}, []uuid.UUID{shop.ID, salary.ID}},
		{"combined", domain.TransactionFilter{Directions: []domain.Direction{domain.Debit}, Kinds: []domain.Kind{domain.KindMpesa}}, []uuid.UUID{shop.ID}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			page, err := s.uow.TransactionRepository().List(s.ctx, accounts, tt.filter, 1, 20)
			s.Require().NoError(err)
			s.Equal(tt.want, ids(page.Items))
			s.Equal(int64(len(tt.want)), page.TotalCount)
		})
	}

	s.Run("restricted to given accounts", func() {
		page, err := s.uow.TransactionRepository().List(s.ctx, []uuid.UUID{coop.ID}, domain.TransactionFilter{AccountID: &mpesa.ID}, 1, 20)
		s.Require().NoError(err)
		s.Empty(page.Items)
	})
}

func (s *Suite) TestTransaction_UpdateAndDelete() {
	repo := s.uow.TransactionRepository()
	acct := s.newAccount(domain.KindMpesa, "M1")
	tx := s.newTx(acct, s.base, "99.99", domain.Debit, "Airtime")

	desc := "Airtime top-up"
	amount := decimal.RequireFromString("150.25")
	ref := "QWE123"
	s.Require().NoError(repo.Update(s.ctx, tx.ID, dto.TransactionUpdate{
		Description: &desc,
		Amount:      &amount,
		Reference:   &ref,
		Metadata:    map[string]any{"channel": "ussd"},
	}))

	got, err := repo.Get(s.ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal("Airtime top-up", got.Description)
	s.True(amount.Equal(got.Amount))
	s.Equal("QWE123", got.Reference)
	s.Equal("ussd", got.Metadata["channel"])
	s.True(s.base.Equal(got.Date), "date is immutable")

	s.ErrorIs(repo.Update(s.ctx, uuid.New(), dto.TransactionUpdate{Description: &desc}), domain.ErrNotFound)

	s.Require().NoError(repo.Delete(s.ctx, tx.ID))
	_, err = repo.Get(s.ctx, tx.ID)
	s.ErrorIs(err, domain.ErrNotFound)
	s.ErrorIs(repo.Delete(s.ctx, tx.ID), domain.ErrNotFound)
}

func (s *Suite) TestTransaction_Summarize() {
	repo := s.uow.TransactionRepository()
	acct := s.newAccount(domain.KindCoop, "C1")

	empty, err := repo.Summarize(s.ctx, acct.ID)
	s.Require().NoError(err)
	s.True(empty.Total.IsZero())
	s.Zero(empty.Count)
	s.True(empty.LastActivity.IsZero())

	s.newTx(acct, s.base, "1000.10", domain.Credit, "opening")
	s.newTx(acct, s.base, "250.05", domain.Debit, "shopping")
	pending := s.newTx(acct, s.base, "5000", domain.Debit, "pending transfer")
	status := "pending"
	s.Require().NoError(repo.Update(s.ctx, pending.ID, dto.TransactionUpdate{Status: &status}))
	s.newTx(s.newAccount(domain.KindCoop, "C2"), s.base, "7", domain.Credit, "other account")

	sum, err := repo.Summarize(s.ctx, acct.ID)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("750.05").Equal(sum.Total), "got %s", sum.Total)
	s.EqualValues(2, sum.Count)
	s.False(sum.LastActivity.IsZero())
}

func (s *Suite) TestSettings_CreateGetAndGroups() {
	repo := s.uow.SettingsRepository()

	_, err := repo.Get(s.ctx, s.owner)
	s.ErrorIs(err, domain.ErrNotFound)

	s.Require().NoError(repo.Create(s.ctx, domain.DefaultSettings(s.owner)))
	s.ErrorIs(repo.Create(s.ctx, domain.DefaultSettings(s.owner)), domain.ErrAlreadyExists)

	theme := domain.ThemeDark
	s.Require().NoError(repo.UpdatePreferences(s.ctx, s.owner, dto.PreferencesUpdate{Theme: &theme}))

	off := false
	threshold := decimal.NewFromInt(500)
	s.Require().NoError(repo.UpdateNotifications(s.ctx, s.owner, dto.NotificationsUpdate{
		LowBalance:          &off,
		LowBalanceThreshold: &threshold,
	}))

	got, err := repo.Get(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(domain.ThemeDark, got.Theme)
	s.Equal(domain.DefaultCurrency, got.Currency, "preferences update leaves currency alone")
	s.False(got.NotifyLowBalance)
	s.True(got.NotifyEmail)
	s.True(got.NotifyLargeTransaction)
	s.True(threshold.Equal(got.LowBalanceThreshold))
	s.True(decimal.NewFromInt(10000).Equal(got.LargeTransactionThreshold))

	missing := uuid.New()
	s.ErrorIs(repo.UpdatePreferences(s.ctx, missing, dto.PreferencesUpdate{Theme: &theme}), domain.ErrNotFound)
	s.ErrorIs(repo.UpdateNotifications(s.ctx, missing, dto.NotificationsUpdate{Email: &off}), domain.ErrNotFound)
}

func (s *Suite) TestSettings_ProfileUpsert() {
	repo := s.uow.SettingsRepository()

	_, err := repo.GetProfile(s.ctx, s.owner)
	s.ErrorIs(err, domain.ErrNotFound)

	s.Require().NoError(repo.SaveProfile(s.ctx, &domain.Profile{OwnerID: s.owner, FullName: "Wanjiru", PhoneNumber: "+254700000000"}))
	s.Require().NoError(repo.SaveProfile(s.ctx, &domain.Profile{OwnerID: s.owner, FullName: "Wanjiru K.", PhoneNumber: "+254711111111"}))

	got, err := repo.GetProfile(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Equal("Wanjiru K.", got.FullName)
	s.Equal("+254711111111", got.PhoneNumber)
	s.False(got.UpdatedAt.IsZero())
}

func (s *Suite) TestUser_Lifecycle() {
	repo := s.uow.UserRepository()
	u := domain.NewUser("Amina@Example.com", "hash-1")
	s.Require().NoError(repo.Create(s.ctx, u))

	byEmail, err := repo.GetByEmail(s.ctx, "  AMINA@example.COM ")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
	s.Equal("amina@example.com", byEmail.Email)

	dup := domain.NewUser(strings.ToUpper("amina@example.com"), "hash-2")
	s.ErrorIs(repo.Create(s.ctx, dup), domain.ErrAlreadyExists)

	s.Require().NoError(repo.UpdatePassword(s.ctx, u.ID, "hash-3"))
	got, err := repo.Get(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("hash-3", got.PasswordHash)

	_, err = repo.Get(s.ctx, uuid.New())
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = repo.GetByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, domain.ErrNotFound)
	s.ErrorIs(repo.UpdatePassword(s.ctx, uuid.New(), "x"), domain.ErrNotFound)
}

func (s *Suite) TestUnitOfWork_DoCommits() {
	var created *domain.Account
	err := s.uow.Do(s.ctx, func(uow repository.UnitOfWork) error {
		acct, err := domain.NewAccount(s.owner, domain.KindMpesa, "254711000000")
		if err != nil {
			return err
		}
		if err := uow.AccountRepository().Create(s.ctx, acct); err != nil {
			return err
		}
		created = acct
		return uow.Do(s.ctx, func(inner repository.UnitOfWork) error {
			return inner.SettingsRepository().Create(s.ctx, domain.DefaultSettings(s.owner))
		})
	})
	s.Require().NoError(err)

	_, err = s.uow.AccountRepository().Get(s.ctx, created.ID)
	s.NoError(err)
	_, err = s.uow.SettingsRepository().Get(s.ctx, s.owner)
	s.NoError(err)
}

func (s *Suite) TestUnitOfWork_DoReturnsCallbackError() {
	boom := fmt.Errorf("boom")
	err := s.uow.Do(s.ctx, func(repository.UnitOfWork) error { return boom })
	s.ErrorIs(err, boom)
}
