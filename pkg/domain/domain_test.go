package domain

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "mpesa", want: KindMpesa},
		{in: " SBM ", want: KindSBM},
		{in: "Coop", want: KindCoop},
		{in: "equity", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidKind)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "M-Pesa", KindMpesa.Label())
	assert.Equal(t, "SBM Bank", KindSBM.Label())
	assert.Equal(t, "Co-operative Bank", KindCoop.Label())
	assert.Equal(t, "other", Kind("other").Label())
	assert.Equal(t, []Kind{KindMpesa, KindSBM, KindCoop}, Kinds())
}

func TestNewAccount(t *testing.T) {
	owner := uuid.New()

	acct, err := NewAccount(owner, KindSBM, " 12345678 ")
	require.NoError(t, err)
	assert.Equal(t, "12345678", acct.AccountNumber)
	assert.True(t, acct.IsActive)
	assert.True(t, acct.OwnedBy(owner))
	assert.False(t, acct.OwnedBy(uuid.New()))

	_, err = NewAccount(owner, Kind("x"), "1")
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = NewAccount(owner, KindCoop, "  ")
	assert.ErrorIs(t, err, ErrAccountNumberEmpty)
}

func TestTransactionFilterMatches(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	dec := func(v int64) *decimal.Decimal { d := decimal.NewFromInt(v); return &d }
	acct := uuid.New()
	tx := &Transaction{
		AccountID:   acct,
		Kind:        KindSBM,
		Date:        day(5),
		Description: "Monthly RENT payment",
		Amount:      decimal.NewFromInt(1000),
		Direction:   Debit,
		Category:    "Rent",
		Status:      StatusCompleted,
	}

	start, end := day(5), day(5)
	other := uuid.New()
	tests := []struct {
		name   string
		filter TransactionFilter
		want   bool
	}{
		{name: "empty filter", filter: TransactionFilter{}, want: true},
		{name: "inclusive date bounds", filter: TransactionFilter{StartDate: &start, EndDate: &end}, want: true},
		{name: "before start", filter: TransactionFilter{StartDate: ptr(day(6))}, want: false},
		{name: "after end", filter: TransactionFilter{EndDate: ptr(day(4))}, want: false},
		{name: "inclusive amount bounds", filter: TransactionFilter{MinAmount: dec(1000), MaxAmount: dec(1000)}, want: true},
		{name: "below min", filter: TransactionFilter{MinAmount: dec(1001)}, want: false},
		{name: "above max", filter: TransactionFilter{MaxAmount: dec(999)}, want: false},
		{name: "direction in set", filter: TransactionFilter{Directions: []Direction{Credit, Debit}}, want: true},
		{name: "direction not in set", filter: TransactionFilter{Directions: []Direction{Credit}}, want: false},
		{name: "category in set", filter: TransactionFilter{Categories: []string{"Food", "Rent"}}, want: true},
		{name: "category not in set", filter: TransactionFilter{Categories: []string{"Food"}}, want: false},
		{name: "status equal", filter: TransactionFilter{Status: "completed"}, want: true},
		{name: "status differs", filter: TransactionFilter{Status: "pending"}, want: false},
		{name: "search is case-insensitive", filter: TransactionFilter{Search: "rent"}, want: true},
		{name: "search miss", filter: TransactionFilter{Search: "salary"}, want: false},
		{name: "kind in set", filter: TransactionFilter{Kinds: []Kind{KindSBM}}, want: true},
		{name: "kind not in set", filter: TransactionFilter{Kinds: []Kind{KindMpesa}}, want: false},
		{name: "account match", filter: TransactionFilter{AccountID: &acct}, want: true},
		{name: "account mismatch", filter: TransactionFilter{AccountID: &other}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tx))
		})
	}
}

func TestCompareTransactions(t *testing.T) {
	d1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(24 * time.Hour)
	txs := []*Transaction{
		{Seq: 1, Date: d1},
		{Seq: 2, Date: d2},
		{Seq: 3, Date: d1},
		{Seq: 4, Date: d2},
	}
	slices.SortStableFunc(txs, CompareTransactions)

	got := make([]int64, 0, len(txs))
	for _, tx := range txs {
		got = append(got, tx.Seq)
	}
	assert.Equal(t, []int64{2, 4, 1, 3}, got)
}

func TestNormalizePage(t *testing.T) {
	p, s := NormalizePage(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, 20, s)

	p, s = NormalizePage(3, 50)
	assert.Equal(t, 3, p)
	assert.Equal(t, 50, s)
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"0.01", nil},
		{"1.500", nil},
		{"9999999999999999.99", nil},
		{"0", ErrAmountNotPositive},
		{"-3", ErrAmountNotPositive},
		{"0.001", ErrAmountPrecision},
		{"10.005", ErrAmountPrecision},
		{"10000000000000000", ErrAmountTooLarge},
	}
	for _, tt := range tests {
		err := ValidateAmount(decimal.RequireFromString(tt.in))
		if tt.want == nil {
			assert.NoError(t, err, tt.in)
			continue
		}
		assert.ErrorIs(t, err, tt.want, tt.in)
		assert.ErrorIs(t, err, ErrValidation, tt.in)
	}
}

func TestPageOffset(t *testing.T) {
	tests := []struct {
		page, size int
		want       int
		ok         bool
	}{
		{0, 0, 0, true},
		{1, 20, 0, true},
		{3, 20, 40, true},
		{math.MaxInt/20 + 1, 20, math.MaxInt / 20 * 20, true},
		{math.MaxInt/20 + 2, 20, 0, false},
		{461168601842738792, 20, 0, false},
		{2, math.MaxInt, math.MaxInt, true},
		{3, math.MaxInt, 0, false},
	}
	for _, tt := range tests {
		got, ok := PageOffset(tt.page, tt.size)
		assert.Equal(t, tt.ok, ok, "page %d size %d", tt.page, tt.size)
		assert.Equal(t, tt.want, got, "page %d size %d", tt.page, tt.size)
	}
}

func TestTransactionSigned(t *testing.T) {
	credit := &Transaction{Amount: decimal.NewFromInt(50), Direction: Credit}
	debit := &Transaction{Amount: decimal.NewFromInt(20), Direction: Debit}
	assert.True(t, credit.Signed().Equal(decimal.NewFromInt(50)))
	assert.True(t, debit.Signed().Equal(decimal.NewFromInt(-20)))
	assert.Equal(t, "Credit", Credit.Label())
	assert.Equal(t, "Debit", Debit.Label())
}

func TestNewBalance(t *testing.T) {
	created := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	coop := &Account{ID: uuid.New(), Kind: KindCoop, AccountNumber: "555", Branch: "Main Branch", CreatedAt: created}

	b := NewBalance(coop, LedgerSummary{Total: decimal.NewFromInt(10)}, "")
	assert.Equal(t, DefaultCurrency, b.Currency)
	assert.Equal(t, created, b.LastUpdated)
	assert.Equal(t, "Main Branch", b.Branch)
	assert.Empty(t, b.AccountType)

	last := created.Add(time.Hour)
	sbm := &Account{ID: uuid.New(), Kind: KindSBM, Subtype: "Savings", CreatedAt: created}
	b = NewBalance(sbm, LedgerSummary{Total: decimal.NewFromInt(5), LastActivity: last}, "USD")
	assert.Equal(t, "USD", b.Currency)
	assert.Equal(t, last, b.LastUpdated)
	assert.Equal(t, "Savings", b.AccountType)
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("list transactions", cause)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "list transactions: connection refused", err.Error())

	// Already-wrapped errors are returned as-is.
	assert.Same(t, err, NewTransportError("outer", err))
	assert.NoError(t, NewTransportError("noop", nil))
}

func TestErrorTaxonomy(t *testing.T) {
	assert.ErrorIs(t, ErrDuplicateAccount, ErrAlreadyExists)
	assert.ErrorIs(t, ErrTransactionNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrPasswordMismatch, ErrValidation)
	assert.ErrorIs(t, ErrInvalidCredentials, ErrUnauthorized)
	assert.ErrorIs(t, ErrAmbiguousAccount, ErrConflict)
}

func TestDefaultSettings(t *testing.T) {
	owner := uuid.New()
	s := DefaultSettings(owner)
	assert.Equal(t, owner, s.OwnerID)
	assert.Equal(t, ThemeSystem, s.Theme)
	assert.Equal(t, "KES", s.Currency)
	assert.True(t, s.NotifyEmail)
	assert.True(t, s.LowBalanceThreshold.Equal(decimal.NewFromInt(1000)))
	assert.True(t, s.LargeTransactionThreshold.Equal(decimal.NewFromInt(10000)))

	o := NewSettingsOverview(nil, s)
	assert.Equal(t, owner, o.Profile.OwnerID)
	assert.Equal(t, ThemeSystem, o.Account.Theme)
	assert.True(t, o.Notifications.LowBalanceAlerts)
}

func TestValidCurrency(t *testing.T) {
	assert.True(t, ValidCurrency("KES"))
	assert.False(t, ValidCurrency("kes"))
	assert.False(t, ValidCurrency("KESH"))
}

func ptr[T any](v T) *T { return &v }
