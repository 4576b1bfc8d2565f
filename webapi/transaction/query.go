package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateOnly = "2006-01-02"

// ListQuery is the query string accepted by the listing and export routes.
// List-valued fields are comma separated.
type ListQuery struct {
	Page      int    `query:"page"`
	PageSize  int    `query:"page_size" validate:"max=100"`
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
	MinAmount string `query:"min_amount"`
	MaxAmount string `query:"max_amount"`
	Type      string `query:"type"`
	Category  string `query:"category"`
	Status    string `query:"status"`
	Search    string `query:"search"`
	Account   string `query:"account"`
	AccountID string `query:"account_id"`
	Format    string `query:"format"`
}

// Filter converts the query into a domain filter.
func (q ListQuery) Filter() (domain.TransactionFilter, error) {
	var f domain.TransactionFilter
	var err error

	if f.StartDate, err = parseDate(q.StartDate, false); err != nil {
		return f, fmt.Errorf("%w: start_date: %v", domain.ErrValidation, err)
	}
	if f.EndDate, err = parseDate(q.EndDate, true); err != nil {
		return f, fmt.Errorf("%w: end_date: %v", domain.ErrValidation, err)
	}
	if f.MinAmount, err = parseAmount(q.MinAmount); err != nil {
		return f, fmt.Errorf("%w: min_amount: %v", domain.ErrValidation, err)
	}
	if f.MaxAmount, err = parseAmount(q.MaxAmount); err != nil {
		return f, fmt.Errorf("%w: max_amount: %v", domain.ErrValidation, err)
	}
	for _, v := range splitList(q.Type) {
		d := domain.Direction(strings.ToLower(v))
		if !d.Valid() {
			return f, fmt.Errorf("%w: type %q", domain.ErrInvalidDirection, v)
		}
		f.Directions = append(f.Directions, d)
	}
	for _, v := range splitList(q.Account) {
		k, err := domain.ParseKind(v)
		if err != nil {
			return f, fmt.Errorf("%w: account %q", err, v)
		}
		f.Kinds = append(f.Kinds, k)
	}
	f.Categories = splitList(q.Category)
	f.Status = strings.TrimSpace(q.Status)
	f.Search = strings.TrimSpace(q.Search)
	if s := strings.TrimSpace(q.AccountID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return f, fmt.Errorf("%w: account_id must be a UUID", domain.ErrValidation)
		}
		f.AccountID = &id
	}
	return f, nil
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("want RFC 3339 or YYYY-MM-DD, got %q", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseAmount(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
