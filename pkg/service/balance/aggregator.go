package balance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrAggregatorClosed is returned by fetches started after Close.
var ErrAggregatorClosed = errors.New("balance: aggregator closed")

// Fetcher loads the current balance of one account kind.
type Fetcher interface {
	Fetch(ctx context.Context, kind domain.Kind) (*domain.Balance, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, kind domain.Kind) (*domain.Balance, error)

func (f FetcherFunc) Fetch(ctx context.Context, kind domain.Kind) (*domain.Balance, error) {
	return f(ctx, kind)
}

// Observer is told about every completed fetch.
type Observer interface {
	ObserveFetch(kind domain.Kind, err error, took time.Duration)
}

// State is the view of a single kind. Data survives a failed refresh.
type State struct {
	Data        *domain.Balance `json:"data"`
	Loading     bool            `json:"loading"`
	Error       string          `json:"error"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Snapshot is a consistent copy of every kind's state.
type Snapshot struct {
	States map[domain.Kind]State
	Total  decimal.Decimal
}

// Aggregator tracks the balance of every kind independently.
type Aggregator struct {
	fetcher  Fetcher
	observer Observer
	now      func() time.Time

	mu     sync.Mutex
	states map[domain.Kind]*State
	closed bool
	// issued and applied are per-kind fetch sequence numbers. A result
	// older than one already applied is dropped.
	issued  map[domain.Kind]uint64
	applied map[domain.Kind]uint64
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithObserver reports each fetch to o.
func WithObserver(o Observer) AggregatorOption {
	return func(a *Aggregator) { a.observer = o }
}

func NewAggregator(fetcher Fetcher, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		fetcher: fetcher,
		now:     time.Now,
		states:  make(map[domain.Kind]*State, len(domain.Kinds())),
		issued:  make(map[domain.Kind]uint64),
		applied: make(map[domain.Kind]uint64),
	}
	for _, k := range domain.Kinds() {
		a.states[k] = &State{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fetch refreshes one kind. On failure the previous data is kept and the
// slot's Error describes the failure. When fetches of one kind overlap, a
// result that arrives after a newer one is returned to its caller but not
// recorded, and the kind stays loading until the newest fetch completes.
func (a *Aggregator) Fetch(ctx context.Context, kind domain.Kind) error {
	if !kind.Valid() {
		return domain.ErrInvalidKind
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAggregatorClosed
	}
	st := a.states[kind]
	st.Loading = true
	st.Error = ""
	a.issued[kind]++
	seq := a.issued[kind]
	a.mu.Unlock()

	start := a.now()
	b, err := a.fetcher.Fetch(ctx, kind)
	if err == nil && b == nil {
		err = domain.ErrAccountNotFound
	}
	if a.observer != nil {
		a.observer.ObserveFetch(kind, err, a.now().Sub(start))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAggregatorClosed
	}
	if seq <= a.applied[kind] {
		return err
	}
	a.applied[kind] = seq
	st.Loading = seq < a.issued[kind]
	if err != nil {
		st.Error = fmt.Sprintf("failed to fetch %s balance: %v", kind.Label(), err)
		return err
	}
	cp := *b
	st.Data = &cp
	st.LastUpdated = a.now().UTC()
	return nil
}

// FetchAll refreshes every kind concurrently. It returns the joined
// per-kind errors; each failing kind also records its own error.
func (a *Aggregator) FetchAll(ctx context.Context) error {
	kinds := domain.Kinds()
	errs := make([]error, len(kinds))
	var g errgroup.Group
	for i, k := range kinds {
		g.Go(func() error {
			errs[i] = a.Fetch(ctx, k)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// State returns a copy of kind's state.
func (a *Aggregator) State(kind domain.Kind) State {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.states[kind]
	if !ok {
		return State{}
	}
	return copyState(st)
}

// TotalBalance sums the kinds that have data.
func (a *Aggregator) TotalBalance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total()
}

func (a *Aggregator) total() decimal.Decimal {
	total := decimal.Zero
	for _, st := range a.states {
		if st.Data != nil {
			total = total.Add(st.Data.Amount)
		}
	}
	return total
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Snapshot{States: make(map[domain.Kind]State, len(a.states)), Total: a.total()}
	for k, st := range a.states {
		s.States[k] = copyState(st)
	}
	return s
}

// Close discards the results of fetches still in flight and rejects new
// ones.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

func copyState(st *State) State {
	cp := *st
	if st.Data != nil {
		d := *st.Data
		cp.Data = &d
	}
	return cp
}
