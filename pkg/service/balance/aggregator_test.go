package balance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, kind domain.Kind) (*domain.Balance, error) {
	args := m.Called(ctx, kind)
	b, _ := args.Get(0).(*domain.Balance)
	return b, args.Error(1)
}

type recordingObserver struct {
	mu    sync.Mutex
	kinds []domain.Kind
	errs  int
}

func (o *recordingObserver) ObserveFetch(kind domain.Kind, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
	if err != nil {
		o.errs++
	}
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregator_FetchSuccess(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, domain.KindMpesa).
		Return(&domain.Balance{Kind: domain.KindMpesa, Amount: amount("15750.85"), Currency: "KES"}, nil).Once()

	a := NewAggregator(f)
	require.NoError(t, a.Fetch(context.Background(), domain.KindMpesa))

	st := a.State(domain.KindMpesa)
	require.NotNil(t, st.Data)
	assert.True(t, amount("15750.85").Equal(st.Data.Amount))
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.False(t, st.LastUpdated.IsZero())
	f.AssertExpectations(t)
}

func TestAggregator_FailureKeepsStaleData(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, domain.KindSBM).
		Return(&domain.Balance{Kind: domain.KindSBM, Amount: amount("100")}, nil).Once()
	f.On("Fetch", mock.Anything, domain.KindSBM).
		Return(nil, domain.NewTransportError("get", errors.New("connection refused"))).Once()

	a := NewAggregator(f)
	require.NoError(t, a.Fetch(context.Background(), domain.KindSBM))
	err := a.Fetch(context.Background(), domain.KindSBM)
	require.ErrorIs(t, err, domain.ErrTransport)

	st := a.State(domain.KindSBM)
	require.NotNil(t, st.Data, "previous data survives a failed refresh")
	assert.True(t, amount("100").Equal(st.Data.Amount))
	assert.Contains(t, st.Error, "failed to fetch SBM Bank balance")
	assert.False(t, st.Loading)
}

func TestAggregator_FetchAllIsolatesKinds(t *testing.T) {
	notFound := domain.ErrAccountNotFound
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, domain.KindMpesa).Return(&domain.Balance{Amount: amount("1000.50")}, nil)
	f.On("Fetch", mock.Anything, domain.KindSBM).Return(nil, notFound)
	f.On("Fetch", mock.Anything, domain.KindCoop).Return(&domain.Balance{Amount: amount("250.25")}, nil)

	obs := &recordingObserver{}
	a := NewAggregator(f, WithObserver(obs))
	err := a.FetchAll(context.Background())
	require.ErrorIs(t, err, notFound)

	snap := a.Snapshot()
	assert.Empty(t, snap.States[domain.KindMpesa].Error)
	assert.Contains(t, snap.States[domain.KindSBM].Error, "SBM Bank")
	assert.Nil(t, snap.States[domain.KindSBM].Data)
	assert.Empty(t, snap.States[domain.KindCoop].Error)
	assert.True(t, amount("1250.75").Equal(snap.Total))
	assert.True(t, amount("1250.75").Equal(a.TotalBalance()))

	assert.ElementsMatch(t, domain.Kinds(), obs.kinds)
	assert.Equal(t, 1, obs.errs)
}

func TestAggregator_TotalWithoutData(t *testing.T) {
	a := NewAggregator(FetcherFunc(func(context.Context, domain.Kind) (*domain.Balance, error) {
		return nil, errors.New("down")
	}))
	require.Error(t, a.FetchAll(context.Background()))
	assert.True(t, a.TotalBalance().IsZero())
}

func TestAggregator_RejectsUnknownKind(t *testing.T) {
	a := NewAggregator(&mockFetcher{})
	require.ErrorIs(t, a.Fetch(context.Background(), "paypal"), domain.ErrInvalidKind)
}

func TestAggregator_CloseDiscardsLateResults(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	a := NewAggregator(FetcherFunc(func(context.Context, domain.Kind) (*domain.Balance, error) {
		close(started)
		<-release
		return &domain.Balance{Amount: amount("10")}, nil
	}))

	done := make(chan error, 1)
	go func() { done <- a.Fetch(context.Background(), domain.KindCoop) }()
	<-started
	assert.True(t, a.State(domain.KindCoop).Loading)

	a.Close()
	close(release)
	require.ErrorIs(t, <-done, ErrAggregatorClosed)
	assert.Nil(t, a.State(domain.KindCoop).Data)

	require.ErrorIs(t, a.Fetch(context.Background(), domain.KindCoop), ErrAggregatorClosed)
}

// gatedFetcher hands each call's reply channel to the test.
type gatedFetcher chan chan *domain.Balance

func (g gatedFetcher) Fetch(context.Context, domain.Kind) (*domain.Balance, error) {
	reply := make(chan *domain.Balance)
	g <- reply
	return <-reply, nil
}

func TestAggregator_OverlappingFetches(t *testing.T) {
	t.Run("older result after newer is dropped", func(t *testing.T) {
		calls := make(gatedFetcher)
		a := NewAggregator(calls)
		ctx := context.Background()

		older := make(chan error, 1)
		go func() { older <- a.Fetch(ctx, domain.KindMpesa) }()
		replyOlder := <-calls
		newer := make(chan error, 1)
		go func() { newer <- a.Fetch(ctx, domain.KindMpesa) }()
		replyNewer := <-calls

		replyNewer <- &domain.Balance{Amount: amount("200")}
		require.NoError(t, <-newer)
		st := a.State(domain.KindMpesa)
		assert.False(t, st.Loading)
		assert.True(t, amount("200").Equal(st.Data.Amount))

		replyOlder <- &domain.Balance{Amount: amount("100")}
		require.NoError(t, <-older)
		st = a.State(domain.KindMpesa)
		assert.False(t, st.Loading)
		assert.True(t, amount("200").Equal(st.Data.Amount), "got %s", st.Data.Amount)
	})

	t.Run("older result first keeps loading", func(t *testing.T) {
		calls := make(gatedFetcher)
		a := NewAggregator(calls)
		ctx := context.Background()

		older := make(chan error, 1)
		go func() { older <- a.Fetch(ctx, domain.KindSBM) }()
		replyOlder := <-calls
		newer := make(chan error, 1)
		go func() { newer <- a.Fetch(ctx, domain.KindSBM) }()
		replyNewer := <-calls

		replyOlder <- &domain.Balance{Amount: amount("100")}
		require.NoError(t, <-older)
		st := a.State(domain.KindSBM)
		assert.True(t, st.Loading)
		assert.True(t, amount("100").Equal(st.Data.Amount))

		replyNewer <- &domain.Balance{Amount: amount("200")}
		require.NoError(t, <-newer)
		st = a.State(domain.KindSBM)
		assert.False(t, st.Loading)
		assert.True(t, amount("200").Equal(st.Data.Amount))
	})
}

func TestAggregator_StateIsACopy(t *testing.T) {
	a := NewAggregator(FetcherFunc(func(context.Context, domain.Kind) (*domain.Balance, error) {
		return &domain.Balance{Amount: amount("5")}, nil
	}))
	require.NoError(t, a.Fetch(context.Background(), domain.KindMpesa))

	st := a.State(domain.KindMpesa)
	st.Data.Amount = amount("999")
	assert.True(t, amount("5").Equal(a.State(domain.KindMpesa).Data.Amount))
}
