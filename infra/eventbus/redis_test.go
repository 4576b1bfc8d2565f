package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/domain/events"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/amirasaad/finboard/pkg/testutils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisBus(t *testing.T) (*RedisEventBus, *redis.Client) {
	t.Helper()
	client := testutils.StartRedis(t)
	bus, err := NewWithRedis(context.Background(), client, RedisEventBusConfig{
		Stream: "test:events:" + uuid.NewString(),
		Group:  "test",
		Block:  100 * time.Millisecond,
	}, events.Registry(), testutils.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus, client
}

func TestRedisEventBus_DeliversTypedEvents(t *testing.T) {
	bus, _ := setupRedisBus(t)

	txs := make(chan events.TransactionChanged, 1)
	auths := make(chan events.AuthChanged, 1)
	bus.Register(events.TypeTransactionChanged, func(_ context.Context, e eventbus.Event) error {
		evt, ok := events.As[events.TransactionChanged](e)
		assert.True(t, ok)
		txs <- evt
		return nil
	})
	bus.Register(events.AuthTypeOf(events.SignedOut), func(_ context.Context, e eventbus.Event) error {
		evt, ok := events.As[events.AuthChanged](e)
		assert.True(t, ok)
		auths <- evt
		return nil
	})

	owner := uuid.New()
	require.NoError(t, bus.Emit(context.Background(), events.TransactionChanged{
		Op:        events.OpCreated,
		OwnerID:   owner,
		Kind:      domain.KindSBM,
		Amount:    decimal.RequireFromString("125.50"),
		Direction: domain.Debit,
	}))
	require.NoError(t, bus.Emit(context.Background(), events.AuthChanged{Change: events.SignedOut, UserID: owner}))

	select {
	case evt := <-txs:
		assert.Equal(t, owner, evt.OwnerID)
		assert.Equal(t, domain.KindSBM, evt.Kind)
		assert.True(t, decimal.RequireFromString("125.50").Equal(evt.Amount))
	case <-time.After(5 * time.Second):
		t.Fatal("transaction event not delivered")
	}
	select {
	case evt := <-auths:
		assert.Equal(t, events.SignedOut, evt.Change)
	case <-time.After(5 * time.Second):
		t.Fatal("auth event not delivered")
	}
}

func TestRedisEventBus_FailedHandlerGoesToDLQ(t *testing.T) {
	bus, client := setupRedisBus(t)
	bus.Register(events.TypeAccountLinked, func(context.Context, eventbus.Event) error {
		return assert.AnError
	})

	require.NoError(t, bus.Emit(context.Background(), events.AccountLinked{OwnerID: uuid.New(), Kind: domain.KindCoop}))

	require.Eventually(t, func() bool {
		n, err := client.XLen(context.Background(), bus.DLQStream()).Result()
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)

	msgs, err := client.XRange(context.Background(), bus.DLQStream(), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, assert.AnError.Error(), msgs[0].Values["error"])
}

func TestRedisEventBus_CloseWithoutRegister(t *testing.T) {
	bus, _ := setupRedisBus(t)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
}
