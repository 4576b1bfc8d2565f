package events_test

import (
	"testing"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/domain/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAs(t *testing.T) {
	owner := uuid.New()

	t.Run("value", func(t *testing.T) {
		got, ok := events.As[events.AccountLinked](events.AccountLinked{OwnerID: owner, Kind: domain.KindSBM})
		require.True(t, ok)
		assert.Equal(t, owner, got.OwnerID)
	})

	t.Run("pointer", func(t *testing.T) {
		got, ok := events.As[events.AccountLinked](&events.AccountLinked{OwnerID: owner})
		require.True(t, ok)
		assert.Equal(t, owner, got.OwnerID)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var e *events.AccountLinked
		_, ok := events.As[events.AccountLinked](e)
		assert.False(t, ok)
	})

	t.Run("other type", func(t *testing.T) {
		_, ok := events.As[events.AccountLinked](events.AccountUnlinked{OwnerID: owner})
		assert.False(t, ok)
	})
}

func TestRegistry(t *testing.T) {
	r := events.Registry()
	for _, typ := range []string{
		events.TypeTransactionChanged,
		events.TypeAccountLinked,
		events.TypeAccountUnlinked,
		events.AuthTypeOf(events.SignedUp),
		events.AuthTypeOf(events.SignedIn),
		events.AuthTypeOf(events.SignedOut),
		events.AuthTypeOf(events.PasswordChanged),
	} {
		ctor, ok := r[typ]
		require.True(t, ok, typ)
		assert.NotNil(t, ctor())
	}
}
