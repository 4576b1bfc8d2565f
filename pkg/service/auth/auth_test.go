package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/finboard/infra/cache"
	"github.com/amirasaad/finboard/infra/eventbus"
	"github.com/amirasaad/finboard/infra/repository/memory"
	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/domain/events"
	pkgbus "github.com/amirasaad/finboard/pkg/eventbus"
	authsvc "github.com/amirasaad/finboard/pkg/service/auth"
	"github.com/amirasaad/finboard/pkg/testutils"
	"github.com/amirasaad/finboard/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc      *authsvc.Service
	bus      *eventbus.MemoryEventBus
	sessions *cache.MemorySessionStore
	store    *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	bus := eventbus.NewWithMemory(testutils.DiscardLogger())
	sessions := cache.NewMemorySessionStore()
	t.Cleanup(func() { _ = sessions.Close() })

	strategy := authsvc.NewJWTStrategy(&config.Jwt{Secret: "test-secret", Expiry: time.Hour})
	svc := authsvc.New(memory.NewUoW(store), strategy, sessions, bus, testutils.DiscardLogger(),
		authsvc.WithHashCost(bcrypt.MinCost))
	require.NoError(t, svc.Init(context.Background()))
	return &fixture{svc: svc, bus: bus, sessions: sessions, store: store}
}

// recorder collects auth changes delivered through OnChange.
type recorder struct {
	mu      sync.Mutex
	changes []events.AuthChange
}

func (r *recorder) record(_ context.Context, c events.AuthChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c.Change)
}

func (r *recorder) seen() []events.AuthChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.AuthChange(nil), r.changes...)
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	strategy := authsvc.NewJWTStrategy(&config.Jwt{Secret: "s", Expiry: time.Hour})
	svc := authsvc.New(memory.NewUoW(store), strategy, cache.NewMemorySessionStore(),
		eventbus.NewWithMemory(testutils.DiscardLogger()), testutils.DiscardLogger())

	_, err := svc.SignIn(ctx, "a@example.com", "secret1")
	require.ErrorIs(t, err, authsvc.ErrNotInitialized)

	require.NoError(t, svc.Init(ctx))
	require.NoError(t, svc.Init(ctx), "Init is idempotent")

	svc.Dispose()
	_, err = svc.SignIn(ctx, "a@example.com", "secret1")
	require.ErrorIs(t, err, authsvc.ErrProviderDisposed)
	require.ErrorIs(t, svc.Init(ctx), authsvc.ErrProviderDisposed)
	_, err = svc.OnChange(func(context.Context, events.AuthChanged) {})
	require.ErrorIs(t, err, authsvc.ErrProviderDisposed)
}

func TestSignUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := &recorder{}
	_, err := f.svc.OnChange(rec.record)
	require.NoError(t, err)

	sess, err := f.svc.SignUp(ctx, "  Alice@Example.com ", "secret1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
	assert.Equal(t, []events.AuthChange{events.SignedUp, events.SignedIn}, rec.seen())

	live, err := f.sessions.Exists(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.True(t, live)
}

func TestSignUp_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"invalid email", "not-an-email", "secret1", domain.ErrInvalidEmail},
		{"display name is not an email", "Alice <alice@example.com>", "secret1", domain.ErrInvalidEmail},
		{"short password", "bob@example.com", "12345", domain.ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SignUp(ctx, tt.email, tt.password)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "dup@example.com", "secret1")
	require.NoError(t, err)
	_, err = f.svc.SignUp(ctx, "DUP@example.com", "secret2")
	require.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, "carol@example.com", "secret1")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		sess, err := f.svc.SignIn(ctx, "Carol@example.com", "secret1")
		require.NoError(t, err)
		claims, err := f.svc.Authenticate(ctx, "Bearer "+sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.User.ID, claims.UserID)
		assert.Equal(t, "carol@example.com", claims.Email)
		assert.Equal(t, sess.SessionID, claims.SessionID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.SignIn(ctx, "carol@example.com", "wrong")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.SignIn(ctx, "nobody@example.com", "secret1")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := &recorder{}

	sess, err := f.svc.SignUp(ctx, "dave@example.com", "secret1")
	require.NoError(t, err)
	claims, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	_, err = f.svc.OnChange(rec.record)
	require.NoError(t, err)
	require.NoError(t, f.svc.SignOut(ctx, claims))
	assert.Equal(t, []events.AuthChange{events.SignedOut}, rec.seen())

	_, err = f.svc.Authenticate(ctx, sess.Token)
	require.ErrorIs(t, err, domain.ErrSessionExpired)

	require.ErrorIs(t, f.svc.SignOut(ctx, nil), domain.ErrUnauthorized)
}

func TestAuthenticate_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Authenticate(ctx, "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.Authenticate(ctx, "Bearer garbage")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	other := authsvc.NewJWTStrategy(&config.Jwt{Secret: "other-secret", Expiry: time.Hour})
	token, _, err := other.GenerateToken(&domain.User{ID: uuid.New(), Email: "x@example.com"}, "sid")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOnChange_Unsubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := &recorder{}

	unsubscribe, err := f.svc.OnChange(rec.record)
	require.NoError(t, err)
	unsubscribe()
	unsubscribe()

	_, err = f.svc.SignUp(ctx, "erin@example.com", "secret1")
	require.NoError(t, err)
	assert.Empty(t, rec.seen())
}

func TestDispose_DropsSubscriptions(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.OnChange(func(context.Context, events.AuthChanged) {})
	require.NoError(t, err)
	assert.Equal(t, 1, f.bus.Handlers(events.AuthTypeOf(events.SignedIn)))

	f.svc.Dispose()
	for _, c := range events.AuthChanges() {
		assert.Zero(t, f.bus.Handlers(events.AuthTypeOf(c)), c)
	}
}

func TestListenerFailureDoesNotFailSignUp(t *testing.T) {
	f := newFixture(t)
	f.bus.Register(events.AuthTypeOf(events.SignedUp), func(context.Context, pkgbus.Event) error {
		return errors.New("listener down")
	})

	sess, err := f.svc.SignUp(context.Background(), "frank@example.com", "secret1")
	require.NoError(t, err)
	assert.NotNil(t, sess)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.SignUp(ctx, "grace@example.com", "secret1")
	require.NoError(t, err)
	id := sess.User.ID

	require.ErrorIs(t, f.svc.ChangePassword(ctx, id, "", "secret2"), domain.ErrCurrentPasswordReq)
	require.ErrorIs(t, f.svc.ChangePassword(ctx, id, "secret1", ""), domain.ErrNewPasswordRequired)
	require.ErrorIs(t, f.svc.ChangePassword(ctx, id, "secret1", "123"), domain.ErrPasswordTooShort)
	require.ErrorIs(t, f.svc.ChangePassword(ctx, id, "wrong", "secret2"), domain.ErrInvalidCredentials)
	require.ErrorIs(t, f.svc.ChangePassword(ctx, uuid.New(), "secret1", "secret2"), domain.ErrUserNotFound)

	require.NoError(t, f.svc.ChangePassword(ctx, id, "secret1", "secret2"))

	_, err = f.svc.SignIn(ctx, "grace@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.svc.SignIn(ctx, "grace@example.com", "secret2")
	require.NoError(t, err)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.SignUp(ctx, "heidi@example.com", "secret1")
	require.NoError(t, err)

	u, err := f.svc.CurrentUser(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "heidi@example.com", u.Email)
	assert.True(t, utils.CheckPasswordHash("secret1", u.PasswordHash))

	_, err = f.svc.CurrentUser(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignIn_UnknownEmailHashMatchesRealCost(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost, bcrypt.MinCost + 1} {
		store := memory.NewStore()
		sessions := cache.NewMemorySessionStore()
		t.Cleanup(func() { _ = sessions.Close() })
		svc := authsvc.New(memory.NewUoW(store),
			authsvc.NewJWTStrategy(&config.Jwt{Secret: "test-secret", Expiry: time.Hour}),
			sessions, eventbus.NewWithMemory(testutils.DiscardLogger()),
			testutils.DiscardLogger(), authsvc.WithHashCost(cost))
		ctx := context.Background()
		require.NoError(t, svc.Init(ctx))

		_, err := svc.SignUp(ctx, "cost@example.com", "secret1")
		require.NoError(t, err)
		u, err := memory.NewUoW(store).UserRepository().GetByEmail(ctx, "cost@example.com")
		require.NoError(t, err)

		realCost, err := bcrypt.Cost([]byte(u.PasswordHash))
		require.NoError(t, err)
		dummy, err := bcrypt.Cost([]byte(svc.DummyHash()))
		require.NoError(t, err)
		assert.Equal(t, cost, realCost)
		assert.Equal(t, realCost, dummy)

		_, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
}
