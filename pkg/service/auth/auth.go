// Package auth is the session provider: sign-up, sign-in, sign-out and
// password changes, with auth changes broadcast over the event bus.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/domain/events"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/amirasaad/finboard/pkg/utils"
	"github.com/google/uuid"
)

var (
	ErrNotInitialized   = errors.New("auth: provider not initialized")
	ErrProviderDisposed = errors.New("auth: provider disposed")
)

const minPasswordLength = 6

// SessionStore records which session ids are still live.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
	SessionID string       `json:"-"`
}

// ChangeFunc receives auth changes.
type ChangeFunc func(ctx context.Context, change events.AuthChanged)

type state int

const (
	stateNew state = iota
	stateReady
	stateDisposed
)

// Service is the session provider. Call Init before use and Dispose when
// done.
type Service struct {
	uow      repository.UnitOfWork
	strategy Strategy
	sessions SessionStore
	bus      eventbus.Bus
	logger   *slog.Logger
	hashCost int
	now      func() time.Time

	// dummyHash is compared against when the email is unknown, at the same
	// cost as real hashes, so sign-in time does not reveal the account.
	dummyHash string

	mu     sync.Mutex
	state  state
	unsubs map[int]func()
	nextID int
}

// Option configures a Service.
type Option func(*Service)

// WithHashCost overrides the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func New(
	uow repository.UnitOfWork,
	strategy Strategy,
	sessions SessionStore,
	bus eventbus.Bus,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		uow:      uow,
		strategy: strategy,
		sessions: sessions,
		bus:      bus,
		logger:   logger.With("service", "auth"),
		hashCost: utils.DefaultHashCost,
		now:      time.Now,
		unsubs:   make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	hash, err := utils.HashPasswordWithCost(uuid.NewString(), s.hashCost)
	if err != nil {
		s.logger.Warn("Invalid hash cost, using default", "cost", s.hashCost, "error", err)
		s.hashCost = utils.DefaultHashCost
		hash, _ = utils.HashPasswordWithCost(uuid.NewString(), s.hashCost)
	}
	s.dummyHash = hash
	return s
}

// Init readies the provider. Calling it again is a no-op.
func (s *Service) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateDisposed {
		return ErrProviderDisposed
	}
	s.state = stateReady
	s.logger.Info("Session provider initialized")
	return nil
}

// Dispose drops every OnChange subscription. Later calls fail with
// ErrProviderDisposed.
func (s *Service) Dispose() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = make(map[int]func())
	s.state = stateDisposed
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	s.logger.Info("Session provider disposed", "subscriptions", len(unsubs))
}

func (s *Service) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateNew:
		return ErrNotInitialized
	case stateDisposed:
		return ErrProviderDisposed
	}
	return nil
}

// OnChange subscribes fn to every auth change and returns a func that
// removes the subscription.
func (s *Service) OnChange(fn ChangeFunc) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateDisposed {
		return nil, ErrProviderDisposed
	}

	handler := func(ctx context.Context, e eventbus.Event) error {
		change, ok := events.As[events.AuthChanged](e)
		if !ok {
			return fmt.Errorf("auth: unexpected event %T", e)
		}
		fn(ctx, change)
		return nil
	}
	regs := make([]func(), 0, len(events.AuthChanges()))
	for _, c := range events.AuthChanges() {
		regs = append(regs, s.bus.Register(events.AuthTypeOf(c), handler))
	}

	id := s.nextID
	s.nextID++
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			for _, r := range regs {
				r()
			}
		})
	}
	s.unsubs[id] = unsubscribe

	return func() {
		s.mu.Lock()
		delete(s.unsubs, id)
		s.mu.Unlock()
		unsubscribe()
	}, nil
}

// SignUp creates an identity and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (sess *Session, err error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	log := s.logger.With("op", "SignUp", "email", email)
	log.Info("Signing up")
	defer func() {
		if err != nil {
			log.Warn("Sign-up failed", "error", err)
		}
	}()

	if !utils.IsEmail(email) {
		return nil, domain.ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}
	hash, err := utils.HashPasswordWithCost(password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := domain.NewUser(email, hash)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		return uow.UserRepository().Create(ctx, u)
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.SignedUp, u, "")

	sess, err = s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Info("Signed up", "user_id", u.ID)
	return sess, nil
}

// SignIn verifies the credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (sess *Session, err error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	log := s.logger.With("op", "SignIn", "email", email)
	defer func() {
		if err != nil {
			log.Warn("Sign-in failed", "error", err)
		}
	}()

	var u *domain.User
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		u, err = uow.UserRepository().GetByEmail(ctx, email)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		_ = utils.CheckPasswordHash(password, s.dummyHash)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	sess, err = s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Info("Signed in", "user_id", u.ID)
	return sess, nil
}

func (s *Service) openSession(ctx context.Context, u *domain.User) (*Session, error) {
	sid := uuid.NewString()
	token, expiresAt, err := s.strategy.GenerateToken(u, sid)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sid, u.ID, s.strategy.TTL()); err != nil {
		return nil, domain.NewTransportError("save session", err)
	}
	s.emit(ctx, events.SignedIn, u, sid)
	return &Session{Token: token, ExpiresAt: expiresAt, User: u, SessionID: sid}, nil
}

// SignOut revokes the session behind claims.
func (s *Service) SignOut(ctx context.Context, claims *Claims) error {
	if err := s.ready(); err != nil {
		return err
	}
	if claims == nil {
		return domain.ErrUnauthorized
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return domain.NewTransportError("delete session", err)
	}
	s.emit(ctx, events.SignedOut, &domain.User{ID: claims.UserID, Email: claims.Email}, claims.SessionID)
	s.logger.Info("Signed out", "user_id", claims.UserID)
	return nil
}

// Authenticate parses token and checks that its session is still live.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	claims, err := s.strategy.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if err := s.Verify(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Verify checks that an already parsed session is still live.
func (s *Service) Verify(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return domain.ErrUnauthorized
	}
	live, err := s.sessions.Exists(ctx, claims.SessionID)
	if err != nil {
		return domain.NewTransportError("check session", err)
	}
	if !live {
		return domain.ErrSessionExpired
	}
	return nil
}

// Strategy exposes the token strategy, for middleware that parses tokens
// itself.
func (s *Service) Strategy() Strategy { return s.strategy }

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	log := s.logger.With("op", "ChangePassword", "user_id", userID)
	log.Info("Changing password")
	defer func() {
		if err != nil {
			log.Warn("Password change failed", "error", err)
			return
		}
		log.Info("Password changed")
	}()

	if current == "" {
		return domain.ErrCurrentPasswordReq
	}
	if next == "" {
		return domain.ErrNewPasswordRequired
	}
	if len(next) < minPasswordLength {
		return domain.ErrPasswordTooShort
	}

	var u *domain.User
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo := uow.UserRepository()
		var err error
		if u, err = repo.Get(ctx, userID); err != nil {
			return err
		}
		if !utils.CheckPasswordHash(current, u.PasswordHash) {
			return domain.ErrInvalidCredentials
		}
		hash, err := utils.HashPasswordWithCost(next, s.hashCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		return repo.UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, events.PasswordChanged, u, "")
	return nil
}

// CurrentUser returns the identity behind userID.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var u *domain.User
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		u, err = uow.UserRepository().Get(ctx, userID)
		return err
	})
	return u, err
}

func (s *Service) emit(ctx context.Context, change events.AuthChange, u *domain.User, sid string) {
	evt := events.AuthChanged{
		Change:    change,
		UserID:    u.ID,
		Email:     u.Email,
		SessionID: sid,
		At:        s.now().UTC(),
	}
	if err := s.bus.Emit(ctx, evt); err != nil {
		s.logger.Error("Auth change listener failed", "change", change, "user_id", u.ID, "error", err)
	}
}
