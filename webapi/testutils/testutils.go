// Package testutils builds a fully wired fiber app over in-memory
// infrastructure for handler tests.
package testutils

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amirasaad/finboard/infra/cache"
	"github.com/amirasaad/finboard/infra/eventbus"
	"github.com/amirasaad/finboard/infra/metrics"
	"github.com/amirasaad/finboard/infra/repository/memory"
	"github.com/amirasaad/finboard/pkg/app"
	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/amirasaad/finboard/pkg/service/auth"
	"github.com/amirasaad/finboard/pkg/service/notification"
	pkgtestutils "github.com/amirasaad/finboard/pkg/testutils"
	"github.com/amirasaad/finboard/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// TestConfig returns a configuration suitable for in-process tests.
func TestConfig() *config.App {
	return &config.App{
		Env:       "test",
		Server:    &config.Server{Scheme: "http", Host: "localhost", Port: 3000},
		Log:       &config.Log{Format: "text"},
		DB:        &config.DB{Driver: "memory"},
		Auth:      &config.Auth{Strategy: "jwt", Jwt: &config.Jwt{Secret: "webapi-test-secret", Expiry: time.Hour}},
		Redis:     &config.Redis{},
		RateLimit: &config.RateLimit{MaxRequests: 1000, Window: time.Second},
		Cache:     &config.Cache{Driver: "memory", BalanceTTL: time.Minute},
		EventBus:  &config.EventBus{Driver: "memory"},
		Notifications: &config.Notifications{
			Exchange: "finboard.alerts", Queue: "finboard.alerts.email", RoutingKey: "alert",
		},
		Balance:  &config.Balance{Currency: "KES"},
		Accounts: &config.Accounts{SeedSamples: false},
		Client:   &config.Client{BaseURL: "http://localhost:3000", Timeout: 5 * time.Second},
	}
}

// E2ETestSuite provides a fresh app over in-memory infrastructure for
// every test.
type E2ETestSuite struct {
	suite.Suite
	// Configure, when set, adjusts the config before the app is built.
	Configure func(cfg *config.App)
	// NewUoW, when set, replaces the in-memory unit of work.
	NewUoW func() repository.UnitOfWork
	// Notifiers are appended to the default alert notifiers.
	Notifiers []notification.Notifier

	App      *app.App
	FiberApp *fiber.App
	Metrics  *metrics.Metrics
	Cfg      *config.App

	cleanup []func()
}

func (s *E2ETestSuite) SetupTest() {
	s.Cfg = TestConfig()
	if s.Configure != nil {
		s.Configure(s.Cfg)
	}
	var uow repository.UnitOfWork
	if s.NewUoW != nil {
		uow = s.NewUoW()
	} else {
		uow = memory.NewUoW(memory.NewStore())
	}

	logger := pkgtestutils.DiscardLogger()
	balanceCache := cache.NewMemoryBalanceCache()
	sessions := cache.NewMemorySessionStore()
	s.Metrics = metrics.New()

	deps := &app.Deps{
		Uow:          uow,
		EventBus:     eventbus.NewWithMemory(logger),
		BalanceCache: balanceCache,
		Sessions:     sessions,
		Notifiers: append([]notification.Notifier{
			notification.NewLogNotifier(logger),
			s.Metrics.Alerts(),
		}, s.Notifiers...),
		Observer:    s.Metrics,
		AuthOptions: []auth.Option{auth.WithHashCost(bcrypt.MinCost)},
		Logger:      logger,
	}
	a, err := app.New(context.Background(), deps, s.Cfg)
	s.Require().NoError(err)
	s.App = a
	s.FiberApp = webapi.SetupApp(a, s.Metrics)
	s.cleanup = append(s.cleanup, a.Close, func() { _ = balanceCache.Close() }, func() { _ = sessions.Close() })
}

func (s *E2ETestSuite) TearDownTest() {
	for _, fn := range s.cleanup {
		fn()
	}
	s.cleanup = nil
}

// MakeRequest is a helper for making HTTP requests in tests
func (s *E2ETestSuite) MakeRequest(method, path, body, token string) *http.Response {
	return pkgtestutils.MakeRequest(s.T(), s.FiberApp, method, path, body, token)
}

type signupResponse struct {
	Data struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	} `json:"data"`
}

// SignUp creates a fresh identity through the API and returns its token
// and id.
func (s *E2ETestSuite) SignUp() (string, uuid.UUID) {
	email := fmt.Sprintf("user_%s@example.com", uuid.NewString()[:8])
	body := fmt.Sprintf(`{"email":%q,"password":"password123"}`, email)
	resp := s.MakeRequest(http.MethodPost, "/auth/signup", body, "")
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	out := pkgtestutils.DecodeJSON[signupResponse](s.T(), resp)
	s.Require().NotEmpty(out.Data.Token)
	return out.Data.Token, out.Data.User.ID
}

// Response mirrors common.Response with a typed payload.
type Response[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Envelope mirrors common.Envelope with a typed payload.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// Problem mirrors common.ProblemDetails.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Errors any    `json:"errors"`
}

// LinkAccount links an account through the API and returns its id.
func (s *E2ETestSuite) LinkAccount(token, kind, number string) uuid.UUID {
	body := fmt.Sprintf(`{"kind":%q,"account_number":%q}`, kind, number)
	resp := s.MakeRequest(http.MethodPost, "/accounts", body, token)
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	out := pkgtestutils.DecodeJSON[Response[struct {
		ID uuid.UUID `json:"id"`
	}]](s.T(), resp)
	return out.Data.ID
}

// PostTransaction creates a transaction through the API and returns its id.
func (s *E2ETestSuite) PostTransaction(token string, account uuid.UUID, amount, typ, description string) uuid.UUID {
	body := fmt.Sprintf(`{"account_id":%q,"amount":%s,"type":%q,"description":%q}`, account, amount, typ, description)
	resp := s.MakeRequest(http.MethodPost, "/transactions", body, token)
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	out := pkgtestutils.DecodeJSON[Response[struct {
		ID uuid.UUID `json:"id"`
	}]](s.T(), resp)
	return out.Data.ID
}
