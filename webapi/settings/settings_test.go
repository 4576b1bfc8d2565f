package settings_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/testutils"
	webtestutils "github.com/amirasaad/finboard/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SettingsTestSuite struct {
	webtestutils.E2ETestSuite
	token string
}

func TestSettingsTestSuite(t *testing.T) {
	suite.Run(t, new(SettingsTestSuite))
}

func (s *SettingsTestSuite) SetupTest() {
	s.E2ETestSuite.SetupTest()
	s.token, _ = s.SignUp()
}

func (s *SettingsTestSuite) overview() domain.SettingsOverview {
	resp := s.MakeRequest(http.MethodGet, "/settings", "", s.token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	out := testutils.DecodeJSON[webtestutils.Envelope[domain.SettingsOverview]](s.T(), resp)
	s.Require().True(out.Success)
	return out.Data
}

func (s *SettingsTestSuite) TestDefaults() {
	o := s.overview()
	s.Equal(domain.ThemeSystem, o.Account.Theme)
	s.Equal(domain.DefaultCurrency, o.Account.Currency)
	s.True(o.Notifications.EmailNotifications)
	s.True(o.Notifications.LowBalanceAlerts)
	s.True(o.Notifications.LargeTransactionAlerts)
	s.True(decimal.NewFromInt(1000).Equal(o.Notifications.LowBalanceThreshold))
	s.True(decimal.NewFromInt(10000).Equal(o.Notifications.LargeTransactionThreshold))
	s.Empty(o.Profile.FullName)
}

func (s *SettingsTestSuite) TestUnauthorizedEnvelope() {
	resp := s.MakeRequest(http.MethodGet, "/settings", "", "")
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)
	out := testutils.DecodeJSON[webtestutils.Envelope[any]](s.T(), resp)
	s.False(out.Success)
	s.NotEmpty(out.Error)
}

func (s *SettingsTestSuite) TestUpdateProfileMerges() {
	resp := s.MakeRequest(http.MethodPut, "/settings/profile",
		`{"full_name":"Wanjiku Kamau","phone_number":"+254700000001"}`, s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)

	resp = s.MakeRequest(http.MethodPut, "/settings/profile", `{"phone_number":"+254700000002"}`, s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	p := testutils.DecodeJSON[webtestutils.Envelope[domain.Profile]](s.T(), resp).Data
	s.Equal("Wanjiku Kamau", p.FullName)
	s.Equal("+254700000002", p.PhoneNumber)

	s.Equal("Wanjiku Kamau", s.overview().Profile.FullName)

	resp = s.MakeRequest(http.MethodPut, "/settings/profile", `{"avatar_url":"not a url"}`, s.token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	s.False(testutils.DecodeJSON[webtestutils.Envelope[any]](s.T(), resp).Success)
}

func (s *SettingsTestSuite) TestUpdatePreferences() {
	resp := s.MakeRequest(http.MethodPut, "/settings/preferences", `{"theme":"dark","currency":"USD"}`, s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	got := testutils.DecodeJSON[webtestutils.Envelope[domain.Settings]](s.T(), resp).Data
	s.Equal(domain.ThemeDark, got.Theme)
	s.Equal("USD", got.Currency)

	resp = s.MakeRequest(http.MethodPut, "/settings/preferences", `{"theme":"sepia"}`, s.token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	out := testutils.DecodeJSON[webtestutils.Envelope[any]](s.T(), resp)
	s.Contains(out.Error, "theme")

	resp = s.MakeRequest(http.MethodPut, "/settings/preferences", `{"currency":"dollars"}`, s.token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)

	s.Equal(domain.ThemeDark, s.overview().Account.Theme, "rejected saves leave the row alone")
}

func (s *SettingsTestSuite) TestUpdateNotifications() {
	resp := s.MakeRequest(http.MethodPut, "/settings/notifications",
		`{"email_notifications":false,"low_balance_threshold":"250.50"}`, s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)

	o := s.overview()
	s.False(o.Notifications.EmailNotifications)
	s.True(o.Notifications.LowBalanceAlerts)
	s.True(decimal.RequireFromString("250.5").Equal(o.Notifications.LowBalanceThreshold))

	resp = s.MakeRequest(http.MethodPut, "/settings/notifications", `{"large_transaction_threshold":-1}`, s.token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *SettingsTestSuite) TestReset() {
	s.MakeRequest(http.MethodPut, "/settings/preferences", `{"theme":"light","currency":"EUR"}`, s.token)
	s.MakeRequest(http.MethodPut, "/settings/notifications", `{"low_balance_alerts":false}`, s.token)

	resp := s.MakeRequest(http.MethodPost, "/settings/reset", "", s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)

	o := s.overview()
	s.Equal(domain.ThemeSystem, o.Account.Theme)
	s.Equal(domain.DefaultCurrency, o.Account.Currency)
	s.True(o.Notifications.LowBalanceAlerts)
}

func (s *SettingsTestSuite) TestUpdatePassword() {
	email := "pw-change@example.com"
	resp := s.MakeRequest(http.MethodPost, "/auth/signup",
		fmt.Sprintf(`{"email":%q,"password":"password123"}`, email), "")
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	token := testutils.DecodeJSON[webtestutils.Response[struct {
		Token string `json:"token"`
	}]](s.T(), resp).Data.Token

	resp = s.MakeRequest(http.MethodPut, "/settings/password",
		`{"current_password":"password123","new_password":"n3w-secret","confirm_password":"typo"}`, token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	s.Contains(testutils.DecodeJSON[webtestutils.Envelope[any]](s.T(), resp).Error, "do not match")

	resp = s.MakeRequest(http.MethodPut, "/settings/password",
		`{"current_password":"wrong","new_password":"n3w-secret","confirm_password":"n3w-secret"}`, token)
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.MakeRequest(http.MethodPut, "/settings/password",
		`{"current_password":"password123","new_password":"n3w-secret","confirm_password":"n3w-secret"}`, token)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	s.True(testutils.DecodeJSON[webtestutils.Envelope[any]](s.T(), resp).Success)

	login := func(password string) int {
		return s.MakeRequest(http.MethodPost, "/auth/login",
			fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), "").StatusCode
	}
	s.Equal(fiber.StatusUnauthorized, login("password123"))
	s.Equal(fiber.StatusOK, login("n3w-secret"))
}

func (s *SettingsTestSuite) TestConcurrentFirstAccess() {
	token, _ := s.SignUp()
	var wg sync.WaitGroup
	codes := make([]int, 5)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.MakeRequest(http.MethodGet, "/settings", "", token).StatusCode
		}(i)
	}
	wg.Wait()
	for _, code := range codes {
		s.Equal(fiber.StatusOK, code)
	}
}
