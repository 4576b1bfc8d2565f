package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	webtestutils "github.com/amirasaad/finboard/webapi/testutils"
	"github.com/fatih/color"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/suite"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type CLITestSuite struct {
	webtestutils.E2ETestSuite
	out *bytes.Buffer
	cli *cli
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func (s *CLITestSuite) SetupTest() {
	s.E2ETestSuite.SetupTest()
	srv := httptest.NewServer(adaptor.FiberApp(s.FiberApp))
	s.T().Cleanup(srv.Close)
	s.T().Setenv("CLIENT_BASE_URL", srv.URL)
	s.T().Setenv("CLIENT_TOKEN", "")

	s.out = &bytes.Buffer{}
	s.cli = &cli{
		stdin:        strings.NewReader(""),
		stdout:       s.out,
		stderr:       s.out,
		readPassword: func() (string, error) { return "password123", nil },
		env:          []string{filepath.Join(s.T().TempDir(), "missing.env")},
	}
}

func (s *CLITestSuite) TestUsage() {
	s.Require().NoError(s.cli.run(context.Background(), nil))
	s.Contains(s.out.String(), "Commands:")

	err := s.cli.run(context.Background(), []string{"frobnicate"})
	s.ErrorContains(err, `unknown command "frobnicate"`)
}

func (s *CLITestSuite) TestLogin() {
	resp := s.MakeRequest(http.MethodPost, "/auth/signup", `{"email":"cli@example.com","password":"password123"}`, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	s.cli.stdin = strings.NewReader("cli@example.com\n")
	s.Require().NoError(s.cli.run(context.Background(), []string{"login"}))
	s.Contains(s.out.String(), "Token (expires")

	s.cli.readPassword = func() (string, error) { return "nope", nil }
	err := s.cli.run(context.Background(), []string{"login", "-email", "cli@example.com"})
	s.EqualError(err, "email or password is incorrect")
}

func (s *CLITestSuite) TestBalances() {
	token, _ := s.SignUp()
	acct := s.LinkAccount(token, "mpesa", "254733333333")
	s.PostTransaction(token, acct, "1234.5", "credit", "Salary")

	s.Require().NoError(s.cli.run(context.Background(), []string{"balances", "-token", token}))
	out := s.out.String()
	s.Contains(out, "M-Pesa")
	s.Contains(out, "KES 1234.50")
	s.Contains(out, "failed to fetch SBM Bank balance")
	s.Contains(out, "Total")
}

func (s *CLITestSuite) TestBalancesWithoutToken() {
	err := s.cli.run(context.Background(), []string{"balances"})
	s.ErrorContains(err, "not signed in")
}

func (s *CLITestSuite) TestExport() {
	token, _ := s.SignUp()
	acct := s.LinkAccount(token, "sbm", "0011223344")
	s.PostTransaction(token, acct, "99", "debit", "Internet")
	s.T().Setenv("CLIENT_TOKEN", token)

	dir := s.T().TempDir()
	s.Require().NoError(s.cli.run(context.Background(), []string{"export", "-format", "json", "-dir", dir}))

	matches, err := filepath.Glob(filepath.Join(dir, "transactions_*.json"))
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	body, err := os.ReadFile(matches[0])
	s.Require().NoError(err)
	s.Contains(string(body), `"description": "Internet"`)

	err = s.cli.run(context.Background(), []string{"export", "-format", "xml"})
	s.Error(err)
}

func (s *CLITestSuite) TestMigrateRejectsMemoryDriver() {
	s.T().Setenv("AUTH_JWT_SECRET", "cli-secret")
	s.T().Setenv("DATABASE_DRIVER", "memory")
	err := s.cli.run(context.Background(), []string{"migrate"})
	s.ErrorContains(err, "memory")
}

func (s *CLITestSuite) TestMigrateSqlite() {
	s.T().Setenv("AUTH_JWT_SECRET", "cli-secret")
	s.T().Setenv("DATABASE_DRIVER", "sqlite")
	s.T().Setenv("DATABASE_URL", filepath.Join(s.T().TempDir(), "finboard.db"))
	s.Require().NoError(s.cli.run(context.Background(), []string{"migrate"}))
	s.Contains(s.out.String(), "Migrations applied")
}
