package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/finboard/pkg/client"
	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/export"
	"github.com/amirasaad/finboard/pkg/service/balance"
	"github.com/amirasaad/finboard/pkg/testutils"
	webtestutils "github.com/amirasaad/finboard/webapi/testutils"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func newClient(t *testing.T, h http.Handler, opts ...client.Option) *client.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := &config.Client{BaseURL: srv.URL + "/", Timeout: time.Second}
	return client.New(cfg, testutils.DiscardLogger(), opts...)
}

func TestFetch_SendsTokenAndDecodes(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/balance/sbm", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"kind":"sbm","account_number":"0012","balance":"250.75","currency":"KES"}}`))
	}), client.WithToken("tok"))

	b, err := c.Fetch(context.Background(), domain.KindSBM)
	require.NoError(t, err)
	assert.Equal(t, domain.KindSBM, b.Kind)
	assert.True(t, decimal.RequireFromString("250.75").Equal(b.Amount))
}

func TestFetch_MapsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"success":false,"error":"unauthorized"}`, domain.ErrUnauthorized, "unauthorized"},
		{"not found", http.StatusNotFound, `{"success":false,"error":"account resource not found"}`, domain.ErrNotFound, "account resource not found"},
		{"problem details", http.StatusNotFound, `{"title":"Not Found","detail":"no such route"}`, domain.ErrNotFound, "no such route"},
		{"server error", http.StatusInternalServerError, `{"success":false,"error":"boom"}`, domain.ErrTransport, "boom"},
		{"conflict", http.StatusConflict, `oops`, domain.ErrTransport, "oops"},
		{"empty body", http.StatusBadGateway, ``, domain.ErrTransport, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			_, err := c.Fetch(context.Background(), domain.KindMpesa)
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := client.New(&config.Client{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, testutils.DiscardLogger())
	_, err := c.Fetch(context.Background(), domain.KindCoop)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestFetch_Canceled(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Fetch(ctx, domain.KindCoop)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogin_KeepsToken(t *testing.T) {
	var gotAuth string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "me@example.com", in["email"])
			_, _ = w.Write([]byte(`{"status":200,"message":"Login successful","data":{"token":"abc","expires_at":"2030-01-01T00:00:00Z"}}`))
		default:
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"success":true,"data":{"kind":"mpesa","balance":"1"}}`))
		}
	}))

	sess, err := c.Login(context.Background(), "me@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.Token)
	assert.Equal(t, 2030, sess.ExpiresAt.Year())

	_, err = c.Fetch(context.Background(), domain.KindMpesa)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestExport_UsesServerFilename(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "debit", r.URL.Query().Get("type"))
		w.Header().Set("Content-Disposition", `attachment; filename="transactions_2024-03-01.json"`)
		_, _ = w.Write([]byte(`[]`))
	}))

	out, err := c.Export(context.Background(), export.JSON, url.Values{"type": {"debit"}})
	require.NoError(t, err)
	assert.Equal(t, "transactions_2024-03-01.json", out.Filename)
	assert.Equal(t, "[]", string(out.Body))
}

// AgainstServerTestSuite drives the client against the real HTTP API.
type AgainstServerTestSuite struct {
	webtestutils.E2ETestSuite
	client *client.Client
}

func TestAgainstServerTestSuite(t *testing.T) {
	suite.Run(t, new(AgainstServerTestSuite))
}

func (s *AgainstServerTestSuite) SetupTest() {
	s.E2ETestSuite.SetupTest()
	srv := httptest.NewServer(adaptor.FiberApp(s.FiberApp))
	s.T().Cleanup(srv.Close)
	s.client = client.New(&config.Client{BaseURL: srv.URL, Timeout: 5 * time.Second}, testutils.DiscardLogger())
}

func (s *AgainstServerTestSuite) TestAggregatorOverHTTP() {
	token, _ := s.SignUp()
	mpesa := s.LinkAccount(token, "mpesa", "254711111111")
	sbm := s.LinkAccount(token, "sbm", "0099887766")
	s.PostTransaction(token, mpesa, "1500", "credit", "Salary")
	s.PostTransaction(token, sbm, "400", "credit", "Refund")
	s.client.SetToken(token)

	agg := balance.NewAggregator(s.client)
	defer agg.Close()
	err := agg.FetchAll(context.Background())
	s.Require().Error(err, "coop is not linked")

	snap := agg.Snapshot()
	s.True(decimal.NewFromInt(1900).Equal(snap.Total))
	s.Empty(snap.States[domain.KindMpesa].Error)
	s.Equal("failed to fetch Co-operative Bank balance: account resource not found",
		snap.States[domain.KindCoop].Error)
}

func (s *AgainstServerTestSuite) TestLoginAndExport() {
	email := "client@example.com"
	resp := s.MakeRequest(http.MethodPost, "/auth/signup", `{"email":"`+email+`","password":"password123"}`, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	_, err := s.client.Login(context.Background(), email, "wrong-password")
	s.ErrorIs(err, domain.ErrUnauthorized)

	sess, err := s.client.Login(context.Background(), email, "password123")
	s.Require().NoError(err)
	s.NotEmpty(sess.Token)

	acct := s.LinkAccount(sess.Token, "coop", "01100200300")
	s.PostTransaction(sess.Token, acct, "75", "debit", "Groceries")

	out, err := s.client.Export(context.Background(), export.CSV, nil)
	s.Require().NoError(err)
	s.True(strings.HasSuffix(out.Filename, ".csv"))
	s.Contains(string(out.Body), "Groceries,Co-operative Bank,Debit,75")
}
