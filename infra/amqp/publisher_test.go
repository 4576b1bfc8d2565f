package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/testutils"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"other error", errors.New("PRECONDITION_FAILED - inequivalent arg"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestAlertMessageJSON(t *testing.T) {
	a := domain.Alert{
		Type:      domain.AlertLargeTransaction,
		OwnerID:   uuid.New(),
		Amount:    decimal.RequireFromString("12000.50"),
		Threshold: decimal.NewFromInt(10000),
		Currency:  "KES",
		Email:     true,
	}
	body, err := NewAlertMessage(a).ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"large_transaction"`)
	assert.Contains(t, string(body), `"amount":12000.5`)

	msg, err := AlertMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, a.OwnerID, msg.Alert.OwnerID)
	assert.True(t, a.Amount.Equal(msg.Alert.Amount))
	assert.False(t, msg.Timestamp.IsZero())

	_, err = AlertMessageFromJSON([]byte("{"))
	require.Error(t, err)
}

func TestNotify_SkipsWithoutEmail(t *testing.T) {
	p := &Publisher{logger: testutils.DiscardLogger()}
	require.NoError(t, p.Notify(context.Background(), domain.Alert{Email: false}))
}

func startRabbit(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping broker test in short mode")
	}
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("rabbitmq container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5672")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestPublisher_PublishesEmailAlerts(t *testing.T) {
	url := startRabbit(t)
	ctx := context.Background()
	cfg := Config{URL: url, Exchange: "test.alerts", Queue: "test.alerts.email", RoutingKey: "alert"}

	p, err := NewPublisher(ctx, cfg, 3, testutils.DiscardLogger())
	require.NoError(t, err)
	defer p.Close() //nolint:errcheck

	owner := uuid.New()
	require.NoError(t, p.Notify(ctx, domain.Alert{Type: domain.AlertLowBalance, OwnerID: owner, Email: true}))
	require.NoError(t, p.Notify(ctx, domain.Alert{Type: domain.AlertLowBalance, OwnerID: uuid.New(), Email: false}))

	conn, err := amqp091.Dial(url)
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck
	ch, err := conn.Channel()
	require.NoError(t, err)

	var got amqp091.Delivery
	require.Eventually(t, func() bool {
		d, ok, err := ch.Get(cfg.Queue, true)
		if err != nil || !ok {
			return false
		}
		got = d
		return true
	}, 5*time.Second, 50*time.Millisecond)

	msg, err := AlertMessageFromJSON(got.Body)
	require.NoError(t, err)
	assert.Equal(t, owner, msg.Alert.OwnerID)
	assert.Equal(t, "application/json", got.ContentType)

	_, ok, err := ch.Get(cfg.Queue, true)
	require.NoError(t, err)
	assert.False(t, ok, "alerts without email opt-in are not published")
}
