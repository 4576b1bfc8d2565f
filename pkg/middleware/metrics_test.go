package middleware

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/finboard/pkg/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	method, route string
	status        int
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []observed
}

func (f *fakeObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, observed{method, route, status})
}

func TestMetrics(t *testing.T) {
	obs := &fakeObserver{}
	app := fiber.New()
	app.Use(Metrics(obs))
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusConflict, "boom") })

	testutils.MakeRequest(t, app, http.MethodGet, "/items/42", "", "")
	testutils.MakeRequest(t, app, http.MethodGet, "/boom", "", "")

	require.Len(t, obs.seen, 2)
	assert.Equal(t, observed{"GET", "/items/:id", fiber.StatusNoContent}, obs.seen[0])
	assert.Equal(t, observed{"GET", "/boom", fiber.StatusConflict}, obs.seen[1])
}
