package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestObserver records served requests.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, took time.Duration)
}

// Metrics reports every request to o, labelled by its route pattern so
// path parameters do not explode the label space.
func Metrics(o RequestObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		o.ObserveRequest(c.Method(), route, status, time.Since(start))
		return err
	}
}
