package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/infra"
)

// RegisterHealthRoutes adds a readiness endpoint covering the stores, the
// device link and the realtime fan-out.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		postgres := infra.ProbePostgres(ctx, d.DB)
		redis := infra.ProbeRedis(ctx, d.Cache)

		status := http.StatusOK
		if !infra.Healthy(postgres) || !infra.Healthy(redis) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":            fiber.Map{"postgres": postgres, "redis": redis},
			"hardwareConnected": d.Status.Connected(),
			"websocketClients":  d.Hub.Count(),
			"timestamp":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
