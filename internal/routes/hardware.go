package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/hardware"
)

// RegisterHardwareRoutes wires the device endpoint and the admin simulator.
func RegisterHardwareRoutes(r fiber.Router, h *hardware.Handler, g Guards, idempotency fiber.Handler) {
	group := r.Group("/hardware")
	group.Post("/event", idempotency, h.Event)
	group.Post("/simulate", g.Session, g.Admin, h.Simulate)
}
