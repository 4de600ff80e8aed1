package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/activity"
)

// RegisterActivityRoutes wires logs and statistics. Stats are public so a
// lobby display can show them without a session.
func RegisterActivityRoutes(r fiber.Router, h *activity.Handler, g Guards) {
	r.Get("/stats", h.Stats)
	r.Get("/logs", g.Session, g.Admin, h.Recent)
	r.Get("/logs/user/:userId", g.Session, g.SelfOrAdmin, h.ForUser)
}
