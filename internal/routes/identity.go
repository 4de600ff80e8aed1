package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/identity"
)

// RegisterIdentityRoutes wires the admin user-management endpoints.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, g Guards) {
	users := r.Group("/users", g.Session, g.Admin)
	users.Get("/", h.ListUsers)
	users.Put("/:id", h.UpdateUser)
	users.Delete("/:id", h.DeleteUser)
}
