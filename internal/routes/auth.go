package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/auth"
	"github.com/authintegrate/authintegrate/internal/identity"
)

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, ids *identity.Handler, g Guards, loginLimiter, verifyLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", ids.Register)
	group.Post("/login", loginLimiter, h.Login)
	group.Post("/logout", h.Logout)
	group.Get("/me", g.Session, h.Me)
	group.Post("/verify_hardware", verifyLimiter, ids.VerifyHardware)
}
