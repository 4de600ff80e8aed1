package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/auth"
)

// SessionResolver returns the user bound to the request's session.
type SessionResolver interface {
	UserID(c *fiber.Ctx) (int, error)
}

// RoleChecker reports whether a user holds the admin role.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID int) (bool, error)
}

// RequireSession rejects requests without an authenticated session and stores
// the user id in locals.
func RequireSession(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := sessions.UserID(c)
		if errors.Is(err, auth.ErrNoSession) {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}
		if err != nil {
			return err
		}
		c.Locals(auth.LocalsUserID, userID)
		return c.Next()
	}
}

// RequireAdmin must run after RequireSession.
func RequireAdmin(roles RoleChecker, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(auth.LocalsUserID).(int)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}
		isAdmin, err := roles.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return err
		}
		if !isAdmin {
			logger.Warn("admin access denied", slog.Int("user_id", userID), slog.String("path", c.Path()))
			return fiber.NewError(http.StatusForbidden, "Admin access required")
		}
		return c.Next()
	}
}

// RequireSelfOrAdmin allows admins, and users reading their own resource named
// by the param route parameter.
func RequireSelfOrAdmin(roles RoleChecker, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(auth.LocalsUserID).(int)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}
		if target, err := c.ParamsInt(param); err == nil && target == userID {
			return c.Next()
		}
		isAdmin, err := roles.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return fiber.NewError(http.StatusForbidden, "Admin access required")
		}
		return c.Next()
	}
}
