package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/identity"
)

// LocalsUserID is the fiber.Ctx locals key holding the session user id.
const LocalsUserID = "user_id"

// Handler exposes login, logout and the current-account endpoint.
type Handler struct {
	ids      *identity.Service
	sessions *Sessions
}

func NewHandler(ids *identity.Service, sessions *Sessions) *Handler {
	return &Handler{ids: ids, sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates credentials and binds the account to a new session.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password are required")
	}
	account, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return fiber.NewError(http.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return err
	}
	if err := h.sessions.Login(c, account.ID); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Login successful", "user": account})
}

// Logout destroys the session.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Logout successful"})
}

// Me returns the session's user with its profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, ok := c.Locals(LocalsUserID).(int)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	account, err := h.ids.Account(c.UserContext(), userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return fiber.NewError(http.StatusNotFound, "User not found")
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(account)
}
