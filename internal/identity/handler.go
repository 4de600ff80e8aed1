package identity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/store"
)

// Handler exposes registration, hardware verification and user management.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	UserID   *int    `json:"userId"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Mobile   *string `json:"mobile"`
	Password string  `json:"password"`
}

type verifyRequest struct {
	UserID   *int   `json:"userId"`
	Password string `json:"password"`
}

type updateRequest struct {
	Name   *string     `json:"name"`
	Email  *string     `json:"email"`
	Mobile *string     `json:"mobile"`
	Role   *store.Role `json:"role"`
}

// Register handles profile self-registration.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == nil {
		return fiber.NewError(http.StatusBadRequest, "userId is required")
	}
	_, err := h.service.Register(c.UserContext(), Registration{
		UserID:   *req.UserID,
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
	})
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Registration successful"})
}

// VerifyHardware lets the device check a password against the profile.
func (h *Handler) VerifyHardware(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == nil || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "userId and password are required")
	}
	if err := h.service.VerifyHardware(c.UserContext(), *req.UserID, req.Password); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Credentials verified."})
}

// ListUsers returns every hardware user with its profile or null.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(users)
}

// UpdateUser edits a profile and returns the refreshed user.
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	id, err := ParamUserID(c, "id")
	if err != nil {
		return err
	}
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.service.UpdateUser(c.UserContext(), id, Update{Name: req.Name, Email: req.Email, Mobile: req.Mobile, Role: req.Role}); err != nil {
		return httpError(err)
	}
	user, err := h.service.Account(c.UserContext(), id)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(user)
}

// DeleteUser removes a hardware user and everything that references it.
func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	id, err := ParamUserID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteUser(c.UserContext(), id); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "User deleted successfully"})
}

// ParamUserID parses an integer user id route parameter.
func ParamUserID(c *fiber.Ctx, name string) (int, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id < 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "Invalid user ID format.")
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrHardwareUserMissing),
		errors.Is(err, ErrProfileExists),
		errors.Is(err, ErrEmailTaken):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}
