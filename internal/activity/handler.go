// Package activity serves the read side of the access history: recent and
// per-user logs and the dashboard statistics.
package activity

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/store"
)

// Reader is the part of store.Gateway used for reporting.
type Reader interface {
	RecentAccessLogs(ctx context.Context, limit int) ([]store.AccessLogView, error)
	UserAccessLogs(ctx context.Context, userID int) ([]store.AccessLogView, error)
	SystemStats(ctx context.Context) (store.SystemStats, error)
}

// StatusSource reports hardware connectivity.
type StatusSource interface {
	Connected() bool
}

// Handler exposes log and statistics endpoints.
type Handler struct {
	reader Reader
	status StatusSource
	limit  int
}

// NewHandler builds a handler returning at most limit recent logs.
func NewHandler(reader Reader, status StatusSource, limit int) *Handler {
	if limit <= 0 {
		limit = 50
	}
	return &Handler{reader: reader, status: status, limit: limit}
}

// Recent returns the newest access logs, bounded by the configured limit or
// a smaller ?limit= query value.
func (h *Handler) Recent(c *fiber.Ctx) error {
	limit := h.limit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fiber.NewError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, h.limit)
	}
	logs, err := h.reader.RecentAccessLogs(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(logs)
}

// ForUser returns every access log of one user, newest first.
func (h *Handler) ForUser(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("userId"))
	if err != nil || userID < 0 {
		return fiber.NewError(http.StatusBadRequest, "Invalid user ID format.")
	}
	logs, err := h.reader.UserAccessLogs(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(logs)
}

// Stats returns the aggregate counters with the current hardware status.
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.reader.SystemStats(c.UserContext())
	if err != nil {
		return err
	}
	stats.HardwareConnected = h.status.Connected()
	return c.Status(http.StatusOK).JSON(stats)
}
