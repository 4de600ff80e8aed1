package hardware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/store"
)

// Handler exposes the HTTP binding of the device protocol.
type Handler struct {
	adapter *Adapter
}

// NewHandler constructs a hardware HTTP handler.
func NewHandler(adapter *Adapter) *Handler {
	return &Handler{adapter: adapter}
}

type simulateRequest struct {
	UserID *int   `json:"userId"`
	Result string `json:"result"`
	Note   string `json:"note"`
}

// Event handles a device-originated REG or LOGIN.
func (h *Handler) Event(c *fiber.Ctx) error {
	ev, err := DecodeJSON(c.Body())
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.handle(c, ev)
}

// Simulate runs an operator-supplied LOGIN through the device path.
func (h *Handler) Simulate(c *fiber.Ctx) error {
	var req simulateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ev := Event{
		Command: CommandLogin,
		UserID:  req.UserID,
		Result:  store.Outcome(strings.ToUpper(strings.TrimSpace(req.Result))),
		Note:    req.Note,
	}
	if ev.Note == "" {
		ev.Note = "Simulated internal event"
	}
	return h.handle(c, ev)
}

func (h *Handler) handle(c *fiber.Ctx, ev Event) error {
	res, err := h.adapter.Handle(c.UserContext(), ev)
	switch {
	case err == nil:
		return c.Status(http.StatusOK).JSON(fiber.Map{"message": res.Message})
	case errors.Is(err, ErrInvalid):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}
