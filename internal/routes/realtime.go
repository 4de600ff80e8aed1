package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/realtime"
)

// RegisterRealtimeRoutes wires the dashboard WebSocket.
func RegisterRealtimeRoutes(app *fiber.App, hub *realtime.Hub, g Guards) {
	app.Get("/ws", realtime.Upgrade, g.Session, g.Admin, hub.Handler())
}
