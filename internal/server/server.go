package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/authintegrate/authintegrate/internal/auth"
	"github.com/authintegrate/authintegrate/internal/config"
	"github.com/authintegrate/authintegrate/internal/events"
	"github.com/authintegrate/authintegrate/internal/hardware"
	"github.com/authintegrate/authintegrate/internal/infra"
	"github.com/authintegrate/authintegrate/internal/notification"
	"github.com/authintegrate/authintegrate/internal/realtime"
	"github.com/authintegrate/authintegrate/internal/relay"
	"github.com/authintegrate/authintegrate/internal/routes"
	"github.com/authintegrate/authintegrate/internal/store"
)

const serialBackoff = 5 * time.Second

// Server wraps the Fiber application and the in-process event pipeline.
type Server struct {
	app     *fiber.App
	cfg     config.Config
	logger  *slog.Logger
	bus     *events.Bus
	hub     *realtime.Hub
	status  *hardware.Status
	adapter *hardware.Adapter
}

// New wires the event pipeline and delegates route wiring to routes.Setup.
// A nil db selects the in-memory store; a nil cache keeps sessions in memory
// and disables rate limiting and idempotency.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	var gw store.Gateway
	if db != nil {
		gw = store.NewPostgresGateway(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		gw = store.NewMemoryGateway()
	}

	bus := events.NewBus()
	// Without a serial port the device reports over HTTP and is assumed reachable.
	status := hardware.NewStatus(bus, cfg.SerialPort == "")
	hub := realtime.NewHub(status, logger)
	relay.NewCoordinator(gw, notification.Multi{hub, notification.NewLoggerNotifier(logger)}, logger).Attach(bus)
	adapter := hardware.NewAdapter(gw, bus, status, logger)

	var storage fiber.Storage
	if cache != nil {
		storage = infra.NewRedisStorage(cache)
	}
	sessions := auth.NewSessions(storage, cfg.SessionTTL, cfg.IsProduction())

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: routes.ErrorHandler(logger),
	})

	err := routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		Store:    gw,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Adapter:  adapter,
		Status:   status,
		Hub:      hub,
		Sessions: sessions,
	})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, logger: logger, bus: bus, hub: hub, status: status, adapter: adapter}, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Serve runs the HTTP server on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// RunSerial reads device events from the configured serial port until ctx is
// cancelled. It returns at once when no port is configured.
func (s *Server) RunSerial(ctx context.Context) {
	if s.cfg.SerialPort == "" {
		return
	}
	s.logger.Info("listening on serial port", "port", s.cfg.SerialPort, "baud", s.cfg.SerialBaud)
	listener := hardware.NewSerialListener(s.adapter, s.status, s.logger, serialBackoff)
	listener.Listen(ctx, infra.SerialOpener(s.cfg.SerialPort, s.cfg.SerialBaud))
}

// Shutdown closes dashboard connections, stops the HTTP server and tears the
// event bus down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	err := s.app.ShutdownWithContext(ctx)
	s.bus.Close()
	return err
}
