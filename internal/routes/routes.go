package routes

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/authintegrate/authintegrate/internal/activity"
	"github.com/authintegrate/authintegrate/internal/auth"
	"github.com/authintegrate/authintegrate/internal/config"
	"github.com/authintegrate/authintegrate/internal/hardware"
	"github.com/authintegrate/authintegrate/internal/identity"
	"github.com/authintegrate/authintegrate/internal/middleware"
	"github.com/authintegrate/authintegrate/internal/realtime"
	"github.com/authintegrate/authintegrate/internal/store"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	Store    store.Gateway
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Adapter  *hardware.Adapter
	Status   *hardware.Status
	Hub      *realtime.Hub
	Sessions *auth.Sessions
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() && d.DB == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Store == nil || d.Adapter == nil || d.Status == nil || d.Hub == nil || d.Sessions == nil {
		return fmt.Errorf("routes: incomplete dependencies")
	}

	// Middlewares
	app.Use(recover.New())
	if d.Cfg.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true}))
	}
	app.Use(middleware.RequestID())
	app.Use(encryptcookie.New(encryptcookie.Config{Key: CookieKey(d.Cfg.SessionSecret)}))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	identitySvc := identity.NewService(d.Store, d.Cfg.IsAdminEmail)
	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, d.Sessions)
	activityHandler := activity.NewHandler(d.Store, d.Status, d.Cfg.RecentLogLimit)
	hardwareHandler := hardware.NewHandler(d.Adapter)

	guards := Guards{
		Session:     middleware.RequireSession(d.Sessions),
		Admin:       middleware.RequireAdmin(identitySvc, d.Logger),
		SelfOrAdmin: middleware.RequireSelfOrAdmin(identitySvc, "userId"),
	}

	api := app.Group("/api", middleware.Audit(d.Logger))

	RegisterAuthRoutes(api, authHandler, identityHandler, guards,
		middleware.LoginRateLimit(d.Cache, "login", d.Cfg.LoginAttempts, middleware.EmailKey),
		middleware.LoginRateLimit(d.Cache, "verify", d.Cfg.LoginAttempts, middleware.HardwareUserKey),
	)
	RegisterIdentityRoutes(api, identityHandler, guards)
	RegisterActivityRoutes(api, activityHandler, guards)
	RegisterHardwareRoutes(api, hardwareHandler, guards, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	RegisterRealtimeRoutes(app, d.Hub, guards)

	return nil
}

// Guards bundles the access-control middleware shared by route groups.
type Guards struct {
	Session     fiber.Handler
	Admin       fiber.Handler
	SelfOrAdmin fiber.Handler
}

// CookieKey derives the 32-byte cookie encryption key from the session secret.
func CookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}
