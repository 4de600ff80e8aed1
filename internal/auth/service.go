package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	// CookieName names the session cookie.
	CookieName = "authintegrate_sid"

	userIDKey = "user_id"
)

// ErrNoSession is returned when the request carries no authenticated session.
var ErrNoSession = errors.New("no authenticated session")

// Sessions keeps server-side sessions keyed by an opaque cookie. Storage is
// pluggable so sessions survive restarts when Redis is configured.
type Sessions struct {
	store *session.Store
	ttl   time.Duration
}

// NewSessions builds a session store. A nil storage keeps sessions in memory.
func NewSessions(storage fiber.Storage, ttl time.Duration, secure bool) *Sessions {
	cfg := session.Config{
		Expiration:     ttl,
		KeyLookup:      "cookie:" + CookieName,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
		CookiePath:     "/",
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return &Sessions{store: session.New(cfg), ttl: ttl}
}

// Login starts a fresh session for userID. The session id is regenerated so a
// pre-login id can never be reused.
func (s *Sessions) Login(c *fiber.Ctx, userID int) error {
	sess, err := s.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	sess.Set(userIDKey, userID)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout destroys the current session.
func (s *Sessions) Logout(c *fiber.Ctx) error {
	sess, err := s.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// UserID returns the authenticated user and slides the session expiry.
func (s *Sessions) UserID(c *fiber.Ctx) (int, error) {
	sess, err := s.store.Get(c)
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	id, ok := sess.Get(userIDKey).(int)
	if !ok {
		return 0, ErrNoSession
	}
	sess.SetExpiry(s.ttl)
	if err := sess.Save(); err != nil {
		return 0, fmt.Errorf("save session: %w", err)
	}
	return id, nil
}
