package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// LoginKey extracts the rate-limit subject from a credential request. An empty
// result falls back to the client IP.
type LoginKey func(c *fiber.Ctx) string

// EmailKey limits by the submitted email address.
func EmailKey(c *fiber.Ctx) string {
	var req struct {
		Email string `json:"email"`
	}
	_ = c.BodyParser(&req)
	return strings.ToLower(strings.TrimSpace(req.Email))
}

// HardwareUserKey limits by the submitted device user id.
func HardwareUserKey(c *fiber.Ctx) string {
	var req struct {
		UserID *int `json:"userId"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserID == nil {
		return ""
	}
	return "uid:" + strconv.Itoa(*req.UserID)
}

// LoginRateLimit limits credential checks per subject using Redis if available.
func LoginRateLimit(cache *redis.Client, scope string, maxPerMin int, key LoginKey) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		subject := key(c)
		if subject == "" {
			subject = c.IP()
		}
		k := "rl:" + scope + ":" + subject
		cnt, err := cache.Incr(c.UserContext(), k).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), k, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}
