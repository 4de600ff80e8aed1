package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayPrefix         = "replay:v1:"
	pendingMarker        = "pending"
	replayTimeout        = 2 * time.Second
)

var errReplayPending = errors.New("report with this key is still being processed")

// replayedResponse is what a repeated device report gets back.
type replayedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

type replayStore struct {
	client *redis.Client
	ttl    time.Duration
}

// lookup returns the stored response, nil when the key is unseen, or
// errReplayPending while the first request is in flight.
func (s replayStore) lookup(ctx context.Context, key string) (*replayedResponse, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if string(raw) == pendingMarker {
		return nil, errReplayPending
	}
	var resp replayedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode replay %s: %w", key, err)
	}
	return &resp, nil
}

// reserve claims key for the current request. false means another request
// claimed it first.
func (s replayStore) reserve(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, key, pendingMarker, s.ttl).Result()
}

func (s replayStore) commit(ctx context.Context, key string, resp replayedResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, s.ttl).Err()
}

func (s replayStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()
	s.client.Del(ctx, key)
}

// Idempotency makes device reports safe to retry. A report carrying an
// Idempotency-Key that already succeeded on the same path gets the first
// response back instead of logging a second access event. Reports without the
// header, and all reports when cache is nil, pass through. Failed reports are
// not remembered so the device can retry them.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	if cache == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	store := replayStore{client: cache, ttl: ttl}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}
		header := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if header == "" {
			return c.Next()
		}
		key := replayPrefix + c.Path() + ":" + header
		log := logger.With(slog.String("idempotency_key", header), slog.String("request_id", RequestIDFrom(c)))

		ctx, cancel := context.WithTimeout(c.UserContext(), replayTimeout)
		defer cancel()

		prior, err := store.lookup(ctx, key)
		switch {
		case errors.Is(err, errReplayPending):
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		case err != nil:
			log.Error("replay lookup failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		case prior != nil:
			log.Debug("replaying stored response")
			c.Set(fiber.HeaderContentType, prior.ContentType)
			return c.Status(prior.Status).Send(prior.Body)
		}

		reserved, err := store.reserve(ctx, key)
		if err != nil {
			log.Error("replay reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			store.release(key)
			return err
		}
		status := c.Response().StatusCode()
		if status >= fiber.StatusBadRequest {
			store.release(key)
			return nil
		}

		resp := replayedResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		commitCtx, commitCancel := context.WithTimeout(context.WithoutCancel(c.UserContext()), replayTimeout)
		defer commitCancel()
		if err := store.commit(commitCtx, key, resp); err != nil {
			// the report was logged; a retry would duplicate it, so only warn
			log.Warn("replay commit failed", slog.Any("error", err))
			store.release(key)
		}
		return nil
	}
}
