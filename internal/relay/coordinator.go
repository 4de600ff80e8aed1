// Package relay persists access events and forwards them, enriched with the
// owner's profile fields, to realtime subscribers.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/authintegrate/authintegrate/internal/events"
	"github.com/authintegrate/authintegrate/internal/notification"
	"github.com/authintegrate/authintegrate/internal/store"
)

const defaultTimeout = 5 * time.Second

// LogStore is the slice of the persistence gateway the coordinator needs.
type LogStore interface {
	CreateAccessLog(ctx context.Context, log store.NewAccessLog) (store.AccessLogEntry, error)
	GetAccessLog(ctx context.Context, id int64) (store.AccessLogView, error)
}

// Subscriber is implemented by events.Bus.
type Subscriber interface {
	SubscribeAccess(h events.AccessHandler)
	SubscribeStatus(h events.StatusHandler)
}

// Coordinator turns bus events into push messages.
type Coordinator struct {
	logs     LogStore
	notifier notification.Notifier
	logger   *slog.Logger
	timeout  time.Duration
}

// NewCoordinator constructs a coordinator.
func NewCoordinator(logs LogStore, notifier notification.Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{logs: logs, notifier: notifier, logger: logger, timeout: defaultTimeout}
}

// Attach subscribes the coordinator to both topics.
func (c *Coordinator) Attach(bus Subscriber) {
	bus.SubscribeAccess(func(ctx context.Context, ev events.AccessEvent) {
		if _, err := c.HandleAccess(ctx, ev); err != nil {
			c.logger.Error("access event dropped", "user_id", ev.UserID, "result", ev.Outcome, "error", err)
			sentry.CurrentHub().CaptureException(err)
		}
	})
	bus.SubscribeStatus(c.HandleStatus)
}

// HandleAccess persists ev, re-reads the stored row with its profile join and
// pushes it. Nothing is pushed when persistence fails.
func (c *Coordinator) HandleAccess(ctx context.Context, ev events.AccessEvent) (store.AccessLogView, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	entry, err := c.logs.CreateAccessLog(ctx, store.NewAccessLog{UserID: ev.UserID, Outcome: ev.Outcome, Note: ev.Note})
	if err != nil {
		return store.AccessLogView{}, fmt.Errorf("persist access log: %w", err)
	}
	view, err := c.logs.GetAccessLog(ctx, entry.ID)
	if err != nil {
		return store.AccessLogView{}, fmt.Errorf("reload access log %d: %w", entry.ID, err)
	}
	if err := c.notifier.Send(ctx, notification.AccessLog(view)); err != nil {
		c.logger.Warn("access log push failed", "log_id", view.ID, "error", err)
	}
	return view, nil
}

// HandleStatus pushes a hardware_status message.
func (c *Coordinator) HandleStatus(ctx context.Context, connected bool) {
	if err := c.notifier.Send(context.WithoutCancel(ctx), notification.HardwareStatus(connected)); err != nil {
		c.logger.Warn("hardware status push failed", "connected", connected, "error", err)
	}
}
