// Package events is the in-process publish/subscribe channel between the
// hardware adapter and the components reacting to device activity.
package events

import (
	"context"
	"sync"

	"github.com/authintegrate/authintegrate/internal/store"
)

const (
	TopicAccessEvent          = "access_event"
	TopicHardwareStatusChange = "hardware_status_change"
)

// AccessEvent is the canonical record emitted for one authentication attempt.
type AccessEvent struct {
	UserID  int
	Outcome store.Outcome
	Note    string
}

// AccessHandler consumes access events.
type AccessHandler func(ctx context.Context, ev AccessEvent)

// StatusHandler consumes hardware connectivity changes.
type StatusHandler func(ctx context.Context, connected bool)

// Bus delivers events synchronously to subscribers in registration order.
// Delivery is at-most-once per subscriber per publish; nothing is buffered or
// replayed, so a subscriber attached after a publish never sees it.
type Bus struct {
	mu     sync.RWMutex
	access []AccessHandler
	status []StatusHandler
	closed bool
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeAccess attaches h to the access_event topic.
func (b *Bus) SubscribeAccess(h AccessHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = append(b.access, h)
}

// SubscribeStatus attaches h to the hardware_status_change topic.
func (b *Bus) SubscribeStatus(h StatusHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = append(b.status, h)
}

// PublishAccess delivers ev to every access subscriber.
func (b *Bus) PublishAccess(ctx context.Context, ev AccessEvent) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := append([]AccessHandler(nil), b.access...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}

// PublishStatus delivers connected to every status subscriber.
func (b *Bus) PublishStatus(ctx context.Context, connected bool) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := append([]StatusHandler(nil), b.status...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, connected)
	}
}

// Close detaches all subscribers. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.access = nil
	b.status = nil
}
