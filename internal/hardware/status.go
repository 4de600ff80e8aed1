package hardware

import (
	"context"
	"sync/atomic"
)

// StatusPublisher receives connectivity changes.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, connected bool)
}

// Status tracks whether the device is reachable. Every Set is published,
// including repeats of the current value.
type Status struct {
	connected atomic.Bool
	pub       StatusPublisher
}

// NewStatus builds a Status with the given initial value. Nothing is published
// for the initial value.
func NewStatus(pub StatusPublisher, initial bool) *Status {
	s := &Status{pub: pub}
	s.connected.Store(initial)
	return s
}

// Connected reports the last known connectivity.
func (s *Status) Connected() bool {
	return s.connected.Load()
}

// Set records connectivity and publishes it.
func (s *Status) Set(ctx context.Context, connected bool) {
	s.connected.Store(connected)
	if s.pub != nil {
		s.pub.PublishStatus(ctx, connected)
	}
}
