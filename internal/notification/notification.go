package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/authintegrate/authintegrate/internal/store"
)

const (
	// KindHardwareStatus reports device connectivity to dashboards.
	KindHardwareStatus = "hardware_status"
	// KindAccessLog carries one enriched access log entry.
	KindAccessLog = "access_log"
)

// Message is the JSON envelope pushed to dashboard subscribers.
type Message struct {
	Type      string               `json:"type"`
	Connected *bool                `json:"connected,omitempty"`
	Log       *store.AccessLogView `json:"log,omitempty"`
}

// HardwareStatus builds a hardware_status message.
func HardwareStatus(connected bool) Message {
	return Message{Type: KindHardwareStatus, Connected: &connected}
}

// AccessLog builds an access_log message.
func AccessLog(view store.AccessLogView) Message {
	return Message{Type: KindAccessLog, Log: &view}
}

// Notifier delivers messages to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes messages to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	attrs := []any{"type", message.Type}
	if message.Connected != nil {
		attrs = append(attrs, "connected", *message.Connected)
	}
	if message.Log != nil {
		attrs = append(attrs, "log_id", message.Log.ID, "result", message.Log.Outcome)
		if message.Log.UserID != nil {
			attrs = append(attrs, "user_id", *message.Log.UserID)
		}
	}
	n.logger.Debug("notification", attrs...)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send delivers to each notifier in order; a failing notifier does not stop the rest.
func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
