package hardware

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// PortOpener opens the serial device.
type PortOpener func() (io.ReadCloser, error)

// SerialListener feeds serial lines through the Adapter.
type SerialListener struct {
	adapter *Adapter
	status  *Status
	logger  *slog.Logger
	backoff time.Duration
}

// NewSerialListener constructs a listener that waits backoff between reopen
// attempts.
func NewSerialListener(adapter *Adapter, status *Status, logger *slog.Logger, backoff time.Duration) *SerialListener {
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &SerialListener{adapter: adapter, status: status, logger: logger, backoff: backoff}
}

// Listen keeps the port open until ctx is cancelled, reopening it after every
// failure.
func (l *SerialListener) Listen(ctx context.Context, open PortOpener) {
	for {
		port, err := open()
		if err != nil {
			l.logger.Warn("open serial port", "error", err)
		} else if err := l.Run(ctx, port); err != nil {
			l.logger.Warn("serial port closed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

// Run reads lines from port until it closes or ctx is cancelled. Malformed
// lines are logged and skipped. The hardware is reported connected while the
// port is open.
func (l *SerialListener) Run(ctx context.Context, port io.ReadCloser) error {
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer stop()
	defer port.Close()

	if l.status != nil {
		l.status.Set(ctx, true)
		defer l.status.Set(context.WithoutCancel(ctx), false)
	}

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		l.handleLine(ctx, scanner.Text())
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (l *SerialListener) handleLine(ctx context.Context, line string) {
	ev, err := ParseLine(line)
	if errors.Is(err, ErrBlankLine) {
		return
	}
	if err != nil {
		l.logger.Warn("discarding serial line", "line", line, "error", err)
		return
	}
	res, err := l.adapter.Handle(ctx, ev)
	if err != nil {
		l.logger.Warn("serial event rejected", "command", ev.Command, "error", err)
		return
	}
	l.logger.Debug("serial event accepted", "user_id", res.Event.UserID, "result", res.Event.Outcome)
}
