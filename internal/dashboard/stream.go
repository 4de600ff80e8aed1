package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/authintegrate/authintegrate/internal/notification"
	"github.com/authintegrate/authintegrate/internal/store"
)

// State is the lifecycle of a Stream.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PushHandler receives messages accepted by a Stream.
type PushHandler interface {
	HandleLog(ctx context.Context, entry store.AccessLogView)
	HandleStatus(ctx context.Context, connected bool)
}

// Stream is a single realtime connection. It never reconnects: once Run
// returns the stream stays Closed and the caller falls back to polling.
type Stream struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	handler PushHandler
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// NewStream prepares a stream to url. header carries the session cookie.
func NewStream(url string, header http.Header, handler PushHandler, logger *slog.Logger) *Stream {
	return &Stream{
		url:     url,
		header:  header,
		dialer:  &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		handler: handler,
		logger:  logger,
		state:   StateConnecting,
	}
}

// State returns the current state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run dials, reads until the peer closes, the network fails or ctx is
// cancelled, and then marks the hardware disconnected. Cancellation closes
// with a normal-closure frame and is not an error.
func (s *Stream) Run(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		s.close(ctx)
		if resp != nil {
			return fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	s.setState(StateOpen)
	s.logger.Info("realtime stream open", "url", s.url)

	stop := context.AfterFunc(ctx, func() {
		// stop accepting pushes before the close handshake completes
		s.setState(StateClosed)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.close(ctx)
			return s.closeError(ctx, err)
		}
		s.dispatch(ctx, data)
	}
}

func (s *Stream) dispatch(ctx context.Context, data []byte) {
	if s.State() != StateOpen {
		return
	}
	var msg notification.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("realtime stream: undecodable message", "error", err)
		return
	}
	switch msg.Type {
	case notification.KindAccessLog:
		if msg.Log != nil {
			s.handler.HandleLog(ctx, *msg.Log)
		}
	case notification.KindHardwareStatus:
		if msg.Connected != nil {
			s.handler.HandleStatus(ctx, *msg.Connected)
		}
	default:
		s.logger.Debug("realtime stream: ignoring message", "type", msg.Type)
	}
}

func (s *Stream) closeError(ctx context.Context, err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		s.logger.Info("realtime stream closed")
		return nil
	}
	if ctx.Err() != nil {
		s.logger.Info("realtime stream closed", "reason", ctx.Err())
		return nil
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		s.logger.Warn("realtime stream closed abnormally", "code", closeErr.Code, "text", closeErr.Text)
	} else {
		s.logger.Warn("realtime stream lost", "error", err)
	}
	return err
}

func (s *Stream) close(ctx context.Context) {
	s.setState(StateClosed)
	s.handler.HandleStatus(context.WithoutCancel(ctx), false)
}

func (s *Stream) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}
