package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quakewatch/quakewatch/internal/parse"
)

// rateLimitCoolOff is the minimum suspension after a source signals we
// are hitting it too hard.
const rateLimitCoolOff = 10 * time.Minute

const reconnectDelay = 30 * time.Second

// rateLimited recognizes the status and close codes sources use to
// push back.
func rateLimited(code int) bool {
	switch code {
	case 420, 429, 406, 88:
		return true
	}
	return false
}

// Socket consumes a websocket feed, one payload per message. A stalled
// fusion queue sheds messages instead of blocking the read loop, and a
// rate-limit signal suspends the connection for at least ten minutes.
type Socket struct {
	resource string
	env      Env

	running     atomic.Bool
	overwhelmed atomic.Bool
}

func NewSocket(resource string, env Env) *Socket {
	return &Socket{resource: resource, env: env}
}

func (s *Socket) Resource() string { return s.resource }
func (s *Socket) Running() bool    { return s.running.Load() }

// Overwhelmed reports whether the source recently rate-limited us.
func (s *Socket) Overwhelmed() bool { return s.overwhelmed.Load() }

func (s *Socket) Run(ctx context.Context, out chan<- Item) {
	s.running.Store(true)
	defer s.running.Store(false)

	for ctx.Err() == nil {
		delay := s.connect(ctx, out)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connect dials, reads until failure and returns how long to wait
// before the next attempt.
func (s *Socket) connect(ctx context.Context, out chan<- Item) time.Duration {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.resource, nil)
	if err != nil {
		if resp != nil && rateLimited(resp.StatusCode) {
			slog.Warn("stream rate limited on connect, cooling off",
				"resource", s.resource, "status", resp.StatusCode)
			s.overwhelmed.Store(true)
			return rateLimitCoolOff
		}
		if !errors.Is(err, context.Canceled) {
			slog.Warn("stream connect failed", "resource", s.resource, "error", err)
		}
		return reconnectDelay
	}
	defer conn.Close()

	s.overwhelmed.Store(false)
	slog.Info("stream connected", "resource", s.resource)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && rateLimited(closeErr.Code) {
				slog.Warn("stream rate limited, cooling off",
					"resource", s.resource, "code", closeErr.Code)
				s.overwhelmed.Store(true)
				return rateLimitCoolOff
			}
			if ctx.Err() == nil {
				slog.Warn("stream read failed", "resource", s.resource, "error", err)
			}
			return reconnectDelay
		}
		s.handle(ctx, payload, out)
	}
}

func (s *Socket) handle(ctx context.Context, payload []byte, out chan<- Item) {
	reports, kind, err := s.env.Dispatcher.Parse(payload)
	if err != nil {
		if !errors.Is(err, parse.ErrRejected) {
			slog.Debug("stream payload dropped", "resource", s.resource, "format", kind, "error", err)
		}
		return
	}

	for _, report := range reports {
		// Streams must never block on a slow consumer; drop instead.
		select {
		case out <- Item{Report: report, Provider: provider(s.resource)}:
		case <-ctx.Done():
			return
		default:
			slog.Warn("fusion queue full, dropping streamed report", "resource", s.resource)
		}
	}
}
