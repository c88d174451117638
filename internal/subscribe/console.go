package subscribe

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/notice"
)

// Console is the loopback sink: alerts land in the structured log.
// Useful on its own for headless deployments and as the reference
// implementation for real recipient surfaces.
type Console struct {
	style  string
	serial atomic.Int64
}

// NewConsole returns a console sink rendering in the given style
// ("human", "short" or "fixed"); empty means human.
func NewConsole(style string) *Console {
	if style == "" {
		style = "human"
	}
	return &Console{style: style}
}

func (c *Console) Send(title, body string, coords geo.Coords, tag string, pings []string, urgent bool) (string, error) {
	thread := fmt.Sprintf("console-%d", c.serial.Add(1))
	level := slog.LevelInfo
	if urgent {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "ALERT "+body,
		"title", title, "tag", tag, "thread", thread, "coords", coords.String())
	return thread, nil
}

func (c *Console) Redact(thread, tag string) error {
	slog.Info("alert redacted", "thread", thread, "tag", tag)
	return nil
}

func (c *Console) Style() string { return c.style }

func (c *Console) Throttle() time.Duration { return notice.DefaultThrottle }

func (c *Console) Name() string { return "console" }
