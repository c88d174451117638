package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/quakewatch/quakewatch/internal/parse"
)

// longPollTimeout bounds one hanging POST; sources in this family hold
// the request open until they have something to say.
const longPollTimeout = 600 * time.Second

// Post long-polls a source that delivers payloads as responses to a
// held-open POST request.
type Post struct {
	resource string
	env      Env

	running atomic.Bool
	client  *http.Client
}

func NewPost(resource string, env Env) *Post {
	return &Post{
		resource: resource,
		env:      env,
		client:   &http.Client{Timeout: longPollTimeout},
	}
}

func (p *Post) Resource() string { return p.resource }
func (p *Post) Running() bool    { return p.running.Load() }

// url maps post://host/path onto HTTPS.
func (p *Post) url() string {
	return "https://" + strings.TrimPrefix(p.resource, "post://")
}

func (p *Post) Run(ctx context.Context, out chan<- Item) {
	p.running.Store(true)
	defer p.running.Store(false)

	for ctx.Err() == nil {
		delay := p.poll(ctx, out)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (p *Post) poll(ctx context.Context, out chan<- Item) time.Duration {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url(), nil)
	if err != nil {
		slog.Error("bad long-poll resource", "resource", p.resource, "error", err)
		return rateLimitCoolOff
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("long poll failed", "resource", p.resource, "error", err)
		}
		return reconnectDelay
	}
	defer resp.Body.Close()

	if rateLimited(resp.StatusCode) {
		slog.Warn("long poll rate limited, cooling off", "resource", p.resource, "status", resp.StatusCode)
		return rateLimitCoolOff
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("long poll refused", "resource", p.resource, "status", resp.Status)
		return reconnectDelay
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return reconnectDelay
	}
	if len(body) == 0 {
		return 0
	}

	reports, kind, err := p.env.Dispatcher.Parse(body)
	if err != nil {
		if !errors.Is(err, parse.ErrRejected) {
			slog.Debug("long-poll payload dropped", "resource", p.resource, "format", kind, "error", err)
		}
		return 0
	}

	for _, report := range reports {
		if !emit(ctx, out, Item{Report: report, Provider: provider(p.resource)}, 5*time.Second) {
			slog.Warn("fusion queue stalled, dropping report", "resource", p.resource)
		}
	}
	return 0
}
