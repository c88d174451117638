package ingest

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/quakewatch/quakewatch/internal/parse"
)

// Firehose consumes a long-lived HTTPS stream of line-delimited JSON
// payloads, one social posting per line. When the consumer falls behind,
// lines are dropped rather than letting the stream connection back up
// and die.
type Firehose struct {
	resource string
	env      Env

	running     atomic.Bool
	overwhelmed atomic.Bool
}

func NewFirehose(resource string, env Env) *Firehose {
	return &Firehose{resource: resource, env: env}
}

func (f *Firehose) Resource() string  { return f.resource }
func (f *Firehose) Running() bool     { return f.running.Load() }
func (f *Firehose) Overwhelmed() bool { return f.overwhelmed.Load() }

func (f *Firehose) url() string {
	return "https://" + strings.TrimPrefix(f.resource, "social://")
}

func (f *Firehose) Run(ctx context.Context, out chan<- Item) {
	f.running.Store(true)
	defer f.running.Store(false)

	for ctx.Err() == nil {
		delay := f.stream(ctx, out)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// stream holds one connection open and returns how long to wait before
// the next attempt.
func (f *Firehose) stream(ctx context.Context, out chan<- Item) time.Duration {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url(), nil)
	if err != nil {
		slog.Error("bad stream resource", "resource", f.resource, "error", err)
		return rateLimitCoolOff
	}

	client := &http.Client{} // no timeout: the stream is meant to stay open
	resp, err := client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("stream connect failed", "resource", f.resource, "error", err)
		}
		return reconnectDelay
	}
	defer resp.Body.Close()

	if rateLimited(resp.StatusCode) {
		f.overwhelmed.Store(true)
		slog.Warn("stream rate limited, cooling off", "resource", f.resource, "status", resp.StatusCode)
		return rateLimitCoolOff
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("stream refused", "resource", f.resource, "status", resp.Status)
		return reconnectDelay
	}
	f.overwhelmed.Store(false)
	slog.Info("stream connected", "resource", f.resource)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return reconnectDelay
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // keep-alive newline
		}
		f.handle(line, out)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("stream broke", "resource", f.resource, "error", err)
	}
	return reconnectDelay
}

func (f *Firehose) handle(line []byte, out chan<- Item) {
	reports, kind, err := f.env.Dispatcher.Parse(line)
	if err != nil {
		if !errors.Is(err, parse.ErrRejected) {
			slog.Debug("stream line dropped", "resource", f.resource, "format", kind, "error", err)
		}
		return
	}
	for _, report := range reports {
		select {
		case out <- Item{Report: report, Provider: provider(f.resource)}:
		default:
			slog.Debug("stream consumer behind, dropping posting", "resource", f.resource)
		}
	}
}
