// Package ingest connects the outside feeds to the pipeline: a
// receiver per source URI scheme, an accepts-probe that picks the
// right one, and the feed manager that supervises them and pushes
// fused events out as notices.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/parse"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// Item is one parsed report tagged with the adapter it arrived
// through.
type Item struct {
	Report   quake.Report
	Provider string
}

// Receiver pulls or receives payloads from one source until its
// context ends. Run blocks; Running stays true for the whole lifetime
// including rate-limit cool-offs, so the supervisor does not restart a
// receiver that is deliberately waiting.
type Receiver interface {
	Run(ctx context.Context, out chan<- Item)
	Resource() string
	Running() bool
}

// Env is the shared machinery every receiver gets: the parser chain,
// the process-wide slowdown factor and the HTTP client.
type Env struct {
	Dispatcher *parse.Dispatcher
	Slowdown   *fusion.Slowdown
	Client     *http.Client
}

const fetchTimeout = 32 * time.Second

func (e Env) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return &http.Client{Timeout: fetchTimeout}
}

func (e Env) factor() float64 {
	if e.Slowdown == nil {
		return 1.0
	}
	return e.Slowdown.Factor()
}

type factory struct {
	kind    string
	accepts func(resource string) bool
	build   func(resource string, env Env) (Receiver, error)
}

// Probe order matters: the most specific schemes claim their resources
// before the generic HTTP poller gets a chance.
var factories = []factory{
	{
		kind:    "fdsn",
		accepts: func(r string) bool { return strings.HasPrefix(r, "fdsn://") },
		build:   func(r string, env Env) (Receiver, error) { return NewFDSN(r, env) },
	},
	{
		kind: "websocket",
		accepts: func(r string) bool {
			return strings.HasPrefix(r, "ws://") || strings.HasPrefix(r, "wss://")
		},
		build: func(r string, env Env) (Receiver, error) { return NewSocket(r, env), nil },
	},
	{
		kind:    "post",
		accepts: func(r string) bool { return strings.HasPrefix(r, "post://") },
		build:   func(r string, env Env) (Receiver, error) { return NewPost(r, env), nil },
	},
	{
		kind:    "social",
		accepts: func(r string) bool { return strings.HasPrefix(r, "social://") },
		build:   func(r string, env Env) (Receiver, error) { return NewFirehose(r, env), nil },
	},
	{
		kind: "http",
		accepts: func(r string) bool {
			return strings.HasPrefix(r, "http://") || strings.HasPrefix(r, "https://")
		},
		build: func(r string, env Env) (Receiver, error) { return NewPoller(r, env), nil },
	},
}

// New builds the receiver for a source URI, trying the registered
// kinds in probe order.
func New(resource string, env Env) (Receiver, error) {
	for _, f := range factories {
		if f.accepts(resource) {
			return f.build(resource, env)
		}
	}
	return nil, fmt.Errorf("ingest: no receiver accepts %q", resource)
}

// Accepts reports whether any registered receiver kind claims the
// resource, and which.
func Accepts(resource string) (string, bool) {
	for _, f := range factories {
		if f.accepts(resource) {
			return f.kind, true
		}
	}
	return "", false
}

func provider(resource string) string {
	trimmed := resource
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	if i := strings.IndexAny(trimmed, "/?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

// emit hands a report to the fusion channel, giving a stalled consumer
// a short grace before shedding the report.
func emit(ctx context.Context, out chan<- Item, item Item, wait time.Duration) bool {
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return false
	}
}
