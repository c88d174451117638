package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/quakewatch/quakewatch/internal/parse"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// Polling pace limits, in seconds. A feed that updates every few
// minutes settles near a third of its own cadence; a dead or erroring
// feed backs off to the cool-off period.
const (
	minPeriod     = 50.0
	maxPeriod     = 500.0
	initialPeriod = 300.0
	coolOffPeriod = 300.0
)

// Per-cycle parse caps. The cap starts at initialLimit, halves when a
// cycle overruns a quarter of the polling period, and is divided by
// the slowdown factor at use.
const (
	initialLimit = 12.0
	minLimit     = 3.0
	maxLimit     = 48.0
)

// At most two payloads are parsed concurrently process-wide; parsing a
// fat feed must not starve the fetch loops.
var parseSlots = make(chan struct{}, 2)

// Poller fetches one HTTP resource on an adaptive period and runs the
// payload through the parser chain. The period tracks the feed's own
// update cadence and stretches with the global slowdown factor.
type Poller struct {
	resource string
	env      Env

	// url lets specializations rebuild the query per cycle.
	url func() string

	running atomic.Bool
	period  float64
	cap     float64
	last    []byte
}

func NewPoller(resource string, env Env) *Poller {
	p := &Poller{resource: resource, env: env, period: initialPeriod, cap: initialLimit}
	p.url = func() string { return p.resource }
	return p
}

func (p *Poller) Resource() string { return p.resource }
func (p *Poller) Running() bool    { return p.running.Load() }

func (p *Poller) Run(ctx context.Context, out chan<- Item) {
	p.running.Store(true)
	defer p.running.Store(false)

	slog.Info("poller starting", "resource", p.resource, "period", p.period)

	for {
		p.cycle(ctx, out)

		wait := time.Duration(p.period * p.env.factor() * float64(time.Second))
		select {
		case <-ctx.Done():
			slog.Info("poller shutting down", "resource", p.resource)
			return
		case <-time.After(wait):
		}
	}
}

// limit caps how many reports one cycle may emit; it shrinks as the
// slowdown factor grows.
func (p *Poller) limit() int {
	return int(quake.Clip(p.cap/p.env.factor(), minLimit, maxLimit))
}

func (p *Poller) cycle(ctx context.Context, out chan<- Item) {
	body, err := p.fetch(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("poll failed, backing off", "resource", p.resource, "error", err)
		}
		p.period = coolOffPeriod
		return
	}

	if bytes.Equal(body, p.last) {
		slog.Debug("feed unchanged", "resource", p.resource)
		return
	}
	p.last = body

	began := time.Now()

	select {
	case parseSlots <- struct{}{}:
	case <-ctx.Done():
		return
	}
	reports, kind, err := p.env.Dispatcher.Parse(body)
	<-parseSlots

	if err != nil {
		if !errors.Is(err, parse.ErrRejected) {
			slog.Error("payload dropped", "resource", p.resource, "format", kind, "error", err)
		}
		return
	}

	limit := p.limit()
	if len(reports) > limit {
		reports = reports[:limit]
	}
	for _, report := range reports {
		if !emit(ctx, out, Item{Report: report, Provider: provider(p.resource)}, 5*time.Second) {
			slog.Warn("fusion queue stalled, dropping report", "resource", p.resource)
		}
	}

	if elapsed := time.Since(began).Seconds(); elapsed > p.period*0.25 {
		p.cap = quake.Clip(p.cap/2, minLimit, maxLimit)
		slog.Warn("cycle overran period, shrinking parse cap",
			"resource", p.resource, "elapsed", elapsed, "cap", p.cap)
		return
	}

	p.adapt(reports)
}

// adapt steers the polling period toward a third of the feed's own
// update latency, clipped to the allowed band. A feed already beating
// the current period pulls hard; a slower feed only nudges.
func (p *Poller) adapt(reports []quake.Report) {
	shortest := math.Inf(1)
	for _, report := range reports {
		if skew := report.Update.Sub(report.Time).Seconds() / 3; skew > 0 && skew < shortest {
			shortest = skew
		}
	}
	if math.IsInf(shortest, 1) {
		return
	}

	weight := 0.7
	if shortest >= p.period {
		weight = 0.05
	}
	p.period = quake.Clip((1-weight)*p.period+weight*quake.Clip(shortest, minPeriod, maxPeriod), minPeriod, maxPeriod)
	slog.Debug("poll period adapted", "resource", p.resource, "period", p.period)
}

func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	url := p.url()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.env.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
