package subscribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/notice"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// Sink delivers formatted alerts to one recipient surface. Send
// returns an opaque thread identifier the sink can use to edit or
// group later messages carrying the same tag; sinks throttle their own
// output and the monitor calls Send at will.
type Sink interface {
	Send(title, body string, coords geo.Coords, tag string, pings []string, urgent bool) (string, error)
	Redact(thread, tag string) error
	Style() string
	Throttle() time.Duration
	Name() string
}

// ErrOverloaded is returned by Process when sustained latency has
// pushed the slowdown factor past recovery; the caller should exit so
// the host restarts the process.
var ErrOverloaded = errors.New("subscribe: monitor overloaded")

const fatalSlowdown = 64.0

type subscription struct {
	sink      Sink
	domain    *Domain
	languages []string
}

// Monitor fans notices out to subscribers. One notice is processed at
// a time per region; crowdsourced notices yield to a higher-quality
// notice already being delivered for the same region.
type Monitor struct {
	slowdown *fusion.Slowdown

	mu      sync.Mutex
	subs    []subscription
	uniques map[Sink]bool
	locks   map[string]*sync.Mutex
	stats   map[string]int
	started time.Time
}

func NewMonitor(slowdown *fusion.Slowdown) *Monitor {
	return &Monitor{
		slowdown: slowdown,
		uniques:  map[Sink]bool{},
		locks:    map[string]*sync.Mutex{},
		stats:    map[string]int{},
		started:  time.Now(),
	}
}

// Notify registers a sink for one or more domains. A sink already
// registered is ignored. Subscriptions stay sorted most-specific
// domain first, so targeted streams win the per-sink claim.
func (m *Monitor) Notify(sink Sink, languages []string, domains ...*Domain) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.uniques[sink] {
		return
	}
	m.uniques[sink] = true

	for _, domain := range domains {
		m.subs = append(m.subs, subscription{sink: sink, domain: domain, languages: languages})
	}
	sort.SliceStable(m.subs, func(i, j int) bool {
		return m.subs[i].domain.Less(m.subs[j].domain)
	})

	slog.Info("sink registered", "sink", sink.Name(), "domains", len(domains), "languages", languages)
}

// Run consumes notices until the channel closes or the context is
// canceled. A fatal processing error stops the loop.
func (m *Monitor) Run(ctx context.Context, notices <-chan *notice.Notice) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notices:
			if !ok {
				return nil
			}
			if err := m.Process(n); err != nil {
				return err
			}
		}
	}
}

// Process meters end-to-end latency, applies the region lock policy
// and dispatches the notice to every subscription whose domain finds
// it relevant, at most one domain per sink.
func (m *Monitor) Process(n *notice.Notice) error {
	delay := time.Since(n.Timestamp).Seconds()
	slog.Info("consuming notice",
		"priority", n.Priority(), "delay", delay, "provider", n.Provider, "event", n.ID)

	if delay > 60 {
		factor := m.slowdown.Scale(1.0 + delay/600.0)
		slog.Warn("notice delayed, throttling feeds",
			"delay", delay, "provider", n.Provider, "factor", factor)
		if n.Confidence() < 0.3 && delay > 120 {
			return nil
		}
	} else if delay < 10 {
		m.slowdown.Scale(0.8)
	}

	if factor := m.slowdown.Factor(); factor > fatalSlowdown {
		return fmt.Errorf("%w: slowdown factor %.1f", ErrOverloaded, factor)
	}

	if n.Score < 0 || n.Timely() == "" {
		return nil
	}

	// The region lock is held for the whole delivery pass, slow sink
	// sends included. Deliveries for one region must not interleave:
	// a confirmed notice has to finish claiming sinks before another
	// notice for the same shaking can walk the subscriber list, and
	// crowdsourced notices are dropped outright while a delivery is
	// in flight rather than queued behind it.
	lock := m.regionLock(n.Region())
	if !n.Status.Above(quake.StatusGuessed) {
		if !lock.TryLock() {
			slog.Debug("dropping crowdsourced notice, region busy", "region", n.Region(), "event", n.ID)
			return nil
		}
	} else {
		lock.Lock()
	}
	defer lock.Unlock()

	m.mu.Lock()
	subs := make([]subscription, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	claimed := map[Sink]*Domain{}
	delivered := false

	for _, sub := range subs {
		if winner, ok := claimed[sub.sink]; ok && winner != sub.domain {
			continue
		}

		stream := Messages(n, sub.domain, sub.sink.Style(), sub.languages)
		sent := false
		for {
			line, ok := stream.Next()
			if !ok {
				break
			}
			claimed[sub.sink] = sub.domain

			urgent := n.Early() && !sub.domain.Debug
			if _, err := sub.sink.Send(n.Title(), line, n.Coords, n.Tag, nil, urgent); err != nil {
				slog.Error("could not deliver alert",
					"sink", sub.sink.Name(), "tag", n.Tag, "error", err)
				break
			}
			sent = true
		}

		if sent {
			sub.domain.Remember(n)
			delivered = true
			slog.Info("alert delivered",
				"sink", sub.sink.Name(), "domain", sub.domain.Key(), "tag", n.Tag)
		}
	}

	if delivered {
		m.record(n)
	}
	return nil
}

func (m *Monitor) regionLock(region string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[region]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[region] = lock
	}
	return lock
}

func (m *Monitor) record(n *notice.Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats[n.Provider]++
	for _, source := range n.Sources {
		m.stats[source]++
	}
}

// Stats snapshots the per-provider and per-agency delivery counters.
func (m *Monitor) Stats() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.stats))
	for k, v := range m.stats {
		out[k] = v
	}
	return out
}

// Started reports when the monitor came up.
func (m *Monitor) Started() time.Time { return m.started }
