package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/quakewatch/quakewatch/internal/quake"
)

// SeenStore is the persistent replay filter.
type SeenStore interface {
	Admit(ctx context.Context, key string) (bool, error)
}

// Learner receives matured outcomes for the scoring feedback loop.
type Learner interface {
	Absorb(ctx context.Context, heuristics []quake.Heuristic, status quake.Status, official bool, weight float64)
	Matured(ctx context.Context)
}

// Gate limits for incoming reports.
const (
	thresholdMag = 2.5
	precisionKm  = 1000.0
	maxHistory   = 128
)

// Anti-swarm slider windows: the short window counts the current burst,
// the long window the running baseline.
const (
	recentTTL = 100 * time.Second
	trendTTL  = 1000 * time.Second
)

// Correlator owns the live event history and fuses each incoming
// report into it.
type Correlator struct {
	mu      sync.Mutex
	history []*Event

	travel quake.TravelTimes
	seen   SeenStore

	started time.Time

	recent *cache.Cache
	trend  *cache.Cache
	slider float64
	seq    atomic.Uint64

	// retain decides whether an aged event is still announceable; it
	// is wired in after construction because classification lives a
	// layer up.
	retain func(*Event) bool
}

func NewCorrelator(seen SeenStore, travel quake.TravelTimes) *Correlator {
	c := &Correlator{
		travel:  travel,
		seen:    seen,
		started: time.Now(),
		recent:  cache.New(recentTTL, time.Minute),
		trend:   cache.New(trendTTL, 5*time.Minute),
		slider:  0.2,
	}
	// Seed markers make the trend window identifiably cold until a
	// full long-window period has passed.
	c.recent.Set("seed", true, cache.DefaultExpiration)
	c.trend.Set("seed", true, cache.DefaultExpiration)
	return c
}

// SetRetention installs the staleness predicate used by Mature.
func (c *Correlator) SetRetention(retain func(*Event) bool) {
	c.retain = retain
}

// Process runs the gates and fuses the report, returning the affected
// event. A nil event with nil error is a silent drop.
func (c *Correlator) Process(ctx context.Context, report quake.Report) (*Event, error) {
	now := time.Now()

	if report.Time.After(now) {
		return nil, fmt.Errorf("fusion: rejecting report from the future: %s", report)
	}
	if report.Posted().Before(now.Add(-12 * time.Hour)) {
		return nil, nil
	}
	if report.Posted().Before(c.started) {
		return nil, nil
	}
	if report.Mag.Value < thresholdMag {
		return nil, nil
	}
	if report.Coords.Radius > precisionKm {
		return nil, nil
	}

	if c.seen != nil {
		fresh, err := c.seen.Admit(ctx, report.Key())
		if err != nil {
			return nil, fmt.Errorf("fusion: replay store: %w", err)
		}
		if !fresh {
			return nil, nil
		}
	}

	if report.Confidence() < 0.4 {
		report.Score *= c.adjust(report)
	}

	return c.fuse(report)
}

// adjust registers the report in both slider windows and returns the
// smoothed swarm factor. Under a burst the short window outpaces the
// long one and low-confidence scores get inflated; in a drought they
// get damped.
func (c *Correlator) adjust(report quake.Report) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := fmt.Sprintf("%d", c.seq.Add(1))
	c.recent.Set(key, true, cache.DefaultExpiration)
	c.trend.Set(key, true, cache.DefaultExpiration)

	factor := float64(c.recent.ItemCount()) * trendTTL.Seconds() /
		(float64(c.trend.ItemCount()) * recentTTL.Seconds())

	// While the long window is still cold the ratio overshoots, so it
	// only gets to argue the score down.
	if _, cold := c.trend.Get("seed"); cold {
		if factor != 0 {
			factor = 1.0 / factor
		}
		if factor > 1.0 {
			factor = 1.0
		}
	}
	factor = quake.Clip(factor, 0.7, 1.5)

	c.slider = c.slider*0.95 + factor*0.05

	slog.Debug("swarm slider adjusted",
		"recent", c.recent.ItemCount(), "trend", c.trend.ItemCount(),
		"factor", factor, "slider", c.slider)

	return c.slider
}

// Slider exposes the smoothed factor for diagnostics.
func (c *Correlator) Slider() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slider
}

func (c *Correlator) fuse(report quake.Report) (*Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, event := range c.history {
		if c.matches(event, report) {
			event.Absorb(report)
			// Move to the fresh end so eviction hits idle events.
			copy(c.history[i:], c.history[i+1:])
			c.history[len(c.history)-1] = event
			return event, nil
		}
	}

	event, err := NewEvent(report, c.travel)
	if err != nil {
		return nil, err
	}
	c.history = append(c.history, event)
	if len(c.history) > maxHistory {
		c.history = c.history[1:]
	}
	return event, nil
}

func (c *Correlator) matches(event *Event, report quake.Report) bool {
	if quake.Equivalent(report, event.Fused(), c.travel) {
		return true
	}
	for _, child := range event.Children {
		if report.Key() == child.Key() || quake.Equivalent(report, child, c.travel) {
			return true
		}
	}
	return false
}

// History snapshots the live events, newest last.
func (c *Correlator) History() []*Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Event(nil), c.history...)
}

// Mature runs one learning-and-eviction pass: official events and
// timed-out ones feed their witnesses back to the learner, and events
// no longer worth announcing leave the history.
func (c *Correlator) Mature(ctx context.Context, learner Learner) {
	c.mu.Lock()
	events := append([]*Event(nil), c.history...)
	c.mu.Unlock()

	for _, event := range events {
		aged := time.Since(event.Time) > 30*time.Minute
		stale := c.retain != nil && !c.retain(event)

		if !event.Official() && !(aged && stale) {
			continue
		}

		if aged && stale {
			c.remove(event)
		}

		if len(event.Children) < 4 {
			continue
		}
		c.teach(ctx, event, learner)
	}
}

// teach feeds each witness's features back with its role weight, then
// strips them so a later pass cannot double-count.
func (c *Correlator) teach(ctx context.Context, event *Event, learner Learner) {
	if learner == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	official := event.Official()
	warners := map[string]bool{}
	for _, w := range event.Warners() {
		warners[w.Key()] = true
	}
	witnesses := map[string]bool{}
	for _, w := range event.Witnesses() {
		witnesses[w.Key()] = true
	}

	taught := false
	for i := range event.Children {
		child := &event.Children[i]
		if len(child.Heuristics) == 0 || !witnesses[child.Key()] {
			continue
		}
		weight := 0.1
		if warners[child.Key()] {
			weight = 1.0
		}
		learner.Absorb(ctx, child.Heuristics, child.Status, official, weight)
		child.Heuristics = nil
		taught = true
	}
	if taught {
		learner.Matured(ctx)
	}
}

func (c *Correlator) remove(event *Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, candidate := range c.history {
		if candidate == event {
			c.history = append(c.history[:i], c.history[i+1:]...)
			return
		}
	}
}
