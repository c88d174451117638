package score

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/quakewatch/quakewatch/internal/quake"
)

// Counters is the persistence the learner needs: named running
// counters that survive a restart.
type Counters interface {
	BumpStat(ctx context.Context, name string, delta float64) error
	SetStat(ctx context.Context, name string, value float64) error
	Stats(ctx context.Context) (map[string]float64, error)
}

// Learner accumulates per-feature outcome statistics. When an event
// matures as official, the features of its early reporters earn credit;
// when it fizzles, they take blame. Counters are keyed "name+" and
// "name-" so both directions are visible separately.
type Learner struct {
	mu      sync.Mutex
	stats   map[string]float64
	backing Counters
}

// NewLearner loads any persisted counters from backing, which may be
// nil for an in-memory learner.
func NewLearner(ctx context.Context, backing Counters) (*Learner, error) {
	l := &Learner{stats: make(map[string]float64), backing: backing}
	if backing != nil {
		stats, err := backing.Stats(ctx)
		if err != nil {
			return nil, err
		}
		l.stats = stats
		if l.stats == nil {
			l.stats = make(map[string]float64)
		}
	}
	return l, nil
}

// Absorb feeds one matured report back into the counters. Reports that
// carried no heuristics, or that were official to begin with, teach
// nothing. The weight is the report's role: 1.0 for warners, 0.1 for
// mere witnesses.
func (l *Learner) Absorb(ctx context.Context, heuristics []quake.Heuristic, status quake.Status, official bool, weight float64) {
	if len(heuristics) == 0 {
		return
	}
	if status.Above(quake.StatusPreliminary) {
		return
	}

	sign := "-"
	if official {
		sign = "+"
	}
	signed := weight
	if sign == "-" {
		signed = -weight
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.bump(ctx, sign, math.Abs(signed))
	for range heuristics {
		l.bump(ctx, "total"+sign, signed)
	}
	for _, h := range heuristics {
		l.bump(ctx, h.Name+sign, signed)
	}

	if l.stats["-"] != 0 {
		ratio := l.stats["+"] / l.stats["-"]
		l.stats["/"] = ratio
		if l.backing != nil {
			if err := l.backing.SetStat(ctx, "/", ratio); err != nil {
				slog.Warn("could not persist counter", "counter", "/", "error", err)
			}
		}
	}
}

// Matured counts one completed learning pass over an event.
func (l *Learner) Matured(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bump(ctx, "=", 1)
}

func (l *Learner) bump(ctx context.Context, name string, delta float64) {
	l.stats[name] += delta
	if l.backing != nil {
		if err := l.backing.BumpStat(ctx, name, delta); err != nil {
			slog.Warn("could not persist counter", "counter", name, "error", err)
		}
	}
}

// Ranked is one feature with its learned score. Scores are sort keys,
// not calibrated quantities: the "/" sign returns ratios with 999
// standing in for division by zero, every other sign returns summed
// rates.
type Ranked struct {
	Score float64
	Name  string
}

// Learned ranks the features by their outcome statistics. Sign "+"
// ranks by positive rate, "-" by negative rate (ascending, worst
// first), "=" by the sum, "/" by the absolute ratio.
func (l *Learner) Learned(sign string) []Ranked {
	l.mu.Lock()
	defer l.mu.Unlock()

	individual := func(name string) float64 {
		var positive, negative float64
		if sign != "-" && l.stats["+"] != 0 {
			positive = l.stats[name+"+"] / l.stats["+"]
		}
		if sign != "+" && l.stats["-"] != 0 {
			negative = l.stats[name+"-"] / l.stats["-"]
		}
		if sign == "/" {
			if negative == 0 {
				return 999
			}
			return math.Abs(positive / negative)
		}
		return positive + negative
	}

	names := make(map[string]bool)
	for name := range l.stats {
		if len(name) > 1 && (strings.HasSuffix(name, "+") || strings.HasSuffix(name, "-")) {
			names[name[:len(name)-1]] = true
		}
	}

	ranked := make([]Ranked, 0, len(names))
	for name := range names {
		ranked = append(ranked, Ranked{Score: individual(name), Name: name})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			if sign == "-" {
				return ranked[i].Score < ranked[j].Score
			}
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// Stats snapshots the raw counters.
func (l *Learner) Stats() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]float64, len(l.stats))
	for name, value := range l.stats {
		out[name] = value
	}
	return out
}
