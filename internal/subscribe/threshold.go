// Package subscribe matches classified notices against subscriber
// domains and drives delivery: seasonal thresholds, the domain
// predicate chain, lazy message rendering, and the monitor worker that
// fans notices out to sinks.
package subscribe

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// Threshold is a seasonal confidence floor: one running mean and
// variance per hour of day, updated with an exponential weight so quiet
// hours demand less evidence than hours that historically produce
// strong crowdsourced signals.
type Threshold struct {
	mu        sync.Mutex
	sigmas    float64
	averages  [24]float64
	variances [24]float64
}

// NewThreshold seeds every hour with the initial value and zero
// variance.
func NewThreshold(initial, sigmas float64) *Threshold {
	t := &Threshold{sigmas: sigmas}
	for hour := range t.averages {
		t.averages[hour] = initial
	}
	return t
}

// RestoreThreshold rebuilds a threshold from persisted state.
func RestoreThreshold(averages, variances [24]float64, sigmas float64) *Threshold {
	return &Threshold{sigmas: sigmas, averages: averages, variances: variances}
}

func (t *Threshold) hour() int { return time.Now().Hour() }

// Update folds value into the current hour's mean and variance with
// weight 0.2. When hit is false, value is taken as an offset on top of
// the current mean rather than an absolute observation.
func (t *Threshold) Update(value float64, hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	const weight = 0.2
	hour := t.hour()
	if !hit {
		value = t.averages[hour] + value
	}
	t.averages[hour] = t.averages[hour]*(1-weight) + value*weight
	delta := value - t.averages[hour]
	t.variances[hour] = t.variances[hour]*(1-weight) + delta*delta*weight
}

// Average is the all-day mean of the hourly means.
func (t *Threshold) Average() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return mean(t.averages)
}

// Variance is the all-day mean of the hourly variances.
func (t *Threshold) Variance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return mean(t.variances)
}

// Minimum is the confidence floor for right now: the global mean
// blended toward the current hour and its neighbors, each neighbor at
// offset o contributing with weight 1/(|o|+2), plus sigmas standard
// deviations. Offsets that fall off the day are skipped rather than
// wrapped, so early and late hours lean more on the global mean.
func (t *Threshold) Minimum() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	average, variance := mean(t.averages), mean(t.variances)
	hour := t.hour()
	for _, offset := range []int{0, -1, +1, -2, +2, -3, +3} {
		h := hour + offset
		if h < 0 || h > 23 {
			continue
		}
		weight := 1.0 / (math.Abs(float64(offset)) + 2)
		average = average*(1-weight) + t.averages[h]*weight
		variance = variance*(1-weight) + t.variances[h]*weight
	}
	return average + math.Sqrt(variance)*t.sigmas
}

// State returns a copy of the persistable fields.
func (t *Threshold) State() ([24]float64, [24]float64, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.averages, t.variances, t.sigmas
}

func mean(values [24]float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// ThresholdStore persists thresholds across restarts.
type ThresholdStore interface {
	Thresholds() (map[string]ThresholdState, error)
	SaveThreshold(key string, state ThresholdState) error
}

// ThresholdState is the wire shape of a persisted threshold.
type ThresholdState struct {
	Averages  [24]float64
	Variances [24]float64
	Sigmas    float64
}

// Registry deduplicates thresholds by domain key, so every domain and
// every per-region gate watching the same slice of the world shares one
// adapting floor. A nil store keeps everything in memory.
type Registry struct {
	mu    sync.Mutex
	byKey map[string]*Threshold
	store ThresholdStore
}

func NewRegistry(store ThresholdStore) *Registry {
	r := &Registry{byKey: map[string]*Threshold{}, store: store}
	if store == nil {
		return r
	}
	states, err := store.Thresholds()
	if err != nil {
		slog.Error("could not load persisted thresholds", "error", err)
		return r
	}
	for key, state := range states {
		r.byKey[key] = RestoreThreshold(state.Averages, state.Variances, state.Sigmas)
	}
	return r
}

// Obtain returns the threshold registered under key, registering
// fallback when the key is new.
func (r *Registry) Obtain(key string, fallback *Threshold) *Threshold {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byKey[key]; ok {
		return t
	}
	r.byKey[key] = fallback
	return fallback
}

// Persist writes the threshold registered under key through to the
// store, if any.
func (r *Registry) Persist(key string) {
	r.mu.Lock()
	t := r.byKey[key]
	store := r.store
	r.mu.Unlock()
	if t == nil || store == nil {
		return
	}

	averages, variances, sigmas := t.State()
	state := ThresholdState{Averages: averages, Variances: variances, Sigmas: sigmas}
	if err := store.SaveThreshold(key, state); err != nil {
		slog.Error("could not persist threshold", "key", key, "error", err)
	}
}

// Dump snapshots every registered threshold, for the debug API.
func (r *Registry) Dump() map[string]ThresholdState {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]ThresholdState, len(r.byKey))
	for key, t := range r.byKey {
		averages, variances, sigmas := t.State()
		out[key] = ThresholdState{Averages: averages, Variances: variances, Sigmas: sigmas}
	}
	return out
}
