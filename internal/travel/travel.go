// Package travel estimates shear-wave arrival times. The model is a
// crude two-velocity slant-path approximation, which is all the
// pipeline needs: arrivals gate early warnings, they are not science.
package travel

import (
	"fmt"
	"math"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Shear-wave velocities in km/s. Direct s phases hug the crust and run
// slower than S phases diving through the mantle.
const (
	crustVelocity  = 3.4
	mantleVelocity = 4.5
)

// Model memoizes travel-time lookups with rounded keys: depth to 10 km,
// distance to 1 km. Urgent lookups use a separate cache so early-warning
// paths never evict the bulk classification entries.
type Model struct {
	slow *cache.Cache
	fast *cache.Cache
}

func NewModel() *Model {
	return &Model{
		slow: cache.New(30*time.Minute, 10*time.Minute),
		fast: cache.New(30*time.Minute, 10*time.Minute),
	}
}

// Travel returns the s and S arrival times in seconds for a source at
// depthKm felt distanceKm away. Depth is never negative.
func (m *Model) Travel(depthKm, distanceKm float64, urgent bool) []float64 {
	depth := math.Round(depthKm/10) * 10
	distance := math.Round(distanceKm)
	key := fmt.Sprintf("%g/%g", depth, distance)

	store := m.slow
	if urgent {
		store = m.fast
	}
	if hit, ok := store.Get(key); ok {
		return hit.([]float64)
	}

	slant := math.Sqrt(depth*depth + distance*distance)
	arrivals := []float64{slant / mantleVelocity, slant / crustVelocity}

	store.Set(key, arrivals, cache.DefaultExpiration)
	return arrivals
}

// Earliest is the first arrival, used for per-target countdowns.
func (m *Model) Earliest(depthKm, distanceKm float64) float64 {
	arrivals := m.Travel(depthKm, distanceKm, true)
	earliest := math.Inf(1)
	for _, a := range arrivals {
		earliest = math.Min(earliest, a)
	}
	return earliest
}

// Latest is the last arrival, used when the whole felt radius matters.
func (m *Model) Latest(depthKm, distanceKm float64) float64 {
	var latest float64
	for _, a := range m.Travel(depthKm, distanceKm, false) {
		latest = math.Max(latest, a)
	}
	return latest
}
