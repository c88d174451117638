package fusion

import (
	"math"
	"sync/atomic"
)

// Slowdown is the process-wide throttle factor, always at least 1.0.
// The monitor raises it when end-to-end latency climbs and every poller
// multiplies its period and divides its parse limit by it.
type Slowdown struct {
	bits atomic.Uint64
}

func NewSlowdown() *Slowdown {
	s := &Slowdown{}
	s.bits.Store(math.Float64bits(1.0))
	return s
}

// Factor returns the current value.
func (s *Slowdown) Factor() float64 {
	return math.Float64frombits(s.bits.Load())
}

// Scale multiplies the factor by m, never letting it drop below 1.0.
func (s *Slowdown) Scale(m float64) float64 {
	for {
		old := s.bits.Load()
		next := math.Max(1.0, math.Float64frombits(old)*m)
		if s.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}
