// Package fusion coalesces reports that describe the same occurrence
// into events, applies the anti-swarm controls, and hands fused events
// on to classification.
package fusion

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// MaxChildren bounds how many reports an event keeps. Oldest absorbed
// reports fall off when a swarm overruns the cap.
const MaxChildren = 128

// Event is a fused set of reports believed to describe one occurrence.
// All fused attributes are recomputed on every merge from the children,
// so an event is never more than a deterministic function of them.
type Event struct {
	ID      uuid.UUID
	Created time.Time

	Children []quake.Report // newest first

	Time      time.Time
	Update    time.Time
	Coords    geo.Coords
	Mag       quake.Magnitude
	Intensity quake.Intensity
	Alert     quake.Severity
	Status    quake.Status
	Water     string
	Victims   int
	Score     float64
	Links     []string
	Sources   []string
	Keywords  []string

	best      []quake.Report
	witnesses []quake.Report
	warners   []quake.Report

	travel quake.TravelTimes
}

// NewEvent seeds an event from its first report. The report's origin
// time must not be in the future.
func NewEvent(report quake.Report, travel quake.TravelTimes) (*Event, error) {
	if report.Time.After(time.Now()) {
		return nil, fmt.Errorf("fusion: report %s is in the future", report)
	}

	e := &Event{
		ID:      uuid.New(),
		Created: time.Now(),
		Time:    report.Time,
		travel:  travel,
	}
	e.Children = []quake.Report{report}
	e.recompute()
	return e, nil
}

// Absorb merges a report into the event and recomputes every fused
// attribute.
func (e *Event) Absorb(report quake.Report) {
	e.Children = append([]quake.Report{report}, e.Children...)
	if len(e.Children) > MaxChildren {
		e.Children = e.Children[:MaxChildren]
	}
	if report.Time.Before(e.Time) {
		e.Time = report.Time
	}
	e.recompute()
}

func (e *Event) recompute() {
	e.computeWitnesses()

	if official := e.OfficialChildren(); len(official) > 0 {
		kept := e.Children[:0]
		for _, child := range e.Children {
			if e.isWitness(child) || child.Confidence() > 0.2 {
				kept = append(kept, child)
			}
		}
		if len(kept) > 0 {
			e.Children = kept
		}
		e.computeWitnesses()
	} else if len(e.Children) > 1 && e.Children[len(e.Children)-1].Score < 0 {
		e.Children = e.Children[:len(e.Children)-1]
		e.computeWitnesses()
	}

	e.computeBest()

	best := e.best
	if len(e.OfficialChildren()) > 0 {
		e.Time = best[0].Time
	}
	e.Status = best[0].Status

	e.Score = 0
	for _, child := range best {
		if child.Status.Above(quake.StatusRejected) {
			e.Score += child.Score
		} else {
			e.Score -= 1.0
		}
	}

	now := time.Now()
	weighted := make([]geo.Weighted, len(best))
	for i, child := range best {
		weighted[i] = geo.Weighted{Point: child.Coords, Weight: child.Priority(now)}
	}
	if center, ok := geo.Center(weighted); ok {
		e.Coords = center.Round(2)
	}

	confidence := e.Confidence()
	var magSum float64
	for _, child := range best {
		magSum += child.Mag.Value * child.Confidence()
	}
	e.Mag = quake.NewMagnitude(magSum/confidence, best[0].Mag.Unit)

	e.Intensity = quake.Intensity{}
	for _, child := range e.Children {
		if !child.Intensity.IsZero() && child.Intensity.Value > e.Intensity.Value {
			e.Intensity = child.Intensity
		}
	}

	e.Update = time.Time{}
	e.Alert = quake.SeverityNone
	e.Victims = 0
	for _, child := range e.Children {
		if child.Update.After(e.Update) {
			e.Update = child.Update
		}
		if child.Victims > e.Victims {
			e.Victims = child.Victims
		}
	}
	for _, child := range best {
		if child.Alert.Level > e.Alert.Level {
			e.Alert = child.Alert
		}
	}

	e.Water = fusedWater(e.Children)

	e.Links = e.Links[:0]
	e.Sources = e.Sources[:0]
	seenLink := map[string]bool{}
	seenSource := map[string]bool{}
	for _, child := range best {
		if child.Official() {
			for _, link := range child.Links {
				if link != "" && !seenLink[link] {
					seenLink[link] = true
					e.Links = append(e.Links, link)
				}
			}
		}
		for _, source := range child.Sources {
			if source != "" && !seenSource[source] {
				seenSource[source] = true
				e.Sources = append(e.Sources, source)
			}
		}
	}

	counts := map[string]int{}
	for _, witness := range e.witnesses {
		for _, keyword := range witness.Keywords {
			counts[keyword]++
		}
	}
	e.Keywords = e.Keywords[:0]
	for keyword := range counts {
		e.Keywords = append(e.Keywords, keyword)
	}
	sort.Slice(e.Keywords, func(i, j int) bool {
		if counts[e.Keywords[i]] != counts[e.Keywords[j]] {
			return counts[e.Keywords[i]] > counts[e.Keywords[j]]
		}
		return e.Keywords[i] < e.Keywords[j]
	})

	e.computeWarners()
}

// fusedWater folds the children's water flags: a named body of water
// wins, a bare sea/land verdict follows, silence means unknown.
func fusedWater(children []quake.Report) string {
	var names []string
	seen := map[string]bool{}
	sea, land := false, false
	for _, child := range children {
		switch child.Water {
		case "":
		case "land":
			land = true
		case "sea":
			sea = true
		default:
			if !seen[child.Water] {
				seen[child.Water] = true
				names = append(names, child.Water)
			}
		}
	}
	switch {
	case len(names) > 0:
		return strings.Join(names, " ")
	case sea:
		return "sea"
	case land:
		return "land"
	}
	return ""
}

// computeBest selects the minimal prefix of children, in descending
// confidence order, whose cumulative confidence reaches 1.0.
func (e *Event) computeBest() {
	sorted := append([]quake.Report(nil), e.Children...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence() > sorted[j].Confidence()
	})

	var cumulative float64
	e.best = e.best[:0]
	for _, child := range sorted {
		if cumulative >= 1.0 && len(e.best) > 0 {
			break
		}
		e.best = append(e.best, child)
		cumulative += child.Confidence()
	}
}

func (e *Event) computeWitnesses() {
	cutoff := e.Time.Add(10 * time.Minute)
	e.witnesses = e.witnesses[:0]
	for _, child := range e.Children {
		if child.Crowdsourced() && child.Update.Before(cutoff) {
			e.witnesses = append(e.witnesses, child)
		}
	}

}

// computeWarners runs after best is known, since the felt radius that
// sets the warning deadline depends on it.
func (e *Event) computeWarners() {
	arrival := e.latestArrival(e.feltRadius())
	warnCutoff := e.Time.Add(time.Duration(arrival * float64(time.Second)))
	e.warners = e.warners[:0]
	for _, witness := range e.witnesses {
		if witness.Update.Before(warnCutoff) {
			e.warners = append(e.warners, witness)
		}
	}
}

func (e *Event) isWitness(child quake.Report) bool {
	return child.Crowdsourced() && child.Update.Before(e.Time.Add(10*time.Minute))
}

// Best is the minimal high-confidence prefix the fused attributes are
// computed from.
func (e *Event) Best() []quake.Report { return e.best }

// Witnesses are the crowdsourced children within ten minutes of the
// event.
func (e *Event) Witnesses() []quake.Report { return e.witnesses }

// Warners are the witnesses who posted before the shear wave reached
// the event's felt radius: evidence of a genuine early report.
func (e *Event) Warners() []quake.Report { return e.warners }

// OfficialChildren returns the agency-grade children.
func (e *Event) OfficialChildren() []quake.Report {
	var official []quake.Report
	for _, child := range e.Children {
		if child.Official() {
			official = append(official, child)
		}
	}
	return official
}

// Official reports whether any agency has weighed in.
func (e *Event) Official() bool { return len(e.OfficialChildren()) > 0 }

// Confidence is the cumulative confidence of the best prefix. It never
// exceeds the size of that prefix.
func (e *Event) Confidence() float64 {
	var sum float64
	for _, child := range e.best {
		sum += child.Confidence()
	}
	return sum
}

// DepthKm is the fused hypocenter depth.
func (e *Event) DepthKm() float64 {
	depth := -e.Coords.Alt
	if depth <= 0 {
		return 10.0
	}
	return depth
}

// RadiusKm blends the magnitude-model radius with the spread of witness
// positions; the more witnesses, the more their geometry counts.
func (e *Event) RadiusKm() float64 {
	return e.feltRadius()
}

func (e *Event) feltRadius() float64 {
	confidence := e.Confidence()
	if confidence == 0 || len(e.best) == 0 {
		return 0
	}

	var mean float64
	for _, child := range e.best {
		mean += child.RadiusKm() * child.Confidence()
	}
	mean /= confidence

	weight := math.Min(0.9, float64(len(e.witnesses))*0.03)
	felt := mean
	if len(e.witnesses) > 1 {
		distances := make([]float64, len(e.witnesses))
		var sum float64
		for i, witness := range e.witnesses {
			distances[i] = e.Coords.Separation(witness.Coords)
			sum += distances[i]
		}
		avg := sum / float64(len(distances))
		var variance float64
		for _, d := range distances {
			variance += (d - avg) * (d - avg)
		}
		felt = avg + math.Sqrt(variance/float64(len(distances)-1))
	}

	return math.Min(800.0, felt*weight+mean*(1-weight))
}

func (e *Event) latestArrival(radiusKm float64) float64 {
	if e.travel == nil {
		return 0
	}
	var latest float64
	for _, arrival := range e.travel.Travel(e.DepthKm(), radiusKm, false) {
		latest = math.Max(latest, arrival)
	}
	return latest
}

// Arrival is the soonest shear-wave arrival at a specific location, for
// per-target countdowns.
func (e *Event) Arrival(location geo.Coords) float64 {
	if e.travel == nil {
		return 0
	}
	earliest := math.Inf(1)
	for _, arrival := range e.travel.Travel(e.DepthKm(), e.Coords.Separation(location), true) {
		earliest = math.Min(earliest, arrival)
	}
	if math.IsInf(earliest, 1) {
		return 0
	}
	return earliest
}

// ArrivalAtRadius is the latest arrival at the given radius, for the
// early-warning deadline.
func (e *Event) ArrivalAtRadius(radiusKm float64) float64 {
	return e.latestArrival(radiusKm)
}

// Region names the seismic region of the fused epicenter.
func (e *Event) Region() string { return geo.Region(e.Coords.Round(2)) }

// Fused is the event's own attributes viewed as a report, for running
// the equivalence predicate against other reports or events.
func (e *Event) Fused() quake.Report {
	return quake.Report{
		Coords: e.Coords,
		Time:   e.Time,
		Mag:    e.Mag,
		Status: e.Status,
		Score:  e.Score,
	}
}

// Tsunami joins the tsunami localities of all children, or "".
func (e *Event) Tsunami() string {
	var parts []string
	seen := map[string]bool{}
	for _, child := range e.Children {
		if t := child.Tsunami(); t != "" && !seen[t] {
			seen[t] = true
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (e *Event) String() string {
	return fmt.Sprintf("Event(%s, coords=%s, mag=%s, time=%s, score=%.4f, confidence=%.4f, status=%q, reports=%d)",
		e.ID, e.Coords, e.Mag, e.Time.UTC().Format(time.RFC3339), e.Score, e.Confidence(), e.Status, len(e.Children))
}
