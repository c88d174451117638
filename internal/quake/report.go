package quake

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quakewatch/quakewatch/internal/geo"
)

// Heuristic is one triggered scoring feature: its weight contribution
// and a stable name the learner keys its counters on.
type Heuristic struct {
	Weight float64
	Name   string
}

// TravelTimes computes shear-wave travel times in seconds from a source
// at the given depth to a point at the given surface distance. Zero or
// more phase arrivals may be returned.
type TravelTimes interface {
	Travel(depthKm, distanceKm float64, urgent bool) []float64
}

// Report is the atomic observation every parser produces: one source's
// view of one occurrence, structured or crowdsourced.
type Report struct {
	Coords     geo.Coords
	Time       time.Time
	Update     time.Time
	Mag        Magnitude
	Intensity  Intensity
	Alert      Severity
	Status     Status
	Water      string // "" unknown, "land", "sea", or a named body of water
	Victims    int
	Sources    []string
	Links      []string
	Text       string
	Keywords   []string
	User       string
	Score      float64
	Heuristics []Heuristic
}

// New returns a report with the defaults every parser starts from:
// confirmed status and a unit base score. The update timestamp trails
// now by a minute unless the origin time is fresher.
func New(coords geo.Coords, at time.Time, mag Magnitude) Report {
	update := time.Now().Add(-time.Minute)
	if !at.IsZero() && at.After(update) {
		update = at
	}
	return Report{
		Coords: coords,
		Time:   at,
		Update: update,
		Mag:    mag,
		Status: StatusConfirmed,
		Score:  1.0,
	}
}

// Valid reports whether the report carries the minimum needed to fuse:
// a position, an origin time and a magnitude.
func (r Report) Valid() bool {
	return !r.Coords.Zero() && !r.Time.IsZero() && !r.Mag.IsZero()
}

// DepthKm is the hypocenter depth, defaulting to 10 km when the source
// gave none. Positive altitudes are treated as zero depth.
func (r Report) DepthKm() float64 {
	depth := -r.Coords.Alt
	if depth <= 0 {
		return 10.0
	}
	return depth
}

// RadiusKm estimates how far the quake may be felt.
func (r Report) RadiusKm() float64 {
	return math.Min(800.0, math.Exp(0.666*r.Mag.Value+1.2)*math.Pow(r.DepthKm(), 0.2))
}

// Confidence folds the heuristic score and the review status into one
// credibility figure in (0, 1].
func (r Report) Confidence() float64 {
	return Clip(r.Score*r.Status.Confidence, 0.00005, 1.0)
}

// Posted is when the source last touched the report.
func (r Report) Posted() time.Time {
	if !r.Update.IsZero() {
		return r.Update
	}
	return r.Time
}

// Priority ranks reports for aggregation: fresh, credible and strong
// first.
func (r Report) Priority(now time.Time) float64 {
	age := now.Sub(r.Time).Seconds()
	return 30.0 / Clip(age, 1, 3600) * r.Confidence() * r.Mag.Value
}

// Official reports whether this came from an agency with a usable fix.
func (r Report) Official() bool {
	return r.Status.AtLeast(StatusPreliminary) && r.Coords.Radius < 300
}

// Crowdsourced reports whether this is a believable eyewitness post.
func (r Report) Crowdsourced() bool {
	return !r.Status.Above(StatusGuessed) && r.Text != "" && r.Score > 0
}

// OnWater reports whether the epicenter is known to be over water.
func (r Report) OnWater() bool {
	return r.Water != "" && r.Water != "land"
}

// Region names the seismic region of the epicenter.
func (r Report) Region() string {
	if r.Coords.Zero() {
		return ""
	}
	return geo.Region(r.Coords.Round(2))
}

// Tsunami returns the locality a tsunami threat applies to, or "" when
// there is none: either the named body of water the quake hit, or the
// region itself for a strong shallow quake at sea.
func (r Report) Tsunami() string {
	if r.Water != "" && r.Water != "land" && r.Water != "sea" {
		words := strings.Fields(r.Water)
		for i, w := range words {
			words[i] = capitalize(strings.ToLower(w))
		}
		return strings.Join(words, " ")
	}
	if r.Mag.Value > 7.3 && r.DepthKm() < 60 && r.OnWater() {
		return r.Region()
	}
	return ""
}

// Key is the canonical content-addressed form used by the replay store.
// Coordinates are rounded so near-duplicates collapse to one key.
func (r Report) Key() string {
	c := r.Coords.Round(2)
	return fmt.Sprintf("report(%.2f,%.2f,%.2f m%.1f t%d s%.4f a%s st%s)",
		c.Lat, c.Lon, c.Alt, r.Mag.Value, r.Time.Unix(), r.Score, r.Alert, r.Status)
}

func (r Report) String() string {
	return fmt.Sprintf("Report(coords=%s, mag=%s, time=%s, score=%.4f, confidence=%.4f, alert=%q, status=%q)",
		r.Coords, r.Mag, r.Time.UTC().Format(time.RFC3339), r.Score, r.Confidence(), r.Alert, r.Status)
}

// Equivalent is the fusion predicate: whether two reports plausibly
// describe the same occurrence. Cheap absolute bounds run first, then
// the confidence-scaled bounds that need a travel-time lookup.
func Equivalent(a, b Report, travel TravelTimes) bool {
	if a.Mag.IsZero() || b.Mag.IsZero() {
		return false
	}
	dt := math.Abs(a.Time.Sub(b.Time).Seconds())
	sep := a.Coords.Separation(b.Coords)

	if math.Abs(a.Mag.Value-b.Mag.Value) > 2.5 {
		return false
	}
	if dt > 300 {
		return false
	}
	if sep > 600 {
		return false
	}

	confidence := math.Min(a.Confidence(), b.Confidence())
	depth := math.Round(math.Max(a.DepthKm(), b.DepthKm())/10) * 10
	distance := math.Round(sep/10) * 10

	var slowest float64
	if travel != nil {
		for _, arrival := range travel.Travel(depth, distance, false) {
			slowest = math.Max(slowest, arrival)
		}
	}

	if dt > Clip(slowest/confidence, 60, 300) {
		return false
	}
	if sep > Clip((a.RadiusKm()+b.RadiusKm())/math.Max(0.5, confidence), 100, 500) {
		return false
	}
	return true
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
