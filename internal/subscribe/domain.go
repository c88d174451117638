package subscribe

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/notice"
	"github.com/quakewatch/quakewatch/internal/quake"
)

const historyLimit = 64

// Rater estimates how often a region produces notices, for domains
// that cap delivery frequency. The estimate comes from an external
// service; without one the rate is unknown.
type Rater interface {
	Rate(region string) (perDay float64, ok bool)
}

// DomainConfig describes one subscriber's slice of the world. Zero
// values fall back to defaults: magnitude floor 3.0, score floor 0.09,
// categories {"earthquake"}, updates delivered.
type DomainConfig struct {
	Name        string
	Mag         float64
	Box         *[2]geo.Coords
	Target      *geo.Coords
	Region      string // regexp, matched case-insensitively
	Score       float64
	WarningOnly bool
	Alert       quake.Severity
	People      int
	Rate        float64
	Empty       bool
	Threshold   *Threshold
	NoUpdates   bool
	Reports     int
	Categories  []string
	Debug       bool
}

// Domain decides whether a notice concerns one subscriber: a chain of
// configured predicates, each naming the reason it fired, plus a short
// history used to recognize updates of already-delivered events.
type Domain struct {
	Name        string
	Mag         quake.Magnitude
	Box         *[2]geo.Coords
	Target      *geo.Coords
	Region      *regexp.Regexp
	Score       float64
	WarningOnly bool
	Alert       quake.Severity
	People      int
	Rate        float64
	Empty       bool
	Threshold   *Threshold
	Updates     bool
	Reports     int
	Categories  []string
	Debug       bool

	Rater Rater // optional

	registry *Registry

	mu      sync.Mutex
	history []*notice.Notice
	last    *notice.Notice
}

// NewDomain builds a domain from its config. The registry may be nil;
// threshold-gated domains then keep regional floors in memory only.
func NewDomain(cfg DomainConfig, registry *Registry) (*Domain, error) {
	d := &Domain{
		Name:        cfg.Name,
		Box:         cfg.Box,
		Target:      cfg.Target,
		Score:       cfg.Score,
		WarningOnly: cfg.WarningOnly,
		Alert:       cfg.Alert,
		People:      cfg.People,
		Rate:        cfg.Rate,
		Empty:       cfg.Empty,
		Threshold:   cfg.Threshold,
		Updates:     !cfg.NoUpdates,
		Reports:     cfg.Reports,
		Categories:  cfg.Categories,
		Debug:       cfg.Debug,
		registry:    registry,
	}

	mag := cfg.Mag
	if mag == 0 {
		mag = 3.0
	}
	d.Mag = quake.NewMagnitude(mag, "")

	if d.Score == 0 {
		d.Score = 0.09
	}
	if d.Categories == nil {
		d.Categories = []string{"earthquake"}
	}

	if cfg.Region != "" {
		re, err := regexp.Compile("(?i)" + cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("subscribe: domain %q region: %w", cfg.Name, err)
		}
		d.Region = re
	}

	if d.Threshold != nil && registry != nil {
		d.Threshold = registry.Obtain(d.Key(), d.Threshold)
	}
	return d, nil
}

// Key canonicalizes the configured predicates into a stable identifier
// used for threshold persistence.
func (d *Domain) Key() string {
	var parts []string
	if d.Name != "" {
		parts = append(parts, "name="+d.Name)
	}
	if d.Region != nil {
		pattern := strings.TrimPrefix(d.Region.String(), "(?i)")
		parts = append(parts, "region="+pattern)
	}
	if d.Target != nil {
		parts = append(parts, fmt.Sprintf("target=%.2f,%.2f", d.Target.Lat, d.Target.Lon))
	}
	if d.Box != nil {
		parts = append(parts, fmt.Sprintf("box=%.2f,%.2f,%.2f,%.2f",
			d.Box[0].Lat, d.Box[0].Lon, d.Box[1].Lat, d.Box[1].Lon))
	}
	if len(parts) == 0 {
		parts = append(parts, "all")
	}
	return strings.Join(parts, ";")
}

func regionKey(region string) string { return "region=" + region }

// Less orders domains most-specific first, so a recipient subscribed to
// both a personal target and a broad box gets the targeted stream.
func (d *Domain) Less(other *Domain) bool {
	if (d.Target != nil) != (other.Target != nil) {
		return d.Target != nil
	}
	if d.WarningOnly != other.WarningOnly {
		return d.WarningOnly
	}
	if (d.Alert.Level > 0) != (other.Alert.Level > 0) {
		return d.Alert.Level > 0
	}
	if d.People != other.People {
		return d.People > other.People
	}
	return d.Mag.Value > other.Mag.Value
}

// Significance runs the predicate chain in order and names the binding
// reason, or returns "" when any configured predicate rejects the
// notice.
func (d *Domain) Significance(n *notice.Notice) string {
	if d.Empty {
		return ""
	}

	reason := ""

	if len(d.Categories) > 0 {
		if !contains(d.Categories, n.Category()) {
			return ""
		}
		reason = "emergency"
	}

	// Crowdsourced warnings clear a two-level seasonal floor: mostly
	// this domain's own, blended with the floor of the region the event
	// fell in.
	if d.Threshold != nil && n.Early() && len(n.Warners()) > 2 {
		regional := d.regional(n.Region())
		if n.Confidence() < d.Threshold.Minimum()*0.8+regional.Minimum()*0.2 {
			return ""
		}
		reason = "warning"
	}

	if d.Score > 0 {
		if n.Score < d.Score || n.Confidence() < d.Score {
			return ""
		}
		reason = "confidence"
	}

	if d.Mag.Value > 0 && n.Category() == "earthquake" {
		if n.Mag.Value < d.Mag.Value {
			return ""
		}
		reason = "magnitude"
	}

	if d.Alert.Level > 0 {
		if d.Alert.Level > n.Alert.Level {
			return ""
		}
		reason = "alert"
	}

	if d.Reports > 0 {
		if d.Reports > len(n.Witnesses()) {
			return ""
		}
		reason = "felt"
	}

	if d.Region != nil {
		haystack := n.Tsunami()
		if haystack == "" {
			haystack = n.Region()
		}
		if !d.Region.MatchString(haystack) {
			return ""
		}
		reason = "region"
	}

	if d.Box != nil {
		a, b := d.Box[0], d.Box[1]
		if !(a.Lat < n.Coords.Lat && n.Coords.Lat < b.Lat) ||
			!(a.Lon < n.Coords.Lon && n.Coords.Lon < b.Lon) {
			return ""
		}
		reason = "epicenter"
	}

	if d.Target != nil {
		if math.Abs(n.Coords.Lat-d.Target.Lat) > 1000.0/110.0 {
			return ""
		}
		if math.Abs(n.Coords.Lon-d.Target.Lon) > 1000.0/60.0 {
			return ""
		}
		reach := d.Target.Radius
		if reach == 0 {
			reach = n.RadiusKm()
		}
		if n.Coords.Separation(*d.Target) > reach {
			return ""
		}
		reason = "felt"
	}

	if d.WarningOnly {
		if !n.Early() {
			return ""
		}
		reason = "warning"
	}

	if d.Rate > 0 {
		if rate, ok := d.rate(n.Region()); ok {
			if rate > d.Rate {
				return ""
			}
		} else if s := n.Significance(); s != "magnitude" && s != "population" {
			return ""
		}
		reason = "frequency"
	}

	if d.People > 0 {
		if !exceeds(n.Populations(), d.People) {
			return ""
		}
		reason = "population"
	}

	return reason
}

func (d *Domain) rate(region string) (float64, bool) {
	if d.Rater == nil {
		return 0, false
	}
	return d.Rater.Rate(region)
}

func (d *Domain) regional(region string) *Threshold {
	fallback := NewThreshold(d.Threshold.Minimum(), d.sigmas())
	if d.registry == nil {
		return fallback
	}
	return d.registry.Obtain(regionKey(region), fallback)
}

func (d *Domain) sigmas() float64 {
	_, _, sigmas := d.Threshold.State()
	return sigmas
}

// Relevance decides whether the monitor should dispatch this notice to
// this domain. An event already in the history is an update: its tag is
// restored so sinks can edit in place, and it goes out only when it
// supersedes the earlier delivery (or newly turned official). A fresh
// event goes out when the predicate chain accepts it.
func (d *Domain) Relevance(n *notice.Notice) string {
	d.mu.Lock()
	for _, other := range d.history {
		if !sameEvent(n, other) {
			continue
		}
		n.Tag = other.Tag
		d.last = n
		d.mu.Unlock()

		d.confirm(other, n)
		if d.Updates || (!other.Official() && n.Official()) {
			return n.Supersedes(other, notice.DefaultThrottle)
		}
		return ""
	}
	d.last = n
	d.mu.Unlock()

	if d.Significance(n) != "" {
		return "significance"
	}
	return ""
}

// Remember records a delivered notice, displacing any earlier notice
// for the same event.
func (d *Domain) Remember(n *notice.Notice) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.history[:0]
	for _, other := range d.history {
		if !sameEvent(n, other) {
			kept = append(kept, other)
		}
	}
	d.history = append(kept, n)
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
}

// Last is the most recent notice this domain evaluated.
func (d *Domain) Last() *notice.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// History snapshots the delivered notices, oldest first.
func (d *Domain) History() []*notice.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*notice.Notice, len(d.history))
	copy(out, d.history)
	return out
}

// confirm feeds the seasonal thresholds when an event that warners
// flagged early gets validated by an agency: the sum of the warners'
// confidences becomes a fresh observation for this domain's floor and
// the regional one.
func (d *Domain) confirm(earlier, confirmation *notice.Notice) {
	if d.Threshold == nil {
		return
	}
	if !confirmation.Status.AtLeast(quake.StatusIncomplete) {
		return
	}
	if !quake.StatusIncomplete.Above(earlier.Status) {
		return
	}
	warners := earlier.Warners()
	if len(warners) <= 2 {
		return
	}

	observed := 0.0
	for _, warner := range warners {
		observed += warner.Confidence()
	}

	for _, key := range []string{d.Key(), regionKey(earlier.Region())} {
		threshold := d.Threshold
		if key != d.Key() {
			threshold = d.regional(earlier.Region())
		}
		threshold.Update(observed, true)
		if d.registry != nil {
			d.registry.Persist(key)
		}
		slog.Info("threshold adapted after confirmation",
			"key", key, "observed", observed, "minimum", threshold.Minimum())
	}
}

func sameEvent(a, b *notice.Notice) bool {
	if a.ID == b.ID {
		return true
	}
	return quake.Equivalent(a.Fused(), b.Fused(), nil) ||
		quake.Equivalent(b.Fused(), a.Fused(), nil)
}

// SortDomains orders a set most-specific first.
func SortDomains(domains []*Domain) {
	sort.SliceStable(domains, func(i, j int) bool { return domains[i].Less(domains[j]) })
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

func exceeds(populations []int, floor int) bool {
	total := 0
	for _, p := range populations {
		total += p
		if total > floor {
			return true
		}
	}
	return false
}
