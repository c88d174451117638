// Package notice classifies fused events for announcement: how timely
// an event still is, whether it qualifies as an early warning, what
// category and significance it carries, and whether a fresh notice
// supersedes an earlier one for the same occurrence.
package notice

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/score"
)

// Locality is one settlement a census oracle knows about.
type Locality struct {
	Name       string
	Population int
	Coords     geo.Coords
}

// Census lists the settlements near a point. The lookup hits an
// external service, so it is optional: without one the population
// rules simply never fire.
type Census interface {
	Localities(coords geo.Coords, radiusKm float64) []Locality
}

// Notice is an event on its way to subscribers, annotated with the
// adapter it last arrived through and a stable tag sinks use to edit
// earlier deliveries in place.
type Notice struct {
	*fusion.Event

	Provider  string
	Tag       string
	Timestamp time.Time

	// Census may be nil; population-gated rules then stay silent.
	Census Census

	mu       sync.Mutex
	category string
}

// New wraps a fused event. The tag starts out as the region name; a
// domain that recognizes the event as an update restores the tag of the
// earlier delivery.
func New(event *fusion.Event, provider string) *Notice {
	return &Notice{
		Event:     event,
		Provider:  provider,
		Tag:       event.Region(),
		Timestamp: time.Now(),
	}
}

// Languages lists the languages worth announcing in for the event's
// region, English always included.
func (n *Notice) Languages() []string {
	languages := geo.Languages(n.Region())
	if len(languages) > 4 {
		languages = append(languages[:4:4], "en")
	}
	return languages
}

// Category is "earthquake" for anything with agency provenance, or the
// keyword class the witnesses actually used. Unrecognized keywords
// default to earthquake.
func (n *Notice) Category() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.category != "" {
		return n.category
	}

	n.category = "earthquake"
	if n.Official() || len(n.Sources) > 0 {
		return n.category
	}

	for _, language := range n.Languages() {
		for _, label := range []string{"earthquake", "alert"} {
			for _, form := range score.Keywords(label, language) {
				for _, keyword := range n.Keywords {
					if strings.EqualFold(keyword, form) {
						slog.Debug("category determined from keywords",
							"category", label, "keywords", n.Keywords)
						n.category = label
						return n.category
					}
				}
			}
		}
	}
	return n.category
}

func (n *Notice) elapsed(minutes float64) bool {
	return n.Time.Before(time.Now().Add(-time.Duration(minutes * float64(time.Minute))))
}

// Timely names the announcement window the event still falls in, or ""
// when it is no longer worth anyone's attention.
func (n *Notice) Timely() string {
	confidence := n.Confidence()
	switch {
	case !n.elapsed(3):
		return "warning"
	case !n.elapsed(7) && n.Category() != "earthquake":
		return "emergency"
	case !n.elapsed(10) && confidence >= 0.2:
		return "breaking"
	case !n.elapsed(15) && confidence >= 0.4:
		return "preliminary"
	case !n.elapsed(20) && confidence >= 0.2:
		return "fresh"
	case !n.elapsed(60) && n.Official():
		return "official"
	case !n.elapsed(120) && n.Tsunami() != "":
		return "tsunami"
	case !n.Alert.IsZero() && !n.elapsed(n.Alert.Duration().Minutes()):
		return "alert"
	case n.Victims > 0 && !n.elapsed(quake.Clip(float64(n.Victims)*100, 60*24, 60*24*7)):
		return "victims"
	}
	return ""
}

// Early reports whether the shear waves have not yet reached the felt
// radius, so a warning can still beat the shaking. Non-earthquake
// emergencies count as early for their whole warning window.
func (n *Notice) Early() bool {
	timely := n.Timely()
	if timely != "warning" && timely != "emergency" {
		return false
	}
	if n.Category() != "earthquake" {
		return true
	}

	radius := n.RadiusKm() + math.Min(200.0, n.Coords.Radius)
	deadline := n.Time.Add(time.Duration((20.0 + n.ArrivalAtRadius(radius)) * float64(time.Second)))
	return deadline.After(time.Now())
}

// Priority orders notices in the monitor queue.
func (n *Notice) Priority() float64 {
	return n.Confidence() * n.Mag.Value
}

// Significance names what makes the event notable regardless of any
// subscription, or "".
func (n *Notice) Significance() string {
	depth := n.DepthKm()
	switch {
	case n.Victims > 0:
		return "victims"
	case n.Tsunami() != "":
		return "tsunami"
	case n.Mag.Value > 7.0:
		return "magnitude"
	case n.Mag.Value > 6.5 && depth < 300:
		return "magnitude"
	case n.Mag.Value > 6.0 && n.Alert.Level > quake.SeverityGreen.Level:
		return "magnitude"
	case n.Mag.Value > 5.0 && n.Alert.Level > quake.SeverityYellow.Level:
		return n.Alert.Name
	case n.Mag.Value > 6.0 && depth < 200 && exceeds(n.Populations(), 100):
		return "magnitude"
	case n.Mag.Value > 5.0 && depth < 150 && exceeds(n.Populations(), 100000):
		return "population"
	}
	return ""
}

// Populations lists the settlement populations within the felt radius,
// when a census oracle is wired in.
func (n *Notice) Populations() []int {
	if n.Census == nil || n.Coords.Zero() {
		return nil
	}
	localities := n.Census.Localities(n.Coords, n.RadiusKm())
	populations := make([]int, 0, len(localities))
	for _, l := range localities {
		populations = append(populations, l.Population)
	}
	return populations
}

// Impacted names the settlements within the felt radius, worst-hit
// first, weighing population against distance from the epicenter.
func (n *Notice) Impacted() []string {
	if n.Census == nil || n.Coords.Zero() {
		return nil
	}
	localities := n.Census.Localities(n.Coords, n.RadiusKm())
	sort.SliceStable(localities, func(i, j int) bool {
		return impact(n, localities[i]) > impact(n, localities[j])
	})
	names := make([]string, 0, len(localities))
	for _, l := range localities {
		names = append(names, l.Name)
	}
	return names
}

func impact(n *Notice, l Locality) float64 {
	return float64(l.Population) * math.Exp2(-n.Coords.Separation(l.Coords)/20)
}

func sum(populations []int) int {
	total := 0
	for _, p := range populations {
		total += p
	}
	return total
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

// Estimate renders the magnitude at the precision the review status
// justifies: a strength adjective early on, a rounded figure once some
// agency has looked, the exact value when reviewed.
func (n *Notice) Estimate() string {
	if n.Category() != "earthquake" {
		return ""
	}
	switch {
	case !n.Status.AtLeast(quake.StatusIncomplete):
		return n.Mag.Early()
	case !n.Status.AtLeast(quake.StatusPreliminary):
		return n.Mag.Fuzzy()
	}
	return n.Mag.String()
}

// Announcements translates term into the notice's languages, first
// surface form per language, deduplicated, at most four.
func (n *Notice) Announcements(term string, caps bool, languages []string) []string {
	if languages == nil {
		languages = n.Languages()
	}

	var out []string
	seen := map[string]bool{}
	for _, language := range languages {
		forms := score.Keywords(term, language)
		if len(forms) == 0 {
			continue
		}
		form := forms[0]
		if caps {
			form = strings.ToUpper(form)
		} else {
			form = capitalize(form)
		}
		if !seen[form] {
			seen[form] = true
			out = append(out, form)
		}
		if len(out) == 4 {
			break
		}
	}
	return out
}

// Agencies is the set of agency identifiers across all children,
// trimmed to their leading word.
func (n *Notice) Agencies() []string {
	seen := map[string]bool{}
	var out []string
	for _, child := range n.Children {
		for _, source := range child.Sources {
			word := leadingWord(source)
			if word == "" {
				continue
			}
			if len(word) <= 3 {
				word = strings.ToUpper(word)
			}
			if !seen[word] {
				seen[word] = true
				out = append(out, word)
			}
		}
	}
	return out
}

func leadingWord(s string) string {
	for i, r := range s {
		if !isWordRune(r) {
			return s[:i]
		}
	}
	return s
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
