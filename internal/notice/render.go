package notice

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Icons decorate the supersede reason or significance in rendered
// details. Reasons without an icon fall back to the tentative marker.
var Icons = map[string]string{
	"green":      "✅",
	"yellow":     "🔸",
	"orange":     "🔶",
	"red":        "🔴",
	"alert":      "🚥",
	"tsunami":    "🌊",
	"epicenter":  "🎊",
	"stronger":   "📈",
	"worse":      "📈",
	"weaker":     "📉",
	"frequency":  "⚠️",
	"magnitude":  "⭕",
	"population": "🏠",
	"felt":       "💬",
	"tentative":  "❔",
	"victims":    "🕯️",
	"emergency":  "🚨",
}

// Globe is the hemisphere marker for the epicenter.
func (n *Notice) Globe() string {
	switch {
	case n.DepthKm() > 200:
		return "🌏"
	case strings.Contains(n.Region(), "Japan"):
		return "🗾"
	case -30 < n.Coords.Lon && n.Coords.Lon < 55:
		return "🌍"
	case n.Coords.Lon < 0:
		return "🌎"
	}
	return "🌏"
}

// Title is the one-line header sinks show above the message body.
func (n *Notice) Title() string {
	banner := capitalize(n.Category())
	if n.Category() == "earthquake" {
		banner = strings.Join(n.Announcements("earthquake", false, nil), " - ")
	}

	source := n.Provider
	if source == "" && len(n.Best()) > 0 && len(n.Best()[0].Sources) > 0 {
		source = n.Best()[0].Sources[0]
	}

	when := n.Time.UTC().Format("15:04:05 UTC")
	estimate := n.Estimate()
	if estimate == "" {
		estimate = n.Mag.String()
	}
	return fmt.Sprintf("%s %s: %s (%s, at %s, from %s)",
		n.Globe(), n.Region(), banner, estimate, when, source)
}

// statement accumulates clauses for one output style. A clause may be
// overridden or suppressed per style; suppression is an explicit empty
// override.
type statement struct {
	style string
	parts []string
}

func (s *statement) add(def string, overrides map[string]string) {
	text := def
	if v, ok := overrides[s.style]; ok {
		text = v
	}
	if text != "" {
		s.parts = append(s.parts, text)
	}
}

func (s *statement) String() string {
	return strings.TrimSuffix(strings.Join(s.parts, " "), ",")
}

// Details renders the event summary line in the given style. Styles
// trade length for haste: machine omits everything that needs a lookup,
// human reads as a sentence, short fits a feed post.
func (n *Notice) Details(style string) string {
	out := &statement{style: style}

	linkCount := 6
	switch style {
	case "human":
		linkCount = 1
	case "short":
		linkCount = 4
	case "machine", "fixed":
		linkCount = 5
	}

	if !n.Alert.IsZero() {
		out.add(fmt.Sprintf("%s alert:", strings.ToUpper(n.Alert.Name)), nil)
	}
	if estimate := n.Estimate(); estimate != "" {
		out.add(estimate+",", map[string]string{
			"long":  estimate + " tremor,",
			"human": "magnitude " + estimate + ",",
		})
	}
	if agencies := n.Agencies(); len(agencies) > 0 {
		clause := fmt.Sprintf("registered by %d agencies,", len(agencies))
		if len(agencies) < 4 {
			clause = fmt.Sprintf("registered by %s,", strings.Join(agencies, ","))
		}
		out.add(clause, map[string]string{"short": "", "human": ""})
	}
	if witnesses := len(n.Witnesses()); witnesses > 1 {
		out.add(fmt.Sprintf("with %d reports,", witnesses),
			map[string]string{"short": "", "human": "", "fixed": ""})
	}
	if warners := len(n.Warners()); warners > 0 {
		out.add(fmt.Sprintf("%d early,", warners),
			map[string]string{"short": "", "human": "", "fixed": ""})
	}
	if !n.Official() {
		out.add("possibly", nil)
	}
	if !n.Time.IsZero() {
		when := n.Time.UTC().Format("15:04:05 UTC")
		out.add(when, map[string]string{
			"long":  fmt.Sprintf("occurred %s,", when),
			"human": when + ",",
		})
	}
	switch n.Water {
	case "":
	case "land":
		out.add("on land,", nil)
	default:
		out.add(fmt.Sprintf("on water (%s),", n.Water), nil)
	}
	if !n.Coords.Zero() {
		out.add(fmt.Sprintf("%s %s", n.Region(), n.Coords),
			map[string]string{"human": fmt.Sprintf("around %s,", n.Region())})
	}

	if n.Category() == "earthquake" && style != "machine" {
		if radius := n.RadiusKm(); radius > 0 {
			rounded := math.Round(radius/10) * 10
			out.add(fmt.Sprintf("likely felt %.0f km away", rounded),
				map[string]string{"short": fmt.Sprintf("felt to %.0f km", rounded), "human": ""})
		}
		if population := sum(n.Populations()); population > 0 {
			out.add(fmt.Sprintf("by %d people", population), nil)
		}
	}
	if n.Category() == "earthquake" {
		if n.Victims > 0 {
			out.add(fmt.Sprintf("with %d victims", n.Victims),
				map[string]string{"short": fmt.Sprintf(", %d victims,", n.Victims), "machine": ""})
		}
		if n.Tsunami() != "" {
			out.add("with possible tsunami", map[string]string{"short": "(TSUNAMI?)"})
		}
		if !n.Intensity.IsZero() {
			out.add(fmt.Sprintf("with maximum intensity %s", n.Intensity),
				map[string]string{"short": fmt.Sprintf("– intensity: %s", n.Intensity)})
		}
	}

	if len(n.Links) > 0 {
		links := n.Links
		if most := int(float64(linkCount) / 1.6); len(links) > most {
			links = links[:most]
		}
		out.add("→ "+strings.Join(links, " "),
			map[string]string{"human": "", "machine": ""})
	}

	return out.String()
}

// Countdown renders a duration from now in the terse form used by
// arrival warnings.
func Countdown(at time.Time) string {
	seconds := time.Until(at).Seconds()
	switch {
	case seconds <= 0:
		return "now"
	case seconds < 90:
		return fmt.Sprintf("in %.0f seconds", seconds)
	}
	return fmt.Sprintf("in %.0f minutes", seconds/60)
}
