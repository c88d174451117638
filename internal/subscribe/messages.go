package subscribe

import (
	"fmt"
	"strings"
	"time"

	"github.com/quakewatch/quakewatch/internal/notice"
)

// Fallback pages to watch when no agency bulletin carries a tsunami
// link yet.
var tsunamiSites = []string{
	"http://www.tsunami.gov/",
	"http://www.jma.go.jp/en/tsunami/",
	"http://www.bom.gov.au/tsunami/",
}

// Stream is a pull-based sequence of formatted message lines. Nothing
// is evaluated until the first Next call, so the monitor can build a
// stream per (sink, domain) pair and discard the ones a rival domain
// beat to the sink without paying for rendering.
type Stream struct {
	queue []string
	steps []func() []string
}

// Next returns the next line, advancing through the deferred
// generators as needed.
func (s *Stream) Next() (string, bool) {
	for len(s.queue) == 0 {
		if len(s.steps) == 0 {
			return "", false
		}
		step := s.steps[0]
		s.steps = s.steps[1:]
		s.queue = step()
	}
	line := s.queue[0]
	s.queue = s.queue[1:]
	return line, true
}

// Messages renders the message sequence for one domain in one sink
// style: a minimal shout and a countdown for targeted early warnings,
// a regional warning line otherwise, then tsunami, felt-report and
// detail lines as the notice's state justifies them.
func Messages(n *notice.Notice, d *Domain, style string, languages []string) *Stream {
	s := &Stream{}
	s.steps = []func() []string{func() []string {
		if n.Timely() == "" {
			return nil
		}
		relevance := d.Relevance(n)
		if relevance == "" {
			return nil
		}
		significance := d.Significance(n)

		keyword := ""
		if len(n.Keywords) > 0 {
			keyword = capitalize(n.Keywords[0])
		} else if shouts := n.Announcements(n.Category(), false, languages); len(shouts) > 0 {
			keyword = shouts[0]
		}

		wrap := func(line string) string { return wrapLine(n, style, line) }
		s.steps = []func() []string{
			func() []string { return wrapAll(wrap, minimalLines(n, d, significance, keyword, languages)) },
			func() []string { return wrapAll(wrap, warningLines(n, d, significance, keyword, languages)) },
			func() []string { return wrapAll(wrap, tsunamiLines(n, languages)) },
			func() []string { return wrapAll(wrap, feltLines(n, style)) },
			func() []string { return wrapAll(wrap, detailLines(n, d, style, relevance, significance, keyword, languages)) },
			func() []string { return wrapAll(wrap, arrivalLines(n, d, significance, keyword)) },
		}
		return nil
	}}
	return s
}

func wrapAll(wrap func(string) string, lines []string) []string {
	for i, line := range lines {
		lines[i] = wrap(line)
	}
	return lines
}

func wrapLine(n *notice.Notice, style, line string) string {
	prefix := ""
	if n.Early() || n.Tsunami() != "" {
		prefix = "❗ "
	}
	switch {
	case style == "human":
		return fmt.Sprintf("%s. From %s.", line, n.Provider)
	case style == "short" && strings.Contains(line, "http"):
		return prefix + line
	}
	return fmt.Sprintf("%s%s (%s)", prefix, line, n.Provider)
}

// minimalLines is the bare shout for a targeted subscriber who may be
// about to feel the shaking: no detail, just the warning word.
func minimalLines(n *notice.Notice, d *Domain, significance, keyword string, languages []string) []string {
	if d.Target == nil || !n.Early() || significance == "" {
		return nil
	}
	arrival := n.Time.Add(seconds(n.Arrival(*d.Target)))
	if arrival.Before(time.Now()) {
		return nil
	}

	if n.Category() == "earthquake" {
		if shouts := n.Announcements("earthquake warning", true, languages); len(shouts) > 0 {
			return []string{shouts[0]}
		}
	}
	return []string{strings.ToUpper(keyword)}
}

func warningLines(n *notice.Notice, d *Domain, significance, keyword string, languages []string) []string {
	if d.Target != nil || !n.Early() || significance == "" {
		return nil
	}

	var warnings []string
	if n.Category() == "earthquake" {
		warnings = n.Announcements("earthquake warning", true, languages)
	}
	if len(warnings) == 0 {
		warnings = []string{capitalize(n.Category())}
	}

	return []string{fmt.Sprintf("%s for %s (#%s reported near #%s?)",
		strings.Join(warnings, " / "), n.Region(), keyword, n.Region())}
}

func tsunamiLines(n *notice.Notice, languages []string) []string {
	children, best := n.Children, n.Best()
	if len(children) == 0 || len(best) == 0 {
		return nil
	}
	if children[0].Tsunami() == "" && best[0].Tsunami() == "" {
		return nil
	}

	warnings := n.Announcements("possible tsunami", true, languages)
	if len(warnings) == 0 {
		warnings = []string{"POSSIBLE TSUNAMI"}
	}

	localities := longest(best[0].Tsunami(), children[0].Tsunami(), n.Tsunami())

	var links []string
	for _, report := range n.OfficialChildren() {
		if len(report.Links) > 0 {
			links = append(links, report.Links[0])
		}
	}
	if len(links) == 0 {
		links = tsunamiSites
	}

	return []string{fmt.Sprintf("%s for %s! 🌊 Monitor %s",
		strings.Join(warnings, " / "), localities, strings.Join(links, " "))}
}

// feltLines surfaces unverified crowd reports once witnesses and early
// warners both exist, throttled so a growing swarm doesn't repost on
// every absorbed report.
func feltLines(n *notice.Notice, style string) []string {
	if n.Early() || n.Official() {
		return nil
	}
	if len(n.Witnesses()) == 0 || len(n.Warners()) == 0 {
		return nil
	}
	if (len(n.Children)-len(n.Warners()))%32 == 0 {
		return nil
	}
	switch n.Timely() {
	case "warning", "breaking", "fresh":
	default:
		return nil
	}
	impacted := n.Impacted()
	if len(impacted) == 0 {
		return nil
	}

	most := 12
	switch style {
	case "human":
		most = 3
	case "short":
		most = 6
	}
	if len(impacted) > most {
		impacted = impacted[:most]
	}
	places := strings.Join(impacted, ", ")

	if style == "human" {
		return []string{fmt.Sprintf("%s felt an earthquake at %s", n.Region(), places)}
	}
	return []string{fmt.Sprintf("%s Recent %s earthquake might be felt near %s",
		notice.Icons["felt"], n.Region(), places)}
}

func detailLines(n *notice.Notice, d *Domain, style, relevance, significance, keyword string, languages []string) []string {
	official := n.Official()
	if n.Category() == "earthquake" {
		if n.Early() && !official {
			return nil
		}
		if n.Confidence() < 0.2 && !official {
			return nil
		}
		if d.Target != nil && !official {
			return nil
		}
	} else if n.Early() || n.Confidence() < 0.1 {
		return nil
	}

	marker := ""
	if icon, ok := notice.Icons[relevance]; ok {
		if !official {
			icon = notice.Icons["tentative"]
		}
		marker = icon
		if keyword != "" {
			marker = icon + " " + keyword
		}
	} else {
		shouts := []string{keyword}
		if n.Category() == "earthquake" {
			shouts = n.Announcements(n.Category(), false, languages)
			if keyword != "" && !contains(shouts, keyword) {
				shouts = append([]string{keyword}, shouts...)
			}
		}
		mark := "?"
		if official {
			mark = "!"
		}
		for i, shout := range shouts {
			shouts[i] = "#" + shout + mark
		}
		switch style {
		case "human":
			shouts = shouts[:1]
		case "short":
			if len(shouts) > 2 {
				shouts = shouts[:2]
			}
		case "machine":
			shouts = shouts[len(shouts)-1:]
		}

		icon, ok := notice.Icons[n.Significance()]
		if !ok {
			icon = "🔔"
		}
		marker = icon + " " + strings.Join(shouts, " ")
	}

	return []string{marker + " " + n.Details(style)}
}

// arrivalLines is the countdown for a targeted subscriber, with the
// safety lines while they can still act on them.
func arrivalLines(n *notice.Notice, d *Domain, significance, keyword string) []string {
	if d.Target == nil || !n.Early() || significance == "" {
		return nil
	}

	separation := n.Coords.Separation(*d.Target)
	strength := (1.0 - separation/n.RadiusKm()) * (n.Mag.Value / 6.0)
	adjective := "weak"
	switch {
	case strength > 0.95:
		adjective = "very strong"
	case strength > 0.8:
		adjective = "strong"
	case strength > 0.5:
		adjective = "moderate"
	}

	arrival := n.Time.Add(seconds(n.Arrival(*d.Target)))

	var lines []string
	if d.Debug {
		lines = append(lines, fmt.Sprintf(
			"Earthquake %s %s, %s, depth %.0f km, occurred at %s, felt at distance %.0f km at %s",
			n.Region(), n.Coords, n.Mag, n.DepthKm(),
			n.Time.UTC().Format("15:04:05"), separation, arrival.UTC().Format("15:04:05")))
	} else {
		lines = append(lines, fmt.Sprintf("%s: %s tremors possible %s around %s.",
			keyword, adjective, notice.Countdown(arrival), n.Region()))
	}

	now := time.Now()
	if arrival.Before(now.Add(-10*time.Second)) || adjective == "weak" {
		return lines
	}
	lines = append(lines, "Cover your head and stay away from things that may fall. Leave doorways open.")

	if arrival.Before(now.Add(-20 * time.Second)) {
		return lines
	}
	return append(lines, "If there is enough time, shut off the gas valve.")
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func longest(candidates ...string) string {
	best := ""
	for _, c := range candidates {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
