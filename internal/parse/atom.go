package parse

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// Atom handles RSS and Atom feeds, including the pseudo-feeds some
// agencies publish: generic XML with magnitude elements but no real
// feed structure. Entries with readable text go through the pattern
// catalog; entries carrying structured elements are used directly.
type Atom struct{}

func (Atom) Type() string  { return "Atom" }
func (Atom) Priority() int { return 3 }

type atomDocument struct {
	XMLName xml.Name
	Version string      `xml:"version,attr"`
	Entries []atomEntry `xml:"entry"`
	Channel struct {
		Items []atomEntry `xml:"item"`
	} `xml:"channel"`
}

type atomEntry struct {
	Title       string `xml:"title"`
	Summary     string `xml:"summary"`
	Description string `xml:"description"`
	ID          string `xml:"id"`
	Published   string `xml:"published"`
	Updated     string `xml:"updated"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"`

	// geo:lat / geo:long, or the bare elements the Iranian agency uses.
	Lat   string `xml:"lat"`
	Long  string `xml:"long"`
	Point string `xml:"point"`
	Depth string `xml:"dep"`
	Mag   string `xml:"mag"`

	AlertLevel string `xml:"alertlevel"`
	Source     struct {
		Title string `xml:",chardata"`
	} `xml:"source"`
	Authors []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

var htmlTags = regexp.MustCompile(`<[^>]*>`)

func (a Atom) Parse(data []byte) ([]quake.Report, error) {
	var doc atomDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, Rejection("not XML")
	}

	entries := doc.Entries
	if len(entries) == 0 {
		entries = doc.Channel.Items
	}
	if len(entries) == 0 {
		return nil, Rejection("no feed entries")
	}
	if doc.XMLName.Local != "feed" && doc.Version == "" && entries[0].Mag == "" {
		return nil, Rejection("XML but not a feed")
	}

	var reports []quake.Report
	for _, entry := range entries {
		report, err := a.convert(entry)
		if err != nil {
			if !errors.Is(err, ErrRejected) {
				slog.Debug("feed entry dropped", "title", entry.Title, "error", err)
			}
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (a Atom) convert(entry atomEntry) (quake.Report, error) {
	report := quake.New(geo.Coords{}, time.Time{}, quake.Magnitude{})

	if lat, okLat := parseDegrees(entry.Lat, "S"); okLat {
		if lon, okLon := parseDegrees(entry.Long, "W"); okLon {
			depth := 10.0
			if d, err := strconv.ParseFloat(strings.TrimSpace(entry.Depth), 64); err == nil && d != 0 {
				depth = abs(d)
			}
			report.Coords = geo.New(lat, lon, -depth)
		}
	}
	if report.Coords.Zero() && entry.Point != "" {
		if coords, ok := parseLatLon(entry.Point, "", ""); ok {
			report.Coords = coords
		}
	}

	if entry.Mag != "" {
		if value, unit, found := strings.Cut(strings.TrimSpace(entry.Mag), " "); found {
			if mag, err := quake.ParseMagnitude(value, unit); err == nil {
				report.Mag = mag
			}
		} else if mag, err := quake.ParseMagnitude(entry.Mag, ""); err == nil {
			report.Mag = mag
		}
	}

	if entry.Source.Title != "" {
		report.Sources = []string{strings.TrimSpace(entry.Source.Title)}
	} else {
		for _, author := range entry.Authors {
			if author.Name != "" {
				report.Sources = append(report.Sources, author.Name)
			}
		}
	}
	if entry.AlertLevel != "" {
		report.Alert = quake.ParseSeverity(entry.AlertLevel)
	}
	if entry.Date != "" {
		if t, ok := ParseWhen(entry.Date, nil); ok {
			report.Time = t
		}
	}
	for _, stamp := range []string{entry.Published, entry.Updated, entry.PubDate} {
		if t, ok := ParseWhen(stamp, nil); ok {
			report.Update = t
		}
	}

	summary := entry.Summary
	if summary == "" {
		summary = entry.Description
	}
	if summary == "" {
		summary = entry.ID
	}
	title := entry.Title
	if title == "" {
		title = "Earthquake"
	}
	report.Text = fmt.Sprintf("%s: %s", title, strings.TrimSpace(htmlTags.ReplaceAllString(summary, " ")))

	parsed, err := FromText(report)
	if err == nil {
		return parsed, nil
	}

	// Pseudo-feeds carry everything in elements and nothing parsable in
	// the text, so a structurally complete entry still counts.
	if report.Valid() {
		slog.Warn("feed entry used without pattern match", "report", report.String())
		return report, nil
	}
	return quake.Report{}, err
}
