package parse

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// StationLocator resolves a seismograph network/station pair to its
// position. Pick elements name stations, not coordinates, so without a
// locator picks are rejected.
type StationLocator interface {
	Station(network, station string) (geo.Coords, bool)
}

// QuakeML handles the FDSN event XML. Documents are walked leniently
// with a CSS-selector soup rather than a strict schema: agencies nest
// and namespace the elements with some creativity.
type QuakeML struct {
	// Stations enables early single-station picks. Optional.
	Stations StationLocator
}

func (QuakeML) Type() string  { return "QuakeML" }
func (QuakeML) Priority() int { return 2 }

func (q QuakeML) Parse(data []byte) ([]quake.Report, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, Rejection("not markup")
	}

	events := doc.Find("event")
	picks := doc.Find("pick")
	if events.Length() == 0 && picks.Length() == 0 {
		return nil, Rejection("no event or pick elements")
	}

	var reports []quake.Report
	events.Each(func(_ int, event *goquery.Selection) {
		if report, ok := q.convertEvent(event); ok {
			reports = append(reports, report)
		}
	})
	picks.Each(func(_ int, pick *goquery.Selection) {
		if report, ok := q.convertPick(pick); ok {
			reports = append(reports, report)
		}
	})
	return reports, nil
}

// elementValue digs out the text of sel's first descendant matching the
// selector, preferring an inner <value> element when present.
func elementValue(sel *goquery.Selection, selector string) string {
	node := sel.Find(selector).First()
	if node.Length() == 0 {
		return ""
	}
	if value := node.Find("value").First(); value.Length() > 0 {
		return strings.TrimSpace(value.Text())
	}
	return strings.TrimSpace(node.Text())
}

func elementFloat(sel *goquery.Selection, selector string) (float64, bool) {
	v, err := strconv.ParseFloat(elementValue(sel, selector), 64)
	return v, err == nil
}

func (q QuakeML) convertEvent(event *goquery.Selection) (quake.Report, bool) {
	lat, okLat := elementFloat(event, "latitude")
	lon, okLon := elementFloat(event, "longitude")
	if !okLat || !okLon {
		return quake.Report{}, false
	}
	depthKm := 10.0
	if depth, ok := elementFloat(event, "depth"); ok {
		depthKm = math.Abs(depth) / 1000.0
	}

	at, okTime := ParseWhen(elementValue(event, "origin time"), nil)
	if !okTime {
		at, _ = ParseWhen(elementValue(event, "time"), nil)
	}

	magnitude := event.Find("magnitude").First()
	mag, _ := elementFloat(magnitude, "mag")

	report := quake.New(geo.New(lat, lon, -depthKm), at,
		quake.NewMagnitude(mag, elementValue(magnitude, "type")))

	if update, ok := ParseWhen(elementValue(event, "creationinfo creationtime"), nil); ok {
		report.Update = update
	}
	if agency := elementValue(event, "creationinfo agencyid"); agency != "" {
		report.Sources = []string{agency}
	} else if author := elementValue(event, "creationinfo author"); author != "" {
		report.Sources = []string{author}
	}

	// A solution built on a couple of stations is barely better than a
	// guess, and a wide magnitude uncertainty costs score directly.
	stations, okStations := elementFloat(magnitude, "stationcount")
	if okStations && stations > 0 && stations < 4 {
		report.Status = quake.StatusGuessed
	}
	if okStations && stations > 0 {
		report.Score = math.Max(0.1, report.Score-1.5/stations)
	}
	upper, okUpper := elementFloat(magnitude, "upperuncertainty")
	lower, okLower := elementFloat(magnitude, "loweruncertainty")
	if okUpper && okLower {
		report.Score = math.Max(0.1, report.Score-(upper-lower))
	}

	return report, report.Valid()
}

// convertPick estimates a magnitude from the characteristic period of a
// single station's P-wave onset. Wildly imprecise, but minutes earlier
// than any located solution.
func (q QuakeML) convertPick(pick *goquery.Selection) (quake.Report, bool) {
	if q.Stations == nil {
		return quake.Report{}, false
	}

	t0, ok := elementFloat(pick, `ee\:t0`)
	if !ok || t0 <= 0 {
		return quake.Report{}, false
	}

	waveform := pick.Find("waveformid").First()
	network := waveform.AttrOr("networkcode", elementValue(waveform, "networkcode"))
	station := waveform.AttrOr("stationcode", elementValue(waveform, "stationcode"))
	coords, ok := q.Stations.Station(network, station)
	if !ok {
		return quake.Report{}, false
	}

	logT0 := math.Log10(t0)
	mag := quake.Clip(0.80*logT0*logT0+1.7*logT0-0.87, 3.5, 6.5)

	at, _ := ParseWhen(elementValue(pick, "time"), nil)
	report := quake.New(coords, at, quake.NewMagnitude(mag, "Md"))
	report.Score = 0.5
	report.Status = quake.StatusGuessed
	if network != "" {
		report.Sources = []string{network}
	}
	return report, report.Valid()
}
