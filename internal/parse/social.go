package parse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/score"
)

// Social converts one microblog status into a crowdsourced report. The
// text never carries a usable epicenter or magnitude, so both get
// conjured from keywords and the author's whereabouts, and the score
// carries the whole weight of separating panic from chatter.
type Social struct {
	Scorer *score.Scorer
}

func (Social) Type() string  { return "Social" }
func (Social) Priority() int { return 10 }

type socialStatus struct {
	ID        string `json:"id_str"`
	Text      string `json:"text"`
	Lang      string `json:"lang"`
	CreatedAt string `json:"created_at"`
	User      struct {
		ScreenName string `json:"screen_name"`
		Location   string `json:"location"`
	} `json:"user"`
	Coordinates *struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"coordinates"`
	Place *struct {
		FullName    string `json:"full_name"`
		BoundingBox struct {
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"bounding_box"`
	} `json:"place"`
	Retweeted json.RawMessage `json:"retweeted_status"`
	IsQuote   bool            `json:"is_quote_status"`
}

const socialTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

var interestTerms = []string{"earthquake", "alert", "earthquake warning"}

// recentTexts suppresses copy-paste storms: the same wording from
// different accounts within the window adds no information.
var recentTexts = gocache.New(5*time.Minute, time.Minute)

func duplicateText(text string) bool {
	key := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if len(key) < 20 {
		return false // short panic texts legitimately repeat
	}
	if _, seen := recentTexts.Get(key); seen {
		return true
	}
	recentTexts.Set(key, struct{}{}, gocache.DefaultExpiration)
	return false
}

func (s Social) Parse(data []byte) ([]quake.Report, error) {
	var status socialStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, Rejection("not a status object")
	}
	if status.Text == "" || status.User.ScreenName == "" {
		return nil, Rejection("not a status object")
	}

	report, err := s.convert(status)
	if err != nil {
		return nil, err
	}
	return []quake.Report{report}, nil
}

func (s Social) convert(status socialStatus) (quake.Report, error) {
	text := strings.ReplaceAll(status.Text, "\n", " ")
	handle := status.User.ScreenName
	languages := []string{status.Lang, "en"}
	density := float64(score.Density(text))

	report := quake.New(geo.Coords{}, time.Time{}, quake.Magnitude{})
	report.Text = strings.ReplaceAll(text, "#", "")
	report.User = handle
	report.Links = []string{fmt.Sprintf("https://twitter.com/%s/status/%s", handle, status.ID)}
	if update, err := time.Parse(socialTimeLayout, status.CreatedAt); err == nil {
		report.Update = update.UTC()
	}

	alerter := s.Scorer.Alerter(handle)
	if alerter {
		report.Status = quake.StatusPreliminary
		report.Sources = []string{handle}
		report.Time = report.Update.Add(-5 * time.Second)

		parsed, err := FromText(report)
		if err == nil {
			s.Scorer.RateUser(handle, +1.0)
			slog.Debug("alerter status parsed", "user", handle, "report", parsed.String())
			return parsed, nil
		}
		s.Scorer.RateUser(handle, -1.0)

		// Fall back to treating the alerter's post as a plain witness
		// account, but only when it looks like a live, original one.
		switch {
		case strings.Contains(text, "http"):
			return quake.Report{}, Rejection("alerter post with link went unparsed")
		case strings.Contains(text, "震度0"):
			return quake.Report{}, Rejection("null intensity post")
		case density >= 120:
			return quake.Report{}, Rejection("alerter post too dense")
		}
	}

	if len(status.Retweeted) > 0 && string(status.Retweeted) != "null" {
		return quake.Report{}, Rejection("retweet")
	}
	if status.IsQuote {
		return quake.Report{}, Rejection("quote")
	}

	report.Time = report.Update.Add(-time.Duration(density*0.3) * time.Second)
	report.Status = quake.StatusGuessed

	if strings.Contains(text, "@") {
		return quake.Report{}, Rejection("reply or mention")
	}
	if duplicateText(text) {
		return quake.Report{}, Rejection("duplicate text")
	}

	matched := ""
	for _, term := range interestTerms {
		if form := score.Contained(term, text, languages); form != "" {
			matched = form
			break
		}
	}
	if matched != "" {
		report.Keywords = []string{matched}
	} else {
		for _, term := range interestTerms {
			if score.Contained(term, text, nil) != "" {
				// A keyword in a language the author does not post in
				// is usually a false friend.
				s.Scorer.RateUser(handle, -0.05)
				return quake.Report{}, Rejection("keyword in mismatched language")
			}
		}
	}

	report.Mag = guessMagnitude(text, languages)

	report.Heuristics = s.Scorer.Features(text, languages, alerter)
	if s.Scorer.KnownLang(status.Lang) && heuristicSum(report.Heuristics) < 0 {
		return quake.Report{}, Rejection("negative score in a located language")
	}

	for _, term := range interestTerms {
		if form := score.Contained(term, text, languages); form != "" {
			s.Scorer.NoteTerm(form)
		}
	}

	coords, located := statusCoords(status)
	if !located {
		coords, located = profileCoords(status)
	}

	earthquake := score.Contained("earthquake", text, languages) != ""
	if located && earthquake && status.Lang != "en" && status.Lang != "es" {
		s.Scorer.SetHint(status.Lang, coords)
	}
	if !located && earthquake {
		// No position of our own: lean on where this language's recent
		// earthquake posts came from, at a discount.
		for i := range report.Heuristics {
			report.Heuristics[i].Weight *= 0.6
		}
		coords, located = s.Scorer.Hint(status.Lang)
	}
	if !located {
		s.Scorer.RateUser(handle, -0.1)
		return quake.Report{}, Rejection("no usable position")
	}

	report.Score = heuristicSum(report.Heuristics) * coords.Confidence
	report.Coords = coords.Round(2)

	s.Scorer.RateUser(handle, report.Score)
	slog.Debug("status scored", "user", handle, "score", report.Score,
		"language", status.Lang, "coords", report.Coords.String())

	return report, nil
}

// guessMagnitude maps intensity adjectives onto rough magnitudes. A
// warning that is not about an earthquake gets a small arbitrary figure
// so simultaneous alerts in different cities stay distinct events.
func guessMagnitude(text string, languages []string) quake.Magnitude {
	mapping := []struct {
		term  string
		value float64
	}{
		{"destroyed", 7.0},
		{"very strong", 6.5},
		{"strong", 6.0},
		{"weak", 4.5},
	}
	value := 5.0
	for _, m := range mapping {
		if score.Contained(m.term, text, languages) != "" {
			value = m.value
			break
		}
	}

	if score.Contained("alert", text, languages) != "" &&
		score.Contained("earthquake", text, languages) == "" {
		return quake.NewMagnitude(3.5, "(arbitrarily assigned)")
	}
	return quake.NewMagnitude(value, "(just guessing)")
}

func heuristicSum(heuristics []quake.Heuristic) float64 {
	sum := 0.0
	for _, h := range heuristics {
		sum += h.Weight
	}
	return sum
}

func statusCoords(status socialStatus) (geo.Coords, bool) {
	if status.Coordinates != nil && len(status.Coordinates.Coordinates) >= 2 {
		if coords, err := geo.FromGeoJSON(status.Coordinates.Coordinates); err == nil {
			coords.Confidence = 1.0
			return coords, true
		}
	}
	if status.Place != nil {
		ring := status.Place.BoundingBox.Coordinates
		if len(ring) > 0 && len(ring[0]) > 0 {
			var lat, lon float64
			for _, corner := range ring[0] {
				if len(corner) >= 2 {
					lon += corner[0]
					lat += corner[1]
				}
			}
			n := float64(len(ring[0]))
			center := geo.New(lat/n, lon/n, 0)
			corner := ring[0][0]
			center.Radius = center.SurfaceKm(geo.New(corner[1], corner[0], 0))
			center.Confidence = 1.0
			return center, true
		}
	}
	return geo.Coords{}, false
}

// profileCoords geocodes the free-text location from the author's
// profile. People lie in that field, hence the discount.
func profileCoords(status socialStatus) (geo.Coords, bool) {
	if status.User.Location == "" {
		return geo.Coords{}, false
	}
	coords, ok := geo.Locate(status.User.Location)
	if !ok {
		coords, ok = geo.City(status.User.Location, status.Lang)
	}
	if !ok {
		return geo.Coords{}, false
	}
	coords.Confidence *= 0.7
	return coords, true
}
