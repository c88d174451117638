package parse

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// P2PQuake handles the Japanese P2P earthquake relay. The REST API
// returns an array and quotes its numbers; the streaming API returns a
// single object with real numbers. flexFloat absorbs the difference.
type P2PQuake struct{}

func (P2PQuake) Type() string  { return "P2PQuake" }
func (P2PQuake) Priority() int { return 6 }

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimRight(strings.TrimLeft(s, "NSEW"), "NSEWkm")
	if strings.Contains(s, "ごく浅い") {
		s = "10"
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		// Fields like depth are sometimes descriptive text only.
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type p2pMessage struct {
	Time       string `json:"time"`
	Code       int    `json:"code"`
	Earthquake *struct {
		Time       string `json:"time"`
		Hypocenter *struct {
			Latitude  flexFloat `json:"latitude"`
			Longitude flexFloat `json:"longitude"`
			Depth     flexFloat `json:"depth"`
			Magnitude flexFloat `json:"magnitude"`
		} `json:"hypocenter"`
	} `json:"earthquake"`
	Issue struct {
		Source string `json:"source"`
	} `json:"issue"`
}

const p2pTimeLayout = "2006/01/02 15:04:05"

func (p P2PQuake) Parse(data []byte) ([]quake.Report, error) {
	var messages []p2pMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		var single p2pMessage
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, Rejection("not a P2PQuake payload")
		}
		messages = []p2pMessage{single}
	}
	if len(messages) == 0 || messages[0].Time == "" || messages[0].Code == 0 {
		return nil, Rejection("not a P2PQuake payload")
	}

	tokyo := location("Asia/Tokyo")

	var reports []quake.Report
	for _, msg := range messages {
		if msg.Earthquake == nil || msg.Earthquake.Hypocenter == nil {
			// Peer counts, tsunami notices and other non-quake codes.
			continue
		}
		h := msg.Earthquake.Hypocenter
		depth := float64(h.Depth)
		if depth == 0 {
			depth = 10
		}

		report := quake.New(
			geo.New(float64(h.Latitude), float64(h.Longitude), -depth),
			parseTokyoTime(msg.Earthquake.Time, tokyo),
			quake.NewMagnitude(float64(h.Magnitude), ""),
		)
		if update, ok := ParseWhen(msg.Time, tokyo); ok {
			report.Update = update
		}
		if msg.Issue.Source != "" {
			report.Sources = []string{msg.Issue.Source}
		}
		if report.Valid() {
			reports = append(reports, report)
		}
	}
	return reports, nil
}

func parseTokyoTime(s string, tokyo *time.Location) time.Time {
	if t, err := time.ParseInLocation(p2pTimeLayout, s, tokyo); err == nil {
		return t.UTC()
	}
	if t, ok := ParseWhen(s, tokyo); ok {
		return t
	}
	return time.Time{}
}
