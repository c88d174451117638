// Package quake defines the canonical report type produced by every
// parser and the value types it is built from: magnitude, intensity,
// review status and alert severity.
package quake

import "strings"

// Status is a confidence tier derived from a free-text review label.
// Tiers are totally ordered by Confidence.
type Status struct {
	Label      string
	Confidence float64
}

// statusTable maps the labels different agencies use onto a common
// ladder. The first synonym in each row is the canonical label.
var statusTable = []struct {
	synonyms   []string
	confidence float64
}{
	{[]string{"rejected", "deleted", "invalid"}, 0.0},
	{[]string{"guessed", "presumed", "crowdsourced"}, 0.1},
	{[]string{"incomplete", "partial", "caution", "1"}, 0.4},
	{[]string{"detection", "a", "automatic", "auto", "detected", "detectado", "good", "stima provvisoria", "flash", "2"}, 0.6},
	{[]string{"preliminary", "prelim", "prelim.", "preliminar", "provisional", "reported", "best", "create", "3", "速報"}, 0.7},
	{[]string{"confirmed", "c", "update", "updated", "detailed", "終", "4"}, 0.9},
	{[]string{"manual", "m", "reviewed", "rev.", "dati rivisti", "5"}, 0.95},
	{[]string{"revised", "revisión", "revisado", "final"}, 1.0},
}

// ParseStatus resolves a label to its tier. Unknown labels get a
// benefit-of-the-doubt tier just below fully revised.
func ParseStatus(label string) Status {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, row := range statusTable {
		for _, synonym := range row.synonyms {
			if label == synonym {
				return Status{Label: row.synonyms[0], Confidence: row.confidence}
			}
		}
	}
	return Status{Label: "unknown", Confidence: 0.8}
}

// Convenience tiers used in gate comparisons all over the pipeline.
var (
	StatusRejected    = ParseStatus("rejected")
	StatusGuessed     = ParseStatus("guessed")
	StatusIncomplete  = ParseStatus("incomplete")
	StatusDetection   = ParseStatus("detection")
	StatusPreliminary = ParseStatus("preliminary")
	StatusConfirmed   = ParseStatus("confirmed")
	StatusManual      = ParseStatus("manual")
	StatusRevised     = ParseStatus("revised")
)

// AtLeast reports whether s sits on the same tier as other or above it.
func (s Status) AtLeast(other Status) bool { return s.Confidence >= other.Confidence }

// Above reports whether s sits strictly above other.
func (s Status) Above(other Status) bool { return s.Confidence > other.Confidence }

func (s Status) String() string { return s.Label }
