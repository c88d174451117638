package quake

import (
	"strings"
	"time"
)

// Severity is an alert color on the PAGER-style ladder. The zero value
// means "no alert issued" and sorts below green.
type Severity struct {
	Level int
	Name  string
}

var severityLevels = map[string]int{
	"green":  1,
	"yellow": 2,
	"orange": 3,
	"red":    4,
}

var severityDurations = map[string]time.Duration{
	"green":  120 * time.Minute,
	"yellow": 180 * time.Minute,
	"orange": 240 * time.Minute,
	"red":    300 * time.Minute,
}

// ParseSeverity maps a color label to its level; unknown labels get
// level zero but keep the label for display.
func ParseSeverity(label string) Severity {
	name := strings.ToLower(strings.TrimSpace(label))
	return Severity{Level: severityLevels[name], Name: name}
}

var (
	SeverityNone   = Severity{}
	SeverityGreen  = ParseSeverity("green")
	SeverityYellow = ParseSeverity("yellow")
	SeverityOrange = ParseSeverity("orange")
	SeverityRed    = ParseSeverity("red")
)

// Duration is how long an alert of this color remains worth announcing.
func (s Severity) Duration() time.Duration {
	if d, ok := severityDurations[s.Name]; ok {
		return d
	}
	return 60 * time.Minute
}

// IsZero reports whether no alert was issued.
func (s Severity) IsZero() bool { return s.Level == 0 }

func (s Severity) String() string { return s.Name }
