package notice

import (
	"math"
	"time"

	"github.com/quakewatch/quakewatch/internal/quake"
)

// DefaultThrottle is the minimum spacing between routine supersedes of
// the same delivery. Urgent reasons (tsunami, official, alert upgrade,
// stronger, worse) bypass it.
const DefaultThrottle = 120 * time.Second

// Supersedes decides whether this notice should replace an earlier
// delivery of the same occurrence, and names the reason. "" means no:
// either the pair is not comparable or nothing changed enough to be
// worth another message.
func (n *Notice) Supersedes(other *Notice, throttle time.Duration) string {
	if other == nil {
		return ""
	}
	if n.Early() && !n.Official() {
		return ""
	}
	if n.Confidence() < other.Confidence() && !n.Status.Above(other.Status) {
		return ""
	}
	if !quake.Equivalent(n.Fused(), other.Fused(), nil) {
		return ""
	}

	confidence := math.Max(
		quake.Clip(n.Confidence(), 0.01, 1.0),
		quake.Clip(other.Confidence(), 0.01, 1.0))

	if n.Status.Above(quake.StatusIncomplete) && n.Tsunami() != "" && other.Tsunami() == "" {
		return "tsunami"
	}
	if n.Official() && !other.Official() {
		return "official"
	}
	if n.Alert.Level > quake.SeverityGreen.Level && n.Alert.Level > other.Alert.Level {
		return n.Alert.Name
	}

	if n.Mag.Value-other.Mag.Value > quake.Clip(0.25/confidence, 0.15, 3.0) {
		return "stronger"
	}
	if !n.Intensity.IsZero() && !other.Intensity.IsZero() && n.Intensity.Value > other.Intensity.Value {
		return "worse"
	}

	if n.Timestamp.Sub(other.Timestamp) < throttle {
		return ""
	}

	if other.Early() && len(n.Witnesses()) > 0 && len(n.Warners()) > 0 &&
		len(n.Witnesses())-len(n.Warners()) == 10 {
		return "felt"
	}
	if other.Early() && n.Confidence() > 0.5 {
		return "detailed"
	}
	if other.Mag.Value-n.Mag.Value > quake.Clip(0.4/confidence, 0.3, 3.0) {
		return "weaker"
	}
	if n.Coords.Radius < other.Coords.Radius &&
		n.Coords.Separation(other.Coords) > quake.Clip(n.RadiusKm()+other.RadiusKm(), 20, 300) {
		return "epicenter"
	}
	if n.Alert.Level == quake.SeverityGreen.Level && n.Alert.Level < other.Alert.Level &&
		len(n.Sources) > len(other.Sources) {
		return n.Alert.Name
	}
	if !n.Intensity.IsZero() && other.Intensity.IsZero() {
		return "detailed"
	}
	return ""
}
