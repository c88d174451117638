package notice

import (
	"strings"
	"testing"
	"time"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/travel"
)

func officialEvent(t *testing.T, age time.Duration, mag float64) *fusion.Event {
	t.Helper()
	report := quake.New(geo.New(-33.4, -70.7, -30), time.Now().Add(-age), quake.NewMagnitude(mag, "Mw"))
	report.Update = time.Now()
	report.Sources = []string{"TEST"}
	event, err := fusion.NewEvent(report, travel.NewModel())
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	return event
}

func witnessEvent(t *testing.T, age time.Duration, keyword string) *fusion.Event {
	t.Helper()
	report := quake.New(geo.New(-33.4, -70.7, -10), time.Now().Add(-age), quake.NewMagnitude(5.0, "(just guessing)"))
	report.Update = time.Now().Add(-age).Add(30 * time.Second)
	report.Status = quake.StatusGuessed
	report.Score = 0.3
	report.Text = "something happened"
	report.Keywords = []string{keyword}
	report.User = "witness"
	event, err := fusion.NewEvent(report, travel.NewModel())
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	return event
}

func TestNotice_TimelyLadder(t *testing.T) {
	cases := []struct {
		name   string
		notice *Notice
		want   string
	}{
		{"fresh", New(officialEvent(t, time.Minute, 5.5), "feed"), "warning"},
		{"breaking", New(officialEvent(t, 8*time.Minute, 5.5), "feed"), "breaking"},
		{"preliminary", New(officialEvent(t, 12*time.Minute, 5.5), "feed"), "preliminary"},
		{"fresh window", New(officialEvent(t, 17*time.Minute, 5.5), "feed"), "fresh"},
		{"official", New(officialEvent(t, 40*time.Minute, 5.5), "feed"), "official"},
		{"expired", New(officialEvent(t, 3*time.Hour, 5.5), "feed"), ""},
	}
	for _, c := range cases {
		if got := c.notice.Timely(); got != c.want {
			t.Errorf("%s: Timely() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestNotice_TimelyVictims(t *testing.T) {
	event := officialEvent(t, 10*time.Hour, 6.8)
	event.Victims = 1000
	n := New(event, "feed")
	if got := n.Timely(); got != "victims" {
		t.Errorf("Timely() = %q, want victims", got)
	}
}

func TestNotice_EarlyExpires(t *testing.T) {
	fresh := New(officialEvent(t, 5*time.Second, 5.0), "feed")
	if !fresh.Early() {
		t.Error("a seconds-old event should still be early")
	}

	late := New(officialEvent(t, 150*time.Second, 5.0), "feed")
	if late.Timely() != "warning" {
		t.Fatalf("Timely() = %q, want warning", late.Timely())
	}
	if late.Early() {
		t.Error("shear waves have long arrived, event must not be early")
	}
}

func TestNotice_CategoryFromKeywords(t *testing.T) {
	n := New(witnessEvent(t, time.Minute, "sirena"), "social")
	if got := n.Category(); got != "alert" {
		t.Errorf("Category() = %q, want alert", got)
	}

	quakeNotice := New(witnessEvent(t, time.Minute, "terremoto"), "social")
	if got := quakeNotice.Category(); got != "earthquake" {
		t.Errorf("Category() = %q, want earthquake", got)
	}

	official := New(officialEvent(t, time.Minute, 5.5), "feed")
	if got := official.Category(); got != "earthquake" {
		t.Errorf("official Category() = %q, want earthquake", got)
	}
}

func TestNotice_Estimate(t *testing.T) {
	early := New(witnessEvent(t, time.Minute, "terremoto"), "social")
	if got := early.Estimate(); !strings.HasPrefix(got, "Maybe") {
		t.Errorf("guessed-status estimate = %q, want a strength guess", got)
	}

	exact := New(officialEvent(t, time.Minute, 6.1), "feed")
	if got := exact.Estimate(); !strings.Contains(got, "6.1") {
		t.Errorf("reviewed estimate = %q, want the exact value", got)
	}
}

func TestNotice_SupersedesOfficialOverCrowd(t *testing.T) {
	crowd := New(witnessEvent(t, 4*time.Minute, "terremoto"), "social")
	confirmed := New(officialEvent(t, 4*time.Minute, 5.2), "feed")

	if got := confirmed.Supersedes(crowd, DefaultThrottle); got != "official" {
		t.Errorf("Supersedes() = %q, want official", got)
	}
	if got := crowd.Supersedes(confirmed, DefaultThrottle); got != "" {
		t.Errorf("reverse Supersedes() = %q, want none", got)
	}
}

func TestNotice_SupersedesStrongerAndThrottle(t *testing.T) {
	base := New(officialEvent(t, 5*time.Minute, 5.0), "feed")
	stronger := New(officialEvent(t, 5*time.Minute, 6.5), "feed")

	if got := stronger.Supersedes(base, DefaultThrottle); got != "stronger" {
		t.Errorf("Supersedes() = %q, want stronger", got)
	}

	// Weakening is a routine update: inside the throttle window it stays
	// quiet, outside it goes through.
	weaker := New(officialEvent(t, 5*time.Minute, 5.0), "feed")
	if got := weaker.Supersedes(stronger, DefaultThrottle); got != "" {
		t.Errorf("throttled Supersedes() = %q, want none", got)
	}
	if got := weaker.Supersedes(stronger, 0); got != "weaker" {
		t.Errorf("unthrottled Supersedes() = %q, want weaker", got)
	}
}

func TestNotice_SupersedesUnrelatedEvents(t *testing.T) {
	chile := New(officialEvent(t, 4*time.Minute, 5.5), "feed")

	report := quake.New(geo.New(38.2, 140.8, -30), time.Now().Add(-4*time.Minute), quake.NewMagnitude(5.5, "Mw"))
	report.Update = time.Now()
	event, err := fusion.NewEvent(report, travel.NewModel())
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	japan := New(event, "feed")

	if got := japan.Supersedes(chile, 0); got != "" {
		t.Errorf("events half a world apart must not supersede, got %q", got)
	}
}

func TestNotice_Significance(t *testing.T) {
	big := New(officialEvent(t, time.Minute, 7.4), "feed")
	if got := big.Significance(); got != "magnitude" {
		t.Errorf("Significance() = %q, want magnitude", got)
	}

	victims := New(officialEvent(t, time.Minute, 5.0), "feed")
	victims.Event.Victims = 12
	if got := victims.Significance(); got != "victims" {
		t.Errorf("Significance() = %q, want victims", got)
	}

	plain := New(officialEvent(t, time.Minute, 4.8), "feed")
	if got := plain.Significance(); got != "" {
		t.Errorf("Significance() = %q, want none", got)
	}
}

func TestNotice_TitleAndDetails(t *testing.T) {
	n := New(officialEvent(t, 5*time.Minute, 6.1), "feed")

	title := n.Title()
	for _, want := range []string{"Chile", "from feed"} {
		if !strings.Contains(title, want) {
			t.Errorf("Title() = %q, missing %q", title, want)
		}
	}

	long := n.Details("long")
	if !strings.Contains(long, "occurred") {
		t.Errorf("long details = %q, missing the time clause", long)
	}
	if !strings.Contains(long, "registered by") {
		t.Errorf("long details = %q, missing the agency clause", long)
	}

	short := n.Details("short")
	if strings.Contains(short, "registered by") {
		t.Errorf("short details = %q, should omit the agency clause", short)
	}
}

func TestNotice_Languages(t *testing.T) {
	n := New(officialEvent(t, time.Minute, 5.5), "feed")
	languages := n.Languages()
	if len(languages) == 0 || languages[len(languages)-1] != "en" {
		t.Errorf("Languages() = %v, want english last", languages)
	}
}
