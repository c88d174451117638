package subscribe

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/notice"
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

func swarmEvent(t *testing.T, reports int) *fusion.Event {
	t.Helper()
	began := time.Now().Add(-30 * time.Second)

	crowd := func(i int) quake.Report {
		report := quake.New(geo.New(-33.4+float64(i)*0.01, -70.7, -10), began, quake.NewMagnitude(5.0, "(just guessing)"))
		report.Update = began.Add(5 * time.Second)
		report.Status = quake.StatusGuessed
		report.Score = 0.3
		report.Text = "everything is shaking"
		report.Keywords = []string{"earthquake"}
		report.User = fmt.Sprintf("witness-%d", i)
		return report
	}

	event, err := fusion.NewEvent(crowd(0), travel.NewModel())
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	for i := 1; i < reports; i++ {
		event.Absorb(crowd(i))
	}
	return event
}

func mustDomain(t *testing.T, cfg DomainConfig, registry *Registry) *Domain {
	t.Helper()
	d, err := NewDomain(cfg, registry)
	if err != nil {
		t.Fatalf("NewDomain failed: %v", err)
	}
	return d
}

func TestThreshold_MinimumStartsAtInitial(t *testing.T) {
	threshold := NewThreshold(0.05, 0.5)
	if got := threshold.Minimum(); got < 0.05-1e-9 || got > 0.05+1e-9 {
		t.Errorf("Minimum() = %v, want 0.05 before any observations", got)
	}
}

func TestThreshold_UpdateRaisesMinimum(t *testing.T) {
	threshold := NewThreshold(0.05, 0.5)
	for i := 0; i < 50; i++ {
		threshold.Update(1.0, true)
	}

	got := threshold.Minimum()
	if got <= 0.05 {
		t.Errorf("Minimum() = %v, want above the initial floor after strong observations", got)
	}
	if got > 1.5 {
		t.Errorf("Minimum() = %v, smoothing should keep the floor near the observed values", got)
	}
	if threshold.Average() <= 0.05 {
		t.Errorf("Average() = %v, want above initial", threshold.Average())
	}
}

func TestThreshold_OffsetUpdate(t *testing.T) {
	threshold := NewThreshold(0.5, 0.5)
	threshold.Update(-0.1, false)
	if got := threshold.Average(); got >= 0.5 {
		t.Errorf("Average() = %v, want lowered by the negative offset", got)
	}
}

func TestThreshold_RestoreRoundTrip(t *testing.T) {
	threshold := NewThreshold(0.05, 0.7)
	threshold.Update(0.4, true)

	averages, variances, sigmas := threshold.State()
	restored := RestoreThreshold(averages, variances, sigmas)
	if got, want := restored.Minimum(), threshold.Minimum(); got != want {
		t.Errorf("restored Minimum() = %v, want %v", got, want)
	}
}

type fakeThresholdStore struct {
	mu    sync.Mutex
	saved map[string]ThresholdState
}

func (s *fakeThresholdStore) Thresholds() (map[string]ThresholdState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ThresholdState, len(s.saved))
	for k, v := range s.saved {
		out[k] = v
	}
	return out, nil
}

func (s *fakeThresholdStore) SaveThreshold(key string, state ThresholdState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = map[string]ThresholdState{}
	}
	s.saved[key] = state
	return nil
}

func TestRegistry_ObtainDeduplicates(t *testing.T) {
	registry := NewRegistry(nil)
	first := registry.Obtain("region=Chile", NewThreshold(0.05, 0.5))
	second := registry.Obtain("region=Chile", NewThreshold(0.9, 0.5))
	if first != second {
		t.Error("Obtain should return the registered threshold for a known key")
	}
}

func TestRegistry_PersistAndReload(t *testing.T) {
	store := &fakeThresholdStore{}

	registry := NewRegistry(store)
	threshold := registry.Obtain("name=home", NewThreshold(0.05, 0.5))
	threshold.Update(0.8, true)
	registry.Persist("name=home")

	reloaded := NewRegistry(store)
	restored := reloaded.Obtain("name=home", NewThreshold(0.05, 0.5))
	if got, want := restored.Minimum(), threshold.Minimum(); got != want {
		t.Errorf("reloaded Minimum() = %v, want %v", got, want)
	}
}

func TestDomain_Defaults(t *testing.T) {
	d := mustDomain(t, DomainConfig{}, nil)
	if d.Mag.Value != 3.0 {
		t.Errorf("default magnitude floor = %v, want 3.0", d.Mag.Value)
	}
	if d.Score != 0.09 {
		t.Errorf("default score floor = %v, want 0.09", d.Score)
	}
	if len(d.Categories) != 1 || d.Categories[0] != "earthquake" {
		t.Errorf("default categories = %v, want [earthquake]", d.Categories)
	}
	if !d.Updates {
		t.Error("updates should be delivered by default")
	}
}

func TestDomain_SignificanceRules(t *testing.T) {
	n := notice.New(officialEvent(t, 8*time.Minute, 5.5), "feed")

	chileBox := [2]geo.Coords{geo.New(-40, -75, 0), geo.New(-30, -65, 0)}
	japanBox := [2]geo.Coords{geo.New(30, 130, 0), geo.New(45, 145, 0)}
	near := geo.New(-33.3, -70.6, 0)
	near.Radius = 100
	far := geo.New(35.6, 139.7, 0)

	cases := []struct {
		name string
		cfg  DomainConfig
		want string
	}{
		{"default floors", DomainConfig{}, "magnitude"},
		{"magnitude floor rejects", DomainConfig{Mag: 6.0}, ""},
		{"region match", DomainConfig{Region: "chile"}, "region"},
		{"region mismatch", DomainConfig{Region: "japan"}, ""},
		{"box containment", DomainConfig{Box: &chileBox}, "epicenter"},
		{"box elsewhere", DomainConfig{Box: &japanBox}, ""},
		{"target nearby", DomainConfig{Target: &near}, "felt"},
		{"target far", DomainConfig{Target: &far}, ""},
		{"empty never matches", DomainConfig{Empty: true}, ""},
		{"wrong category", DomainConfig{Categories: []string{"alert"}}, ""},
		{"warning needs early", DomainConfig{WarningOnly: true}, ""},
	}
	for _, c := range cases {
		d := mustDomain(t, c.cfg, nil)
		if got := d.Significance(n); got != c.want {
			t.Errorf("%s: Significance() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestDomain_WarningOnlyAcceptsEarly(t *testing.T) {
	n := notice.New(officialEvent(t, 5*time.Second, 5.5), "feed")
	d := mustDomain(t, DomainConfig{WarningOnly: true}, nil)
	if got := d.Significance(n); got != "warning" {
		t.Errorf("Significance() = %q, want warning for an early notice", got)
	}
}

func TestDomain_ThresholdGatesCrowdWarnings(t *testing.T) {
	n := notice.New(swarmEvent(t, 5), "crowd")
	if len(n.Warners()) < 3 {
		t.Fatalf("want at least 3 warners, got %d", len(n.Warners()))
	}
	if !n.Early() {
		t.Fatal("a seconds-old swarm should still be early")
	}

	lenient := mustDomain(t, DomainConfig{Threshold: NewThreshold(0.01, 0.5)}, NewRegistry(nil))
	if got := lenient.Significance(n); got == "" {
		t.Error("a low threshold should admit the swarm")
	}

	strict := mustDomain(t, DomainConfig{Threshold: NewThreshold(10, 0.5)}, NewRegistry(nil))
	if got := strict.Significance(n); got != "" {
		t.Errorf("Significance() = %q, want rejection under a high threshold", got)
	}
}

func TestDomain_RelevanceNewAndUpdate(t *testing.T) {
	d := mustDomain(t, DomainConfig{}, nil)

	first := notice.New(officialEvent(t, 8*time.Minute, 5.0), "feed")
	if got := d.Relevance(first); got != "significance" {
		t.Fatalf("Relevance() = %q, want significance for a fresh event", got)
	}
	d.Remember(first)

	stronger := notice.New(officialEvent(t, 8*time.Minute, 6.5), "feed")
	if got := d.Relevance(stronger); got != "stronger" {
		t.Errorf("Relevance() = %q, want stronger for a magnitude revision", got)
	}
	if stronger.Tag != first.Tag {
		t.Errorf("update should restore the delivered tag, got %q want %q", stronger.Tag, first.Tag)
	}
}

func TestDomain_NoUpdatesSuppressesRevisions(t *testing.T) {
	d := mustDomain(t, DomainConfig{NoUpdates: true}, nil)

	first := notice.New(officialEvent(t, 8*time.Minute, 5.0), "feed")
	d.Remember(first)

	stronger := notice.New(officialEvent(t, 8*time.Minute, 6.5), "feed")
	if got := d.Relevance(stronger); got != "" {
		t.Errorf("Relevance() = %q, want suppression when updates are off", got)
	}
}

func TestDomain_ConfirmationAdaptsThreshold(t *testing.T) {
	registry := NewRegistry(nil)
	d := mustDomain(t, DomainConfig{Threshold: NewThreshold(0.05, 0.5)}, registry)

	crowd := notice.New(swarmEvent(t, 5), "crowd")
	d.Remember(crowd)
	before := d.Threshold.Minimum()

	confirmation := notice.New(officialEvent(t, 60*time.Second, 5.0), "feed")
	if got := d.Relevance(confirmation); got != "official" {
		t.Errorf("Relevance() = %q, want official for an agency confirmation", got)
	}
	if after := d.Threshold.Minimum(); after == before {
		t.Error("a confirmed crowd warning should feed the seasonal threshold")
	}
}

func TestDomain_RememberDisplacesEqualNotices(t *testing.T) {
	d := mustDomain(t, DomainConfig{}, nil)
	event := officialEvent(t, 8*time.Minute, 5.0)

	d.Remember(notice.New(event, "feed"))
	d.Remember(notice.New(event, "feed"))
	if got := len(d.History()); got != 1 {
		t.Errorf("history length = %d, want 1 after re-remembering the same event", got)
	}
}

func TestMessages_DetailsForOfficialNotice(t *testing.T) {
	n := notice.New(officialEvent(t, 8*time.Minute, 5.5), "feed")
	d := mustDomain(t, DomainConfig{}, nil)

	stream := Messages(n, d, "long", []string{"en"})
	line, ok := stream.Next()
	if !ok {
		t.Fatal("want at least one message line for a relevant official notice")
	}
	if !strings.Contains(line, "(feed)") {
		t.Errorf("line %q should carry the provider suffix", line)
	}
	if !strings.Contains(line, "#") {
		t.Errorf("line %q should carry a keyword shout", line)
	}
	if _, ok := stream.Next(); ok {
		t.Error("a non-early broad-domain notice should render a single details line")
	}
}

func TestMessages_IrrelevantDomainYieldsNothing(t *testing.T) {
	n := notice.New(officialEvent(t, 8*time.Minute, 5.5), "feed")
	d := mustDomain(t, DomainConfig{Mag: 9.0}, nil)

	if line, ok := Messages(n, d, "long", nil).Next(); ok {
		t.Errorf("want empty stream, got %q", line)
	}
}

func TestMessages_TargetedEarlyWarning(t *testing.T) {
	n := notice.New(officialEvent(t, 5*time.Second, 5.5), "feed")
	if !n.Early() {
		t.Fatal("a seconds-old event should be early")
	}

	target := geo.New(-33.3, -70.6, 0)
	d := mustDomain(t, DomainConfig{Target: &target}, nil)

	var lines []string
	stream := Messages(n, d, "long", []string{"en"})
	for {
		line, ok := stream.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		t.Fatal("want warning lines for a targeted early notice")
	}
	if !strings.Contains(lines[0], "EARTHQUAKE WARNING") {
		t.Errorf("first line %q should be the minimal shout", lines[0])
	}
	if !strings.HasPrefix(lines[0], "❗") {
		t.Errorf("early lines should carry the urgency prefix, got %q", lines[0])
	}

	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "tremors possible") {
		t.Errorf("want an arrival countdown in %q", joined)
	}
	if !strings.Contains(joined, "Cover your head") {
		t.Errorf("want safety guidance in %q", joined)
	}
}

type sent struct {
	title, body, tag string
	urgent           bool
}

type fakeSink struct {
	name  string
	style string

	mu    sync.Mutex
	sends []sent
}

func (s *fakeSink) Send(title, body string, coords geo.Coords, tag string, pings []string, urgent bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, sent{title: title, body: body, tag: tag, urgent: urgent})
	return fmt.Sprintf("thread-%d", len(s.sends)), nil
}

func (s *fakeSink) Redact(thread, tag string) error { return nil }
func (s *fakeSink) Style() string                   { return s.style }
func (s *fakeSink) Throttle() time.Duration         { return 0 }
func (s *fakeSink) Name() string                    { return s.name }

func (s *fakeSink) delivered() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sent, len(s.sends))
	copy(out, s.sends)
	return out
}

func TestMonitor_DispatchesToMatchingSinksOnly(t *testing.T) {
	monitor := NewMonitor(fusion.NewSlowdown())

	matching := &fakeSink{name: "broad", style: "long"}
	monitor.Notify(matching, []string{"en"}, mustDomain(t, DomainConfig{}, nil))

	strict := &fakeSink{name: "strict", style: "long"}
	monitor.Notify(strict, []string{"en"}, mustDomain(t, DomainConfig{Mag: 9.0}, nil))

	n := notice.New(officialEvent(t, 8*time.Minute, 5.5), "feed")
	if err := monitor.Process(n); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := matching.delivered(); len(got) == 0 {
		t.Error("matching sink should receive the notice")
	} else {
		if got[0].title == "" {
			t.Error("deliveries should carry the notice title")
		}
		if got[0].tag != n.Tag {
			t.Errorf("delivery tag = %q, want %q", got[0].tag, n.Tag)
		}
		if got[0].urgent {
			t.Error("a non-early notice should not be urgent")
		}
	}
	if got := strict.delivered(); len(got) != 0 {
		t.Errorf("strict sink should receive nothing, got %d messages", len(got))
	}

	stats := monitor.Stats()
	if stats["feed"] != 1 {
		t.Errorf("stats[feed] = %d, want 1", stats["feed"])
	}
	if stats["TEST"] != 1 {
		t.Errorf("stats[TEST] = %d, want 1", stats["TEST"])
	}
}

func TestMonitor_OneDomainClaimsEachSink(t *testing.T) {
	monitor := NewMonitor(fusion.NewSlowdown())

	sink := &fakeSink{name: "both", style: "long"}
	monitor.Notify(sink, []string{"en"},
		mustDomain(t, DomainConfig{}, nil),
		mustDomain(t, DomainConfig{Region: "chile"}, nil))

	n := notice.New(officialEvent(t, 8*time.Minute, 5.5), "feed")
	if err := monitor.Process(n); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := len(sink.delivered()); got != 1 {
		t.Errorf("sink received %d messages, want 1: only one domain may claim a sink", got)
	}
}

func TestMonitor_DuplicateNotifyIgnored(t *testing.T) {
	monitor := NewMonitor(fusion.NewSlowdown())

	sink := &fakeSink{name: "dupe", style: "long"}
	monitor.Notify(sink, []string{"en"}, mustDomain(t, DomainConfig{}, nil))
	monitor.Notify(sink, []string{"en"}, mustDomain(t, DomainConfig{}, nil))

	n := notice.New(officialEvent(t, 8*time.Minute, 5.5), "feed")
	if err := monitor.Process(n); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := len(sink.delivered()); got != 1 {
		t.Errorf("sink received %d messages, want 1 despite the duplicate registration", got)
	}
}

func TestMonitor_OverloadIsFatal(t *testing.T) {
	slowdown := fusion.NewSlowdown()
	slowdown.Scale(100)
	monitor := NewMonitor(slowdown)

	n := notice.New(officialEvent(t, 8*time.Minute, 5.5), "feed")
	err := monitor.Process(n)
	if !errors.Is(err, ErrOverloaded) {
		t.Errorf("Process() error = %v, want ErrOverloaded", err)
	}
}

func TestMonitor_StaleLowConfidenceDropped(t *testing.T) {
	slowdown := fusion.NewSlowdown()
	monitor := NewMonitor(slowdown)

	sink := &fakeSink{name: "late", style: "long"}
	monitor.Notify(sink, []string{"en"}, mustDomain(t, DomainConfig{Score: 0.01}, nil))

	n := notice.New(swarmEvent(t, 5), "crowd")
	n.Timestamp = time.Now().Add(-130 * time.Second)
	if err := monitor.Process(n); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := len(sink.delivered()); got != 0 {
		t.Errorf("a stale low-confidence notice should be dropped, got %d messages", got)
	}
	if slowdown.Factor() <= 1.0 {
		t.Error("a delayed notice should raise the slowdown factor")
	}
}
