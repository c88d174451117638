package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/goleak"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/parse"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/travel"
)

func TestAccepts_ProbeOrder(t *testing.T) {
	cases := []struct {
		resource string
		kind     string
		ok       bool
	}{
		{"fdsn://service.iris.edu", "fdsn", true},
		{"ws://alerts.example.org/stream", "websocket", true},
		{"wss://alerts.example.org/stream", "websocket", true},
		{"post://longpoll.example.org/api", "post", true},
		{"social://stream.example.org/filter", "social", true},
		{"https://earthquake.usgs.gov/all_hour.geojson", "http", true},
		{"http://plain.example.org/feed", "http", true},
		{"ftp://no.such.scheme/feed", "", false},
	}
	for _, tc := range cases {
		kind, ok := Accepts(tc.resource)
		if kind != tc.kind || ok != tc.ok {
			t.Errorf("Accepts(%q) = %q, %v; want %q, %v",
				tc.resource, kind, ok, tc.kind, tc.ok)
		}
	}
}

func TestProvider_StripsSchemeAndPath(t *testing.T) {
	cases := map[string]string{
		"https://earthquake.usgs.gov/feed.geojson": "earthquake.usgs.gov",
		"wss://alerts.example.org/stream?lang=en":  "alerts.example.org",
		"fdsn://service.iris.edu":                  "service.iris.edu",
	}
	for resource, want := range cases {
		if got := provider(resource); got != want {
			t.Errorf("provider(%q) = %q, want %q", resource, got, want)
		}
	}
}

func TestRateLimited_Codes(t *testing.T) {
	for _, code := range []int{420, 429, 406, 88} {
		if !rateLimited(code) {
			t.Errorf("code %d should count as rate limiting", code)
		}
	}
	for _, code := range []int{200, 404, 500} {
		if rateLimited(code) {
			t.Errorf("code %d should not count as rate limiting", code)
		}
	}
}

func feedPayload(t *testing.T, mag float64) string {
	t.Helper()
	stamp := time.Now().UTC().Add(-time.Minute).UnixMilli()
	updated := time.Now().UTC().UnixMilli()
	return fmt.Sprintf(`{"type":"FeatureCollection","features":[
		{"geometry":{"coordinates":[142.0,38.3,25.0]},
		 "properties":{"mag":%.1f,"magType":"mww","time":%d,"updated":%d,
			"url":"https://example.org/ev1","sources":",us,","quality":"reviewed"}}]}`,
		mag, stamp, updated)
}

func testEnv() Env {
	return Env{Dispatcher: parse.NewDispatcher(parse.GeoJSON{})}
}

func TestPoller_EmitsAndSkipsUnchanged(t *testing.T) {
	payload := feedPayload(t, 6.1)
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	p := NewPoller(srv.URL+"/feed.geojson", testEnv())
	out := make(chan Item, 8)
	ctx := context.Background()

	p.cycle(ctx, out)
	if len(out) != 1 {
		t.Fatalf("first cycle emitted %d items, want 1", len(out))
	}
	item := <-out
	if item.Report.Mag.Value != 6.1 {
		t.Errorf("wrong magnitude: %v", item.Report.Mag)
	}
	if item.Provider == "" {
		t.Error("provider should name the host")
	}

	p.cycle(ctx, out)
	if len(out) != 0 {
		t.Errorf("unchanged body re-emitted %d items", len(out))
	}
	if hits != 2 {
		t.Errorf("expected 2 fetches, got %d", hits)
	}
}

func TestPoller_CoolsOffOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewPoller(srv.URL, testEnv())
	p.period = minPeriod
	p.cycle(context.Background(), make(chan Item, 1))

	if p.period != coolOffPeriod {
		t.Errorf("period = %v after an error, want the cool-off %v", p.period, coolOffPeriod)
	}
}

func TestPoller_LimitShrinksUnderSlowdown(t *testing.T) {
	env := testEnv()
	env.Slowdown = fusion.NewSlowdown()

	p := NewPoller("https://feed.example.org", env)
	if got := p.limit(); got != 12 {
		t.Errorf("relaxed limit = %d, want 12", got)
	}

	env.Slowdown.Scale(100)
	if got := p.limit(); got != 3 {
		t.Errorf("overloaded limit = %d, want the floor of 3", got)
	}
}

func lateReport(t *testing.T, skew time.Duration) quake.Report {
	t.Helper()
	origin := time.Now().UTC().Add(-time.Hour)
	r := quake.New(geo.New(38.3, 142.0, 25), origin, quake.NewMagnitude(5.0, "mww"))
	r.Update = origin.Add(skew)
	return r
}

func TestPoller_AdaptTracksFeedLatency(t *testing.T) {
	p := NewPoller("https://feed.example.org", testEnv())

	// A feed updating well inside the period pulls the period hard
	// toward a third of its latency: 0.3*300 + 0.7*clip(60/3) = 125.
	p.period = initialPeriod
	p.adapt([]quake.Report{lateReport(t, time.Minute)})
	if p.period < 124 || p.period > 126 {
		t.Errorf("fast feed period = %v, want about 125", p.period)
	}

	// A feed slower than the period only nudges it:
	// 0.95*100 + 0.05*clip(1200/3) = 115.
	p.period = 100
	p.adapt([]quake.Report{lateReport(t, 20*time.Minute)})
	if p.period < 114 || p.period > 116 {
		t.Errorf("slow feed period = %v, want about 115", p.period)
	}

	// Reports without forward skew leave the period alone.
	p.period = 200
	p.adapt([]quake.Report{lateReport(t, -time.Minute)})
	if p.period != 200 {
		t.Errorf("skewless adapt moved the period to %v", p.period)
	}
}

func TestPoller_CapHalvesOnOverrunningCycle(t *testing.T) {
	var fetches int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		fmt.Fprint(w, feedPayload(t, 5.0+float64(fetches)))
	}))
	defer srv.Close()

	p := NewPoller(srv.URL+"/feed.geojson", testEnv())
	p.period = 0 // any parse at all now counts as an overrun
	out := make(chan Item, 64)
	ctx := context.Background()

	p.cycle(ctx, out)
	if p.cap != 6 {
		t.Fatalf("cap = %v after one overrun, want 6", p.cap)
	}
	if got := p.limit(); got != 6 {
		t.Errorf("limit = %d, want the shrunken cap of 6", got)
	}

	p.cycle(ctx, out)
	p.cycle(ctx, out)
	if p.cap != 3 {
		t.Errorf("cap = %v, want the floor of 3", p.cap)
	}
}

func TestFDSN_QuerySlidesWindow(t *testing.T) {
	f, err := NewFDSN("fdsn://service.example.org", testEnv())
	if err != nil {
		t.Fatalf("NewFDSN failed: %v", err)
	}

	q := f.query()
	for _, want := range []string{
		"https://service.example.org/fdsnws/event/1/query?",
		"format=xml",
		"minmagnitude=3.0",
		"starttime=",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query %q is missing %q", q, want)
		}
	}
}

func TestStations_LookupAndMemo(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprintln(w, "#Network|Station|Latitude|Longitude|Elevation|SiteName|StartTime|EndTime")
		fmt.Fprintln(w, "NZ|WEL|-41.2840|174.7682|138.0|Wellington|1962-01-01T00:00:00|")
	}))
	defer srv.Close()

	s := &Stations{base: srv.URL, client: srv.Client(), memo: gocache.New(time.Hour, time.Hour)}

	coords, ok := s.Station("NZ", "WEL")
	if !ok {
		t.Fatal("lookup should resolve the station")
	}
	if coords.Lat != -41.2840 || coords.Lon != 174.7682 {
		t.Errorf("wrong position: %s", coords)
	}

	if _, ok := s.Station("NZ", "WEL"); !ok {
		t.Fatal("memoized lookup should still resolve")
	}
	if hits != 1 {
		t.Errorf("station service hit %d times, want 1", hits)
	}
}

type memorySeen struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memorySeen) Admit(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func TestManager_TurnsFeedsIntoNotices(t *testing.T) {
	// The caches on this path keep janitor goroutines for their whole
	// lifetime; everything else must be gone once Stop returns.
	defer goleak.VerifyNone(t,
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedPayload(t, 6.1))
	}))
	defer srv.Close()

	env := testEnv()
	env.Client = srv.Client()

	correlator := fusion.NewCorrelator(&memorySeen{keys: map[string]bool{}}, travel.NewModel())
	m := NewManager(env, correlator, nil, nil)
	if err := m.Add(srv.URL + "/feed.geojson"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add("ftp://bad.example.org"); err == nil {
		t.Error("an unclaimed scheme should be refused")
	}

	m.Start(context.Background())
	defer m.Stop()

	select {
	case n := <-m.Notices():
		if n.Mag.Value != 6.1 {
			t.Errorf("notice magnitude = %v, want 6.1", n.Mag.Value)
		}
		if n.Provider == "" {
			t.Error("notice should carry the feed host as provider")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no notice arrived within 5s")
	}
}
