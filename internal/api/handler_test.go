package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/travel"
)

type memorySeen struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memorySeen) Admit(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func agencyReport(lat, lon, mag float64, origin time.Time) quake.Report {
	r := quake.New(geo.New(lat, lon, -25), origin, quake.NewMagnitude(mag, "Mw"))
	r.Update = time.Now()
	r.Sources = []string{"TEST"}
	r.Links = []string{"https://example.org/event"}
	return r
}

func testRouter(t *testing.T, h *Handler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func seededCorrelator(t *testing.T) *fusion.Correlator {
	t.Helper()
	c := fusion.NewCorrelator(&memorySeen{}, travel.NewModel())
	ctx := context.Background()

	origin := time.Now().Add(-2 * time.Minute)
	if _, err := c.Process(ctx, agencyReport(38.3, 142.0, 6.1, origin)); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if _, err := c.Process(ctx, agencyReport(-33.4, -70.7, 3.2, origin.Add(time.Second))); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return c
}

func TestGetEvents_GeoJSON(t *testing.T) {
	h := NewHandler(seededCorrelator(t), nil, nil, nil, nil, nil)
	router := testRouter(t, h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("content type = %q, want application/geo+json", ct)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("bad GeoJSON body: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %q", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(fc.Features))
	}

	props := fc.Features[0].Properties
	for _, key := range []string{"id", "magnitude", "region", "status", "confidence", "reports"} {
		if _, ok := props[key]; !ok {
			t.Errorf("feature is missing property %q", key)
		}
	}
	coords := fc.Features[0].Geometry.Coordinates
	if len(coords) != 3 {
		t.Fatalf("geometry should be lon/lat/alt, got %v", coords)
	}
}

func TestGetEvents_MagnitudeFilter(t *testing.T) {
	h := NewHandler(seededCorrelator(t), nil, nil, nil, nil, nil)
	router := testRouter(t, h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events?min_magnitude=5", nil)
	router.ServeHTTP(w, req)

	var fc FeatureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("bad GeoJSON body: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features after the magnitude filter, want 1", len(fc.Features))
	}
	if mag := fc.Features[0].Properties["magnitude"].(float64); mag < 5 {
		t.Errorf("filtered feature has magnitude %v", mag)
	}
}

func TestHealth(t *testing.T) {
	h := NewHandler(fusion.NewCorrelator(&memorySeen{}, travel.NewModel()), nil, nil, nil, nil, nil)
	router := testRouter(t, h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestSimulate_SwarmInjectsBurst(t *testing.T) {
	var mu sync.Mutex
	var injected []quake.Report
	inject := func(r quake.Report, provider string) bool {
		mu.Lock()
		defer mu.Unlock()
		injected = append(injected, r)
		return true
	}

	h := NewHandler(fusion.NewCorrelator(&memorySeen{}, travel.NewModel()), nil, nil, nil, nil, inject)
	router := testRouter(t, h)

	body := bytes.NewBufferString(`{"mode":"swarm","magnitude":6.0}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/debug/simulate", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(injected) != simulateSwarmSize+1 {
		t.Fatalf("injected %d reports, want %d", len(injected), simulateSwarmSize+1)
	}

	official := injected[len(injected)-1]
	if len(official.Sources) == 0 || official.Mag.Value != 6.0 {
		t.Errorf("last report should be the agency confirmation, got %+v", official)
	}
	crowd := injected[0]
	if crowd.Status.Above(quake.StatusGuessed) || crowd.User == "" {
		t.Errorf("swarm reports should look crowdsourced, got %+v", crowd)
	}
}

func TestSimulate_WithoutPipeline(t *testing.T) {
	h := NewHandler(fusion.NewCorrelator(&memorySeen{}, travel.NewModel()), nil, nil, nil, nil, nil)
	router := testRouter(t, h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/debug/simulate", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when nothing can inject", w.Code)
	}
}

func TestDebugEndpoints_EmptyWithoutDeps(t *testing.T) {
	h := NewHandler(fusion.NewCorrelator(&memorySeen{}, travel.NewModel()), nil, nil, nil, nil, nil)
	router := testRouter(t, h)

	for _, path := range []string{
		"/api/debug/thresholds",
		"/api/debug/heuristics",
		"/api/debug/tweeters",
		"/api/debug/commonwords",
		"/api/debug/stats",
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(1))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make(map[int]int)
	var retryAfter string
	for i := 0; i < 6; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes[w.Code]++
		if w.Code == http.StatusTooManyRequests {
			retryAfter = w.Header().Get("Retry-After")
		}
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Error("burst should trip the limiter")
	}
	if codes[http.StatusOK] == 0 {
		t.Error("the first request should pass")
	}
	if retryAfter == "" {
		t.Error("throttled responses should carry Retry-After")
	}

	// Health probes are never throttled, even with the bucket drained.
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("health probe %d throttled with %d", i, w.Code)
		}
	}
}
