package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/score"
	"github.com/quakewatch/quakewatch/internal/subscribe"
)

// Inject feeds a synthetic report into the live pipeline; the
// simulate endpoint uses it so test events flow through fusion and
// dispatch like real ones.
type Inject func(report quake.Report, provider string) bool

type Handler struct {
	correlator *fusion.Correlator
	registry   *subscribe.Registry
	learner    *score.Learner
	scorer     *score.Scorer
	monitor    *subscribe.Monitor
	inject     Inject
}

func NewHandler(correlator *fusion.Correlator, registry *subscribe.Registry,
	learner *score.Learner, scorer *score.Scorer, monitor *subscribe.Monitor,
	inject Inject) *Handler {
	return &Handler{
		correlator: correlator,
		registry:   registry,
		learner:    learner,
		scorer:     scorer,
		monitor:    monitor,
		inject:     inject,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/events", h.getEvents)
	r.GET("/health", h.health)
	r.POST("/api/debug/simulate", h.simulate)
	r.GET("/api/debug/thresholds", h.getThresholds)
	r.GET("/api/debug/heuristics", h.getHeuristics)
	r.GET("/api/debug/tweeters", h.getTweeters)
	r.GET("/api/debug/commonwords", h.getCommonWords)
	r.GET("/api/debug/stats", h.getStats)
}

func (h *Handler) getEvents(c *gin.Context) {
	limit := 20
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			limit = lim
		}
	}

	var minMag float64
	if m := c.Query("min_magnitude"); m != "" {
		if mag, err := strconv.ParseFloat(m, 64); err == nil {
			minMag = mag
		}
	}

	var since time.Time
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			since = t
		}
	}

	officialOnly := c.Query("official") == "true"

	events := h.correlator.History()
	filtered := make([]*fusion.Event, 0, len(events))
	for _, e := range events {
		if e.Mag.Value < minMag {
			continue
		}
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if officialOnly && !e.Official() {
			continue
		}
		filtered = append(filtered, e)
		if len(filtered) == limit {
			break
		}
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(filtered))
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// simulateRequest is the optional body of the simulate endpoint.
// Swarm mode emits a burst of crowdsourced reports topped by an agency
// confirmation, the worst-case load a real event produces.
type simulateRequest struct {
	Mode      string  `json:"mode"`
	Magnitude float64 `json:"magnitude"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

const simulateSwarmSize = 40

func (h *Handler) simulate(c *gin.Context) {
	if h.inject == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not running"})
		return
	}

	req := simulateRequest{Magnitude: 5.5, Latitude: 35.6762, Longitude: 139.6503}
	_ = c.ShouldBindJSON(&req) // all fields have defaults

	origin := time.Now().Add(-30 * time.Second)
	coords := geo.New(req.Latitude, req.Longitude, -10)
	injected, dropped := 0, 0

	if req.Mode == "swarm" {
		for i := 0; i < simulateSwarmSize; i++ {
			r := quake.New(geo.New(req.Latitude+float64(i%7)*0.01, req.Longitude, 0),
				origin, quake.NewMagnitude(4.0, "(just guessing)"))
			r.Status = quake.StatusGuessed
			r.Score = 0.3
			r.Text = "shaking right now, felt it clearly"
			r.Keywords = []string{"earthquake"}
			r.User = fmt.Sprintf("sim-witness-%d", i)
			if h.inject(r, "simulated") {
				injected++
			} else {
				dropped++
			}
		}
	}

	official := quake.New(coords, origin, quake.NewMagnitude(req.Magnitude, "Mw"))
	official.Sources = []string{"SIM"}
	official.Links = []string{"https://example.org/simulated"}
	if h.inject(official, "simulated") {
		injected++
	} else {
		dropped++
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "simulated reports injected (not persisted)",
		"injected": injected,
		"dropped":  dropped,
	})
}

func (h *Handler) getThresholds(c *gin.Context) {
	if h.registry == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.registry.Dump())
}

func (h *Handler) getHeuristics(c *gin.Context) {
	if h.learner == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.learner.Stats())
}

func (h *Handler) getTweeters(c *gin.Context) {
	if h.scorer == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.scorer.UserScores())
}

func (h *Handler) getCommonWords(c *gin.Context) {
	if h.scorer == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, h.scorer.CommonTerms())
}

func (h *Handler) getStats(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.monitor.Stats())
}
