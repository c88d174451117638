package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/quakewatch/quakewatch/internal/api"
	"github.com/quakewatch/quakewatch/internal/config"
	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/ingest"
	"github.com/quakewatch/quakewatch/internal/logging"
	"github.com/quakewatch/quakewatch/internal/parse"
	"github.com/quakewatch/quakewatch/internal/score"
	"github.com/quakewatch/quakewatch/internal/store"
	"github.com/quakewatch/quakewatch/internal/subscribe"
	"github.com/quakewatch/quakewatch/internal/travel"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scorer := score.NewScorer(cfg.Score.Alerters)
	learner, err := score.NewLearner(ctx, st)
	if err != nil {
		logging.Fatalf("Failed to load learned heuristics: %v", err)
	}

	slowdown := fusion.NewSlowdown()
	env := ingest.Env{Slowdown: slowdown}

	quakeml := parse.QuakeML{}
	for _, source := range cfg.Feeds.Sources {
		if strings.HasPrefix(source, "fdsn://") {
			quakeml.Stations = ingest.NewStations(source, env)
			break
		}
	}

	env.Dispatcher = parse.NewDispatcher(
		parse.Social{Scorer: scorer},
		parse.P2PQuake{},
		parse.GeoJSON{},
		parse.Atom{},
		quakeml,
		parse.CSV{},
	)

	correlator := fusion.NewCorrelator(st, travel.NewModel())
	manager := ingest.NewManager(env, correlator, learner, nil)
	for _, source := range cfg.Feeds.Sources {
		if err := manager.Add(source); err != nil {
			logging.Fatalf("Cannot watch %s: %v", source, err)
		}
	}

	registry := subscribe.NewRegistry(thresholdBridge{ctx: ctx, store: st})
	domains, err := loadDomains(cfg.Feeds.DomainsPath, registry)
	if err != nil {
		logging.Fatalf("Failed to load domains: %v", err)
	}

	monitor := subscribe.NewMonitor(slowdown)
	monitor.Notify(subscribe.NewConsole("human"), nil, domains...)

	go func() {
		if err := monitor.Run(ctx, manager.Notices()); err != nil {
			if errors.Is(err, subscribe.ErrOverloaded) {
				logging.Fatalf("Monitor overloaded beyond recovery: %v", err)
			}
			if !errors.Is(err, context.Canceled) {
				slog.Error("monitor stopped", "error", err)
			}
		}
	}()

	manager.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // wildcard origins forbid credentials
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))

	handler := api.NewHandler(correlator, registry, learner, scorer, monitor, manager.Inject)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	manager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// loadDomains reads delivery domains from a JSON file. Without one a
// single catch-all significant-quake domain is wired so the console
// sink still speaks.
func loadDomains(path string, registry *subscribe.Registry) ([]*subscribe.Domain, error) {
	var configs []subscribe.DomainConfig
	if path == "" {
		configs = []subscribe.DomainConfig{{Name: "significant", Mag: 5.5}}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &configs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	domains := make([]*subscribe.Domain, 0, len(configs))
	for _, dc := range configs {
		d, err := subscribe.NewDomain(dc, registry)
		if err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, nil
}

// thresholdBridge adapts the sqlite store to the subscription layer's
// persistence interface.
type thresholdBridge struct {
	ctx   context.Context
	store *store.Store
}

func (b thresholdBridge) Thresholds() (map[string]subscribe.ThresholdState, error) {
	records, err := b.store.Thresholds(b.ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]subscribe.ThresholdState, len(records))
	for key, rec := range records {
		out[key] = subscribe.ThresholdState{
			Averages:  rec.Averages,
			Variances: rec.Variances,
			Sigmas:    rec.Sigmas,
		}
	}
	return out, nil
}

func (b thresholdBridge) SaveThreshold(key string, state subscribe.ThresholdState) error {
	return b.store.SaveThreshold(b.ctx, key, store.ThresholdRecord{
		Averages:  state.Averages,
		Variances: state.Variances,
		Sigmas:    state.Sigmas,
	})
}
