package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server  ServerConfig
	Feeds   FeedsConfig
	Score   ScoreConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
	// Requests per second allowed on the HTTP surface.
	RateLimit int
}

type FeedsConfig struct {
	// Sources are receiver URIs; the scheme picks the adapter
	// (https://, fdsn://, ws://, post://, social://).
	Sources []string
	// DomainsPath points at a JSON file of delivery domains; empty
	// means no subscriptions beyond what main wires by hand.
	DomainsPath string
}

type ScoreConfig struct {
	// Alerters are account handles whose postings count as seismic
	// alert feeds rather than eyewitness chatter.
	Alerters []string
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvInt("RATE_LIMIT_RPS", 20),
		},
		Feeds: FeedsConfig{
			Sources: getEnvList("FEEDS", []string{
				"https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson",
				"fdsn://service.iris.edu",
			}),
			DomainsPath: getEnv("DOMAINS_PATH", ""),
		},
		Score: ScoreConfig{
			Alerters: getEnvList("ALERTERS", nil),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/quakewatch.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("invalid rate limit: %d", c.Server.RateLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if len(c.Feeds.Sources) == 0 {
		return fmt.Errorf("no feed sources configured")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
