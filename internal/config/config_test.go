package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Feeds.Sources) == 0 {
		t.Error("defaults must include at least one feed")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_OverridesAndValidation(t *testing.T) {
	t.Setenv("FEEDS", " https://a.example.org/feed , fdsn://b.example.org ")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Feeds.Sources) != 2 || cfg.Feeds.Sources[0] != "https://a.example.org/feed" {
		t.Errorf("sources = %v", cfg.Feeds.Sources)
	}

	t.Setenv("LOG_LEVEL", "shouty")
	if _, err := Load(); err == nil {
		t.Error("an unknown log level should fail validation")
	}
}
